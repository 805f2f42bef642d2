package session

import (
	"context"
	"net/http"
	"time"

	"ms-checkin/internal/apperrors"
	"ms-checkin/internal/models"
	"ms-checkin/internal/utils"
)

const CookieName = "staff_session"

type contextKey struct{}

var ErrNoSession = apperrors.New(apperrors.ErrUnauthorized, "Staff login required.")

// RequireStaff loads the session named by the staff cookie and rejects the
// request when there is none.
func RequireStaff(store *Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(CookieName)
			if err != nil {
				utils.WriteError(w, ErrNoSession)
				return
			}
			sess, err := store.Get(r.Context(), c.Value)
			if err != nil {
				utils.WriteError(w, apperrors.Internal(err))
				return
			}
			if sess == nil {
				ClearCookie(w, r.TLS != nil)
				utils.WriteError(w, ErrNoSession)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

func WithSession(ctx context.Context, sess *models.StaffSession) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the staff session set by RequireStaff, or nil.
func FromContext(ctx context.Context) *models.StaffSession {
	sess, _ := ctx.Value(contextKey{}).(*models.StaffSession)
	return sess
}

func SetCookie(w http.ResponseWriter, id string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
