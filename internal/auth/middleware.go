package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"ms-checkin/internal/apperrors"
	"ms-checkin/internal/models"
	"ms-checkin/internal/utils"

	"github.com/coreos/go-oidc/v3/oidc"
)

type contextKey string

const (
	identityKey contextKey = "identity"
	tenantKey   contextKey = "tenant"
)

// Identity is the authenticated administrator behind a request.
type Identity struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
}

// Verifier turns a raw bearer token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (Identity, error)
}

// OIDCVerifier checks ID tokens against the issuer's published keys.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func NewOIDCVerifier(ctx context.Context, issuer string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	// SkipClientIDCheck: tokens are issued to the admin frontend, not to us
	verifier := provider.Verifier(&oidc.Config{
		SkipClientIDCheck: true,
	})
	return &OIDCVerifier{verifier: verifier}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (Identity, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return Identity{}, err
	}

	var claims Identity
	if err := idToken.Claims(&claims); err != nil {
		return Identity{}, fmt.Errorf("failed to parse claims: %w", err)
	}
	if claims.Subject == "" {
		claims.Subject = idToken.Subject
	}
	return claims, nil
}

func unauthorized(w http.ResponseWriter, msg string) {
	utils.WriteError(w, apperrors.New(apperrors.ErrUnauthorized, msg))
}

// Middleware rejects requests without a valid bearer token and stores the
// caller's Identity in the request context.
func Middleware(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				unauthorized(w, err.Error())
				return
			}

			identity, err := v.Verify(r.Context(), rawToken)
			if err != nil {
				unauthorized(w, "invalid token")
				return
			}
			if identity.Subject == "" {
				unauthorized(w, "subject claim not found in token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireSuperAdmin allows only the configured super administrator email.
func RequireSuperAdmin(email string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := FromContext(r.Context())
			if !ok || email == "" || !strings.EqualFold(identity.Email, email) {
				utils.WriteError(w, apperrors.Forbidden("Super administrator access required."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TenantLookup finds the tenant an identity administers.
type TenantLookup interface {
	GetTenantForOwner(ctx context.Context, ownerID string) (*models.Tenant, error)
}

// RequireTenant resolves the caller's tenant once per request. Handlers below
// it read the tenant with Tenant(ctx) and scope every query by its id.
func RequireTenant(lookup TenantLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenant, err := lookup.GetTenantForOwner(r.Context(), UserID(r.Context()))
			if err != nil {
				utils.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), tenant)))
		})
	}
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func FromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// Helper to extract user ID in handlers
func UserID(ctx context.Context) string {
	identity, _ := FromContext(ctx)
	return identity.Subject
}

func WithTenant(ctx context.Context, tenant *models.Tenant) context.Context {
	return context.WithValue(ctx, tenantKey, tenant)
}

func Tenant(ctx context.Context) *models.Tenant {
	tenant, _ := ctx.Value(tenantKey).(*models.Tenant)
	return tenant
}
