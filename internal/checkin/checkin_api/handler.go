package checkin_api

import (
	"context"
	"net/http"
	"time"

	"ms-checkin/internal/apperrors"
	"ms-checkin/internal/auth"
	"ms-checkin/internal/checkin/service"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/metrics"
	"ms-checkin/internal/models"
	"ms-checkin/internal/sse"
	"ms-checkin/internal/staff/session"
	"ms-checkin/internal/utils"

	"github.com/go-chi/chi/v5"
)

type loginRequest struct {
	CompanyCode string `json:"company_code"`
	EventCode   string `json:"event_code"`
	Passcode    string `json:"passcode"`
}

type checkinRequest struct {
	Input string `json:"input"`
}

type Handler struct {
	CheckinService *service.CheckinService
	Sessions       *session.Manager
	SessionTTL     time.Duration
	SecureCookies  bool
}

func NewHandler(svc *service.CheckinService, sessions *session.Manager, ttl time.Duration, secure bool) *Handler {
	return &Handler{CheckinService: svc, Sessions: sessions, SessionTTL: ttl, SecureCookies: secure}
}

// Routes mounts the staff endpoints. Login is public, the rest need a
// staff session cookie.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/login", h.Login)
	r.Group(func(r chi.Router) {
		r.Use(session.RequireStaff(h.Sessions.Store))
		r.Post("/logout", h.Logout)
		r.Get("/session", h.Session)
		r.Post("/checkin", h.CheckIn)
		r.Get("/search", h.Search)
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	sess, err := h.Sessions.Login(r.Context(), req.CompanyCode, req.EventCode, req.Passcode)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	session.SetCookie(w, sess.ID, h.SessionTTL, h.SecureCookies)
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Logged in", sess))
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if err := h.Sessions.Logout(r.Context(), sess.ID); err != nil {
		utils.WriteError(w, err)
		return
	}
	session.ClearCookie(w, h.SecureCookies)
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Logged out", nil))
}

func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Session retrieved", session.FromContext(r.Context())))
}

// CheckIn always answers with the check-in result shape, failures included.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkinRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		writeCheckinError(w, err)
		return
	}
	result, err := h.CheckinService.CheckIn(r.Context(), req.Input, session.FromContext(r.Context()))
	if err != nil {
		writeCheckinError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, result)
}

func writeCheckinError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	utils.WriteJSON(w, apperrors.HTTPStatus(code), models.CheckinResult{
		Success:   false,
		Message:   apperrors.Message(err),
		ErrorCode: string(code),
	})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ps, err := h.CheckinService.Search(r.Context(), session.FromContext(r.Context()), r.URL.Query().Get("q"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if ps == nil {
		ps = []models.Participation{}
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Participants found", ps))
}

// EventDirectory resolves an event only for its owning tenant.
type EventDirectory interface {
	GetEvent(ctx context.Context, tenantID, eventID string) (*models.Event, error)
}

// LiveHandler streams an event's check-ins to the admin dashboard.
type LiveHandler struct {
	Events  EventDirectory
	Emitter *sse.CheckinEventEmitter
	Metrics *metrics.Metrics
	Logger  *logger.Logger
}

func NewLiveHandler(events EventDirectory, emitter *sse.CheckinEventEmitter, m *metrics.Metrics, log *logger.Logger) *LiveHandler {
	return &LiveHandler{Events: events, Emitter: emitter, Metrics: m, Logger: log}
}

// Routes must be mounted behind auth.Middleware and auth.RequireTenant.
func (h *LiveHandler) Routes(r chi.Router) {
	r.Get("/events/{eventId}/live", h.Live)
}

func (h *LiveHandler) Live(w http.ResponseWriter, r *http.Request) {
	event, err := h.Events.GetEvent(r.Context(), auth.Tenant(r.Context()).ID, chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	sse.Stream(w, r, h.Emitter, event.ID, h.Logger, h.Metrics)
}
