package participation_api

import (
	"context"
	"net/http"

	"ms-checkin/internal/auth"
	"ms-checkin/internal/models"
	"ms-checkin/internal/participations/service"
	"ms-checkin/internal/utils"

	"github.com/go-chi/chi/v5"
)

// EventDirectory resolves an event only for its owning tenant.
type EventDirectory interface {
	GetEvent(ctx context.Context, tenantID, eventID string) (*models.Event, error)
}

type Handler struct {
	ParticipationService *service.ParticipationService
	Events               EventDirectory
}

func NewHandler(svc *service.ParticipationService, events EventDirectory) *Handler {
	return &Handler{ParticipationService: svc, Events: events}
}

// Routes must be mounted behind auth.Middleware and auth.RequireTenant.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/events/{eventId}/stats", h.Stats)
	r.Get("/events/{eventId}/participations", h.List)
	r.Get("/events/{eventId}/participations/{participationId}", h.Get)
	r.Patch("/events/{eventId}/participations/{participationId}", h.Update)
	r.Delete("/events/{eventId}/participations/{participationId}", h.Delete)
}

func (h *Handler) event(r *http.Request) (*models.Event, error) {
	return h.Events.GetEvent(r.Context(), auth.Tenant(r.Context()).ID, chi.URLParam(r, "eventId"))
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	event, err := h.event(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	stats, err := h.ParticipationService.EventStats(r.Context(), event)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Stats retrieved", stats))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	event, err := h.event(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	ps, err := h.ParticipationService.ListByEvent(r.Context(), event.ID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if ps == nil {
		ps = []models.Participation{}
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Participants retrieved", ps))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.event(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	p, err := h.ParticipationService.Get(r.Context(), event.ID, chi.URLParam(r, "participationId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Participant retrieved", p))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	event, err := h.event(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.ParticipationUpdate
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	p, err := h.ParticipationService.Update(r.Context(), event.ID, chi.URLParam(r, "participationId"), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Participant updated", p))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	event, err := h.event(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := h.ParticipationService.Delete(r.Context(), event.ID, chi.URLParam(r, "participationId")); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Participant deleted", nil))
}
