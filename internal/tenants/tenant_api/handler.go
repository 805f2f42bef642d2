package tenant_api

import (
	"net/http"

	"ms-checkin/internal/auth"
	"ms-checkin/internal/models"
	"ms-checkin/internal/tenants/service"
	"ms-checkin/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	TenantService *service.TenantService
}

func NewHandler(svc *service.TenantService) *Handler {
	return &Handler{TenantService: svc}
}

// AdminRoutes must be mounted behind auth.Middleware and auth.RequireTenant.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/tenant", h.GetTenant)
	r.Put("/tenant/smtp", h.UpdateSMTPSettings)

	r.Get("/events", h.ListEvents)
	r.Post("/events", h.CreateEvent)
	r.Get("/events/{eventId}", h.GetEvent)
	r.Patch("/events/{eventId}", h.UpdateEvent)
	r.Delete("/events/{eventId}", h.DeleteEvent)
}

// SuperAdminRoutes must be mounted behind auth.RequireSuperAdmin.
func (h *Handler) SuperAdminRoutes(r chi.Router) {
	r.Get("/tenants", h.ListTenants)
	r.Post("/tenants", h.CreateTenant)
	r.Delete("/tenants/{tenantId}", h.DeleteTenant)
	r.Get("/company-code", h.GenerateCompanyCode)
}

func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Tenant retrieved", auth.Tenant(r.Context())))
}

func (h *Handler) UpdateSMTPSettings(w http.ResponseWriter, r *http.Request) {
	var req models.SMTPSettings
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	tenant, err := h.TenantService.UpdateSMTPSettings(r.Context(), auth.Tenant(r.Context()).ID, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("SMTP settings saved", tenant))
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.TenantService.ListEvents(r.Context(), auth.Tenant(r.Context()).ID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Events retrieved", events))
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.EventInput
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	event, err := h.TenantService.CreateEvent(r.Context(), auth.Tenant(r.Context()).ID, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Event created", event))
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.TenantService.GetEvent(r.Context(), auth.Tenant(r.Context()).ID, chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event retrieved", event))
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.EventUpdate
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	event, err := h.TenantService.UpdateEvent(r.Context(), auth.Tenant(r.Context()).ID, chi.URLParam(r, "eventId"), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event updated", event))
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.TenantService.DeleteEvent(r.Context(), auth.Tenant(r.Context()).ID, chi.URLParam(r, "eventId")); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event deleted", nil))
}

func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.TenantService.ListTenants(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if tenants == nil {
		tenants = []models.Tenant{}
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Tenants retrieved", tenants))
}

func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req models.TenantInput
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	tenant, err := h.TenantService.CreateTenant(r.Context(), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Tenant created", tenant))
}

func (h *Handler) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	if err := h.TenantService.DeleteTenant(r.Context(), chi.URLParam(r, "tenantId")); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Tenant deleted", nil))
}

func (h *Handler) GenerateCompanyCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.TenantService.GenerateCompanyCode(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Company code generated", map[string]string{"company_code": code}))
}
