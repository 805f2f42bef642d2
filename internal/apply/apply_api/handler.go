package apply_api

import (
	"net/http"

	"ms-checkin/internal/apply/service"
	"ms-checkin/internal/models"
	"ms-checkin/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	ApplyService *service.ApplyService
}

func NewHandler(svc *service.ApplyService) *Handler {
	return &Handler{ApplyService: svc}
}

// Routes are public.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/apply", h.Apply)
	r.Get("/tickets/{token}", h.GetTicket)
}

func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	var req models.ApplicationRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	result, err := h.ApplyService.Apply(r.Context(), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if result.Dropped {
		utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Application received", nil))
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Application received", map[string]string{
		"token": result.Token,
	}))
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	view, err := h.ApplyService.GetTicket(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Ticket retrieved", view))
}
