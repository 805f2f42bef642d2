package import_api

import (
	"net/http"
	"strings"

	"ms-checkin/internal/apperrors"
	"ms-checkin/internal/auth"
	"ms-checkin/internal/imports"
	"ms-checkin/internal/models"
	"ms-checkin/internal/utils"

	"github.com/go-chi/chi/v5"
)

const maxUploadBytes = 10 << 20

type Handler struct {
	ImportService *imports.ImportService
}

func NewHandler(svc *imports.ImportService) *Handler {
	return &Handler{ImportService: svc}
}

// Routes must be mounted behind auth.Middleware and auth.RequireTenant.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/events/{eventId}/import", h.Import)
	r.Post("/events/{eventId}/import/csv", h.Import)
	r.Post("/events/{eventId}/import/preview", h.Preview)
	r.Post("/events/{eventId}/send-tickets", h.SendTickets)
}

// readRows accepts {"rows": [...]} or a multipart upload with a "file" CSV part.
func readRows(r *http.Request) ([]models.ImportRow, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var req struct {
			Rows []models.ImportRow `json:"rows"`
		}
		if err := utils.DecodeJSON(r, &req); err != nil {
			return nil, err
		}
		return req.Rows, nil
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrValidation, "Invalid upload.")
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrValidation, "A CSV file is required.")
	}
	defer file.Close()
	return imports.ParseCSV(file)
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	rows, err := readRows(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	result, err := h.ImportService.ImportTickets(r.Context(), auth.Tenant(r.Context()).ID, chi.URLParam(r, "eventId"), rows)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Tickets imported", result))
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	rows, err := readRows(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	preview, err := h.ImportService.PreviewImport(r.Context(), auth.Tenant(r.Context()).ID, chi.URLParam(r, "eventId"), rows)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Import preview", preview))
}

func (h *Handler) SendTickets(w http.ResponseWriter, r *http.Request) {
	queued, err := h.ImportService.QueueUnsentTickets(r.Context(), auth.Tenant(r.Context()).ID, chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Ticket mails queued", map[string]int{"queued": queued}))
}
