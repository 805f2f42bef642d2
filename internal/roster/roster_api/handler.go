package roster_api

import (
	"net/http"
	"strings"

	"ms-checkin/internal/apperrors"
	"ms-checkin/internal/auth"
	"ms-checkin/internal/imports"
	"ms-checkin/internal/models"
	"ms-checkin/internal/roster/service"
	"ms-checkin/internal/utils"

	"github.com/go-chi/chi/v5"
)

const maxUploadBytes = 10 << 20

type Handler struct {
	RosterService *service.RosterService
}

func NewHandler(svc *service.RosterService) *Handler {
	return &Handler{RosterService: svc}
}

// Routes must be mounted behind auth.Middleware and auth.RequireTenant.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/roster", h.List)
	r.Post("/roster", h.Add)
	r.Post("/roster/import", h.Import)
	r.Delete("/roster/{recordId}", h.Delete)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.RosterService.List(r.Context(), auth.Tenant(r.Context()).ID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if records == nil {
		records = []models.MasterDataRecord{}
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Roster retrieved", records))
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	var req models.RosterRow
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	rec, err := h.RosterService.Add(r.Context(), auth.Tenant(r.Context()).ID, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Roster entry saved", rec))
}

// Import accepts either {"rows": [...]} or a multipart upload with a "file" CSV part.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	var rows []models.RosterRow
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			utils.WriteError(w, apperrors.Wrap(err, apperrors.ErrValidation, "Invalid upload."))
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			utils.WriteError(w, apperrors.Wrap(err, apperrors.ErrValidation, "A CSV file is required."))
			return
		}
		defer file.Close()

		rows, err = imports.ParseRosterCSV(file)
		if err != nil {
			utils.WriteError(w, err)
			return
		}
	} else {
		var req struct {
			Rows []models.RosterRow `json:"rows"`
		}
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.WriteError(w, err)
			return
		}
		rows = req.Rows
	}

	result, err := h.RosterService.Import(r.Context(), auth.Tenant(r.Context()).ID, rows)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Roster imported", result))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.RosterService.Delete(r.Context(), auth.Tenant(r.Context()).ID, chi.URLParam(r, "recordId")); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Roster entry deleted", nil))
}
