package utils

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"ms-checkin/internal/apperrors"
)

type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorCode string      `json:"errorCode,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func ErrorResponse(message, error string) APIResponse {
	return APIResponse{
		Success:   false,
		Message:   message,
		Error:     error,
		Timestamp: time.Now(),
	}
}

// DecodeJSON reads a JSON request body into dst.
func DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return apperrors.Wrap(err, apperrors.ErrValidation, "Invalid request body.")
	}
	return nil
}

const maxBodyBytes = 10 << 20

// WriteJSON encodes data with the given status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError maps err onto its taxonomy status and a user-safe message.
func WriteError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	resp := ErrorResponse(apperrors.Message(err), string(code))
	resp.ErrorCode = string(code)
	WriteJSON(w, apperrors.HTTPStatus(code), resp)
}
