package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"techflow-engine/internal/domain"
)

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, status, e)
}

// writeErr maps the domain error taxonomy onto status codes.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var already *domain.AlreadyRunningError
	switch {
	case domain.IsValidation(err):
		WriteError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.As(err, &already):
		WriteError(w, r, http.StatusConflict, "already_running", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, r, http.StatusNotFound, "not_found", err.Error())
	default:
		WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
