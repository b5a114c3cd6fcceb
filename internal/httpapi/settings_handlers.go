package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"techflow-engine/internal/domain"
)

type SettingsHandler struct {
	Settings Settings
}

type settingsUpdate struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

func (h SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	v, err := h.Settings.View(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, v)
}

func (h SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req settingsUpdate
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Key) == "" || len(req.Value) == 0 {
		writeErr(w, r, &domain.ValidationError{Message: "key and value are required"})
		return
	}
	if err := h.Settings.Update(r.Context(), req.Key, req.Value); err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Settings updated for key: " + req.Key,
	})
}
