package httpapi

import (
	"net/http"
	"strings"

	"techflow-engine/internal/domain"
	"techflow-engine/internal/store"
)

type LogsHandler struct {
	Logs Logs
}

func (h LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	level := domain.LogLevel(strings.ToLower(r.URL.Query().Get("level")))
	if level != "" && !level.Valid() {
		writeErr(w, r, &domain.ValidationError{Field: "level", Message: "must be info, warning or error"})
		return
	}
	logs, err := h.Logs.ListLogs(r.Context(), store.LogFilter{Level: level, Limit: queryInt(r, "limit", 100)})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"logs": logs, "count": len(logs)})
}

func (h LogsHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.Logs.DeleteLogs(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"status": "success", "deleted": n})
}
