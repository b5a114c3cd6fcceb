package httpapi

import (
	"context"
	"net/http"
	"time"
)

type HealthHandler struct {
	DB Pinger
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil {
		WriteJSON(w, http.StatusOK, map[string]any{"status": "healthy"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.DB.Ping(ctx); err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":   "unhealthy",
			"database": "disconnected",
			"error":    err.Error(),
		})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"status": "healthy", "database": "connected"})
}
