package httpapi

import (
	"net/http"

	"techflow-engine/internal/analytics"
)

type AnalyticsHandler struct {
	Analytics Analytics
}

func (h AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.Analytics.Summary(r.Context(), analytics.ParseRange(r.URL.Query().Get("range")))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, s)
}

func (h AnalyticsHandler) History(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Analytics.History(r.Context(), queryInt(r, "limit", analytics.DefaultHistoryLimit))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"history": runs, "count": len(runs)})
}
