package httpapi

import (
	"net/http"

	"techflow-engine/internal/domain"
)

type ScheduleHandler struct {
	Schedule Schedule
}

// scheduleRequest also accepts the dashboard's older channel flag names.
type scheduleRequest struct {
	domain.ScheduleConfig
	UploadToBlogger *bool `json:"upload_to_blogger"`
	UseTinyURL      *bool `json:"use_tinyurl"`
}

func (h ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	sc, err := h.Schedule.View(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, sc)
}

func (h ScheduleHandler) Save(w http.ResponseWriter, r *http.Request) {
	req := scheduleRequest{ScheduleConfig: domain.DefaultSchedule()}
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
		return
	}
	sc := req.ScheduleConfig
	if req.UploadToBlogger != nil {
		sc.UploadToBlog = *req.UploadToBlogger
	}
	if req.UseTinyURL != nil {
		sc.UseShortener = *req.UseTinyURL
	}

	saved, err := h.Schedule.Save(r.Context(), sc)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":   "success",
		"schedule": saved,
		"next_run": saved.NextRun,
	})
}
