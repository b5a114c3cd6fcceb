package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"techflow-engine/internal/events"
	"techflow-engine/internal/store"
)

type JobsHandler struct {
	Jobs Jobs
	Hub  *events.Hub
}

func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.Jobs.ListJobs(r.Context(), store.ListJobsOpts{
		Source: r.URL.Query().Get("source"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}

// DeleteByPath expects /api/jobs/{id}.
func (h JobsHandler) DeleteByPath(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", "invalid id")
		return
	}

	if err := h.Jobs.DeleteJob(r.Context(), id); err != nil {
		writeErr(w, r, err)
		return
	}

	if h.Hub != nil {
		if evt, err := events.NewEvent(events.TypeJobDeleted, RequestIDFrom(r.Context()), map[string]int64{"id": id}); err == nil {
			h.Hub.Publish(evt)
		}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"status": "success", "id": id})
}

func (h JobsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Jobs.Stats(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, st)
}
