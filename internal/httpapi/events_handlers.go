package httpapi

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"techflow-engine/internal/events"
)

const sseKeepAlive = 25 * time.Second

// EventsHandler streams hub events as text/event-stream. A reconnecting
// client sends Last-Event-ID and receives what it missed.
type EventsHandler struct {
	Hub       *events.Hub
	KeepAlive time.Duration
}

func (h EventsHandler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, r, http.StatusInternalServerError, "stream_unsupported", "Streaming unsupported")
		return
	}

	lastID, _ := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)
	ch := h.Hub.Subscribe(lastID)
	defer h.Hub.Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, ": connected\n\n")
	flusher.Flush()

	every := h.KeepAlive
	if every <= 0 {
		every = sseKeepAlive
	}
	tick := time.NewTicker(every)
	defer tick.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-tick.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := evt.WriteSSE(w); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
