// Package events fans engine activity out to live dashboard subscribers.
package events

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

const (
	TypeLog        = "log"
	TypeJobDeleted = "job_deleted"
)

// Event is one message on the live stream. ID is assigned by the Hub and
// increases monotonically for the life of the process.
type Event struct {
	ID        uint64          `json:"id"`
	Type      string          `json:"type"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func NewEvent(typ, reqID string, data any) (Event, error) {
	evt := Event{Type: typ, At: time.Now().UTC(), RequestID: reqID}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Event{}, fmt.Errorf("encode %s event: %w", typ, err)
		}
		evt.Data = raw
	}
	return evt, nil
}

// WriteSSE writes evt as one text/event-stream frame.
func (e Event) WriteSSE(w io.Writer) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", e.ID, e.Type, body)
	return err
}
