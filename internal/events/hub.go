package events

import "sync"

const (
	subscriberBuffer = 32
	replaySize       = 64
)

// Hub is an in-process pub/sub for dashboard events. It keeps the last
// replaySize events so a reconnecting client can catch up.
type Hub struct {
	mu      sync.Mutex
	clients map[chan Event]struct{}
	seq     uint64
	ring    []Event
	dropped int
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan Event]struct{})}
}

// Subscribe registers a client. Events published after lastID that are
// still in the replay ring are queued on the returned channel first;
// lastID 0 skips the replay.
func (h *Hub) Subscribe(lastID uint64) chan Event {
	ch := make(chan Event, subscriberBuffer+replaySize)
	h.mu.Lock()
	defer h.mu.Unlock()
	if lastID > 0 {
		for _, evt := range h.ring {
			if evt.ID > lastID {
				ch <- evt
			}
		}
	}
	h.clients[ch] = struct{}{}
	return ch
}

func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Publish stamps evt with the next id and delivers it. It never blocks;
// a subscriber with a full buffer loses the event.
func (h *Hub) Publish(evt Event) Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	evt.ID = h.seq
	h.ring = append(h.ring, evt)
	if len(h.ring) > replaySize {
		h.ring = h.ring[len(h.ring)-replaySize:]
	}

	for ch := range h.clients {
		select {
		case ch <- evt:
		default:
			h.dropped++
		}
	}
	return evt
}

// Emit wraps data in an Event and publishes it. Unencodable data is dropped.
func (h *Hub) Emit(typ string, data any) {
	evt, err := NewEvent(typ, "", data)
	if err != nil {
		return
	}
	h.Publish(evt)
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}
