package util

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter throttles requests per source host. www.wuzzuf.net and
// wuzzuf.net share one budget.
type HostLimiter struct {
	mu    sync.Mutex
	hosts map[string]*hostState
	limit rate.Limit
	burst int
	now   func() time.Time
}

type hostState struct {
	lim *rate.Limiter
	// hold blocks the host until this instant after a throttling answer.
	hold time.Time
}

func NewHostLimiter(reqPerSec float64, burst int) *HostLimiter {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Limit(reqPerSec)
	if reqPerSec <= 0 {
		limit = rate.Inf
	}
	return &HostLimiter{
		hosts: make(map[string]*hostState),
		limit: limit,
		burst: burst,
		now:   time.Now,
	}
}

func hostKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "_"
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func (hl *HostLimiter) state(key string) *hostState {
	st, ok := hl.hosts[key]
	if !ok {
		st = &hostState{lim: rate.NewLimiter(hl.limit, hl.burst)}
		hl.hosts[key] = st
	}
	return st
}

// WaitURL blocks until a request to raw's host may be sent.
func (hl *HostLimiter) WaitURL(ctx context.Context, raw string) error {
	hl.mu.Lock()
	st := hl.state(hostKey(raw))
	delay := st.hold.Sub(hl.now())
	hl.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
	return st.lim.Wait(ctx)
}

// Penalize holds raw's host back for d. A shorter hold never shortens a
// pending one.
func (hl *HostLimiter) Penalize(raw string, d time.Duration) {
	if d <= 0 {
		return
	}
	hl.mu.Lock()
	defer hl.mu.Unlock()
	st := hl.state(hostKey(raw))
	if until := hl.now().Add(d); until.After(st.hold) {
		st.hold = until
	}
}

// Held reports how long raw's host is still held back.
func (hl *HostLimiter) Held(raw string) time.Duration {
	hl.mu.Lock()
	defer hl.mu.Unlock()
	st, ok := hl.hosts[hostKey(raw)]
	if !ok {
		return 0
	}
	if d := st.hold.Sub(hl.now()); d > 0 {
		return d
	}
	return 0
}
