package util

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// StatusError is a non-2xx answer from a source.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("GET %s: status %d", e.URL, e.Code) }

// Fetcher performs throttled GETs with bounded retry on 429 and 503.
type Fetcher struct {
	Client     *http.Client
	Limiter    *HostLimiter
	UserAgent  string
	MaxRetries int
	Backoff    time.Duration
}

func NewFetcher(client *http.Client, limiter *HostLimiter, userAgent string) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Fetcher{Client: client, Limiter: limiter, UserAgent: userAgent, MaxRetries: 2, Backoff: 2 * time.Second}
}

// Document GETs rawURL and parses it as HTML.
func (f *Fetcher) Document(ctx context.Context, rawURL string) (*goquery.Document, error) {
	body, err := f.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	return doc, nil
}

// Get returns the body of a 2xx response; the caller closes it.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	var lastErr error
	held := false
	for attempt := 0; attempt <= f.MaxRetries; attempt++ {
		// a Retry-After hold is honoured by the limiter instead
		if attempt > 0 && !held {
			backoff := time.Duration(1<<uint(attempt-1)) * f.Backoff
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if f.Limiter != nil {
			if err := f.Limiter.WaitURL(ctx, rawURL); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		f.setHeaders(req)

		resp, err := f.Client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("GET %s: %w", rawURL, err)
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp.Body, nil
		}
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()

		lastErr = &StatusError{URL: rawURL, Code: resp.StatusCode}
		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
			return nil, lastErr
		}
		held = false
		if d := retryAfter(resp.Header.Get("Retry-After")); d > 0 && f.Limiter != nil {
			f.Limiter.Penalize(rawURL, d)
			held = true
		}
	}
	return nil, lastErr
}

const maxRetryAfter = time.Minute

// retryAfter reads the delay-seconds form of Retry-After, capped.
func retryAfter(v string) time.Duration {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0
	}
	d := time.Duration(n) * time.Second
	if d > maxRetryAfter {
		d = maxRetryAfter
	}
	return d
}

func (f *Fetcher) setHeaders(req *http.Request) {
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,ar;q=0.8")
}

// IsRetryable reports whether err is a throttling answer that survived all
// retries.
func IsRetryable(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && (se.Code == http.StatusTooManyRequests || se.Code == http.StatusServiceUnavailable)
}
