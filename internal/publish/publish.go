// Package publish delivers rendered jobs to the blog and messaging channels.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Post is one rendered delivery. Blog gateways read Title and HTML,
// messaging gateways read Text.
type Post struct {
	JobID  int64
	Title  string
	Text   string
	HTML   string
	Labels []string
}

// Result carries what the channel hands back; only the blog returns a URL.
type Result struct {
	URL string
}

type Gateway interface {
	Channel() string
	Publish(ctx context.Context, p Post) (Result, error)
}

// APIError is a non-2xx response from a channel API.
type APIError struct {
	Channel string
	Status  int
	Body    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api: status %d: %s", e.Channel, e.Status, e.Body)
}

func defaultClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// postJSON sends payload and decodes a 2xx JSON response into out (when
// non-nil).
func postJSON(ctx context.Context, client *http.Client, channel, url, bearer string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", channel, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode/100 != 2 {
		return &APIError{Channel: channel, Status: resp.StatusCode, Body: truncate(strings.TrimSpace(string(raw)), 300)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s decode: %w", channel, err)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
