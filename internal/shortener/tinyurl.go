package shortener

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const defaultTinyURLBase = "https://api.tinyurl.com"

// TinyURL calls the TinyURL v2 create endpoint.
type TinyURL struct {
	base    string
	token   string
	client  *http.Client
	limiter *rate.Limiter
}

// NewTinyURL returns a gateway throttled to rps requests per second.
func NewTinyURL(base, token string, client *http.Client, rps float64) *TinyURL {
	if base == "" {
		base = defaultTinyURLBase
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if rps <= 0 {
		rps = 2
	}
	return &TinyURL{
		base:    strings.TrimRight(base, "/"),
		token:   token,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type tinyRequest struct {
	URL    string `json:"url"`
	Domain string `json:"domain"`
}

type tinyResponse struct {
	Data struct {
		TinyURL string `json:"tiny_url"`
	} `json:"data"`
	Errors []string `json:"errors"`
}

func (t *TinyURL) Shorten(ctx context.Context, link string) (string, error) {
	if t.token == "" {
		return "", ErrDisabled
	}
	if !Shortenable(link) {
		return "", ErrUnsupportedHost
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return "", err
	}

	body, err := json.Marshal(tinyRequest{URL: link, Domain: "tinyurl.com"})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.base+"/create", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+t.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("tinyurl create: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("tinyurl create: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out tinyResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("tinyurl decode: %w", err)
	}
	if out.Data.TinyURL == "" {
		return "", fmt.Errorf("tinyurl create: empty tiny_url (%s)", strings.Join(out.Errors, "; "))
	}
	return out.Data.TinyURL, nil
}
