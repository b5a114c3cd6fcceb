// Package shortener maps canonical job links to short URLs.
package shortener

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

var (
	ErrDisabled        = errors.New("shortener disabled")
	ErrUnsupportedHost = errors.New("shortener refuses this host")
)

type Gateway interface {
	Shorten(ctx context.Context, link string) (string, error)
}

// Disabled is the gateway used when no shortener is configured.
type Disabled struct{}

func (Disabled) Shorten(context.Context, string) (string, error) { return "", ErrDisabled }

// Shortenable reports whether link can be sent to a shortener at all.
// Indeed job links are refused upstream, so they are never attempted.
func Shortenable(link string) bool {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" {
		return false
	}
	return !strings.Contains(strings.ToLower(u.Host), "indeed.")
}
