// Package scrape runs the source adapters for one keyword and the optional
// secondary fetch for a listing.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"techflow-engine/internal/domain"
	"techflow-engine/internal/scrape/types"
)

// Batch is what one source returned for one keyword.
type Batch struct {
	Source   string
	Listings []domain.RawListing
	Err      error
}

// FetchKeyword queries every source for keyword concurrently, each under its
// own timeout. Batches come back in sources order; a failing source carries
// a *domain.SourceError and never cancels its siblings.
func FetchKeyword(ctx context.Context, reg *types.Registry, sources []string, keyword string, max int, timeout time.Duration) []Batch {
	out := make([]Batch, len(sources))
	var g errgroup.Group

	for i, name := range sources {
		out[i].Source = name
		a, ok := reg.Get(name)
		if !ok {
			out[i].Err = &domain.SourceError{Source: name, Keyword: keyword, Err: errors.New("no adapter registered")}
			continue
		}

		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					out[i].Err = &domain.SourceError{Source: name, Keyword: keyword, Err: fmt.Errorf("panic: %v", r)}
				}
			}()

			fctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			listings, ferr := a.Fetch(fctx, keyword, max)
			if ferr != nil {
				out[i].Err = &domain.SourceError{Source: name, Keyword: keyword, Err: ferr}
				return nil // best-effort: don't cancel siblings
			}
			for j := range listings {
				if listings[j].Source == "" {
					listings[j].Source = name
				}
			}
			out[i].Listings = listings
			return nil
		})
	}

	_ = g.Wait()
	return out
}

// Hydrate runs the secondary fetch with a per-attempt timeout, retrying up
// to retries more times. It returns the last error.
func Hydrate(ctx context.Context, h types.Hydrator, l *domain.RawListing, timeout time.Duration, retries int) error {
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		hctx, cancel := context.WithTimeout(ctx, timeout)
		err = h.Hydrate(hctx, l)
		cancel()
		if err == nil {
			return nil
		}
	}
	return err
}
