// Package analytics folds archived run summaries into range reports.
package analytics

import (
	"context"
	"sort"
	"strings"
	"time"

	"techflow-engine/internal/domain"
)

type Range string

const (
	RangeToday Range = "today"
	RangeWeek  Range = "week"
	RangeMonth Range = "month"
)

// ParseRange maps a query value to a Range. Anything unrecognised reads as
// today, matching what the dashboard has always sent by default.
func ParseRange(s string) Range {
	switch Range(strings.ToLower(strings.TrimSpace(s))) {
	case RangeWeek:
		return RangeWeek
	case RangeMonth:
		return RangeMonth
	}
	return RangeToday
}

// Since is the inclusive lower bound of r relative to now.
func (r Range) Since(now time.Time) time.Time {
	switch r {
	case RangeWeek:
		return now.AddDate(0, 0, -7)
	case RangeMonth:
		return now.AddDate(0, 0, -30)
	}
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

type Store interface {
	SummariesSince(ctx context.Context, since time.Time) ([]domain.RunSummary, error)
	RecentSummaries(ctx context.Context, limit int) ([]domain.RunSummary, error)
}

// Summary is the RunSummary-shaped aggregate over a range.
type Summary struct {
	Range             Range          `json:"range"`
	Runs              int            `json:"runs"`
	TotalScraped      int            `json:"total_scraped"`
	JobsSaved         int            `json:"jobs_saved"`
	DuplicatesSkipped int            `json:"duplicates_skipped"`
	KeywordsFound     map[string]int `json:"keywords_found"`
	KeywordsEmpty     []string       `json:"keywords_empty"`
	SkipReasons       map[string]int `json:"skip_reasons"`
	Sources           map[string]int `json:"sources"`
	LastRun           *time.Time     `json:"last_run"`
}

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

type Aggregator struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Aggregator {
	return &Aggregator{store: store, now: time.Now}
}

func (a *Aggregator) Summary(ctx context.Context, r Range) (Summary, error) {
	runs, err := a.store.SummariesSince(ctx, r.Since(a.now()))
	if err != nil {
		return Summary{}, err
	}
	out := Fold(runs)
	out.Range = r
	return out, nil
}

// History returns the newest limit summaries, newest first.
func (a *Aggregator) History(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return a.store.RecentSummaries(ctx, limit)
}

// Fold sums counters and merges per-key maps. A keyword is reported empty
// only when every run listed it as empty and none found anything for it.
func Fold(runs []domain.RunSummary) Summary {
	out := Summary{
		Runs:          len(runs),
		KeywordsFound: map[string]int{},
		KeywordsEmpty: []string{},
		SkipReasons:   map[string]int{},
		Sources:       map[string]int{},
	}
	if len(runs) == 0 {
		return out
	}

	emptyIn := map[string]int{}
	for _, r := range runs {
		out.TotalScraped += r.TotalScraped
		out.JobsSaved += r.JobsSaved
		out.DuplicatesSkipped += r.DuplicatesSkipped
		mergeInto(out.KeywordsFound, r.KeywordsFound)
		mergeInto(out.SkipReasons, r.SkipReasons)
		mergeInto(out.Sources, r.Sources)

		seen := map[string]bool{}
		for _, kw := range r.KeywordsEmpty {
			if !seen[kw] {
				seen[kw] = true
				emptyIn[kw]++
			}
		}

		if !r.Timestamp.IsZero() && (out.LastRun == nil || r.Timestamp.After(*out.LastRun)) {
			ts := r.Timestamp
			out.LastRun = &ts
		}
	}

	for kw, n := range emptyIn {
		if n == len(runs) && out.KeywordsFound[kw] == 0 {
			out.KeywordsEmpty = append(out.KeywordsEmpty, kw)
		}
	}
	sort.Strings(out.KeywordsEmpty)
	return out
}

func mergeInto(dst, src map[string]int) {
	for k, v := range src {
		dst[k] += v
	}
}
