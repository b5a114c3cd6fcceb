package email_scrape

import (
	"context"
	"strings"
	"sync"
	"time"

	"techflow-engine/internal/classify"
	"techflow-engine/internal/domain"
)

// Scraper serves job-alert emails as a listing source. The mailbox is read
// at most once per cache window; each Fetch filters the parsed cards by
// keyword.
type Scraper struct {
	mailbox  Mailbox
	subjects []string
	ttl      time.Duration
	now      func() time.Time

	mu       sync.Mutex
	cached   []domain.RawListing
	cachedAt time.Time
}

func New(mailbox Mailbox, subjects []string, ttl time.Duration) *Scraper {
	return &Scraper{mailbox: mailbox, subjects: subjects, ttl: ttl, now: time.Now}
}

func (s *Scraper) Name() string { return domain.SourceEmail }

func (s *Scraper) Fetch(ctx context.Context, keyword string, max int) ([]domain.RawListing, error) {
	all, err := s.listings(ctx)
	if err != nil {
		return nil, err
	}
	kw := classify.Normalize(keyword)
	var out []domain.RawListing
	for _, l := range all {
		if max > 0 && len(out) >= max {
			break
		}
		if kw != "" && l.ParseErr == nil && !strings.Contains(classify.Normalize(l.Title+"\n"+l.Body), kw) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *Scraper) listings(ctx context.Context) ([]domain.RawListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && s.now().Sub(s.cachedAt) < s.ttl {
		return s.cached, nil
	}
	msgs, err := s.mailbox.Recent(ctx)
	if err != nil {
		return nil, err
	}
	s.cached = ParseMessages(msgs, s.subjects)
	s.cachedAt = s.now()
	return s.cached, nil
}

// ParseMessages turns alert emails whose subject matches any of subjects
// (all of them when subjects is empty) into raw listings, deduped by link.
func ParseMessages(msgs []Message, subjects []string) []domain.RawListing {
	out := []domain.RawListing{}
	seen := map[string]bool{}
	for _, m := range msgs {
		am := decodeAlert(m)
		if len(subjects) > 0 && !containsAnyCI(am.Subject, subjects) {
			continue
		}

		var jobs []AlertJob
		if am.HTML != "" {
			parsed, err := ParseAlertHTML(am.HTML)
			if err != nil {
				out = append(out, domain.RawListing{Source: domain.SourceEmail, Title: am.Subject, ParseErr: err})
				continue
			}
			jobs = parsed
		}
		if len(jobs) == 0 && am.Plain != "" {
			jobs = ParsePlainAlert(am.Plain)
		}

		for _, j := range jobs {
			key := jobURLKey(j.URL)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, j.listing())
		}
	}
	return out
}

func containsAnyCI(s string, subs []string) bool {
	low := strings.ToLower(s)
	for _, sub := range subs {
		sub = strings.ToLower(strings.TrimSpace(sub))
		if sub != "" && strings.Contains(low, sub) {
			return true
		}
	}
	return false
}
