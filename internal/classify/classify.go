// Package classify decides whether a raw listing becomes a Job.
package classify

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"techflow-engine/internal/domain"
)

// Skip reasons. Duplicate is reported separately from the others in a
// RunSummary.
const (
	ReasonNoLink         = "no_link"
	ReasonNoTitle        = "no_title"
	ReasonNotEgypt       = "not_egypt"
	ReasonNoKeyword      = "no_keyword"
	ReasonNoRequirements = "no_requirements"
	ReasonDuplicate      = "duplicate"
	ReasonParseError     = "parse_error"

	// assigned by the coordinator, not by rules
	ReasonTargetReached = "target_reached"
	ReasonVarietySkip   = "variety_skip"
	ReasonPersistError  = "persist_error"
)

// Index answers whether a job identity is already known.
type Index interface {
	JobExists(ctx context.Context, canonical, title, company string) (bool, error)
}

// Input is what every rule sees. Rules may fill Keyword for later rules.
type Input struct {
	Listing   domain.RawListing
	Search    string
	Canonical string
	Keyword   string
}

// Rule skips a listing with Reason when Skip returns true.
type Rule struct {
	Reason string
	Skip   func(ctx context.Context, in *Input) (bool, error)
}

type Decision struct {
	Accept    bool
	Reason    string
	Keyword   string
	Canonical string
	Err       error
}

type Policy struct {
	RequireRequirements bool
}

type Classifier struct {
	rules []Rule
}

// New builds the standard rule chain: no_link, no_title, not_egypt,
// no_keyword, no_requirements (when required), duplicate.
func New(matcher *Matcher, region Region, index Index, policy Policy) *Classifier {
	rules := []Rule{
		{Reason: ReasonNoLink, Skip: func(_ context.Context, in *Input) (bool, error) {
			return in.Canonical == "", nil
		}},
		{Reason: ReasonNoTitle, Skip: func(_ context.Context, in *Input) (bool, error) {
			return strings.TrimSpace(in.Listing.Title) == "", nil
		}},
		{Reason: ReasonNotEgypt, Skip: func(_ context.Context, in *Input) (bool, error) {
			return !region.Match(in.Listing.Location), nil
		}},
		{Reason: ReasonNoKeyword, Skip: func(_ context.Context, in *Input) (bool, error) {
			kw, ok := matcher.First(in.Listing.Title + "\n" + in.Listing.Body)
			if !ok {
				return true, nil
			}
			in.Keyword = kw
			return false, nil
		}},
	}
	if policy.RequireRequirements {
		rules = append(rules, Rule{Reason: ReasonNoRequirements, Skip: func(_ context.Context, in *Input) (bool, error) {
			return len(in.Listing.Requirements) == 0 && len(in.Listing.Skills) == 0, nil
		}})
	}
	rules = append(rules, Rule{Reason: ReasonDuplicate, Skip: func(ctx context.Context, in *Input) (bool, error) {
		return index.JobExists(ctx, in.Canonical, in.Listing.Title, in.Listing.Company)
	}})
	return &Classifier{rules: rules}
}

// NewWithRules is used where a caller needs a custom chain.
func NewWithRules(rules ...Rule) *Classifier { return &Classifier{rules: rules} }

// Classify runs the rules in order; the first that fires decides. Any
// adapter parse failure, rule error or panic yields parse_error.
func (c *Classifier) Classify(ctx context.Context, l domain.RawListing, search string) (d Decision) {
	in := &Input{Listing: l, Search: search, Canonical: CanonicalLink(l.Link)}
	d.Canonical = in.Canonical

	if l.ParseErr != nil {
		return Decision{Reason: ReasonParseError, Canonical: in.Canonical, Err: l.ParseErr}
	}

	defer func() {
		if r := recover(); r != nil {
			d = Decision{Reason: ReasonParseError, Canonical: in.Canonical, Err: fmt.Errorf("classify panic: %v", r)}
		}
	}()

	for _, rule := range c.rules {
		skip, err := rule.Skip(ctx, in)
		if err != nil {
			return Decision{Reason: ReasonParseError, Canonical: in.Canonical, Keyword: in.Keyword,
				Err: fmt.Errorf("%s: %w", rule.Reason, err)}
		}
		if skip {
			return Decision{Reason: rule.Reason, Canonical: in.Canonical, Keyword: in.Keyword}
		}
	}

	kw := in.Keyword
	if kw == "" {
		kw = search
	}
	return Decision{Accept: true, Keyword: kw, Canonical: in.Canonical}
}

// RunIndex layers the identities accepted in the current run over a
// persistent Index.
type RunIndex struct {
	base Index

	mu        sync.Mutex
	links     map[string]bool
	titleComp map[string]bool
}

func NewRunIndex(base Index) *RunIndex {
	return &RunIndex{base: base, links: map[string]bool{}, titleComp: map[string]bool{}}
}

func identity(title, company string) string {
	return Normalize(strings.Join(strings.Fields(title), " ")) + "\x00" + Normalize(strings.Join(strings.Fields(company), " "))
}

func (r *RunIndex) Remember(canonical, title, company string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if canonical != "" {
		r.links[canonical] = true
	}
	if strings.TrimSpace(company) != "" {
		r.titleComp[identity(title, company)] = true
	}
}

func (r *RunIndex) JobExists(ctx context.Context, canonical, title, company string) (bool, error) {
	r.mu.Lock()
	hit := (canonical != "" && r.links[canonical]) ||
		(strings.TrimSpace(company) != "" && r.titleComp[identity(title, company)])
	r.mu.Unlock()
	if hit {
		return true, nil
	}
	if r.base == nil {
		return false, nil
	}
	return r.base.JobExists(ctx, canonical, title, company)
}
