package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techflow-engine/internal/domain"
)

type fakeIndex struct {
	links map[string]bool
	err   error
}

func (f fakeIndex) JobExists(_ context.Context, canonical, _, _ string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.links[canonical], nil
}

var synonyms = map[string][]string{
	"tester":  {"tester", "qa", "quality assurance"},
	"backend": {"backend", "back-end", "php"},
	".net":    {".net", "c#", "dotnet"},
}

func newTestClassifier(idx Index, requireReqs bool) *Classifier {
	m := NewMatcher([]string{"Backend", "Tester", "Java", ".NET"}, synonyms)
	return New(m, NewRegion([]string{"Egypt", "Cairo"}), idx, Policy{RequireRequirements: requireReqs})
}

func listing(mod func(*domain.RawListing)) domain.RawListing {
	l := domain.RawListing{
		Source:       domain.SourceWuzzuf,
		Title:        "Senior Backend Engineer",
		Company:      "Acme",
		Location:     "Nasr City, Cairo, Egypt",
		Link:         "https://wuzzuf.net/jobs/p/abc-backend?o=1&utm_source=x",
		Requirements: []string{"Go"},
	}
	if mod != nil {
		mod(&l)
	}
	return l
}

func TestRuleOrder(t *testing.T) {
	idx := fakeIndex{links: map[string]bool{"https://wuzzuf.net/jobs/p/dup": true}}

	tests := []struct {
		name    string
		l       domain.RawListing
		reqs    bool
		reason  string
		keyword string
	}{
		{"accept", listing(nil), false, "", "Backend"},
		{"no link wins over everything", listing(func(l *domain.RawListing) { l.Link = ""; l.Title = ""; l.Location = "Paris" }), false, ReasonNoLink, ""},
		{"relative link is unresolvable", listing(func(l *domain.RawListing) { l.Link = "/jobs/p/x" }), false, ReasonNoLink, ""},
		{"no title", listing(func(l *domain.RawListing) { l.Title = "  " }), false, ReasonNoTitle, ""},
		{"not egypt", listing(func(l *domain.RawListing) { l.Location = "Dubai, UAE" }), false, ReasonNotEgypt, ""},
		{"no keyword", listing(func(l *domain.RawListing) { l.Title = "Accountant" }), false, ReasonNoKeyword, ""},
		{"keyword in body", listing(func(l *domain.RawListing) { l.Title = "Engineer"; l.Body = "QA team" }), false, "", "Tester"},
		{"requirements optional", listing(func(l *domain.RawListing) { l.Requirements = nil }), false, "", "Backend"},
		{"requirements mandatory", listing(func(l *domain.RawListing) { l.Requirements = nil }), true, ReasonNoRequirements, ""},
		{"skills satisfy requirements", listing(func(l *domain.RawListing) { l.Requirements = nil; l.Skills = []string{"Go"} }), true, "", "Backend"},
		{"duplicate", listing(func(l *domain.RawListing) { l.Link = "https://WUZZUF.net/jobs/p/dup/?a=hpb" }), false, ReasonDuplicate, ""},
		{"parse error", listing(func(l *domain.RawListing) { l.ParseErr = errors.New("bad card") }), false, ReasonParseError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestClassifier(idx, tt.reqs).Classify(context.Background(), tt.l, "Backend")
			if tt.reason == "" {
				require.True(t, d.Accept, "reason=%s", d.Reason)
				assert.Equal(t, tt.keyword, d.Keyword)
				return
			}
			assert.False(t, d.Accept)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestAttributionFollowsConfiguredOrder(t *testing.T) {
	c := newTestClassifier(fakeIndex{}, false)
	d := c.Classify(context.Background(), listing(func(l *domain.RawListing) {
		l.Title = "QA Tester for Backend services"
	}), "Tester")
	require.True(t, d.Accept)
	assert.Equal(t, "Backend", d.Keyword)
}

func TestIndexErrorIsParseError(t *testing.T) {
	c := newTestClassifier(fakeIndex{err: errors.New("db closed")}, false)
	d := c.Classify(context.Background(), listing(nil), "Backend")
	assert.Equal(t, ReasonParseError, d.Reason)
	assert.ErrorContains(t, d.Err, "db closed")
}

func TestPanickingRuleIsParseError(t *testing.T) {
	c := NewWithRules(Rule{Reason: "boom", Skip: func(context.Context, *Input) (bool, error) {
		panic("nil map")
	}})
	d := c.Classify(context.Background(), listing(nil), "Backend")
	assert.Equal(t, ReasonParseError, d.Reason)
	assert.Error(t, d.Err)
}

func TestRunIndexSeesSameRunAcceptances(t *testing.T) {
	ctx := context.Background()
	ri := NewRunIndex(fakeIndex{})
	c := newTestClassifier(ri, false)

	l := listing(nil)
	first := c.Classify(ctx, l, "Backend")
	require.True(t, first.Accept)
	ri.Remember(first.Canonical, l.Title, l.Company)

	second := c.Classify(ctx, l, "Backend")
	assert.Equal(t, ReasonDuplicate, second.Reason)

	// same title and company under another link
	third := c.Classify(ctx, listing(func(l *domain.RawListing) { l.Link = "https://eg.indeed.com/viewjob?jk=1" }), "Backend")
	assert.Equal(t, ReasonDuplicate, third.Reason)
}

func TestCanonicalLink(t *testing.T) {
	cases := map[string]string{
		"HTTPS://Wuzzuf.NET/jobs/p/abc/?a=hpb&o=2#top":              "https://wuzzuf.net/jobs/p/abc",
		"https://eg.indeed.com/viewjob?jk=123&from=serp&utm_source=x": "https://eg.indeed.com/viewjob?jk=123",
		"https://example.com/job/1/?b=2&a=1&utm_medium=mail&gclid=z":  "https://example.com/job/1?a=1&b=2",
		"https://example.com/":                                         "https://example.com",
		"mailto:hr@example.com":                                        "",
		"/jobs/p/relative":                                             "",
		"":                                                             "",
	}
	for in, want := range cases {
		assert.Equal(t, want, CanonicalLink(in), in)
	}
}

func TestMatcherWordBoundaries(t *testing.T) {
	m := NewMatcher([]string{"Java", ".NET", "IT", "UI/UX"}, map[string][]string{
		".net":  {".net", "c#"},
		"ui/ux": {"ui/ux", "ux"},
	})

	kw, ok := m.First("Senior JavaScript Developer")
	assert.False(t, ok, "java must not match javascript, got %q", kw)

	kw, ok = m.First("Backend (Java / Spring)")
	require.True(t, ok)
	assert.Equal(t, "Java", kw)

	kw, ok = m.First("ASP.NET Core developer")
	require.True(t, ok)
	assert.Equal(t, ".NET", kw)

	kw, ok = m.First("C# engineer")
	require.True(t, ok)
	assert.Equal(t, ".NET", kw)

	_, ok = m.First("Submit your application")
	assert.False(t, ok, "it must not match inside words")

	for text, want := range map[string]string{
		"IT support specialist": "IT",
		"Senior UX designer":    "UI/UX",
		"ＪＡＶＡ developer":        "Java",
	} {
		kw, ok = m.First(text)
		require.True(t, ok, text)
		assert.Equal(t, want, kw, text)
	}
}

func TestRegion(t *testing.T) {
	r := NewRegion([]string{"Egypt", "Cairo", "6th of October"})
	assert.True(t, r.Match("cairo"))
	assert.True(t, r.Match("6th of October, Giza"))
	assert.False(t, r.Match("Riyadh, Saudi Arabia"))
	assert.False(t, r.Match(""))
}
