package classify

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cloudflare/ahocorasick"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKC and Unicode case folding so "ＪＡＶＡ" matches "java".
func Normalize(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}

// Matcher finds configured keywords, or any of their synonyms, in free text.
// A hit must sit on word boundaries: "java" does not match "javascript".
type Matcher struct {
	keywords []string
	patterns []string
	owner    []int
	ac       *ahocorasick.Matcher
}

// NewMatcher builds a matcher over keywords in priority order. synonyms is
// keyed by lower-cased keyword; a keyword always matches itself.
func NewMatcher(keywords []string, synonyms map[string][]string) *Matcher {
	m := &Matcher{}
	seen := map[string]bool{}
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" || seen[Normalize(kw)] {
			continue
		}
		seen[Normalize(kw)] = true
		idx := len(m.keywords)
		m.keywords = append(m.keywords, kw)

		terms := append([]string{kw}, synonyms[strings.ToLower(kw)]...)
		local := map[string]bool{}
		for _, term := range terms {
			p := Normalize(strings.TrimSpace(term))
			if p == "" || local[p] {
				continue
			}
			local[p] = true
			m.patterns = append(m.patterns, p)
			m.owner = append(m.owner, idx)
		}
	}
	if len(m.patterns) > 0 {
		m.ac = ahocorasick.NewStringMatcher(m.patterns)
	}
	return m
}

// First returns the earliest configured keyword found in text.
func (m *Matcher) First(text string) (string, bool) {
	hits := m.hits(text)
	best := -1
	for _, kw := range hits {
		if best == -1 || kw < best {
			best = kw
		}
	}
	if best == -1 {
		return "", false
	}
	return m.keywords[best], true
}

func (m *Matcher) hits(text string) []int {
	if m.ac == nil || text == "" {
		return nil
	}
	folded := Normalize(text)
	var out []int
	for _, pi := range m.ac.Match([]byte(folded)) {
		if onWordBoundary(folded, m.patterns[pi]) {
			out = append(out, m.owner[pi])
		}
	}
	return out
}

// onWordBoundary reports whether any occurrence of p in s is delimited by
// non-word characters. Pattern edges that are themselves punctuation (".net",
// "c#") need no boundary on that side.
func onWordBoundary(s, p string) bool {
	firstRune, _ := utf8.DecodeRuneInString(p)
	lastRune, _ := utf8.DecodeLastRuneInString(p)
	needLeft := isWord(firstRune)
	needRight := isWord(lastRune)

	for from := 0; from <= len(s)-len(p); {
		i := strings.Index(s[from:], p)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(p)

		leftOK := true
		if needLeft && start > 0 {
			r, _ := utf8.DecodeLastRuneInString(s[:start])
			leftOK = !isWord(r)
		}
		rightOK := true
		if needRight && end < len(s) {
			r, _ := utf8.DecodeRuneInString(s[end:])
			rightOK = !isWord(r)
		}
		if leftOK && rightOK {
			return true
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		from = start + size
	}
	return false
}

func isWord(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
