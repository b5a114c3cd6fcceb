package util

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

// Absolute resolves href against base. It returns "" for empty or
// unparsable input.
func Absolute(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return b.ResolveReference(ref).String()
}

// ListItems collects cleaned li texts under sel, skipping entries of
// minLen runes or fewer, up to max.
func ListItems(sel *goquery.Selection, minLen, max int) []string {
	var out []string
	sel.Find("li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		t := CleanText(li.Text())
		if len([]rune(t)) > minLen {
			out = append(out, t)
		}
		return max <= 0 || len(out) < max
	})
	return out
}

// SectionAfterHeading finds the first heading (h1-h4, strong, b) whose text
// contains any of labels and returns the list that follows it.
func SectionAfterHeading(doc *goquery.Selection, labels []string, minLen, max int) []string {
	var out []string
	doc.Find("h1, h2, h3, h4, strong, b").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		text := strings.ToLower(CleanText(h.Text()))
		if !containsAny(text, labels) || len(text) > 60 {
			return true
		}
		// list is a sibling of the heading, or of the heading's wrapper
		for _, anchor := range []*goquery.Selection{h, h.Parent()} {
			list := anchor.NextAll().Filter("ul, ol").First()
			if list.Length() == 0 {
				list = anchor.NextAll().Find("ul, ol").First()
			}
			if list.Length() > 0 {
				out = ListItems(list, minLen, max)
				if len(out) > 0 {
					return false
				}
			}
		}
		return true
	})
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

func Truncate(s string, max int) string {
	r := []rune(strings.TrimSpace(s))
	if max <= 0 || len(r) <= max {
		return string(r)
	}
	return string(r[:max])
}
