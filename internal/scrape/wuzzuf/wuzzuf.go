// Package wuzzuf scrapes the wuzzuf.net search and job pages.
package wuzzuf

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"techflow-engine/internal/domain"
	"techflow-engine/internal/scrape/util"
)

type Scraper struct {
	base    string
	fetcher *util.Fetcher
}

func New(baseURL string, fetcher *util.Fetcher) *Scraper {
	return &Scraper{base: strings.TrimRight(baseURL, "/"), fetcher: fetcher}
}

func (s *Scraper) Name() string { return domain.SourceWuzzuf }

// SearchURL lists jobs posted within the last 24 hours for keyword.
func (s *Scraper) SearchURL(keyword string) string {
	return fmt.Sprintf("%s/search/jobs/?q=%s&a=hpb&filters%%5Bpost_date%%5D%%5B0%%5D=within_24_hours",
		s.base, url.QueryEscape(keyword))
}

func (s *Scraper) Fetch(ctx context.Context, keyword string, max int) ([]domain.RawListing, error) {
	doc, err := s.fetcher.Document(ctx, s.SearchURL(keyword))
	if err != nil {
		return nil, err
	}
	return ParseSearch(doc, s.base, max), nil
}

// ParseSearch turns a search results page into listings, at most max
// (max <= 0 means all).
func ParseSearch(doc *goquery.Document, base string, max int) []domain.RawListing {
	var out []domain.RawListing
	var cards []*goquery.Selection

	doc.Find("h2, h3").Each(func(_ int, h *goquery.Selection) {
		if h.Find(`a[href*="/jobs/p/"]`).Length() == 0 {
			return
		}
		card := h.Closest("div")
		for _, c := range cards {
			if c.IsSelection(card) {
				return
			}
		}
		cards = append(cards, card)
	})

	for _, card := range cards {
		if max > 0 && len(out) >= max {
			break
		}
		out = append(out, parseCard(card, base))
	}
	return out
}

func parseCard(card *goquery.Selection, base string) (l domain.RawListing) {
	l.Source = domain.SourceWuzzuf
	defer func() {
		if r := recover(); r != nil {
			l.ParseErr = fmt.Errorf("wuzzuf card: %v", r)
		}
	}()

	link := card.Find(`h2 a[href*="/jobs/p/"], h3 a[href*="/jobs/p/"]`).First()
	if link.Length() == 0 {
		link = card.Find(`a[href*="/jobs/p/"]`).First()
	}
	href, _ := link.Attr("href")
	l.Link = util.Absolute(base, href)
	l.Title = util.CleanText(link.Text())
	if l.Title == "" {
		l.Title = util.CleanText(link.Closest("h2, h3").Text())
	}

	company := util.CleanText(card.Find(`a[href*="/jobs/careers/"]`).First().Text())
	l.Company = strings.TrimSpace(strings.TrimSuffix(company, "-"))

	card.Find("span").EachWithBreak(func(_ int, sp *goquery.Selection) bool {
		t := util.CleanText(sp.Text())
		if t == l.Company || !util.LooksLikeLocation(t) {
			return true
		}
		l.Location = t
		return false
	})
	l.Location = util.NormalizeLocation(l.Location)

	l.PostedText = util.CleanText(card.Find(`div:contains("ago")`).Last().Text())
	if len(l.PostedText) > 40 {
		l.PostedText = ""
	}
	l.Body = util.Truncate(util.CleanText(card.Text()), 1000)
	return l
}

// Hydrate is the secondary fetch: it loads the job page for requirements,
// skills, description and salary.
func (s *Scraper) Hydrate(ctx context.Context, l *domain.RawListing) error {
	if l.Link == "" {
		return nil
	}
	doc, err := s.fetcher.Document(ctx, l.Link)
	if err != nil {
		return err
	}
	ParseJobPage(doc, l)
	return nil
}

var (
	currencyMarkers = []string{"EGP", "SAR", "AED", "USD", "KWD", "QAR", "E£", "£", "$"}
	dateWords       = []string{"ago", "day", "week", "month", "year", "posted"}
	reDigit         = regexp.MustCompile(`\d`)
)

// ParseJobPage fills the detail fields of l from a job page. Fields already
// set on l are kept when the page has nothing better.
func ParseJobPage(doc *goquery.Document, l *domain.RawListing) {
	desc := util.SectionAfterHeading(doc.Selection, []string{"job description", "وصف الوظيفة"}, 10, 10)
	if len(desc) > 0 {
		l.Description = strings.Join(desc, "\n")
	}

	reqs := util.SectionAfterHeading(doc.Selection, []string{"requirements", "متطلبات"}, 5, 5)
	if len(reqs) == 0 && len(desc) > 0 {
		reqs = desc
		if len(reqs) > 5 {
			reqs = reqs[:5]
		}
	}
	for i, r := range reqs {
		reqs[i] = stripBullet(r)
	}
	if len(reqs) > 0 {
		l.Requirements = reqs
	}

	var skills []string
	seen := map[string]bool{}
	doc.Find(`a[href*="/skill"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		t := util.CleanText(a.Text())
		if t != "" && !seen[strings.ToLower(t)] {
			seen[strings.ToLower(t)] = true
			skills = append(skills, t)
		}
		return len(skills) < 10
	})
	if len(skills) > 0 {
		l.Skills = skills
	}

	if sal := findSalary(doc); sal != "" {
		l.Salary = sal
	} else if l.Salary == "" {
		l.Salary = "Confidential"
	}
}

func findSalary(doc *goquery.Document) string {
	var out string
	doc.Find("span, div, p").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if el.Children().Length() > 0 {
			return true
		}
		t := util.CleanText(el.Text())
		if len(t) < 5 || len(t) > 100 || !reDigit.MatchString(t) {
			return true
		}
		low := strings.ToLower(t)
		for _, w := range dateWords {
			if strings.Contains(low, w) {
				return true
			}
		}
		for _, m := range currencyMarkers {
			if strings.Contains(t, m) {
				out = t
				return false
			}
		}
		return true
	})
	return out
}

func stripBullet(s string) string {
	s = strings.TrimSpace(s)
	for _, b := range []string{"🔹", "•", "-", "*"} {
		s = strings.TrimSpace(strings.TrimPrefix(s, b))
	}
	return s
}
