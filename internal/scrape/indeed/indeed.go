// Package indeed scrapes Indeed Egypt search results.
package indeed

import (
	"context"
	"fmt"
	"net/url"
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

func (s *Scraper) Name() string { return domain.SourceIndeed }

// SearchURL restricts results to Egypt and the last day.
func (s *Scraper) SearchURL(keyword string) string {
	q := url.Values{}
	q.Set("q", keyword)
	q.Set("l", "Egypt")
	q.Set("fromage", "1")
	return s.base + "/jobs?" + q.Encode()
}

func (s *Scraper) Fetch(ctx context.Context, keyword string, max int) ([]domain.RawListing, error) {
	doc, err := s.fetcher.Document(ctx, s.SearchURL(keyword))
	if err != nil {
		return nil, err
	}
	return ParseSearch(doc, s.base, max), nil
}

// ParseSearch reads job cards; the same job key is yielded once.
func ParseSearch(doc *goquery.Document, base string, max int) []domain.RawListing {
	cards := doc.Find("div.job_seen_beacon")
	if cards.Length() == 0 {
		cards = doc.Find("div[data-jk]")
	}

	var out []domain.RawListing
	seen := map[string]bool{}
	cards.EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if max > 0 && len(out) >= max {
			return false
		}
		l := parseCard(card, base)
		if jk := jobKey(card); jk != "" {
			if seen[jk] {
				return true
			}
			seen[jk] = true
		}
		out = append(out, l)
		return true
	})
	return out
}

func jobKey(card *goquery.Selection) string {
	if jk, ok := card.Attr("data-jk"); ok && jk != "" {
		return jk
	}
	jk, _ := card.Find("a[data-jk]").First().Attr("data-jk")
	return strings.TrimSpace(jk)
}

func parseCard(card *goquery.Selection, base string) (l domain.RawListing) {
	l.Source = domain.SourceIndeed
	defer func() {
		if r := recover(); r != nil {
			l.ParseErr = fmt.Errorf("indeed card: %v", r)
		}
	}()

	title := card.Find("h2.jobTitle").First()
	if title.Length() == 0 {
		title = card.Find("a[data-jk]").First()
	}
	l.Title = util.CleanText(title.Text())

	if jk := jobKey(card); jk != "" {
		l.Link = base + "/viewjob?jk=" + url.QueryEscape(jk)
	}

	l.Company = util.CleanText(card.Find(`[data-testid="company-name"]`).First().Text())
	l.Location = util.NormalizeLocation(card.Find(`[data-testid="text-location"]`).First().Text())

	card.Find("div").EachWithBreak(func(_ int, d *goquery.Selection) bool {
		class, _ := d.Attr("class")
		if strings.Contains(strings.ToLower(class), "salary") {
			l.Salary = util.CleanText(d.Text())
			return false
		}
		return true
	})

	snippet := card.Find(`div.job-snippet, [data-testid="job-snippet"]`).First()
	l.Description = util.CleanText(snippet.Text())
	l.Body = util.Truncate(util.CleanText(l.Title+" "+l.Description), 1000)
	return l
}

// Hydrate loads the viewjob page for the full description and requirements.
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

var requirementHeaders = []string{"requirements", "qualifications", "what you'll need", "skills"}

func ParseJobPage(doc *goquery.Document, l *domain.RawListing) {
	body := doc.Find("#jobDescriptionText").First()
	if body.Length() == 0 {
		return
	}
	if d := util.CleanText(body.Text()); d != "" {
		l.Description = util.Truncate(d, 4000)
	}

	reqs := util.SectionAfterHeading(body, requirementHeaders, 5, 5)
	if len(reqs) == 0 {
		// no labelled section; take the first list in the description
		reqs = util.ListItems(body.Find("ul").First(), 5, 5)
	}
	if len(reqs) > 0 {
		l.Requirements = reqs
	}
}
