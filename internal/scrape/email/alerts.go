package email_scrape

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"techflow-engine/internal/domain"
	"techflow-engine/internal/scrape/util"
)

var (
	reSalary   = regexp.MustCompile(`(?i)(?:EGP|E£|\$)\s?\d[\d,]*(?:\s*-\s*(?:EGP|E£|\$)?\s?\d[\d,]*)?(?:\s*(?:EGP|/\s*month|/\s*year))?`)
	reLinkedIn = regexp.MustCompile(`/jobs/view/(\d+)`)
)

// AlertJob is one job card recovered from an alert email.
type AlertJob struct {
	Title    string
	Company  string
	Location string
	Salary   string
	URL      string
}

// jobURLKey returns a stable key for links that point at a single job
// posting, or "" when href is not a job link.
func jobURLKey(href string) string {
	u, err := url.Parse(href)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Host)
	path := strings.ToLower(u.Path)
	switch {
	case strings.Contains(host, "wuzzuf.net") && strings.Contains(path, "/jobs/p/"):
		return "wuzzuf:" + strings.TrimSuffix(u.Path, "/")
	case strings.Contains(host, "indeed.") && u.Query().Get("jk") != "":
		return "indeed:" + u.Query().Get("jk")
	case strings.Contains(host, "linkedin.com"):
		if m := reLinkedIn.FindStringSubmatch(u.Path); len(m) == 2 {
			return "linkedin:" + m[1]
		}
	}
	return ""
}

// unwrapRedirect peels tracking wrappers that carry the real target in a
// url= or q= parameter.
func unwrapRedirect(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if raw := u.Query().Get("url"); raw != "" {
		if uu, err := url.Parse(raw); err == nil && uu.Host != "" {
			return uu.String()
		}
	}
	if strings.Contains(strings.ToLower(u.Host), "google.") && strings.HasPrefix(u.Path, "/url") {
		if q := u.Query().Get("q"); q != "" {
			if uu, err := url.Parse(q); err == nil && uu.Host != "" {
				return uu.String()
			}
		}
	}
	if u.Host == "" {
		return ""
	}
	return u.String()
}

// ParseAlertHTML extracts job cards from a job-alert email body. Multiple
// anchors pointing at the same posting are merged into one card.
func ParseAlertHTML(htmlBody string) ([]AlertJob, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return nil, err
	}

	byKey := map[string]*AlertJob{}
	var order []string

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		target := unwrapRedirect(href)
		if target == "" {
			return
		}
		key := jobURLKey(target)
		if key == "" {
			return
		}

		j, ok := byKey[key]
		if !ok {
			j = &AlertJob{URL: target}
			byKey[key] = j
			order = append(order, key)
		}

		if t := stripBadTitle(util.CleanText(a.Text())); betterTitle(t, j.Title) {
			j.Title = t
		}

		card := a.Closest("table")
		if card.Length() == 0 {
			card = a.Closest("tr")
		}
		if card.Length() == 0 {
			card = a.Parent()
		}

		card.Find("p, span, div").Each(func(_ int, p *goquery.Selection) {
			if p.Children().Length() > 0 {
				return
			}
			t := util.CleanText(p.Text())
			if t == "" {
				return
			}
			if j.Company == "" && strings.Contains(t, " · ") {
				parts := strings.SplitN(t, " · ", 2)
				j.Company = strings.TrimSpace(parts[0])
				j.Location = strings.TrimSpace(parts[1])
			}
		})

		if j.Salary == "" {
			if m := reSalary.FindString(util.CleanText(card.Text())); m != "" {
				j.Salary = strings.TrimSpace(m)
			}
		}
	})

	out := make([]AlertJob, 0, len(order))
	for _, k := range order {
		j := byKey[k]
		if strings.TrimSpace(j.Title) == "" {
			continue
		}
		out = append(out, *j)
	}
	return out, nil
}

// ParsePlainAlert handles text-only alerts: a title line followed by the
// job URL on its own line.
func ParsePlainAlert(body string) []AlertJob {
	var out []AlertJob
	seen := map[string]bool{}
	var prev []string
	for _, line := range strings.Split(body, "\n") {
		line = util.CleanText(line)
		if line == "" {
			continue
		}
		target := unwrapRedirect(line)
		if key := jobURLKey(target); key != "" && !strings.Contains(line, " ") {
			if seen[key] || len(prev) == 0 {
				prev = prev[:0]
				continue
			}
			seen[key] = true
			j := AlertJob{URL: target, Title: prev[len(prev)-1]}
			if last := prev[len(prev)-1]; len(prev) > 1 && strings.Contains(last, " · ") {
				parts := strings.SplitN(last, " · ", 2)
				j.Title = prev[len(prev)-2]
				j.Company, j.Location = parts[0], parts[1]
			}
			out = append(out, j)
			prev = prev[:0]
			continue
		}
		prev = append(prev, line)
		if len(prev) > 3 {
			prev = prev[1:]
		}
	}
	return out
}

func (j AlertJob) listing() domain.RawListing {
	loc := j.Location
	if loc == "" {
		loc = util.DefaultLocation
	}
	body := strings.TrimSpace(strings.Join([]string{j.Title, j.Company, j.Location}, " "))
	return domain.RawListing{
		Source:   domain.SourceEmail,
		Title:    j.Title,
		Company:  j.Company,
		Location: util.NormalizeLocation(loc),
		Link:     j.URL,
		Salary:   j.Salary,
		Body:     body,
	}
}

func stripBadTitle(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, b := range []string{"Actively recruiting", "Easy Apply", "Promoted", "Apply now", "View job"} {
		s = strings.TrimSpace(strings.ReplaceAll(s, b, ""))
	}
	low := strings.ToLower(s)
	if strings.Contains(low, "alumni") ||
		strings.Contains(low, "connections") ||
		strings.Contains(low, "applicants") ||
		strings.Contains(low, "unsubscribe") {
		return ""
	}
	return strings.Join(strings.Fields(s), " ")
}

func betterTitle(candidate, current string) bool {
	c := strings.TrimSpace(candidate)
	if c == "" {
		return false
	}
	cur := strings.TrimSpace(current)
	if cur == "" {
		return titleScore(c) >= 5
	}
	if titleScore(cur) >= 8 && titleScore(c) < titleScore(cur) {
		return false
	}
	return titleScore(c) >= titleScore(cur)+3
}

func titleScore(s string) int {
	n := len([]rune(s))
	switch {
	case n < 3:
		return 0
	case n > 120:
		return 1
	}
	score := 5
	if strings.Contains(s, " ") {
		score += 3
	}
	if strings.Contains(s, " · ") || strings.Contains(s, "http") {
		score -= 4
	}
	return score
}
