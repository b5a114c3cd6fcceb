package config

import (
	"fmt"
	"net/url"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

func (v Validation) Error() string {
	return "config validation failed:\n- " + strings.Join(v.Errors, "\n- ")
}

// TrimList trims entries, drops blanks and removes case-insensitive
// duplicates while keeping first-seen order.
func TrimList(xs []string) []string {
	seen := map[string]bool{}
	var ys []string
	for _, x := range xs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		key := strings.ToLower(x)
		if seen[key] {
			continue
		}
		seen[key] = true
		ys = append(ys, x)
	}
	return ys
}

// NormalizeAndValidate returns a normalized copy and the problems found.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	out.Scrape.Keywords = TrimList(out.Scrape.Keywords)
	out.Scrape.RegionTerms = TrimList(out.Scrape.RegionTerms)
	out.Sources.Email.SearchSubjectAny = TrimList(out.Sources.Email.SearchSubjectAny)

	if len(out.Scrape.Synonyms) > 0 {
		syn := make(map[string][]string, len(out.Scrape.Synonyms))
		for k, vs := range out.Scrape.Synonyms {
			k = strings.ToLower(strings.TrimSpace(k))
			if k == "" {
				continue
			}
			syn[k] = TrimList(vs)
		}
		out.Scrape.Synonyms = syn
	}

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}
	out.App.CORSOrigins = TrimList(out.App.CORSOrigins)
	if strings.TrimSpace(out.App.APIKey) == "" {
		res.addWarn("app.api_key is empty; every /api request except health is rejected.")
	}

	if len(out.Scrape.Keywords) == 0 {
		res.addErr("scrape.keywords must have at least 1 keyword")
	}
	if len(out.Scrape.RegionTerms) == 0 {
		res.addWarn("scrape.region_terms is empty; every listing will be skipped as not_egypt.")
	}
	if out.Scrape.PerListingTimeoutSeconds <= 0 {
		res.addErr("scrape.per_listing_timeout_seconds must be > 0")
	}
	if out.Scrape.SecondaryRetries < 0 {
		res.addErr("scrape.secondary_retries must be >= 0")
	}
	if out.Scrape.ProgressEvery <= 0 {
		res.addErr("scrape.progress_every must be > 0")
	}
	if out.Scrape.PerSourceTimeoutSeconds <= 0 {
		res.addErr("scrape.per_source_timeout_seconds must be > 0")
	}
	if out.Scrape.RequestsPerSecond <= 0 {
		res.addErr("scrape.requests_per_second must be > 0")
	} else if out.Scrape.RequestsPerSecond > 5 {
		res.addWarn("scrape.requests_per_second is high (%.1f) and may get the engine blocked.", out.Scrape.RequestsPerSecond)
	}

	checkURL := func(name, raw string) {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			res.addErr("%s must be an absolute URL", name)
		}
	}
	if out.Sources.Wuzzuf.Enabled {
		checkURL("sources.wuzzuf.base_url", out.Sources.Wuzzuf.BaseURL)
	}
	if out.Sources.Indeed.Enabled {
		checkURL("sources.indeed.base_url", out.Sources.Indeed.BaseURL)
	}
	if len(out.EnabledSources()) == 0 {
		res.addErr("no sources enabled: enable wuzzuf, indeed or email")
	}

	// password not required here; it lives in the keyring
	if e := out.Sources.Email; e.Enabled {
		if strings.TrimSpace(e.IMAPHost) == "" {
			res.addErr("sources.email.imap_host is required when email is enabled")
		}
		if e.IMAPPort == 0 {
			res.addErr("sources.email.imap_port is required when email is enabled")
		}
		if strings.TrimSpace(e.Username) == "" {
			res.addErr("sources.email.username is required when email is enabled")
		}
		if strings.TrimSpace(e.Mailbox) == "" {
			res.addErr("sources.email.mailbox is required when email is enabled")
		}
		if len(e.SearchSubjectAny) == 0 {
			res.addWarn("sources.email.search_subject_any is empty; email scraping may find nothing.")
		}
	}

	if out.Channels.CallTimeoutSeconds <= 0 {
		res.addErr("channels.call_timeout_seconds must be > 0")
	}
	if out.Channels.Concurrency <= 0 {
		res.addErr("channels.concurrency must be > 0")
	}
	if out.Scheduler.PollSeconds <= 0 {
		res.addErr("scheduler.poll_seconds must be > 0")
	} else if out.Scheduler.PollSeconds > 60 {
		res.addWarn("scheduler.poll_seconds is %d; scheduled runs may start up to that late.", out.Scheduler.PollSeconds)
	}
	if out.Redis.URL != "" && out.Redis.TTLHours <= 0 {
		res.addErr("redis.ttl_hours must be > 0 when redis.url is set")
	}

	return out, res
}
