package classify

import (
	"net/url"
	"sort"
	"strings"
)

// CanonicalLink normalizes a listing URL into its dedup key. It returns ""
// when raw is not an absolute http(s) URL.
func CanonicalLink(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") ||
			lk == "gclid" || lk == "fbclid" || lk == "msclkid" ||
			lk == "mc_cid" || lk == "mc_eid" ||
			lk == "mkt_tok" {
			q.Del(k)
		}
	}

	switch {
	case strings.HasSuffix(u.Host, "wuzzuf.net"):
		// job pages are identified by path alone; the query is search context
		q = url.Values{}
	case strings.Contains(u.Host, "indeed."):
		keep := url.Values{}
		if v := q.Get("jk"); v != "" {
			keep.Set("jk", v)
		}
		q = keep
	}

	for k := range q {
		vals := q[k]
		sort.Strings(vals)
		q[k] = vals
	}
	u.RawQuery = q.Encode()
	u.ForceQuery = false

	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u.String()
}
