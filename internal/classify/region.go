package classify

import "strings"

// Region accepts locations naming any of its terms.
type Region struct {
	terms []string
}

func NewRegion(terms []string) Region {
	r := Region{}
	for _, t := range terms {
		if t = Normalize(strings.TrimSpace(t)); t != "" {
			r.terms = append(r.terms, t)
		}
	}
	return r
}

func (r Region) Match(location string) bool {
	loc := Normalize(location)
	if loc == "" {
		return false
	}
	for _, t := range r.terms {
		if strings.Contains(loc, t) {
			return true
		}
	}
	return false
}
