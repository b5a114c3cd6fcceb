package util

import "strings"

// DefaultLocation is used when a card names no place.
const DefaultLocation = "Egypt"

var egyptCities = []string{
	"cairo", "giza", "alexandria", "new cairo", "6th of october", "sheikh zayed",
	"nasr city", "maadi", "heliopolis", "mansoura", "tanta", "zagazig",
	"ismailia", "port said", "suez", "assiut", "luxor", "aswan", "hurghada",
	"sharm el sheikh", "damietta", "minya", "beni suef", "fayoum", "sohag",
}

// IsEgyptianCity reports whether s names a known Egyptian city.
func IsEgyptianCity(s string) bool {
	low := strings.ToLower(CleanText(s))
	for _, c := range egyptCities {
		if strings.Contains(low, c) {
			return true
		}
	}
	return false
}

// LooksLikeLocation is the card heuristic: "City, Country" text or a
// known city name, and short.
func LooksLikeLocation(s string) bool {
	s = CleanText(s)
	if s == "" || len(s) > 80 {
		return false
	}
	return strings.Contains(s, ",") || IsEgyptianCity(s)
}

// NormalizeLocation dedupes comma parts, appends ", Egypt" to bare
// Egyptian cities and falls back to DefaultLocation.
func NormalizeLocation(loc string) string {
	loc = CleanText(loc)
	loc = strings.TrimPrefix(loc, "Location:")
	loc = strings.TrimSpace(loc)
	if loc == "" {
		return DefaultLocation
	}

	parts := strings.Split(loc, ",")
	seen := map[string]bool{}
	var out []string
	for _, p := range parts {
		p = CleanText(p)
		if p == "" {
			continue
		}
		k := strings.ToLower(p)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	loc = strings.Join(out, ", ")
	if IsEgyptianCity(loc) && !strings.Contains(strings.ToLower(loc), "egypt") {
		loc += ", Egypt"
	}
	return loc
}
