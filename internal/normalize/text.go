package normalize

import (
	"strings"

	"talentscout-engine/internal/domain"
)

func CleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

// ParseLocation splits a free-text location into city/region/country.
// Returns nil when nothing parseable remains.
func ParseLocation(raw string) *domain.Location {
	raw = CleanText(raw)
	raw = strings.TrimPrefix(raw, "Location:")
	raw = CleanText(raw)
	if raw == "" {
		return nil
	}

	var parts []string
	for _, p := range strings.Split(raw, ",") {
		p = CleanText(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return nil
	}

	loc := &domain.Location{City: parts[0]}
	if len(parts) > 1 {
		loc.Region = parts[1]
	}
	if len(parts) > 2 {
		loc.Country = parts[2]
	}
	return loc
}

// InferRemoteFromText detects a remote-compatible requirement from the
// location line plus description.
func InferRemoteFromText(location, title, desc string) bool {
	blob := strings.ToLower(strings.Join([]string{location, title, desc}, " "))
	return strings.Contains(blob, "remote")
}

// NormalizeSkill lowercases and trims one skill token.
func NormalizeSkill(s string) string {
	return strings.ToLower(CleanText(s))
}

// NormalizeSkills dedupes and canonicalizes a skill list, preserving first
// occurrence order.
func NormalizeSkills(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		s = NormalizeSkill(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
