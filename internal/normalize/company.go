package normalize

import "strings"

// corporate suffixes stripped before approximate matching.
var companySuffixes = []string{
	"incorporated", "inc", "corporation", "corp", "llc", "ltd", "limited",
	"co", "gmbh", "technologies", "labs",
}

// CompanyIndex maps free-text company names onto known canonical entities.
type CompanyIndex struct {
	byKey map[string]string // normalized key -> canonical name
}

func NewCompanyIndex(tiers map[string][]string) *CompanyIndex {
	idx := &CompanyIndex{byKey: make(map[string]string)}
	for _, names := range tiers {
		for _, name := range names {
			idx.byKey[CompanyKey(name)] = name
		}
	}
	return idx
}

// Canonical resolves a raw company name. exact is false when the match
// required stripping suffixes or other normalization, which costs the
// caller confidence.
func (idx *CompanyIndex) Canonical(raw string) (canonical string, exact bool, ok bool) {
	cleaned := CleanText(raw)
	if cleaned == "" {
		return "", false, false
	}
	canonical, ok = idx.byKey[CompanyKey(cleaned)]
	if !ok {
		return cleaned, false, false
	}
	return canonical, canonical == cleaned, true
}

// CompanyKey normalizes a company name for approximate comparison:
// lowercased, punctuation removed, trailing corporate suffixes stripped.
func CompanyKey(name string) string {
	s := strings.ToLower(CleanText(name))
	s = strings.NewReplacer(".", "", ",", "", "'", "").Replace(s)
	words := strings.Fields(s)
	for len(words) > 1 {
		last := words[len(words)-1]
		stripped := false
		for _, suf := range companySuffixes {
			if last == suf {
				words = words[:len(words)-1]
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}
	return strings.Join(words, " ")
}
