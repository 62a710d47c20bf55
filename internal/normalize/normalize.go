package normalize

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"talentscout-engine/internal/domain"
)

// Confidence discounts applied when normalization had to guess.
const (
	fuzzyCompanyDiscount = 0.85
	partialDateDiscount  = 0.90
	fallbackPrior        = 0.50
)

// Normalizer converts raw per-source payloads into canonical fragments.
// Deterministic and side-effect free: the same payload always yields the
// same fragment.
type Normalizer struct {
	priors    map[domain.Source]float64
	companies *CompanyIndex
}

func New(priors map[domain.Source]float64, companies *CompanyIndex) *Normalizer {
	return &Normalizer{priors: priors, companies: companies}
}

// Fragment normalizes one raw payload. Unparseable fields are omitted from
// both the fragment and its confidence map, never defaulted.
func (n *Normalizer) Fragment(raw domain.RawProfile) domain.SourceFragment {
	prior := n.priors[raw.Source]
	if prior <= 0 {
		prior = fallbackPrior
	}

	frag := domain.SourceFragment{
		Source:     raw.Source,
		Identity:   raw.Identity,
		FetchedAt:  raw.FetchedAt,
		Confidence: make(map[string]float64),
	}

	if name := CleanText(raw.Name); name != "" {
		frag.Name = name
		frag.Confidence[domain.FieldName] = prior
	}
	if headline := CleanText(raw.Headline); headline != "" {
		frag.Headline = headline
		frag.Confidence[domain.FieldHeadline] = prior
	}

	if edu, conf := n.education(raw.Education, prior); len(edu) > 0 {
		frag.Education = edu
		frag.Confidence[domain.FieldEducation] = conf
	}
	if exp, conf := n.experience(raw.Experience, prior); len(exp) > 0 {
		frag.Experience = exp
		frag.Confidence[domain.FieldExperience] = conf
	}

	if skills := NormalizeSkills(raw.Skills); len(skills) > 0 {
		frag.Skills = skills
		frag.Confidence[domain.FieldSkills] = prior
	}

	if loc := ParseLocation(raw.RawLocation); loc != nil {
		frag.Location = loc
		frag.Confidence[domain.FieldLocation] = prior
	}

	return frag
}

func (n *Normalizer) education(raws []domain.RawEducation, prior float64) ([]domain.Education, float64) {
	conf := prior
	var out []domain.Education
	for _, r := range raws {
		inst := CleanText(r.Institution)
		if inst == "" {
			continue
		}
		e := domain.Education{
			Institution: inst,
			Degree:      CleanText(r.Degree),
			Field:       CleanText(r.Field),
		}
		if start, end, ok := parseYearRange(r.Years); ok {
			e.StartYear, e.EndYear = start, end
		} else if CleanText(r.Years) != "" {
			conf *= partialDateDiscount
		}
		out = append(out, e)
	}
	return out, conf
}

func (n *Normalizer) experience(raws []domain.RawExperience, prior float64) ([]domain.Experience, float64) {
	conf := prior
	var out []domain.Experience
	for _, r := range raws {
		company := CleanText(r.Company)
		if company == "" {
			continue
		}
		if canonical, exact, known := n.companies.Canonical(company); known {
			company = canonical
			if !exact {
				conf *= fuzzyCompanyDiscount
			}
		}

		e := domain.Experience{Company: company, Title: CleanText(r.Title)}
		if start, ok := parseMonth(r.Start); ok {
			e.Start = start
		} else if CleanText(r.Start) != "" {
			conf *= partialDateDiscount
		}
		if isCurrent(r.End) {
			// zero End marks a current role
		} else if end, ok := parseMonth(r.End); ok {
			e.End = end
		} else if CleanText(r.End) != "" {
			conf *= partialDateDiscount
		}
		out = append(out, e)
	}

	// Canonical order: most recent first, current roles ahead of ended ones.
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		aCur, bCur := a.End.IsZero() && !a.Start.IsZero(), b.End.IsZero() && !b.Start.IsZero()
		if aCur != bCur {
			return aCur
		}
		if !a.End.Equal(b.End) {
			return a.End.After(b.End)
		}
		return a.Start.After(b.Start)
	})

	return out, conf
}

func isCurrent(s string) bool {
	s = strings.ToLower(CleanText(s))
	return s == "" || s == "present" || s == "current" || s == "now"
}

var monthLayouts = []string{"2006-01-02", "2006-01", "Jan 2006", "January 2006", "2006"}

func parseMonth(s string) (time.Time, bool) {
	s = CleanText(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseYearRange handles "2014-2018", "2014 - 2018" and a lone "2018".
func parseYearRange(s string) (start, end int, ok bool) {
	s = CleanText(s)
	if s == "" {
		return 0, 0, false
	}
	parts := strings.SplitN(strings.ReplaceAll(s, " ", ""), "-", 2)
	start, err := strconv.Atoi(parts[0])
	if err != nil || start < 1900 || start > 2200 {
		return 0, 0, false
	}
	if len(parts) == 1 {
		return start, start, true
	}
	end, err = strconv.Atoi(parts[1])
	if err != nil || end < start {
		return start, 0, true
	}
	return start, end, true
}
