package enrich

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"talentscout-engine/internal/domain"
	"talentscout-engine/internal/normalize"
)

// Per-field source priority. LinkedIn-sourced professional history outranks
// social-media claims; GitHub skill tags outrank self-reported skills.
var (
	historyPriority = map[domain.Source]float64{
		domain.SourceLinkedIn:     1.0,
		domain.SourcePersonalSite: 0.7,
		domain.SourceGitHub:       0.5,
		domain.SourceTwitter:      0.3,
	}
	skillPriority = map[domain.Source]float64{
		domain.SourceGitHub:       1.0,
		domain.SourceLinkedIn:     0.8,
		domain.SourcePersonalSite: 0.6,
		domain.SourceTwitter:      0.3,
	}
	defaultPriority = map[domain.Source]float64{
		domain.SourceLinkedIn:     1.0,
		domain.SourceGitHub:       0.8,
		domain.SourcePersonalSite: 0.6,
		domain.SourceTwitter:      0.4,
	}
)

const (
	// each conflicting fragment beyond the winner's group costs the
	// resolved confidence one step
	disagreementStep = 0.10
	confidenceFloor  = 0.10
	// recency halflife for fragment weight, in days
	recencyHalflifeDays = 180
)

func priorityFor(field string, src domain.Source) float64 {
	var table map[domain.Source]float64
	switch field {
	case domain.FieldExperience, domain.FieldHeadline:
		table = historyPriority
	case domain.FieldSkills:
		table = skillPriority
	default:
		table = defaultPriority
	}
	if p, ok := table[src]; ok {
		return p
	}
	return 0.2
}

// Merge combines normalized fragments believed to belong to one person into
// a single profile. Grouping fragments to a person is the caller's concern;
// Merge trusts its input. The result is deterministic regardless of the
// order fragments arrive in.
func Merge(identity string, frags []domain.SourceFragment, now time.Time) domain.MergedProfile {
	sorted := make([]domain.SourceFragment, len(frags))
	copy(sorted, frags)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Source != sorted[j].Source {
			return sorted[i].Source < sorted[j].Source
		}
		return sorted[i].FetchedAt.Before(sorted[j].FetchedAt)
	})

	p := domain.MergedProfile{
		Identity: identity,
		Fields:   make(map[string]domain.Resolution),
	}

	for _, field := range domain.CanonicalFields {
		var cands []domain.SourceFragment
		for _, f := range sorted {
			if f.Has(field) {
				cands = append(cands, f)
			}
		}
		if len(cands) == 0 {
			continue // unresolved: excluded from scoring inputs, never zero-filled
		}

		if field == domain.FieldSkills {
			mergeSkills(&p, cands, now)
			continue
		}

		winner, res := resolveField(field, cands, now)
		p.Fields[field] = res
		apply(&p, field, winner)
	}

	fillMissingTitles(&p, sorted, now)

	return p
}

// resolveField picks the winning fragment for one field by
// source-priority x field-confidence x recency, groups fragments agreeing
// with it, and discounts the resolved confidence per conflicting group.
func resolveField(field string, cands []domain.SourceFragment, now time.Time) (domain.SourceFragment, domain.Resolution) {
	if len(cands) == 1 {
		f := cands[0]
		return f, domain.Resolution{
			Confidence: f.Confidence[field],
			Sources:    []domain.Source{f.Source},
		}
	}

	groups := make(map[string][]domain.SourceFragment)
	for _, f := range cands {
		k := valueKey(field, f)
		groups[k] = append(groups[k], f)
	}

	winner := cands[0]
	best := weight(field, cands[0], now)
	for _, f := range cands[1:] {
		w := weight(field, f, now)
		switch {
		case w > best:
			winner, best = f, w
		case w == best && f.FetchedAt.After(winner.FetchedAt):
			winner = f
		}
	}

	agreeing := groups[valueKey(field, winner)]
	conflicts := len(groups) - 1

	conf := 0.0
	seen := map[domain.Source]bool{}
	var sources []domain.Source
	for _, f := range agreeing {
		conf = math.Max(conf, f.Confidence[field])
		if !seen[f.Source] {
			seen[f.Source] = true
			sources = append(sources, f.Source)
		}
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	conf *= 1 - disagreementStep*float64(conflicts)
	if conf < confidenceFloor {
		conf = confidenceFloor
	}

	return winner, domain.Resolution{Confidence: conf, Sources: sources, Conflicts: conflicts}
}

func weight(field string, f domain.SourceFragment, now time.Time) float64 {
	return priorityFor(field, f.Source) * f.Confidence[field] * recencyFactor(f.FetchedAt, now)
}

func recencyFactor(fetched, now time.Time) float64 {
	age := now.Sub(fetched)
	if age <= 0 {
		return 1
	}
	days := age.Hours() / 24
	return math.Exp2(-days / recencyHalflifeDays)
}

// mergeSkills unions skill sets rather than picking one: sets supplement
// each other instead of conflicting. Confidence follows the
// highest-priority contributor.
func mergeSkills(p *domain.MergedProfile, cands []domain.SourceFragment, now time.Time) {
	winner := cands[0]
	best := weight(domain.FieldSkills, cands[0], now)
	for _, f := range cands[1:] {
		if w := weight(domain.FieldSkills, f, now); w > best {
			winner, best = f, w
		}
	}

	set := map[string]bool{}
	seen := map[domain.Source]bool{}
	var sources []domain.Source
	for _, f := range cands {
		for _, s := range f.Skills {
			set[s] = true
		}
		if !seen[f.Source] {
			seen[f.Source] = true
			sources = append(sources, f.Source)
		}
	}

	skills := make([]string, 0, len(set))
	for s := range set {
		skills = append(skills, s)
	}
	sort.Strings(skills)
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	p.Skills = skills
	p.Fields[domain.FieldSkills] = domain.Resolution{
		Confidence: winner.Confidence[domain.FieldSkills],
		Sources:    sources,
	}
}

// fillMissingTitles backfills role titles the winning history lacked from
// other fragments carrying the same company, adding their provenance.
func fillMissingTitles(p *domain.MergedProfile, frags []domain.SourceFragment, now time.Time) {
	res, ok := p.Fields[domain.FieldExperience]
	if !ok {
		return
	}

	changed := false
	for i := range p.Experience {
		if p.Experience[i].Title != "" {
			continue
		}
		bestW := 0.0
		var donor domain.Source
		var title string
		for _, f := range frags {
			if !f.Has(domain.FieldExperience) {
				continue
			}
			for _, e := range f.Experience {
				if e.Title == "" || normalize.CompanyKey(e.Company) != normalize.CompanyKey(p.Experience[i].Company) {
					continue
				}
				if w := weight(domain.FieldExperience, f, now); w > bestW {
					bestW, donor, title = w, f.Source, e.Title
				}
			}
		}
		if title != "" {
			p.Experience[i].Title = title
			if !containsSource(res.Sources, donor) {
				res.Sources = append(res.Sources, donor)
				sort.Slice(res.Sources, func(a, b int) bool { return res.Sources[a] < res.Sources[b] })
			}
			changed = true
		}
	}
	if changed {
		p.Fields[domain.FieldExperience] = res
	}
}

func containsSource(ss []domain.Source, s domain.Source) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

func apply(p *domain.MergedProfile, field string, f domain.SourceFragment) {
	switch field {
	case domain.FieldName:
		p.Name = f.Name
	case domain.FieldHeadline:
		p.Headline = f.Headline
	case domain.FieldEducation:
		p.Education = append([]domain.Education(nil), f.Education...)
	case domain.FieldExperience:
		p.Experience = append([]domain.Experience(nil), f.Experience...)
	case domain.FieldLocation:
		loc := *f.Location
		p.Location = &loc
	}
}

// valueKey canonicalizes a field's value so disagreement between fragments
// can be counted.
func valueKey(field string, f domain.SourceFragment) string {
	switch field {
	case domain.FieldName:
		return strings.ToLower(f.Name)
	case domain.FieldHeadline:
		return strings.ToLower(f.Headline)
	case domain.FieldLocation:
		return strings.ToLower(f.Location.City + "|" + f.Location.Region + "|" + f.Location.Country)
	case domain.FieldEducation:
		parts := make([]string, len(f.Education))
		for i, e := range f.Education {
			parts[i] = strings.ToLower(fmt.Sprintf("%s|%s|%d", e.Institution, e.Degree, e.EndYear))
		}
		sort.Strings(parts)
		return strings.Join(parts, ";")
	case domain.FieldExperience:
		parts := make([]string, len(f.Experience))
		for i, e := range f.Experience {
			parts[i] = strings.ToLower(fmt.Sprintf("%s|%s", e.Company, e.Start.Format("2006-01")))
		}
		sort.Strings(parts)
		return strings.Join(parts, ";")
	default:
		return ""
	}
}
