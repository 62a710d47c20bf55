package rank

import (
	"math"
	"strings"
	"time"

	"talentscout-engine/internal/config"
	"talentscout-engine/internal/domain"
	"talentscout-engine/internal/normalize"
)

// Prestige bucket midpoints for the education category.
const (
	eliteMidpoint    = 9.5
	strongMidpoint   = 7.5
	standardMidpoint = 5.5
	unrankedMidpoint = 2.5
)

const neutralScore = 5.0

// RubricScorer computes the weighted six-category fit score from the
// configured rubric tables. Pure: no external calls, no clock reads beyond
// the injected now.
type RubricScorer struct {
	weights config.Weights

	elite    map[string]bool
	strong   map[string]bool
	synonyms map[string]string // alias -> canonical skill
	metroOf  map[string]int    // lowercase city -> metro group
	ladder   map[string]int    // seniority word -> rung
	tiers    map[string]map[string]bool // tier -> company keys

	// now anchors tenure of current roles; injected for determinism.
	now func() time.Time
}

func NewRubricScorer(w config.Weights, t config.Tables) *RubricScorer {
	s := &RubricScorer{
		weights:  w,
		elite:    map[string]bool{},
		strong:   map[string]bool{},
		synonyms: map[string]string{},
		metroOf:  map[string]int{},
		ladder:   map[string]int{},
		tiers:    map[string]map[string]bool{},
		now:      time.Now,
	}
	for _, inst := range t.EliteInstitutions {
		s.elite[strings.ToLower(inst)] = true
	}
	for _, inst := range t.StrongInstitutions {
		s.strong[strings.ToLower(inst)] = true
	}
	for canonical, aliases := range t.SkillSynonyms {
		canonical = normalize.NormalizeSkill(canonical)
		s.synonyms[canonical] = canonical
		for _, a := range aliases {
			s.synonyms[normalize.NormalizeSkill(a)] = canonical
		}
	}
	for i, group := range t.MetroGroups {
		for _, city := range group {
			s.metroOf[strings.ToLower(city)] = i
		}
	}
	for i, rung := range t.SeniorityLadder {
		s.ladder[strings.ToLower(rung)] = i
	}
	for tier, names := range t.CompanyTiers {
		set := map[string]bool{}
		for _, n := range names {
			set[normalize.CompanyKey(n)] = true
		}
		s.tiers[strings.ToLower(tier)] = set
	}
	return s
}

// Score computes the fit of one merged profile against one requirement.
// Every sub-score stays in [0,10]. A category built on unresolved fields
// keeps a best-effort sub-score but contributes zero confidence; only when
// all six categories are unresolved does scoring fail.
func (s *RubricScorer) Score(p domain.MergedProfile, req domain.JobRequirement) (domain.FitScore, error) {
	cats := map[string]domain.CategoryScore{
		domain.CategoryEducation:  s.education(p, req),
		domain.CategoryTrajectory: s.trajectory(p),
		domain.CategoryCompany:    s.companyRelevance(p, req),
		domain.CategorySkills:     s.skillMatch(p, req),
		domain.CategoryLocation:   s.location(p, req),
		domain.CategoryTenure:     s.tenure(p, req),
	}

	unresolved := 0
	for _, c := range cats {
		if c.Unresolved {
			unresolved++
		}
	}
	if unresolved == len(cats) {
		return domain.FitScore{}, &domain.InsufficientDataError{Identity: p.Identity}
	}

	w := map[string]float64{
		domain.CategoryEducation:  s.weights.Education,
		domain.CategoryTrajectory: s.weights.Trajectory,
		domain.CategoryCompany:    s.weights.Company,
		domain.CategorySkills:     s.weights.Skills,
		domain.CategoryLocation:   s.weights.Location,
		domain.CategoryTenure:     s.weights.Tenure,
	}

	// fixed iteration order keeps float accumulation bit-identical per input
	var total, confidence float64
	for _, name := range domain.Categories {
		c := cats[name]
		total += w[name] * c.Score
		confidence += w[name] * c.Confidence
	}

	return domain.FitScore{
		Identity:   p.Identity,
		Categories: cats,
		Total:      clamp(total, 0, 10),
		Confidence: clamp(confidence, 0, 1),
	}, nil
}

func (s *RubricScorer) education(p domain.MergedProfile, req domain.JobRequirement) domain.CategoryScore {
	if !p.Resolved(domain.FieldEducation) || len(p.Education) == 0 {
		return domain.CategoryScore{Score: neutralScore, Unresolved: true}
	}

	best := 0.0
	for _, e := range p.Education {
		inst := strings.ToLower(e.Institution)
		var score float64
		switch {
		case s.elite[inst]:
			score = eliteMidpoint
		case s.strong[inst]:
			score = strongMidpoint
		case inst != "":
			score = standardMidpoint
		default:
			score = unrankedMidpoint
		}
		if s.degreeRelevant(e, req) {
			score++
		}
		best = math.Max(best, score)
	}

	return domain.CategoryScore{
		Score:      clamp(best, 0, 10),
		Confidence: p.FieldConfidence(domain.FieldEducation),
	}
}

// degreeRelevant checks the degree's field of study against the
// requirement's skills and title words.
func (s *RubricScorer) degreeRelevant(e domain.Education, req domain.JobRequirement) bool {
	field := strings.ToLower(e.Field + " " + e.Degree)
	if field == " " {
		return false
	}
	for _, skill := range req.RequiredSkills {
		if strings.Contains(field, skill) {
			return true
		}
	}
	for _, word := range strings.Fields(strings.ToLower(req.Title)) {
		if len(word) > 3 && strings.Contains(field, word) {
			return true
		}
	}
	return false
}

func (s *RubricScorer) trajectory(p domain.MergedProfile) domain.CategoryScore {
	if !p.Resolved(domain.FieldExperience) || len(p.Experience) == 0 {
		return domain.CategoryScore{Score: neutralScore, Unresolved: true}
	}
	conf := p.FieldConfidence(domain.FieldExperience)

	// ranks in chronological order (history is stored most recent first)
	type step struct {
		rank  int
		start time.Time
	}
	var steps []step
	for i := len(p.Experience) - 1; i >= 0; i-- {
		e := p.Experience[i]
		if r, ok := s.titleRank(e.Title); ok {
			steps = append(steps, step{rank: r, start: e.Start})
		}
	}
	if len(steps) < 2 {
		// a single ranked role says nothing about direction
		return domain.CategoryScore{Score: neutralScore, Confidence: conf * 0.5}
	}

	ups, downs := 0, 0
	var gaps []float64
	lastPromotion := steps[0].start
	for i := 1; i < len(steps); i++ {
		switch {
		case steps[i].rank > steps[i-1].rank:
			ups++
			if !steps[i].start.IsZero() && !lastPromotion.IsZero() {
				gaps = append(gaps, steps[i].start.Sub(lastPromotion).Hours())
			}
			lastPromotion = steps[i].start
		case steps[i].rank < steps[i-1].rank:
			downs++
		}
	}

	var score float64
	switch {
	case downs == 0 && ups > 0:
		score = 6 + math.Min(2, float64(ups))
		if len(gaps) >= 2 && gaps[len(gaps)-1] < gaps[0] {
			score++ // promotions arriving faster
		}
	case ups == 0 && downs == 0:
		score = 4 // stagnant
	case downs > ups:
		score = 3
	default:
		score = 5
	}

	return domain.CategoryScore{Score: clamp(score, 0, 10), Confidence: conf}
}

func (s *RubricScorer) titleRank(title string) (int, bool) {
	low := strings.ToLower(title)
	best, found := 0, false
	for word, rank := range s.ladder {
		if strings.Contains(low, word) && (!found || rank > best) {
			best, found = rank, true
		}
	}
	return best, found
}

func (s *RubricScorer) companyRelevance(p domain.MergedProfile, req domain.JobRequirement) domain.CategoryScore {
	if !p.Resolved(domain.FieldExperience) || len(p.Experience) == 0 {
		return domain.CategoryScore{Score: neutralScore, Unresolved: true}
	}

	preferred := map[string]bool{}
	for _, t := range req.CompanyTypes {
		preferred[strings.ToLower(t)] = true
	}

	best := 0.0
	for i, e := range p.Experience {
		key := normalize.CompanyKey(e.Company)

		var rel float64
		switch {
		case len(preferred) > 0 && s.inPreferredTier(key, preferred):
			rel = 10
		case len(preferred) > 0 && s.inAnyTier(key):
			rel = 6
		case len(preferred) == 0 && s.inAnyTier(key):
			rel = 8
		default:
			rel = 4
		}

		// weight toward the most recent two roles
		if i >= 2 {
			rel *= 0.6
		}
		best = math.Max(best, rel)
	}

	return domain.CategoryScore{
		Score:      clamp(best, 0, 10),
		Confidence: p.FieldConfidence(domain.FieldExperience),
	}
}

func (s *RubricScorer) inPreferredTier(companyKey string, preferred map[string]bool) bool {
	for tier, members := range s.tiers {
		if preferred[tier] && members[companyKey] {
			return true
		}
	}
	return false
}

func (s *RubricScorer) inAnyTier(companyKey string) bool {
	for _, members := range s.tiers {
		if members[companyKey] {
			return true
		}
	}
	return false
}

func (s *RubricScorer) skillMatch(p domain.MergedProfile, req domain.JobRequirement) domain.CategoryScore {
	if !p.Resolved(domain.FieldSkills) || len(p.Skills) == 0 {
		return domain.CategoryScore{Score: neutralScore, Unresolved: true}
	}
	if len(req.RequiredSkills) == 0 {
		return domain.CategoryScore{Score: neutralScore, Confidence: p.FieldConfidence(domain.FieldSkills)}
	}

	have := map[string]bool{}
	for _, sk := range p.Skills {
		have[s.canonicalSkill(sk)] = true
	}

	credit := 0.0
	for _, want := range req.RequiredSkills {
		cw := s.canonicalSkill(want)
		if have[cw] {
			credit++
			continue
		}
		// partial credit for adjacent skills (token containment)
		for h := range have {
			if strings.Contains(h, cw) || strings.Contains(cw, h) {
				credit += 0.5
				break
			}
		}
	}

	score := 10 * credit / float64(len(req.RequiredSkills))
	return domain.CategoryScore{
		Score:      clamp(score, 0, 10),
		Confidence: p.FieldConfidence(domain.FieldSkills),
	}
}

func (s *RubricScorer) canonicalSkill(skill string) string {
	skill = normalize.NormalizeSkill(skill)
	if c, ok := s.synonyms[skill]; ok {
		return c
	}
	return skill
}

// Location tier values.
const (
	locExactCity  = 10.0
	locLaterCity  = 9.0
	locSameMetro  = 8.0
	locRemote     = 6.0
	locSameRegion = 5.0
	locCountry    = 4.0
	locMismatch   = 2.0
)

func (s *RubricScorer) location(p domain.MergedProfile, req domain.JobRequirement) domain.CategoryScore {
	if !p.Resolved(domain.FieldLocation) || p.Location == nil {
		// A remote requirement is compatible with any candidate location,
		// resolved or not; the unresolved flag still pulls confidence down.
		score := neutralScore
		if req.Remote {
			score = locRemote
		}
		return domain.CategoryScore{Score: score, Unresolved: true}
	}

	conf := p.FieldConfidence(domain.FieldLocation)
	city := strings.ToLower(p.Location.City)

	for i, target := range req.Locations {
		t := strings.ToLower(normalize.CleanText(target))
		if t == city {
			if i == 0 {
				return domain.CategoryScore{Score: locExactCity, Confidence: conf}
			}
			return domain.CategoryScore{Score: locLaterCity, Confidence: conf}
		}
		if g, ok := s.metroOf[city]; ok {
			if tg, tok := s.metroOf[t]; tok && g == tg {
				return domain.CategoryScore{Score: locSameMetro, Confidence: conf}
			}
		}
	}

	if req.Remote {
		return domain.CategoryScore{Score: locRemote, Confidence: conf}
	}

	// distance tiers without geo data: fall back to region/country matches
	for _, target := range req.Locations {
		t := strings.ToLower(target)
		if p.Location.Region != "" && strings.Contains(t, strings.ToLower(p.Location.Region)) {
			return domain.CategoryScore{Score: locSameRegion, Confidence: conf}
		}
		if p.Location.Country != "" && strings.Contains(t, strings.ToLower(p.Location.Country)) {
			return domain.CategoryScore{Score: locCountry, Confidence: conf}
		}
	}

	return domain.CategoryScore{Score: locMismatch, Confidence: conf}
}

func (s *RubricScorer) tenure(p domain.MergedProfile, req domain.JobRequirement) domain.CategoryScore {
	if !p.Resolved(domain.FieldExperience) || len(p.Experience) == 0 {
		return domain.CategoryScore{Score: neutralScore, Unresolved: true}
	}
	conf := p.FieldConfidence(domain.FieldExperience)

	now := s.now()
	var years []float64
	for _, e := range p.Experience {
		if e.Start.IsZero() {
			continue
		}
		years = append(years, e.Tenure(now).Hours()/(24*365))
	}
	if len(years) == 0 {
		return domain.CategoryScore{Score: neutralScore, Unresolved: true}
	}

	sum := 0.0
	for _, y := range years {
		sum += y
	}
	avg := sum / float64(len(years))

	var score float64
	switch {
	case avg >= 2 && avg <= 3:
		score = 9.5
	case avg > 3:
		score = 8
	case avg >= 1:
		score = 7
	default:
		score = 4 // job-hopping pattern
	}

	if req.MinTenureYears > 0 && avg < req.MinTenureYears {
		score = math.Min(score, 6)
	}
	if req.MaxTenureYears > 0 && avg > req.MaxTenureYears {
		score = math.Min(score, 7)
	}

	if len(years) == 1 {
		// single-role candidates: reduced confidence, not a numeric penalty
		conf *= 0.5
	}

	return domain.CategoryScore{Score: clamp(score, 0, 10), Confidence: conf}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
