package domain

import "time"

// Source identifies where a fragment was fetched from.
type Source string

const (
	SourceLinkedIn     Source = "linkedin"
	SourceGitHub       Source = "github"
	SourceTwitter      Source = "twitter"
	SourcePersonalSite Source = "personal_site"
)

// Canonical field keys shared by the normalizer, merger and scorer.
const (
	FieldName       = "name"
	FieldHeadline   = "headline"
	FieldEducation  = "education"
	FieldExperience = "experience"
	FieldSkills     = "skills"
	FieldLocation   = "location"
)

// Fields in merge/score order.
var CanonicalFields = []string{
	FieldName, FieldHeadline, FieldEducation, FieldExperience, FieldSkills, FieldLocation,
}

type Education struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	Field       string `json:"field"`
	StartYear   int    `json:"start_year,omitempty"`
	EndYear     int    `json:"end_year,omitempty"`
}

// Experience is one role in a candidate's company history.
// End is zero for a current role.
type Experience struct {
	Company string    `json:"company"`
	Title   string    `json:"title"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end,omitempty"`
}

// Tenure reports the role's length, using now for current roles.
func (e Experience) Tenure(now time.Time) time.Duration {
	end := e.End
	if end.IsZero() {
		end = now
	}
	if end.Before(e.Start) {
		return 0
	}
	return end.Sub(e.Start)
}

type Location struct {
	City    string `json:"city"`
	Region  string `json:"region,omitempty"`
	Country string `json:"country,omitempty"`
}

// SourceFragment is one source's normalized view of a candidate.
// Fragments are immutable once created; a re-fetch produces a new one.
// Confidence holds per-field extraction certainty in [0,1]; a field absent
// from the map was not parseable from this source.
type SourceFragment struct {
	Source     Source             `json:"source"`
	Identity   string             `json:"identity"`
	Name       string             `json:"name,omitempty"`
	Headline   string             `json:"headline,omitempty"`
	Education  []Education        `json:"education,omitempty"`
	Experience []Experience       `json:"experience,omitempty"`
	Skills     []string           `json:"skills,omitempty"`
	Location   *Location          `json:"location,omitempty"`
	Confidence map[string]float64 `json:"confidence"`
	FetchedAt  time.Time          `json:"fetched_at"`
}

// Has reports whether the fragment supplies the given canonical field.
func (f *SourceFragment) Has(field string) bool {
	_, ok := f.Confidence[field]
	return ok
}

// Resolution carries the provenance of one merged field.
type Resolution struct {
	Confidence float64  `json:"confidence"`
	Sources    []Source `json:"sources"`
	Conflicts  int      `json:"conflicts,omitempty"`
}

// MergedProfile is the canonical, conflict-resolved candidate record.
// Fields holds a Resolution per resolved field only; absent keys are
// unresolved and must be excluded from scoring inputs.
type MergedProfile struct {
	Identity   string                `json:"identity"`
	Name       string                `json:"name,omitempty"`
	Headline   string                `json:"headline,omitempty"`
	Education  []Education           `json:"education,omitempty"`
	Experience []Experience          `json:"experience,omitempty"`
	Skills     []string              `json:"skills,omitempty"`
	Location   *Location             `json:"location,omitempty"`
	Fields     map[string]Resolution `json:"fields"`
}

func (p *MergedProfile) Resolved(field string) bool {
	_, ok := p.Fields[field]
	return ok
}

// FieldConfidence returns the resolved confidence, 0 for unresolved fields.
func (p *MergedProfile) FieldConfidence(field string) float64 {
	return p.Fields[field].Confidence
}
