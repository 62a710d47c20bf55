package domain

// Scoring categories.
const (
	CategoryEducation  = "education"
	CategoryTrajectory = "trajectory"
	CategoryCompany    = "company"
	CategorySkills     = "skills"
	CategoryLocation   = "location"
	CategoryTenure     = "tenure"
)

var Categories = []string{
	CategoryEducation, CategoryTrajectory, CategoryCompany,
	CategorySkills, CategoryLocation, CategoryTenure,
}

// CategoryScore is one rubric category's sub-score on the 0-10 scale.
// Confidence reflects how resolvable the fields feeding the category were;
// Unresolved marks a sub-score computed without any backing fragment data.
type CategoryScore struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Unresolved bool    `json:"unresolved,omitempty"`
}

// FitScore is the weighted composite result for one candidate against one
// requirement. Immutable once computed.
type FitScore struct {
	Identity   string                   `json:"identity"`
	Categories map[string]CategoryScore `json:"categories"`
	Total      float64                  `json:"total"`
	// Confidence measures how much of the profile was resolvable,
	// distinct from the score itself.
	Confidence float64 `json:"confidence"`
}

// Breakdown returns category -> sub-score, for persistence and API output.
func (s FitScore) Breakdown() map[string]float64 {
	out := make(map[string]float64, len(s.Categories))
	for name, c := range s.Categories {
		out[name] = c.Score
	}
	return out
}
