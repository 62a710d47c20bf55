package domain

import "time"

// RawEducation and RawExperience carry source-extracted field values before
// normalization. Date fields are free-text as scraped.
type RawEducation struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree,omitempty"`
	Field       string `json:"field,omitempty"`
	Years       string `json:"years,omitempty"` // e.g. "2014-2018"
}

type RawExperience struct {
	Company string `json:"company"`
	Title   string `json:"title,omitempty"`
	Start   string `json:"start,omitempty"` // "2021-03", "Mar 2021", "2021"
	End     string `json:"end,omitempty"`   // empty or "present" for current
}

// RawProfile is the data contract discovery/enrichment collaborators hand
// to the core: one source's unprocessed view of a candidate. How it was
// scraped is the collaborator's business.
type RawProfile struct {
	Source      Source          `json:"source"`
	Identity    string          `json:"identity"`
	Name        string          `json:"name,omitempty"`
	Headline    string          `json:"headline,omitempty"`
	Education   []RawEducation  `json:"education,omitempty"`
	Experience  []RawExperience `json:"experience,omitempty"`
	Skills      []string        `json:"skills,omitempty"`
	RawLocation string          `json:"location,omitempty"`
	// Links are same-person URLs the source advertises (a personal site on
	// a LinkedIn profile); they seed further enrichment fetches.
	Links     []string  `json:"links,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// JobSubmission is the caller-facing job description record before parsing.
type JobSubmission struct {
	ID           string   `json:"id,omitempty"`
	Title        string   `json:"title"`
	Company      string   `json:"company"`
	Location     string   `json:"location,omitempty"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements,omitempty"`
	Seniority    string   `json:"seniority,omitempty"`
	CompanyTypes []string `json:"company_types,omitempty"`
	// Tenure bounds in years; zero means no expectation on that side.
	MinTenureYears float64 `json:"min_tenure_years,omitempty"`
	MaxTenureYears float64 `json:"max_tenure_years,omitempty"`
	TopK           int     `json:"top_k,omitempty"`
}
