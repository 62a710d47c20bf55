package domain

import "time"

// JobRequirement is a parsed job description. Immutable for a pipeline run.
type JobRequirement struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Company        string   `json:"company"`
	Description    string   `json:"description"`
	RequiredSkills []string `json:"required_skills"`
	Seniority      string   `json:"seniority,omitempty"`
	// Locations is preference-ordered: earlier entries weigh more.
	Locations      []string `json:"locations,omitempty"`
	Remote         bool     `json:"remote"`
	CompanyTypes   []string `json:"company_types,omitempty"`
	MinTenureYears float64  `json:"min_tenure_years,omitempty"`
	MaxTenureYears float64  `json:"max_tenure_years,omitempty"`
	// TopK overrides the configured result count when positive.
	TopK int `json:"top_k,omitempty"`
}

type JobState string

const (
	JobQueued      JobState = "queued"
	JobDiscovering JobState = "discovering"
	JobEnriching   JobState = "enriching"
	JobScoring     JobState = "scoring"
	JobRanking     JobState = "ranking"
	JobDone        JobState = "done"
	JobFailed      JobState = "failed"
)

func (s JobState) Terminal() bool { return s == JobDone || s == JobFailed }

// RankedCandidate pairs a profile with its score and, once generated,
// its outreach message.
type RankedCandidate struct {
	Profile  MergedProfile `json:"profile"`
	Score    FitScore      `json:"score"`
	Outreach string        `json:"outreach,omitempty"`
}

// BatchJob is one job description's pipeline run.
type BatchJob struct {
	ID          string          `json:"id"`
	Requirement JobRequirement  `json:"requirement"`
	State       JobState        `json:"state"`
	Profiles    []MergedProfile `json:"-"`
	// Ranked is the full descending ranking; Top is the truncated slice
	// handed to outreach generation.
	Ranked        []RankedCandidate `json:"ranked,omitempty"`
	Top           []RankedCandidate `json:"top_candidates,omitempty"`
	FailureReason string            `json:"failure_reason,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	FinishedAt    time.Time         `json:"finished_at,omitempty"`
}
