package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// weightSumTolerance absorbs float literals like 0.20+0.15 not summing to
// exactly 1.0.
const weightSumTolerance = 1e-6

// NormalizeAndValidate returns a normalized copy plus everything wrong or
// suspicious with it. Errors are fatal at startup.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Scoring.Tables.EliteInstitutions = trimList(out.Scoring.Tables.EliteInstitutions)
	out.Scoring.Tables.StrongInstitutions = trimList(out.Scoring.Tables.StrongInstitutions)
	out.Scoring.Tables.SeniorityLadder = trimList(out.Scoring.Tables.SeniorityLadder)
	for tier, names := range out.Scoring.Tables.CompanyTiers {
		out.Scoring.Tables.CompanyTiers[tier] = trimList(names)
	}

	// ---- Validation rules ----

	w := out.Scoring.Weights
	sum := w.Sum()
	if sum < 1.0-weightSumTolerance || sum > 1.0+weightSumTolerance {
		res.addErr("scoring.weights must sum to 1.0 (got %.4f)", sum)
	}
	for name, v := range map[string]float64{
		"education": w.Education, "trajectory": w.Trajectory, "company": w.Company,
		"skills": w.Skills, "location": w.Location, "tenure": w.Tenure,
	} {
		if v < 0 {
			res.addErr("scoring.weights.%s must be >= 0", name)
		}
	}

	if out.Cache.FreshnessSeconds <= 0 {
		res.addErr("cache.freshness_seconds must be > 0")
	}
	if out.Cache.MaxEntries <= 0 {
		res.addErr("cache.max_entries must be > 0")
	}

	if out.Concurrency.JobWorkers <= 0 {
		res.addErr("concurrency.job_workers must be > 0")
	}
	if out.Concurrency.GlobalFetchCap <= 0 {
		res.addErr("concurrency.global_fetch_cap must be > 0")
	}
	if out.Concurrency.ScoringWorkers <= 0 {
		res.addErr("concurrency.scoring_workers must be > 0")
	}

	if out.Retry.MaxAttempts < 1 {
		res.addErr("retry.max_attempts must be >= 1")
	}
	if out.Retry.InitialBackoffMS <= 0 {
		res.addErr("retry.initial_backoff_ms must be > 0")
	}
	if out.Retry.MaxBackoffMS < out.Retry.InitialBackoffMS {
		res.addErr("retry.max_backoff_ms must be >= retry.initial_backoff_ms")
	}

	if out.Output.TopK <= 0 {
		res.addErr("output.top_k must be > 0")
	}

	checkSource := func(name string, sc SourceConfig) {
		if !sc.Enabled {
			return
		}
		if sc.RequestsPerSec <= 0 {
			res.addErr("sources.%s.requests_per_sec must be > 0", name)
		}
		if sc.Burst <= 0 {
			res.addErr("sources.%s.burst must be > 0", name)
		}
		if sc.Prior <= 0 || sc.Prior > 1 {
			res.addErr("sources.%s.prior must be in (0,1]", name)
		}
	}
	checkSource("linkedin", out.Sources.LinkedIn)
	checkSource("github", out.Sources.GitHub)
	checkSource("twitter", out.Sources.Twitter)
	checkSource("personal_site", out.Sources.PersonalSite)

	if !out.Sources.LinkedIn.Enabled {
		res.addWarn("sources.linkedin is disabled; discovery will find no candidates")
	}
	if len(out.Scoring.Tables.SeniorityLadder) < 2 {
		res.addWarn("scoring.tables.seniority_ladder has fewer than 2 rungs; trajectory scoring will be flat")
	}
	if out.Concurrency.GlobalFetchCap > 50 {
		res.addWarn("concurrency.global_fetch_cap is very high (%d) and may trip source rate limits", out.Concurrency.GlobalFetchCap)
	}

	return out, res
}
