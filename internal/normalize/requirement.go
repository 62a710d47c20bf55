package normalize

import (
	"strings"

	"talentscout-engine/internal/domain"
)

// ParseRequirement turns a submitted job record into an immutable
// JobRequirement. A submission that cannot produce a scorable requirement
// fails with JobParseError and fails only that job.
func ParseRequirement(sub domain.JobSubmission, ladder []string) (domain.JobRequirement, error) {
	title := CleanText(sub.Title)
	desc := CleanText(sub.Description)
	if title == "" {
		return domain.JobRequirement{}, &domain.JobParseError{Reason: "title is required"}
	}
	if desc == "" {
		return domain.JobRequirement{}, &domain.JobParseError{Reason: "description is required"}
	}

	var skills []string
	for _, r := range sub.Requirements {
		r = CleanText(r)
		// requirement bullets longer than a phrase are prose, not skills
		if r == "" || len(r) >= 40 {
			continue
		}
		skills = append(skills, r)
	}
	skills = NormalizeSkills(skills)
	if len(skills) == 0 {
		return domain.JobRequirement{}, &domain.JobParseError{Reason: "no required skills could be extracted"}
	}

	if sub.MinTenureYears < 0 || sub.MaxTenureYears < 0 {
		return domain.JobRequirement{}, &domain.JobParseError{Reason: "tenure bounds must not be negative"}
	}
	if sub.MaxTenureYears > 0 && sub.MaxTenureYears < sub.MinTenureYears {
		return domain.JobRequirement{}, &domain.JobParseError{Reason: "max tenure below min tenure"}
	}

	req := domain.JobRequirement{
		ID:             CleanText(sub.ID),
		Title:          title,
		Company:        CleanText(sub.Company),
		Description:    desc,
		RequiredSkills: skills,
		CompanyTypes:   NormalizeSkills(sub.CompanyTypes),
		Remote:         InferRemoteFromText(sub.Location, sub.Title, sub.Description),
		MinTenureYears: sub.MinTenureYears,
		MaxTenureYears: sub.MaxTenureYears,
		TopK:           sub.TopK,
	}

	if req.ID == "" {
		req.ID = strings.ToLower(strings.ReplaceAll(title, " ", "-"))
	}

	for _, part := range strings.FieldsFunc(sub.Location, func(r rune) bool {
		return r == '/' || r == ';' || r == '|'
	}) {
		part = CleanText(part)
		if part == "" || strings.EqualFold(part, "remote") {
			continue
		}
		req.Locations = append(req.Locations, part)
	}

	req.Seniority = CleanText(strings.ToLower(sub.Seniority))
	if req.Seniority == "" {
		req.Seniority = inferSeniority(title, ladder)
	}

	return req, nil
}

// inferSeniority picks the highest ladder rung mentioned in the title.
func inferSeniority(title string, ladder []string) string {
	low := strings.ToLower(title)
	best := ""
	for _, rung := range ladder {
		if strings.Contains(low, strings.ToLower(rung)) {
			best = strings.ToLower(rung)
		}
	}
	return best
}
