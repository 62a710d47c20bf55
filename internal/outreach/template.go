package outreach

import (
	"fmt"
	"strings"

	"talentscout-engine/internal/domain"
)

// Template is the deterministic fallback message. Plain, factual, built
// only from resolved profile fields.
func Template(req domain.JobRequirement, cand domain.RankedCandidate) string {
	p := cand.Profile

	greeting := "Hi"
	if p.Name != "" {
		greeting = "Hi " + firstName(p.Name)
	}

	hook := "your background"
	switch {
	case len(p.Experience) > 0 && p.Experience[0].Title != "":
		hook = fmt.Sprintf("your experience as %s at %s", p.Experience[0].Title, p.Experience[0].Company)
	case len(p.Experience) > 0:
		hook = fmt.Sprintf("your experience at %s", p.Experience[0].Company)
	case p.Headline != "":
		hook = fmt.Sprintf("your background (%s)", p.Headline)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s,\n\n", greeting)
	fmt.Fprintf(&b, "I came across your profile and was impressed by %s. ", hook)
	if req.Company != "" {
		fmt.Fprintf(&b, "We're hiring a %s at %s and your profile stood out as a strong match. ", req.Title, req.Company)
	} else {
		fmt.Fprintf(&b, "We're hiring a %s and your profile stood out as a strong match. ", req.Title)
	}
	if overlap := skillOverlap(req.RequiredSkills, p.Skills); len(overlap) > 0 {
		fmt.Fprintf(&b, "Your experience with %s lines up directly with what the team needs. ", joinNatural(overlap))
	}
	b.WriteString("Would you be open to a quick chat this week?\n\nBest regards")

	return b.String()
}

func firstName(full string) string {
	if i := strings.IndexByte(full, ' '); i > 0 {
		return full[:i]
	}
	return full
}

func skillOverlap(required, have []string) []string {
	set := map[string]bool{}
	for _, s := range have {
		set[strings.ToLower(s)] = true
	}
	var out []string
	for _, s := range required {
		if set[strings.ToLower(s)] {
			out = append(out, s)
		}
		if len(out) == 3 {
			break
		}
	}
	return out
}

func joinNatural(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
