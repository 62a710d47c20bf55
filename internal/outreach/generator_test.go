package outreach

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"talentscout-engine/internal/domain"
)

type stubContent struct {
	response string
	err      error
	prompts  []string
}

func (s *stubContent) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func candidate() domain.RankedCandidate {
	return domain.RankedCandidate{
		Profile: domain.MergedProfile{
			Identity: "linkedin:jane-doe",
			Name:     "Jane Doe",
			Headline: "Staff Engineer",
			Skills:   []string{"go", "python"},
			Experience: []domain.Experience{
				{Company: "Acme Inc", Title: "Staff Engineer"},
			},
		},
		Score: domain.FitScore{
			Total:      8.2,
			Confidence: 0.85,
			Categories: map[string]domain.CategoryScore{
				domain.CategorySkills:   {Score: 9.0, Confidence: 0.9},
				domain.CategoryLocation: {Score: 6.0, Unresolved: true},
			},
		},
	}
}

func requirement() domain.JobRequirement {
	return domain.JobRequirement{
		Title:          "Senior Backend Engineer",
		Company:        "Initech",
		RequiredSkills: []string{"go", "python"},
	}
}

func TestGenerateUsesModelOutput(t *testing.T) {
	stub := &stubContent{response: "Hi Jane, quick note about a role."}
	g := &Generator{gen: stub, log: zap.NewNop()}

	msg, err := g.Generate(context.Background(), requirement(), candidate())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if msg != "Hi Jane, quick note about a role." {
		t.Fatalf("message: %q", msg)
	}

	if len(stub.prompts) != 1 {
		t.Fatalf("expected one model call, got %d", len(stub.prompts))
	}
	prompt := stub.prompts[0]
	for _, want := range []string{"Jane Doe", "Senior Backend Engineer", "Initech", "Acme Inc"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	// unresolved categories must not be advertised as strengths
	if strings.Contains(prompt, "location") {
		t.Fatalf("prompt leaks an unresolved category:\n%s", prompt)
	}
}

func TestGenerateFallsBackOnModelError(t *testing.T) {
	stub := &stubContent{err: errors.New("quota exceeded")}
	g := &Generator{gen: stub, log: zap.NewNop()}

	msg, err := g.Generate(context.Background(), requirement(), candidate())
	if err != nil {
		t.Fatalf("fallback must not surface the model error: %v", err)
	}
	if !strings.Contains(msg, "Hi Jane") || !strings.Contains(msg, "Initech") {
		t.Fatalf("fallback message: %q", msg)
	}
}

func TestTemplatedGeneratorNeedsNoModel(t *testing.T) {
	g := NewTemplated(zap.NewNop())

	msg, err := g.Generate(context.Background(), requirement(), candidate())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for _, want := range []string{"Hi Jane", "Staff Engineer at Acme Inc", "Senior Backend Engineer", "go and python"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("template missing %q:\n%s", want, msg)
		}
	}
}

func TestTemplateHandlesSparseProfiles(t *testing.T) {
	sparse := domain.RankedCandidate{Profile: domain.MergedProfile{Identity: "x"}}

	msg := Template(requirement(), sparse)
	if !strings.HasPrefix(msg, "Hi,") {
		t.Fatalf("greeting: %q", msg)
	}
	if !strings.Contains(msg, "your background") {
		t.Fatalf("sparse hook: %q", msg)
	}
}
