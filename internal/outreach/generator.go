package outreach

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"talentscout-engine/internal/domain"
)

const defaultModel = "gemini-2.0-flash"

// contentGenerator is the LLM seam; tests substitute a stub.
type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Generator writes personalized outreach messages for ranked candidates.
// When the model call fails the templated fallback goes out instead; a
// candidate never loses their slot to an LLM outage.
type Generator struct {
	gen contentGenerator
	log *zap.Logger
}

func NewGemini(ctx context.Context, apiKey, model string, log *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Generator{gen: &geminiBackend{client: client, model: model}, log: log}, nil
}

// NewTemplated returns a generator that only produces the fallback
// template. Used when no API key is configured.
func NewTemplated(log *zap.Logger) *Generator {
	return &Generator{log: log}
}

func (g *Generator) Generate(ctx context.Context, req domain.JobRequirement, cand domain.RankedCandidate) (string, error) {
	if g.gen == nil {
		return Template(req, cand), nil
	}

	out, err := g.gen.GenerateContent(ctx, buildPrompt(req, cand))
	if err != nil {
		if g.log != nil {
			g.log.Warn("outreach model call failed, using template",
				zap.String("identity", cand.Profile.Identity), zap.Error(err))
		}
		return Template(req, cand), nil
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return Template(req, cand), nil
	}
	return out, nil
}

// buildPrompt grounds the model on the candidate's strongest scoring
// categories so the message references real signal, not invented facts.
func buildPrompt(req domain.JobRequirement, cand domain.RankedCandidate) string {
	var b strings.Builder
	b.WriteString("Write a short, professional recruiting outreach message (under 120 words).\n")
	b.WriteString("Do not invent facts; use only the details below. No subject line.\n\n")

	fmt.Fprintf(&b, "Role: %s at %s\n", req.Title, req.Company)
	if len(req.RequiredSkills) > 0 {
		fmt.Fprintf(&b, "Key skills: %s\n", strings.Join(req.RequiredSkills, ", "))
	}

	p := cand.Profile
	fmt.Fprintf(&b, "\nCandidate: %s\n", nameOrFallback(p))
	if p.Headline != "" {
		fmt.Fprintf(&b, "Headline: %s\n", p.Headline)
	}
	if len(p.Experience) > 0 {
		e := p.Experience[0]
		if e.Title != "" {
			fmt.Fprintf(&b, "Current role: %s at %s\n", e.Title, e.Company)
		} else {
			fmt.Fprintf(&b, "Current company: %s\n", e.Company)
		}
	}
	if len(p.Skills) > 0 {
		fmt.Fprintf(&b, "Skills: %s\n", strings.Join(p.Skills, ", "))
	}
	fmt.Fprintf(&b, "Fit score: %.1f/10\n", cand.Score.Total)
	if highlights := strongCategories(cand.Score); len(highlights) > 0 {
		fmt.Fprintf(&b, "Strongest areas: %s\n", strings.Join(highlights, ", "))
	}
	return b.String()
}

// strongCategories returns the resolved categories scoring 7 or better,
// strongest first.
func strongCategories(score domain.FitScore) []string {
	type cs struct {
		name  string
		score float64
	}
	var picks []cs
	for name, c := range score.Categories {
		if !c.Unresolved && c.Score >= 7 {
			picks = append(picks, cs{name, c.Score})
		}
	}
	sort.Slice(picks, func(i, j int) bool {
		if picks[i].score != picks[j].score {
			return picks[i].score > picks[j].score
		}
		return picks[i].name < picks[j].name
	})
	out := make([]string, len(picks))
	for i, p := range picks {
		out[i] = p.name
	}
	return out
}

func nameOrFallback(p domain.MergedProfile) string {
	if p.Name != "" {
		return p.Name
	}
	return "there"
}

type geminiBackend struct {
	client *genai.Client
	model  string
}

func (b *geminiBackend) GenerateContent(ctx context.Context, prompt string) (string, error) {
	resp, err := b.client.Models.GenerateContent(ctx, b.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var out strings.Builder
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if part == nil {
				continue
			}
			if text := strings.TrimSpace(part.Text); text != "" {
				if out.Len() > 0 {
					out.WriteString("\n")
				}
				out.WriteString(text)
			}
		}
	}
	if out.Len() == 0 {
		return "", errors.New("empty model response")
	}
	return out.String(), nil
}
