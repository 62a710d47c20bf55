package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"talentscout-engine/internal/config"
	"talentscout-engine/internal/domain"
)

// LinkedIn is the primary discovery source: structured professional
// history with the highest trust prior.
type LinkedIn struct {
	cfg    config.SourceConfig
	hc     *http.Client
	lim    *Limiter
	tokens TokenFunc
}

func NewLinkedIn(cfg config.SourceConfig, lim *Limiter, tokens TokenFunc) *LinkedIn {
	return &LinkedIn{cfg: cfg, hc: newHTTPClient(), lim: lim, tokens: tokens}
}

func (s *LinkedIn) Name() domain.Source { return domain.SourceLinkedIn }

type linkedinSearchResponse struct {
	Results []struct {
		PublicID string `json:"public_id"`
	} `json:"results"`
}

type linkedinProfile struct {
	PublicID  string `json:"public_id"`
	FullName  string `json:"full_name"`
	Headline  string `json:"headline"`
	Location  string `json:"location"`
	Education []struct {
		School  string `json:"school"`
		Degree  string `json:"degree"`
		Field   string `json:"field_of_study"`
		Years   string `json:"years"`
	} `json:"education"`
	Positions []struct {
		Company string `json:"company"`
		Title   string `json:"title"`
		Start   string `json:"start"`
		End     string `json:"end"`
	} `json:"positions"`
	Skills   []string `json:"skills"`
	Websites []string `json:"websites"`
}

func (s *LinkedIn) Search(ctx context.Context, req domain.JobRequirement) ([]string, error) {
	q := url.Values{}
	q.Set("keywords", strings.Join(append([]string{req.Title}, req.RequiredSkills...), " "))
	if len(req.Locations) > 0 && !req.Remote {
		q.Set("location", req.Locations[0])
	}
	q.Set("limit", "50")

	token, err := s.tokens(s.Name())
	if err != nil {
		return nil, err
	}

	var resp linkedinSearchResponse
	u := fmt.Sprintf("%s/v2/people/search?%s", strings.TrimRight(s.cfg.BaseURL, "/"), q.Encode())
	if err := getJSON(ctx, s.hc, s.lim, s.Name(), u, token, &resp); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.PublicID != "" {
			ids = append(ids, r.PublicID)
		}
	}
	return ids, nil
}

func (s *LinkedIn) FetchProfile(ctx context.Context, identity string) (domain.RawProfile, error) {
	token, err := s.tokens(s.Name())
	if err != nil {
		return domain.RawProfile{}, err
	}

	var p linkedinProfile
	u := fmt.Sprintf("%s/v2/people/%s", strings.TrimRight(s.cfg.BaseURL, "/"), url.PathEscape(identity))
	if err := getJSON(ctx, s.hc, s.lim, s.Name(), u, token, &p); err != nil {
		return domain.RawProfile{}, err
	}

	raw := domain.RawProfile{
		Source:      s.Name(),
		Identity:    identity,
		Name:        p.FullName,
		Headline:    p.Headline,
		RawLocation: p.Location,
		Skills:      p.Skills,
		Links:       p.Websites,
		FetchedAt:   time.Now().UTC(),
	}
	for _, e := range p.Education {
		raw.Education = append(raw.Education, domain.RawEducation{
			Institution: e.School,
			Degree:      e.Degree,
			Field:       e.Field,
			Years:       e.Years,
		})
	}
	for _, pos := range p.Positions {
		raw.Experience = append(raw.Experience, domain.RawExperience{
			Company: pos.Company,
			Title:   pos.Title,
			Start:   pos.Start,
			End:     pos.End,
		})
	}
	return raw, nil
}
