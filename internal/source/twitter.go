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

// Twitter contributes bio and location signals only. Lowest trust prior:
// free-text self-description, no structured history.
type Twitter struct {
	cfg    config.SourceConfig
	hc     *http.Client
	lim    *Limiter
	tokens TokenFunc
}

func NewTwitter(cfg config.SourceConfig, lim *Limiter, tokens TokenFunc) *Twitter {
	return &Twitter{cfg: cfg, hc: newHTTPClient(), lim: lim, tokens: tokens}
}

func (s *Twitter) Name() domain.Source { return domain.SourceTwitter }

type twitterUserResponse struct {
	Data twitterUser `json:"data"`
}

type twitterSearchResponse struct {
	Data []twitterUser `json:"data"`
}

type twitterUser struct {
	Username    string `json:"username"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Location    string `json:"location"`
	URL         string `json:"url"`
}

func (s *Twitter) Search(ctx context.Context, req domain.JobRequirement) ([]string, error) {
	token, err := s.tokens(s.Name())
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("query", req.Title)
	q.Set("max_results", "25")

	var resp twitterSearchResponse
	u := fmt.Sprintf("%s/2/users/search?%s", strings.TrimRight(s.cfg.BaseURL, "/"), q.Encode())
	if err := getJSON(ctx, s.hc, s.lim, s.Name(), u, token, &resp); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp.Data))
	for _, u := range resp.Data {
		if u.Username != "" {
			ids = append(ids, u.Username)
		}
	}
	return ids, nil
}

func (s *Twitter) FetchProfile(ctx context.Context, identity string) (domain.RawProfile, error) {
	token, err := s.tokens(s.Name())
	if err != nil {
		return domain.RawProfile{}, err
	}

	var resp twitterUserResponse
	u := fmt.Sprintf("%s/2/users/by/username/%s?user.fields=description,location,url",
		strings.TrimRight(s.cfg.BaseURL, "/"), url.PathEscape(identity))
	if err := getJSON(ctx, s.hc, s.lim, s.Name(), u, token, &resp); err != nil {
		return domain.RawProfile{}, err
	}

	raw := domain.RawProfile{
		Source:      s.Name(),
		Identity:    identity,
		Name:        resp.Data.Name,
		Headline:    resp.Data.Description,
		RawLocation: resp.Data.Location,
		FetchedAt:   time.Now().UTC(),
	}
	if resp.Data.URL != "" {
		raw.Links = []string{resp.Data.URL}
	}
	return raw, nil
}
