package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"talentscout-engine/internal/config"
	"talentscout-engine/internal/domain"
)

// GitHub supplements technical skill evidence: repository languages and
// topics carry more weight than self-reported skill lists.
type GitHub struct {
	cfg    config.SourceConfig
	hc     *http.Client
	lim    *Limiter
	tokens TokenFunc
}

func NewGitHub(cfg config.SourceConfig, lim *Limiter, tokens TokenFunc) *GitHub {
	return &GitHub{cfg: cfg, hc: newHTTPClient(), lim: lim, tokens: tokens}
}

func (s *GitHub) Name() domain.Source { return domain.SourceGitHub }

type githubSearchResponse struct {
	Items []struct {
		Login string `json:"login"`
	} `json:"items"`
}

type githubUser struct {
	Login    string `json:"login"`
	Name     string `json:"name"`
	Bio      string `json:"bio"`
	Company  string `json:"company"`
	Location string `json:"location"`
	Blog     string `json:"blog"`
}

type githubRepo struct {
	Language string   `json:"language"`
	Topics   []string `json:"topics"`
	Fork     bool     `json:"fork"`
}

func (s *GitHub) Search(ctx context.Context, req domain.JobRequirement) ([]string, error) {
	// user search keys on languages; non-technical requirement words just
	// dilute results
	terms := make([]string, 0, len(req.RequiredSkills)+1)
	for _, sk := range req.RequiredSkills {
		terms = append(terms, "language:"+sk)
		if len(terms) == 3 {
			break
		}
	}
	if len(terms) == 0 {
		terms = append(terms, req.Title)
	}

	token, err := s.tokens(s.Name())
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("q", strings.Join(terms, " "))
	q.Set("per_page", "50")

	var resp githubSearchResponse
	u := fmt.Sprintf("%s/search/users?%s", strings.TrimRight(s.cfg.BaseURL, "/"), q.Encode())
	if err := getJSON(ctx, s.hc, s.lim, s.Name(), u, token, &resp); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp.Items))
	for _, it := range resp.Items {
		if it.Login != "" {
			ids = append(ids, it.Login)
		}
	}
	return ids, nil
}

func (s *GitHub) FetchProfile(ctx context.Context, identity string) (domain.RawProfile, error) {
	token, err := s.tokens(s.Name())
	if err != nil {
		return domain.RawProfile{}, err
	}
	base := strings.TrimRight(s.cfg.BaseURL, "/")

	var user githubUser
	if err := getJSON(ctx, s.hc, s.lim, s.Name(),
		fmt.Sprintf("%s/users/%s", base, url.PathEscape(identity)), token, &user); err != nil {
		return domain.RawProfile{}, err
	}

	raw := domain.RawProfile{
		Source:      s.Name(),
		Identity:    identity,
		Name:        user.Name,
		Headline:    user.Bio,
		RawLocation: user.Location,
		FetchedAt:   time.Now().UTC(),
	}
	if user.Company != "" {
		raw.Experience = []domain.RawExperience{{Company: strings.TrimPrefix(user.Company, "@")}}
	}
	if user.Blog != "" {
		raw.Links = []string{user.Blog}
	}

	// repo languages and topics stand in for a skill list; a failed repo
	// fetch degrades the fragment rather than failing it
	var repos []githubRepo
	if err := getJSON(ctx, s.hc, s.lim, s.Name(),
		fmt.Sprintf("%s/users/%s/repos?sort=pushed&per_page=30", base, url.PathEscape(identity)), token, &repos); err == nil {
		raw.Skills = skillsFromRepos(repos)
	}

	return raw, nil
}

func skillsFromRepos(repos []githubRepo) []string {
	set := map[string]bool{}
	for _, r := range repos {
		if r.Fork {
			continue
		}
		if r.Language != "" {
			set[strings.ToLower(r.Language)] = true
		}
		for _, t := range r.Topics {
			set[strings.ToLower(t)] = true
		}
	}
	out := make([]string, 0, len(set))
	for sk := range set {
		out = append(out, sk)
	}
	sort.Strings(out)
	return out
}
