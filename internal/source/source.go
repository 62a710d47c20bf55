package source

import (
	"context"

	"talentscout-engine/internal/config"
	"talentscout-engine/internal/domain"
)

// Client is one upstream people-data source. Search discovers candidate
// identities for a requirement; FetchProfile pulls one candidate's raw
// view. Both respect the per-source rate limit before touching the wire.
type Client interface {
	Name() domain.Source
	Search(ctx context.Context, req domain.JobRequirement) ([]string, error)
	FetchProfile(ctx context.Context, identity string) (domain.RawProfile, error)
}

// TokenFunc resolves the API credential for a source at call time, so
// rotated tokens take effect without a restart. Empty string means
// unauthenticated.
type TokenFunc func(src domain.Source) (string, error)

// Registry holds the enabled clients in a stable order.
type Registry struct {
	clients []Client
}

func NewRegistry(cfg config.Config, limiter *Limiter, tokens TokenFunc) *Registry {
	if tokens == nil {
		tokens = func(domain.Source) (string, error) { return "", nil }
	}

	r := &Registry{}
	if cfg.Sources.LinkedIn.Enabled {
		r.clients = append(r.clients, NewLinkedIn(cfg.Sources.LinkedIn, limiter, tokens))
	}
	if cfg.Sources.GitHub.Enabled {
		r.clients = append(r.clients, NewGitHub(cfg.Sources.GitHub, limiter, tokens))
	}
	if cfg.Sources.Twitter.Enabled {
		r.clients = append(r.clients, NewTwitter(cfg.Sources.Twitter, limiter, tokens))
	}
	if cfg.Sources.PersonalSite.Enabled {
		r.clients = append(r.clients, NewPersonalSite(cfg.Sources.PersonalSite, limiter))
	}
	return r
}

// NewRegistryWith builds a registry from explicit clients, in order.
func NewRegistryWith(clients ...Client) *Registry {
	return &Registry{clients: clients}
}

func (r *Registry) Clients() []Client { return r.clients }

func (r *Registry) Get(src domain.Source) (Client, bool) {
	for _, c := range r.clients {
		if c.Name() == src {
			return c, true
		}
	}
	return nil, false
}
