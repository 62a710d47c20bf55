package source

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"talentscout-engine/internal/config"
	"talentscout-engine/internal/domain"
)

// Limiter rate-limits per source. Each source gets its own token bucket
// sized from its config; sources without explicit config share a default
// bucket so an unconfigured client can never hammer an upstream.
type Limiter struct {
	mu sync.Mutex
	m  map[domain.Source]*rate.Limiter

	defaultRate  rate.Limit
	defaultBurst int
}

func NewLimiter(cfg config.Config) *Limiter {
	l := &Limiter{
		m:            make(map[domain.Source]*rate.Limiter),
		defaultRate:  rate.Limit(1),
		defaultBurst: 1,
	}
	for src, sc := range map[domain.Source]config.SourceConfig{
		domain.SourceLinkedIn:     cfg.Sources.LinkedIn,
		domain.SourceGitHub:       cfg.Sources.GitHub,
		domain.SourceTwitter:      cfg.Sources.Twitter,
		domain.SourcePersonalSite: cfg.Sources.PersonalSite,
	} {
		if sc.RequestsPerSec > 0 {
			l.m[src] = rate.NewLimiter(rate.Limit(sc.RequestsPerSec), max(sc.Burst, 1))
		}
	}
	return l
}

func (l *Limiter) limiterFor(src domain.Source) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.m[src]; ok {
		return lim
	}
	lim := rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.m[src] = lim
	return lim
}

// Wait blocks until the source's bucket grants a token or ctx ends.
func (l *Limiter) Wait(ctx context.Context, src domain.Source) error {
	return l.limiterFor(src).Wait(ctx)
}
