package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"talentscout-engine/internal/config"
	"talentscout-engine/internal/domain"
	"talentscout-engine/internal/enrich"
	"talentscout-engine/internal/events"
	"talentscout-engine/internal/fetchcache"
	"talentscout-engine/internal/normalize"
	"talentscout-engine/internal/rank"
	"talentscout-engine/internal/source"
)

// Store persists a job snapshot on every state transition. The scheduler
// does not care what subset each state writes.
type Store interface {
	SaveJob(ctx context.Context, job domain.BatchJob) error
}

// OutreachGenerator writes a personalized message for one ranked
// candidate. Optional; a nil generator skips the stage.
type OutreachGenerator interface {
	Generate(ctx context.Context, req domain.JobRequirement, cand domain.RankedCandidate) (string, error)
}

// Scheduler runs sourcing pipelines: a bounded worker pool pulls queued
// jobs and drives each through discovery, enrichment, scoring and ranking.
// One slow or failing job never blocks the others.
type Scheduler struct {
	cfg     config.Config
	log     *zap.Logger
	sources *source.Registry
	cache   *fetchcache.Cache
	norm    *normalize.Normalizer
	scorer  rank.Scorer
	gen     OutreachGenerator
	store   Store
	hub     *events.Hub

	// fetchSem caps concurrent upstream fetches across every running job.
	// Cache hits bypass it.
	fetchSem *semaphore.Weighted

	queue chan string

	mu   sync.Mutex
	jobs map[string]*domain.BatchJob
}

func New(cfg config.Config, log *zap.Logger, reg *source.Registry, cache *fetchcache.Cache,
	norm *normalize.Normalizer, scorer rank.Scorer, gen OutreachGenerator, st Store, hub *events.Hub) *Scheduler {
	cap := cfg.Concurrency.GlobalFetchCap
	if cap <= 0 {
		cap = 1
	}
	return &Scheduler{
		cfg:      cfg,
		log:      log,
		sources:  reg,
		cache:    cache,
		norm:     norm,
		scorer:   scorer,
		gen:      gen,
		store:    st,
		hub:      hub,
		fetchSem: semaphore.NewWeighted(int64(cap)),
		queue:    make(chan string, 256),
		jobs:     make(map[string]*domain.BatchJob),
	}
}

// Start launches the worker pool. Workers exit when ctx ends; jobs still
// queued stay queued.
func (s *Scheduler) Start(ctx context.Context) {
	workers := s.cfg.Concurrency.JobWorkers
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case id := <-s.queue:
					s.runJob(ctx, id)
				}
			}
		}()
	}
}

// Submit parses and enqueues one job description. A submission that fails
// to parse is rejected here and never occupies a worker.
func (s *Scheduler) Submit(ctx context.Context, sub domain.JobSubmission) (domain.BatchJob, error) {
	req, err := normalize.ParseRequirement(sub, s.cfg.Scoring.Tables.SeniorityLadder)
	if err != nil {
		return domain.BatchJob{}, err
	}

	job := &domain.BatchJob{
		ID:          uuid.NewString(),
		Requirement: req,
		State:       domain.JobQueued,
		CreatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.SaveJob(ctx, *job); err != nil {
			s.log.Warn("persist queued job", zap.String("job", job.ID), zap.Error(err))
		}
	}

	select {
	case s.queue <- job.ID:
	default:
		s.mu.Lock()
		delete(s.jobs, job.ID)
		s.mu.Unlock()
		return domain.BatchJob{}, errors.New("job queue full")
	}

	s.log.Info("job queued", zap.String("job", job.ID), zap.String("title", req.Title))
	return *job, nil
}

// Job returns a snapshot; callers never see the scheduler's live struct.
func (s *Scheduler) Job(id string) (domain.BatchJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return domain.BatchJob{}, false
	}
	return *j, true
}

func (s *Scheduler) Jobs() []domain.BatchJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.BatchJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	return out
}

func (s *Scheduler) runJob(ctx context.Context, id string) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	req := job.Requirement
	s.mu.Unlock()

	fail := func(reason string) {
		s.transition(ctx, id, domain.JobFailed, func(j *domain.BatchJob) {
			j.FailureReason = reason
			j.FinishedAt = time.Now().UTC()
		})
		s.log.Warn("job failed", zap.String("job", id), zap.String("reason", reason))
	}

	// discovery
	s.transition(ctx, id, domain.JobDiscovering, nil)
	found, err := s.discover(ctx, req)
	if err != nil {
		fail(err.Error())
		return
	}
	if len(found) == 0 {
		fail("no candidates discovered")
		return
	}
	if ctx.Err() != nil {
		fail("canceled")
		return
	}

	// enrichment
	s.transition(ctx, id, domain.JobEnriching, nil)
	profiles := s.enrich(ctx, found)
	if ctx.Err() != nil {
		fail("canceled")
		return
	}
	if len(profiles) == 0 {
		fail("no profiles could be enriched")
		return
	}
	s.transition(ctx, id, domain.JobScoring, func(j *domain.BatchJob) { j.Profiles = profiles })

	// scoring
	ranked, err := rank.Assemble(s.scorer, profiles, req, s.cfg.Concurrency.ScoringWorkers)
	if err != nil {
		fail("scoring failed: " + err.Error())
		return
	}
	if ctx.Err() != nil {
		fail("canceled")
		return
	}

	// ranking and outreach
	s.transition(ctx, id, domain.JobRanking, nil)
	topK := req.TopK
	if topK <= 0 {
		topK = s.cfg.Output.TopK
	}
	top := append([]domain.RankedCandidate(nil), rank.Top(ranked, topK)...)
	s.generateOutreach(ctx, req, top)

	s.transition(ctx, id, domain.JobDone, func(j *domain.BatchJob) {
		j.Ranked = ranked
		j.Top = top
		j.FinishedAt = time.Now().UTC()
	})
	s.log.Info("job done", zap.String("job", id),
		zap.Int("candidates", len(ranked)), zap.Int("top", len(top)))
}

// discovered is one source's handle on a candidate.
type discovered struct {
	src domain.Source
	id  string
}

// discover fans search out across enabled sources. A single failing
// source degrades results; the stage errors only when every source fails.
func (s *Scheduler) discover(ctx context.Context, req domain.JobRequirement) ([]discovered, error) {
	var (
		mu      sync.Mutex
		out     []discovered
		lastErr error
		okCount int
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range s.sources.Clients() {
		c := c
		g.Go(func() error {
			ids, err := c.Search(gctx, req)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				lastErr = err
				s.log.Warn("source search failed",
					zap.String("source", string(c.Name())), zap.Error(err))
				return nil // isolate: other sources keep going
			}
			okCount++
			for _, id := range ids {
				out = append(out, discovered{src: c.Name(), id: id})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if okCount == 0 && lastErr != nil {
		return nil, fmt.Errorf("all sources failed: %w", lastErr)
	}
	return out, nil
}

// enrich fetches, normalizes and merges every discovered candidate.
// Candidates that cannot be fetched are dropped, not fatal.
func (s *Scheduler) enrich(ctx context.Context, found []discovered) []domain.MergedProfile {
	type enriched struct {
		key   string
		frags []domain.SourceFragment
	}

	var (
		mu      sync.Mutex
		results []enriched
	)

	g, gctx := errgroup.WithContext(ctx)
	// a little wider than the fetch cap so cache hits don't queue behind
	// slow upstream calls
	limit := 2 * s.cfg.Concurrency.GlobalFetchCap
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)
	for _, d := range found {
		d := d
		g.Go(func() error {
			raw, err := s.fetchProfile(gctx, d.src, d.id)
			if err != nil {
				s.log.Debug("enrich fetch failed", zap.String("source", string(d.src)),
					zap.String("identity", d.id), zap.Error(err))
				return nil
			}
			frags := []domain.SourceFragment{s.norm.Fragment(raw)}

			// follow advertised personal-site links into the same candidate
			if site, ok := s.sources.Get(domain.SourcePersonalSite); ok {
				for _, link := range raw.Links {
					extra, err := s.fetchVia(gctx, site, link)
					if err != nil {
						continue
					}
					frags = append(frags, s.norm.Fragment(extra))
				}
			}

			mu.Lock()
			results = append(results, enriched{key: string(d.src) + ":" + d.id, frags: frags})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	now := time.Now().UTC()
	profiles := make([]domain.MergedProfile, 0, len(results))
	for _, r := range results {
		profiles = append(profiles, enrich.Merge(r.key, r.frags, now))
	}
	return profiles
}

// fetchProfile goes through the request cache: concurrent duplicates
// collapse to one upstream call, and fresh entries skip the wire entirely.
func (s *Scheduler) fetchProfile(ctx context.Context, src domain.Source, identity string) (domain.RawProfile, error) {
	client, ok := s.sources.Get(src)
	if !ok {
		return domain.RawProfile{}, fmt.Errorf("source %s not registered", src)
	}
	return s.fetchVia(ctx, client, identity)
}

func (s *Scheduler) fetchVia(ctx context.Context, client source.Client, identity string) (domain.RawProfile, error) {
	key := fetchcache.Key{Source: client.Name(), Fingerprint: fetchcache.Fingerprint(identity)}

	payload, err := s.cache.GetOrFetch(ctx, key, func(fctx context.Context) ([]byte, error) {
		if err := s.fetchSem.Acquire(fctx, 1); err != nil {
			return nil, err
		}
		defer s.fetchSem.Release(1)

		raw, err := s.fetchWithRetry(fctx, client, identity)
		if err != nil {
			return nil, err
		}
		return json.Marshal(raw)
	})
	if err != nil {
		return domain.RawProfile{}, err
	}

	var raw domain.RawProfile
	if err := json.Unmarshal(payload, &raw); err != nil {
		return domain.RawProfile{}, fmt.Errorf("cached payload for %s: %w", key.String(), err)
	}
	return raw, nil
}

// fetchWithRetry retries transient upstream failures with exponential
// backoff. Terminal errors (not found, bad request) return immediately.
func (s *Scheduler) fetchWithRetry(ctx context.Context, client source.Client, identity string) (domain.RawProfile, error) {
	attempts := s.cfg.Retry.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := time.Duration(s.cfg.Retry.InitialBackoffMS) * time.Millisecond
	maxBackoff := time.Duration(s.cfg.Retry.MaxBackoffMS) * time.Millisecond

	var lastErr error
	for i := 0; i < attempts; i++ {
		raw, err := client.FetchProfile(ctx, identity)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !domain.Retryable(err) {
			return domain.RawProfile{}, err
		}

		select {
		case <-ctx.Done():
			return domain.RawProfile{}, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if maxBackoff > 0 && backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return domain.RawProfile{}, lastErr
}

// generateOutreach fills messages for the top slice in place. A generation
// failure leaves that candidate's message empty rather than failing the job.
func (s *Scheduler) generateOutreach(ctx context.Context, req domain.JobRequirement, top []domain.RankedCandidate) {
	if s.gen == nil || !s.cfg.Outreach.Enabled {
		return
	}
	for i := range top {
		msg, err := s.gen.Generate(ctx, req, top[i])
		if err != nil {
			s.log.Warn("outreach generation failed",
				zap.String("identity", top[i].Profile.Identity), zap.Error(err))
			continue
		}
		top[i].Outreach = msg
	}
}

// transition moves a job to the next state, persists the snapshot and
// notifies subscribers. mut runs under the lock before publishing.
func (s *Scheduler) transition(ctx context.Context, id string, state domain.JobState, mut func(*domain.BatchJob)) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	job.State = state
	if mut != nil {
		mut(job)
	}
	snapshot := *job
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.SaveJob(ctx, snapshot); err != nil {
			s.log.Warn("persist job", zap.String("job", id), zap.Error(err))
		}
	}
	if s.hub != nil {
		s.hub.Publish(events.StateChanged(id, state))
	}
}
