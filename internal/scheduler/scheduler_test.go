package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"talentscout-engine/internal/config"
	"talentscout-engine/internal/domain"
	"talentscout-engine/internal/events"
	"talentscout-engine/internal/fetchcache"
	"talentscout-engine/internal/normalize"
	"talentscout-engine/internal/source"
)

// stubSource is a scripted source.Client.
type stubSource struct {
	name      domain.Source
	ids       []string
	searchErr error
	fetchErr  error

	// uniquePerSearch > 0 makes every Search call mint that many fresh
	// identities, so concurrent jobs cannot share cache entries
	uniquePerSearch int
	searchCalls     atomic.Int64

	// fetch concurrency accounting
	inFlight    atomic.Int64
	maxInFlight atomic.Int64
	fetchCount  atomic.Int64
	fetchDelay  time.Duration
}

func (s *stubSource) Name() domain.Source { return s.name }

func (s *stubSource) Search(_ context.Context, _ domain.JobRequirement) ([]string, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	if s.uniquePerSearch > 0 {
		n := s.searchCalls.Add(1)
		ids := make([]string, s.uniquePerSearch)
		for i := range ids {
			ids[i] = fmt.Sprintf("job%d-cand%d", n, i)
		}
		return ids, nil
	}
	return s.ids, nil
}

func (s *stubSource) FetchProfile(_ context.Context, identity string) (domain.RawProfile, error) {
	n := s.inFlight.Add(1)
	for {
		old := s.maxInFlight.Load()
		if n <= old || s.maxInFlight.CompareAndSwap(old, n) {
			break
		}
	}
	if s.fetchDelay > 0 {
		time.Sleep(s.fetchDelay)
	}
	s.inFlight.Add(-1)
	s.fetchCount.Add(1)

	if s.fetchErr != nil {
		return domain.RawProfile{}, s.fetchErr
	}
	return domain.RawProfile{
		Source:    s.name,
		Identity:  identity,
		Name:      "Candidate " + identity,
		Headline:  "Engineer",
		Skills:    []string{"go"},
		FetchedAt: time.Now().UTC(),
	}, nil
}

type stubScorer struct{ total float64 }

func (s *stubScorer) Score(p domain.MergedProfile, _ domain.JobRequirement) (domain.FitScore, error) {
	if len(p.Fields) == 0 {
		return domain.FitScore{}, &domain.InsufficientDataError{Identity: p.Identity}
	}
	return domain.FitScore{Identity: p.Identity, Total: s.total, Confidence: 0.8}, nil
}

type recordingStore struct {
	mu     sync.Mutex
	states []domain.JobState
}

func (r *recordingStore) SaveJob(_ context.Context, job domain.BatchJob) error {
	r.mu.Lock()
	r.states = append(r.states, job.State)
	r.mu.Unlock()
	return nil
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Concurrency.JobWorkers = 2
	cfg.Concurrency.GlobalFetchCap = 5
	cfg.Retry.MaxAttempts = 1
	cfg.Retry.InitialBackoffMS = 1
	cfg.Outreach.Enabled = false
	return cfg
}

func newTestScheduler(cfg config.Config, st Store, clients ...source.Client) *Scheduler {
	norm := normalize.New(
		map[domain.Source]float64{domain.SourceLinkedIn: 0.9, domain.SourceGitHub: 0.85},
		normalize.NewCompanyIndex(cfg.Scoring.Tables.CompanyTiers),
	)
	cache := fetchcache.New(time.Hour, 1024)
	return New(cfg, zap.NewNop(), source.NewRegistryWith(clients...), cache,
		norm, &stubScorer{total: 7}, nil, st, events.NewHub())
}

func submission() domain.JobSubmission {
	return domain.JobSubmission{
		Title:        "Senior Backend Engineer",
		Company:      "Acme Inc",
		Description:  "Build data pipelines.",
		Requirements: []string{"go", "python"},
		TopK:         3,
	}
}

func waitTerminal(t *testing.T, s *Scheduler, id string) domain.BatchJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if j, ok := s.Job(id); ok && j.State.Terminal() {
			return j
		}
		time.Sleep(5 * time.Millisecond)
	}
	j, _ := s.Job(id)
	t.Fatalf("job %s never reached a terminal state, stuck at %s", id, j.State)
	return domain.BatchJob{}
}

func TestPipelineRunsToDone(t *testing.T) {
	st := &recordingStore{}
	src := &stubSource{name: domain.SourceLinkedIn, ids: []string{"a", "b", "c"}}
	s := newTestScheduler(testConfig(), st, src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	job, err := s.Submit(ctx, submission())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	done := waitTerminal(t, s, job.ID)

	if done.State != domain.JobDone {
		t.Fatalf("state %s, reason %q", done.State, done.FailureReason)
	}
	if len(done.Ranked) != 3 {
		t.Fatalf("ranked: %d", len(done.Ranked))
	}
	if len(done.Top) != 3 {
		t.Fatalf("top should honor the submission's k: %d", len(done.Top))
	}
	if done.FinishedAt.IsZero() {
		t.Fatal("finished_at must be stamped")
	}

	st.mu.Lock()
	states := append([]domain.JobState(nil), st.states...)
	st.mu.Unlock()
	want := []domain.JobState{domain.JobQueued, domain.JobDiscovering, domain.JobEnriching,
		domain.JobScoring, domain.JobRanking, domain.JobDone}
	if len(states) != len(want) {
		t.Fatalf("persisted states %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("persisted states %v, want %v", states, want)
		}
	}
}

func TestGlobalFetchCapIsNeverExceeded(t *testing.T) {
	cfg := testConfig()
	cfg.Concurrency.GlobalFetchCap = 5

	ids := make([]string, 24)
	for i := range ids {
		ids[i] = fmt.Sprintf("cand-%d", i)
	}
	src := &stubSource{name: domain.SourceLinkedIn, ids: ids, fetchDelay: 10 * time.Millisecond}
	s := newTestScheduler(cfg, nil, src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	job, err := s.Submit(ctx, submission())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	done := waitTerminal(t, s, job.ID)
	if done.State != domain.JobDone {
		t.Fatalf("state %s, reason %q", done.State, done.FailureReason)
	}

	if got := src.maxInFlight.Load(); got > 5 {
		t.Fatalf("observed %d concurrent fetches, cap is 5", got)
	}
}

func TestGlobalFetchCapHoldsAcrossConcurrentJobs(t *testing.T) {
	cfg := testConfig()
	cfg.Concurrency.JobWorkers = 12
	cfg.Concurrency.GlobalFetchCap = 5

	// distinct identities per job: every fetch has to go upstream
	src := &stubSource{name: domain.SourceLinkedIn, uniquePerSearch: 4, fetchDelay: 3 * time.Millisecond}
	s := newTestScheduler(cfg, nil, src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	ids := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		job, err := s.Submit(ctx, submission())
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		ids = append(ids, job.ID)
	}
	for _, id := range ids {
		if done := waitTerminal(t, s, id); done.State != domain.JobDone {
			t.Fatalf("job %s: state %s, reason %q", id, done.State, done.FailureReason)
		}
	}

	if got := src.fetchCount.Load(); got != 48 {
		t.Fatalf("fetched %d profiles, want 48 distinct", got)
	}
	if got := src.maxInFlight.Load(); got > 5 {
		t.Fatalf("observed %d concurrent fetches across jobs, cap is 5", got)
	}
}

func TestCacheCollapsesRepeatFetchesAcrossJobs(t *testing.T) {
	src := &stubSource{name: domain.SourceLinkedIn, ids: []string{"a", "b"}}
	s := newTestScheduler(testConfig(), nil, src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	first, err := s.Submit(ctx, submission())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitTerminal(t, s, first.ID)

	second, err := s.Submit(ctx, submission())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitTerminal(t, s, second.ID)

	if got := src.fetchCount.Load(); got != 2 {
		t.Fatalf("fresh cache entries should serve the second job, got %d fetches", got)
	}
}

func TestOneFailingSourceDegradesNotFails(t *testing.T) {
	good := &stubSource{name: domain.SourceLinkedIn, ids: []string{"a"}}
	bad := &stubSource{name: domain.SourceGitHub, searchErr: errors.New("upstream down")}
	s := newTestScheduler(testConfig(), nil, good, bad)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	job, err := s.Submit(ctx, submission())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	done := waitTerminal(t, s, job.ID)
	if done.State != domain.JobDone {
		t.Fatalf("one failing source must not fail the job: %s %q", done.State, done.FailureReason)
	}
	if len(done.Ranked) != 1 {
		t.Fatalf("ranked: %d", len(done.Ranked))
	}
}

func TestAllSourcesFailingFailsJob(t *testing.T) {
	a := &stubSource{name: domain.SourceLinkedIn, searchErr: errors.New("down")}
	b := &stubSource{name: domain.SourceGitHub, searchErr: errors.New("down")}
	s := newTestScheduler(testConfig(), nil, a, b)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	job, err := s.Submit(ctx, submission())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	done := waitTerminal(t, s, job.ID)
	if done.State != domain.JobFailed {
		t.Fatalf("state: %s", done.State)
	}
	if done.FailureReason == "" {
		t.Fatal("failed job must carry a reason")
	}
}

func TestFailedJobDoesNotBlockOthers(t *testing.T) {
	good := &stubSource{name: domain.SourceLinkedIn, ids: []string{"a"}}
	s := newTestScheduler(testConfig(), nil, good)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	// unparseable submission is rejected before it occupies a worker
	_, err := s.Submit(ctx, domain.JobSubmission{Title: "X"})
	var parseErr *domain.JobParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected JobParseError, got %v", err)
	}

	job, err := s.Submit(ctx, submission())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if done := waitTerminal(t, s, job.ID); done.State != domain.JobDone {
		t.Fatalf("state %s, reason %q", done.State, done.FailureReason)
	}
}

func TestSubmitSnapshotIsQueued(t *testing.T) {
	src := &stubSource{name: domain.SourceLinkedIn, ids: []string{"a"}}
	s := newTestScheduler(testConfig(), nil, src)
	// no Start: job must sit queued

	job, err := s.Submit(context.Background(), submission())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.State != domain.JobQueued {
		t.Fatalf("state: %s", job.State)
	}
	if job.ID == "" {
		t.Fatal("job needs an id")
	}
	if got, ok := s.Job(job.ID); !ok || got.State != domain.JobQueued {
		t.Fatalf("lookup: %+v ok=%v", got, ok)
	}
}
