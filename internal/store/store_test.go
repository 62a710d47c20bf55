package store

import (
	"context"
	"testing"
	"time"

	"talentscout-engine/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := Migrate(db.Pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func sampleJob(state domain.JobState) domain.BatchJob {
	job := domain.BatchJob{
		ID: "job-1",
		Requirement: domain.JobRequirement{
			ID:             "senior-backend-engineer",
			Title:          "Senior Backend Engineer",
			Company:        "Initech",
			Description:    "Build pipelines.",
			RequiredSkills: []string{"go", "python"},
		},
		State:     state,
		CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	if state == domain.JobDone {
		job.FinishedAt = job.CreatedAt.Add(time.Minute)
		job.Ranked = []domain.RankedCandidate{
			{
				Profile: domain.MergedProfile{Identity: "linkedin:jane", Name: "Jane Doe"},
				Score: domain.FitScore{
					Identity: "linkedin:jane", Total: 8.5, Confidence: 0.9,
					Categories: map[string]domain.CategoryScore{
						domain.CategorySkills: {Score: 9.5, Confidence: 0.9},
					},
				},
			},
			{
				Profile: domain.MergedProfile{Identity: "github:jdoe", Name: "J. Doe"},
				Score:   domain.FitScore{Identity: "github:jdoe", Total: 6.1, Confidence: 0.7},
			},
		}
		job.Top = []domain.RankedCandidate{job.Ranked[0]}
		job.Top[0].Outreach = "Hi Jane, quick note."
	}
	return job
}

func TestSaveAndLoadJob(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.SaveJob(ctx, sampleJob(domain.JobQueued)); err != nil {
		t.Fatalf("save queued: %v", err)
	}
	if err := db.SaveJob(ctx, sampleJob(domain.JobDone)); err != nil {
		t.Fatalf("save done: %v", err)
	}

	rec, err := db.LoadJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rec.State != domain.JobDone {
		t.Fatalf("state: %s", rec.State)
	}
	if rec.Requirement.Title != "Senior Backend Engineer" || len(rec.Requirement.RequiredSkills) != 2 {
		t.Fatalf("requirement did not round-trip: %+v", rec.Requirement)
	}
	if rec.FinishedAt.IsZero() {
		t.Fatal("finished_at lost")
	}
}

func TestLoadMissingJobIsNotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := db.LoadJob(context.Background(), "nope")
	if err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRankingRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.SaveJob(ctx, sampleJob(domain.JobDone)); err != nil {
		t.Fatalf("save: %v", err)
	}

	ranked, err := db.Ranking(ctx, "job-1")
	if err != nil {
		t.Fatalf("ranking: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("ranked: %d", len(ranked))
	}
	if ranked[0].Profile.Identity != "linkedin:jane" || ranked[1].Profile.Identity != "github:jdoe" {
		t.Fatalf("order: %s, %s", ranked[0].Profile.Identity, ranked[1].Profile.Identity)
	}
	if ranked[0].Outreach != "Hi Jane, quick note." {
		t.Fatalf("outreach lost: %q", ranked[0].Outreach)
	}
	if ranked[1].Outreach != "" {
		t.Fatalf("only the top slice gets outreach: %q", ranked[1].Outreach)
	}
	if ranked[0].Score.Categories[domain.CategorySkills].Score != 9.5 {
		t.Fatalf("breakdown lost: %+v", ranked[0].Score.Categories)
	}
}

func TestSecondProcessCannotShareDataDir(t *testing.T) {
	dir := t.TempDir()
	first, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer first.Close()

	if _, err := Open(dir); err == nil {
		t.Fatal("second open on a locked data dir must fail")
	}
}

func TestCleanupOldJobs(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	old := sampleJob(domain.JobDone)
	if err := db.SaveJob(ctx, old); err != nil {
		t.Fatalf("save: %v", err)
	}

	n, err := db.CleanupOldJobs(ctx, time.Hour)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted %d jobs, want 1", n)
	}
	if _, err := db.LoadJob(ctx, "job-1"); err != domain.ErrNotFound {
		t.Fatalf("job should be gone, got %v", err)
	}
	if ranked, _ := db.Ranking(ctx, "job-1"); len(ranked) != 0 {
		t.Fatalf("ranking rows should be gone: %d", len(ranked))
	}
}
