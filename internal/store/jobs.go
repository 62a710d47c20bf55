package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"talentscout-engine/internal/domain"
)

// SaveJob upserts the job row on every transition; terminal successful
// runs also persist the full ranking in the same transaction.
func (d *DB) SaveJob(ctx context.Context, job domain.BatchJob) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	reqJSON, err := json.Marshal(job.Requirement)
	if err != nil {
		return fmt.Errorf("marshal requirement: %w", err)
	}

	finished := ""
	if !job.FinishedAt.IsZero() {
		finished = job.FinishedAt.UTC().Format(time.RFC3339)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO jobs(id, title, company, state, requirement, failure_reason, created_at, finished_at)
VALUES(?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET
  state = excluded.state,
  failure_reason = excluded.failure_reason,
  finished_at = excluded.finished_at;`,
		job.ID, job.Requirement.Title, job.Requirement.Company, string(job.State),
		string(reqJSON), job.FailureReason,
		job.CreatedAt.UTC().Format(time.RFC3339), finished,
	); err != nil {
		return fmt.Errorf("upsert job: %w", err)
	}

	if job.State == domain.JobDone {
		if err := saveRanking(ctx, tx, job); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func saveRanking(ctx context.Context, tx *sql.Tx, job domain.BatchJob) error {
	outreach := map[string]string{}
	for _, c := range job.Top {
		if c.Outreach != "" {
			outreach[c.Profile.Identity] = c.Outreach
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for i, c := range job.Ranked {
		profileJSON, err := json.Marshal(c.Profile)
		if err != nil {
			return fmt.Errorf("marshal profile: %w", err)
		}
		breakdownJSON, err := json.Marshal(c.Score.Breakdown())
		if err != nil {
			return fmt.Errorf("marshal breakdown: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO candidates(job_id, identity, profile)
VALUES(?,?,?)
ON CONFLICT(job_id, identity) DO UPDATE SET profile = excluded.profile;`,
			job.ID, c.Profile.Identity, string(profileJSON)); err != nil {
			return fmt.Errorf("upsert candidate: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO candidate_scores(job_id, identity, rank, total, confidence, breakdown)
VALUES(?,?,?,?,?,?)
ON CONFLICT(job_id, identity) DO UPDATE SET
  rank = excluded.rank,
  total = excluded.total,
  confidence = excluded.confidence,
  breakdown = excluded.breakdown;`,
			job.ID, c.Profile.Identity, i+1, c.Score.Total, c.Score.Confidence,
			string(breakdownJSON)); err != nil {
			return fmt.Errorf("upsert score: %w", err)
		}

		if msg, ok := outreach[c.Profile.Identity]; ok {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO outreach_messages(job_id, identity, message, created_at)
VALUES(?,?,?,?)
ON CONFLICT(job_id, identity) DO UPDATE SET message = excluded.message;`,
				job.ID, c.Profile.Identity, msg, now); err != nil {
				return fmt.Errorf("upsert outreach: %w", err)
			}
		}
	}
	return nil
}

// JobRecord is a persisted job row without its ranking.
type JobRecord struct {
	ID            string                 `json:"id"`
	State         domain.JobState        `json:"state"`
	Requirement   domain.JobRequirement  `json:"requirement"`
	FailureReason string                 `json:"failure_reason,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	FinishedAt    time.Time              `json:"finished_at,omitempty"`
}

func (d *DB) LoadJob(ctx context.Context, id string) (JobRecord, error) {
	row := d.Pool.QueryRowContext(ctx, `
SELECT id, state, requirement, failure_reason, created_at, finished_at
FROM jobs WHERE id = ?;`, id)
	return scanJob(row)
}

func (d *DB) ListJobs(ctx context.Context, limit int) ([]JobRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := d.Pool.QueryContext(ctx, `
SELECT id, state, requirement, failure_reason, created_at, finished_at
FROM jobs ORDER BY created_at DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JobRecord
	for rows.Next() {
		rec, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (JobRecord, error) {
	var (
		rec               JobRecord
		state             string
		reqJSON           string
		created, finished string
	)
	if err := row.Scan(&rec.ID, &state, &reqJSON, &rec.FailureReason, &created, &finished); err != nil {
		if err == sql.ErrNoRows {
			return JobRecord{}, domain.ErrNotFound
		}
		return JobRecord{}, err
	}
	rec.State = domain.JobState(state)
	if err := json.Unmarshal([]byte(reqJSON), &rec.Requirement); err != nil {
		return JobRecord{}, fmt.Errorf("requirement for job %s: %w", rec.ID, err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, created)
	if finished != "" {
		rec.FinishedAt, _ = time.Parse(time.RFC3339, finished)
	}
	return rec, nil
}

// Ranking loads a finished job's full ranking, best first, with outreach
// messages joined in.
func (d *DB) Ranking(ctx context.Context, jobID string) ([]domain.RankedCandidate, error) {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT c.profile, s.total, s.confidence, s.breakdown, COALESCE(m.message, '')
FROM candidate_scores s
JOIN candidates c ON c.job_id = s.job_id AND c.identity = s.identity
LEFT JOIN outreach_messages m ON m.job_id = s.job_id AND m.identity = s.identity
WHERE s.job_id = ?
ORDER BY s.rank;`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RankedCandidate
	for rows.Next() {
		var (
			profileJSON, breakdownJSON string
			c                          domain.RankedCandidate
		)
		if err := rows.Scan(&profileJSON, &c.Score.Total, &c.Score.Confidence,
			&breakdownJSON, &c.Outreach); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(profileJSON), &c.Profile); err != nil {
			return nil, fmt.Errorf("profile in job %s: %w", jobID, err)
		}
		c.Score.Identity = c.Profile.Identity
		breakdown := map[string]float64{}
		if json.Unmarshal([]byte(breakdownJSON), &breakdown) == nil {
			c.Score.Categories = make(map[string]domain.CategoryScore, len(breakdown))
			for name, v := range breakdown {
				c.Score.Categories[name] = domain.CategoryScore{Score: v}
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CleanupOldJobs drops finished jobs and their rankings past the
// retention window.
func (d *DB) CleanupOldJobs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)

	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{
		`DELETE FROM candidates WHERE job_id IN (SELECT id FROM jobs WHERE finished_at != '' AND finished_at < ?);`,
		`DELETE FROM candidate_scores WHERE job_id IN (SELECT id FROM jobs WHERE finished_at != '' AND finished_at < ?);`,
		`DELETE FROM outreach_messages WHERE job_id IN (SELECT id FROM jobs WHERE finished_at != '' AND finished_at < ?);`,
	} {
		if _, err := tx.ExecContext(ctx, q, cutoff); err != nil {
			return 0, fmt.Errorf("cleanup: %w", err)
		}
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM jobs WHERE finished_at != '' AND finished_at < ?;`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup jobs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, tx.Commit()
}
