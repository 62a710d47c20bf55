package store

import "database/sql"

func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= 1 {
		return tx.Commit()
	}

	// ---- Schema v1 ----

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS jobs (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  company TEXT NOT NULL DEFAULT '',
  state TEXT NOT NULL,
  requirement TEXT NOT NULL,
  failure_reason TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL,
  finished_at TEXT NOT NULL DEFAULT ''
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS candidates (
  job_id TEXT NOT NULL,
  identity TEXT NOT NULL,
  profile TEXT NOT NULL,
  PRIMARY KEY (job_id, identity)
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS candidate_scores (
  job_id TEXT NOT NULL,
  identity TEXT NOT NULL,
  rank INTEGER NOT NULL,
  total REAL NOT NULL,
  confidence REAL NOT NULL,
  breakdown TEXT NOT NULL DEFAULT '{}',
  PRIMARY KEY (job_id, identity)
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS outreach_messages (
  job_id TEXT NOT NULL,
  identity TEXT NOT NULL,
  message TEXT NOT NULL,
  created_at TEXT NOT NULL,
  PRIMARY KEY (job_id, identity)
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
`); err != nil {
		return err
	}
	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_scores_job_rank ON candidate_scores(job_id, rank);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}
	return tx.Commit()
}
