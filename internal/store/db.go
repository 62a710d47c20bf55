package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

// DB owns the sqlite pool and the data-dir lock. The lock keeps a second
// engine process from sharing the same database file.
type DB struct {
	Pool *sql.DB
	lock *flock.Flock
}

func Open(dataDir string) (*DB, error) {
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock data dir: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("data dir %s is in use by another engine process", dataDir)
	}

	// modernc sqlite DSN: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.Join(dataDir, "engine.db"))

	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	pool.SetMaxOpenConns(1) // sqlite wants a single writer
	pool.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		_ = lock.Unlock()
		return nil, err
	}

	return &DB{Pool: pool, lock: lock}, nil
}

func (d *DB) Close() error {
	if d == nil {
		return nil
	}
	var err error
	if d.Pool != nil {
		err = d.Pool.Close()
	}
	if d.lock != nil {
		if uerr := d.lock.Unlock(); err == nil {
			err = uerr
		}
	}
	return err
}
