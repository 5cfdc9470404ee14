// Package store persists projects, checks, and logs in SQLite and exposes
// the row read/upsert/conditional-update primitives the core is built on.
// The durable store itself is out of spec scope (treated as a relational,
// range-queryable store with atomic single-row updates); this package is
// one concrete implementation of that contract.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/watchdog-hq/sentinel/internal/watchdog"
)

// SelfProjectID and SelfCheckName identify the well-known self-health check
// the Sweeper unconditionally pulses on every tick.
const (
	SelfProjectID = "watch-dog"
	SelfCheckName = "self-health"
)

// Store wraps a single-connection SQLite pool: writers are limited to one
// to avoid SQLITE_BUSY errors from concurrent HTTP handlers.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the SQLite database at dbPath, runs
// migrations, and bootstraps the reserved self-health project/check.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limit the pool to a
	// single connection so all access is serialized at the Go level,
	// preventing SQLITE_BUSY errors from concurrent ingest/sweep callers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	ctx := context.Background()
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.bootstrapSelfHealth(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap self-health check: %w", err)
	}
	return s, nil
}

// bootstrapSelfHealth registers the reserved watch-dog project and its
// self-health check on first run. It never touches an existing row.
func (s *Store) bootstrapSelfHealth(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO projects (id, token, display_name, maintenance_until, created_at)
		VALUES (?, '', 'Watch-Dog Sentinel', 0, 0)
		ON CONFLICT(id) DO NOTHING`, SelfProjectID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO checks (
		project_id, name, type, interval_s, grace_s, threshold, cooldown_s, monitor, status, last_seen, failure_count, last_alert_at, last_message
	) VALUES (?, ?, ?, 60, 30, 1, 0, 1, ?, 0, 0, 0, '')
	ON CONFLICT(project_id, name) DO NOTHING`,
		SelfProjectID, SelfCheckName, watchdog.CheckHeartbeat, watchdog.StatusOK)
	return err
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
