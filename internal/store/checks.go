package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/watchdog-hq/sentinel/internal/watchdog"
)

// CheckRow pairs a Check with the optimistic-concurrency version the Store
// read it at, so a caller can hand it back to UpdateCheckState unmodified.
type CheckRow struct {
	Check   watchdog.Check
	Version int64
}

const checkColumns = `project_id, name, display_name, type, interval_s, grace_s, threshold, cooldown_s, monitor,
	status, last_seen, failure_count, last_alert_at, last_message, version`

func scanCheckRow(scan func(dest ...any) error) (CheckRow, error) {
	var row CheckRow
	c := &row.Check
	err := scan(
		&c.ProjectID, &c.Name, &c.DisplayName, &c.Type, &c.Interval, &c.Grace, &c.Threshold, &c.Cooldown, &c.Monitor,
		&c.Status, &c.LastSeen, &c.FailureCount, &c.LastAlertAt, &c.LastMessage, &row.Version,
	)
	return row, err
}

// GetCheck reads a check row by (projectID, name), along with the version
// needed for a subsequent conditional UpdateCheckState.
func (s *Store) GetCheck(ctx context.Context, projectID, name string) (CheckRow, error) {
	row, err := scanCheckRow(s.db.QueryRowContext(ctx,
		`SELECT `+checkColumns+` FROM checks WHERE project_id = ? AND name = ?`, projectID, name).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return CheckRow{}, watchdog.ErrNotFound
	}
	if err != nil {
		return CheckRow{}, err
	}
	return row, nil
}

// UpsertCheckRule registers or updates a check's rule attributes. New rows
// get fresh default state (ok/0/0/0/''); existing rows keep their state
// attributes untouched.
func (s *Store) UpsertCheckRule(ctx context.Context, c watchdog.Check) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO checks (
		project_id, name, display_name, type, interval_s, grace_s, threshold, cooldown_s, monitor,
		status, last_seen, failure_count, last_alert_at, last_message, version
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, 0, '', 0)
	ON CONFLICT(project_id, name) DO UPDATE SET
		display_name = excluded.display_name,
		type = excluded.type,
		interval_s = excluded.interval_s,
		grace_s = excluded.grace_s,
		threshold = excluded.threshold,
		cooldown_s = excluded.cooldown_s,
		monitor = excluded.monitor`,
		c.ProjectID, c.Name, c.DisplayName, c.Type, c.Interval, c.Grace, c.Threshold, c.Cooldown, boolToInt(c.Monitor),
		watchdog.StatusOK,
	)
	return err
}

// UpdateCheckState writes back a check's state attributes, guarded by an
// unchanged-version optimistic-concurrency predicate. Returns
// watchdog.ErrConflict if another writer updated the row first; the caller
// is expected to re-read, re-run Transition, and retry, bounded to two
// retries (three attempts in all).
func (s *Store) UpdateCheckState(ctx context.Context, c watchdog.Check, expectedVersion int64) error {
	result, err := s.db.ExecContext(ctx, `UPDATE checks SET
		status = ?, last_seen = ?, failure_count = ?, last_alert_at = ?, last_message = ?, version = version + 1
		WHERE project_id = ? AND name = ? AND version = ?`,
		c.Status, c.LastSeen, c.FailureCount, c.LastAlertAt, c.LastMessage,
		c.ProjectID, c.Name, expectedVersion,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return watchdog.ErrConflict
	}
	return nil
}

// ListChecksByProject returns every check registered for a project, for
// status reads.
func (s *Store) ListChecksByProject(ctx context.Context, projectID string) ([]watchdog.Check, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+checkColumns+` FROM checks WHERE project_id = ? ORDER BY name`, projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []watchdog.Check
	for rows.Next() {
		row, err := scanCheckRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, row.Check)
	}
	return out, rows.Err()
}

// ListOverdueChecks selects heartbeat checks that are monitored, not already
// dead, and past their interval+grace deadline. The self-health check is
// excluded by the caller (the Sweeper), which pulses it directly.
func (s *Store) ListOverdueChecks(ctx context.Context, now int64) ([]CheckRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+checkColumns+` FROM checks
		WHERE type = ? AND monitor = 1 AND status != ? AND last_seen + interval_s + grace_s < ?
		ORDER BY project_id, name`,
		watchdog.CheckHeartbeat, watchdog.StatusDead, now)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []CheckRow
	for rows.Next() {
		row, err := scanCheckRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
