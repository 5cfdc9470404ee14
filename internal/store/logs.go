package store

import (
	"context"

	"github.com/watchdog-hq/sentinel/internal/watchdog"
)

// AppendLog appends a single per-event log record. Callers write it only
// after the corresponding state write has committed.
func (s *Store) AppendLog(ctx context.Context, l watchdog.Log) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (check_id, status, latency, message, created_at) VALUES (?, ?, ?, ?, ?)`,
		l.CheckID, l.Status, l.Latency, l.Message, l.CreatedAt,
	)
	return err
}

// ListLogs returns the most recent log rows for a check, newest first,
// clamped to a sane limit.
func (s *Store) ListLogs(ctx context.Context, checkID string, limit int) ([]watchdog.Log, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, check_id, status, latency, message, created_at FROM logs
		WHERE check_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, checkID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]watchdog.Log, 0, limit)
	for rows.Next() {
		var l watchdog.Log
		if err := rows.Scan(&l.ID, &l.CheckID, &l.Status, &l.Latency, &l.Message, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// PruneLogs deletes log rows older than 7 days. The Sweeper swallows any
// error, logging it rather than aborting the tick.
func (s *Store) PruneLogs(ctx context.Context, now int64) (int64, error) {
	const retention = 7 * 24 * 60 * 60
	result, err := s.db.ExecContext(ctx, `DELETE FROM logs WHERE created_at < ?`, now-retention)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
