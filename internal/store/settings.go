package store

import (
	"context"
	"database/sql"
	"errors"
)

// GetSettingValue reads a raw settings row by key, returning ok=false if
// absent so the Settings Provider can apply its own defaults.
func (s *Store) GetSettingValue(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetSettingValue upserts a settings row. Settings are read-only from the
// core's perspective and are mutated only by the admin collaborator; this
// is exposed for that collaborator and for test/bootstrap seeding.
func (s *Store) SetSettingValue(ctx context.Context, key, value string, now int64) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now)
	return err
}
