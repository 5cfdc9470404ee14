package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/watchdog-hq/sentinel/internal/watchdog"
)

// GetProject reads a project row by id.
func (s *Store) GetProject(ctx context.Context, id string) (watchdog.Project, error) {
	var p watchdog.Project
	err := s.db.QueryRowContext(ctx,
		`SELECT id, token, display_name, maintenance_until, created_at FROM projects WHERE id = ?`, id,
	).Scan(&p.ID, &p.Token, &p.DisplayName, &p.MaintenanceUntil, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return watchdog.Project{}, watchdog.ErrNotFound
	}
	if err != nil {
		return watchdog.Project{}, err
	}
	return p, nil
}

// GetProjectByToken resolves the unique project whose token matches. Used
// when a pulse omits project_id.
func (s *Store) GetProjectByToken(ctx context.Context, token string) (watchdog.Project, error) {
	var p watchdog.Project
	err := s.db.QueryRowContext(ctx,
		`SELECT id, token, display_name, maintenance_until, created_at FROM projects WHERE token = ?`, token,
	).Scan(&p.ID, &p.Token, &p.DisplayName, &p.MaintenanceUntil, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return watchdog.Project{}, watchdog.ErrUnauthorized
	}
	if err != nil {
		return watchdog.Project{}, err
	}
	return p, nil
}

// RegisterProject upserts a project's token/display_name, preserving
// maintenance_until and created_at on existing rows. Returns
// watchdog.ErrForbidden if the project exists under a different token.
func (s *Store) RegisterProject(ctx context.Context, id, token, displayName string, now int64) error {
	existing, err := s.GetProject(ctx, id)
	if err != nil && !errors.Is(err, watchdog.ErrNotFound) {
		return err
	}
	if err == nil {
		if existing.Token != token {
			return watchdog.ErrForbidden
		}
		_, err := s.db.ExecContext(ctx,
			`UPDATE projects SET display_name = ? WHERE id = ?`, displayName, id)
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO projects (id, token, display_name, maintenance_until, created_at) VALUES (?, ?, ?, 0, ?)`,
		id, token, displayName, now)
	return err
}

// RotateProjectToken reissues a project's token in place, leaving every
// other project and check attribute untouched.
func (s *Store) RotateProjectToken(ctx context.Context, projectID, newToken string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE projects SET token = ? WHERE id = ?`, newToken, projectID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return watchdog.ErrNotFound
	}
	return nil
}

// SetMaintenance sets a project's maintenance_until timestamp.
func (s *Store) SetMaintenance(ctx context.Context, projectID string, until int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE projects SET maintenance_until = ? WHERE id = ?`, until, projectID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return watchdog.ErrNotFound
	}
	return nil
}

// ListProjects returns every registered project, for status reads.
func (s *Store) ListProjects(ctx context.Context) ([]watchdog.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, token, display_name, maintenance_until, created_at FROM projects ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []watchdog.Project
	for rows.Next() {
		var p watchdog.Project
		if err := rows.Scan(&p.ID, &p.Token, &p.DisplayName, &p.MaintenanceUntil, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
