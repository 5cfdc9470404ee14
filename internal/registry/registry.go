// Package registry implements the Config Upserter: registering and updating
// project and check rule rows, and the project-scoped maintenance-window and
// token-rotation operations that sit alongside it in the admin-facing API.
package registry

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/watchdog-hq/sentinel/internal/clock"
	"github.com/watchdog-hq/sentinel/internal/watchdog"
)

const (
	defaultInterval = 300
	defaultGrace    = 60
	defaultThreshold = 1
	defaultCooldown  = 900
)

// Store is the persistence surface the registry needs.
type Store interface {
	GetProject(ctx context.Context, id string) (watchdog.Project, error)
	RegisterProject(ctx context.Context, id, token, displayName string, now int64) error
	UpsertCheckRule(ctx context.Context, c watchdog.Check) error
	SetMaintenance(ctx context.Context, projectID string, until int64) error
	RotateProjectToken(ctx context.Context, projectID, newToken string) error
}

// CheckSpec is one check as presented on the wire to Register; zero-valued
// optional fields receive the defaults from spec §6.2.
type CheckSpec struct {
	Name        string
	DisplayName string
	Type        watchdog.CheckType
	Interval    int64
	Grace       int64
	Threshold   int64
	Cooldown    int64
}

// Registry is the Config Upserter (§4.6).
type Registry struct {
	store Store
	clock clock.Clock
}

// New creates a Registry.
func New(store Store, clk clock.Clock) *Registry {
	return &Registry{store: store, clock: clk}
}

// Register upserts a project and its check rules. If the project already
// exists, token must match it (else watchdog.ErrForbidden); otherwise a new
// project row is created. Each check's rule attributes are upserted with
// the §6.2 defaults applied for any zero-valued optional field; state
// attributes on existing rows are left untouched (enforced by
// Store.UpsertCheckRule). Returns the number of checks registered.
func (r *Registry) Register(ctx context.Context, token, projectID, displayName string, checks []CheckSpec) (int, error) {
	projectID = strings.TrimSpace(projectID)
	token = strings.TrimSpace(token)
	if projectID == "" || token == "" {
		return 0, fmt.Errorf("%w: project_id and token are required", watchdog.ErrInvalidRequest)
	}

	if err := r.store.RegisterProject(ctx, projectID, token, displayName, r.clock.Now()); err != nil {
		return 0, err
	}

	for _, spec := range checks {
		check, err := buildCheck(projectID, spec)
		if err != nil {
			return 0, err
		}
		if err := r.store.UpsertCheckRule(ctx, check); err != nil {
			return 0, fmt.Errorf("upsert check %s: %w", check.Key(), err)
		}
	}
	return len(checks), nil
}

func buildCheck(projectID string, spec CheckSpec) (watchdog.Check, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return watchdog.Check{}, fmt.Errorf("%w: check name is required", watchdog.ErrInvalidRequest)
	}
	switch spec.Type {
	case watchdog.CheckHeartbeat, watchdog.CheckEvent:
	default:
		return watchdog.Check{}, fmt.Errorf("%w: check type must be \"heartbeat\" or \"event\"", watchdog.ErrInvalidRequest)
	}

	check := watchdog.Check{
		ProjectID:   projectID,
		Name:        name,
		DisplayName: spec.DisplayName,
		Type:        spec.Type,
		Interval:    spec.Interval,
		Grace:       spec.Grace,
		Threshold:   spec.Threshold,
		Cooldown:    spec.Cooldown,
		Monitor:     true,
	}
	if check.Interval <= 0 {
		check.Interval = defaultInterval
	}
	if check.Grace <= 0 {
		check.Grace = defaultGrace
	}
	if check.Threshold <= 0 {
		check.Threshold = defaultThreshold
	}
	if check.Cooldown <= 0 {
		check.Cooldown = defaultCooldown
	}
	return check, nil
}

// SetMaintenance implements §6.3: enabled=true sets maintenance_until to
// now+duration (default 3600s); enabled=false clears it; enabled=nil toggles
// the current state. Returns the resulting maintenance_until.
func (r *Registry) SetMaintenance(ctx context.Context, projectID string, duration *int64, enabled *bool) (int64, error) {
	project, err := r.store.GetProject(ctx, projectID)
	if err != nil {
		return 0, err
	}

	now := r.clock.Now()
	span := int64(3600)
	if duration != nil && *duration > 0 {
		span = *duration
	}

	var until int64
	switch {
	case enabled != nil && *enabled:
		until = now + span
	case enabled != nil && !*enabled:
		until = 0
	default: // toggle
		if project.InMaintenance(now) {
			until = 0
		} else {
			until = now + span
		}
	}

	if err := r.store.SetMaintenance(ctx, projectID, until); err != nil {
		return 0, err
	}
	return until, nil
}

// RotateToken reissues a project's token and returns the new value.
func (r *Registry) RotateToken(ctx context.Context, projectID string) (string, error) {
	if _, err := r.store.GetProject(ctx, projectID); err != nil {
		return "", err
	}
	token, err := randomToken()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	if err := r.store.RotateProjectToken(ctx, projectID, token); err != nil {
		return "", err
	}
	return token, nil
}

func randomToken() (string, error) {
	var b [20]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
