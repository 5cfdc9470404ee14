// Package ingest implements the pulse ingestion contract: authenticate,
// resolve the target check, run it through the state machine, and commit
// the result.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/watchdog-hq/sentinel/internal/auth"
	"github.com/watchdog-hq/sentinel/internal/clock"
	"github.com/watchdog-hq/sentinel/internal/settings"
	"github.com/watchdog-hq/sentinel/internal/store"
	"github.com/watchdog-hq/sentinel/internal/watchdog"
)

// maxConflictRetries bounds the optimistic-concurrency retry loop: the
// first write is attempt zero, so this allows up to three total attempts.
const maxConflictRetries = 2

// Store is the persistence surface the ingestor needs.
type Store interface {
	GetProject(ctx context.Context, id string) (watchdog.Project, error)
	GetProjectByToken(ctx context.Context, token string) (watchdog.Project, error)
	GetCheck(ctx context.Context, projectID, name string) (store.CheckRow, error)
	UpdateCheckState(ctx context.Context, c watchdog.Check, expectedVersion int64) error
	AppendLog(ctx context.Context, l watchdog.Log) error
}

// Notifier delivers an alert produced by a transition.
type Notifier interface {
	Notify(ctx context.Context, alert watchdog.Alert)
}

// Request is one pulse, already shaped from the wire body.
type Request struct {
	Token     string
	ProjectID string
	CheckName string
	Status    string // "ok" or "error"; defaults to "ok"
	Message   string
	Latency   int64
}

// Result is the acknowledgement returned to the caller.
type Result struct {
	CheckID string
	Status  watchdog.Status
	Now     int64
}

// Ingestor wires the Store, Settings Provider, clock, and Notifier together
// to service ingest(token, project_id?, check_name, status, message?, latency?).
type Ingestor struct {
	store    Store
	auth     *auth.Authenticator
	settings *settings.Provider
	notifier Notifier
	clock    clock.Clock
}

// New creates an Ingestor.
func New(st Store, authenticator *auth.Authenticator, settingsProvider *settings.Provider, notifier Notifier, clk clock.Clock) *Ingestor {
	return &Ingestor{store: st, auth: authenticator, settings: settingsProvider, notifier: notifier, clock: clk}
}

// Ingest authenticates req, resolves the check, runs the state machine, and
// commits the result. Returns watchdog.ErrUnauthorized, ErrForbidden,
// ErrNotFound, or ErrInvalidRequest for the user-visible failure cases.
func (ig *Ingestor) Ingest(ctx context.Context, req Request) (Result, error) {
	req.CheckName = strings.TrimSpace(req.CheckName)
	if req.CheckName == "" {
		return Result{}, fmt.Errorf("%w: check_name is required", watchdog.ErrInvalidRequest)
	}
	event, err := toEvent(req)
	if err != nil {
		return Result{}, err
	}

	project, err := ig.auth.Resolve(ctx, req.ProjectID, req.Token)
	if err != nil {
		return Result{}, err
	}

	now := ig.clock.Now()
	checkKey := watchdog.Key(project.ID, req.CheckName)

	var row store.CheckRow
	var alert *watchdog.Alert
	committed := false
	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		row, err = ig.store.GetCheck(ctx, project.ID, req.CheckName)
		if err != nil {
			return Result{}, err
		}

		cfg, err := ig.settings.Resolve(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("resolve settings: %w", err)
		}

		var next watchdog.Check
		next, alert = watchdog.Transition(row.Check, project, event, cfg.CoreSettings(), now)

		err = ig.store.UpdateCheckState(ctx, next, row.Version)
		if err == nil {
			row.Check = next
			committed = true
			break
		}
		if !errors.Is(err, watchdog.ErrConflict) {
			return Result{}, err
		}
	}
	if !committed {
		slog.Warn("ingest: dropping pulse after repeated version conflicts", "check", checkKey)
		return Result{CheckID: checkKey, Status: row.Check.Status, Now: now}, nil
	}

	if err := ig.store.AppendLog(ctx, watchdog.Log{
		CheckID:   row.Check.Key(),
		Status:    row.Check.Status,
		Latency:   req.Latency,
		Message:   row.Check.LastMessage,
		CreatedAt: now,
	}); err != nil {
		slog.Error("ingest: append log failed", "check", row.Check.Key(), "error", err)
	}

	if alert != nil {
		ig.notifier.Notify(ctx, *alert)
	}

	return Result{CheckID: row.Check.Key(), Status: row.Check.Status, Now: now}, nil
}

func toEvent(req Request) (watchdog.Event, error) {
	switch strings.ToLower(strings.TrimSpace(req.Status)) {
	case "", "ok":
		return watchdog.PulseOK(req.Message, req.Latency), nil
	case "error":
		return watchdog.PulseError(req.Message, req.Latency), nil
	default:
		return watchdog.Event{}, fmt.Errorf("%w: status must be \"ok\" or \"error\"", watchdog.ErrInvalidRequest)
	}
}
