// Package sweep implements the once-a-minute tick: self-pulse, overdue
// scan, and log pruning, each isolated so one failing check cannot abort
// the tick.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/watchdog-hq/sentinel/internal/clock"
	"github.com/watchdog-hq/sentinel/internal/settings"
	"github.com/watchdog-hq/sentinel/internal/store"
	"github.com/watchdog-hq/sentinel/internal/watchdog"
)

// maxConflictRetries mirrors the ingestor's bound on optimistic-concurrency
// retries for the commit path shared with overdue checks.
const maxConflictRetries = 2

// Store is the persistence surface the sweeper needs.
type Store interface {
	GetProject(ctx context.Context, id string) (watchdog.Project, error)
	GetCheck(ctx context.Context, projectID, name string) (store.CheckRow, error)
	UpdateCheckState(ctx context.Context, c watchdog.Check, expectedVersion int64) error
	AppendLog(ctx context.Context, l watchdog.Log) error
	ListOverdueChecks(ctx context.Context, now int64) ([]store.CheckRow, error)
	PruneLogs(ctx context.Context, now int64) (int64, error)
}

// Notifier delivers an alert produced by a transition.
type Notifier interface {
	Notify(ctx context.Context, alert watchdog.Alert)
}

// Sweeper runs the periodic tick described by the Sweeper component.
type Sweeper struct {
	store    Store
	settings *settings.Provider
	notifier Notifier
	clock    clock.Clock
}

// New creates a Sweeper.
func New(st Store, settingsProvider *settings.Provider, notifier Notifier, clk clock.Clock) *Sweeper {
	return &Sweeper{store: st, settings: settingsProvider, notifier: notifier, clock: clk}
}

// Result summarizes one tick, for logging and tests.
type Result struct {
	OverdueProcessed int
	OverdueFailed    int
	LogsPruned       int64
}

// Tick runs the self-pulse, overdue scan, and log prune in sequence. Errors
// from individual checks are logged and do not abort the remainder of the
// tick.
func (s *Sweeper) Tick(ctx context.Context) Result {
	now := s.clock.Now()
	var result Result

	if err := s.selfPulse(ctx, now); err != nil {
		slog.Error("sweep: self-pulse failed", "error", err)
	}

	overdue, err := s.store.ListOverdueChecks(ctx, now)
	if err != nil {
		slog.Error("sweep: list overdue checks failed", "error", err)
	}
	for _, row := range overdue {
		if row.Check.ProjectID == store.SelfProjectID && row.Check.Name == store.SelfCheckName {
			continue
		}
		if err := s.commitDead(ctx, row, now); err != nil {
			result.OverdueFailed++
			slog.Error("sweep: overdue check failed", "check", row.Check.Key(), "error", err)
			continue
		}
		result.OverdueProcessed++
	}

	pruned, err := s.store.PruneLogs(ctx, now)
	if err != nil {
		slog.Error("sweep: log prune failed", "error", err)
	}
	result.LogsPruned = pruned

	return result
}

// selfPulse unconditionally marks the reserved self-health check ok, proving
// the tick handler itself is alive.
func (s *Sweeper) selfPulse(ctx context.Context, now int64) error {
	project, err := s.store.GetProject(ctx, store.SelfProjectID)
	if err != nil {
		return fmt.Errorf("load self-health project: %w", err)
	}

	row, err := s.store.GetCheck(ctx, store.SelfProjectID, store.SelfCheckName)
	if err != nil {
		return fmt.Errorf("load self-health check: %w", err)
	}

	cfg, err := s.settings.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolve settings: %w", err)
	}

	next, _ := watchdog.Transition(row.Check, project, watchdog.PulseOK("tick alive", 0), cfg.CoreSettings(), now)
	if err := s.store.UpdateCheckState(ctx, next, row.Version); err != nil {
		return fmt.Errorf("commit self-health state: %w", err)
	}
	return s.store.AppendLog(ctx, watchdog.Log{
		CheckID:   next.Key(),
		Status:    next.Status,
		CreatedAt: now,
	})
}

// commitDead re-derives and commits a dead transition for one overdue check,
// retrying on optimistic-concurrency conflict the same way the ingestor does.
func (s *Sweeper) commitDead(ctx context.Context, row store.CheckRow, now int64) error {
	project, err := s.store.GetProject(ctx, row.Check.ProjectID)
	if err != nil {
		return err
	}

	cfg, err := s.settings.Resolve(ctx)
	if err != nil {
		return err
	}

	var alert *watchdog.Alert
	committed := false
	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		current, err := s.store.GetCheck(ctx, row.Check.ProjectID, row.Check.Name)
		if err != nil {
			return err
		}
		if !watchdog.Overdue(current.Check, now) {
			return nil
		}

		event := watchdog.Dead(now - current.Check.LastSeen)
		var next watchdog.Check
		next, alert = watchdog.Transition(current.Check, project, event, cfg.CoreSettings(), now)

		err = s.store.UpdateCheckState(ctx, next, current.Version)
		if err == nil {
			row.Check = next
			committed = true
			break
		}
		if !errors.Is(err, watchdog.ErrConflict) {
			return err
		}
	}
	if !committed {
		return fmt.Errorf("exhausted retries committing dead transition for %s", row.Check.Key())
	}

	if err := s.store.AppendLog(ctx, watchdog.Log{
		CheckID:   row.Check.Key(),
		Status:    row.Check.Status,
		Message:   row.Check.LastMessage,
		CreatedAt: now,
	}); err != nil {
		slog.Error("sweep: append log failed", "check", row.Check.Key(), "error", err)
	}

	if alert != nil {
		s.notifier.Notify(ctx, *alert)
	}
	return nil
}
