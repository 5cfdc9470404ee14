// Package statusview builds the read-only JSON snapshots behind §6.4's
// status endpoints: a purely derived projection over the Store, grounded on
// the teacher's opsplane.Overview/ServiceStatus read-model shape.
package statusview

import (
	"context"
	"fmt"
	"sort"

	"github.com/watchdog-hq/sentinel/internal/watchdog"
)

// Store is the persistence surface the status view reads.
type Store interface {
	ListProjects(ctx context.Context) ([]watchdog.Project, error)
	GetProject(ctx context.Context, id string) (watchdog.Project, error)
	ListChecksByProject(ctx context.Context, projectID string) ([]watchdog.Check, error)
	ListLogs(ctx context.Context, checkID string, limit int) ([]watchdog.Log, error)
}

// CheckSummary is the per-check slice of a project snapshot.
type CheckSummary struct {
	Name         string             `json:"name"`
	DisplayName  string             `json:"display_name,omitempty"`
	Type         watchdog.CheckType `json:"type"`
	Status       watchdog.Status    `json:"status"`
	Monitor      bool               `json:"monitor"`
	LastSeen     int64              `json:"last_seen"`
	FailureCount int64              `json:"failure_count"`
	LastAlertAt  int64              `json:"last_alert_at"`
	LastMessage  string             `json:"last_message,omitempty"`
}

// ProjectSummary is one project's snapshot: its maintenance state plus every
// registered check's current state.
type ProjectSummary struct {
	ID               string         `json:"id"`
	DisplayName      string         `json:"display_name"`
	InMaintenance    bool           `json:"in_maintenance"`
	MaintenanceUntil int64          `json:"maintenance_until"`
	Checks           []CheckSummary `json:"checks"`
}

// View resolves status snapshots from the Store.
type View struct {
	store Store
}

// New creates a View over store.
func New(store Store) *View {
	return &View{store: store}
}

// Overview returns a snapshot of every project, ordered by id.
func (v *View) Overview(ctx context.Context, now int64) ([]ProjectSummary, error) {
	projects, err := v.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProjectSummary, 0, len(projects))
	for _, p := range projects {
		summary, err := v.projectSummary(ctx, p, now)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, nil
}

// Project returns the snapshot for a single project.
func (v *View) Project(ctx context.Context, projectID string, now int64) (ProjectSummary, error) {
	p, err := v.store.GetProject(ctx, projectID)
	if err != nil {
		return ProjectSummary{}, err
	}
	return v.projectSummary(ctx, p, now)
}

func (v *View) projectSummary(ctx context.Context, p watchdog.Project, now int64) (ProjectSummary, error) {
	checks, err := v.store.ListChecksByProject(ctx, p.ID)
	if err != nil {
		return ProjectSummary{}, err
	}
	sort.Slice(checks, func(i, j int) bool { return checks[i].Name < checks[j].Name })

	summaries := make([]CheckSummary, 0, len(checks))
	for _, c := range checks {
		summaries = append(summaries, CheckSummary{
			Name:         c.Name,
			DisplayName:  c.DisplayName,
			Type:         c.Type,
			Status:       c.Status,
			Monitor:      c.Monitor,
			LastSeen:     c.LastSeen,
			FailureCount: c.FailureCount,
			LastAlertAt:  c.LastAlertAt,
			LastMessage:  c.LastMessage,
		})
	}

	return ProjectSummary{
		ID:               p.ID,
		DisplayName:      p.DisplayName,
		InMaintenance:    p.InMaintenance(now),
		MaintenanceUntil: p.MaintenanceUntil,
		Checks:           summaries,
	}, nil
}

// LogEntry is one tail entry returned by Logs.
type LogEntry struct {
	Status    watchdog.Status `json:"status"`
	Latency   int64           `json:"latency"`
	Message   string          `json:"message,omitempty"`
	CreatedAt int64           `json:"created_at"`
}

// Logs returns the most recent log rows for a project's check, newest
// first, clamped to a sane limit by the Store.
func (v *View) Logs(ctx context.Context, projectID, checkName string, limit int) ([]LogEntry, error) {
	checkID := watchdog.Key(projectID, checkName)
	logs, err := v.store.ListLogs(ctx, checkID, limit)
	if err != nil {
		return nil, fmt.Errorf("list logs for %s: %w", checkID, err)
	}
	out := make([]LogEntry, 0, len(logs))
	for _, l := range logs {
		out = append(out, LogEntry{Status: l.Status, Latency: l.Latency, Message: l.Message, CreatedAt: l.CreatedAt})
	}
	return out, nil
}
