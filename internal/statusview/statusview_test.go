package statusview

import (
	"context"
	"testing"

	"github.com/watchdog-hq/sentinel/internal/watchdog"
)

type fakeStore struct {
	projects []watchdog.Project
	checks   map[string][]watchdog.Check
	logs     map[string][]watchdog.Log
}

func (f *fakeStore) ListProjects(_ context.Context) ([]watchdog.Project, error) {
	return f.projects, nil
}

func (f *fakeStore) GetProject(_ context.Context, id string) (watchdog.Project, error) {
	for _, p := range f.projects {
		if p.ID == id {
			return p, nil
		}
	}
	return watchdog.Project{}, watchdog.ErrNotFound
}

func (f *fakeStore) ListChecksByProject(_ context.Context, projectID string) ([]watchdog.Check, error) {
	return f.checks[projectID], nil
}

func (f *fakeStore) ListLogs(_ context.Context, checkID string, limit int) ([]watchdog.Log, error) {
	logs := f.logs[checkID]
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func TestOverviewSortsChecksAndReportsMaintenance(t *testing.T) {
	t.Parallel()
	st := &fakeStore{
		projects: []watchdog.Project{
			{ID: "proj1", DisplayName: "Proj One", MaintenanceUntil: 2000},
		},
		checks: map[string][]watchdog.Check{
			"proj1": {
				{Name: "zeta", Status: watchdog.StatusOK},
				{Name: "alpha", Status: watchdog.StatusError, FailureCount: 2},
			},
		},
	}
	v := New(st)

	overview, err := v.Overview(context.Background(), 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(overview) != 1 {
		t.Fatalf("expected 1 project, got %d", len(overview))
	}
	p := overview[0]
	if !p.InMaintenance {
		t.Fatalf("expected maintenance active at now=1000 until=2000")
	}
	if len(p.Checks) != 2 || p.Checks[0].Name != "alpha" || p.Checks[1].Name != "zeta" {
		t.Fatalf("expected checks sorted by name, got %+v", p.Checks)
	}
}

func TestProjectNotFound(t *testing.T) {
	t.Parallel()
	v := New(&fakeStore{})
	if _, err := v.Project(context.Background(), "missing", 0); err != watchdog.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLogsClampsToLimit(t *testing.T) {
	t.Parallel()
	st := &fakeStore{logs: map[string][]watchdog.Log{
		"proj1:web": {
			{Status: watchdog.StatusOK, CreatedAt: 3},
			{Status: watchdog.StatusOK, CreatedAt: 2},
			{Status: watchdog.StatusOK, CreatedAt: 1},
		},
	}}
	v := New(st)

	entries, err := v.Logs(context.Background(), "proj1", "web", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}
