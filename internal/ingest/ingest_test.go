package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/watchdog-hq/sentinel/internal/auth"
	"github.com/watchdog-hq/sentinel/internal/clock"
	"github.com/watchdog-hq/sentinel/internal/settings"
	"github.com/watchdog-hq/sentinel/internal/store"
	"github.com/watchdog-hq/sentinel/internal/watchdog"
)

type fakeStore struct {
	projects map[string]watchdog.Project
	byToken  map[string]watchdog.Project
	checks   map[string]store.CheckRow
	logs     []watchdog.Log

	conflictsRemaining int
	updateCalls        int
}

func (f *fakeStore) GetProject(_ context.Context, id string) (watchdog.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return watchdog.Project{}, watchdog.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) GetProjectByToken(_ context.Context, token string) (watchdog.Project, error) {
	p, ok := f.byToken[token]
	if !ok {
		return watchdog.Project{}, watchdog.ErrUnauthorized
	}
	return p, nil
}

func (f *fakeStore) GetCheck(_ context.Context, projectID, name string) (store.CheckRow, error) {
	row, ok := f.checks[watchdog.Key(projectID, name)]
	if !ok {
		return store.CheckRow{}, watchdog.ErrNotFound
	}
	return row, nil
}

func (f *fakeStore) UpdateCheckState(_ context.Context, c watchdog.Check, expectedVersion int64) error {
	f.updateCalls++
	key := c.Key()
	row := f.checks[key]
	if row.Version != expectedVersion {
		return watchdog.ErrConflict
	}
	if f.conflictsRemaining > 0 {
		f.conflictsRemaining--
		row.Version++ // simulate a concurrent writer bumping the version
		f.checks[key] = row
		return watchdog.ErrConflict
	}
	row.Check = c
	row.Version++
	f.checks[key] = row
	return nil
}

func (f *fakeStore) AppendLog(_ context.Context, l watchdog.Log) error {
	f.logs = append(f.logs, l)
	return nil
}

type fakeNotifier struct {
	alerts []watchdog.Alert
}

func (f *fakeNotifier) Notify(_ context.Context, alert watchdog.Alert) {
	f.alerts = append(f.alerts, alert)
}

type fakeSettingsRepo struct{}

func (fakeSettingsRepo) GetSettingValue(_ context.Context, _ string) (string, bool, error) {
	return "", false, nil
}

func newFixture(t *testing.T) (*fakeStore, *fakeNotifier, *Ingestor) {
	t.Helper()
	project := watchdog.Project{ID: "proj1", Token: "tok", DisplayName: "Proj"}
	st := &fakeStore{
		projects: map[string]watchdog.Project{"proj1": project},
		byToken:  map[string]watchdog.Project{"tok": project},
		checks: map[string]store.CheckRow{
			"proj1:web": {
				Check: watchdog.Check{
					ProjectID: "proj1", Name: "web", Type: watchdog.CheckHeartbeat,
					Interval: 60, Grace: 10, Threshold: 2, Cooldown: 600, Monitor: true,
					Status: watchdog.StatusOK,
				},
				Version: 0,
			},
		},
	}
	notif := &fakeNotifier{}
	ig := New(st, auth.New(st), settings.New(fakeSettingsRepo{}), notif, &clock.Fixed{T: 1000})
	return st, notif, ig
}

func TestIngestRejectsMissingCheckName(t *testing.T) {
	t.Parallel()
	_, _, ig := newFixture(t)
	_, err := ig.Ingest(context.Background(), Request{Token: "tok", CheckName: " "})
	if !errors.Is(err, watchdog.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestIngestUnauthorizedWithoutToken(t *testing.T) {
	t.Parallel()
	_, _, ig := newFixture(t)
	_, err := ig.Ingest(context.Background(), Request{CheckName: "web"})
	if !errors.Is(err, watchdog.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestIngestNotFoundForUnregisteredCheck(t *testing.T) {
	t.Parallel()
	_, _, ig := newFixture(t)
	_, err := ig.Ingest(context.Background(), Request{Token: "tok", CheckName: "missing"})
	if !errors.Is(err, watchdog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIngestPulseErrorAccumulatesAndAlertsAtThreshold(t *testing.T) {
	t.Parallel()
	st, notif, ig := newFixture(t)

	res, err := ig.Ingest(context.Background(), Request{Token: "tok", CheckName: "web", Status: "error"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != watchdog.StatusError {
		t.Fatalf("expected error status, got %s", res.Status)
	}
	if len(notif.alerts) != 0 {
		t.Fatalf("expected no alert below threshold, got %d", len(notif.alerts))
	}

	if _, err := ig.Ingest(context.Background(), Request{Token: "tok", CheckName: "web", Status: "error"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notif.alerts) != 1 {
		t.Fatalf("expected one alert at threshold, got %d", len(notif.alerts))
	}
	if len(st.logs) != 2 {
		t.Fatalf("expected two log rows, got %d", len(st.logs))
	}
}

func TestIngestRetriesOnVersionConflict(t *testing.T) {
	t.Parallel()
	st, _, ig := newFixture(t)
	st.conflictsRemaining = 1

	res, err := ig.Ingest(context.Background(), Request{Token: "tok", CheckName: "web", Status: "ok"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != watchdog.StatusOK {
		t.Fatalf("expected ok status after retry, got %s", res.Status)
	}
	if st.updateCalls != 2 {
		t.Fatalf("expected exactly one retry (2 update calls), got %d", st.updateCalls)
	}
}

func TestIngestDropsAfterExhaustingRetries(t *testing.T) {
	t.Parallel()
	st, notif, ig := newFixture(t)
	st.conflictsRemaining = maxConflictRetries + 1

	res, err := ig.Ingest(context.Background(), Request{Token: "tok", CheckName: "web", Status: "ok"})
	if err != nil {
		t.Fatalf("conflict exhaustion must not surface as an error, got %v", err)
	}
	if res.CheckID != "proj1:web" {
		t.Fatalf("expected check id even on drop, got %q", res.CheckID)
	}
	if len(notif.alerts) != 0 {
		t.Fatalf("expected no notification on dropped pulse")
	}
}
