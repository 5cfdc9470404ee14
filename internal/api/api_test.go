package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/watchdog-hq/sentinel/internal/auth"
	"github.com/watchdog-hq/sentinel/internal/clock"
	"github.com/watchdog-hq/sentinel/internal/ingest"
	"github.com/watchdog-hq/sentinel/internal/registry"
	"github.com/watchdog-hq/sentinel/internal/statusview"
	"github.com/watchdog-hq/sentinel/internal/watchdog"
)

type fakeAuthRepo struct {
	projects map[string]watchdog.Project
}

func (f fakeAuthRepo) GetProject(_ context.Context, id string) (watchdog.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return watchdog.Project{}, watchdog.ErrNotFound
	}
	return p, nil
}

func (f fakeAuthRepo) GetProjectByToken(_ context.Context, token string) (watchdog.Project, error) {
	for _, p := range f.projects {
		if p.Token == token {
			return p, nil
		}
	}
	return watchdog.Project{}, watchdog.ErrUnauthorized
}

type fakeIngestor struct {
	result ingest.Result
	err    error
	gotReq ingest.Request
}

func (f *fakeIngestor) Ingest(_ context.Context, req ingest.Request) (ingest.Result, error) {
	f.gotReq = req
	return f.result, f.err
}

type fakeRegistry struct {
	registerN   int
	registerErr error
	maintUntil  int64
	maintErr    error
	newToken    string
	rotateErr   error
}

func (f *fakeRegistry) Register(_ context.Context, _, _, _ string, _ []registry.CheckSpec) (int, error) {
	return f.registerN, f.registerErr
}

func (f *fakeRegistry) SetMaintenance(_ context.Context, _ string, _ *int64, _ *bool) (int64, error) {
	return f.maintUntil, f.maintErr
}

func (f *fakeRegistry) RotateToken(_ context.Context, _ string) (string, error) {
	return f.newToken, f.rotateErr
}

type fakeStatusView struct {
	overview []statusview.ProjectSummary
	project  statusview.ProjectSummary
	logs     []statusview.LogEntry
	err      error
}

func (f *fakeStatusView) Overview(_ context.Context, _ int64) ([]statusview.ProjectSummary, error) {
	return f.overview, f.err
}

func (f *fakeStatusView) Project(_ context.Context, _ string, _ int64) (statusview.ProjectSummary, error) {
	return f.project, f.err
}

func (f *fakeStatusView) Logs(_ context.Context, _, _ string, _ int) ([]statusview.LogEntry, error) {
	return f.logs, f.err
}

func newTestRouter(ing *fakeIngestor, reg *fakeRegistry, sv *fakeStatusView, repo fakeAuthRepo) *testRouterFixture {
	return &testRouterFixture{
		router: NewRouter(Deps{
			Ingestor:          ing,
			Registry:          reg,
			StatusView:        sv,
			Authenticator:     auth.New(repo),
			Clock:             &clock.Fixed{T: 1000},
			RateLimitPerToken: 600,
			RateLimitBurst:    600,
		}),
	}
}

type testRouterFixture struct {
	router http.Handler
}

func TestHandlePulseSuccess(t *testing.T) {
	t.Parallel()
	ing := &fakeIngestor{result: ingest.Result{CheckID: "p:web", Status: watchdog.StatusOK, Now: 1000}}
	fx := newTestRouter(ing, &fakeRegistry{}, &fakeStatusView{}, fakeAuthRepo{})

	body, _ := json.Marshal(pulseRequest{CheckName: "web", Status: "ok"})
	req := httptest.NewRequest(http.MethodPost, "/api/pulse", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ing.gotReq.Token != "tok" || ing.gotReq.CheckName != "web" {
		t.Fatalf("expected ingest called with parsed request, got %+v", ing.gotReq)
	}
	var resp pulseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.CheckID != "p:web" || !resp.Success {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestHandlePulseMapsUnauthorized(t *testing.T) {
	t.Parallel()
	ing := &fakeIngestor{err: watchdog.ErrUnauthorized}
	fx := newTestRouter(ing, &fakeRegistry{}, &fakeStatusView{}, fakeAuthRepo{})

	body, _ := json.Marshal(pulseRequest{CheckName: "web"})
	req := httptest.NewRequest(http.MethodPost, "/api/pulse", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandlePulseMalformedBody(t *testing.T) {
	t.Parallel()
	fx := newTestRouter(&fakeIngestor{}, &fakeRegistry{}, &fakeStatusView{}, fakeAuthRepo{})

	req := httptest.NewRequest(http.MethodPost, "/api/pulse", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleRegisterSuccess(t *testing.T) {
	t.Parallel()
	reg := &fakeRegistry{registerN: 2}
	fx := newTestRouter(&fakeIngestor{}, reg, &fakeStatusView{}, fakeAuthRepo{})

	body, _ := json.Marshal(registerRequest{
		ProjectID: "proj1", DisplayName: "Proj",
		Checks: []checkSpecRequest{{Name: "web", Type: "heartbeat"}, {Name: "jobs", Type: "event"}},
	})
	req := httptest.NewRequest(http.MethodPut, "/api/config", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp registerResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.ChecksRegistered != 2 || resp.ProjectID != "proj1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestHandleMaintenanceRequiresAuth(t *testing.T) {
	t.Parallel()
	repo := fakeAuthRepo{projects: map[string]watchdog.Project{"proj1": {ID: "proj1", Token: "tok"}}}
	fx := newTestRouter(&fakeIngestor{}, &fakeRegistry{maintUntil: 4600}, &fakeStatusView{}, repo)

	req := httptest.NewRequest(http.MethodPost, "/api/maintenance/proj1", bytes.NewReader([]byte(`{"enabled":true}`)))
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for mismatched token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/maintenance/proj1", bytes.NewReader([]byte(`{"enabled":true}`)))
	req.Header.Set("Authorization", "Bearer tok")
	rec = httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with matching token, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleStatusOverview(t *testing.T) {
	t.Parallel()
	sv := &fakeStatusView{overview: []statusview.ProjectSummary{{ID: "proj1"}}}
	fx := newTestRouter(&fakeIngestor{}, &fakeRegistry{}, sv, fakeAuthRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got []statusview.ProjectSummary
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if len(got) != 1 || got[0].ID != "proj1" {
		t.Fatalf("unexpected overview: %+v", got)
	}
}

func TestHandleRotateTokenRequiresMatchingToken(t *testing.T) {
	t.Parallel()
	repo := fakeAuthRepo{projects: map[string]watchdog.Project{"proj1": {ID: "proj1", Token: "tok"}}}
	reg := &fakeRegistry{newToken: "fresh"}
	fx := newTestRouter(&fakeIngestor{}, reg, &fakeStatusView{}, repo)

	req := httptest.NewRequest(http.MethodPost, "/api/config/proj1/rotate-token", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for mismatched token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/config/proj1/rotate-token", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec = httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp rotateTokenResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Token != "fresh" {
		t.Fatalf("expected new token in response, got %+v", resp)
	}
}
