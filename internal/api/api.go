package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"

	"github.com/watchdog-hq/sentinel/internal/auth"
	"github.com/watchdog-hq/sentinel/internal/clock"
	"github.com/watchdog-hq/sentinel/internal/ingest"
	"github.com/watchdog-hq/sentinel/internal/registry"
	"github.com/watchdog-hq/sentinel/internal/statusview"
)

// Ingestor services §4.2 pulse ingestion.
type Ingestor interface {
	Ingest(ctx context.Context, req ingest.Request) (ingest.Result, error)
}

// Registry services §4.6 config upsert plus the maintenance and
// token-rotation operations layered alongside it.
type Registry interface {
	Register(ctx context.Context, token, projectID, displayName string, checks []registry.CheckSpec) (int, error)
	SetMaintenance(ctx context.Context, projectID string, duration *int64, enabled *bool) (int64, error)
	RotateToken(ctx context.Context, projectID string) (string, error)
}

// StatusView services §6.4 and the supplemented log-tail read endpoint.
type StatusView interface {
	Overview(ctx context.Context, now int64) ([]statusview.ProjectSummary, error)
	Project(ctx context.Context, projectID string, now int64) (statusview.ProjectSummary, error)
	Logs(ctx context.Context, projectID, checkName string, limit int) ([]statusview.LogEntry, error)
}

// Deps bundles everything the router's handlers call into.
type Deps struct {
	Ingestor      Ingestor
	Registry      Registry
	StatusView    StatusView
	Authenticator *auth.Authenticator
	Clock         clock.Clock

	AllowedOrigins    []string
	RateLimitPerToken int
	RateLimitBurst    int
}

// NewRouter builds the chi router for every endpoint in spec §6.
func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogMiddleware)
	r.Use(middleware.Recoverer)

	cors := corslib.New(corslib.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "X-Project-Token", "Content-Type"},
		AllowCredentials: false,
	})
	r.Use(cors.Handler)

	h := &handlers{deps: deps}
	limiter := newTokenLimiter(deps.RateLimitPerToken, deps.RateLimitBurst)

	r.Route("/api", func(r chi.Router) {
		r.With(rateLimitMiddleware(limiter)).Post("/pulse", h.handlePulse)
		r.Put("/config", h.handleRegister)
		r.Post("/config/{project_id}/rotate-token", h.handleRotateToken)
		r.Post("/maintenance/{project_id}", h.handleMaintenance)
		r.Get("/status", h.handleStatusOverview)
		r.Get("/status/{project_id}", h.handleStatusProject)
		r.Get("/status/{project_id}/checks/{name}/logs", h.handleStatusLogs)
	})

	return r
}

type handlers struct {
	deps Deps
}

func requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logRequest(r, ww.Status(), time.Since(start))
	})
}
