package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/robfig/cron/v3"

	"github.com/watchdog-hq/sentinel/internal/api"
	"github.com/watchdog-hq/sentinel/internal/auth"
	"github.com/watchdog-hq/sentinel/internal/clock"
	"github.com/watchdog-hq/sentinel/internal/config"
	"github.com/watchdog-hq/sentinel/internal/ingest"
	"github.com/watchdog-hq/sentinel/internal/notifier"
	"github.com/watchdog-hq/sentinel/internal/registry"
	"github.com/watchdog-hq/sentinel/internal/settings"
	"github.com/watchdog-hq/sentinel/internal/statusview"
	"github.com/watchdog-hq/sentinel/internal/store"
	"github.com/watchdog-hq/sentinel/internal/sweep"
)

// app bundles the collaborators every subcommand needs, wired once in
// buildApp so serve and sweep share identical construction.
type app struct {
	store       *store.Store
	sweeper     *sweep.Sweeper
	view        *statusview.View
	router      *chi.Mux
	cfgNotifier config.Notifier
}

func buildApp(cfg config.Config) (*app, error) {
	st, err := store.New(filepath.Join(cfg.DataDir, "watchdog.db"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	clk := clock.Real{}
	authenticator := auth.New(st)
	settingsProvider := settings.New(st)
	notify := notifier.New(settingsProvider)
	ingestor := ingest.New(st, authenticator, settingsProvider, notify, clk)
	sweeper := sweep.New(st, settingsProvider, notify, clk)
	reg := registry.New(st, clk)
	view := statusview.New(st)

	router := api.NewRouter(api.Deps{
		Ingestor:          ingestor,
		Registry:          reg,
		StatusView:        view,
		Authenticator:     authenticator,
		Clock:             clk,
		AllowedOrigins:    cfg.AllowedOrigins,
		RateLimitPerToken: cfg.RateLimit.RequestsPerMinute,
		RateLimitBurst:    cfg.RateLimit.Burst,
	})

	return &app{store: st, sweeper: sweeper, view: view, router: router, cfgNotifier: cfg.Notifier}, nil
}

// seedNotifierSettings writes the config file's notifier values into the
// settings table the first time each key is absent. Once a key exists, the
// admin collaborator owns it and config no longer overwrites it.
func seedNotifierSettings(ctx context.Context, a *app) {
	now := time.Now().Unix()
	seed := map[string]string{
		settings.KeyAPIToken:          a.cfgNotifier.APIToken,
		settings.KeyChannelCritical:   a.cfgNotifier.ChannelCritical,
		settings.KeyChannelSuccess:    a.cfgNotifier.ChannelSuccess,
		settings.KeyChannelWarning:    a.cfgNotifier.ChannelWarning,
		settings.KeyChannelInfo:       a.cfgNotifier.ChannelInfo,
		settings.KeySilencePeriodSecs: fmt.Sprintf("%d", a.cfgNotifier.SilencePeriod),
	}
	for key, value := range seed {
		if value == "" || value == "0" {
			continue
		}
		if _, ok, err := a.store.GetSettingValue(ctx, key); err != nil {
			slog.Warn("seed notifier settings: read failed", "key", key, "error", err)
			continue
		} else if ok {
			continue
		}
		if err := a.store.SetSettingValue(ctx, key, value, now); err != nil {
			slog.Warn("seed notifier settings: write failed", "key", key, "error", err)
		}
	}
}

// startScheduler runs the Sweeper's Tick once per interval using an
// in-process robfig/cron schedule, for deployments that run "watchdogd
// serve" standalone instead of behind an external cron invoking
// "watchdogd sweep" (spec §6.5's alternative trigger).
func startScheduler(sweeper *sweep.Sweeper, interval time.Duration) func() {
	c := cron.New()
	c.Schedule(cron.Every(interval), cronJobFunc(func() {
		result := sweeper.Tick(context.Background())
		slog.Info("sweep tick",
			"overdue_processed", result.OverdueProcessed,
			"overdue_failed", result.OverdueFailed,
			"logs_pruned", result.LogsPruned,
		)
	}))
	c.Start()
	return func() { <-c.Stop().Done() }
}

type cronJobFunc func()

func (f cronJobFunc) Run() { f() }

func runServer(cfg config.Config, handler http.Handler) int {
	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-shutdownCh
		slog.Info("shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("watchdog sentinel starting", "listen", cfg.ListenAddr, "data_dir", cfg.DataDir)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		return 1
	}
	slog.Info("watchdog sentinel stopped")
	return 0
}

func initLogger(level string) {
	var lv slog.Level
	switch level {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv})))
}
