package main

import (
	"context"
	"log/slog"
	"os"
)

func main() {
	os.Exit(runCLI(os.Args[1:], os.Stdout, os.Stderr))
}

// serve boots every collaborator, starts the HTTP server, and runs the
// in-process sweep scheduler until an interrupt or terminate signal arrives.
func serve() int {
	cfg := loadConfigFn()
	initLogger(cfg.LogLevel)

	app, err := buildApp(cfg)
	if err != nil {
		slog.Error("startup failed", "error", err)
		return 1
	}
	defer func() { _ = app.store.Close() }()

	seedNotifierSettings(context.Background(), app)

	stopScheduler := startScheduler(app.sweeper, cfg.SweepInterval)
	defer stopScheduler()

	return runServer(cfg, app.router)
}
