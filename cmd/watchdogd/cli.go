package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"runtime/debug"
	"strings"

	"github.com/watchdog-hq/sentinel/internal/config"
)

var (
	serveFn      = serve
	sweepOnceFn  = sweepOnce
	loadConfigFn = config.Load
)

// buildVersion is injected by release workflows via -ldflags.
var buildVersion = "dev"

const (
	cmdHelp       = "help"
	flagHelpShort = "-h"
	flagHelpLong  = "--help"
)

func writef(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

func writeln(w io.Writer, args ...any) {
	_, _ = fmt.Fprintln(w, args...)
}

type commandContext struct {
	stdout io.Writer
	stderr io.Writer
}

// runCLI dispatches the two operational subcommands spec §6.5 names for
// Watch-Dog Sentinel: "serve" runs the standalone daemon with its own
// in-process sweep scheduler, "sweep" runs exactly one tick and exits, for
// an external cron or systemd timer to invoke. "status" is a supplemented
// read-only convenience on top of the same store.
func runCLI(args []string, stdout, stderr io.Writer) int {
	ctx := commandContext{stdout: stdout, stderr: stderr}

	if len(args) == 0 {
		return serveFn()
	}

	switch args[0] {
	case "-v", "--version", "version":
		writef(stdout, "watchdogd version %s\n", currentVersion())
		return 0
	case "serve":
		return runServeCommand(ctx, args[1:])
	case "sweep":
		return runSweepCommand(ctx, args[1:])
	case "status":
		return runStatusCommand(ctx, args[1:])
	case cmdHelp, flagHelpShort, flagHelpLong:
		printRootHelp(stdout)
		return 0
	default:
		if strings.HasPrefix(args[0], "-") {
			return runServeCommand(ctx, args)
		}
		writef(stderr, "unknown command: %s\n\n", args[0])
		printRootHelp(stderr)
		return 2
	}
}

func runServeCommand(ctx commandContext, args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(ctx.stderr)
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		printServeHelp(ctx.stdout)
		return 0
	}
	if fs.NArg() > 0 {
		writef(ctx.stderr, "unexpected argument(s): %s\n", strings.Join(fs.Args(), " "))
		printServeHelp(ctx.stderr)
		return 2
	}
	return serveFn()
}

func runSweepCommand(ctx commandContext, args []string) int {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	fs.SetOutput(ctx.stderr)
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		printSweepHelp(ctx.stdout)
		return 0
	}
	if fs.NArg() > 0 {
		writef(ctx.stderr, "unexpected argument(s): %s\n", strings.Join(fs.Args(), " "))
		printSweepHelp(ctx.stderr)
		return 2
	}
	return sweepOnceFn(ctx)
}

// sweepOnce opens the store, runs a single Sweeper.Tick, and exits. This is
// the entry point for spec §6.5's "external, cooperative" trigger model: an
// operator's cron or systemd timer invokes "watchdogd sweep" once a minute
// instead of running the standalone daemon's in-process scheduler.
func sweepOnce(ctx commandContext) int {
	cfg := loadConfigFn()
	initLogger(cfg.LogLevel)

	app, err := buildApp(cfg)
	if err != nil {
		writef(ctx.stderr, "sweep: startup failed: %v\n", err)
		return 1
	}
	defer func() { _ = app.store.Close() }()

	seedNotifierSettings(context.Background(), app)

	result := app.sweeper.Tick(context.Background())
	writef(ctx.stdout, "overdue_processed=%d overdue_failed=%d logs_pruned=%d\n",
		result.OverdueProcessed, result.OverdueFailed, result.LogsPruned)
	if result.OverdueFailed > 0 {
		return 1
	}
	return 0
}

func runStatusCommand(ctx commandContext, args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(ctx.stderr)
	projectID := fs.String("project", "", "limit to a single project id")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		printStatusHelp(ctx.stdout)
		return 0
	}
	if fs.NArg() > 0 {
		writef(ctx.stderr, "unexpected argument(s): %s\n", strings.Join(fs.Args(), " "))
		printStatusHelp(ctx.stderr)
		return 2
	}

	cfg := loadConfigFn()
	app, err := buildApp(cfg)
	if err != nil {
		writef(ctx.stderr, "status: startup failed: %v\n", err)
		return 1
	}
	defer func() { _ = app.store.Close() }()

	return printStatus(ctx, app, *projectID)
}

func printRootHelp(w io.Writer) {
	writeln(w, "Watch-Dog Sentinel command-line interface")
	writeln(w, "")
	writeln(w, "Usage:")
	writeln(w, "  watchdogd [serve]")
	writeln(w, "  watchdogd sweep")
	writeln(w, "  watchdogd status [-project ID]")
	writeln(w, "  watchdogd version")
	writeln(w, "")
	writeln(w, "Commands:")
	writeln(w, "  serve    Start the HTTP API and in-process sweep scheduler (default)")
	writeln(w, "  sweep    Run exactly one sweep tick and exit, for an external cron/timer")
	writeln(w, "  status   Print a snapshot of projects and checks from the local store")
}

func printServeHelp(w io.Writer) {
	writeln(w, "Usage:")
	writeln(w, "  watchdogd serve")
	writeln(w, "")
	writeln(w, "Starts the pulse/config/maintenance/status API and the in-process")
	writeln(w, "sweep scheduler, using config file/env defaults.")
}

func printSweepHelp(w io.Writer) {
	writeln(w, "Usage:")
	writeln(w, "  watchdogd sweep")
	writeln(w, "")
	writeln(w, "Runs self-pulse, the overdue scan, and log pruning once, then exits.")
}

func printStatusHelp(w io.Writer) {
	writeln(w, "Usage:")
	writeln(w, "  watchdogd status [-project ID]")
}

func currentVersion() string {
	if value := strings.TrimSpace(buildVersion); value != "" && value != "dev" && value != "(devel)" {
		return value
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		if strings.TrimSpace(bi.Main.Version) != "" && bi.Main.Version != "(devel)" {
			return bi.Main.Version
		}
	}
	return "dev"
}
