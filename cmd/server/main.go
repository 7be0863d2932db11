// Package main is the entry point for the tasks API server, which stores
// per-user tasks in PostgreSQL and keeps their overdue state current.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/phrazzld/tasks-api/internal/config"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/phrazzld/tasks-api/internal/redact"
)

// options are the command-line flags.
type options struct {
	// migrate runs one goose command and exits instead of serving.
	migrate string
	// recalculateOverdue runs one overdue sweep and exits instead of serving.
	recalculateOverdue bool
}

func parseFlags(args []string) (options, error) {
	var opts options

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&opts.migrate, "migrate", "",
		"run a migration command and exit: up, down, reset, status, version or validate")
	fs.BoolVar(&opts.recalculateOverdue, "recalculate-overdue", false,
		"recalculate overdue tasks once and exit")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.migrate != "" && !slices.Contains(migrationCommands, opts.migrate) {
		return options{}, fmt.Errorf("unknown migration command %q", opts.migrate)
	}
	if opts.migrate != "" && opts.recalculateOverdue {
		return options{}, errors.New("-migrate and -recalculate-overdue cannot be combined")
	}
	return opts, nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("server exited with error", redact.Attr(err))
		os.Exit(1)
	}
}

// run wires the application together and blocks until it finishes.
func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", redact.Attr(err))
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.Bool("auto_migrate", cfg.Database.AutoMigrate),
		slog.Int("sweep_interval_seconds", cfg.Sweep.IntervalSeconds))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := setupAppDatabase(ctx, cfg.Database, log)
	if err != nil {
		return err
	}

	if opts.migrate != "" {
		defer closeDB(db, log)
		return runMigrations(ctx, db, opts.migrate, log)
	}

	if cfg.Database.AutoMigrate {
		if err := runMigrations(ctx, db, "up", log); err != nil {
			closeDB(db, log)
			return err
		}
	}

	app, err := newApplication(cfg, log, db)
	if err != nil {
		closeDB(db, log)
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if opts.recalculateOverdue {
		defer app.cleanup()
		updated, err := app.recalculateOverdue(ctx)
		if err != nil {
			return err
		}
		log.Info("overdue recalculation finished", slog.Int("updated", updated))
		return nil
	}

	return app.Run(ctx)
}
