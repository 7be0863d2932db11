package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasks-api/internal/platform/postgres/migrations"
	"github.com/phrazzld/tasks-api/internal/redact"
	"github.com/pressly/goose/v3"
)

// migrationCommands lists the values accepted by -migrate.
var migrationCommands = []string{"up", "down", "reset", "status", "version", "validate"}

// slogGooseLogger adapts the goose logger interface to slog.
type slogGooseLogger struct {
	logger *slog.Logger
}

// Printf forwards goose progress messages at INFO.
func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Fatalf logs at ERROR. It does not exit; goose returns the error to us.
func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// configureGoose points goose at the embedded migrations.
func configureGoose(logger *slog.Logger) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetTableName(migrations.TableName)
	goose.SetLogger(&slogGooseLogger{logger: logger})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return nil
}

// runMigrations executes one goose command against db. All log lines for the
// run share a correlation ID.
func runMigrations(ctx context.Context, db *sql.DB, command string, logger *slog.Logger) (err error) {
	log := logger.With(
		slog.String("correlation_id", uuid.NewString()),
		slog.String("component", "migrations"),
		slog.String("command", command),
	)

	if err := configureGoose(log); err != nil {
		return err
	}

	start := time.Now()
	log.Info("starting migration operation")
	defer func() {
		attrs := []any{
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			slog.Bool("success", err == nil),
		}
		if err != nil {
			attrs = append(attrs, redact.Attr(err))
		}
		log.Info("migration operation completed", attrs...)
	}()

	switch command {
	case "up":
		err = goose.UpContext(ctx, db, ".")
	case "down":
		err = goose.DownContext(ctx, db, ".")
	case "reset":
		err = goose.ResetContext(ctx, db, ".")
	case "status":
		err = goose.StatusContext(ctx, db, ".")
	case "version":
		err = goose.VersionContext(ctx, db, ".")
	case "validate":
		err = verifyAppliedMigrations(ctx, db, log)
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", command, err)
	}
	return nil
}

// latestMigrationVersion returns the highest embedded migration version.
func latestMigrationVersion() (int64, error) {
	all, err := goose.CollectMigrations(".", 0, goose.MaxVersion)
	if err != nil {
		return 0, fmt.Errorf("failed to collect migrations: %w", err)
	}
	last, err := all.Last()
	if err != nil {
		return 0, fmt.Errorf("no migrations found: %w", err)
	}
	return last.Version, nil
}

// verifyAppliedMigrations fails unless the database is at the latest
// embedded migration.
func verifyAppliedMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	latest, err := latestMigrationVersion()
	if err != nil {
		return err
	}

	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to read database version: %w", err)
	}

	logger.Info("migration versions",
		slog.Int64("database_version", current),
		slog.Int64("latest_version", latest))

	if current != latest {
		return fmt.Errorf("database is at migration %d, expected %d", current, latest)
	}
	return nil
}
