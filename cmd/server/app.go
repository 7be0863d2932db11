package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/phrazzld/tasks-api/internal/config"
	"github.com/phrazzld/tasks-api/internal/platform/postgres"
	"github.com/phrazzld/tasks-api/internal/service"
	"github.com/phrazzld/tasks-api/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// application holds the shared dependencies of the server and owns their
// cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	registry     *prometheus.Registry
	taskServices service.TaskServiceFactory
}

// newApplication wires stores and services on top of an open database.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, "tasks"),
	)

	taskServices, err := service.NewTaskServices(
		postgres.NewPostgresTaskStore(db, logger),
		store.NewSQLTransactor(db),
		logger,
		service.WithMetrics(service.NewMetrics(registry)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	logger.Info("application initialized")
	return &application{
		config:       cfg,
		logger:       logger,
		db:           db,
		registry:     registry,
		taskServices: taskServices,
	}, nil
}

// Run serves HTTP on the configured port until ctx is canceled.
func (app *application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", app.config.Server.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", app.config.Server.Port, err)
	}

	if err := app.serve(ctx, ln, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// recalculateOverdue runs one sweep as the admin identity.
func (app *application) recalculateOverdue(ctx context.Context) (int, error) {
	return app.taskServices.ForOwner(app.config.Auth.AdminUserID).RecalculateOverdue(ctx)
}

// runSweeper recalculates overdue tasks every interval until ctx is done.
// A failed sweep is logged and retried on the next tick.
func (app *application) runSweeper(ctx context.Context, interval time.Duration) error {
	log := app.logger.With(slog.String("component", "overdue_sweeper"))
	log.Info("overdue sweeper started", slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("overdue sweeper stopped")
			return nil
		case <-ticker.C:
			// Errors are logged by the service.
			_, _ = app.recalculateOverdue(ctx)
		}
	}
}

// cleanup releases resources held by the application.
func (app *application) cleanup() {
	if app.db != nil {
		closeDB(app.db, app.logger)
	}
	app.logger.Info("application shutdown completed")
}
