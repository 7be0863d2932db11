package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/phrazzld/tasks-api/internal/config"
	"github.com/phrazzld/tasks-api/internal/mocks"
	"github.com/phrazzld/tasks-api/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:                   8080,
			LogLevel:               "info",
			ShutdownTimeoutSeconds: 1,
		},
		Auth: config.AuthConfig{
			UserIDHeader: "X-User-Id",
			AdminUserID:  "admin",
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestApplication builds an application on a mock store without a database.
func newTestApplication(t *testing.T, tasks *mocks.TaskStore) *application {
	t.Helper()

	log := discardLogger()
	registry := prometheus.NewRegistry()
	taskServices, err := service.NewTaskServices(
		tasks,
		&mocks.Transactor{},
		log,
		service.WithMetrics(service.NewMetrics(registry)),
	)
	require.NoError(t, err)

	return &application{
		config:       testConfig(),
		logger:       log,
		registry:     registry,
		taskServices: taskServices,
	}
}
