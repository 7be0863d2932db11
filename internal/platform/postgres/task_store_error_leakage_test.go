//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"testing"

	"github.com/phrazzld/tasks-api/internal/api"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/platform/postgres"
	"github.com/phrazzld/tasks-api/internal/redact"
	"github.com/phrazzld/tasks-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var leakTerms = []string{"postgres", "sql", "SQLSTATE", "tasks_status_check", "relation", "UPDATE tasks"}

func assertNoLeak(t *testing.T, msg string) {
	t.Helper()
	for _, term := range leakTerms {
		assert.NotContains(t, strings.ToLower(msg), strings.ToLower(term), "message leaks %q", term)
	}
}

func TestTaskStoreErrorLeakage(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		s := postgres.NewPostgresTaskStore(tx, nil)

		t.Run("check constraint violation", func(t *testing.T) {
			task := insertTask(t, s, "leak-owner", "valid", domain.TaskStatusTodo, nil)
			task.Status = "archived"

			err := s.Update(ctx, task)
			require.Error(t, err)

			assert.Equal(t, http.StatusUnprocessableEntity, api.MapErrorToStatusCode(err))
			assert.Equal(t, "Invalid task data", api.GetSafeErrorMessage(err))
			assertNoLeak(t, api.GetSafeErrorMessage(err))
		})
	})

	t.Run("closed connection", func(t *testing.T) {
		conn, err := sql.Open("pgx", testdb.GetTestDatabaseURL())
		require.NoError(t, err)
		require.NoError(t, conn.Close())

		_, err = postgres.NewPostgresTaskStore(conn, nil).FindByID(context.Background(), 1)
		require.Error(t, err)

		assert.Equal(t, http.StatusInternalServerError, api.MapErrorToStatusCode(err))
		assertNoLeak(t, api.GetSafeErrorMessage(err))
		assert.NotContains(t, redact.Error(err), "SELECT id")
	})
}
