package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var taskRowColumns = []string{
	"id", "owner_id", "title", "description", "status", "due_date", "is_overdue", "created_at", "updated_at",
}

func newMockStore(t *testing.T) (*PostgresTaskStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresTaskStore(db, nil), mock
}

func TestNewPostgresTaskStore_NilDB(t *testing.T) {
	assert.Panics(t, func() { NewPostgresTaskStore(nil, nil) })
}

func TestInsert_PopulatesGeneratedFields(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	due := time.Date(2025, 5, 3, 0, 0, 0, 0, time.UTC)
	desc := "details"

	mock.ExpectQuery(`INSERT INTO tasks`).
		WithArgs("user1", "Task", sql.NullString{String: desc, Valid: true}, "todo",
			sql.NullTime{Time: due, Valid: true}, false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(42, created, created))

	task := &domain.Task{OwnerID: "user1", Title: "Task", Description: &desc, Status: domain.TaskStatusTodo, DueDate: &due}
	require.NoError(t, s.Insert(context.Background(), task))

	assert.Equal(t, int64(42), task.ID)
	assert.Equal(t, created, task.CreatedAt)
	assert.Equal(t, created, task.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_RejectsInvalidTask(t *testing.T) {
	s, mock := newMockStore(t)

	err := s.Insert(context.Background(), &domain.Task{OwnerID: "user1", Title: "Task", Status: domain.TaskStatusDone})

	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.ErrorIs(t, err, domain.ErrDoneRequiresDueDate)
	assert.NoError(t, mock.ExpectationsWereMet(), "no statement should run")
}

func TestFindByID(t *testing.T) {
	s, mock := newMockStore(t)
	ts := time.Date(2025, 5, 1, 10, 0, 0, 0, time.FixedZone("PDT", -7*3600))

	mock.ExpectQuery(`SELECT .+ FROM tasks WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(taskRowColumns).
			AddRow(7, "user1", "Task", nil, "in_progress", ts, false, ts, ts))

	task, err := s.FindByID(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, int64(7), task.ID)
	assert.Equal(t, "user1", task.OwnerID)
	assert.Nil(t, task.Description)
	assert.Equal(t, domain.TaskStatusInProgress, task.Status)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, time.UTC, task.DueDate.Location())
	assert.True(t, ts.Equal(*task.DueDate))
	assert.Equal(t, time.UTC, task.CreatedAt.Location())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByID_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT .+ FROM tasks WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(taskRowColumns))

	task, err := s.FindByID(context.Background(), 99)

	assert.Nil(t, task)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByID_DriverError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT .+ FROM tasks`).WillReturnError(errors.New("connection refused"))

	_, err := s.FindByID(context.Background(), 1)

	var storeErr *store.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "find", storeErr.Operation)
	assert.False(t, errors.Is(err, store.ErrNotFound))
}

func TestUpdate(t *testing.T) {
	s, mock := newMockStore(t)
	updated := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`UPDATE tasks\s+SET title = \$1, description = \$2, status = \$3, due_date = \$4, is_overdue = \$5, updated_at = NOW\(\)\s+WHERE id = \$6`).
		WithArgs("New", sql.NullString{}, "overdue", sql.NullTime{}, true, int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(updated))

	task := &domain.Task{ID: 3, OwnerID: "user1", Title: "New", Status: domain.TaskStatusOverdue, IsOverdue: true}
	require.NoError(t, s.Update(context.Background(), task))

	assert.Equal(t, updated, task.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`UPDATE tasks`).WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))

	err := s.Update(context.Background(), &domain.Task{ID: 3, Title: "x", Status: domain.TaskStatusTodo})

	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestDelete(t *testing.T) {
	t.Run("removes the row", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(`DELETE FROM tasks WHERE id = \$1`).
			WithArgs(int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.Delete(context.Background(), &domain.Task{ID: 5}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(`DELETE FROM tasks`).WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, s.Delete(context.Background(), &domain.Task{ID: 5}), store.ErrTaskNotFound)
	})
}

func TestQuery_BuildsFilterAndPaginates(t *testing.T) {
	s, mock := newMockStore(t)
	status := domain.TaskStatusTodo
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	ts := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM tasks WHERE owner_id = \$1 AND status = \$2 AND due_date >= \$3 AND due_date <= \$4$`).
		WithArgs("user1", "todo", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT .+ FROM tasks WHERE owner_id = \$1 AND status = \$2 AND due_date >= \$3 AND due_date <= \$4 ORDER BY created_at DESC, id DESC LIMIT \$5 OFFSET \$6`).
		WithArgs("user1", "todo", from, to, 2, 1).
		WillReturnRows(sqlmock.NewRows(taskRowColumns).
			AddRow(3, "user1", "c", "desc", "todo", ts, false, ts, ts).
			AddRow(2, "user1", "b", nil, "todo", nil, false, ts, ts))

	total, tasks, err := s.Query(context.Background(), store.TaskFilter{
		OwnerID: "user1", Status: &status, DueFrom: &from, DueTo: &to, Limit: 2, Offset: 1,
	})

	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, tasks, 2)
	assert.Equal(t, int64(3), tasks[0].ID)
	require.NotNil(t, tasks[0].Description)
	assert.Equal(t, "desc", *tasks[0].Description)
	assert.Nil(t, tasks[1].DueDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_OwnerOnlyReturnsEmptySlice(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM tasks WHERE owner_id = \$1$`).
		WithArgs("user2").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`ORDER BY created_at DESC, id DESC LIMIT \$2$`).
		WithArgs("user2", 20).
		WillReturnRows(sqlmock.NewRows(taskRowColumns))

	total, tasks, err := s.Query(context.Background(), store.TaskFilter{OwnerID: "user2", Limit: 20})

	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindAllNotDone(t *testing.T) {
	s, mock := newMockStore(t)
	ts := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM tasks WHERE status <> \$1 ORDER BY id`).
		WithArgs("done").
		WillReturnRows(sqlmock.NewRows(taskRowColumns).
			AddRow(1, "user1", "a", nil, "todo", ts, false, ts, ts).
			AddRow(2, "user2", "b", nil, "overdue", ts, true, ts, ts))

	tasks, err := s.FindAllNotDone(context.Background())

	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "user2", tasks[1].OwnerID)
	assert.True(t, tasks[1].IsOverdue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_UsesTransaction(t *testing.T) {
	s, mock := newMockStore(t)
	db := s.db.(*sql.DB)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM tasks`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, s.WithTx(tx).Delete(context.Background(), &domain.Task{ID: 1}))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func newLoggingMockStore(t *testing.T) (*PostgresTaskStore, sqlmock.Sqlmock, *bytes.Buffer) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewPostgresTaskStore(db, log), mock, &buf
}

func TestUpdate_ConstraintViolationLogsWarning(t *testing.T) {
	s, mock, buf := newLoggingMockStore(t)
	mock.ExpectQuery(`UPDATE tasks`).WillReturnError(&pgconn.PgError{
		Code:           "23514",
		Message:        "new row violates check constraint",
		ConstraintName: "tasks_status_check",
	})

	err := s.Update(context.Background(), &domain.Task{ID: 3, Title: "x", Status: "archived"})

	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.True(t, IsCheckConstraintViolation(err))
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), `"constraint":"tasks_status_check"`)
	assert.NotContains(t, buf.String(), `"level":"ERROR"`)
}

func TestInsert_NotNullViolationLogsWarning(t *testing.T) {
	s, mock, buf := newLoggingMockStore(t)
	mock.ExpectQuery(`INSERT INTO tasks`).WillReturnError(&pgconn.PgError{
		Code:       "23502",
		Message:    "null value violates not-null constraint",
		ColumnName: "owner_id",
	})

	err := s.Insert(context.Background(), &domain.Task{OwnerID: "user1", Title: "Task", Status: domain.TaskStatusTodo})

	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.True(t, IsNotNullViolation(err))
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), `"column":"owner_id"`)
}

func TestUpdate_DriverFailureLogsError(t *testing.T) {
	s, mock, buf := newLoggingMockStore(t)
	mock.ExpectQuery(`UPDATE tasks`).WillReturnError(errors.New("connection reset by peer"))

	err := s.Update(context.Background(), &domain.Task{ID: 3, Title: "x", Status: domain.TaskStatusTodo})

	require.Error(t, err)
	assert.False(t, errors.Is(err, store.ErrInvalidEntity))
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
	assert.NotContains(t, buf.String(), `"constraint"`)
}
