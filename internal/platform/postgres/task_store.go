package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/phrazzld/tasks-api/internal/redact"
	"github.com/phrazzld/tasks-api/internal/store"
)

const taskColumns = `id, owner_id, title, description, status, due_date, is_overdue, created_at, updated_at`

// PostgresTaskStore implements store.TaskStore on the tasks table.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a PostgresTaskStore on db, which may be a
// *sql.DB or a *sql.Tx. If logger is nil, slog.Default() is used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements store.TaskStore.WithTx.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{db: tx, logger: s.logger}
}

// Insert implements store.TaskStore.Insert.
func (s *PostgresTaskStore) Insert(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during insert",
			redact.Attr(err),
			slog.String("owner_id", task.OwnerID))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO tasks (owner_id, title, description, status, due_date, is_overdue)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		task.OwnerID,
		task.Title,
		nullString(task.Description),
		string(task.Status),
		nullTime(task.DueDate),
		task.IsOverdue,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		logWriteFailure(log, "failed to insert task", err, slog.String("owner_id", task.OwnerID))
		return store.NewStoreError("task", "insert", "failed to insert task", MapError(err))
	}
	task.CreatedAt = domain.NormalizeUTC(task.CreatedAt)
	task.UpdatedAt = domain.NormalizeUTC(task.UpdatedAt)

	log.Debug("task inserted",
		slog.Int64("task_id", task.ID),
		slog.String("owner_id", task.OwnerID),
		slog.String("status", string(task.Status)))
	return nil
}

// FindByID implements store.TaskStore.FindByID.
func (s *PostgresTaskStore) FindByID(ctx context.Context, id int64) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.Int64("task_id", id))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			redact.Attr(err),
			slog.Int64("task_id", id))
		return nil, store.NewStoreError("task", "find", "failed to get task", MapError(err))
	}

	return task, nil
}

// Update implements store.TaskStore.Update.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET title = $1, description = $2, status = $3, due_date = $4, is_overdue = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		task.Title,
		nullString(task.Description),
		string(task.Status),
		nullTime(task.DueDate),
		task.IsOverdue,
		task.ID,
	).Scan(&task.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found for update", slog.Int64("task_id", task.ID))
			return store.ErrTaskNotFound
		}
		logWriteFailure(log, "failed to update task", err, slog.Int64("task_id", task.ID))
		return store.NewStoreError("task", "update", "failed to update task", MapError(err))
	}
	task.UpdatedAt = domain.NormalizeUTC(task.UpdatedAt)

	log.Debug("task updated",
		slog.Int64("task_id", task.ID),
		slog.String("status", string(task.Status)),
		slog.Bool("is_overdue", task.IsOverdue))
	return nil
}

// Delete implements store.TaskStore.Delete.
func (s *PostgresTaskStore) Delete(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, task.ID)
	if err != nil {
		log.Error("failed to delete task",
			redact.Attr(err),
			slog.Int64("task_id", task.ID))
		return store.NewStoreError("task", "delete", "failed to delete task", MapError(err))
	}

	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			log.Debug("task not found for delete", slog.Int64("task_id", task.ID))
		}
		return err
	}

	log.Debug("task deleted", slog.Int64("task_id", task.ID))
	return nil
}

// Query implements store.TaskStore.Query.
func (s *PostgresTaskStore) Query(ctx context.Context, filter store.TaskFilter) (int, []*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	where, args := buildTaskFilter(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM tasks WHERE ` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		log.Error("failed to count tasks",
			redact.Attr(err),
			slog.String("owner_id", filter.OwnerID))
		return 0, nil, store.NewStoreError("task", "query", "failed to count tasks", MapError(err))
	}

	pageQuery := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + where +
		` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		pageQuery += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		pageQuery += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	tasks, err := s.queryTasks(ctx, pageQuery, args...)
	if err != nil {
		log.Error("failed to query tasks",
			redact.Attr(err),
			slog.String("owner_id", filter.OwnerID))
		return 0, nil, store.NewStoreError("task", "query", "failed to list tasks", MapError(err))
	}

	log.Debug("tasks queried",
		slog.String("owner_id", filter.OwnerID),
		slog.Int("total", total),
		slog.Int("returned", len(tasks)))
	return total, tasks, nil
}

// FindAllNotDone implements store.TaskStore.FindAllNotDone.
func (s *PostgresTaskStore) FindAllNotDone(ctx context.Context) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE status <> $1 ORDER BY id`

	tasks, err := s.queryTasks(ctx, query, string(domain.TaskStatusDone))
	if err != nil {
		log.Error("failed to find tasks not done", redact.Attr(err))
		return nil, store.NewStoreError("task", "find_not_done", "failed to find tasks not done", MapError(err))
	}

	log.Debug("found tasks not done", slog.Int("count", len(tasks)))
	return tasks, nil
}

// logWriteFailure logs a failed INSERT or UPDATE. Rows the table's
// constraints reject are caller data problems and log at WARN with the
// constraint involved; anything else is a database failure and logs at ERROR.
func logWriteFailure(log *slog.Logger, msg string, err error, attrs ...any) {
	var pgErr *pgconn.PgError
	if isConstraintViolation(err) && errors.As(err, &pgErr) {
		attrs = append(attrs,
			slog.String("constraint", pgErr.ConstraintName),
			slog.String("column", pgErr.ColumnName))
		log.Warn(msg, append(attrs, redact.Attr(err))...)
		return
	}
	log.Error(msg, append(attrs, redact.Attr(err))...)
}

// buildTaskFilter renders the WHERE clause for filter. Owner scoping is
// always present.
func buildTaskFilter(filter store.TaskFilter) (string, []interface{}) {
	conds := []string{"owner_id = $1"}
	args := []interface{}{filter.OwnerID}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Status != nil {
		add("status = $%d", string(*filter.Status))
	}
	if filter.DueFrom != nil {
		add("due_date >= $%d", domain.NormalizeUTC(*filter.DueFrom))
	}
	if filter.DueTo != nil {
		add("due_date <= $%d", domain.NormalizeUTC(*filter.DueTo))
	}

	return strings.Join(conds, " AND "), args
}

func (s *PostgresTaskStore) queryTasks(ctx context.Context, query string, args ...interface{}) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}

	return tasks, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task        domain.Task
		status      string
		description sql.NullString
		dueDate     sql.NullTime
	)

	if err := row.Scan(
		&task.ID,
		&task.OwnerID,
		&task.Title,
		&description,
		&status,
		&dueDate,
		&task.IsOverdue,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return nil, err
	}

	task.Status = domain.TaskStatus(status)
	if description.Valid {
		task.Description = &description.String
	}
	if dueDate.Valid {
		due := domain.NormalizeUTC(dueDate.Time)
		task.DueDate = &due
	}
	task.CreatedAt = domain.NormalizeUTC(task.CreatedAt)
	task.UpdatedAt = domain.NormalizeUTC(task.UpdatedAt)

	return &task, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: domain.NormalizeUTC(*t), Valid: true}
}
