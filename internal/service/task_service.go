package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/phrazzld/tasks-api/internal/redact"
	"github.com/phrazzld/tasks-api/internal/store"
)

// DefaultListLimit is used when ListParams.Limit is zero. The API layer bounds
// limit and offset.
const DefaultListLimit = 20

// ListParams filters and paginates ListTasks.
type ListParams struct {
	Status  *domain.TaskStatus
	DueFrom *time.Time
	DueTo   *time.Time
	Limit   int
	Offset  int
}

// TaskService is the task lifecycle bound to one caller identity.
//
// GetTask does not check ownership: it returns whatever task has the ID and
// leaves the owner comparison to the caller. RecalculateOverdue works across
// all owners.
type TaskService interface {
	// OwnerID returns the identity the service is bound to.
	OwnerID() string

	// CreateTask creates a task owned by OwnerID.
	// Returns a *domain.ValidationError without touching the store when the
	// draft is invalid, including done without a due date.
	CreateTask(ctx context.Context, draft domain.TaskDraft) (*domain.Task, error)

	// GetTask returns the task with id, or ErrTaskNotFound.
	GetTask(ctx context.Context, id int64) (*domain.Task, error)

	// UpdateTask applies patch to task and persists it. task itself is not
	// modified; the updated copy is returned.
	UpdateTask(ctx context.Context, task *domain.Task, patch domain.TaskPatch) (*domain.Task, error)

	// DeleteTask removes task.
	DeleteTask(ctx context.Context, task *domain.Task) error

	// ListTasks returns the total number of OwnerID's tasks matching params and
	// the requested page, newest first.
	ListTasks(ctx context.Context, params ListParams) (int, []*domain.Task, error)

	// RecalculateOverdue re-derives the overdue flag of every task that is not
	// done against a single reading of the clock, persists the tasks that
	// changed in one transaction and returns how many there were.
	RecalculateOverdue(ctx context.Context) (int, error)
}

// TaskServiceFactory hands out request-scoped services.
type TaskServiceFactory interface {
	ForOwner(ownerID string) TaskService
}

// Option customizes TaskServices.
type Option func(*TaskServices)

// WithClock replaces time.Now as the source of "now" for recalculation.
func WithClock(now func() time.Time) Option {
	return func(s *TaskServices) {
		s.now = now
	}
}

// WithMetrics records operation metrics to m.
func WithMetrics(m *Metrics) Option {
	return func(s *TaskServices) {
		s.metrics = m
	}
}

// TaskServices holds the shared dependencies of the task service and
// implements TaskServiceFactory.
type TaskServices struct {
	tasks   store.TaskStore
	tx      store.Transactor
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

var _ TaskServiceFactory = (*TaskServices)(nil)

// NewTaskServices validates dependencies and returns a TaskServiceFactory.
func NewTaskServices(
	tasks store.TaskStore,
	tx store.Transactor,
	logger *slog.Logger,
	opts ...Option,
) (*TaskServices, error) {
	if tasks == nil {
		return nil, fmt.Errorf("task store cannot be nil")
	}
	if tx == nil {
		return nil, fmt.Errorf("transactor cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	s := &TaskServices{
		tasks:  tasks,
		tx:     tx,
		logger: logger.With(slog.String("component", "task_service")),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ForOwner implements TaskServiceFactory.
func (s *TaskServices) ForOwner(ownerID string) TaskService {
	return &taskServiceImpl{TaskServices: s, ownerID: ownerID}
}

type taskServiceImpl struct {
	*TaskServices
	ownerID string
}

var _ TaskService = (*taskServiceImpl)(nil)

func (s *taskServiceImpl) OwnerID() string {
	return s.ownerID
}

func (s *taskServiceImpl) log(ctx context.Context) *slog.Logger {
	return logger.FromContextOrDefault(ctx, s.logger).With(slog.String("owner_id", s.ownerID))
}

func (s *taskServiceImpl) CreateTask(ctx context.Context, draft domain.TaskDraft) (task *domain.Task, err error) {
	start := time.Now()
	defer func() { s.metrics.observe(OpCreateTask, start, err) }()
	log := s.log(ctx)

	task, err = domain.NewTask(s.ownerID, draft)
	if err != nil {
		log.Debug("rejected task draft", redact.Attr(err))
		return nil, NewTaskServiceError(OpCreateTask, "invalid task", err)
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.tasks.WithTx(tx).Insert(ctx, task)
	})
	if err != nil {
		log.Error("failed to create task", redact.Attr(err))
		return nil, NewTaskServiceError(OpCreateTask, "failed to save task", err)
	}

	log.Info("task created",
		slog.Int64("task_id", task.ID),
		slog.String("status", string(task.Status)))
	return task, nil
}

func (s *taskServiceImpl) GetTask(ctx context.Context, id int64) (task *domain.Task, err error) {
	start := time.Now()
	defer func() { s.metrics.observe(OpGetTask, start, err) }()

	task, err = s.tasks.FindByID(ctx, id)
	if err != nil {
		err = NewTaskServiceError(OpGetTask, "failed to retrieve task", err)
		if !errors.Is(err, ErrTaskNotFound) {
			s.log(ctx).Error("failed to retrieve task",
				slog.Int64("task_id", id),
				redact.Attr(err))
		}
		return nil, err
	}
	return task, nil
}

func (s *taskServiceImpl) UpdateTask(
	ctx context.Context,
	task *domain.Task,
	patch domain.TaskPatch,
) (updated *domain.Task, err error) {
	start := time.Now()
	defer func() { s.metrics.observe(OpUpdateTask, start, err) }()
	log := s.log(ctx).With(slog.Int64("task_id", task.ID))

	working := *task
	if err = working.ApplyPatch(patch); err != nil {
		log.Debug("rejected task patch", redact.Attr(err))
		return nil, NewTaskServiceError(OpUpdateTask, "invalid update", err)
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.tasks.WithTx(tx).Update(ctx, &working)
	})
	if err != nil {
		err = NewTaskServiceError(OpUpdateTask, "failed to save task", err)
		if !errors.Is(err, ErrTaskNotFound) {
			log.Error("failed to update task", redact.Attr(err))
		}
		return nil, err
	}

	log.Info("task updated", slog.String("status", string(working.Status)))
	return &working, nil
}

func (s *taskServiceImpl) DeleteTask(ctx context.Context, task *domain.Task) (err error) {
	start := time.Now()
	defer func() { s.metrics.observe(OpDeleteTask, start, err) }()
	log := s.log(ctx).With(slog.Int64("task_id", task.ID))

	err = s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.tasks.WithTx(tx).Delete(ctx, task)
	})
	if err != nil {
		err = NewTaskServiceError(OpDeleteTask, "failed to delete task", err)
		if !errors.Is(err, ErrTaskNotFound) {
			log.Error("failed to delete task", redact.Attr(err))
		}
		return err
	}

	log.Info("task deleted")
	return nil
}

func (s *taskServiceImpl) ListTasks(
	ctx context.Context,
	params ListParams,
) (total int, tasks []*domain.Task, err error) {
	start := time.Now()
	defer func() { s.metrics.observe(OpListTasks, start, err) }()

	limit := params.Limit
	if limit == 0 {
		limit = DefaultListLimit
	}

	total, tasks, err = s.tasks.Query(ctx, store.TaskFilter{
		OwnerID: s.ownerID,
		Status:  params.Status,
		DueFrom: domain.NormalizeUTCPtr(params.DueFrom),
		DueTo:   domain.NormalizeUTCPtr(params.DueTo),
		Limit:   limit,
		Offset:  params.Offset,
	})
	if err != nil {
		s.log(ctx).Error("failed to list tasks", redact.Attr(err))
		return 0, nil, NewTaskServiceError(OpListTasks, "failed to list tasks", err)
	}
	return total, tasks, nil
}

func (s *taskServiceImpl) RecalculateOverdue(ctx context.Context) (count int, err error) {
	start := time.Now()
	defer func() { s.metrics.observe(OpRecalculateOverdue, start, err) }()
	log := s.log(ctx)

	now := domain.NormalizeUTC(s.now())

	err = s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)

		open, err := txTasks.FindAllNotDone(ctx)
		if err != nil {
			return err
		}

		changed := make([]*domain.Task, 0, len(open))
		for _, task := range open {
			if task.Reconcile(now) {
				changed = append(changed, task)
			}
		}

		for _, task := range changed {
			if err := txTasks.Update(ctx, task); err != nil {
				return fmt.Errorf("task %d: %w", task.ID, err)
			}
		}

		count = len(changed)
		log.Debug("overdue sweep evaluated",
			slog.Int("scanned", len(open)),
			slog.Int("changed", count))
		return nil
	})
	if err != nil {
		log.Error("overdue recalculation failed", redact.Attr(err))
		return 0, NewTaskServiceError(OpRecalculateOverdue, "failed to recalculate overdue tasks", err)
	}

	s.metrics.overdueMarked(count)
	log.Info("overdue recalculation completed",
		slog.Int("updated", count),
		slog.Time("now", now))
	return count, nil
}
