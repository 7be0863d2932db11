package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/phrazzld/tasks-api/internal/domain"
)

// TaskFilter selects an owner's tasks for TaskStore.Query.
// Nil fields do not constrain the result; set fields are combined with AND.
type TaskFilter struct {
	OwnerID string
	Status  *domain.TaskStatus
	// DueFrom and DueTo bound due_date inclusively.
	DueFrom *time.Time
	DueTo   *time.Time
	Limit   int
	Offset  int
}

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// Insert persists a new task and fills in its ID, CreatedAt and UpdatedAt.
	Insert(ctx context.Context, task *domain.Task) error

	// FindByID retrieves a task by ID regardless of owner.
	// Returns ErrTaskNotFound if the task does not exist.
	FindByID(ctx context.Context, id int64) (*domain.Task, error)

	// Update writes every mutable field of task and refreshes its UpdatedAt.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes task.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, task *domain.Task) error

	// Query returns the number of tasks matching filter, ignoring Limit and
	// Offset, along with the requested page ordered newest first.
	Query(ctx context.Context, filter TaskFilter) (int, []*domain.Task, error)

	// FindAllNotDone returns every task, across all owners, whose status is not done.
	FindAllNotDone(ctx context.Context) ([]*domain.Task, error)

	// WithTx returns a TaskStore that runs its statements on tx.
	WithTx(tx *sql.Tx) TaskStore
}
