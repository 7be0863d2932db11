package mocks

import (
	"context"
	"database/sql"

	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// TaskStore is a mock of store.TaskStore for use with testify/mock.
type TaskStore struct {
	mock.Mock
}

var _ store.TaskStore = (*TaskStore)(nil)

// Insert is a mock implementation of store.TaskStore.Insert
func (m *TaskStore) Insert(ctx context.Context, task *domain.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

// FindByID is a mock implementation of store.TaskStore.FindByID
func (m *TaskStore) FindByID(ctx context.Context, id int64) (*domain.Task, error) {
	args := m.Called(ctx, id)
	if task, ok := args.Get(0).(*domain.Task); ok {
		return task, args.Error(1)
	}
	return nil, args.Error(1)
}

// Update is a mock implementation of store.TaskStore.Update
func (m *TaskStore) Update(ctx context.Context, task *domain.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

// Delete is a mock implementation of store.TaskStore.Delete
func (m *TaskStore) Delete(ctx context.Context, task *domain.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

// Query is a mock implementation of store.TaskStore.Query
func (m *TaskStore) Query(ctx context.Context, filter store.TaskFilter) (int, []*domain.Task, error) {
	args := m.Called(ctx, filter)
	tasks, _ := args.Get(1).([]*domain.Task)
	return args.Int(0), tasks, args.Error(2)
}

// FindAllNotDone is a mock implementation of store.TaskStore.FindAllNotDone
func (m *TaskStore) FindAllNotDone(ctx context.Context) ([]*domain.Task, error) {
	args := m.Called(ctx)
	tasks, _ := args.Get(0).([]*domain.Task)
	return tasks, args.Error(1)
}

// WithTx returns the mock itself so calls made inside a transaction are
// recorded on the same expectations.
func (m *TaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return m
}
