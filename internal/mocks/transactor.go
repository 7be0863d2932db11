package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/tasks-api/internal/store"
)

// Transactor runs TxFn with a nil *sql.Tx and counts the outcome.
// Pair it with a store mock whose WithTx ignores its argument.
type Transactor struct {
	mu        sync.Mutex
	commits   int
	rollbacks int

	// BeginErr, if set, is returned before fn runs.
	BeginErr error
	// CommitErr, if set, is returned after fn succeeds and counts as a rollback.
	CommitErr error
}

var _ store.Transactor = (*Transactor)(nil)

// RunInTx implements store.Transactor.
func (t *Transactor) RunInTx(ctx context.Context, fn store.TxFn) error {
	if t.BeginErr != nil {
		return t.BeginErr
	}

	err := fn(ctx, nil)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err == nil && t.CommitErr != nil {
		err = t.CommitErr
	}
	if err != nil {
		t.rollbacks++
		return err
	}
	t.commits++
	return nil
}

// Commits returns how many transactions committed.
func (t *Transactor) Commits() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.commits
}

// Rollbacks returns how many transactions rolled back.
func (t *Transactor) Rollbacks() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rollbacks
}
