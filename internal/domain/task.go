package domain

import (
	"strings"
	"time"
)

// TaskStatus is the workflow state of a task.
type TaskStatus string

// Possible task status values
const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusOverdue    TaskStatus = "overdue"
)

// Validation errors for Task
var (
	ErrEmptyTaskOwner      = NewValidationError("owner_id", "owner ID cannot be empty")
	ErrEmptyTaskTitle      = NewValidationError("title", "title cannot be empty")
	ErrInvalidTaskStatus   = NewValidationError("status", "invalid task status")
	ErrDoneRequiresDueDate = NewValidationError("due_date", "done requires due_date")
)

// IsValid reports whether s is one of the known statuses.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone, TaskStatusOverdue:
		return true
	}
	return false
}

// Task is a unit of work owned by a single user.
//
// ID, CreatedAt and UpdatedAt are assigned by the store. IsOverdue is derived
// state maintained by the overdue recalculation sweep.
type Task struct {
	ID          int64      `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      TaskStatus `json:"status"`
	DueDate     *time.Time `json:"due_date"`
	IsOverdue   bool       `json:"is_overdue"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TaskDraft carries the caller-supplied fields of a new task.
// An empty Status means TaskStatusTodo.
type TaskDraft struct {
	Title       string
	Description *string
	DueDate     *time.Time
	Status      TaskStatus
}

// TaskPatch is a partial update. Nil pointers leave the field untouched;
// the Clear flags null out the optional fields.
type TaskPatch struct {
	Title            *string
	Description      *string
	ClearDescription bool
	DueDate          *time.Time
	ClearDueDate     bool
	Status           *TaskStatus
}

// NewTask builds an unsaved task owned by ownerID from draft.
// A done task without a due date is rejected with ErrDoneRequiresDueDate.
func NewTask(ownerID string, draft TaskDraft) (*Task, error) {
	status := draft.Status
	if status == "" {
		status = TaskStatusTodo
	}

	task := &Task{
		OwnerID:     ownerID,
		Title:       draft.Title,
		Description: draft.Description,
		Status:      status,
		DueDate:     NormalizeUTCPtr(draft.DueDate),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks the fields a task must always satisfy, including that a
// done task has a due date.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.OwnerID) == "" {
		return ErrEmptyTaskOwner
	}
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTaskTitle
	}
	if !t.Status.IsValid() {
		return ErrInvalidTaskStatus
	}
	if t.Status == TaskStatusDone && t.DueDate == nil {
		return ErrDoneRequiresDueDate
	}
	return nil
}

// ApplyPatch validates p against t and then applies the fields it sets.
// Nothing on t changes when an error is returned.
//
// When p sets the status to done, the due date is taken from p if p names
// it (including a clear) and from t otherwise. A done task is never overdue,
// so its IsOverdue flag is cleared here; the sweep skips done tasks.
func (t *Task) ApplyPatch(p TaskPatch) error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrEmptyTaskTitle
	}
	if p.Status != nil {
		if !p.Status.IsValid() {
			return ErrInvalidTaskStatus
		}
		if *p.Status == TaskStatusDone {
			due := t.DueDate
			if p.DueDate != nil || p.ClearDueDate {
				due = p.DueDate
			}
			if due == nil {
				return ErrDoneRequiresDueDate
			}
		}
	}

	if p.Title != nil {
		t.Title = *p.Title
	}
	switch {
	case p.Description != nil:
		t.Description = p.Description
	case p.ClearDescription:
		t.Description = nil
	}
	switch {
	case p.DueDate != nil:
		t.DueDate = NormalizeUTCPtr(p.DueDate)
	case p.ClearDueDate:
		t.DueDate = nil
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if t.Status == TaskStatusDone {
		t.IsOverdue = false
	}
	return nil
}

// OverdueAt reports whether t counts as overdue at now: it has a due date
// strictly before now and is not done.
func (t *Task) OverdueAt(now time.Time) bool {
	if t.Status == TaskStatusDone || t.DueDate == nil {
		return false
	}
	return NormalizeUTC(*t.DueDate).Before(now)
}

// Reconcile brings IsOverdue in line with OverdueAt(now) and reports whether
// anything changed. A task that becomes overdue is moved to TaskStatusOverdue.
// A task that stops being overdue only has its flag cleared; its status stays
// as it is.
func (t *Task) Reconcile(now time.Time) bool {
	overdue := t.OverdueAt(now)
	if overdue == t.IsOverdue {
		return false
	}
	t.IsOverdue = overdue
	if overdue {
		t.Status = TaskStatusOverdue
	}
	return true
}
