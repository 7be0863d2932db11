package api

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/phrazzld/tasks-api/internal/domain"
)

// MaxTitleLength bounds task titles on create and update.
const MaxTitleLength = 255

// Optional is a JSON field that remembers whether it was present and whether
// it was an explicit null. The zero value means "absent".
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// Present reports whether the field carried a non-null value.
func (o Optional[T]) Present() bool {
	return o.Set && !o.Null
}

// Timestamp accepts RFC 3339 and naive ISO 8601 strings; naive values are UTC.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return domain.NewValidationError("due_date", "due_date must be an ISO 8601 timestamp")
	}
	parsed, err := domain.ParseTimestamp(s)
	if err != nil {
		return domain.NewValidationError("due_date", "due_date must be an ISO 8601 timestamp")
	}
	t.Time = parsed
	return nil
}

func (t *Timestamp) ptr() *time.Time {
	if t == nil {
		return nil
	}
	v := t.Time
	return &v
}

// CreateTaskRequest is the body of POST /tasks.
type CreateTaskRequest struct {
	Title       string     `json:"title"       validate:"required,max=255"`
	Description *string    `json:"description"`
	DueDate     *Timestamp `json:"due_date"`
	Status      *string    `json:"status"      validate:"omitempty,oneof=todo in_progress done overdue"`
}

func (r CreateTaskRequest) toDraft() domain.TaskDraft {
	draft := domain.TaskDraft{
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate.ptr(),
	}
	if r.Status != nil {
		draft.Status = domain.TaskStatus(*r.Status)
	}
	return draft
}

// UpdateTaskRequest is the body of PUT and PATCH /tasks/{id}. Every field is
// optional. A null description or due_date clears it; a null title or status
// is ignored.
type UpdateTaskRequest struct {
	Title       Optional[string]    `json:"title"`
	Description Optional[string]    `json:"description"`
	DueDate     Optional[Timestamp] `json:"due_date"`
	Status      Optional[string]    `json:"status"`
}

// Validate checks the fields that carry a value.
func (r UpdateTaskRequest) Validate() error {
	if r.Title.Present() {
		if r.Title.Value == "" || len(r.Title.Value) > MaxTitleLength {
			return domain.NewValidationError("title", "title must be between 1 and 255 characters")
		}
	}
	if r.Status.Present() && !domain.TaskStatus(r.Status.Value).IsValid() {
		return domain.ErrInvalidTaskStatus
	}
	return nil
}

func (r UpdateTaskRequest) toPatch() domain.TaskPatch {
	var p domain.TaskPatch
	if r.Title.Present() {
		title := r.Title.Value
		p.Title = &title
	}
	if r.Description.Set {
		if r.Description.Null {
			p.ClearDescription = true
		} else {
			desc := r.Description.Value
			p.Description = &desc
		}
	}
	if r.DueDate.Set {
		if r.DueDate.Null {
			p.ClearDueDate = true
		} else {
			p.DueDate = r.DueDate.Value.ptr()
		}
	}
	if r.Status.Present() {
		status := domain.TaskStatus(r.Status.Value)
		p.Status = &status
	}
	return p
}

// TaskResponse is the JSON representation of a task.
type TaskResponse struct {
	ID          int64      `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"due_date"`
	IsOverdue   bool       `json:"is_overdue"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func taskToResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		DueDate:     domain.NormalizeUTCPtr(t.DueDate),
		IsOverdue:   t.IsOverdue,
		CreatedAt:   domain.NormalizeUTC(t.CreatedAt),
		UpdatedAt:   domain.NormalizeUTC(t.UpdatedAt),
	}
}

func tasksToResponse(tasks []*domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskToResponse(t))
	}
	return out
}

// RecalculateResponse is the body returned by POST /tasks/recalculate_overdue.
type RecalculateResponse struct {
	Updated int `json:"updated"`
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}
