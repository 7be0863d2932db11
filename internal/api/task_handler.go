package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/phrazzld/tasks-api/internal/api/shared"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/service"
	"golang.org/x/sync/singleflight"
)

// TotalCountHeader carries the unpaginated match count on GET /tasks.
const TotalCountHeader = "X-Total-Count"

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	services service.TaskServiceFactory
	logger   *slog.Logger
	sweeps   singleflight.Group
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(services service.TaskServiceFactory, logger *slog.Logger) *TaskHandler {
	if services == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("task service factory cannot be nil for TaskHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}

	return &TaskHandler{
		services: services,
		logger:   logger.With(slog.String("component", "task_handler")),
	}
}

// taskService binds the service to the caller identity set by the identity
// middleware. It writes a 401 and returns false when there is none.
func (h *TaskHandler) taskService(w http.ResponseWriter, r *http.Request) (service.TaskService, bool) {
	userID, ok := shared.GetUserID(r.Context())
	if !ok {
		requestLogger(r, h.logger).Warn("user ID not found in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found")
		return nil, false
	}
	return h.services.ForOwner(userID), true
}

// loadOwnedTask fetches the {id} task and checks it belongs to the caller.
// On failure the response has been written and false is returned.
func (h *TaskHandler) loadOwnedTask(
	w http.ResponseWriter,
	r *http.Request,
	svc service.TaskService,
) (*domain.Task, bool) {
	log := requestLogger(r, h.logger)

	id, err := getPathTaskID(r)
	if err != nil {
		logWarn(log, "invalid task ID", err)
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return nil, false
	}

	task, err := svc.GetTask(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err, "Failed to get task")
		return nil, false
	}

	if task.OwnerID != svc.OwnerID() {
		log.Warn("task access denied",
			slog.Int64("task_id", id),
			slog.String("caller", svc.OwnerID()))
		handleServiceError(w, r, ErrTaskNotOwned, "")
		return nil, false
	}

	return task, true
}

// CreateTask handles POST /tasks
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r, h.logger)

	svc, ok := h.taskService(w, r)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.respondDecodeError(w, r, err)
		return
	}

	if err := shared.ValidateRequest(&req); err != nil {
		logWarn(log, "validation error", err)
		handleServiceError(w, r, err, "")
		return
	}

	task, err := svc.CreateTask(r.Context(), req.toDraft())
	if err != nil {
		handleServiceError(w, r, err, "Failed to create task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(task))
}

// GetTask handles GET /tasks/{id}
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.taskService(w, r)
	if !ok {
		return
	}

	task, ok := h.loadOwnedTask(w, r, svc)
	if !ok {
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// UpdateTask handles PUT and PATCH /tasks/{id}. Both are partial updates.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r, h.logger)

	svc, ok := h.taskService(w, r)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		h.respondDecodeError(w, r, err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		logWarn(log, "validation error", err)
		handleServiceError(w, r, err, "")
		return
	}

	task, ok := h.loadOwnedTask(w, r, svc)
	if !ok {
		return
	}

	updated, err := svc.UpdateTask(r.Context(), task, req.toPatch())
	if err != nil {
		handleServiceError(w, r, err, "Failed to update task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(updated))
}

// DeleteTask handles DELETE /tasks/{id}
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.taskService(w, r)
	if !ok {
		return
	}

	task, ok := h.loadOwnedTask(w, r, svc)
	if !ok {
		return
	}

	if err := svc.DeleteTask(r.Context(), task); err != nil {
		handleServiceError(w, r, err, "Failed to delete task")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListTasks handles GET /tasks. The body is a bare array of the requested
// page and the total match count goes in the X-Total-Count header.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r, h.logger)

	svc, ok := h.taskService(w, r)
	if !ok {
		return
	}

	query, err := parseListQuery(r.URL.Query())
	if err != nil {
		logWarn(log, "invalid list query", err)
		handleServiceError(w, r, err, "")
		return
	}

	total, tasks, err := svc.ListTasks(r.Context(), query.params())
	if err != nil {
		handleServiceError(w, r, err, "Failed to list tasks")
		return
	}

	w.Header().Set(TotalCountHeader, strconv.Itoa(total))
	shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(tasks))
}

// RecalculateOverdue handles POST /tasks/recalculate_overdue. Admin access
// is enforced by middleware. Requests that arrive while a sweep is running
// share its result.
func (h *TaskHandler) RecalculateOverdue(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r, h.logger)

	svc, ok := h.taskService(w, r)
	if !ok {
		return
	}

	// The sweep outlives any single caller that gives up waiting.
	ctx := context.WithoutCancel(r.Context())
	v, err, coalesced := h.sweeps.Do("recalculate_overdue", func() (interface{}, error) {
		return svc.RecalculateOverdue(ctx)
	})
	if err != nil {
		handleServiceError(w, r, err, "Failed to recalculate overdue tasks")
		return
	}

	updated := v.(int)
	log.Info("overdue recalculation served",
		slog.Int("updated", updated),
		slog.Bool("coalesced", coalesced))
	shared.RespondWithJSON(w, r, http.StatusOK, RecalculateResponse{Updated: updated})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *TaskHandler) respondDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	logWarn(requestLogger(r, h.logger), "invalid request format", err)
	if errors.Is(err, domain.ErrValidation) {
		handleServiceError(w, r, err, "")
		return
	}
	shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
}
