package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/tasks-api/internal/api/shared"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/phrazzld/tasks-api/internal/redact"
	"github.com/phrazzld/tasks-api/internal/service"
)

var errInvalidTaskID = errors.New("invalid task ID")

// getPathTaskID parses the {id} path parameter as a positive integer.
func getPathTaskID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidTaskID, raw)
	}
	return id, nil
}

// listQuery holds the parsed GET /tasks query string.
type listQuery struct {
	Status  *string `json:"status"   validate:"omitempty,oneof=todo in_progress done overdue"`
	DueFrom *time.Time
	DueTo   *time.Time
	Limit   int `json:"limit"  validate:"gte=1,lte=100"`
	Offset  int `json:"offset" validate:"gte=0"`
}

// parseListQuery reads and validates list parameters. Errors are
// *domain.ValidationError or validator.ValidationErrors.
func parseListQuery(q url.Values) (listQuery, error) {
	lq := listQuery{Limit: service.DefaultListLimit}

	if v := q.Get("status"); v != "" {
		lq.Status = &v
	}

	var err error
	if lq.Limit, err = intParam(q, "limit", lq.Limit); err != nil {
		return lq, err
	}
	if lq.Offset, err = intParam(q, "offset", 0); err != nil {
		return lq, err
	}
	if lq.DueFrom, err = timeParam(q, "due_from"); err != nil {
		return lq, err
	}
	if lq.DueTo, err = timeParam(q, "due_to"); err != nil {
		return lq, err
	}

	if err := shared.ValidateRequest(lq); err != nil {
		return lq, err
	}
	return lq, nil
}

func (lq listQuery) params() service.ListParams {
	p := service.ListParams{
		DueFrom: lq.DueFrom,
		DueTo:   lq.DueTo,
		Limit:   lq.Limit,
		Offset:  lq.Offset,
	}
	if lq.Status != nil {
		status := domain.TaskStatus(*lq.Status)
		p.Status = &status
	}
	return p
}

func intParam(q url.Values, name string, fallback int) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name, name+" must be an integer")
	}
	return n, nil
}

func timeParam(q url.Values, name string) (*time.Time, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := domain.ParseTimestamp(raw)
	if err != nil {
		return nil, domain.NewValidationError(name, name+" must be an ISO 8601 timestamp")
	}
	return &t, nil
}

// handleServiceError writes the response for an error returned by the task
// service or an ownership check.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// requestLogger returns the request-scoped logger, falling back to base.
func requestLogger(r *http.Request, base *slog.Logger) *slog.Logger {
	return logger.FromContextOrDefault(r.Context(), base)
}

// logWarn logs a rejected request with the redacted cause.
func logWarn(log *slog.Logger, msg string, err error, attrs ...any) {
	log.Warn(msg, append([]any{redact.Attr(err)}, attrs...)...)
}
