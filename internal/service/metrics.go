package service

import (
	"errors"
	"time"

	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation names used as metric labels and in TaskServiceError.
const (
	OpCreateTask         = "create_task"
	OpGetTask            = "get_task"
	OpUpdateTask         = "update_task"
	OpDeleteTask         = "delete_task"
	OpListTasks          = "list_tasks"
	OpRecalculateOverdue = "recalculate_overdue"
)

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics holds the Prometheus collectors for the task service.
// A nil *Metrics records nothing.
type Metrics struct {
	Operations    *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
	OverdueMarked prometheus.Counter
}

// NewMetrics creates the task service collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasks_operations_total",
				Help: "Task service operations by outcome",
			},
			[]string{"operation", "status"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tasks_operation_duration_seconds",
				Help:    "Time spent in task service operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		OverdueMarked: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tasks_overdue_marked_total",
				Help: "Tasks whose overdue flag was changed by recalculation",
			},
		),
	}
}

func (m *Metrics) observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, outcome(err)).Inc()
	m.Duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) overdueMarked(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.OverdueMarked.Add(float64(n))
}

// outcome separates caller mistakes from failures.
func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, domain.ErrValidation), errors.Is(err, ErrTaskNotFound):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}
