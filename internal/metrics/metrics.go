// Package metrics wires Prometheus counters and histograms around the
// archive orchestrator's catalogue operations. spec.md's Non-goals exclude
// "rendering of results for humans", not instrumentation, so this is
// carried as ambient stack the way the teacher carries structured logging
// — the teacher itself carries no metrics package, but the pack's other
// concrete production service (chirino-memory-service) does, and this
// follows its promauto/CounterVec+HistogramVec shape.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stcorp/muninn/internal/apperrors"
)

var (
	// OperationDuration records how long each catalogue operation
	// (ingest/attach/pull/strip/remove/search/count/summary) takes.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "muninn_archive_operation_duration_seconds",
			Help:    "Duration of archive catalogue operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// OperationsTotal counts catalogue operations by outcome ("ok" or the
	// apperrors sentinel class the operation failed with), so a dashboard
	// can distinguish, say, a spike in ErrConflict ingest retries from a
	// spike in ErrBackend failures.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "muninn_archive_operations_total",
			Help: "Total archive catalogue operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// CascadeCycles records how many of the configured max_cascade_cycles
	// an engine run actually consumed before reaching its fixed point,
	// so an operator can tell whether cascade_grace_period or
	// max_cascade_cycles needs tuning.
	CascadeCycles = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "muninn_archive_cascade_cycles",
			Help:    "Cascade cycles consumed per engine run",
			Buckets: prometheus.LinearBuckets(1, 2, 13), // 1..25
		},
	)
)

// outcome classifies err against the closed apperrors taxonomy so the
// "outcome" label has a small, known cardinality instead of one value per
// distinct error message.
func outcome(err apperrors.Error) string {
	switch {
	case err == nil:
		return "ok"
	case apperrors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case apperrors.Is(err, apperrors.ErrConflict):
		return "conflict"
	case apperrors.Is(err, apperrors.ErrState):
		return "state"
	case apperrors.Is(err, apperrors.ErrBackend):
		return "backend"
	case apperrors.Is(err, apperrors.ErrStorage):
		return "storage"
	case apperrors.Is(err, apperrors.ErrPlugin):
		return "plugin"
	case apperrors.Is(err, apperrors.ErrExpression):
		return "expression"
	case apperrors.Is(err, apperrors.ErrSchema):
		return "schema"
	case apperrors.Is(err, apperrors.ErrConfig):
		return "config"
	default:
		return "error"
	}
}

// Track starts timing operation and returns a function to call (typically
// deferred against a named error return value) once the operation
// completes:
//
//	func (a *Archive) Ingest(ctx context.Context, req IngestRequest) (id uuid.UUID, err apperrors.Error) {
//	    defer metrics.Track("ingest")(&err)
//	    ...
//	}
func Track(operation string) func(errp *apperrors.Error) {
	start := time.Now()
	return func(errp *apperrors.Error) {
		var err apperrors.Error
		if errp != nil {
			err = *errp
		}
		OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		OperationsTotal.WithLabelValues(operation, outcome(err)).Inc()
	}
}
