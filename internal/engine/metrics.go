package engine

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/untoldecay/InstructionLog/internal/storage"
)

var (
	// operationsTotal counts engine operations by name and outcome.
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "il_engine_operations_total",
		Help: "Total engine operations by operation and result",
	}, []string{"operation", "result"})

	// operationDuration tracks engine operation latency.
	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "il_engine_operation_duration_seconds",
		Help:    "Engine operation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
	}, []string{"operation"})

	// versionsPruned counts snapshots removed by automatic and manual pruning.
	versionsPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "il_engine_versions_pruned_total",
		Help: "Total archived snapshots deleted by pruning",
	})

	// majorsDemoted counts major snapshots demoted by the major cap.
	majorsDemoted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "il_engine_majors_demoted_total",
		Help: "Total major snapshots demoted by the major version cap",
	})
)

// resultLabel maps an operation error to a low-cardinality label.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, storage.ErrNotFound):
		return "not_found"
	case errors.Is(err, storage.ErrConflict):
		return "conflict"
	case errors.Is(err, storage.ErrVersionConflict):
		return "version_conflict"
	case errors.Is(err, storage.ErrInvalidArgument):
		return "invalid_argument"
	}
	return "error"
}

// observe records one finished operation. Use with defer and a named error.
func observe(operation string, start time.Time, err error) {
	operationsTotal.WithLabelValues(operation, resultLabel(err)).Inc()
	operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
