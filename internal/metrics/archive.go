package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cleanupRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qaspar",
		Subsystem: "cleanup",
		Name:      "runs_total",
		Help:      "Archive cleanup runs by result",
	}, []string{"result"})

	cleanupRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qaspar",
		Subsystem: "cleanup",
		Name:      "removed_files_total",
		Help:      "Archive files removed",
	})

	cleanupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qaspar",
		Subsystem: "cleanup",
		Name:      "failures_total",
		Help:      "Archive files that could not be removed",
	})
)

// IncCleanupRuns counts a cleanup run; result is "ok" or "error".
func IncCleanupRuns(result string) {
	cleanupRuns.WithLabelValues(result).Inc()
}

// AddCleanupRemoved counts removed archive files.
func AddCleanupRemoved(n int) {
	if n > 0 {
		cleanupRemoved.Add(float64(n))
	}
}

// AddCleanupFailures counts files that could not be removed.
func AddCleanupFailures(n int) {
	if n > 0 {
		cleanupFailures.Add(float64(n))
	}
}
