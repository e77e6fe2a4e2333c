package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SessionStates lists every value reported by the session state gauge.
var SessionStates = []string{"idle", "starting", "running", "stopping", "stopped"}

var (
	sessionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "qaspar",
		Subsystem: "session",
		Name:      "state",
		Help:      "1 for the current supervision state, 0 otherwise",
	}, []string{"state"})

	processEmptyPolls = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "qaspar",
		Subsystem: "process",
		Name:      "empty_polls",
		Help:      "Consecutive polls without output",
	}, []string{"process"})

	processOutputLines = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qaspar",
		Subsystem: "process",
		Name:      "output_lines_total",
		Help:      "Output lines read from a process",
	}, []string{"process", "source"})

	processStalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qaspar",
		Subsystem: "process",
		Name:      "stalls_total",
		Help:      "Times a process was judged stalled",
	}, []string{"process"})

	processExits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qaspar",
		Subsystem: "process",
		Name:      "exits_total",
		Help:      "Times a process exited on its own",
	}, []string{"process"})
)

// SetSessionState marks state as the current session state.
func SetSessionState(state string) {
	for _, s := range SessionStates {
		value := 0.0
		if s == state {
			value = 1
		}
		sessionState.WithLabelValues(s).Set(value)
	}
}

// SetProcessEmptyPolls sets the current stall counter of a process.
func SetProcessEmptyPolls(process string, n int) {
	processEmptyPolls.WithLabelValues(process).Set(float64(n))
}

// AddProcessOutputLines counts lines read from one stream of a process.
func AddProcessOutputLines(process, source string, n int) {
	if n <= 0 {
		return
	}
	processOutputLines.WithLabelValues(process, source).Add(float64(n))
}

// IncProcessStalls counts a stall.
func IncProcessStalls(process string) {
	processStalls.WithLabelValues(process).Inc()
}

// IncProcessExits counts an unexpected exit.
func IncProcessExits(process string) {
	processExits.WithLabelValues(process).Inc()
}
