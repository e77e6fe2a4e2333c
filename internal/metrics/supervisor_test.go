package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSetSessionState(t *testing.T) {
	SetSessionState("running")

	if got := testutil.ToFloat64(sessionState.WithLabelValues("running")); got != 1 {
		t.Errorf("running = %v, want 1", got)
	}
	if got := testutil.ToFloat64(sessionState.WithLabelValues("stopped")); got != 0 {
		t.Errorf("stopped = %v, want 0", got)
	}

	SetSessionState("stopped")
	if got := testutil.ToFloat64(sessionState.WithLabelValues("running")); got != 0 {
		t.Errorf("running = %v after stop, want 0", got)
	}
	if got := testutil.ToFloat64(sessionState.WithLabelValues("stopped")); got != 1 {
		t.Errorf("stopped = %v, want 1", got)
	}
}

func TestProcessCounters(t *testing.T) {
	process := "metrics-test-store"

	before := testutil.ToFloat64(processOutputLines.WithLabelValues(process, "stderr"))
	AddProcessOutputLines(process, "stderr", 3)
	AddProcessOutputLines(process, "stderr", 0)
	if got := testutil.ToFloat64(processOutputLines.WithLabelValues(process, "stderr")); got != before+3 {
		t.Errorf("output lines = %v, want %v", got, before+3)
	}

	SetProcessEmptyPolls(process, 7)
	if got := testutil.ToFloat64(processEmptyPolls.WithLabelValues(process)); got != 7 {
		t.Errorf("empty polls = %v, want 7", got)
	}

	stalls := testutil.ToFloat64(processStalls.WithLabelValues(process))
	IncProcessStalls(process)
	if got := testutil.ToFloat64(processStalls.WithLabelValues(process)); got != stalls+1 {
		t.Errorf("stalls = %v, want %v", got, stalls+1)
	}

	exits := testutil.ToFloat64(processExits.WithLabelValues(process))
	IncProcessExits(process)
	if got := testutil.ToFloat64(processExits.WithLabelValues(process)); got != exits+1 {
		t.Errorf("exits = %v, want %v", got, exits+1)
	}
}

func TestCleanupCounters(t *testing.T) {
	runs := testutil.ToFloat64(cleanupRuns.WithLabelValues("ok"))
	removed := testutil.ToFloat64(cleanupRemoved)
	failures := testutil.ToFloat64(cleanupFailures)

	IncCleanupRuns("ok")
	AddCleanupRemoved(4)
	AddCleanupFailures(1)
	AddCleanupFailures(-1)

	if got := testutil.ToFloat64(cleanupRuns.WithLabelValues("ok")); got != runs+1 {
		t.Errorf("runs = %v, want %v", got, runs+1)
	}
	if got := testutil.ToFloat64(cleanupRemoved); got != removed+4 {
		t.Errorf("removed = %v, want %v", got, removed+4)
	}
	if got := testutil.ToFloat64(cleanupFailures); got != failures+1 {
		t.Errorf("failures = %v, want %v", got, failures+1)
	}
}
