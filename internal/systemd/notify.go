// Package systemd reports the supervision session to the service manager
// over the sd_notify socket. Every call is a no-op outside systemd.
package systemd

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/smazurov/qaspar/internal/process"
)

// StatusSource is satisfied by *process.Supervisor.
type StatusSource interface {
	Status() process.Status
}

type notifyFunc func(unsetEnvironment bool, state string) (bool, error)

// Notifier forwards session state changes and watchdog pings to systemd.
type Notifier struct {
	notify       notifyFunc
	now          func() time.Time
	watchdog     time.Duration
	pollInterval time.Duration
	logger       *slog.Logger

	mu         sync.Mutex
	lastTick   int
	advancedAt time.Time
}

// NewNotifier creates a notifier for a poll loop ticking every pollInterval.
// The watchdog interval is read from WATCHDOG_USEC; zero disables pings.
func NewNotifier(logger *slog.Logger, pollInterval time.Duration) *Notifier {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		logger.Warn("Invalid systemd watchdog settings", "error", err)
		interval = 0
	}
	return &Notifier{
		notify:       daemon.SdNotify,
		now:          time.Now,
		watchdog:     interval,
		pollInterval: pollInterval,
		logger:       logger,
		lastTick:     -1,
	}
}

// WatchdogInterval returns the interval systemd expects pings within.
func (n *Notifier) WatchdogInterval() time.Duration {
	return n.watchdog
}

// HandleStateChange is a process.StateChangeCallback.
func (n *Notifier) HandleStateChange(_, newState process.State) {
	switch newState {
	case process.StateStarting:
		n.send("STATUS=Launching processes")
	case process.StateRunning:
		n.send(daemon.SdNotifyReady, "STATUS=Supervising")
	case process.StateStopping:
		n.send(daemon.SdNotifyStopping, "STATUS=Stopping processes")
	case process.StateStopped:
		n.send("STATUS=Stopped")
	}
}

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(text string) {
	n.send("STATUS=" + text)
}

// RunWatchdog pings the watchdog at half its interval until ctx is done.
// While running, pings stop once the poll loop has not advanced for
// stuckAfter, so a hung loop gets the service restarted.
func (n *Notifier) RunWatchdog(ctx context.Context, source StatusSource) {
	if n.watchdog <= 0 {
		return
	}

	ticker := time.NewTicker(n.watchdog / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.pingIfAlive(source.Status())
		}
	}
}

// stuckAfter is how long the tick may stand still. A poll interval longer
// than half the watchdog leaves several pings between two ticks.
func (n *Notifier) stuckAfter() time.Duration {
	return max(n.watchdog, 2*n.pollInterval)
}

// pingIfAlive reports whether a ping was sent.
func (n *Notifier) pingIfAlive(status process.Status) bool {
	now := n.now()

	n.mu.Lock()
	if status.State != process.StateRunning || status.Tick != n.lastTick {
		n.lastTick = status.Tick
		n.advancedAt = now
	}
	idle := now.Sub(n.advancedAt)
	n.mu.Unlock()

	if idle >= n.stuckAfter() {
		n.logger.Warn("Poll loop has not advanced, skipping watchdog ping", "tick", status.Tick, "idle", idle)
		return false
	}

	n.send(daemon.SdNotifyWatchdog, fmt.Sprintf("STATUS=Supervising %d processes, tick %d", len(status.Processes), status.Tick))
	return true
}

func (n *Notifier) send(states ...string) {
	for _, state := range states {
		sent, err := n.notify(false, state)
		if err != nil {
			n.logger.Debug("Failed to notify systemd", "state", state, "error", err)
			return
		}
		if !sent {
			return // not running under systemd
		}
	}
}
