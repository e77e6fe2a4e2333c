package process

import (
	"time"

	"github.com/smazurov/qaspar/internal/archive"
	"github.com/smazurov/qaspar/internal/events"
	"github.com/smazurov/qaspar/internal/logging"
)

const (
	defaultPollInterval = time.Second
	defaultKillTimeout  = 5 * time.Second
)

// StateChangeCallback is called when the session state changes.
// Used for service manager notifications and similar reactions.
type StateChangeCallback func(oldState, newState State)

// Pruner removes aged files from the archive directory.
type Pruner interface {
	Prune(cfg archive.Config) (*archive.Result, error)
}

// Options configures a new Supervisor.
type Options struct {
	// PollInterval is the time between two polls. Defaults to one second.
	PollInterval time.Duration

	// KillTimeout bounds each shutdown wait per process. Defaults to five seconds.
	KillTimeout time.Duration

	// Verbose logs every output line of the supervised processes.
	Verbose bool

	// LogParser extracts the level of an output line (optional).
	LogParser LogParser

	// OutputLogger receives process output when Verbose is set. If nil, uses Logger.
	OutputLogger logging.Logger

	// Cleanup is the retention policy applied while running.
	Cleanup archive.Config

	// CleanupEnabled turns the periodic cleanup on.
	CleanupEnabled bool

	// Pruner runs the cleanup. If nil, an archive.Cleaner is used.
	Pruner Pruner

	// OnOutput receives every non-empty record, verbose or not (optional).
	// Used for progress metrics.
	OnOutput func(record OutputRecord)

	// OnStateChange is called on every state transition (optional).
	OnStateChange StateChangeCallback

	// EventBus receives session events (optional).
	EventBus *events.Bus

	// Logger for supervisor operations. If nil, uses slog.Default().
	Logger logging.Logger
}
