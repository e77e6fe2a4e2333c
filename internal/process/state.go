package process

// State represents the lifecycle state of a supervision session.
type State string

// Session states.
const (
	StateIdle     State = "idle"     // Not started
	StateStarting State = "starting" // Launching processes
	StateRunning  State = "running"  // Poll loop active
	StateStopping State = "stopping" // Killing processes
	StateStopped  State = "stopped"  // Everything terminated
)

// ProcessStatus is a point-in-time view of one supervised process.
type ProcessStatus struct {
	Name          string
	PID           int
	Running       bool
	EmptyPolls    int
	MaxEmptyPolls int
	ExitCode      *int
}

// Status is a point-in-time view of a supervision session.
type Status struct {
	State          State
	Tick           int
	Processes      []ProcessStatus
	CleanupEnabled bool
	CleanupDir     string
}

// ExitInfo records a process that exited on its own during the session.
type ExitInfo struct {
	Name string
	Code int
}

// Report summarizes a finished session.
type Report struct {
	Ticks         int
	Stalled       []string
	Exited        []ExitInfo
	StopRequested bool
	Cleanups      int
}

// Failed reports whether the session ended because a process stalled or exited.
func (r *Report) Failed() bool {
	return len(r.Stalled) > 0 || len(r.Exited) > 0
}
