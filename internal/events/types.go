package events

// Event type constants for kelindar/event.
const (
	TypeSessionStateChanged uint32 = iota + 1
	TypeProcessStalled
	TypeProcessExited
	TypeCleanupCompleted
	TypeProcessMetrics
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// SessionStateChangedEvent is published on every supervision state transition.
type SessionStateChangedEvent struct {
	OldState  string `json:"old_state" example:"starting" doc:"Previous session state"`
	NewState  string `json:"new_state" example:"running" doc:"New session state"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionStateChangedEvent.
func (e SessionStateChangedEvent) Type() uint32 { return TypeSessionStateChanged }

// ProcessStalledEvent is published when a process produced no output for too long.
type ProcessStalledEvent struct {
	Process    string `json:"process" example:"Store" doc:"Process name"`
	EmptyPolls int    `json:"empty_polls" example:"21" doc:"Consecutive polls without output"`
	Tick       int    `json:"tick" example:"21" doc:"Poll tick the stall was detected on"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ProcessStalledEvent.
func (e ProcessStalledEvent) Type() uint32 { return TypeProcessStalled }

// ProcessExitedEvent is published when a supervised process exited on its own.
type ProcessExitedEvent struct {
	Process   string `json:"process" example:"Player" doc:"Process name"`
	ExitCode  int    `json:"exit_code" example:"1" doc:"Exit code, 128+signal when killed"`
	Tick      int    `json:"tick" example:"5" doc:"Poll tick the exit was detected on"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ProcessExitedEvent.
func (e ProcessExitedEvent) Type() uint32 { return TypeProcessExited }

// CleanupCompletedEvent is published after each archive cleanup run.
type CleanupCompletedEvent struct {
	Dir       string `json:"dir" example:"./archived_files" doc:"Archive directory"`
	Scanned   int    `json:"scanned" example:"720" doc:"Regular files examined"`
	Removed   int    `json:"removed" example:"2" doc:"Files removed"`
	Failed    int    `json:"failed" example:"0" doc:"Files that could not be removed"`
	Limit     string `json:"limit" example:"2025-01-26T11:30:00Z" doc:"Files modified before this time were removed"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CleanupCompletedEvent.
func (e CleanupCompletedEvent) Type() uint32 { return TypeCleanupCompleted }

// ProcessMetricsEvent carries the latest ffmpeg progress of a process.
type ProcessMetricsEvent struct {
	EventType string `json:"type"`
	Process   string `json:"process"`
	Bitrate   string `json:"bitrate_kbps"`
	Speed     string `json:"speed"`
	OutTime   string `json:"out_time_seconds"`
}

// Type returns the event type identifier for ProcessMetricsEvent.
func (e ProcessMetricsEvent) Type() uint32 { return TypeProcessMetrics }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"supervisor" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
