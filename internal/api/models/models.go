package models

import "time"

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2024-12-15 14:30" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"a1b2c3d4" doc:"Unique build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go compiler version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Compiler used"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Session models
type ProcessData struct {
	Name          string `json:"name" example:"Store" doc:"Process display name"`
	PID           int    `json:"pid,omitempty" example:"4242" doc:"OS process id, 0 before launch"`
	Running       bool   `json:"running" example:"true" doc:"Whether the process has not exited yet"`
	EmptyPolls    int    `json:"empty_polls" example:"0" doc:"Consecutive polls without output"`
	MaxEmptyPolls int    `json:"max_empty_polls" example:"20" doc:"Polls without output tolerated before the process is considered stalled"`
	ExitCode      *int   `json:"exit_code,omitempty" example:"1" doc:"Exit code once the process has exited"`
}

type SessionData struct {
	State          string        `json:"state" enum:"idle,starting,running,stopping,stopped" example:"running" doc:"Supervision session state"`
	Tick           int           `json:"tick" example:"42" doc:"Number of completed polls"`
	Processes      []ProcessData `json:"processes" doc:"Supervised processes in launch order"`
	CleanupEnabled bool          `json:"cleanup_enabled" example:"true" doc:"Whether the archive is pruned while running"`
	CleanupDir     string        `json:"cleanup_dir,omitempty" example:"./archived_files" doc:"Archive directory being pruned"`
}

type SessionResponse struct {
	Body SessionData
}

type StopData struct {
	Message string `json:"message" example:"Stop requested" doc:"Operation result message"`
	State   string `json:"state" example:"running" doc:"Session state when the request was accepted"`
}

type StopResponse struct {
	Body StopData
}

// Log models
type LogsInput struct {
	Since uint64 `query:"since" doc:"Only return entries with a sequence number greater than this"`
	Level string `query:"level" enum:"debug,info,warn,error" doc:"Minimum level to return"`
	Limit int    `query:"limit" minimum:"0" maximum:"1000" default:"200" doc:"Maximum number of entries, newest kept"`
}

type LogEntryData struct {
	Seq        uint64         `json:"seq" example:"17" doc:"Monotonic sequence number"`
	Timestamp  time.Time      `json:"timestamp" doc:"When the entry was logged"`
	Level      string         `json:"level" example:"warn" doc:"Log level"`
	Module     string         `json:"module" example:"supervisor" doc:"Logging module"`
	Message    string         `json:"message" example:"Process Store seems to be stalled, aborting..." doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured attributes"`
}

type LogsData struct {
	Entries []LogEntryData `json:"entries" doc:"Log entries, oldest first"`
	LastSeq uint64         `json:"last_seq" example:"17" doc:"Sequence number to pass as since on the next request"`
}

type LogsResponse struct {
	Body LogsData
}
