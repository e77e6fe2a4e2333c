package process

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/smazurov/qaspar/internal/archive"
	"github.com/smazurov/qaspar/internal/events"
	"github.com/smazurov/qaspar/internal/logging"
	"github.com/smazurov/qaspar/internal/metrics"
)

// Supervisor runs one supervision session over a fixed set of processes.
type Supervisor struct {
	opts         Options
	handles      []*Handle
	signal       *DrainSignal
	logger       logging.Logger
	outputLogger logging.Logger
	pruner       Pruner

	stopCh   chan struct{}
	stopOnce sync.Once

	// countdown is only touched by the poll loop.
	countdown int

	mu             sync.RWMutex
	state          State
	tick           int
	cleanup        archive.Config
	cleanupEnabled bool
}

// NewSupervisor validates the specs and prepares a session. Nothing is
// launched until Run is called.
func NewSupervisor(specs []Spec, opts *Options) (*Supervisor, error) {
	if len(specs) == 0 {
		return nil, ErrNoProcesses
	}
	if opts == nil {
		opts = &Options{}
	}

	o := *opts
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.KillTimeout <= 0 {
		o.KillTimeout = defaultKillTimeout
	}

	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	outputLogger := o.OutputLogger
	if outputLogger == nil {
		outputLogger = logger
	}
	pruner := o.Pruner
	if pruner == nil {
		pruner = archive.NewCleaner(logger)
	}

	seen := make(map[string]bool, len(specs))
	handles := make([]*Handle, 0, len(specs))
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		if seen[spec.Name] {
			return nil, fmt.Errorf("%w: duplicate name %s", ErrInvalidSpec, spec.Name)
		}
		seen[spec.Name] = true
		handles = append(handles, newHandle(spec.clone(), logger))
	}

	s := &Supervisor{
		opts:           o,
		handles:        handles,
		signal:         NewDrainSignal(),
		logger:         logger,
		outputLogger:   outputLogger,
		pruner:         pruner,
		stopCh:         make(chan struct{}),
		state:          StateIdle,
		cleanup:        o.Cleanup,
		cleanupEnabled: o.CleanupEnabled,
	}
	s.countdown = s.cleanupInterval()
	return s, nil
}

// Run launches every process and polls until one of them stalls or exits, or
// until Stop is called or ctx is cancelled. All processes are terminated
// before Run returns. The error is non-nil only when a launch failed.
func (s *Supervisor) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	s.setState(StateStarting)
	if err := s.launch(); err != nil {
		s.terminate()
		return report, err
	}
	s.setState(StateRunning)

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for running := true; running; {
		select {
		case <-ctx.Done():
			s.logger.Info("Context cancelled, stopping processes")
			report.StopRequested = true
			running = false
		case <-s.stopCh:
			s.logger.Info("Stop requested, stopping processes")
			report.StopRequested = true
			running = false
		case <-ticker.C:
			running = !s.poll(report)
		}
	}

	s.terminate()
	s.logger.Info("Supervision finished", "ticks", report.Ticks, "stalled", len(report.Stalled), "exited", len(report.Exited))
	return report, nil
}

// Stop requests an external stop. Safe to call more than once and from any goroutine.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// Status returns a snapshot of the session.
func (s *Supervisor) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := Status{
		State:          s.state,
		Tick:           s.tick,
		Processes:      make([]ProcessStatus, 0, len(s.handles)),
		CleanupEnabled: s.cleanupEnabled,
		CleanupDir:     s.cleanup.Dir,
	}
	for _, h := range s.handles {
		ps := ProcessStatus{
			Name:          h.spec.Name,
			PID:           h.pid,
			Running:       h.pid != 0,
			EmptyPolls:    h.emptyPolls,
			MaxEmptyPolls: h.spec.MaxEmptyPolls,
		}
		if code, done := h.exited(); done {
			ps.Running = false
			ps.ExitCode = &code
		}
		status.Processes = append(status.Processes, ps)
	}
	return status
}

// SetCleanup replaces the retention settings used by the following cleanup runs.
func (s *Supervisor) SetCleanup(cfg archive.Config, enabled bool) {
	s.mu.Lock()
	s.cleanup = cfg
	s.cleanupEnabled = enabled
	s.mu.Unlock()

	s.logger.Info("Cleanup settings updated", "enabled", enabled, "dir", cfg.Dir, "keep_days", cfg.RetentionDays)
}

// launch starts every process in order and stops at the first failure.
func (s *Supervisor) launch() error {
	for _, h := range s.handles {
		if err := h.start(s.signal); err != nil {
			s.logger.Error("Failed to start process", "process", h.spec.Name, "command", h.spec.CommandLine(), "error", err)
			return &LaunchError{Name: h.spec.Name, Err: err}
		}

		s.mu.Lock()
		h.pid = h.cmd.Process.Pid
		s.mu.Unlock()

		s.logger.Info("Process started", "process", h.spec.Name, "pid", h.pid, "command", h.spec.CommandLine())
	}
	return nil
}

// poll runs one tick of the loop. Every process is checked and every
// triggered condition is logged; the return value asks the loop to stop.
func (s *Supervisor) poll(report *Report) bool {
	s.mu.Lock()
	s.tick++
	tick := s.tick
	s.mu.Unlock()
	report.Ticks = tick

	stop := false
	for _, h := range s.handles {
		name := h.spec.Name
		record := h.drain()
		if s.opts.Verbose {
			s.emit(record)
		}
		if s.opts.OnOutput != nil && !record.Empty() {
			s.opts.OnOutput(record)
		}
		metrics.AddProcessOutputLines(name, "stdout", len(record.Stdout))
		metrics.AddProcessOutputLines(name, "stderr", len(record.Stderr))

		s.mu.Lock()
		if record.Empty() {
			h.emptyPolls++
		} else {
			h.emptyPolls = 0
		}
		emptyPolls := h.emptyPolls
		s.mu.Unlock()
		metrics.SetProcessEmptyPolls(name, emptyPolls)

		if emptyPolls > h.spec.MaxEmptyPolls {
			s.logger.Warn(fmt.Sprintf("Process %s seems to be stalled, aborting...", name),
				"process", name, "empty_polls", emptyPolls, "tick", tick)
			report.Stalled = append(report.Stalled, name)
			metrics.IncProcessStalls(name)
			s.publish(events.ProcessStalledEvent{
				Process:    name,
				EmptyPolls: emptyPolls,
				Tick:       tick,
				Timestamp:  time.Now().Format(time.RFC3339),
			})
			stop = true
		}

		if code, exited := h.exited(); exited {
			s.logger.Warn(fmt.Sprintf("Process %s seems to have failed (exit code %d), aborting...", name, code),
				"process", name, "exit_code", code, "tick", tick)
			report.Exited = append(report.Exited, ExitInfo{Name: name, Code: code})
			metrics.IncProcessExits(name)
			s.publish(events.ProcessExitedEvent{
				Process:   name,
				ExitCode:  code,
				Tick:      tick,
				Timestamp: time.Now().Format(time.RFC3339),
			})
			stop = true
		}
	}

	s.countdown--
	if s.countdown <= 0 {
		s.runCleanup(report)
		s.countdown = s.cleanupInterval()
	}

	return stop
}

// cleanupInterval is the number of ticks between two cleanups: two chunk
// durations, at least one tick.
func (s *Supervisor) cleanupInterval() int {
	s.mu.RLock()
	chunk := s.cleanup.ChunkDuration
	s.mu.RUnlock()

	ticks := int(math.Round(float64(chunk)/float64(s.opts.PollInterval))) * 2
	return max(1, ticks)
}

func (s *Supervisor) runCleanup(report *Report) {
	s.mu.RLock()
	cfg, enabled := s.cleanup, s.cleanupEnabled
	s.mu.RUnlock()

	if !enabled {
		return
	}

	result, err := s.pruner.Prune(cfg)
	if err != nil {
		s.logger.Error("Archive cleanup failed", "dir", cfg.Dir, "error", err)
		return
	}

	report.Cleanups++
	s.publish(events.CleanupCompletedEvent{
		Dir:       cfg.Dir,
		Scanned:   result.Scanned,
		Removed:   len(result.Removed),
		Failed:    result.Failed,
		Limit:     result.Limit.Format(time.RFC3339),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// emit logs every line of a record at the level found by the log parser.
func (s *Supervisor) emit(record OutputRecord) {
	for _, line := range record.Stdout {
		s.logLine(record.Process, "stdout", line)
	}
	for _, line := range record.Stderr {
		s.logLine(record.Process, "stderr", line)
	}
}

func (s *Supervisor) logLine(process, source, line string) {
	level, msg := slog.LevelInfo, line
	if s.opts.LogParser != nil {
		level, msg = s.opts.LogParser(line)
	}

	log := s.outputLogger.Info
	switch {
	case level >= slog.LevelError:
		log = s.outputLogger.Error
	case level >= slog.LevelWarn:
		log = s.outputLogger.Warn
	case level < slog.LevelInfo:
		log = s.outputLogger.Debug
	}
	log(msg, "process", process, "source", source)
}

// terminate stops every drainer and kills every process, then waits for all
// of them. The session ends in StateStopped even if a wait timed out.
func (s *Supervisor) terminate() {
	s.setState(StateStopping)
	s.signal.Stop()

	for _, h := range s.handles {
		if err := h.kill(); err != nil {
			s.logger.Error("Failed to kill process", "process", h.spec.Name, "error", err)
		}
	}

	for _, h := range s.handles {
		if !h.wait(s.opts.KillTimeout) {
			s.logger.Error("Process did not exit after kill signal", "process", h.spec.Name, "timeout", s.opts.KillTimeout)
		}
	}

	s.setState(StateStopped)
}

func (s *Supervisor) setState(newState State) {
	s.mu.Lock()
	oldState := s.state
	s.state = newState
	s.mu.Unlock()

	if oldState == newState {
		return
	}

	s.logger.Debug("Session state changed", "old_state", oldState, "new_state", newState)
	metrics.SetSessionState(string(newState))
	s.publish(events.SessionStateChangedEvent{
		OldState:  string(oldState),
		NewState:  string(newState),
		Timestamp: time.Now().Format(time.RFC3339),
	})
	if s.opts.OnStateChange != nil {
		s.opts.OnStateChange(oldState, newState)
	}
}

func (s *Supervisor) publish(ev events.Event) {
	if s.opts.EventBus != nil {
		s.opts.EventBus.Publish(ev)
	}
}
