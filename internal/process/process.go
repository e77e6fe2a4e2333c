package process

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/smazurov/qaspar/internal/logging"
)

// LogParser splits an output line into its level and message.
type LogParser func(line string) (slog.Level, string)

// Handle is one supervised subprocess and its buffered output.
// Handles are owned by a Supervisor and never restarted.
type Handle struct {
	spec   Spec
	cmd    *exec.Cmd
	logger logging.Logger

	stdout LineQueue
	stderr LineQueue

	// Guarded by the supervisor's mutex.
	pid        int
	emptyPolls int

	done     chan struct{} // closed once the process is reaped
	exitCode int           // valid once done is closed

	drainers  sync.WaitGroup
	drained   chan struct{} // closed once both drainers returned
	pipes     []io.Closer
	closeOnce sync.Once
}

func newHandle(spec Spec, logger logging.Logger) *Handle {
	return &Handle{
		spec:    spec,
		logger:  logger,
		done:    make(chan struct{}),
		drained: make(chan struct{}),
	}
}

// Name returns the display name of the process.
func (h *Handle) Name() string {
	return h.spec.Name
}

// start launches the subprocess in its own process group, its two drainers
// and its exit waiter. The exit is observed as soon as the process has
// terminated, even while a child it left behind still holds its output open.
func (h *Handle) start(signal *DrainSignal) error {
	cmd := exec.Command(h.spec.Command[0], h.spec.Command[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return err
	}
	h.cmd = cmd
	h.pipes = []io.Closer{stdout, stderr}

	h.drainers.Add(2)
	go func() {
		defer h.drainers.Done()
		(&drainer{source: "stdout", reader: stdout, queue: &h.stdout, signal: signal, logger: h.logger}).run()
	}()
	go func() {
		defer h.drainers.Done()
		(&drainer{source: "stderr", reader: stderr, queue: &h.stderr, signal: signal, logger: h.logger}).run()
	}()
	go func() {
		h.drainers.Wait()
		h.closePipes()
		close(h.drained)
	}()

	// cmd.Wait would block on the pipes, so the process is reaped directly
	// and the read ends are closed by closePipes.
	go func() {
		h.exitCode = exitCodeFromState(cmd.Process.Wait())
		close(h.done)
	}()

	return nil
}

// drain empties both queues into a record, stdout first.
func (h *Handle) drain() OutputRecord {
	return OutputRecord{
		Process: h.spec.Name,
		Stdout:  h.stdout.Drain(),
		Stderr:  h.stderr.Drain(),
	}
}

// exited is the non-blocking exit query.
func (h *Handle) exited() (int, bool) {
	select {
	case <-h.done:
		return h.exitCode, true
	default:
		return 0, false
	}
}

// kill sends SIGKILL to the process group, falling back to the process
// itself. After the leader exited, the group is only signalled while its
// output is still held open by a leftover child.
func (h *Handle) kill() error {
	if h.cmd == nil || h.cmd.Process == nil {
		return nil
	}

	pid := h.cmd.Process.Pid
	if _, done := h.exited(); done {
		if !h.isDrained() {
			_ = syscall.Kill(-pid, syscall.SIGKILL)
		}
		return nil
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err == nil {
		return nil
	}
	if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func (h *Handle) isDrained() bool {
	select {
	case <-h.drained:
		return true
	default:
		return false
	}
}

// closePipes closes the read ends of both streams. A drainer blocked in a
// read returns once its pipe is closed.
func (h *Handle) closePipes() {
	h.closeOnce.Do(func() {
		for _, c := range h.pipes {
			_ = c.Close()
		}
	})
}

// wait blocks until the process has been reaped and both drainers have
// finished. On timeout the pipes are closed so the drainers cannot outlive
// the session, and false is returned.
func (h *Handle) wait(timeout time.Duration) bool {
	if h.cmd == nil {
		return true
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for _, ch := range []<-chan struct{}{h.done, h.drained} {
		select {
		case <-ch:
		case <-deadline.C:
			h.closePipes()
			return false
		}
	}
	return true
}

// exitCodeFromState converts the result of a reap into an exit code:
// 128+signal for a signaled process, the exit status otherwise, and 1 when
// the process could not be waited for.
func exitCodeFromState(state *os.ProcessState, err error) int {
	if err != nil || state == nil {
		return 1
	}
	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal())
	}
	return state.ExitCode()
}

// OutputRecord holds the lines a process wrote since the previous poll.
type OutputRecord struct {
	Process string
	Stdout  []string
	Stderr  []string
}

// Empty reports whether neither stream produced a line.
func (r OutputRecord) Empty() bool {
	return len(r.Stdout) == 0 && len(r.Stderr) == 0
}
