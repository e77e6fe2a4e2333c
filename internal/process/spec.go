package process

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoProcesses is returned when a supervisor is created without any spec.
	ErrNoProcesses = errors.New("no processes to supervise")
	// ErrInvalidSpec is returned for a spec that cannot be supervised.
	ErrInvalidSpec = errors.New("invalid process spec")
)

// Spec describes one subprocess to supervise.
type Spec struct {
	// Command is the executable followed by its arguments.
	Command []string
	// Name is used in log lines, metrics and the status API.
	Name string
	// MaxEmptyPolls is the number of consecutive silent polls tolerated.
	MaxEmptyPolls int
}

// Validate checks that the spec can be launched and supervised.
func (s Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidSpec)
	}
	if len(s.Command) == 0 || s.Command[0] == "" {
		return fmt.Errorf("%w: %s: empty command", ErrInvalidSpec, s.Name)
	}
	if s.MaxEmptyPolls <= 0 {
		return fmt.Errorf("%w: %s: max empty polls must be positive, got %d", ErrInvalidSpec, s.Name, s.MaxEmptyPolls)
	}
	return nil
}

// CommandLine returns the command joined with spaces, for logging.
func (s Spec) CommandLine() string {
	return strings.Join(s.Command, " ")
}

func (s Spec) clone() Spec {
	s.Command = append([]string(nil), s.Command...)
	return s
}

// LaunchError is returned by Run when a process could not be started.
type LaunchError struct {
	Name string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to start process %s: %v", e.Name, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}
