package process

import (
	"bufio"
	"bytes"
	"io"
	"sync/atomic"

	"github.com/smazurov/qaspar/internal/logging"
)

const maxLineSize = 1024 * 1024

// DrainSignal tells every drainer of a session to stop after its current read.
// It starts active and is stopped once, by the supervisor, during shutdown.
type DrainSignal struct {
	stopped atomic.Bool
}

// NewDrainSignal returns an active signal.
func NewDrainSignal() *DrainSignal {
	return &DrainSignal{}
}

// Stop asks drainers to exit. Safe to call more than once.
func (s *DrainSignal) Stop() {
	s.stopped.Store(true)
}

// Stopped reports whether Stop was called.
func (s *DrainSignal) Stopped() bool {
	return s.stopped.Load()
}

// drainer copies lines from one output stream of a subprocess into a queue.
type drainer struct {
	source string
	reader io.Reader
	queue  *LineQueue
	signal *DrainSignal
	logger logging.Logger
}

// run blocks until end of stream, a read error, or the signal is stopped.
func (d *drainer) run() {
	scanner := bufio.NewScanner(d.reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	split := &lineSplitter{}
	scanner.Split(split.split)

	for scanner.Scan() {
		d.queue.Push(scanner.Text())
		if d.signal.Stopped() {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		d.logger.Debug("Output stream closed", "source", d.source, "error", err)
	}
}

// lineSplitter is a bufio.SplitFunc that ends lines at \n, \r\n or a lone \r.
// ffmpeg rewrites its progress line in place with \r, so each rewrite counts
// as output. A line longer than maxLineSize is cut to its first maxLineSize
// bytes and the rest of it is skipped.
type lineSplitter struct {
	skipLF   bool // previous token ended in \r at a buffer boundary
	skipLine bool // inside the tail of a truncated line
}

func (s *lineSplitter) split(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if s.skipLF && len(data) > 0 {
		s.skipLF = false
		if data[0] == '\n' {
			return 1, nil, nil
		}
	}

	i := bytes.IndexAny(data, "\r\n")
	if s.skipLine {
		if i < 0 {
			return len(data), nil, nil
		}
		s.skipLine = false
		return s.terminator(data, i), nil, nil
	}

	if i >= 0 {
		return s.terminator(data, i), data[:i], nil
	}
	if len(data) >= maxLineSize {
		s.skipLine = !atEOF
		return len(data), data[:maxLineSize], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// terminator returns how many bytes a line ending at data[i] consumes.
func (s *lineSplitter) terminator(data []byte, i int) int {
	if data[i] == '\r' {
		switch {
		case i+1 == len(data):
			s.skipLF = true
		case data[i+1] == '\n':
			return i + 2
		}
	}
	return i + 1
}
