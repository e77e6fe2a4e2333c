package process

import "sync"

// LineQueue is an unbounded FIFO of output lines shared by a drainer and the
// poll loop. Push never blocks on the consumer.
type LineQueue struct {
	mu    sync.Mutex
	lines []string
}

// Push appends a line.
func (q *LineQueue) Push(line string) {
	q.mu.Lock()
	q.lines = append(q.lines, line)
	q.mu.Unlock()
}

// Drain removes and returns every pending line in arrival order.
// Returns nil when the queue is empty.
func (q *LineQueue) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.lines) == 0 {
		return nil
	}
	lines := q.lines
	q.lines = nil
	return lines
}

// Len returns the number of pending lines.
func (q *LineQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lines)
}
