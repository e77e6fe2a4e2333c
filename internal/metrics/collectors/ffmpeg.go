// Package collectors turns supervised process output into metrics.
package collectors

import (
	"sync"

	"github.com/smazurov/qaspar/internal/ffmpeg"
	"github.com/smazurov/qaspar/internal/metrics"
	"github.com/smazurov/qaspar/internal/process"
)

// FFmpegCollector collects ffmpeg progress from the statistics lines that
// ffmpeg writes to stderr.
type FFmpegCollector struct {
	mu   sync.Mutex
	seen map[string]bool
}

// NewFFmpegCollector creates a new FFmpeg collector.
func NewFFmpegCollector() *FFmpegCollector {
	return &FFmpegCollector{seen: make(map[string]bool)}
}

// Observe records the most recent progress line of a record.
// It has the signature of process.Options.OnOutput.
func (f *FFmpegCollector) Observe(record process.OutputRecord) {
	for i := len(record.Stderr) - 1; i >= 0; i-- {
		if p, ok := ffmpeg.ParseProgress(record.Stderr[i]); ok {
			f.apply(record.Process, p)
			return
		}
	}
}

// Reset removes the metrics of every process seen so far.
func (f *FFmpegCollector) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for name := range f.seen {
		metrics.DeleteFFmpegMetrics(name)
	}
	f.seen = make(map[string]bool)
}

func (f *FFmpegCollector) apply(name string, p ffmpeg.Progress) {
	f.mu.Lock()
	f.seen[name] = true
	f.mu.Unlock()

	metrics.SetFFmpegBitrate(name, p.BitrateKbps)
	metrics.SetFFmpegSpeed(name, p.Speed)
	metrics.SetFFmpegOutTime(name, p.OutTime.Seconds())
}
