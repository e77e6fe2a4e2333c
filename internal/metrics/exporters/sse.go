package exporters

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/smazurov/qaspar/internal/events"
	"github.com/smazurov/qaspar/internal/metrics"
)

// EventPublisher interface for publishing events.
type EventPublisher interface {
	Publish(ev events.Event)
}

// SSEExporter periodically publishes ffmpeg progress metrics as events for
// Server-Sent Events clients.
type SSEExporter struct {
	eventBus EventPublisher
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

const defaultInterval = time.Second

// NewSSEExporter creates a new SSE exporter publishing every interval,
// or every second when interval is not positive.
func NewSSEExporter(eventBus EventPublisher, interval time.Duration) *SSEExporter {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &SSEExporter{
		eventBus: eventBus,
		interval: interval,
	}
}

// Start begins the SSE export loop.
func (s *SSEExporter) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run()
}

// Stop stops the SSE exporter and waits for the goroutine to finish.
func (s *SSEExporter) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *SSEExporter) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.publishMetrics()
		}
	}
}

func (s *SSEExporter) publishMetrics() {
	for name, m := range metrics.GetAllFFmpegMetrics() {
		s.eventBus.Publish(events.ProcessMetricsEvent{
			EventType: "process_metrics",
			Process:   name,
			Bitrate:   strconv.FormatFloat(m.Bitrate, 'f', 1, 64),
			Speed:     strconv.FormatFloat(m.Speed, 'f', 2, 64),
			OutTime:   strconv.FormatFloat(m.OutTime, 'f', 1, 64),
		})
	}
}
