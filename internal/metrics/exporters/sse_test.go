package exporters

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/qaspar/internal/events"
	"github.com/smazurov/qaspar/internal/metrics"
)

type mockEventBus struct {
	mu        sync.Mutex
	events    []events.Event
	published chan struct{}
}

func newMockEventBus() *mockEventBus {
	return &mockEventBus{
		events:    make([]events.Event, 0),
		published: make(chan struct{}, 100),
	}
}

func (m *mockEventBus) Publish(ev events.Event) {
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
	select {
	case m.published <- struct{}{}:
	default:
	}
}

func (m *mockEventBus) getEvents() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]events.Event, len(m.events))
	copy(result, m.events)
	return result
}

func TestSSEExporterPublishesMetrics(t *testing.T) {
	name := "sse-test-store"
	metrics.DeleteFFmpegMetrics(name)

	metrics.SetFFmpegBitrate(name, 128.34)
	metrics.SetFFmpegSpeed(name, 1.009)
	metrics.SetFFmpegOutTime(name, 32.7)

	mock := newMockEventBus()
	exporter := NewSSEExporter(mock, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	exporter.Start(ctx)

	// Wait for at least one publish cycle
	select {
	case <-mock.published:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for metrics publish")
	}

	cancel()
	exporter.Stop()

	var found bool
	for _, ev := range mock.getEvents() {
		pme, ok := ev.(events.ProcessMetricsEvent)
		if !ok || pme.Process != name {
			continue
		}
		found = true
		if pme.Bitrate != "128.3" {
			t.Errorf("Bitrate = %q, want \"128.3\"", pme.Bitrate)
		}
		if pme.Speed != "1.01" {
			t.Errorf("Speed = %q, want \"1.01\"", pme.Speed)
		}
		if pme.OutTime != "32.7" {
			t.Errorf("OutTime = %q, want \"32.7\"", pme.OutTime)
		}
		break
	}

	if !found {
		t.Error("expected ProcessMetricsEvent for test process")
	}

	metrics.DeleteFFmpegMetrics(name)
}

func TestSSEExporterNoMetrics(t *testing.T) {
	name := "sse-no-metrics-test"
	metrics.DeleteFFmpegMetrics(name)

	mock := newMockEventBus()
	exporter := NewSSEExporter(mock, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	exporter.Start(ctx)

	time.Sleep(50 * time.Millisecond)

	cancel()
	exporter.Stop()

	for _, ev := range mock.getEvents() {
		if pme, ok := ev.(events.ProcessMetricsEvent); ok && pme.Process == name {
			t.Error("expected no events for deleted process")
		}
	}
}

func TestSSEExporterStopIdempotent(t *testing.T) {
	name := "sse-idempotent-test"
	metrics.SetFFmpegBitrate(name, 64)
	defer metrics.DeleteFFmpegMetrics(name)

	mock := newMockEventBus()
	exporter := NewSSEExporter(mock, 10*time.Millisecond)

	exporter.Start(context.Background())
	time.Sleep(30 * time.Millisecond)

	exporter.Stop()
	exporter.Stop()
	exporter.Stop()

	countAfterStop := len(mock.getEvents())
	time.Sleep(30 * time.Millisecond)
	if countAfterWait := len(mock.getEvents()); countAfterWait != countAfterStop {
		t.Errorf("events published after stop: got %d, want %d", countAfterWait, countAfterStop)
	}
}

func TestSSEExporterDefaultInterval(t *testing.T) {
	exporter := NewSSEExporter(newMockEventBus(), 0)
	if exporter.interval != time.Second {
		t.Errorf("interval = %v, want 1s", exporter.interval)
	}
}
