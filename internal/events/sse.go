package events

import "github.com/kelindar/event"

// SubscribeToChannel bridges kelindar/event callback-based subscriptions to channels
// This is needed for SSE integration where Huma expects a channel-based select loop.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
			// Drop event if channel is full (non-blocking)
		}
	})
}

// SessionEventTypes maps SSE event names to the session events they carry.
func SessionEventTypes() map[string]any {
	return map[string]any{
		"session-state":   SessionStateChangedEvent{},
		"process-stalled": ProcessStalledEvent{},
		"process-exited":  ProcessExitedEvent{},
		"cleanup":         CleanupCompletedEvent{},
		"process-metrics": ProcessMetricsEvent{},
	}
}

// SubscribeSession forwards every session event to ch and returns a func
// that removes all of those subscriptions.
func SubscribeSession(bus *Bus, ch chan<- any) func() {
	unsubs := []func(){
		SubscribeToChannel[SessionStateChangedEvent](bus, ch),
		SubscribeToChannel[ProcessStalledEvent](bus, ch),
		SubscribeToChannel[ProcessExitedEvent](bus, ch),
		SubscribeToChannel[CleanupCompletedEvent](bus, ch),
		SubscribeToChannel[ProcessMetricsEvent](bus, ch),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
