package events

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan ProcessExitedEvent, 1)

	unsub := bus.Subscribe(func(e ProcessExitedEvent) {
		received <- e
	})
	defer unsub()

	event := ProcessExitedEvent{
		Process:   "Player",
		ExitCode:  1,
		Tick:      5,
		Timestamp: "2025-01-27T10:30:00Z",
	}
	bus.Publish(event)

	got := <-received
	if got != event {
		t.Errorf("Expected %+v, got %+v", event, got)
	}
}

func TestBus_MultipleSubscribers(_ *testing.T) {
	bus := New()
	received1 := make(chan ProcessStalledEvent, 1)
	received2 := make(chan ProcessStalledEvent, 1)

	unsub1 := bus.Subscribe(func(e ProcessStalledEvent) {
		received1 <- e
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(e ProcessStalledEvent) {
		received2 <- e
	})
	defer unsub2()

	bus.Publish(ProcessStalledEvent{Process: "Store", EmptyPolls: 21})

	<-received1
	<-received2
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan CleanupCompletedEvent, 1)

	unsub := bus.Subscribe(func(e CleanupCompletedEvent) {
		received <- e
	})

	bus.Publish(CleanupCompletedEvent{Dir: "a"})
	<-received

	unsub()

	bus.Publish(CleanupCompletedEvent{Dir: "b"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
		// Expected - no event
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	stateReceived := make(chan bool, 1)
	exitReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ SessionStateChangedEvent) {
		stateReceived <- true
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(_ ProcessExitedEvent) {
		exitReceived <- true
	})
	defer unsub2()

	bus.Publish(SessionStateChangedEvent{OldState: "starting", NewState: "running"})
	<-stateReceived

	select {
	case <-exitReceived:
		t.Fatal("Exit subscriber should NOT have received SessionStateChangedEvent")
	case <-time.After(10 * time.Millisecond):
		// Expected
	}

	bus.Publish(ProcessExitedEvent{Process: "Player"})
	<-exitReceived

	select {
	case <-stateReceived:
		t.Fatal("State subscriber should NOT have received ProcessExitedEvent")
	case <-time.After(10 * time.Millisecond):
		// Expected
	}
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)

	unsub := bus.Subscribe(func(_ LogEntryEvent) {
		receivedCh <- true
	})
	defer unsub()

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range eventsPerGoroutine {
				bus.Publish(LogEntryEvent{
					Level:     "info",
					Timestamp: time.Now().Format(time.RFC3339),
				})
			}
		}()
	}

	wg.Wait()

	for range expected {
		<-receivedCh
	}
}

func TestBus_UnknownHandlerIsNoop(_ *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(_ string) {})
	unsub()
}

func TestSubscribeSession(t *testing.T) {
	bus := New()
	ch := make(chan any, 10)

	unsub := SubscribeSession(bus, ch)

	bus.Publish(SessionStateChangedEvent{NewState: "running"})
	bus.Publish(ProcessStalledEvent{Process: "Store"})
	bus.Publish(LogEntryEvent{Message: "not a session event"})

	got := make(map[uint32]bool)
	for range 2 {
		select {
		case ev := <-ch:
			got[ev.(Event).Type()] = true
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for session events")
		}
	}
	if !got[TypeSessionStateChanged] || !got[TypeProcessStalled] {
		t.Errorf("expected state and stall events, got %v", got)
	}

	select {
	case ev := <-ch:
		t.Errorf("unexpected event %T", ev)
	case <-time.After(20 * time.Millisecond):
	}

	unsub()
	bus.Publish(ProcessExitedEvent{Process: "Player"})
	select {
	case ev := <-ch:
		t.Errorf("received %T after unsubscribe", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestSessionEventTypesCoverSubscriptions(t *testing.T) {
	types := SessionEventTypes()
	if len(types) != 5 {
		t.Errorf("expected 5 session event types, got %d", len(types))
	}
	for name, ev := range types {
		if _, ok := ev.(Event); !ok {
			t.Errorf("%s is not an Event", name)
		}
	}
}

func TestEventJSON(t *testing.T) {
	data, err := json.Marshal(ProcessExitedEvent{Process: "Player", ExitCode: 137, Tick: 3, Timestamp: "2025-01-27T10:30:00Z"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"process":"Player","exit_code":137,"tick":3,"timestamp":"2025-01-27T10:30:00Z"}`
	if string(data) != want {
		t.Errorf("expected %s, got %s", want, data)
	}
}
