package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/qaspar/internal/events"
)

// registerSSERoutes registers the session event stream.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time session events: state changes, stalls, exits, cleanup runs and ffmpeg progress. The current state is sent first.",
		Tags:        []string{"events"},
		Security:    s.withAuth(),
		Errors:      []int{401},
	}, events.SessionEventTypes(), func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 10)
		unsubscribe := events.SubscribeSession(s.eventBus, eventCh)
		defer unsubscribe()

		// The current state, so clients do not wait for the next transition
		if s.options.Session != nil {
			state := string(s.options.Session.Status().State)
			if err := send.Data(events.SessionStateChangedEvent{
				OldState:  state,
				NewState:  state,
				Timestamp: time.Now().Format(time.RFC3339),
			}); err != nil {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
