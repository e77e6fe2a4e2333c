package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/qaspar/internal/api/models"
	"github.com/smazurov/qaspar/internal/events"
	"github.com/smazurov/qaspar/internal/logging"
)

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// registerLogRoutes registers the log history and log streaming endpoints.
func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent Logs",
		Description: "Get recent log entries from the in-memory ring buffer. Pass last_seq back as since to page forward.",
		Tags:        []string{"logs"},
		Security:    s.withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, input *models.LogsInput) (*models.LogsResponse, error) {
		return &models.LogsResponse{Body: readLogs(logging.GetBuffer(), input)}, nil
	})

	sse.Register(s.api, huma.Operation{
		OperationID: "logs-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/stream",
		Summary:     "Log Stream",
		Description: "Real-time log streaming via Server-Sent Events. Sends historical logs first, then streams new logs.",
		Tags:        []string{"logs"},
		Security:    s.withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"message": events.LogEntryEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		// Subscribe before replaying history so nothing logged in between is lost
		eventCh := make(chan any, 100)
		unsubscribe := events.SubscribeToChannel[events.LogEntryEvent](s.eventBus, eventCh)
		defer unsubscribe()

		var lastSeq uint64
		if buffer := logging.GetBuffer(); buffer != nil {
			for _, entry := range buffer.ReadAll() {
				if err := send.Data(logEntryEvent(entry)); err != nil {
					return
				}
				lastSeq = entry.Seq
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				// Entries already replayed from the buffer are skipped
				if entry, ok := event.(events.LogEntryEvent); ok && entry.Seq != 0 && entry.Seq <= lastSeq {
					continue
				}
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}

func readLogs(buffer *logging.RingBuffer, input *models.LogsInput) models.LogsData {
	data := models.LogsData{Entries: []models.LogEntryData{}, LastSeq: input.Since}
	if buffer == nil {
		return data
	}

	minRank := levelRank[input.Level]
	for _, entry := range buffer.ReadSince(input.Since) {
		data.LastSeq = entry.Seq
		if levelRank[entry.Level] < minRank {
			continue
		}
		data.Entries = append(data.Entries, models.LogEntryData{
			Seq:        entry.Seq,
			Timestamp:  entry.Timestamp,
			Level:      entry.Level,
			Module:     entry.Module,
			Message:    entry.Message,
			Attributes: entry.Attributes,
		})
	}

	if input.Limit > 0 && len(data.Entries) > input.Limit {
		data.Entries = data.Entries[len(data.Entries)-input.Limit:]
	}
	return data
}

// logEntryEvent converts a ring buffer entry to the event published on the bus.
func logEntryEvent(entry logging.LogEntry) events.LogEntryEvent {
	return events.LogEntryEvent{
		Seq:        entry.Seq,
		Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
		Level:      entry.Level,
		Module:     entry.Module,
		Message:    entry.Message,
		Attributes: entry.Attributes,
	}
}

// PublishLogEntry is a logging.LogCallback that forwards entries to the bus.
func PublishLogEntry(bus *events.Bus) logging.LogCallback {
	return func(entry logging.LogEntry) {
		bus.Publish(logEntryEvent(entry))
	}
}
