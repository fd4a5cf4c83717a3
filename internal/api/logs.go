package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/audiotopo/internal/api/models"
	"github.com/smazurov/audiotopo/internal/events"
	"github.com/smazurov/audiotopo/internal/logging"
)

// registerLogRoutes registers the log buffer, log stream and log level endpoints.
func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Buffered Logs",
		Description: "Return the log entries held in the in-memory ring buffer",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.LogsResponse, error) {
		entries := bufferedLogs()
		out := make([]models.LogEntry, len(entries))
		for i, e := range entries {
			out[i] = models.LogEntry(e)
		}
		return &models.LogsResponse{Body: models.LogsData{Entries: out, Count: len(out)}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-log-level",
		Method:      http.MethodPut,
		Path:        "/api/logs/level/{module}",
		Summary:     "Set Log Level",
		Description: "Change the level of one module logger at runtime",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{400, 401},
	}, func(_ context.Context, input *models.LogLevelRequest) (*models.LogLevelResponse, error) {
		if !logging.SetModuleLevel(input.Module, input.Body.Level) {
			return nil, huma.Error400BadRequest("invalid log level: " + input.Body.Level)
		}
		s.logger.Info("Changed module log level", "target", input.Module, "level", input.Body.Level)
		resp := &models.LogLevelResponse{}
		resp.Body.Module = input.Module
		resp.Body.Level = input.Body.Level
		return resp, nil
	})

	sse.Register(s.api, huma.Operation{
		OperationID: "logs-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/stream",
		Summary:     "Log Stream",
		Description: "Real-time log streaming via Server-Sent Events. Sends buffered logs first, then streams new logs.",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"message": events.LogEntryEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		// Subscribe before replaying so nothing logged in between is lost; the sequence
		// number drops entries that were already replayed.
		eventCh := make(chan any, 100)
		unsubscribe := events.SubscribeToChannel[events.LogEntryEvent](s.eventBus, eventCh)
		defer unsubscribe()

		var last uint64
		for _, e := range bufferedLogs() {
			if err := send.Data(e); err != nil {
				return
			}
			last = e.Seq
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if entry, ok := event.(events.LogEntryEvent); ok && entry.Seq <= last {
					continue
				}
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}

func bufferedLogs() []events.LogEntryEvent {
	buffer := logging.GetBuffer()
	if buffer == nil {
		return nil
	}
	entries := buffer.ReadAll()
	out := make([]events.LogEntryEvent, len(entries))
	for i, e := range entries {
		out[i] = LogEvent(e)
	}
	return out
}

// LogEvent converts a buffered entry to the event published on the bus.
func LogEvent(e logging.LogEntry) events.LogEntryEvent {
	return events.LogEntryEvent{
		Seq:        e.Seq,
		Timestamp:  e.Timestamp.Format(time.RFC3339Nano),
		Level:      e.Level,
		Module:     e.Module,
		Message:    e.Message,
		Attributes: e.Attributes,
	}
}
