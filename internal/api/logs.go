package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/toggler/internal/api/models"
	"github.com/smazurov/toggler/internal/events"
	"github.com/smazurov/toggler/internal/logging"
)

func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent Logs",
		Description: "Recent log entries from the in-memory buffer",
		Tags:        []string{"logs"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.LogsRequest) (*models.LogsResponse, error) {
		entries := recentLogs(input.Limit, input.Module)
		return &models.LogsResponse{
			Body: models.LogsData{Entries: entries, Count: len(entries)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-log-level",
		Method:      http.MethodPut,
		Path:        "/api/logs/level/{module}",
		Summary:     "Set Log Level",
		Description: "Change the level of one logger module until restart",
		Tags:        []string{"logs"},
		Errors:      []int{400, 401},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.LogLevelRequest) (*struct{}, error) {
		if !logging.SetModuleLevel(input.Module, input.Body.Level) {
			return nil, huma.Error400BadRequest("invalid level " + input.Body.Level)
		}
		s.logger.Info("Log level changed", "target", input.Module, "level", input.Body.Level)
		return &struct{}{}, nil
	})
}

// recentLogs returns up to limit entries, oldest first. The module filter is
// applied before the limit.
func recentLogs(limit int, module string) []models.LogEntryData {
	buffer := logging.GetBuffer()
	if buffer == nil || limit <= 0 {
		return []models.LogEntryData{}
	}

	var entries []logging.LogEntry
	if module == "" {
		entries = buffer.ReadLast(limit)
	} else {
		all := buffer.ReadAll()
		for i := len(all) - 1; i >= 0 && len(entries) < limit; i-- {
			if all[i].Module == module {
				entries = append(entries, all[i])
			}
		}
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}

	result := make([]models.LogEntryData, 0, len(entries))
	for _, e := range entries {
		result = append(result, models.LogEntryData{
			Timestamp:  e.Timestamp.Format(time.RFC3339Nano),
			Level:      e.Level,
			Module:     e.Module,
			Message:    e.Message,
			Attributes: e.Attributes,
		})
	}
	return result
}

// LogEntryToEvent converts a buffered log entry for the event bus.
func LogEntryToEvent(entry logging.LogEntry) events.LogEntryEvent {
	return events.LogEntryEvent{
		Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
		Level:      entry.Level,
		Module:     entry.Module,
		Message:    entry.Message,
		Attributes: entry.Attributes,
	}
}

// registerLogStreamRoutes registers the log streaming SSE endpoint.
func (s *Server) registerLogStreamRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "logs-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/stream",
		Summary:     "Log Stream",
		Description: "Real-time log streaming via Server-Sent Events. Sends buffered logs first, then new ones.",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"message": events.LogEntryEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		// Subscribe before replaying so nothing logged in between is lost
		eventCh := make(chan any, 100)
		unsubscribe := events.SubscribeToChannel[events.LogEntryEvent](s.eventBus, eventCh)
		defer unsubscribe()

		if buffer := logging.GetBuffer(); buffer != nil {
			for _, entry := range buffer.ReadAll() {
				if err := send.Data(LogEntryToEvent(entry)); err != nil {
					return
				}
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-eventCh:
				if err := send.Data(ev); err != nil {
					return
				}
			}
		}
	})
}
