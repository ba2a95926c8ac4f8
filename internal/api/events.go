package api

import (
	"context"
	"maps"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/toggler/internal/events"
	"github.com/smazurov/toggler/internal/metrics/exporters"
)

// registerSSERoutes registers the component event stream.
func (s *Server) registerSSERoutes() {
	eventTypes := map[string]any{
		"pin-toggled":            events.PinToggledEvent{},
		"command-failed":         events.CommandFailedEvent{},
		"component-reconfigured": events.ComponentReconfiguredEvent{},
		"component-removed":      events.ComponentRemovedEvent{},
		"config-reload-failed":   events.ConfigReloadFailedEvent{},
	}
	maps.Copy(eventTypes, exporters.GetEventTypes())

	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time component events. Each connection starts with a snapshot of the running components.",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, eventTypes, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.PinToggledEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.CommandFailedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ComponentReconfiguredEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ComponentRemovedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ConfigReloadFailedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ComponentStatsEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		for _, ev := range s.snapshot() {
			if err := send.Data(ev); err != nil {
				return
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

// snapshot describes the running components as "snapshot" events so a new
// client needs no separate list call.
func (s *Server) snapshot() []events.ComponentReconfiguredEvent {
	if s.host == nil {
		return nil
	}
	ts := time.Now().UTC().Format(time.RFC3339)
	infos := s.host.Components()
	result := make([]events.ComponentReconfiguredEvent, 0, len(infos))
	for _, info := range infos {
		result = append(result, events.ComponentReconfiguredEvent{
			Component:  info.Name,
			Board:      info.Board,
			Pin:        info.Pin,
			Generation: info.Generation,
			Action:     "snapshot",
			Timestamp:  ts,
		})
	}
	return result
}
