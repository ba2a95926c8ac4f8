// Package collectors feeds the metrics package from in-process events.
package collectors

import (
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/toggler/internal/events"
	"github.com/smazurov/toggler/internal/logging"
	"github.com/smazurov/toggler/internal/metrics"
)

// EventSubscriber is the part of the event bus the collector needs.
type EventSubscriber interface {
	Subscribe(handler any) func()
}

// EventCollector turns component events into Prometheus metrics.
type EventCollector struct {
	bus    EventSubscriber
	logger *slog.Logger

	mu     sync.Mutex
	unsubs []func()
}

// NewEventCollector creates a collector for bus.
func NewEventCollector(bus EventSubscriber) *EventCollector {
	return &EventCollector{
		bus:    bus,
		logger: logging.GetLogger("metrics"),
	}
}

// Start subscribes to component events.
func (c *EventCollector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unsubs != nil {
		return
	}

	c.unsubs = []func(){
		c.bus.Subscribe(func(e events.PinToggledEvent) {
			metrics.RecordToggle(e.Component, e.High, time.Duration(e.DurationUs)*time.Microsecond)
		}),
		c.bus.Subscribe(func(e events.CommandFailedEvent) {
			metrics.RecordFailure(e.Component, e.Code)
		}),
		c.bus.Subscribe(func(e events.ComponentReconfiguredEvent) {
			metrics.SetGeneration(e.Component, e.Generation)
		}),
		c.bus.Subscribe(func(e events.ComponentRemovedEvent) {
			metrics.DeleteComponentMetrics(e.Component)
		}),
	}
	c.logger.Debug("Event collector started")
}

// Stop unsubscribes from the bus.
func (c *EventCollector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, unsub := range c.unsubs {
		unsub()
	}
	c.unsubs = nil
}
