package exporters

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/smazurov/toggler/internal/events"
	"github.com/smazurov/toggler/internal/metrics"
)

// EventPublisher interface for publishing events.
type EventPublisher interface {
	Publish(ev events.Event)
}

// SSEExporter periodically publishes per-component stats for live views.
type SSEExporter struct {
	eventBus EventPublisher
	interval time.Duration
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewSSEExporter creates a new SSE exporter publishing every interval.
// A non-positive interval means one second.
func NewSSEExporter(eventBus EventPublisher, interval time.Duration) *SSEExporter {
	if interval <= 0 {
		interval = time.Second
	}
	return &SSEExporter{
		eventBus: eventBus,
		interval: interval,
	}
}

// Start begins the export loop.
func (s *SSEExporter) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop stops the exporter and waits for the goroutine to finish.
func (s *SSEExporter) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *SSEExporter) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.publishStats()
		}
	}
}

func (s *SSEExporter) publishStats() {
	all := metrics.GetAllComponentStats()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		st := all[name]
		s.eventBus.Publish(events.ComponentStatsEvent{
			Component: name,
			Toggles:   strconv.FormatUint(st.Toggles, 10),
			Failures:  strconv.FormatUint(st.Failures, 10),
			High:      st.High,
		})
	}
}

// GetEventTypes returns event types for SSE endpoint registration.
func GetEventTypes() map[string]any {
	return map[string]any{
		"component-stats": events.ComponentStatsEvent{},
	}
}
