package collectors

import (
	"testing"
	"time"

	"github.com/smazurov/toggler/internal/events"
	"github.com/smazurov/toggler/internal/metrics"
)

// waitFor polls until cond holds; bus delivery is asynchronous.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func TestEventCollector(t *testing.T) {
	name := "collector-test"
	metrics.DeleteComponentMetrics(name)
	defer metrics.DeleteComponentMetrics(name)

	bus := events.New()
	c := NewEventCollector(bus)
	c.Start()
	c.Start() // second start is a no-op
	defer c.Stop()

	bus.Publish(events.ComponentReconfiguredEvent{Component: name, Generation: 2, Action: "created"})
	bus.Publish(events.PinToggledEvent{Component: name, High: true, DurationUs: 150})
	bus.Publish(events.CommandFailedEvent{Component: name, Code: "TIMEOUT"})

	waitFor(t, "stats", func() bool {
		s := metrics.GetComponentStats(name)
		return s != nil && s.Toggles == 1 && s.Failures == 1 && s.Generation == 2
	})
	if !metrics.GetComponentStats(name).High {
		t.Error("High = false, want true")
	}

	bus.Publish(events.ComponentRemovedEvent{Component: name})
	waitFor(t, "removal", func() bool { return metrics.GetComponentStats(name) == nil })
}

func TestEventCollectorStop(t *testing.T) {
	name := "collector-stopped"
	metrics.DeleteComponentMetrics(name)
	defer metrics.DeleteComponentMetrics(name)

	bus := events.New()
	c := NewEventCollector(bus)
	c.Start()
	c.Stop()

	bus.Publish(events.PinToggledEvent{Component: name, High: true})
	time.Sleep(50 * time.Millisecond)

	if s := metrics.GetComponentStats(name); s != nil {
		t.Errorf("stopped collector recorded %+v", s)
	}
}
