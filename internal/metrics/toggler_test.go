package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestComponentStatsCache(t *testing.T) {
	name := "stats-test"
	DeleteComponentMetrics(name)

	if s := GetComponentStats(name); s != nil {
		t.Error("expected nil for unknown component")
	}

	RecordToggle(name, true, 2*time.Millisecond)
	RecordToggle(name, false, time.Millisecond)
	RecordFailure(name, "PIN_NOT_FOUND")
	SetGeneration(name, 4)

	s := GetComponentStats(name)
	if s == nil {
		t.Fatal("expected non-nil stats")
	}
	if s.Toggles != 2 {
		t.Errorf("Toggles = %d, want 2", s.Toggles)
	}
	if s.Failures != 1 {
		t.Errorf("Failures = %d, want 1", s.Failures)
	}
	if s.High {
		t.Error("High = true, want level of last toggle (false)")
	}
	if s.Generation != 4 {
		t.Errorf("Generation = %d, want 4", s.Generation)
	}
	if s.LastToggle.IsZero() {
		t.Error("LastToggle not set")
	}

	// returned copy is independent
	s.Toggles = 999
	if GetComponentStats(name).Toggles != 2 {
		t.Error("cache was modified through returned copy")
	}

	DeleteComponentMetrics(name)
	if GetComponentStats(name) != nil {
		t.Error("expected nil after delete")
	}
}

func TestPrometheusValues(t *testing.T) {
	name := "prom-test"
	DeleteComponentMetrics(name)
	defer DeleteComponentMetrics(name)

	RecordToggle(name, true, time.Millisecond)
	RecordFailure(name, "TIMEOUT")
	RecordFailure(name, "TIMEOUT")
	RecordFailure(name, "IO_ERROR")

	if got := testutil.ToFloat64(togglesTotal.WithLabelValues(name)); got != 1 {
		t.Errorf("toggles_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(pinLevel.WithLabelValues(name)); got != 1 {
		t.Errorf("pin_level = %v, want 1", got)
	}
	if got := testutil.ToFloat64(commandFailures.WithLabelValues(name, "TIMEOUT")); got != 2 {
		t.Errorf("command_failures_total{TIMEOUT} = %v, want 2", got)
	}

	DeleteComponentMetrics(name)
	if commandFailures.DeleteLabelValues(name, "IO_ERROR") {
		t.Error("failure series survived DeleteComponentMetrics")
	}
}

func TestGetAllComponentStats(t *testing.T) {
	DeleteComponentMetrics("all-a")
	DeleteComponentMetrics("all-b")
	defer DeleteComponentMetrics("all-a")
	defer DeleteComponentMetrics("all-b")

	RecordToggle("all-a", true, 0)
	RecordFailure("all-b", "IO_ERROR")

	all := GetAllComponentStats()
	if all["all-a"] == nil || !all["all-a"].High {
		t.Errorf("all-a = %+v, want high", all["all-a"])
	}
	if all["all-b"] == nil || all["all-b"].Failures != 1 {
		t.Errorf("all-b = %+v, want one failure", all["all-b"])
	}
}

func TestMetricsConcurrency(t *testing.T) {
	name := "concurrent-component"
	DeleteComponentMetrics(name)
	defer DeleteComponentMetrics(name)

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func(high bool) {
			defer wg.Done()
			RecordToggle(name, high, time.Microsecond)
			_ = GetComponentStats(name)
			_ = GetAllComponentStats()
		}(i%2 == 0)
	}
	wg.Wait()

	if s := GetComponentStats(name); s == nil || s.Toggles != 100 {
		t.Errorf("stats = %+v, want 100 toggles", s)
	}
}
