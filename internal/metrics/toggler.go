// Package metrics provides Prometheus metrics for toggler components.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "toggler"

var (
	togglesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "component",
		Name:      "toggles_total",
		Help:      "Successful pin toggles",
	}, []string{"component"})

	commandFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "component",
		Name:      "command_failures_total",
		Help:      "Failed commands by error code",
	}, []string{"component", "code"})

	pinLevel = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "component",
		Name:      "pin_level",
		Help:      "Pin level after the last toggle (1 high, 0 low)",
	}, []string{"component"})

	toggleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "component",
		Name:      "toggle_duration_seconds",
		Help:      "Time spent reading and writing the pin",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
	}, []string{"component"})

	generation = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "component",
		Name:      "config_generation",
		Help:      "Configuration generation the component is bound to",
	}, []string{"component"})

	// Local cache for the API and SSE exporter.
	statsCache   = make(map[string]*ComponentStats)
	statsCacheMu sync.RWMutex
)

// ComponentStats holds current values for one component.
type ComponentStats struct {
	Toggles    uint64
	Failures   uint64
	High       bool
	Generation uint64
	LastToggle time.Time
}

// RecordToggle records a successful toggle.
func RecordToggle(component string, high bool, took time.Duration) {
	togglesTotal.WithLabelValues(component).Inc()
	toggleDuration.WithLabelValues(component).Observe(took.Seconds())
	level := 0.0
	if high {
		level = 1
	}
	pinLevel.WithLabelValues(component).Set(level)

	updateCache(component, func(s *ComponentStats) {
		s.Toggles++
		s.High = high
		s.LastToggle = time.Now()
	})
}

// RecordFailure records a failed command with its error code.
func RecordFailure(component, code string) {
	commandFailures.WithLabelValues(component, code).Inc()
	updateCache(component, func(s *ComponentStats) { s.Failures++ })
}

// SetGeneration records the configuration generation a component runs.
func SetGeneration(component string, gen uint64) {
	generation.WithLabelValues(component).Set(float64(gen))
	updateCache(component, func(s *ComponentStats) { s.Generation = gen })
}

// DeleteComponentMetrics removes all metrics for a component.
func DeleteComponentMetrics(component string) {
	togglesTotal.DeleteLabelValues(component)
	commandFailures.DeletePartialMatch(prometheus.Labels{"component": component})
	pinLevel.DeleteLabelValues(component)
	toggleDuration.DeleteLabelValues(component)
	generation.DeleteLabelValues(component)

	statsCacheMu.Lock()
	delete(statsCache, component)
	statsCacheMu.Unlock()
}

// GetComponentStats returns current values for a component, or nil.
func GetComponentStats(component string) *ComponentStats {
	statsCacheMu.RLock()
	defer statsCacheMu.RUnlock()
	if s, ok := statsCache[component]; ok {
		dup := *s
		return &dup
	}
	return nil
}

// GetAllComponentStats returns stats for every known component.
func GetAllComponentStats() map[string]*ComponentStats {
	statsCacheMu.RLock()
	defer statsCacheMu.RUnlock()
	result := make(map[string]*ComponentStats, len(statsCache))
	for name, s := range statsCache {
		dup := *s
		result[name] = &dup
	}
	return result
}

func updateCache(component string, update func(*ComponentStats)) {
	statsCacheMu.Lock()
	defer statsCacheMu.Unlock()
	s, ok := statsCache[component]
	if !ok {
		s = &ComponentStats{}
		statsCache[component] = s
	}
	update(s)
}
