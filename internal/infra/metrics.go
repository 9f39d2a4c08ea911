package infra

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides lightweight counters for the converter.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	resolutions     atomic.Uint64 // Successful resolutions
	fallbacks       atomic.Uint64 // Resolutions that needed the secondary source
	sourcesFailed   atomic.Uint64 // AllSourcesFailed outcomes
	providerErrors  atomic.Uint64 // Individual provider failures
	droppedTriggers atomic.Uint64 // Triggers dropped by the in-flight guard
	staleResults    atomic.Uint64 // Completions discarded by generation check

	// Latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	activeSessions atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordResolution records a successful resolution with its latency.
func (m *Metrics) RecordResolution(latency time.Duration, fallback bool) {
	m.resolutions.Add(1)
	if fallback {
		m.fallbacks.Add(1)
	}
	m.latencySumNs.Add(latency.Nanoseconds())
	m.latencyCount.Add(1)
}

// RecordAllSourcesFailed records a resolution where every provider failed.
func (m *Metrics) RecordAllSourcesFailed() {
	m.sourcesFailed.Add(1)
}

// RecordProviderError records a single provider failure.
func (m *Metrics) RecordProviderError() {
	m.providerErrors.Add(1)
}

// RecordDroppedTrigger records a trigger dropped while a resolution was in flight.
func (m *Metrics) RecordDroppedTrigger() {
	m.droppedTriggers.Add(1)
}

// RecordStaleResult records a late completion that was discarded.
func (m *Metrics) RecordStaleResult() {
	m.staleResults.Add(1)
}

// IncrementSessions increments active sessions by 1.
func (m *Metrics) IncrementSessions() {
	m.activeSessions.Add(1)
}

// DecrementSessions decrements active sessions by 1.
func (m *Metrics) DecrementSessions() {
	m.activeSessions.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	Resolutions     uint64
	Fallbacks       uint64
	SourcesFailed   uint64
	ProviderErrors  uint64
	DroppedTriggers uint64
	StaleResults    uint64
	AvgLatencyNs    int64
	ActiveSessions  int32
	Timestamp       time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		Resolutions:     m.resolutions.Load(),
		Fallbacks:       m.fallbacks.Load(),
		SourcesFailed:   m.sourcesFailed.Load(),
		ProviderErrors:  m.providerErrors.Load(),
		DroppedTriggers: m.droppedTriggers.Load(),
		StaleResults:    m.staleResults.Load(),
		AvgLatencyNs:    avgLatency,
		ActiveSessions:  m.activeSessions.Load(),
		Timestamp:       time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.resolutions.Store(0)
	m.fallbacks.Store(0)
	m.sourcesFailed.Store(0)
	m.providerErrors.Store(0)
	m.droppedTriggers.Store(0)
	m.staleResults.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.activeSessions.Store(0)
}

// ======================================================================================
// Prometheus exposition
// ======================================================================================

var (
	descResolutions = prometheus.NewDesc("converter_resolutions_total", "Successful rate resolutions.", nil, nil)
	descFallbacks   = prometheus.NewDesc("converter_fallbacks_total", "Resolutions served by the secondary source.", nil, nil)
	descFailed      = prometheus.NewDesc("converter_all_sources_failed_total", "Resolutions where every source failed.", nil, nil)
	descProviderErr = prometheus.NewDesc("converter_provider_errors_total", "Individual provider failures.", nil, nil)
	descDropped     = prometheus.NewDesc("converter_dropped_triggers_total", "Triggers dropped while a resolution was in flight.", nil, nil)
	descStale       = prometheus.NewDesc("converter_stale_results_total", "Late completions discarded.", nil, nil)
	descLatency     = prometheus.NewDesc("converter_resolution_avg_latency_seconds", "Average resolution latency.", nil, nil)
	descSessions    = prometheus.NewDesc("converter_active_sessions", "Open converter sessions.", nil, nil)
)

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- descResolutions
	ch <- descFallbacks
	ch <- descFailed
	ch <- descProviderErr
	ch <- descDropped
	ch <- descStale
	ch <- descLatency
	ch <- descSessions
}

// Collect implements prometheus.Collector from a single snapshot.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	s := m.Snapshot()
	ch <- prometheus.MustNewConstMetric(descResolutions, prometheus.CounterValue, float64(s.Resolutions))
	ch <- prometheus.MustNewConstMetric(descFallbacks, prometheus.CounterValue, float64(s.Fallbacks))
	ch <- prometheus.MustNewConstMetric(descFailed, prometheus.CounterValue, float64(s.SourcesFailed))
	ch <- prometheus.MustNewConstMetric(descProviderErr, prometheus.CounterValue, float64(s.ProviderErrors))
	ch <- prometheus.MustNewConstMetric(descDropped, prometheus.CounterValue, float64(s.DroppedTriggers))
	ch <- prometheus.MustNewConstMetric(descStale, prometheus.CounterValue, float64(s.StaleResults))
	ch <- prometheus.MustNewConstMetric(descLatency, prometheus.GaugeValue, float64(s.AvgLatencyNs)/1e9)
	ch <- prometheus.MustNewConstMetric(descSessions, prometheus.GaugeValue, float64(s.ActiveSessions))
}
