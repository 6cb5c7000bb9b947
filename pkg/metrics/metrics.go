// Package metrics exposes Prometheus metrics for the bridge process.
//
// Instrumentation covers the bridge's own lifecycle only: segment counts
// and mapped bytes. The contents of the segments are opaque to the bridge
// and are never inspected or measured.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/marmos91/shmbridge/pkg/segment"
)

// SegmentMetrics implements segment.Metrics backed by Prometheus
// collectors. Pass nil to the segment manager to disable instrumentation
// entirely.
type SegmentMetrics struct {
	created     prometheus.Counter
	removed     prometheus.Counter
	mapped      prometheus.Gauge
	mappedBytes prometheus.Gauge
}

var _ segment.Metrics = (*SegmentMetrics)(nil)

// NewSegmentMetrics creates and registers the segment collectors.
func NewSegmentMetrics(reg prometheus.Registerer) *SegmentMetrics {
	m := &SegmentMetrics{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shmbridge",
			Name:      "segments_created_total",
			Help:      "Total number of segment backing files created.",
		}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shmbridge",
			Name:      "segments_removed_total",
			Help:      "Total number of segment backing files removed.",
		}),
		mapped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shmbridge",
			Name:      "segments_mapped",
			Help:      "Number of segments currently held mapped.",
		}),
		mappedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shmbridge",
			Name:      "mapped_bytes",
			Help:      "Total bytes currently held mapped.",
		}),
	}

	reg.MustRegister(m.created, m.removed, m.mapped, m.mappedBytes)
	return m
}

// ObserveCreate records a successfully created and mapped segment.
func (m *SegmentMetrics) ObserveCreate(_ string, size uint64) {
	m.created.Inc()
	m.mapped.Inc()
	m.mappedBytes.Add(float64(size))
}

// ObserveRemove records a released segment.
func (m *SegmentMetrics) ObserveRemove(_ string, size uint64) {
	m.removed.Inc()
	m.mapped.Dec()
	m.mappedBytes.Sub(float64(size))
}
