// Package middleware provides cross-cutting concerns for the conversion
// engine.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/taxonflow/taxonflow/internal/pipeline"
)

// NodeMetrics implements pipeline.StatsObserver using Prometheus. Every
// counter a node reports becomes a labeled series, so row rates and
// error rates can be graphed per node without the engine knowing any
// metric names.
type NodeMetrics struct {
	rows      *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

// Compile-time verification that NodeMetrics implements StatsObserver.
var _ pipeline.StatsObserver = (*NodeMetrics)(nil)

// NewNodeMetrics creates the observer and registers its metrics with the
// given registerer. Register one NodeMetrics per registry; a second
// registration panics, per the Prometheus contract.
func NewNodeMetrics(reg prometheus.Registerer) *NodeMetrics {
	factory := promauto.With(reg)
	return &NodeMetrics{
		rows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taxonflow_node_rows_total",
				Help: "Rows counted by each node, labeled by counter name.",
			},
			[]string{"node", "counter"},
		),
		durations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taxonflow_node_duration_seconds",
				Help:    "Wall-clock execution time of each node's run.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"node"},
		),
	}
}

// ObserveCount implements pipeline.StatsObserver by incrementing the
// node's labeled row counter.
func (m *NodeMetrics) ObserveCount(node, counter string, delta int64) {
	m.rows.WithLabelValues(node, counter).Add(float64(delta))
}

// ObserveDuration implements pipeline.StatsObserver by recording the
// node's run time.
func (m *NodeMetrics) ObserveDuration(node string, d time.Duration) {
	m.durations.WithLabelValues(node).Observe(d.Seconds())
}
