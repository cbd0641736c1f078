package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics handles Prometheus collection for one peer. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry
	metrics  map[string]prometheus.Collector
}

// NewMetrics creates a collector set on its own registry
func NewMetrics(peerID string) *Metrics {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{"peer": peerID}

	mutations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "tablesync_mutations_total",
			Help:        "Local mutations by operation and result",
			ConstLabels: labels,
		},
		[]string{"op", "result"},
	)

	published := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "tablesync_deltas_published_total",
			Help:        "Collections published to peers",
			ConstLabels: labels,
		},
		[]string{"collection"},
	)

	received := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "tablesync_deltas_received_total",
			Help:        "Collections merged from peer deltas",
			ConstLabels: labels,
		},
		[]string{"collection"},
	)

	publishErrors := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "tablesync_publish_errors_total",
			Help:        "Deltas the transport failed to publish",
			ConstLabels: labels,
		},
	)

	transitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "tablesync_order_transitions_total",
			Help:        "Committed order status transitions",
			ConstLabels: labels,
		},
		[]string{"from", "to"},
	)

	mergeLatency := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:        "tablesync_delta_age_seconds",
			Help:        "Age of peer deltas when merged",
			Buckets:     prometheus.ExponentialBuckets(0.001, 4, 8),
			ConstLabels: labels,
		},
	)

	subscribers := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name:        "tablesync_subscribers",
			Help:        "Open change subscriptions",
			ConstLabels: labels,
		},
	)

	metrics := map[string]prometheus.Collector{
		"mutations":      mutations,
		"published":      published,
		"received":       received,
		"publish_errors": publishErrors,
		"transitions":    transitions,
		"delta_age":      mergeLatency,
		"subscribers":    subscribers,
	}

	for _, metric := range metrics {
		registry.MustRegister(metric)
	}

	return &Metrics{
		registry: registry,
		metrics:  metrics,
	}
}

// Registry exposes the registry for the metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// RecordMutation counts a local mutation attempt
func (m *Metrics) RecordMutation(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	if counter, ok := m.metrics["mutations"].(*prometheus.CounterVec); ok {
		counter.WithLabelValues(op, result).Inc()
	}
}

// RecordPublished counts collections handed to the transport
func (m *Metrics) RecordPublished(collections []string) {
	if m == nil {
		return
	}
	if counter, ok := m.metrics["published"].(*prometheus.CounterVec); ok {
		for _, c := range collections {
			counter.WithLabelValues(c).Inc()
		}
	}
}

// RecordReceived counts collections merged from a peer and the delta's age
func (m *Metrics) RecordReceived(collections []string, ageSeconds float64) {
	if m == nil {
		return
	}
	if counter, ok := m.metrics["received"].(*prometheus.CounterVec); ok {
		for _, c := range collections {
			counter.WithLabelValues(c).Inc()
		}
	}
	if hist, ok := m.metrics["delta_age"].(prometheus.Histogram); ok && ageSeconds >= 0 {
		hist.Observe(ageSeconds)
	}
}

// RecordPublishError counts a failed publish
func (m *Metrics) RecordPublishError() {
	if m == nil {
		return
	}
	if counter, ok := m.metrics["publish_errors"].(prometheus.Counter); ok {
		counter.Inc()
	}
}

// RecordTransition counts a committed order status move
func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	if counter, ok := m.metrics["transitions"].(*prometheus.CounterVec); ok {
		counter.WithLabelValues(from, to).Inc()
	}
}

// AddSubscribers moves the open subscription gauge by delta
func (m *Metrics) AddSubscribers(delta float64) {
	if m == nil {
		return
	}
	if gauge, ok := m.metrics["subscribers"].(prometheus.Gauge); ok {
		gauge.Add(delta)
	}
}
