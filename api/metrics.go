package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the HTTP-layer business metrics. Cache hit/miss counters live
// in the cache package.
type Metrics struct {
	statementDuration *prometheus.HistogramVec
	transitions       *prometheus.CounterVec
}

// NewMetrics registers on reg. A nil reg builds unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		statementDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mattilda",
			Name:      "statement_duration_seconds",
			Help:      "Time spent generating account statements, cache misses only.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mattilda",
			Name:      "invoice_transitions_total",
			Help:      "Invoice lifecycle transitions applied.",
		}, []string{"action"}),
	}
	if reg != nil {
		reg.MustRegister(m.statementDuration, m.transitions)
	}
	return m
}

func (m *Metrics) observeStatement(kind string, start time.Time) {
	m.statementDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

func (m *Metrics) transition(action string) {
	m.transitions.WithLabelValues(action).Inc()
}
