// Package metrics holds the Prometheus collectors of the service. A nil
// *Metrics is valid and records nothing, so components can be built without
// a registry in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ecotour"

// Metrics contains the service collectors
type Metrics struct {
	registry *prometheus.Registry

	// Natural language pipeline
	IntentsTotal  *prometheus.CounterVec
	ReadsTotal    *prometheus.CounterVec
	OracleCalls   *prometheus.CounterVec
	OracleLatency prometheus.Histogram

	// Mutations
	MutationsTotal *prometheus.CounterVec

	// Catalog cache
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Graph
	Triples prometheus.Gauge
}

// New creates the collectors and registers them on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		IntentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "nlquery",
				Name:      "intents_total",
				Help:      "Natural language questions by classified intent",
			},
			[]string{"intent"},
		),

		ReadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "nlquery",
				Name:      "reads_total",
				Help:      "Natural language reads by resolution method",
			},
			[]string{"method"},
		),

		OracleCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "oracle",
				Name:      "calls_total",
				Help:      "Text generation calls by outcome",
			},
			[]string{"status"},
		),

		OracleLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "oracle",
				Name:      "call_duration_seconds",
				Help:      "Text generation call latency",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),

		MutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "graph",
				Name:      "mutations_total",
				Help:      "Graph mutations by action and outcome",
			},
			[]string{"action", "status"},
		),

		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "cache_hits_total",
				Help:      "Catalog reads served from cache",
			},
		),

		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "cache_misses_total",
				Help:      "Catalog reads that ran a query",
			},
		),

		Triples: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "graph",
				Name:      "triples",
				Help:      "Triples in the active graph",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.IntentsTotal,
		m.ReadsTotal,
		m.OracleCalls,
		m.OracleLatency,
		m.MutationsTotal,
		m.CacheHits,
		m.CacheMisses,
		m.Triples,
	)
	return m
}

// Registry returns the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// RecordIntent counts one classified question
func (m *Metrics) RecordIntent(intent string) {
	if m == nil {
		return
	}
	m.IntentsTotal.WithLabelValues(intent).Inc()
}

// RecordRead counts one natural language read
func (m *Metrics) RecordRead(method string) {
	if m == nil {
		return
	}
	m.ReadsTotal.WithLabelValues(method).Inc()
}

// RecordOracleCall counts one oracle call and observes its latency
func (m *Metrics) RecordOracleCall(start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.OracleCalls.WithLabelValues(status).Inc()
	m.OracleLatency.Observe(time.Since(start).Seconds())
}

// RecordMutation counts one applied or failed mutation
func (m *Metrics) RecordMutation(action string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.MutationsTotal.WithLabelValues(action, status).Inc()
}

// RecordCache counts a catalog cache lookup
func (m *Metrics) RecordCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.Inc()
	} else {
		m.CacheMisses.Inc()
	}
}

// SetTriples updates the graph size gauge
func (m *Metrics) SetTriples(n int) {
	if m == nil {
		return
	}
	m.Triples.Set(float64(n))
}
