// Package metrics exposes Prometheus collectors for the embedding service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "embedding_service"

// Metrics owns an isolated registry and the service's collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
	upstreamLatency *prometheus.HistogramVec
	embeddedTexts   prometheus.Counter
}

// New builds the registry. Go and process collectors are registered when
// withRuntime is true.
func New(withRuntime bool) *Metrics {
	registry := prometheus.NewRegistry()
	latencyBuckets := []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 30}

	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed.",
			},
			[]string{"method", "route", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds.",
				Buckets:   latencyBuckets,
			},
			[]string{"method", "route"},
		),
		upstreamLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Duration of upstream embedding calls in seconds.",
				Buckets:   latencyBuckets,
			},
			[]string{"outcome"},
		),
		embeddedTexts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedded_texts_total",
			Help:      "Total number of texts successfully embedded.",
		}),
	}

	registry.MustRegister(m.httpRequests, m.httpLatency, m.upstreamLatency, m.embeddedTexts)
	if withRuntime {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest counts a served request and observes its latency.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveUpstream satisfies embedding.Observer.
func (m *Metrics) ObserveUpstream(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.upstreamLatency.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// AddEmbeddedTexts counts texts returned with a vector.
func (m *Metrics) AddEmbeddedTexts(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.embeddedTexts.Add(float64(n))
}
