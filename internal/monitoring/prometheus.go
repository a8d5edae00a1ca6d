// Package monitoring - prometheus.go exports proxy metrics.
//
// Label cardinality is bounded: provider labels come from the fixed
// registry and methods are normalized, so a hostile client cannot mint
// new series.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Default histogram buckets for upstream latency.
var defaultBuckets = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}

// PromMetrics holds Prometheus collectors for the proxy.
type PromMetrics struct {
	registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestsInFlight prometheus.Gauge
	UpstreamDuration *prometheus.HistogramVec
	StreamedTotal    *prometheus.CounterVec
	TokensTotal      *prometheus.CounterVec
}

// NewPromMetrics creates a PromMetrics with a private registry and all
// collectors registered.
func NewPromMetrics() *PromMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &PromMetrics{
		registry: reg,

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ai_gateway_requests_total",
			Help: "Total inbound requests by provider, method and status code.",
		}, []string{"provider", "method", "status_code"}),

		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ai_gateway_requests_in_flight",
			Help: "Requests currently being proxied.",
		}),

		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ai_gateway_upstream_duration_seconds",
			Help:    "Upstream call latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"provider"}),

		StreamedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ai_gateway_streamed_responses_total",
			Help: "Responses relayed as event streams.",
		}, []string{"provider"}),

		TokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ai_gateway_tokens_total",
			Help: "Token usage reported by providers.",
		}, []string{"provider", "direction"}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestsInFlight,
		m.UpstreamDuration,
		m.StreamedTotal,
		m.TokensTotal,
	)
	return m
}

// Handler returns the /metrics HTTP handler for the private registry.
func (m *PromMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// knownMethods lists the allowed HTTP method label values.
var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// NormalizeMethod maps non-standard methods to "other" to prevent
// cardinality explosion.
func NormalizeMethod(method string) string {
	if knownMethods[method] {
		return method
	}
	return "other"
}
