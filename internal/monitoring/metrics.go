// Package monitoring - metrics.go provides in-process counters.
//
// DESIGN: Lightweight atomic counters back the /stats JSON endpoint.
// Prometheus export lives in prometheus.go; these counters stay because
// /stats must work even when metrics are disabled.
package monitoring

import (
	"sync/atomic"
	"time"
)

// MetricsCollector collects operational counters.
type MetricsCollector struct {
	startedAt time.Time

	requests       atomic.Int64
	successes      atomic.Int64
	streamed       atomic.Int64
	translated     atomic.Int64
	clientErrors   atomic.Int64
	upstreamErrors atomic.Int64
	transportFails atomic.Int64
	timeouts       atomic.Int64

	inputTokens  atomic.Int64
	outputTokens atomic.Int64
}

// NewMetricsCollector creates a collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{startedAt: time.Now()}
}

// RecordRequest records one completed request.
func (mc *MetricsCollector) RecordRequest(success, stream, translated bool) {
	mc.requests.Add(1)
	if success {
		mc.successes.Add(1)
	}
	if stream {
		mc.streamed.Add(1)
	}
	if translated {
		mc.translated.Add(1)
	}
}

// RecordClientError records a 4xx produced by the proxy itself.
func (mc *MetricsCollector) RecordClientError() { mc.clientErrors.Add(1) }

// RecordUpstreamError records a non-2xx relayed from upstream.
func (mc *MetricsCollector) RecordUpstreamError() { mc.upstreamErrors.Add(1) }

// RecordTransportFailure records a failed upstream connection.
func (mc *MetricsCollector) RecordTransportFailure() { mc.transportFails.Add(1) }

// RecordTimeout records an upstream deadline hit.
func (mc *MetricsCollector) RecordTimeout() { mc.timeouts.Add(1) }

// RecordUsage accumulates token usage reported by providers.
func (mc *MetricsCollector) RecordUsage(input, output int) {
	mc.inputTokens.Add(int64(input))
	mc.outputTokens.Add(int64(output))
}

// Uptime returns time since collector creation.
func (mc *MetricsCollector) Uptime() time.Duration { return time.Since(mc.startedAt) }

// Stats returns a snapshot of all counters.
func (mc *MetricsCollector) Stats() map[string]int64 {
	return map[string]int64{
		"requests":           mc.requests.Load(),
		"successes":          mc.successes.Load(),
		"streamed":           mc.streamed.Load(),
		"translated":         mc.translated.Load(),
		"client_errors":      mc.clientErrors.Load(),
		"upstream_errors":    mc.upstreamErrors.Load(),
		"transport_failures": mc.transportFails.Load(),
		"timeouts":           mc.timeouts.Load(),
		"input_tokens":       mc.inputTokens.Load(),
		"output_tokens":      mc.outputTokens.Load(),
	}
}
