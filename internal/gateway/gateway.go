// HTTP request handling for the AI gateway proxy.
//
// DESIGN: Main request flow:
//   - handleProxy():  Entry point for all provider requests
//   - resolveRoute(): Provider key + target URL from the path
//   - buildOutboundHeaders(): gateway token + relayed backend credential
//   - inspectBody():  One read, stream-flag detection, provider rewrites
//   - dispatch():     Single bounded upstream attempt
//   - responseRelay:  Streaming passthrough or buffered (+translation)
//
// Also includes health check, stats, and telemetry recording.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/relaypoint/ai-gateway/internal/auth/bedrock"
	"github.com/relaypoint/ai-gateway/internal/config"
	"github.com/relaypoint/ai-gateway/internal/monitoring"
	"github.com/relaypoint/ai-gateway/internal/providers"
	"github.com/relaypoint/ai-gateway/internal/store"
	"github.com/relaypoint/ai-gateway/internal/utils"
)

// HeaderRequestID is honored inbound and echoed on every response.
const HeaderRequestID = "X-Request-Id"

// Gateway is the proxy: one immutable configuration shared by all request
// tasks. Request handling holds no cross-request mutable state.
type Gateway struct {
	config     *config.Config
	registry   *providers.Registry
	dispatcher *dispatcher
	metrics    *monitoring.MetricsCollector
	prom       *monitoring.PromMetrics
	tracker    *monitoring.Tracker
	usage      *store.UsageStore
	estimator  *monitoring.TokenEstimator
	server     *http.Server
	startedAt  time.Time
}

// New builds a Gateway from validated configuration.
func New(cfg *config.Config) (*Gateway, error) {
	registry, err := providers.Build(cfg.Providers)
	if err != nil {
		return nil, err
	}

	// One credential chain serves every SigV4 provider; the region is
	// taken from each provider at sign time.
	var signer *bedrock.Signer
	for _, key := range registry.Keys() {
		if !registry.Lookup(key).SigV4 {
			continue
		}
		signer, err = bedrock.NewSigner(context.Background())
		if err != nil {
			// Requests to SigV4 providers will fail with 500 until AWS
			// credentials appear; everything else keeps working.
			log.Warn().Err(err).Msg("bedrock signing unavailable")
			signer = nil
		}
		break
	}

	tracker, err := monitoring.NewTracker(monitoring.TelemetryConfig{
		Enabled: cfg.Monitoring.TelemetryPath != "",
		LogPath: cfg.Monitoring.TelemetryPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	var usageStore *store.UsageStore
	if cfg.Monitoring.UsageDBPath != "" {
		usageStore, err = store.Open(cfg.Monitoring.UsageDBPath)
		if err != nil {
			return nil, err
		}
	}

	g := &Gateway{
		config:     cfg,
		registry:   registry,
		dispatcher: newDispatcher(cfg.Gateway.UpstreamTimeout.Std(), signer),
		metrics:    monitoring.NewMetricsCollector(),
		prom:       monitoring.NewPromMetrics(),
		tracker:    tracker,
		usage:      usageStore,
		estimator:  monitoring.NewTokenEstimator(),
		startedAt:  time.Now(),
	}
	tracker.RecordInit(buildInitEvent(cfg, registry))
	return g, nil
}

// Handler returns the root HTTP handler.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	// Liveness bypasses the router entirely: fixed 200, no body processing.
	mux.HandleFunc("/healthz", g.handleHealth)
	mux.HandleFunc("/stats", g.handleStats)
	if g.config.Monitoring.MetricsEnabled {
		mux.Handle("/metrics", g.prom.Handler())
	}
	mux.HandleFunc("/", g.handleProxy)
	return mux
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.config.Server.Host, g.config.Server.Port)
	g.server = &http.Server{
		Addr:         addr,
		Handler:      g.Handler(),
		ReadTimeout:  g.config.Server.ReadTimeout.Std(),
		WriteTimeout: g.config.Server.WriteTimeout.Std(),
	}
	log.Info().Str("addr", addr).Strs("providers", g.registry.Keys()).
		Str("gateway_token", utils.MaskKey(g.config.Gateway.Token)).
		Msg("gateway listening")
	err := g.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and closes the usage store.
func (g *Gateway) Shutdown(ctx context.Context) error {
	var err error
	if g.server != nil {
		err = g.server.Shutdown(ctx)
	}
	if g.usage != nil {
		_ = g.usage.Close()
	}
	return err
}

// handleProxy runs the full pipeline:
// Router -> Credential Relay -> Body Inspector -> Dispatcher -> Relay.
func (g *Gateway) handleProxy(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := g.requestID(r)
	r = r.WithContext(monitoring.WithRequestID(r.Context(), requestID))
	w.Header().Set(HeaderRequestID, requestID)

	if r.Method == http.MethodOptions {
		g.handlePreflight(w, r)
		return
	}

	rt, err := resolveRoute(g.registry, r.URL.EscapedPath(), r.URL.RawQuery)
	if err != nil {
		// Client addressing error, not a server fault: not logged as one.
		g.metrics.RecordClientError()
		var unknown *errUnknownProvider
		body := errorBody{Error: errorDetail{Message: err.Error(), Type: string(errClassClient)}}
		if errors.As(err, &unknown) {
			body.Error.Providers = unknown.keys
		}
		writeErrorBody(w, http.StatusNotFound, body)
		return
	}

	outHeaders, err := buildOutboundHeaders(rt, r.Header, g.config.Gateway.Token)
	if err != nil {
		g.metrics.RecordClientError()
		writeError(w, http.StatusUnauthorized, errClassClient, err.Error())
		return
	}
	outHeaders.Set(HeaderRequestID, requestID)

	var body []byte
	if bodyCarryingMethod(r.Method) {
		r.Body = http.MaxBytesReader(w, r.Body, config.MaxRequestBodySize)
		body, err = io.ReadAll(r.Body)
		if err != nil {
			g.metrics.RecordClientError()
			writeError(w, http.StatusBadRequest, errClassClient, "failed to read request body")
			return
		}
	}
	ins := inspectBody(rt.provider, r.Method, r.Header.Get("Content-Type"), body)

	g.prom.RequestsInFlight.Inc()
	defer g.prom.RequestsInFlight.Dec()

	log.Debug().
		Str("request_id", requestID).
		Str("provider", rt.provider.Key).
		Str("target", rt.targetURL).
		Bool("stream", ins.stream).
		Str("credential", utils.MaskKey(r.Header.Get(rt.provider.AuthHeader))).
		Msg("forwarding request")

	resp, release, upstreamElapsed, err := g.dispatcher.dispatch(
		r.Context(), rt, r.Method, outHeaders, ins.forwardBody, ins.stream)
	if err != nil {
		g.handleDispatchError(w, r, rt, ins, requestID, start, upstreamElapsed, err)
		return
	}
	// Releasing aborts the call context and frees the upstream connection
	// once the response has been fully relayed.
	defer release()

	translate := strings.EqualFold(r.Header.Get(HeaderTranslate), "openai") && !ins.stream
	outcome := newResponseRelay(w).run(resp, rt, ins, translate)

	if outcome.class == errClassUpstream {
		g.metrics.RecordUpstreamError()
		preview := outcome.responseBody
		if len(preview) > config.MaxErrorBodyLogLen {
			preview = preview[:config.MaxErrorBodyLogLen]
		}
		log.Warn().
			Str("request_id", requestID).
			Str("provider", rt.provider.Key).
			Int("status", outcome.status).
			Str("response", string(preview)).
			Msg("upstream error response")
	}

	g.record(r, rt, ins, requestID, start, upstreamElapsed, outcome)
}

// handleDispatchError maps an upstream call failure onto the taxonomy.
func (g *Gateway) handleDispatchError(w http.ResponseWriter, r *http.Request, rt *route,
	ins inspection, requestID string, start time.Time, elapsed time.Duration, err error) {

	if errors.Is(err, errSigningUnavailable) {
		log.Error().Str("request_id", requestID).Str("provider", rt.provider.Key).
			Msg("dispatch: sigv4 provider without aws credentials")
		writeError(w, http.StatusInternalServerError, errClassInternal, "upstream request could not be signed")
		g.record(r, rt, ins, requestID, start, elapsed, relayOutcome{
			status: http.StatusInternalServerError, class: errClassInternal,
		})
		return
	}

	status, class := classifyDispatchError(err)
	switch class {
	case errClassTimeout:
		g.metrics.RecordTimeout()
		log.Error().Str("request_id", requestID).Str("provider", rt.provider.Key).
			Dur("elapsed", elapsed).Msg("dispatch: upstream call timed out")
		writeError(w, status, class,
			fmt.Sprintf("upstream request timed out after %s", elapsed.Truncate(time.Millisecond)))
	default:
		g.metrics.RecordTransportFailure()
		log.Error().Err(err).Str("request_id", requestID).Str("provider", rt.provider.Key).
			Msg("dispatch: upstream connection failed")
		writeError(w, status, class, "upstream request failed")
	}
	g.record(r, rt, ins, requestID, start, elapsed, relayOutcome{status: status, class: class})
}

// record emits telemetry, metrics, and a usage row for a finished request.
func (g *Gateway) record(r *http.Request, rt *route, ins inspection,
	requestID string, start time.Time, upstreamElapsed time.Duration, outcome relayOutcome) {

	success := outcome.status >= 200 && outcome.status < 300
	g.metrics.RecordRequest(success, outcome.streamed, outcome.translated)

	method := monitoring.NormalizeMethod(r.Method)
	g.prom.RequestsTotal.WithLabelValues(rt.provider.Key, method, fmt.Sprintf("%d", outcome.status)).Inc()
	g.prom.UpstreamDuration.WithLabelValues(rt.provider.Key).Observe(upstreamElapsed.Seconds())
	if outcome.streamed {
		g.prom.StreamedTotal.WithLabelValues(rt.provider.Key).Inc()
	}

	inputTokens, outputTokens := outcome.inputTokens, outcome.outputTokens
	estimated := false
	if !outcome.streamed {
		if in, out, ok := extractUsage(outcome.responseBody); ok {
			inputTokens, outputTokens = in, out
		} else if success && len(outcome.responseBody) > 0 {
			outputTokens = g.estimator.Estimate(string(outcome.responseBody))
			inputTokens = g.estimator.Estimate(string(ins.forwardBody))
			estimated = true
		}
	}
	if inputTokens > 0 || outputTokens > 0 {
		g.metrics.RecordUsage(inputTokens, outputTokens)
		g.prom.TokensTotal.WithLabelValues(rt.provider.Key, "input").Add(float64(inputTokens))
		g.prom.TokensTotal.WithLabelValues(rt.provider.Key, "output").Add(float64(outputTokens))
	}

	ev := &monitoring.RequestEvent{
		RequestID:         requestID,
		Timestamp:         start,
		Method:            r.Method,
		Path:              r.URL.Path,
		ClientIP:          r.RemoteAddr,
		Provider:          rt.provider.Key,
		Model:             ins.model,
		RequestBodySize:   len(ins.forwardBody),
		ResponseBodySize:  outcome.responseSize,
		StatusCode:        outcome.status,
		Stream:            outcome.streamed,
		Translated:        outcome.translated,
		Success:           success,
		UpstreamLatencyMs: upstreamElapsed.Milliseconds(),
		TotalLatencyMs:    time.Since(start).Milliseconds(),
		InputTokens:       inputTokens,
		OutputTokens:      outputTokens,
		TokensEstimated:   estimated,
	}
	if outcome.class != "" {
		ev.ErrorClass = string(outcome.class)
	}
	g.tracker.RecordRequest(ev)

	if g.usage != nil {
		// Recording is off the request's critical path; its context is
		// already done once the response is written.
		if err := g.usage.Record(context.Background(), store.UsageRecord{
			RequestID:    requestID,
			Timestamp:    start,
			Provider:     rt.provider.Key,
			Model:        ins.model,
			StatusCode:   outcome.status,
			Stream:       outcome.streamed,
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
			Latency:      time.Since(start),
		}); err != nil {
			log.Warn().Err(err).Msg("usage store: record failed")
		}
	}
}

// extractUsage reads a provider usage block from a buffered JSON response.
func extractUsage(body []byte) (input, output int, ok bool) {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return 0, 0, false
	}
	u := gjson.GetBytes(body, "usage")
	if !u.Exists() {
		return 0, 0, false
	}
	input = int(u.Get("input_tokens").Int())
	if input == 0 {
		input = int(u.Get("prompt_tokens").Int())
	}
	output = int(u.Get("output_tokens").Int())
	if output == 0 {
		output = int(u.Get("completion_tokens").Int())
	}
	return input, output, true
}

// requestID returns the inbound X-Request-Id or mints one.
func (g *Gateway) requestID(r *http.Request) string {
	if id := r.Header.Get(HeaderRequestID); id != "" {
		return id
	}
	if id := monitoring.RequestIDFromContext(r.Context()); id != "" {
		return id
	}
	return uuid.New().String()
}

// handleHealth returns liveness with no body processing.
func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handlePreflight answers CORS preflight before routing.
func (g *Gateway) handlePreflight(w http.ResponseWriter, _ *http.Request) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "*")
	h.Set("Access-Control-Max-Age", "86400")
	w.WriteHeader(http.StatusNoContent)
}

// StatsResponse is the JSON response for GET /stats.
type StatsResponse struct {
	Uptime  string                `json:"uptime"`
	Gateway map[string]int64      `json:"gateway"`
	Usage   []store.ProviderUsage `json:"usage,omitempty"`
}

// handleStats returns aggregated metrics as JSON.
// Restricted to localhost to keep operational data private.
func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	if !isLoopback(r.RemoteAddr) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	resp := StatsResponse{
		Uptime:  time.Since(g.startedAt).Truncate(time.Second).String(),
		Gateway: g.metrics.Stats(),
	}
	if g.usage != nil {
		if summary, err := g.usage.Summary(r.Context()); err == nil {
			resp.Usage = summary
		} else {
			log.Warn().Err(err).Msg("usage store: summary failed")
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// isLoopback reports whether the remote address is a loopback interface.
func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
