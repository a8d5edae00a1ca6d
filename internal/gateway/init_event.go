package gateway

import (
	"time"

	"github.com/relaypoint/ai-gateway/internal/config"
	"github.com/relaypoint/ai-gateway/internal/monitoring"
	"github.com/relaypoint/ai-gateway/internal/providers"
)

// buildInitEvent snapshots the effective configuration for the telemetry
// log. Provider entries describe header expectations only; no credential
// material is ever included.
func buildInitEvent(cfg *config.Config, reg *providers.Registry) *monitoring.InitEvent {
	ev := &monitoring.InitEvent{
		Timestamp:            time.Now(),
		Event:                "gateway_init",
		ServerPort:           cfg.Server.Port,
		ServerReadTimeoutMs:  cfg.Server.ReadTimeout.Std().Milliseconds(),
		ServerWriteTimeoutMs: cfg.Server.WriteTimeout.Std().Milliseconds(),
		UpstreamTimeoutMs:    cfg.Gateway.UpstreamTimeout.Std().Milliseconds(),
		TelemetryPath:        cfg.Monitoring.TelemetryPath,
		UsageDBPath:          cfg.Monitoring.UsageDBPath,
		MetricsEnabled:       cfg.Monitoring.MetricsEnabled,
	}
	for _, key := range reg.Keys() {
		p := reg.Lookup(key)
		ev.Providers = append(ev.Providers, monitoring.InitProvider{
			Key:           p.Key,
			BaseURL:       p.BaseURL,
			AuthHeader:    p.AuthHeader,
			VersionHeader: p.VersionHeader,
			Translation:   string(p.Translation),
			SigV4:         p.SigV4,
		})
	}
	return ev
}
