// Command gateway runs the AI provider reverse proxy.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/relaypoint/ai-gateway/internal/config"
	"github.com/relaypoint/ai-gateway/internal/gateway"
)

// Set by goreleaser ldflags.
var version = "dev"

// CLI holds command-line arguments parsed by Kong. Flags override the
// config file; GATEWAY_TOKEN and friends are read by config.Load.
type CLI struct {
	Config   string           `kong:"short='c',help='Path to YAML config file.',env='CONFIG_PATH'"`
	Port     int              `kong:"short='p',help='Listen port (overrides config).'"`
	LogLevel string           `kong:"help='Log level: debug|info|warn|error (overrides config).'"`
	Pretty   bool             `kong:"help='Human-readable console logging instead of JSON.'"`
	Version  kong.VersionFlag `kong:"help='Print version and exit.'"`
}

func main() {
	// Local development convenience; absence of a .env file is normal.
	_ = godotenv.Load()

	var cli CLI
	kong.Parse(&cli,
		kong.Name("ai-gateway"),
		kong.Description("Reverse proxy for AI provider APIs behind a shared gateway."),
		kong.Vars{"version": version},
	)

	cfg, err := config.Load(cli.Config)
	if err != nil {
		log.Fatal().Err(err).Msg("configuration invalid")
	}
	if cli.Port != 0 {
		cfg.Server.Port = cli.Port
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	setupLogging(cfg.Log.Level, cli.Pretty)

	g, err := gateway.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("gateway init failed")
	}

	errCh := make(chan error, 1)
	go func() { errCh <- g.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("server failed")
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := g.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
}

// setupLogging configures the global zerolog logger.
func setupLogging(level string, pretty bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
