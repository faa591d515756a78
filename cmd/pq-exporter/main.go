// Package main provides the pq-exporter entry point.
//
// pq-exporter subscribes to the measurement bus, keeps sliding-window
// statistics for every power-quality stream it sees, and serves them
// as Prometheus gauges.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pqstream/pqstream/internal/config"
	"github.com/pqstream/pqstream/internal/dispatch"
	"github.com/pqstream/pqstream/internal/logging"
	"github.com/pqstream/pqstream/internal/metrics"
	"github.com/pqstream/pqstream/internal/stats"
	"github.com/pqstream/pqstream/internal/transport"
	"github.com/pqstream/pqstream/internal/wire"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/pq-exporter
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if arg == "-version" || arg == "--version" || arg == "version" {
			fmt.Printf("pq-exporter %s\n", version)
			return 0
		}
	}

	cfg, err := config.ParseExporterFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 1
	}

	logger := logging.NewLogger(cfg.LogFormat, cfg.LogLevel, cfg.Verbose)
	logging.SetDefault(logger)

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}
	endpoint, err := cfg.ResolveEndpoint()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	logger.Info("starting",
		"version", version,
		"endpoint", endpoint,
		"topic", cfg.ZMQTopic,
		"window", cfg.WindowSize,
		"metrics_addr", cfg.MetricsAddr,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	promReg := prometheus.NewRegistry()
	health := metrics.NewIngestHealth(promReg)

	dispatcher := dispatch.New(dispatch.Config{
		Registry:  stats.NewRegistry(cfg.WindowSize),
		Rollup:    stats.NewThreePhase(cfg.WindowSize),
		Exporter:  metrics.NewExporter(promReg),
		Health:    health,
		RollupKey: cfg.ZMQTopic,
		Logger:    logger,
	})

	server := metrics.NewServer(cfg.MetricsAddr, promReg, logger)
	if err := server.Start(); err != nil {
		logger.Error("metrics_server_failed", "error", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics_server_shutdown_failed", "error", err)
		}
	}()

	sub := transport.NewSubscriber(transport.SubscriberConfig{
		Endpoint: endpoint,
		Topic:    cfg.ZMQTopic,
		Backoff: transport.BackoffConfig{
			Initial:    cfg.BackoffInitial,
			Max:        cfg.BackoffMax,
			Multiplier: cfg.BackoffMultiply,
			JitterPct:  0.4,
		},
		Logger:      logger,
		OnReconnect: health.Reconnected,
	})

	err = sub.Run(ctx, func(payload []byte) {
		frame, err := wire.Unmarshal(payload)
		if err != nil {
			logger.Error("frame_decode_failed", "error", err, "bytes", len(payload))
			health.DecodeFailed()
			return
		}
		dispatcher.ProcessFrame(frame)
	})
	if err != nil && ctx.Err() == nil {
		logger.Error("subscriber_failed", "error", err)
		return 1
	}

	logger.Info("shutdown_complete")
	return 0
}
