// Package main provides the pq-archiver entry point.
//
// pq-archiver subscribes to the measurement bus and writes one JSONB
// row per frame to Postgres for long-term storage.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pqstream/pqstream/internal/archive"
	"github.com/pqstream/pqstream/internal/config"
	"github.com/pqstream/pqstream/internal/logging"
	"github.com/pqstream/pqstream/internal/transport"
	"github.com/pqstream/pqstream/internal/wire"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/pq-archiver
var version = "dev"

// writeTimeout bounds a single insert so a stalled database cannot
// wedge the receive loop forever.
const writeTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if arg == "-version" || arg == "--version" || arg == "version" {
			fmt.Printf("pq-archiver %s\n", version)
			return 0
		}
	}

	cfg, err := config.ParseArchiverFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 1
	}

	logger := logging.NewLogger(cfg.LogFormat, cfg.LogLevel, cfg.Verbose)
	logging.SetDefault(logger)

	if err := config.ValidateArchiver(cfg); err != nil {
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
		"table", cfg.Table,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	writer, err := archive.NewWriter(cfg.ConnString, cfg.Table, cfg.Device, logger)
	if err != nil {
		logger.Error("database_open_failed", "error", err)
		return 1
	}
	defer writer.Close()

	if err := writer.Ping(ctx); err != nil {
		logger.Error("database_unreachable", "error", err)
		return 1
	}
	if err := writer.EnsureSchema(ctx); err != nil {
		logger.Error("schema_setup_failed", "error", err)
		return 1
	}

	sub := transport.NewSubscriber(transport.SubscriberConfig{
		Endpoint: endpoint,
		Topic:    cfg.ZMQTopic,
		Backoff: transport.BackoffConfig{
			Initial:    cfg.BackoffInitial,
			Max:        cfg.BackoffMax,
			Multiplier: cfg.BackoffMultiply,
			JitterPct:  0.4,
		},
		Logger: logger,
	})

	err = sub.Run(ctx, func(payload []byte) {
		frame, err := wire.Unmarshal(payload)
		if err != nil {
			logger.Error("frame_decode_failed", "error", err, "bytes", len(payload))
			return
		}

		record := archive.BuildRecord(frame, logger)
		if len(record) == 0 {
			return
		}

		writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		defer cancel()
		if err := writer.Write(writeCtx, time.Now().UTC(), record); err != nil {
			// A failed insert drops this frame only; the stream goes on.
			logger.Error("archive_write_failed", "error", err)
		}
	})
	if err != nil && ctx.Err() == nil {
		logger.Error("subscriber_failed", "error", err)
		return 1
	}

	logger.Info("shutdown_complete")
	return 0
}
