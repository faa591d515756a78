// Package main provides the pq-replay entry point.
//
// pq-replay loads an archived CSV dataset and publishes it on the
// measurement bus at a fixed rate, rewriting timestamps to the wall
// clock so downstream consumers see live data.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pqstream/pqstream/internal/config"
	"github.com/pqstream/pqstream/internal/logging"
	"github.com/pqstream/pqstream/internal/replay"
	"github.com/pqstream/pqstream/internal/transport"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/pq-replay
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if arg == "-version" || arg == "--version" || arg == "version" {
			fmt.Printf("pq-replay %s\n", version)
			return 0
		}
	}

	cfg, err := config.ParseReplayFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 1
	}

	logger := logging.NewLogger(cfg.LogFormat, cfg.LogLevel, cfg.Verbose)
	logging.SetDefault(logger)

	if err := config.ValidateReplay(cfg); err != nil {
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
		"dataset", cfg.DatasetPath,
		"rate_hz", cfg.RateHz,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(cfg.DatasetPath)
	if err != nil {
		logger.Error("dataset_open_failed", "error", err)
		return 1
	}
	frames, err := replay.LoadFrames(f, logger)
	f.Close()
	if err != nil {
		logger.Error("dataset_load_failed", "error", err)
		return 1
	}
	if len(frames) == 0 {
		logger.Error("dataset_empty", "dataset", cfg.DatasetPath)
		return 1
	}

	pub, err := transport.NewPublisher(ctx, endpoint, cfg.ZMQTopic, logger)
	if err != nil {
		logger.Error("publisher_bind_failed", "error", err)
		return 1
	}
	defer pub.Close()

	player := replay.NewPlayer(pub, replay.PlayerConfig{
		RateHz: cfg.RateHz,
		Settle: cfg.SettleDelay,
		Logger: logger,
	})
	if err := player.Play(ctx, frames); err != nil {
		if ctx.Err() != nil {
			logger.Info("replay_interrupted")
			return 0
		}
		logger.Error("replay_failed", "error", err)
		return 1
	}

	logger.Info("shutdown_complete")
	return 0
}
