// Package config provides configuration management for the pqstream
// services.
package config

import (
	"fmt"
	"time"
)

// Config holds all configuration options shared by the pqstream
// binaries. Each binary parses the subset of flags it uses.
type Config struct {
	// Bus
	ZMQEndpoint string `json:"zmq_endpoint"` // full endpoint, wins over host/port
	ZMQHost     string `json:"zmq_host"`
	ZMQPort     int    `json:"zmq_port"` // 0 = unset
	ZMQTopic    string `json:"zmq_topic"`

	// Aggregation
	WindowSize int `json:"window_size"` // samples per sliding window

	// Reconnect policy
	BackoffInitial  time.Duration `json:"backoff_initial"`
	BackoffMax      time.Duration `json:"backoff_max"`
	BackoffMultiply float64       `json:"backoff_multiply"`

	// Archiver
	ConnString string `json:"conn_string"`
	Table      string `json:"table"`
	Device     string `json:"device"`

	// Replay
	DatasetPath string        `json:"dataset_path"`
	RateHz      float64       `json:"rate_hz"`
	SettleDelay time.Duration `json:"settle_delay"`

	// Observability
	MetricsAddr string `json:"metrics_addr"`
	Verbose     bool   `json:"verbose"`
	LogFormat   string `json:"log_format"` // json, text
	LogLevel    string `json:"log_level"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		// Bus
		ZMQHost:  "127.0.0.1",
		ZMQTopic: "measurements",

		// Aggregation: five minutes of frames at 1 Hz.
		WindowSize: 300,

		// Reconnect policy
		BackoffInitial:  1 * time.Second,
		BackoffMax:      5 * time.Second,
		BackoffMultiply: 2.0,

		// Archiver
		Table:  "measurements",
		Device: "pqstream",

		// Replay
		RateHz:      60,
		SettleDelay: 75 * time.Second,

		// Observability
		MetricsAddr: "0.0.0.0:9090",
		Verbose:     false,
		LogFormat:   "json",
		LogLevel:    "info",
	}
}

// ResolveEndpoint returns the bus endpoint: an explicit endpoint wins,
// otherwise one is built from host and port.
func (c *Config) ResolveEndpoint() (string, error) {
	if c.ZMQEndpoint != "" {
		return c.ZMQEndpoint, nil
	}
	if c.ZMQPort == 0 {
		return "", fmt.Errorf("either -zmq-endpoint or both -zmq-host and -zmq-port must be provided")
	}
	return fmt.Sprintf("tcp://%s:%d", c.ZMQHost, c.ZMQPort), nil
}
