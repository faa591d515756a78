package config

import (
	"flag"
)

// ParseExporterFlags parses the pq-exporter command line.
func ParseExporterFlags(args []string) (*Config, error) {
	cfg := DefaultConfig()
	fs := flag.NewFlagSet("pq-exporter", flag.ContinueOnError)

	addBusFlags(fs, cfg)
	addLogFlags(fs, cfg)
	fs.IntVar(&cfg.WindowSize, "window", cfg.WindowSize, "Samples per sliding statistics window")
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Prometheus metrics address")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseArchiverFlags parses the pq-archiver command line.
func ParseArchiverFlags(args []string) (*Config, error) {
	cfg := DefaultConfig()
	fs := flag.NewFlagSet("pq-archiver", flag.ContinueOnError)

	addBusFlags(fs, cfg)
	addLogFlags(fs, cfg)
	fs.StringVar(&cfg.ConnString, "connection-string", cfg.ConnString, "Postgres connection string (required)")
	fs.StringVar(&cfg.Table, "table", cfg.Table, "Archive table name")
	fs.StringVar(&cfg.Device, "device", cfg.Device, "Device label stored with each row")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseReplayFlags parses the pq-replay command line.
func ParseReplayFlags(args []string) (*Config, error) {
	cfg := DefaultConfig()
	fs := flag.NewFlagSet("pq-replay", flag.ContinueOnError)

	addBusFlags(fs, cfg)
	addLogFlags(fs, cfg)
	fs.StringVar(&cfg.DatasetPath, "dataset", cfg.DatasetPath, "CSV dataset to replay (required)")
	fs.Float64Var(&cfg.RateHz, "rate-hz", cfg.RateHz, "Frame publish rate")
	fs.DurationVar(&cfg.SettleDelay, "settle", cfg.SettleDelay, "Wait before first frame so subscribers can connect")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func addBusFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.ZMQEndpoint, "zmq-endpoint", cfg.ZMQEndpoint, "Full bus endpoint (overrides -zmq-host/-zmq-port)")
	fs.StringVar(&cfg.ZMQHost, "zmq-host", cfg.ZMQHost, "Bus host")
	fs.IntVar(&cfg.ZMQPort, "zmq-port", cfg.ZMQPort, "Bus port")
	fs.StringVar(&cfg.ZMQTopic, "zmq-topic", cfg.ZMQTopic, "Subscription topic")
	fs.DurationVar(&cfg.BackoffInitial, "backoff-initial", cfg.BackoffInitial, "Initial reconnect delay")
	fs.DurationVar(&cfg.BackoffMax, "backoff-max", cfg.BackoffMax, "Maximum reconnect delay")
	fs.Float64Var(&cfg.BackoffMultiply, "backoff-multiply", cfg.BackoffMultiply, "Reconnect delay multiplier")
}

func addLogFlags(fs *flag.FlagSet, cfg *Config) {
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
}
