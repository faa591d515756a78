package config

import (
	"errors"
	"fmt"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the settings every binary shares. Returns nil if
// valid, or an error describing the problems.
func Validate(cfg *Config) error {
	var errs []error

	if _, err := cfg.ResolveEndpoint(); err != nil {
		errs = append(errs, ValidationError{
			Field:   "zmq_endpoint",
			Message: err.Error(),
		})
	}

	if cfg.WindowSize < 1 {
		errs = append(errs, ValidationError{
			Field:   "window",
			Message: "must be at least 1",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	if cfg.BackoffInitial <= 0 {
		errs = append(errs, ValidationError{
			Field:   "backoff_initial",
			Message: "must be positive",
		})
	}
	if cfg.BackoffMax < cfg.BackoffInitial {
		errs = append(errs, ValidationError{
			Field:   "backoff_max",
			Message: "must be >= backoff_initial",
		})
	}
	if cfg.BackoffMultiply < 1.0 {
		errs = append(errs, ValidationError{
			Field:   "backoff_multiply",
			Message: "must be >= 1.0",
		})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ValidateArchiver checks the archiver-only settings on top of
// Validate.
func ValidateArchiver(cfg *Config) error {
	var errs []error

	if err := Validate(cfg); err != nil {
		errs = append(errs, err)
	}
	if cfg.ConnString == "" {
		errs = append(errs, ValidationError{
			Field:   "connection_string",
			Message: "Postgres connection string is required",
		})
	}
	if cfg.Table == "" {
		errs = append(errs, ValidationError{
			Field:   "table",
			Message: "must not be empty",
		})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ValidateReplay checks the replay-only settings on top of Validate.
func ValidateReplay(cfg *Config) error {
	var errs []error

	if err := Validate(cfg); err != nil {
		errs = append(errs, err)
	}
	if cfg.DatasetPath == "" {
		errs = append(errs, ValidationError{
			Field:   "dataset",
			Message: "CSV dataset path is required",
		})
	}
	if cfg.RateHz <= 0 {
		errs = append(errs, ValidationError{
			Field:   "rate_hz",
			Message: "must be positive",
		})
	}
	if cfg.SettleDelay < 0 {
		errs = append(errs, ValidationError{
			Field:   "settle",
			Message: "must not be negative",
		})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
