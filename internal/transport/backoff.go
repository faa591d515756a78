package transport

import (
	"math"
	"math/rand"
	"time"
)

// BackoffConfig holds the configuration for reconnect backoff.
type BackoffConfig struct {
	Initial    time.Duration // Initial delay (default: 1s)
	Max        time.Duration // Maximum delay (default: 5s)
	Multiplier float64       // Multiplier for each attempt (default: 2.0)
	JitterPct  float64       // Jitter as a percentage of delay (default: 0.4 = ±20%)
}

// DefaultBackoffConfig returns sensible defaults for bus reconnects.
// The 5s cap matches the fixed retry delay the pipeline has always
// used between subscription attempts.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    1 * time.Second,
		Max:        5 * time.Second,
		Multiplier: 2.0,
		JitterPct:  0.4, // ±20% jitter
	}
}

// Backoff calculates exponential reconnect delays with jitter.
type Backoff struct {
	config   BackoffConfig
	attempts int
	rng      *rand.Rand
}

// NewBackoff creates a Backoff calculator. The seed makes jitter
// deterministic for tests.
func NewBackoff(seed int64, cfg BackoffConfig) *Backoff {
	return &Backoff{
		config: cfg,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Next returns the next delay and increments the attempt counter.
func (b *Backoff) Next() time.Duration {
	delay := b.Calculate()
	b.attempts++
	return delay
}

// Calculate returns the current delay without incrementing attempts.
func (b *Backoff) Calculate() time.Duration {
	delay := float64(b.config.Initial) * math.Pow(b.config.Multiplier, float64(b.attempts))

	if delay > float64(b.config.Max) {
		delay = float64(b.config.Max)
	}

	// Jitter: ±(JitterPct/2) of the delay.
	if b.config.JitterPct > 0 {
		jitterRange := delay * b.config.JitterPct
		jitter := jitterRange*b.rng.Float64() - jitterRange/2
		delay += jitter
	}

	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay)
}

// Reset resets the attempt counter to zero. Called after a healthy
// stretch of received frames so a later outage starts from the
// initial delay again.
func (b *Backoff) Reset() {
	b.attempts = 0
}

// Attempts returns the current attempt count.
func (b *Backoff) Attempts() int {
	return b.attempts
}
