// Package transport carries measurement frames over a ZeroMQ pub-sub
// bus. Frames travel as single-part messages with the subscription
// topic as a plain byte prefix, so a subscriber strips its own topic
// off the front of every message before decoding.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-zeromq/zmq4"
)

// frameLogInterval controls how often the receive loop logs a running
// frame count.
const frameLogInterval = 100

// Handler consumes one topic-stripped message payload. The payload is
// only valid for the duration of the call.
type Handler func(payload []byte)

// SubscriberConfig holds the configuration for a bus subscriber.
type SubscriberConfig struct {
	Endpoint string // e.g. tcp://127.0.0.1:5561
	Topic    string // subscription topic, also the on-wire prefix
	Backoff  BackoffConfig
	Logger   *slog.Logger

	// OnReconnect is called each time the subscription is re-dialed
	// after a failure. Optional.
	OnReconnect func()
}

// Subscriber is a reconnecting SUB socket. Run blocks for the life of
// the process; every connection failure is retried with backoff until
// the context is canceled.
type Subscriber struct {
	cfg     SubscriberConfig
	backoff *Backoff
	logger  *slog.Logger
}

// NewSubscriber creates a subscriber. It does not connect; call Run.
func NewSubscriber(cfg SubscriberConfig) *Subscriber {
	if cfg.Backoff.Initial <= 0 {
		cfg.Backoff = DefaultBackoffConfig()
	}
	return &Subscriber{
		cfg:     cfg,
		backoff: NewBackoff(time.Now().UnixNano(), cfg.Backoff),
		logger:  cfg.Logger,
	}
}

// Run dials the endpoint and delivers topic-stripped payloads to
// handle until ctx is canceled. Connection and receive errors are
// retried with backoff, never returned; the only return value is
// ctx.Err().
func (s *Subscriber) Run(ctx context.Context, handle Handler) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.receiveLoop(ctx, handle)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ctx.Err()
		}

		delay := s.backoff.Next()
		s.logger.Warn("subscription_lost",
			"endpoint", s.cfg.Endpoint,
			"topic", s.cfg.Topic,
			"error", err,
			"retry_in", delay,
			"attempt", s.backoff.Attempts(),
		)
		if s.cfg.OnReconnect != nil {
			s.cfg.OnReconnect()
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// receiveLoop owns one socket lifetime: dial, subscribe, then receive
// until an error.
func (s *Subscriber) receiveLoop(ctx context.Context, handle Handler) error {
	sock := zmq4.NewSub(ctx)
	defer sock.Close()

	if err := sock.Dial(s.cfg.Endpoint); err != nil {
		return fmt.Errorf("dial %s: %w", s.cfg.Endpoint, err)
	}
	if err := sock.SetOption(zmq4.OptionSubscribe, s.cfg.Topic); err != nil {
		return fmt.Errorf("subscribe %q: %w", s.cfg.Topic, err)
	}

	s.logger.Info("subscribed",
		"endpoint", s.cfg.Endpoint,
		"topic", s.cfg.Topic,
	)

	prefix := len(s.cfg.Topic)
	frames := 0

	for {
		msg, err := sock.Recv()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("recv: %w", err)
		}

		// A received message proves the connection is healthy.
		s.backoff.Reset()

		data := msg.Bytes()
		if len(data) < prefix {
			s.logger.Warn("short_message_dropped", "bytes", len(data))
			continue
		}

		frames++
		if frames%frameLogInterval == 0 {
			s.logger.Info("frames_received", "count", frames, "topic", s.cfg.Topic)
		}

		handle(data[prefix:])
	}
}
