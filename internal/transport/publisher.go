package transport

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-zeromq/zmq4"
)

// Publisher is a PUB socket that prefixes every payload with its topic
// so subscribers can filter on it.
type Publisher struct {
	sock   zmq4.Socket
	topic  []byte
	logger *slog.Logger
}

// NewPublisher binds a PUB socket on endpoint. The returned publisher
// must be closed when done.
func NewPublisher(ctx context.Context, endpoint, topic string, logger *slog.Logger) (*Publisher, error) {
	sock := zmq4.NewPub(ctx)
	if err := sock.Listen(endpoint); err != nil {
		sock.Close()
		return nil, fmt.Errorf("listen %s: %w", endpoint, err)
	}

	logger.Info("publisher_listening",
		"endpoint", endpoint,
		"topic", topic,
	)

	return &Publisher{
		sock:   sock,
		topic:  []byte(topic),
		logger: logger,
	}, nil
}

// Publish sends one topic-prefixed message.
func (p *Publisher) Publish(payload []byte) error {
	buf := make([]byte, 0, len(p.topic)+len(payload))
	buf = append(buf, p.topic...)
	buf = append(buf, payload...)

	if err := p.sock.Send(zmq4.NewMsg(buf)); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// Close closes the underlying socket.
func (p *Publisher) Close() error {
	return p.sock.Close()
}
