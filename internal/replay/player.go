package replay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pqstream/pqstream/internal/wire"
)

// publisher sends one encoded frame to the bus.
type publisher interface {
	Publish(payload []byte) error
}

// PlayerConfig holds the replay pacing knobs.
type PlayerConfig struct {
	RateHz float64 // publish rate (default 60)

	// Settle is how long to wait after binding before the first frame,
	// giving slow subscribers time to connect. PUB drops messages sent
	// before a SUB has joined.
	Settle time.Duration

	Logger *slog.Logger
}

// Player paces loaded frames onto the bus at a fixed rate, rewriting
// each frame's provenance timestamps to the wall clock so downstream
// dashboards see live data.
type Player struct {
	pub    publisher
	cfg    PlayerConfig
	logger *slog.Logger
}

// NewPlayer creates a player publishing through pub.
func NewPlayer(pub publisher, cfg PlayerConfig) *Player {
	return &Player{pub: pub, cfg: cfg, logger: cfg.Logger}
}

// Play publishes every frame once and returns. Frames keep their load
// order; frame i is stamped start+i*period regardless of publish
// jitter, so replayed timestamps stay evenly spaced.
func (p *Player) Play(ctx context.Context, frames []*wire.Frame) error {
	if p.cfg.Settle > 0 {
		p.logger.Info("waiting_for_subscribers", "settle", p.cfg.Settle)
		select {
		case <-time.After(p.cfg.Settle):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	period := time.Duration(float64(time.Second) / p.cfg.RateHz)
	p.logger.Info("replay_starting",
		"frames", len(frames),
		"rate_hz", p.cfg.RateHz,
	)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	start := time.Now()
	for i, frame := range frames {
		stampFrame(frame, start.Add(time.Duration(i)*period))

		if err := p.pub.Publish(wire.Marshal(frame)); err != nil {
			return fmt.Errorf("publish frame %d: %w", i, err)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	p.logger.Info("replay_finished", "frames", len(frames))
	return nil
}

// stampFrame rewrites every provenance timestamp in the frame to at.
func stampFrame(frame *wire.Frame, at time.Time) {
	ts := wire.Timestamp{
		Seconds: at.Unix(),
		Nanos:   int32(at.Nanosecond()),
	}
	for i := range frame.Entries {
		calc := frame.Entries[i].Calculations
		if calc == nil {
			continue
		}
		for _, phase := range []*wire.PhaseCalculation{calc.PhaseA, calc.PhaseB} {
			if phase == nil || phase.Provenance == nil {
				continue
			}
			stamped := ts
			phase.Provenance.UTCTime = &stamped
		}
	}
}
