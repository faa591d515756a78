// Package dispatch routes decoded frames into the aggregation core.
//
// One dispatcher processes frames strictly sequentially in arrival
// order. Per frame it validates each entry, applies valid two-phase
// entries to the measurement registry, folds their power into the
// frame-wide three-phase totals, and finalizes the rollup exactly once
// after the last entry. Invalid entries are logged and skipped; a bad
// entry never aborts the frame and a bad frame never aborts the
// process.
package dispatch

import (
	"log/slog"

	"github.com/pqstream/pqstream/internal/metrics"
	"github.com/pqstream/pqstream/internal/stats"
	"github.com/pqstream/pqstream/internal/wire"
)

// Dispatcher owns the write path of the aggregation core.
type Dispatcher struct {
	registry *stats.Registry
	rollup   *stats.ThreePhase
	exporter *metrics.Exporter
	health   *metrics.IngestHealth

	// rollupKey is the ingest subscription topic. All streams on the
	// subscription feed one rollup series under this key.
	rollupKey string

	logger *slog.Logger
}

// Config holds the dispatcher's collaborators.
type Config struct {
	Registry  *stats.Registry
	Rollup    *stats.ThreePhase
	Exporter  *metrics.Exporter
	Health    *metrics.IngestHealth
	RollupKey string
	Logger    *slog.Logger
}

// New creates a dispatcher.
func New(cfg Config) *Dispatcher {
	return &Dispatcher{
		registry:  cfg.Registry,
		rollup:    cfg.Rollup,
		exporter:  cfg.Exporter,
		health:    cfg.Health,
		rollupKey: cfg.RollupKey,
		logger:    cfg.Logger,
	}
}

// ProcessFrame consumes one decoded frame: entries are applied in
// order, then the three-phase rollup is finalized with the frame-wide
// sums. The frame is not retained.
func (d *Dispatcher) ProcessFrame(frame *wire.Frame) {
	var totals stats.ThreePhaseTotals

	for i := range frame.Entries {
		entry := &frame.Entries[i]

		if entry.Calculations == nil {
			// Not a two-phase product. Forward-compatible skip.
			if entry.HasUnknownProduct() {
				d.health.UnknownProduct()
			}
			continue
		}

		reading, err := ValidateEntry(entry)
		if err != nil {
			d.logger.Warn("malformed_entry_skipped",
				"name", entry.Name,
				"error", err,
			)
			d.health.MalformedEntry()
			continue
		}

		d.registry.Apply(entry.Name, reading)
		totals.Add(reading)

		if snap, ok := d.registry.SnapshotFor(entry.Name); ok {
			d.exporter.UpdateStream(entry.Name, snap)
		}
	}

	// Finalize: exactly once per frame, after all entry applies.
	d.rollup.Apply(d.rollupKey, totals)
	if snap, ok := d.rollup.SnapshotFor(d.rollupKey); ok {
		d.exporter.UpdateRollup(d.rollupKey, snap)
	}

	d.health.FrameReceived()
}
