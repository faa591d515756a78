// Package stats implements the streaming aggregation core: per-stream
// per-phase sliding-window statistics over the nine measured channels,
// and the combined three-phase power rollup.
//
// The write path is single-threaded (one ingest goroutine applies
// frames in arrival order); snapshots may be taken concurrently from
// other goroutines. Registry and ThreePhase guard their state with a
// read-write mutex at per-structure granularity.
package stats

import "github.com/pqstream/pqstream/internal/window"

// The nine measured channels tracked per (stream, phase).
// ChannelActivePower is an alias of real power, tracked as its own
// channel for export compatibility.
const (
	ChannelRMSVoltage      = "rms_voltage"
	ChannelDCOffsetVoltage = "dc_offset_voltage"
	ChannelRMSCurrent      = "rms_current"
	ChannelDCOffsetCurrent = "dc_offset_current"
	ChannelRealPower       = "real_power"
	ChannelApparentPower   = "apparent_power"
	ChannelReactivePower   = "reactive_power"
	ChannelPowerFactor     = "power_factor"
	ChannelActivePower     = "active_power"
)

// Channels lists every channel name, in export order.
var Channels = []string{
	ChannelRMSVoltage,
	ChannelDCOffsetVoltage,
	ChannelRMSCurrent,
	ChannelDCOffsetCurrent,
	ChannelRealPower,
	ChannelApparentPower,
	ChannelReactivePower,
	ChannelPowerFactor,
	ChannelActivePower,
}

// PhaseReading is one validated measurement of a single phase: all
// nine channels present. Validation happens upstream (the dispatch
// loop); this package aggregates whatever it is given.
type PhaseReading struct {
	RMSVoltage      float64
	DCOffsetVoltage float64
	RMSCurrent      float64
	DCOffsetCurrent float64
	RealPower       float64
	ApparentPower   float64
	ReactivePower   float64
	PowerFactor     float64
}

// TwoPhaseReading is a validated two-phase calculation entry: both
// phases present.
type TwoPhaseReading struct {
	PhaseA PhaseReading
	PhaseB PhaseReading
}

// ChannelSet holds one sliding-window bucket per channel for a single
// (stream, phase).
type ChannelSet struct {
	buckets map[string]*window.Bucket
}

// NewChannelSet creates a channel set whose buckets hold capacity
// samples each.
func NewChannelSet(capacity int) *ChannelSet {
	buckets := make(map[string]*window.Bucket, len(Channels))
	for _, ch := range Channels {
		buckets[ch] = window.NewBucket(capacity)
	}
	return &ChannelSet{buckets: buckets}
}

// Apply pushes each channel of the reading into its bucket. Active
// power receives the real power value.
func (c *ChannelSet) Apply(r PhaseReading) {
	c.buckets[ChannelRMSVoltage].Push(r.RMSVoltage)
	c.buckets[ChannelDCOffsetVoltage].Push(r.DCOffsetVoltage)
	c.buckets[ChannelRMSCurrent].Push(r.RMSCurrent)
	c.buckets[ChannelDCOffsetCurrent].Push(r.DCOffsetCurrent)
	c.buckets[ChannelRealPower].Push(r.RealPower)
	c.buckets[ChannelApparentPower].Push(r.ApparentPower)
	c.buckets[ChannelReactivePower].Push(r.ReactivePower)
	c.buckets[ChannelPowerFactor].Push(r.PowerFactor)
	c.buckets[ChannelActivePower].Push(r.RealPower)
}

// ChannelSnapshot maps channel name to its reducer outputs.
type ChannelSnapshot map[string]window.Snapshot

// Snapshot reduces every channel bucket.
func (c *ChannelSet) Snapshot() ChannelSnapshot {
	snap := make(ChannelSnapshot, len(c.buckets))
	for name, b := range c.buckets {
		snap[name] = b.Snapshot()
	}
	return snap
}

// bucket returns the named channel bucket, for tests.
func (c *ChannelSet) bucket(name string) *window.Bucket {
	return c.buckets[name]
}
