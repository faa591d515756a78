// Package wire defines the decoded form of the calculation frames
// published on the measurement bus, and a protobuf codec for them.
//
// A frame is an ordered sequence of named calculation entries. Each
// entry carries one calculation product; today only the two-phase
// calculation product is understood. Entries carrying other product
// variants decode with a nil Calculations field and are skipped by
// consumers rather than rejected, so new product types can appear on
// the bus without breaking old readers.
//
// All scalar measurement fields are optional on the wire; pointer
// fields model presence so consumers can validate completeness before
// aggregating (a missing required field makes the entry malformed, not
// the process dead).
package wire

// Frame is one decoded bus message: zero or more calculation entries.
type Frame struct {
	Entries []Entry
}

// Entry is a named calculation result within a frame.
type Entry struct {
	// Name identifies the stream the calculation was produced for,
	// e.g. "threephase/feeder-2".
	Name string

	// Calculations is set when the entry carries the two-phase
	// calculation product, nil otherwise.
	Calculations *TwoPhaseCalculation

	// unknownProduct records that the entry carried a product variant
	// this reader does not understand.
	unknownProduct bool
}

// HasUnknownProduct reports whether the entry carried an unrecognized
// calculation product variant.
func (e *Entry) HasUnknownProduct() bool {
	return e.unknownProduct
}

// TwoPhaseCalculation carries the per-phase calculation results for
// both measured phases of one stream.
type TwoPhaseCalculation struct {
	PhaseA *PhaseCalculation
	PhaseB *PhaseCalculation
}

// PhaseCalculation groups the waveform and power statistics computed
// for a single phase.
type PhaseCalculation struct {
	Provenance      *Provenance
	VoltageWaveform *WaveformCalculation
	CurrentWaveform *WaveformCalculation
	Power           *PowerCalculation
}

// WaveformCalculation holds voltage or current waveform statistics.
type WaveformCalculation struct {
	RMS      *float32
	DCOffset *float32
}

// PowerCalculation holds the per-phase power statistics.
type PowerCalculation struct {
	RealPowerW       *float32
	ApparentPowerVA  *float32
	ReactivePowerVAR *float32
	PowerFactor      *float32
}

// Provenance records where and when a calculation was produced.
type Provenance struct {
	UTCTime        *Timestamp
	SequenceNumber *uint64
}

// Timestamp is a protobuf well-known-type timestamp.
type Timestamp struct {
	Seconds int64
	Nanos   int32
}

// Float32 returns a pointer to v. Convenience for building frames.
func Float32(v float32) *float32 { return &v }

// Uint64 returns a pointer to v. Convenience for building frames.
func Uint64(v uint64) *uint64 { return &v }
