package wire

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers for the frame envelope. These mirror the published
// schema and must not change.
const (
	frameFieldEntries = 1

	entryFieldName         = 1
	entryFieldCalculations = 2

	twoPhaseFieldPhaseA = 1
	twoPhaseFieldPhaseB = 2

	phaseFieldProvenance      = 1
	phaseFieldVoltageWaveform = 2
	phaseFieldCurrentWaveform = 3
	phaseFieldPower           = 4

	waveformFieldRMS      = 1
	waveformFieldDCOffset = 2

	powerFieldReal        = 1
	powerFieldApparent    = 2
	powerFieldReactive    = 3
	powerFieldPowerFactor = 4

	provenanceFieldUTCTime  = 1
	provenanceFieldSequence = 2

	timestampFieldSeconds = 1
	timestampFieldNanos   = 2
)

// Marshal encodes the frame as protobuf bytes.
func Marshal(f *Frame) []byte {
	var buf []byte
	for i := range f.Entries {
		buf = appendMessage(buf, frameFieldEntries, marshalEntry(&f.Entries[i]))
	}
	return buf
}

// Unmarshal decodes protobuf bytes into a frame. Unknown fields and
// unrecognized calculation products are skipped, not rejected.
func Unmarshal(data []byte) (*Frame, error) {
	f := &Frame{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, val []byte) error {
		if num == frameFieldEntries && typ == protowire.BytesType {
			entry, err := unmarshalEntry(val)
			if err != nil {
				return err
			}
			f.Entries = append(f.Entries, *entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}

func marshalEntry(e *Entry) []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, entryFieldName, protowire.BytesType)
	buf = protowire.AppendString(buf, e.Name)
	if e.Calculations != nil {
		buf = appendMessage(buf, entryFieldCalculations, marshalTwoPhase(e.Calculations))
	}
	return buf
}

func unmarshalEntry(data []byte) (*Entry, error) {
	e := &Entry{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, val []byte) error {
		switch {
		case num == entryFieldName && typ == protowire.BytesType:
			e.Name = string(val)
		case num == entryFieldCalculations && typ == protowire.BytesType:
			tp, err := unmarshalTwoPhase(val)
			if err != nil {
				return err
			}
			e.Calculations = tp
		case typ == protowire.BytesType:
			// Another product variant in the oneof. Recognized but
			// not understood; the consumer decides whether to count it.
			e.unknownProduct = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func marshalTwoPhase(tp *TwoPhaseCalculation) []byte {
	var buf []byte
	if tp.PhaseA != nil {
		buf = appendMessage(buf, twoPhaseFieldPhaseA, marshalPhase(tp.PhaseA))
	}
	if tp.PhaseB != nil {
		buf = appendMessage(buf, twoPhaseFieldPhaseB, marshalPhase(tp.PhaseB))
	}
	return buf
}

func unmarshalTwoPhase(data []byte) (*TwoPhaseCalculation, error) {
	tp := &TwoPhaseCalculation{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, val []byte) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case twoPhaseFieldPhaseA, twoPhaseFieldPhaseB:
			p, err := unmarshalPhase(val)
			if err != nil {
				return err
			}
			if num == twoPhaseFieldPhaseA {
				tp.PhaseA = p
			} else {
				tp.PhaseB = p
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tp, nil
}

func marshalPhase(p *PhaseCalculation) []byte {
	var buf []byte
	if p.Provenance != nil {
		buf = appendMessage(buf, phaseFieldProvenance, marshalProvenance(p.Provenance))
	}
	if p.VoltageWaveform != nil {
		buf = appendMessage(buf, phaseFieldVoltageWaveform, marshalWaveform(p.VoltageWaveform))
	}
	if p.CurrentWaveform != nil {
		buf = appendMessage(buf, phaseFieldCurrentWaveform, marshalWaveform(p.CurrentWaveform))
	}
	if p.Power != nil {
		buf = appendMessage(buf, phaseFieldPower, marshalPower(p.Power))
	}
	return buf
}

func unmarshalPhase(data []byte) (*PhaseCalculation, error) {
	p := &PhaseCalculation{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, val []byte) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case phaseFieldProvenance:
			prov, err := unmarshalProvenance(val)
			if err != nil {
				return err
			}
			p.Provenance = prov
		case phaseFieldVoltageWaveform:
			w, err := unmarshalWaveform(val)
			if err != nil {
				return err
			}
			p.VoltageWaveform = w
		case phaseFieldCurrentWaveform:
			w, err := unmarshalWaveform(val)
			if err != nil {
				return err
			}
			p.CurrentWaveform = w
		case phaseFieldPower:
			pw, err := unmarshalPower(val)
			if err != nil {
				return err
			}
			p.Power = pw
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func marshalWaveform(w *WaveformCalculation) []byte {
	var buf []byte
	buf = appendOptFloat(buf, waveformFieldRMS, w.RMS)
	buf = appendOptFloat(buf, waveformFieldDCOffset, w.DCOffset)
	return buf
}

func unmarshalWaveform(data []byte) (*WaveformCalculation, error) {
	w := &WaveformCalculation{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, val []byte) error {
		if typ != protowire.Fixed32Type {
			return nil
		}
		v := consumeFloat(val)
		switch num {
		case waveformFieldRMS:
			w.RMS = &v
		case waveformFieldDCOffset:
			w.DCOffset = &v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

func marshalPower(p *PowerCalculation) []byte {
	var buf []byte
	buf = appendOptFloat(buf, powerFieldReal, p.RealPowerW)
	buf = appendOptFloat(buf, powerFieldApparent, p.ApparentPowerVA)
	buf = appendOptFloat(buf, powerFieldReactive, p.ReactivePowerVAR)
	buf = appendOptFloat(buf, powerFieldPowerFactor, p.PowerFactor)
	return buf
}

func unmarshalPower(data []byte) (*PowerCalculation, error) {
	p := &PowerCalculation{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, val []byte) error {
		if typ != protowire.Fixed32Type {
			return nil
		}
		v := consumeFloat(val)
		switch num {
		case powerFieldReal:
			p.RealPowerW = &v
		case powerFieldApparent:
			p.ApparentPowerVA = &v
		case powerFieldReactive:
			p.ReactivePowerVAR = &v
		case powerFieldPowerFactor:
			p.PowerFactor = &v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func marshalProvenance(p *Provenance) []byte {
	var buf []byte
	if p.UTCTime != nil {
		var ts []byte
		if p.UTCTime.Seconds != 0 {
			ts = protowire.AppendTag(ts, timestampFieldSeconds, protowire.VarintType)
			ts = protowire.AppendVarint(ts, uint64(p.UTCTime.Seconds))
		}
		if p.UTCTime.Nanos != 0 {
			ts = protowire.AppendTag(ts, timestampFieldNanos, protowire.VarintType)
			ts = protowire.AppendVarint(ts, uint64(p.UTCTime.Nanos))
		}
		buf = appendMessage(buf, provenanceFieldUTCTime, ts)
	}
	if p.SequenceNumber != nil {
		buf = protowire.AppendTag(buf, provenanceFieldSequence, protowire.VarintType)
		buf = protowire.AppendVarint(buf, *p.SequenceNumber)
	}
	return buf
}

func unmarshalProvenance(data []byte) (*Provenance, error) {
	p := &Provenance{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, val []byte) error {
		switch {
		case num == provenanceFieldUTCTime && typ == protowire.BytesType:
			ts := &Timestamp{}
			err := walkFields(val, func(num protowire.Number, typ protowire.Type, val []byte) error {
				if typ != protowire.VarintType {
					return nil
				}
				v, n := protowire.ConsumeVarint(val)
				if n < 0 {
					return protowire.ParseError(n)
				}
				switch num {
				case timestampFieldSeconds:
					ts.Seconds = int64(v)
				case timestampFieldNanos:
					ts.Nanos = int32(v)
				}
				return nil
			})
			if err != nil {
				return err
			}
			p.UTCTime = ts
		case num == provenanceFieldSequence && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(val)
			if n < 0 {
				return protowire.ParseError(n)
			}
			p.SequenceNumber = &v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// walkFields iterates the top-level fields of a protobuf message,
// calling fn with each field's number, wire type, and raw value.
// For BytesType the value is the field payload; for scalar types the
// value is the remaining buffer positioned at the field value (fn
// consumes what it needs). Unknown fields are skipped.
func walkFields(data []byte, fn func(num protowire.Number, typ protowire.Type, val []byte) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		var val []byte
		switch typ {
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			val = v
			data = data[n:]
		default:
			val = data
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
		}

		if err := fn(num, typ, val); err != nil {
			return err
		}
	}
	return nil
}

func appendMessage(buf []byte, num protowire.Number, msg []byte) []byte {
	buf = protowire.AppendTag(buf, num, protowire.BytesType)
	return protowire.AppendBytes(buf, msg)
}

func appendOptFloat(buf []byte, num protowire.Number, v *float32) []byte {
	if v == nil {
		return buf
	}
	buf = protowire.AppendTag(buf, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(buf, math.Float32bits(*v))
}

func consumeFloat(data []byte) float32 {
	v, n := protowire.ConsumeFixed32(data)
	if n < 0 {
		return 0
	}
	return math.Float32frombits(v)
}
