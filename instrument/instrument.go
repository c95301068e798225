// Package instrument holds the instrument payload: an ordered, pitch-keyed
// list of splits, each pointing at a sample resource with an optional
// loop/envelope override.
package instrument

import (
	"encoding/binary"
	"io"
	"sort"

	"github.com/pinebranch/brrengine/sample"
	"github.com/pinebranch/brrengine/status"
)

const (
	tlgrTag = 0x52474C54 // "TLGR" read little-endian
	instTag = 0x54534E49 // "INST" read little-endian

	loopFlag     = 1 << 0
	envelopeFlag = 1 << 1
)

// Characteristic is a split's optional loop/envelope override.
type Characteristic struct {
	Envelope sample.ADSRSeconds
	Loop     sample.LoopSpec
}

// Split is one pitch-keyed entry in an instrument.
type Split struct {
	SampleID       uint64
	BaseOffset     int16
	Characteristic *Characteristic // nil when the split carries no override
}

// Instrument is an immutable ordered list of splits, strictly ascending by
// BaseOffset.
type Instrument struct {
	splits []Split
}

// Splits returns the instrument's splits in ascending BaseOffset order.
func (inst *Instrument) Splits() []Split { return inst.splits }

// Characteristics returns the split chosen by the greatest BaseOffset that
// is <= semitones, falling back to the lowest (first) split when semitones
// is below every split's offset.
func (inst *Instrument) Characteristics(semitones int16) Split {
	idx := sort.Search(len(inst.splits), func(i int) bool {
		return inst.splits[i].BaseOffset > semitones
	})
	if idx == 0 {
		return inst.splits[0]
	}
	return inst.splits[idx-1]
}

// SampleID resolves the stored resource id at the given split index.
func (inst *Instrument) SampleID(index int) uint64 {
	return inst.splits[index].SampleID
}

// Deserialize parses the "TLGR"/"INST" binary format from §6: a header,
// n_splits SplitHeaders each optionally followed by a loop and/or envelope
// block, splits required to be strictly ascending by base offset.
func Deserialize(r io.Reader) status.Result[*Instrument] {
	var header struct {
		Tlgr   uint32
		Inst   uint32
		Splits uint8
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return status.Err[*Instrument](status.IOErrorf("reading INST header: %v", err))
	}
	if header.Tlgr != tlgrTag {
		return status.Err[*Instrument](status.FormatMismatchf("INST header missing TLGR tag"))
	}
	if header.Inst != instTag {
		return status.Err[*Instrument](status.FormatMismatchf("INST header missing INST tag"))
	}
	if header.Splits == 0 {
		return status.Err[*Instrument](status.FormatMismatchf("INST # splits must be > 0"))
	}

	splits := make([]Split, 0, header.Splits)
	var lastOffset int16
	haveLast := false

	for i := 0; i < int(header.Splits); i++ {
		var sh struct {
			ResID      uint64
			BaseOffset int16
			Mode       uint8
		}
		if err := binary.Read(r, binary.LittleEndian, &sh); err != nil {
			return status.Err[*Instrument](status.IOErrorf("reading INST split %d: %v", i, err))
		}
		if haveLast && sh.BaseOffset <= lastOffset {
			return status.Err[*Instrument](status.FormatMismatchf("INST split pitch offsets must be strictly ascending"))
		}
		lastOffset = sh.BaseOffset
		haveLast = true

		split := Split{SampleID: sh.ResID, BaseOffset: sh.BaseOffset}

		if sh.Mode&(loopFlag|envelopeFlag) != 0 {
			ch := &Characteristic{
				Envelope: sample.DefaultEnvelopeSeconds,
				Loop:     sample.DefaultLoopSpec,
			}

			if sh.Mode&loopFlag != 0 {
				var loop struct {
					Begin uint32
					End   uint32
				}
				if err := binary.Read(r, binary.LittleEndian, &loop); err != nil {
					return status.Err[*Instrument](status.IOErrorf("reading INST loop block: %v", err))
				}
				if loop.Begin > loop.End {
					return status.Err[*Instrument](status.FormatMismatchf("INST loop begin exceeds end"))
				}
				ch.Loop = sample.LoopSpec{
					Mode:   sample.Loop,
					Begin:  float64(loop.Begin),
					Length: float64(loop.End - loop.Begin),
				}
			}

			if sh.Mode&envelopeFlag != 0 {
				var env struct {
					AttackMs  uint16
					DecayMs   uint16
					Sustain255 uint8
					ReleaseMs uint16
				}
				if err := binary.Read(r, binary.LittleEndian, &env); err != nil {
					return status.Err[*Instrument](status.IOErrorf("reading INST envelope block: %v", err))
				}
				ch.Envelope = sample.ADSRSeconds{
					Attack:  float64(env.AttackMs) / 1000.0,
					Decay:   float64(env.DecayMs) / 1000.0,
					Sustain: float64(env.Sustain255) / 255.0,
					Release: float64(env.ReleaseMs) / 1000.0,
				}
			}

			split.Characteristic = ch
		}

		splits = append(splits, split)
	}

	return status.From(&Instrument{splits: splits})
}
