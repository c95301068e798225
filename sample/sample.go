// Package sample holds the immutable sample payload: a quarter-frequency
// pyramid of 16-bit mono PCM plus its matching loop bounds and envelope.
package sample

import (
	"math"

	"github.com/pinebranch/brrengine/pcmfmt"
	"github.com/pinebranch/brrengine/status"
)

// PyramidLevels is the number of layers built when pyramiding is requested:
// the source plus three quarter-frequency reductions, letting a voice step
// no more than 4 source samples per output frame across 8 octaves of
// pitch-up.
const PyramidLevels = 4

// Sample is an immutable container for a pyramid of 16-bit mono PCM.
type Sample struct {
	pyramid      [][]int16
	format       pcmfmt.Format
	byteUsage    uint64
}

// New builds a Sample from source PCM. With buildPyramid, three additional
// quarter-frequency layers are derived; without it the pyramid has a single
// layer (layer 0, the source itself).
func New(source []int16, samplingRate uint32, buildPyramid bool) *Sample {
	var pyramid [][]int16
	if buildPyramid {
		pyramid = make([][]int16, PyramidLevels)
		pyramid[0] = source
		for k := 1; k < PyramidLevels; k++ {
			pyramid[k] = quarterReduce(pyramid[k-1])
		}
	} else {
		pyramid = [][]int16{source}
	}

	var byteUsage uint64
	for _, layer := range pyramid {
		byteUsage += uint64(len(layer)) * 2
	}

	return &Sample{
		pyramid:   pyramid,
		format:    pcmfmt.Format{SampleFormat: pcmfmt.Int16, Layout: pcmfmt.Mono, SamplingRate: samplingRate},
		byteUsage: byteUsage,
	}
}

// Levels returns the number of pyramid layers this sample was built with.
func (s *Sample) Levels() int { return len(s.pyramid) }

// Layer returns the PCM for pyramid layer k.
func (s *Sample) Layer(k int) []int16 { return s.pyramid[k] }

// Format is always {INT16, MONO, samplingRate}.
func (s *Sample) Format() pcmfmt.Format { return s.format }

// ByteUsage is the cached total byte size across all pyramid layers, read by
// the resource pool accountant.
func (s *Sample) ByteUsage() uint64 { return s.byteUsage }

// quarterReduce produces one quarter-frequency layer: every 4 source samples
// average (round-half-away-from-zero) into one output sample; a trailing
// partial group of fewer than 4 samples averages over its actual count.
func quarterReduce(src []int16) []int16 {
	n := (len(src) + 3) / 4
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		start := i * 4
		end := start + 4
		if end > len(src) {
			end = len(src)
		}
		var sum int64
		for _, v := range src[start:end] {
			sum += int64(v)
		}
		out[i] = roundHalfAwayFromZero(float64(sum) / float64(end-start))
	}
	return out
}

func roundHalfAwayFromZero(v float64) int16 {
	if v >= 0 {
		return int16(math.Floor(v + 0.5))
	}
	return int16(math.Ceil(v - 0.5))
}

// Build runs the full §4.2 construction sequence: validate the loop against
// the source length, build the pyramid (or not), and convert the envelope
// from seconds to samples, all against samplingRate.
func Build(source []int16, samplingRate uint32, buildPyramid bool, envelope ADSRSeconds, loop LoopSpec) (*Sample, LoopInfo, ADSRSamples, status.Status) {
	levels := 1
	if buildPyramid {
		levels = PyramidLevels
	}

	loopInfo, st := NewLoopInfo(loop.Mode, loop.Begin, loop.Length, len(source), levels)
	if !st.IsOK() {
		return nil, LoopInfo{}, ADSRSamples{}, st
	}

	s := New(source, samplingRate, buildPyramid)
	return s, loopInfo, envelope.ToSamples(samplingRate), status.Ok()
}
