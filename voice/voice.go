// Package voice implements the sampler voice: a stateful DSP unit that
// converts sample data plus playback parameters into stereo int16 output
// through window-area-integrating resampling, a quarter-frequency pyramid
// for extreme pitch shifts, and ADSR envelope shaping.
package voice

import (
	"math"

	"github.com/pinebranch/brrengine/pcmfmt"
	"github.com/pinebranch/brrengine/sample"
	"github.com/pinebranch/brrengine/status"
)

func pcmFormat(samplingRate uint32) pcmfmt.Format {
	return pcmfmt.Format{SampleFormat: pcmfmt.Int16, Layout: pcmfmt.Mono, SamplingRate: samplingRate}
}

// Phase is the voice's lifecycle state.
type Phase int

const (
	Stopped Phase = iota
	Paused
	Playing
)

// portamento controls the per-sample glide applied when the target playback
// rate changes; smaller is slower to catch up.
const portamento = 0.02

// rateSmoothUnset is the sentinel that forces the first Provide call after a
// Play to snap rate_smooth exactly to the target rate instead of gliding
// from a stale value.
const rateSmoothUnset = -1.0

// Parameters are externally owned and read by the voice during Provide.
// Writes to fields go through the voice's Set* methods so invalid writes can
// be validated and reported via Status without corrupting prior state.
type Parameters struct {
	Pan                   float64
	PitchShiftSemitones   float64
	Volume                float64
	VibratoRangeSemitones float64
}

// Voice is a single sampler channel. All methods require external
// serialization — a voice may be touched by exactly one goroutine at a time
// (spec's concurrency model treats this as the audio-synchronous path).
type Voice struct {
	samplingRate uint32
	oscillator   Oscillator

	phase Phase

	sample          *sample.Sample
	sampleArmed     bool
	parameters      *Parameters
	convertedLoop   sample.LoopInfo
	convertedEnv    sample.ADSRSamples

	defaultLoop sample.LoopInfo
	defaultEnv  sample.ADSRSamples

	position    float64
	elapsed     uint32
	releasedAt  uint32
	releasing   bool
	releaseFrom float64

	playbackPitchShift float64
	playbackVolume     float64
	rateSmooth         float64

	lastStatus status.Status
}

// New constructs a stopped voice bound to samplingRate, with sample-rate
// dependent defaults for loop (one-shot, empty) and envelope ({0,0,1,0}).
func New(samplingRate uint32, oscillator Oscillator) *Voice {
	defaultLoop, _ := sample.NewLoopInfo(sample.OneShot, 0, 0, 0, 1)
	return &Voice{
		samplingRate:  samplingRate,
		oscillator:    oscillator,
		phase:         Stopped,
		convertedLoop: defaultLoop,
		convertedEnv:  sample.DefaultEnvelopeSeconds.ToSamples(samplingRate),
		defaultLoop:   defaultLoop,
		defaultEnv:    sample.DefaultEnvelopeSeconds.ToSamples(samplingRate),
		rateSmooth:    rateSmoothUnset,
	}
}

// Phase reports the voice's current lifecycle state.
func (vo *Voice) Phase() Phase { return vo.phase }

// Status exposes the most recent parameter-write error, if any. The sticky
// error never blocks subsequent correct operations.
func (vo *Voice) Status() status.Status { return vo.lastStatus }

func (vo *Voice) requireStopped(op string) {
	if vo.phase != Stopped {
		panic("voice: " + op + " requires phase stopped")
	}
}

// ArmSample arms s, or arms silence if s is nil. s must be {INT16, MONO,
// samplingRate} or this is a precondition violation (abort), per the base
// arm contract.
func (vo *Voice) ArmSample(s *sample.Sample) {
	vo.requireStopped("arm_sample")
	if s != nil {
		f := s.Format()
		want := pcmFormat(vo.samplingRate)
		if !f.Equal(want) {
			panic("voice: arm_sample format mismatch: got " + f.String() + ", want " + want.String())
		}
	}
	vo.sample = s
	vo.sampleArmed = true
	vo.syncLoopLevels()
}

// ArmParameters binds the externally-owned Parameters p, mandatory before
// Play.
func (vo *Voice) ArmParameters(p *Parameters) {
	vo.requireStopped("arm_parameters")
	vo.parameters = p
}

// ArmLoop arms loop, or resolves to the sampling-rate-dependent default when
// loop is nil.
func (vo *Voice) ArmLoop(loop *sample.LoopInfo) {
	vo.requireStopped("arm_loop")
	if loop == nil {
		vo.convertedLoop = vo.defaultLoop
	} else {
		vo.convertedLoop = *loop
	}
	vo.syncLoopLevels()
}

// ArmEnvelope arms env (converted to sample units), or resolves to the
// default when env is nil.
func (vo *Voice) ArmEnvelope(env *sample.ADSRSeconds) {
	vo.requireStopped("arm_envelope")
	if env == nil {
		vo.convertedEnv = vo.defaultEnv
	} else {
		vo.convertedEnv = env.ToSamples(vo.samplingRate)
	}
}

// syncLoopLevels expands convertedLoop to match the armed sample's pyramid
// depth, so bounds and pyramid layers always align.
func (vo *Voice) syncLoopLevels() {
	if vo.sample != nil {
		vo.convertedLoop = vo.convertedLoop.Expand(vo.sample.Levels())
	}
}

// Play starts playback: requires parameters and sample armed (sample may be
// armed with nil, i.e. silence) and phase stopped, capturing pitch_shift and
// volume for this note. From paused, Play resumes without recapturing —
// the base arm contract's "phase stopped" precondition is relaxed here, not
// enforced with a panic, since the source's own paused-resume branch is
// otherwise provably dead code (see DESIGN.md open-question decision).
func (vo *Voice) Play(semitones, volume float64) status.Status {
	if vo.phase == Paused {
		vo.phase = Playing
		return status.Ok()
	}
	if vo.phase != Stopped {
		panic("voice: play requires phase stopped or paused")
	}
	if vo.parameters == nil {
		panic("voice: play requires parameters armed")
	}
	if !vo.sampleArmed {
		panic("voice: play requires sample armed")
	}

	vo.playbackPitchShift = semitones
	vo.playbackVolume = volume
	vo.phase = Playing
	return status.Ok()
}

// Pause transitions playing to paused; otherwise a no-op.
func (vo *Voice) Pause() {
	if vo.phase == Playing {
		vo.phase = Paused
	}
}

// Release starts the release phase from playing, unless already releasing.
func (vo *Voice) Release() {
	if vo.phase == Playing && !vo.releasing {
		vo.releasing = true
		vo.releasedAt = vo.elapsed
	}
}

// Stop unconditionally returns to stopped, zeroing the playback cursor.
func (vo *Voice) Stop() {
	vo.phase = Stopped
	vo.position = 0
	vo.elapsed = 0
	vo.releasedAt = 0
	vo.releasing = false
	vo.releaseFrom = 0
}

// SetPan validates and writes Parameters.Pan. An invalid write is stored as
// this voice's sticky status and leaves the prior value intact.
func (vo *Voice) SetPan(v float64) {
	if math.IsNaN(v) || v < -1.0 || v > 1.0 {
		vo.lastStatus = status.InvalidArgumentf("pan %v outside [-1, 1]", v)
		return
	}
	vo.parameters.Pan = v
}

// SetPitchShift validates and writes Parameters.PitchShiftSemitones.
func (vo *Voice) SetPitchShift(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		vo.lastStatus = status.InvalidArgumentf("pitch shift %v is not finite", v)
		return
	}
	vo.parameters.PitchShiftSemitones = v
}

// SetVolume validates and writes Parameters.Volume.
func (vo *Voice) SetVolume(v float64) {
	if math.IsNaN(v) || v < 0 || v > 1 {
		vo.lastStatus = status.InvalidArgumentf("volume %v outside [0, 1]", v)
		return
	}
	vo.parameters.Volume = v
}

// SetVibratoRange validates and writes Parameters.VibratoRangeSemitones.
func (vo *Voice) SetVibratoRange(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		vo.lastStatus = status.InvalidArgumentf("vibrato range %v is not finite", v)
		return
	}
	vo.parameters.VibratoRangeSemitones = v
}

// Provide generates n stereo frames into dest (len(dest) >= 2n) starting at
// sampleClock, advancing the voice's playback cursor, envelope, and phase.
// When phase != playing on entry, dest is filled with zeros.
func (vo *Voice) Provide(dest []int16, n int, sampleClock uint64) status.Status {
	if len(dest) < 2*n {
		panic("voice: dest too small for n stereo frames")
	}

	if vo.phase != Playing {
		for i := 0; i < 2*n; i++ {
			dest[i] = 0
		}
		return status.Ok()
	}

	params := vo.parameters
	env := vo.convertedEnv
	loop := vo.convertedLoop
	levels := vo.levels()
	layer0Len := float64(vo.layer0Length())

	for i := 0; i < n; i++ {
		clock := sampleClock + uint64(i)
		finalOffset := vo.playbackPitchShift + params.PitchShiftSemitones +
			vo.oscillator.Value(clock)*params.VibratoRangeSemitones

		// Beyond the top pyramid layer there's no data to sample, but the
		// frame still counts: rate-smoothing, the envelope, position/elapsed
		// advancement and the phase transition all still run below, only
		// the window-sampled value itself is gated to silence (no window is
		// integrated).
		beyondTopLayer := finalOffset >= float64(levels)*24

		playbackRate := math.Pow(2, finalOffset/12)
		if vo.rateSmooth == rateSmoothUnset {
			vo.rateSmooth = playbackRate
		} else {
			vo.rateSmooth += (playbackRate - vo.rateSmooth) * (1 - portamento)
		}

		k := int(math.Floor(math.Log2(vo.rateSmooth) / 2))
		if k < 0 {
			k = 0
		}
		if k > levels-1 {
			k = levels - 1
		}
		divisor := math.Pow(4, float64(k))
		posK := vo.position / divisor
		rateK := vo.rateSmooth / divisor
		layerData := vo.layer(k)

		var area float64
		if loop.Mode == sample.Loop && k < len(loop.Levels) {
			lb := loop.Levels[k]
			loopBegin, loopLength := lb.Begin, lb.Length
			loopEnd := loopBegin + loopLength
			windowStart := posK
			if windowStart > loopBegin && loopLength > 0 {
				windowStart = math.Mod(windowStart-loopBegin, loopLength) + loopBegin
			}
			switch {
			case rateK > loopLength:
				area = windowArea(layerData, loopBegin, loopLength)
			case windowStart+rateK > loopEnd:
				overflow := (windowStart + rateK) - loopEnd
				area = windowArea(layerData, windowStart, loopEnd-windowStart) + windowArea(layerData, loopBegin, overflow)
			default:
				area = windowArea(layerData, windowStart, rateK)
			}
		} else if !beyondTopLayer {
			area = windowArea(layerData, posK, rateK)
		}

		windowMean := 0.0
		if rateK != 0 {
			windowMean = area / rateK
		}
		if beyondTopLayer {
			windowMean = 0
		}

		envVal, alive := vo.envelopeValue(env)

		scaled := math.Round(windowMean * envVal)

		vo.position += vo.rateSmooth
		vo.elapsed++

		if !alive {
			vo.phase = Stopped
		} else if loop.Mode != sample.Loop && vo.position >= layer0Len {
			vo.phase = Stopped
		}

		final := clampFloat(scaled*(vo.playbackVolume*params.Volume), -32768, 32767)
		panR := (params.Pan + 1) / 2
		dest[2*i] = int16(math.Round(final * (1 - panR)))
		dest[2*i+1] = int16(math.Round(final * panR))

		if vo.phase != Playing {
			for j := 2 * (i + 1); j < 2*n; j++ {
				dest[j] = 0
			}
			break
		}
	}

	return status.Ok()
}

// envelopeValue computes this frame's envelope value and liveness, updating
// release_from as a side effect in the non-releasing branches (spec §4.3
// step 8).
func (vo *Voice) envelopeValue(env sample.ADSRSamples) (float64, bool) {
	switch {
	case vo.releasing:
		rateOfRelease := env.Sustain / float64(env.Release)
		v := vo.releaseFrom - float64(vo.elapsed-vo.releasedAt)*rateOfRelease
		if v <= 0 {
			return 0, false
		}
		return v, true
	case vo.elapsed < env.Attack:
		v := float64(vo.elapsed) / float64(env.Attack)
		vo.releaseFrom = v
		return v, true
	case vo.elapsed-env.Attack < env.Decay:
		v := 1 - float64(vo.elapsed-env.Attack)/float64(env.Decay)*(1-env.Sustain)
		vo.releaseFrom = v
		return v, true
	default:
		vo.releaseFrom = env.Sustain
		return env.Sustain, true
	}
}

func (vo *Voice) levels() int {
	if vo.sample == nil {
		return 1
	}
	return vo.sample.Levels()
}

func (vo *Voice) layer(k int) []int16 {
	if vo.sample == nil {
		return nil
	}
	return vo.sample.Layer(k)
}

func (vo *Voice) layer0Length() int {
	if vo.sample == nil {
		return 0
	}
	return len(vo.sample.Layer(0))
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
