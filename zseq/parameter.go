package zseq

import "github.com/pinebranch/brrengine/status"

const (
	paramSetVolume       = 0x41
	paramSetPan          = 0x42
	paramSetPitch        = 0x45
	paramAddPitch        = 0x46
	paramSetVibratoRange = 0x54
	paramSetInstrument   = 0x69

	paramDurationMask = 0x7f
	paramDurationFlag = 0x80
)

// ParameterCallbacks receives the events of a Parameter playlist. Every
// setter carries the ticks over which the change should ramp, read from the
// stream only when the event code's high bit is clear.
type ParameterCallbacks struct {
	Rest         func(ticks uint16)
	Volume       func(volume float64, duration uint16)
	Pan          func(pan float64, duration uint16)
	PitchShift   func(semitones float64, duration uint16)
	VibratoRange func(semitones float64, duration uint16)
	Instrument   func(instrument uint8, duration uint16)
}

// ParameterPlaylist drives a channel's volume/pan/pitch/vibrato/instrument
// stream. Pitch shift is tracked persistently (in 64ths of a semitone) so
// that AddPitch events can accumulate relative to the last SetPitch.
type ParameterPlaylist struct {
	pl *Playlist

	pitchShift64th int16

	callbacks ParameterCallbacks
}

// NewParameterPlaylist builds a Parameter playlist rooted at offset within
// payload.
func NewParameterPlaylist(payload *Payload, offset uint16, callbacks ParameterCallbacks) status.Result[*ParameterPlaylist] {
	pp := &ParameterPlaylist{callbacks: callbacks}
	pl, st := newPlaylist(payload, offset, callbacks.Rest, pp.dispatch)
	if !st.IsOK() {
		return status.Err[*ParameterPlaylist](st)
	}
	pp.pl = pl
	return status.From(pp)
}

// Advance processes the next event, returning true once the playlist has
// stopped.
func (pp *ParameterPlaylist) Advance() (bool, status.Status) { return pp.pl.Advance() }

// Close releases this playlist's reference on its payload.
func (pp *ParameterPlaylist) Close() { pp.pl.Close() }

func (pp *ParameterPlaylist) dispatch(pl *Playlist) (bool, status.Status) {
	event, st := pl.u8()
	if !st.IsOK() {
		return false, st
	}
	readDuration := event&paramDurationFlag == 0
	event &= paramDurationMask

	readTail := func() (uint16, status.Status) {
		if !readDuration {
			return 0, status.Ok()
		}
		return pl.varint()
	}

	switch event {
	case paramSetVolume:
		v, st := pl.u8()
		if !st.IsOK() {
			return false, st
		}
		duration, st := readTail()
		if !st.IsOK() {
			return false, st
		}
		pp.callbacks.Volume(float64(v)/255.0, duration)
	case paramSetPan:
		v, st := pl.u8()
		if !st.IsOK() {
			return false, st
		}
		duration, st := readTail()
		if !st.IsOK() {
			return false, st
		}
		pp.callbacks.Pan(float64(int8(v))/128.0, duration)
	case paramSetPitch:
		v, st := pl.u16le()
		if !st.IsOK() {
			return false, st
		}
		duration, st := readTail()
		if !st.IsOK() {
			return false, st
		}
		pp.pitchShift64th = int16(v)
		pp.callbacks.PitchShift(float64(pp.pitchShift64th)/64.0, duration)
	case paramAddPitch:
		v, st := pl.u8()
		if !st.IsOK() {
			return false, st
		}
		duration, st := readTail()
		if !st.IsOK() {
			return false, st
		}
		pp.pitchShift64th += int16(int8(v))
		pp.callbacks.PitchShift(float64(pp.pitchShift64th)/64.0, duration)
	case paramSetVibratoRange:
		v, st := pl.u8()
		if !st.IsOK() {
			return false, st
		}
		duration, st := readTail()
		if !st.IsOK() {
			return false, st
		}
		pp.callbacks.VibratoRange(float64(v)/16.0, duration)
	case paramSetInstrument:
		v, st := pl.u8()
		if !st.IsOK() {
			return false, st
		}
		duration, st := readTail()
		if !st.IsOK() {
			return false, st
		}
		pp.callbacks.Instrument(v, duration)
	default:
		return false, status.FormatMismatchf("unrecognized parameter pattern event 0x%02x", event)
	}
	return true, status.Ok()
}
