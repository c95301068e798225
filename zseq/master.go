package zseq

import "github.com/pinebranch/brrengine/status"

const (
	masterSetVolume = 0x41
	masterSetPan    = 0x42
	masterSetPitch  = 0x45
	masterSetTempo  = 0x21
)

// MasterCallbacks receives the events of the Master playlist: tempo and the
// song-wide volume/pan/pitch ramps layered on top of every channel.
type MasterCallbacks struct {
	Rest       func(ticks uint16)
	Volume     func(volume float64, duration uint16)
	Pan        func(pan float64, duration uint16)
	PitchShift func(semitones float64, duration uint16)
	Tempo      func(tempo uint8, duration uint16)
}

// MasterPlaylist drives the sequence-wide tempo/volume/pan/pitch stream.
type MasterPlaylist struct {
	pl        *Playlist
	callbacks MasterCallbacks
}

// NewMasterPlaylist builds the Master playlist rooted at offset within
// payload.
func NewMasterPlaylist(payload *Payload, offset uint16, callbacks MasterCallbacks) status.Result[*MasterPlaylist] {
	mp := &MasterPlaylist{callbacks: callbacks}
	pl, st := newPlaylist(payload, offset, callbacks.Rest, mp.dispatch)
	if !st.IsOK() {
		return status.Err[*MasterPlaylist](st)
	}
	mp.pl = pl
	return status.From(mp)
}

// Advance processes the next event, returning true once the playlist has
// stopped.
func (mp *MasterPlaylist) Advance() (bool, status.Status) { return mp.pl.Advance() }

// Close releases this playlist's reference on its payload.
func (mp *MasterPlaylist) Close() { mp.pl.Close() }

func (mp *MasterPlaylist) dispatch(pl *Playlist) (bool, status.Status) {
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
	case masterSetVolume:
		v, st := pl.u8()
		if !st.IsOK() {
			return false, st
		}
		duration, st := readTail()
		if !st.IsOK() {
			return false, st
		}
		mp.callbacks.Volume(float64(v)/255.0, duration)
	case masterSetPan:
		v, st := pl.u8()
		if !st.IsOK() {
			return false, st
		}
		duration, st := readTail()
		if !st.IsOK() {
			return false, st
		}
		mp.callbacks.Pan(float64(int8(v))/128.0, duration)
	case masterSetPitch:
		v, st := pl.u16le()
		if !st.IsOK() {
			return false, st
		}
		duration, st := readTail()
		if !st.IsOK() {
			return false, st
		}
		mp.callbacks.PitchShift(float64(int16(v))/64.0, duration)
	case masterSetTempo:
		v, st := pl.u8()
		if !st.IsOK() {
			return false, st
		}
		duration, st := readTail()
		if !st.IsOK() {
			return false, st
		}
		mp.callbacks.Tempo(v, duration)
	default:
		return false, status.FormatMismatchf("unrecognized master pattern event 0x%02x", event)
	}
	return true, status.Ok()
}
