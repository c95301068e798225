package zseq

import "github.com/pinebranch/brrengine/status"

const (
	noteSetNoteRange = 0xe1

	noteCodeMask = 0x1f
	artcTypeMask = 0xe0
	artcTypeShift = 5

	defaultVelocity = 1.0
)

// NoteCallbacks receives the events of a Note playlist: Rest for a DELAY
// tick count, Articulate whenever a note is sounded with its pitch offset,
// velocity (0-1), hold duration and total duration (both in ticks).
type NoteCallbacks struct {
	Rest       func(ticks uint16)
	Articulate func(noteOffset int16, velocity float64, holdDuration, totalDuration uint16)
}

// NotePlaylist drives a channel's note/articulation stream. Its persistent
// state (note range, velocity, hold/total duration) carries across
// articulations: each articulation mode updates only the subset of this
// state its encoding specifies, leaving the rest at its last value.
type NotePlaylist struct {
	pl *Playlist

	noteRange     int16
	velocity      float64
	holdDuration  uint16
	totalDuration uint16

	callbacks NoteCallbacks
}

// NewNotePlaylist builds a Note playlist rooted at offset within payload.
func NewNotePlaylist(payload *Payload, offset uint16, callbacks NoteCallbacks) status.Result[*NotePlaylist] {
	np := &NotePlaylist{
		velocity:  defaultVelocity,
		callbacks: callbacks,
	}
	pl, st := newPlaylist(payload, offset, callbacks.Rest, np.dispatch)
	if !st.IsOK() {
		return status.Err[*NotePlaylist](st)
	}
	np.pl = pl
	return status.From(np)
}

// Advance processes the next event, returning true once the playlist has
// stopped.
func (np *NotePlaylist) Advance() (bool, status.Status) { return np.pl.Advance() }

// Close releases this playlist's reference on its payload.
func (np *NotePlaylist) Close() { np.pl.Close() }

func (np *NotePlaylist) dispatch(pl *Playlist) (bool, status.Status) {
	event, st := pl.u8()
	if !st.IsOK() {
		return false, st
	}

	if event == noteSetNoteRange {
		b, st := pl.u8()
		if !st.IsOK() {
			return false, st
		}
		np.noteRange = int16(int8(b)) << 5
		return false, status.Ok()
	}

	noteCode := int16(event & noteCodeMask)
	artcType := (event & artcTypeMask) >> artcTypeShift

	if artcType > 5 {
		return false, status.FormatMismatchf("articulation type out of range: %d > 5", artcType)
	}

	switch artcType {
	case 0: // velocity, duration and hold all change
		vb, st := pl.u8()
		if !st.IsOK() {
			return false, st
		}
		np.velocity = float64(vb) / 255.0
		total, st := pl.varint()
		if !st.IsOK() {
			return false, st
		}
		np.totalDuration = total
		hold, st := pl.takeUBytePercentage(total)
		if !st.IsOK() {
			return false, st
		}
		np.holdDuration = hold
	case 1: // velocity and duration change, hold goes to 100%
		vb, st := pl.u8()
		if !st.IsOK() {
			return false, st
		}
		np.velocity = float64(vb) / 255.0
		total, st := pl.varint()
		if !st.IsOK() {
			return false, st
		}
		np.totalDuration = total
		np.holdDuration = total
	case 2: // only velocity changes
		vb, st := pl.u8()
		if !st.IsOK() {
			return false, st
		}
		np.velocity = float64(vb) / 255.0
	case 3: // duration and hold change, velocity unchanged
		total, st := pl.varint()
		if !st.IsOK() {
			return false, st
		}
		np.totalDuration = total
		hold, st := pl.takeUBytePercentage(total)
		if !st.IsOK() {
			return false, st
		}
		np.holdDuration = hold
	case 4: // duration changes, hold goes to 100%, velocity unchanged
		total, st := pl.varint()
		if !st.IsOK() {
			return false, st
		}
		np.totalDuration = total
		np.holdDuration = total
	case 5: // nothing changes
	}

	np.callbacks.Articulate(np.noteRange+noteCode, np.velocity, np.holdDuration, np.totalDuration)
	return true, status.Ok()
}
