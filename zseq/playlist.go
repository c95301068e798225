package zseq

import "github.com/pinebranch/brrengine/status"

const (
	evDelay  = 0xf0
	evReturn = 0xff

	plJump   = 0xb1
	plCoda   = 0xb2
	plRepeat = 0xb0
	plStop   = 0xff

	repeatUninitialized = 255

	maxNonCallbackBytes = 4
)

// dispatch handles one kind-specific pattern event at cursor. It must not be
// called when the cursor points at a shared event (delay/return). It returns
// true once it has consumed a full event (an articulation or parameter
// change), false if it only consumed a state-setting byte sequence (e.g.
// Note's SET_NOTE_RANGE) and the pattern should keep reading.
type dispatch func(p *Playlist) (bool, status.Status)

// Playlist is the shared stack-of-interpreters cursor shared by the Note,
// Parameter and Master specializations: outer playlist control flow (pattern
// references, JUMP, CODA, REPEAT, STOP) plus the pattern-local DELAY/RETURN
// events common to every kind. Kind-specific pattern events are delegated to
// a dispatch closure supplied by the wrapping type.
type Playlist struct {
	payload *Payload

	playlistBase int
	patternTable int
	cursor       int
	returnTo     int

	inPattern bool
	coda      bool
	repeat    uint8
	completed bool

	rest func(ticks uint16)

	dispatch dispatch
	st       status.Status
}

// newPlaylist constructs a shared playlist cursor rooted at offset within
// payload. The leading varint at offset encodes the starting cursor position
// as an offset from offset itself (not from the byte following the varint);
// the pattern offset table immediately follows the varint.
func newPlaylist(payload *Payload, offset uint16, rest func(uint16), d dispatch) (*Playlist, status.Status) {
	r := &reader{data: payload.raw, pos: int(offset)}
	target, st := r.varint()
	if !st.IsOK() {
		return nil, st
	}

	payload.Ref()
	return &Playlist{
		payload:      payload,
		playlistBase: int(offset),
		patternTable: r.pos,
		cursor:       int(offset) + int(target),
		returnTo:     0,
		repeat:       repeatUninitialized,
		rest:         rest,
		dispatch:     d,
		st:           status.Ok(),
	}, status.Ok()
}

// Close releases this playlist's reference on its payload. Every playlist
// must be closed exactly once.
func (p *Playlist) Close() { p.payload.Unref() }

// Completed reports whether the playlist has reached a STOP event.
func (p *Playlist) Completed() bool { return p.completed }

func (p *Playlist) patternOffset(pattern uint8) int {
	off := int(p.payload.raw[p.patternTable+2*int(pattern)]) |
		int(p.payload.raw[p.patternTable+2*int(pattern)+1])<<8
	return p.playlistBase + off
}

func (p *Playlist) u8() (uint8, status.Status) {
	if p.cursor+1 > len(p.payload.raw) {
		return 0, status.OutOfBoundsf("zseq playlist read past end at %d", p.cursor)
	}
	v := p.payload.raw[p.cursor]
	p.cursor++
	return v, status.Ok()
}

func (p *Playlist) u16le() (uint16, status.Status) {
	if p.cursor+2 > len(p.payload.raw) {
		return 0, status.OutOfBoundsf("zseq playlist read past end at %d", p.cursor)
	}
	v := uint16(p.payload.raw[p.cursor]) | uint16(p.payload.raw[p.cursor+1])<<8
	p.cursor += 2
	return v, status.Ok()
}

func (p *Playlist) varint() (uint16, status.Status) {
	v, newPos, st := DecodeVarint(p.payload.raw, p.cursor)
	if !st.IsOK() {
		return 0, st
	}
	p.cursor = newPos
	return v, status.Ok()
}

// takeUBytePercentage reads a byte and returns value scaled by byte/255.
func (p *Playlist) takeUBytePercentage(value uint16) (uint16, status.Status) {
	b, st := p.u8()
	if !st.IsOK() {
		return 0, st
	}
	return uint16(float64(value) * (float64(b) / 255.0)), status.Ok()
}

// advanceAnyPatternEvent handles one event at the cursor while inside a
// pattern: DELAY and RETURN are common to every kind, everything else is
// delegated to dispatch. Returns true when the pattern has ended (RETURN).
func (p *Playlist) advanceAnyPatternEvent(codeCount *int) (bool, status.Status) {
	for {
		if p.cursor >= len(p.payload.raw) {
			return false, status.OutOfBoundsf("zseq pattern read past end at %d", p.cursor)
		}
		peek := p.payload.raw[p.cursor]
		*codeCount++

		switch peek {
		case evDelay:
			p.cursor++
			ticks, st := p.varint()
			if !st.IsOK() {
				return false, st
			}
			p.rest(ticks)
			return false, status.Ok()
		case evReturn:
			return true, status.Ok()
		}

		done, st := p.dispatch(p)
		if !st.IsOK() {
			return false, st
		}
		// A fully-consumed event (done) doesn't by itself hand control back
		// to the caller: the pattern keeps reading, bounded by codeCount,
		// until it hits DELAY, RETURN, or the bound. This lets adjacent
		// dispatch events (e.g. a state-setting byte followed immediately
		// by the articulation it sets up) resolve within one Advance call.
		if done && *codeCount >= maxNonCallbackBytes {
			return false, status.Ok()
		}
	}
}

// Advance processes the next event, returning true once the playlist has
// reached a STOP event. Calling Advance again after that is a precondition
// violation.
func (p *Playlist) Advance() (bool, status.Status) {
	if p.completed {
		return false, status.FailedPreconditionf("zseq playlist already completed")
	}

	for codeCount := 0; codeCount < maxNonCallbackBytes; codeCount++ {
		if p.inPattern {
			patternDone, st := p.advanceAnyPatternEvent(&codeCount)
			if !st.IsOK() {
				return false, st
			}
			if !patternDone {
				return false, status.Ok()
			}
			p.cursor = p.returnTo
			p.inPattern = false
		}

		if p.cursor >= len(p.payload.raw) {
			return false, status.OutOfBoundsf("zseq playlist read past end at %d", p.cursor)
		}

		if p.payload.raw[p.cursor]&0x80 == 0 {
			pattern := p.payload.raw[p.cursor]
			p.returnTo = p.cursor + 1
			p.cursor = p.patternOffset(pattern)
			p.inPattern = true
			continue
		}

		event, st := p.u8()
		if !st.IsOK() {
			return false, st
		}
		switch event {
		case plJump:
			offset, st := p.varint()
			if !st.IsOK() {
				return false, st
			}
			p.cursor = p.playlistBase + int(offset)
		case plCoda:
			offset, st := p.varint()
			if !st.IsOK() {
				return false, st
			}
			wasCoda := p.coda
			p.coda = !p.coda
			if wasCoda {
				p.cursor = p.playlistBase + int(offset)
			}
		case plRepeat:
			repeats, st := p.u8()
			if !st.IsOK() {
				return false, st
			}
			switch {
			case p.repeat == repeatUninitialized:
				p.repeat = repeats - 1
				p.cursor -= 3
				if p.cursor < 0 || p.payload.raw[p.cursor]&0x80 != 0 {
					return false, status.FormatMismatchf("repeat preceded by non-pattern event")
				}
			case p.repeat > 0:
				p.repeat--
				p.cursor -= 3
			default:
				p.repeat = repeatUninitialized
			}
		case plStop:
			p.completed = true
			return true, status.Ok()
		default:
			return false, status.FormatMismatchf("unrecognized playlist event 0x%02x", event)
		}
	}
	return false, status.FormatMismatchf("too many non-event sequence codes in a row")
}
