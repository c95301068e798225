package zseq

import (
	"testing"

	"github.com/pinebranch/brrengine/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTestPlaylist lays out a minimal payload-shaped buffer: a one-byte
// varint giving the initial cursor offset, a one-entry pattern table, the
// playlist body, then the pattern's own bytes.
func buildTestPlaylist(body, pattern0 []byte) *Payload {
	bodyStart := 3 // varint byte + 2-byte pattern table entry
	patternStart := bodyStart + len(body)

	raw := make([]byte, patternStart+len(pattern0))
	raw[0] = byte(bodyStart)
	raw[1] = byte(patternStart)
	raw[2] = byte(patternStart >> 8)
	copy(raw[bodyStart:], body)
	copy(raw[patternStart:], pattern0)

	return &Payload{raw: raw}
}

// Pattern 0 = [F0, 01, FF] (delay 1, return), preceded by a REPEAT n=2: the
// "counter = n - 1" state machine rewinds to the pattern reference twice
// (once on the initializing encounter, once on the single counter > 0
// encounter) before the third REPEAT encounter resets and falls through to
// STOP. That yields exactly three plays (three rest callbacks) across four
// Advance calls, matching the (false, false, false, true) shape.
func TestAdvance_RepeatScenario(t *testing.T) {
	payload := buildTestPlaylist(
		[]byte{0x00, 0xb0, 0x02, 0xff},
		[]byte{0xf0, 0x01, 0xff},
	)

	var rests []uint16
	rest := func(ticks uint16) { rests = append(rests, ticks) }

	pl, st := newPlaylist(payload, 0, rest, func(*Playlist) (bool, status.Status) {
		t.Fatal("dispatch should not be called; pattern only uses shared events")
		return true, status.Ok()
	})
	require.True(t, st.IsOK())

	var results []bool
	for i := 0; i < 4; i++ {
		done, st := pl.Advance()
		require.True(t, st.IsOK())
		results = append(results, done)
	}

	assert.Equal(t, []bool{false, false, false, true}, results)
	assert.Equal(t, []uint16{1, 1, 1}, rests)
}

func TestAdvance_PreconditionViolationAfterCompletion(t *testing.T) {
	payload := buildTestPlaylist([]byte{0xff}, nil)
	pl, st := newPlaylist(payload, 0, func(uint16) {}, func(*Playlist) (bool, status.Status) {
		return true, status.Ok()
	})
	require.True(t, st.IsOK())

	done, st := pl.Advance()
	require.True(t, st.IsOK())
	require.True(t, done)

	_, st = pl.Advance()
	assert.False(t, st.IsOK())
}

func TestAdvance_Jump(t *testing.T) {
	// JUMP (offsets are relative to the playlist base, i.e. absolute
	// position 0, not the body's start) past two junk bytes straight to STOP.
	body := []byte{0xb1, 0x07, 0x11, 0x11, 0xff}
	payload := buildTestPlaylist(body, nil)
	pl, st := newPlaylist(payload, 0, func(uint16) {}, func(*Playlist) (bool, status.Status) {
		return true, status.Ok()
	})
	require.True(t, st.IsOK())

	done, st := pl.Advance()
	require.True(t, st.IsOK())
	assert.True(t, done)
}
