package zseq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaster_SetTempoWithDuration(t *testing.T) {
	var gotTempo uint8
	var gotDur uint16
	payload := buildTestPlaylist([]byte{0x00, 0xff}, []byte{0x21, 0x78, 0x05, 0xff})
	cb := MasterCallbacks{
		Rest:   func(uint16) {},
		Volume: func(float64, uint16) {}, Pan: func(float64, uint16) {},
		PitchShift: func(float64, uint16) {},
		Tempo: func(tempo uint8, d uint16) {
			gotTempo = tempo
			gotDur = d
		},
	}
	res := NewMasterPlaylist(payload, 0, cb)
	require.True(t, res.Ok())
	mp, _ := res.Value()

	done, st := mp.Advance()
	require.True(t, st.IsOK())
	assert.True(t, done)
	assert.Equal(t, uint8(0x78), gotTempo)
	assert.Equal(t, uint16(5), gotDur)
}

func TestMaster_SetMasterPitchShift(t *testing.T) {
	var got float64
	// High bit set: no duration follows.
	payload := buildTestPlaylist([]byte{0x00, 0xff}, []byte{0xc5, 0xc0, 0xff, 0xff})
	cb := MasterCallbacks{
		Rest: func(uint16) {}, Volume: func(float64, uint16) {}, Pan: func(float64, uint16) {},
		PitchShift: func(v float64, d uint16) { got = v },
		Tempo:      func(uint8, uint16) {},
	}
	res := NewMasterPlaylist(payload, 0, cb)
	require.True(t, res.Ok())
	mp, _ := res.Value()

	done, st := mp.Advance()
	require.True(t, st.IsOK())
	assert.True(t, done)
	assert.InDelta(t, float64(int16(uint16(0xffc0)))/64.0, got, 1e-9)
}

func TestMaster_UnrecognizedEventIsFormatError(t *testing.T) {
	payload := buildTestPlaylist([]byte{0x00, 0xff}, []byte{0xc9, 0xff})
	cb := MasterCallbacks{
		Rest: func(uint16) {}, Volume: func(float64, uint16) {}, Pan: func(float64, uint16) {},
		PitchShift: func(float64, uint16) {}, Tempo: func(uint8, uint16) {},
	}
	res := NewMasterPlaylist(payload, 0, cb)
	require.True(t, res.Ok())
	mp, _ := res.Value()

	_, st := mp.Advance()
	assert.False(t, st.IsOK())
	assert.Equal(t, "FORMAT_MISMATCH", st.Code().String())
}
