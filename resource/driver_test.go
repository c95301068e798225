package resource

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinebranch/brrengine/instrument"
	"github.com/pinebranch/brrengine/sample"
	"github.com/pinebranch/brrengine/voice"
	"github.com/pinebranch/brrengine/zseq"
)

// playlistRegion lays out one playlist's self-contained region the way
// zseq's own tests do: a leading varint (offset of body from the region's
// own start), a one-entry pattern table, the body, then pattern 0.
func playlistRegion(body, pattern0 []byte) []byte {
	bodyStart := 3
	patternStart := bodyStart + len(body)
	raw := make([]byte, patternStart+len(pattern0))
	raw[0] = byte(bodyStart)
	raw[1] = byte(patternStart)
	raw[2] = byte(patternStart >> 8)
	copy(raw[bodyStart:], body)
	copy(raw[patternStart:], pattern0)
	return raw
}

// buildSingleChannelZSEQ assembles one TLGR/ZSEQ file around one channel
// whose note playlist fires a single mode-2 articulation (note offset 5,
// velocity ~0.5), whose parameter playlist sets volume once, and whose
// master playlist sets tempo once, all then immediately stopping.
func buildSingleChannelZSEQ(t *testing.T) []byte {
	t.Helper()

	noteRegion := playlistRegion([]byte{0x00, 0xff}, []byte{0x45, 0x80, 0xff})
	paramRegion := playlistRegion([]byte{0x00, 0xff}, []byte{0xc1, 0x80, 0xff})
	masterRegion := playlistRegion([]byte{0x00, 0xff}, []byte{0xa1, 0x78, 0xff})

	var buf bytes.Buffer
	buf.WriteByte(0x5a) // sentinel
	buf.WriteByte(1)    // one instrument id
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(7)))
	buf.WriteByte(100) // header start tempo
	buf.WriteByte(1)   // one channel
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(0))) // priority
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(0))) // routing

	masterOffsetIdx := buf.Len()
	buf.WriteByte(0) // master offset placeholder (1-byte varint)

	channelTableIdx := buf.Len()
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(0))) // channel table entry placeholder

	channelBlockOffset := buf.Len()
	buf.WriteByte(0)                                                      // start_instrument index 0
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(0))) // note offset placeholder
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(0))) // param offset placeholder

	noteOffset := buf.Len()
	buf.Write(noteRegion)
	paramOffset := buf.Len()
	buf.Write(paramRegion)
	masterOffset := buf.Len()
	buf.Write(masterRegion)

	require.Less(t, masterOffset, 128, "test layout assumes a one-byte master offset varint")

	body := buf.Bytes()
	body[masterOffsetIdx] = byte(masterOffset)
	binary.LittleEndian.PutUint16(body[channelTableIdx:], uint16(channelBlockOffset))
	binary.LittleEndian.PutUint16(body[channelBlockOffset+1:], uint16(noteOffset))
	binary.LittleEndian.PutUint16(body[channelBlockOffset+3:], uint16(paramOffset))

	var file bytes.Buffer
	file.WriteString("TLGR")
	file.WriteString("ZSEQ")
	require.NoError(t, binary.Write(&file, binary.LittleEndian, uint32(len(body))))
	file.Write(body)
	return file.Bytes()
}

func buildSingleSplitInstrument(t *testing.T, sampleID uint64) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("TLGR")
	buf.WriteString("INST")
	buf.WriteByte(1) // one split
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, sampleID))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, int16(0))) // base offset
	buf.WriteByte(0)                                                      // mode: no loop/envelope override
	return buf.Bytes()
}

func TestDriver_TickArticulatesAndAppliesParameters(t *testing.T) {
	payloadRes := zseq.Deserialize(bytes.NewReader(buildSingleChannelZSEQ(t)))
	require.True(t, payloadRes.Ok())
	payload := payloadRes.Unwrap()

	instRes := instrument.Deserialize(bytes.NewReader(buildSingleSplitInstrument(t, 123)))
	require.True(t, instRes.Ok())

	manager := NewManager()
	require.True(t, manager.Register(7, instRes.Unwrap(), 0, DefaultPool).IsOK())

	samp := sample.New(make([]int16, 64), 8000, false)
	require.True(t, manager.Register(123, samp, samp.ByteUsage(), DefaultPool).IsOK())

	driverRes := NewDriver(payload, manager, func() *voice.Voice {
		return voice.New(8000, voice.Oscillator{})
	})
	require.True(t, driverRes.Ok())
	driver := driverRes.Unwrap()
	defer driver.Close()
	defer payload.Close()

	require.True(t, driver.Tick(1).IsOK())
	require.True(t, driver.Status().IsOK())

	vo := driver.channels[0].voice
	assert.Equal(t, voice.Playing, vo.Phase())
	assert.InDelta(t, float64(0x80)/255.0, driver.channels[0].params.Volume, 1e-9)
	assert.True(t, driver.channels[0].holdPending)
	assert.Equal(t, uint8(0x78), driver.Tempo())
}

func TestDriver_DoneOnceEveryPlaylistStops(t *testing.T) {
	payloadRes := zseq.Deserialize(bytes.NewReader(buildSingleChannelZSEQ(t)))
	require.True(t, payloadRes.Ok())
	payload := payloadRes.Unwrap()

	instRes := instrument.Deserialize(bytes.NewReader(buildSingleSplitInstrument(t, 123)))
	require.True(t, instRes.Ok())

	manager := NewManager()
	require.True(t, manager.Register(7, instRes.Unwrap(), 0, DefaultPool).IsOK())
	samp := sample.New(make([]int16, 64), 8000, false)
	require.True(t, manager.Register(123, samp, samp.ByteUsage(), DefaultPool).IsOK())

	driverRes := NewDriver(payload, manager, func() *voice.Voice {
		return voice.New(8000, voice.Oscillator{})
	})
	require.True(t, driverRes.Ok())
	driver := driverRes.Unwrap()
	defer driver.Close()
	defer payload.Close()

	assert.False(t, driver.Done())
	require.True(t, driver.Tick(1).IsOK())
	assert.True(t, driver.Done())
}

func TestDriver_VoicesReturnsOnePerChannel(t *testing.T) {
	payloadRes := zseq.Deserialize(bytes.NewReader(buildSingleChannelZSEQ(t)))
	require.True(t, payloadRes.Ok())
	payload := payloadRes.Unwrap()

	instRes := instrument.Deserialize(bytes.NewReader(buildSingleSplitInstrument(t, 123)))
	require.True(t, instRes.Ok())

	manager := NewManager()
	require.True(t, manager.Register(7, instRes.Unwrap(), 0, DefaultPool).IsOK())
	samp := sample.New(make([]int16, 64), 8000, false)
	require.True(t, manager.Register(123, samp, samp.ByteUsage(), DefaultPool).IsOK())

	driverRes := NewDriver(payload, manager, func() *voice.Voice {
		return voice.New(8000, voice.Oscillator{})
	})
	require.True(t, driverRes.Ok())
	driver := driverRes.Unwrap()
	defer driver.Close()
	defer payload.Close()

	voices := driver.Voices()
	require.Len(t, voices, 1)
	assert.Equal(t, voice.Stopped, voices[0].Phase())
}
