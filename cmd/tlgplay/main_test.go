package main

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinebranch/brrengine/brr"
)

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	applyDefaults(&cfg)
	assert.Equal(t, uint32(32000), cfg.SampleRate)
	assert.Equal(t, cfg.SampleRate/60, cfg.SamplesPerTick)
	assert.Equal(t, uint32(100000), cfg.MaxTicks)
}

func TestApplyDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := Config{SampleRate: 8000, SamplesPerTick: 100, MaxTicks: 5}
	applyDefaults(&cfg)
	assert.Equal(t, uint32(8000), cfg.SampleRate)
	assert.Equal(t, uint32(100), cfg.SamplesPerTick)
	assert.Equal(t, uint32(5), cfg.MaxTicks)
}

func TestClampInt16(t *testing.T) {
	assert.Equal(t, int16(32767), clampInt16(40000))
	assert.Equal(t, int16(-32768), clampInt16(-40000))
	assert.Equal(t, int16(100), clampInt16(100))
}

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

// buildSingleChannelZSEQ assembles a minimal one-channel ZSEQ that
// articulates one note then immediately stops, in the same layout
// resource.driver_test.go's fixture uses.
func buildSingleChannelZSEQ(t *testing.T) []byte {
	t.Helper()

	noteRegion := playlistRegion([]byte{0x00, 0xff}, []byte{0x45, 0x80, 0xff})
	paramRegion := playlistRegion([]byte{0x00, 0xff}, []byte{0xc1, 0x80, 0xff})
	masterRegion := playlistRegion([]byte{0x00, 0xff}, []byte{0xa1, 0x78, 0xff})

	var buf bytes.Buffer
	buf.WriteByte(0x5a)
	buf.WriteByte(1)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(7)))
	buf.WriteByte(100)
	buf.WriteByte(1)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(0)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(0)))

	masterOffsetIdx := buf.Len()
	buf.WriteByte(0)

	channelTableIdx := buf.Len()
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(0)))

	channelBlockOffset := buf.Len()
	buf.WriteByte(0)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(0)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(0)))

	noteOffset := buf.Len()
	buf.Write(noteRegion)
	paramOffset := buf.Len()
	buf.Write(paramRegion)
	masterOffset := buf.Len()
	buf.Write(masterRegion)

	require.Less(t, masterOffset, 128)

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
	buf.WriteByte(1)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, sampleID))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, int16(0)))
	buf.WriteByte(0)
	return buf.Bytes()
}

func TestRenderEndToEndProducesWAV(t *testing.T) {
	dir := t.TempDir()

	zseqPath := filepath.Join(dir, "song.zseq")
	require.NoError(t, os.WriteFile(zseqPath, buildSingleChannelZSEQ(t), 0o644))

	instPath := filepath.Join(dir, "kick.inst")
	require.NoError(t, os.WriteFile(instPath, buildSingleSplitInstrument(t, 123), 0o644))

	samplePath := filepath.Join(dir, "kick.brr")
	var brrBuf bytes.Buffer
	samples := make([]int16, 64)
	for i := range samples {
		samples[i] = int16(i * 10)
	}
	require.True(t, brr.Serialize(&brrBuf, brr.File{
		SamplingRate: 8000,
		SampleCount:  uint32(len(samples)),
		Data:         brr.Encode(samples),
	}).IsOK())
	require.NoError(t, os.WriteFile(samplePath, brrBuf.Bytes(), 0o644))

	outputPath := filepath.Join(dir, "out.wav")

	cfg := Config{
		SampleRate:     8000,
		SamplesPerTick: 16,
		MaxTicks:       4,
		ZSEQPath:       zseqPath,
		OutputPath:     outputPath,
		Instruments:    []ResourceFile{{ID: 7, Path: instPath}},
		Samples:        []ResourceFile{{ID: 123, Path: samplePath}},
	}
	applyDefaults(&cfg)

	require.NoError(t, render(&cfg))

	out, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(out[0:4]))
	assert.Greater(t, len(out), 44)
}
