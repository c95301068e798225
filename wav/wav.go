// Package wav writes canonical 16-bit PCM stereo WAV files, the format
// cmd/tlgplay renders a sequence down to.
package wav

import (
	"encoding/binary"
	"io"

	"github.com/pinebranch/brrengine/status"
)

type header struct {
	RiffTag       [4]byte
	ChunkSize     uint32
	WaveTag       [4]byte
	FmtTag        [4]byte
	FmtSize       uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataTag       [4]byte
	DataSize      uint32
}

const (
	bitsPerSample = 16
	numChannels   = 2
)

// WriteStereo writes frames — interleaved left/right int16 samples, so
// len(frames) must be even — as a single-chunk WAV file at sampleRate.
func WriteStereo(w io.Writer, sampleRate uint32, frames []int16) status.Status {
	if len(frames)%2 != 0 {
		return status.InvalidArgumentf("wav: frame count must be even (interleaved stereo), got %d", len(frames))
	}

	blockAlign := uint16(numChannels * bitsPerSample / 8)
	dataSize := uint32(len(frames)) * (bitsPerSample / 8)

	h := header{
		RiffTag:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		WaveTag:       [4]byte{'W', 'A', 'V', 'E'},
		FmtTag:        [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   1,
		NumChannels:   numChannels,
		SampleRate:    sampleRate,
		ByteRate:      sampleRate * uint32(blockAlign),
		BlockAlign:    blockAlign,
		BitsPerSample: bitsPerSample,
		DataTag:       [4]byte{'d', 'a', 't', 'a'},
		DataSize:      dataSize,
	}
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return status.IOErrorf("writing WAV header: %v", err)
	}
	if err := binary.Write(w, binary.LittleEndian, frames); err != nil {
		return status.IOErrorf("writing WAV frame data: %v", err)
	}
	return status.Ok()
}
