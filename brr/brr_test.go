package brr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func Test_encodedBytesForBlock(t *testing.T) {
	assert.Equal(t, 9, encodedBytesForBlock(16))
	assert.Equal(t, 9, encodedBytesForBlock(15))
	assert.Equal(t, 3, encodedBytesForBlock(1))
	assert.Equal(t, 3, encodedBytesForBlock(2))
	assert.Equal(t, 3, encodedBytesForBlock(3))
}

func Test_signExtendNibble(t *testing.T) {
	assert.Equal(t, int8(0), signExtendNibble(0x00))
	assert.Equal(t, int8(7), signExtendNibble(0x07))
	assert.Equal(t, int8(-8), signExtendNibble(0x08))
	assert.Equal(t, int8(-1), signExtendNibble(0x0f))
}

// Full 16-sample block round-trips to an 9-byte encoding whose greedy error
// matches the minimum over all 64 filter modes, per the reference decoder
// invariant in spec scenario 4.
func TestEncode_fullBlockPicksMinimalError(t *testing.T) {
	src := []int16{1000, 2000, 3000, 4000, 5000, 6000, 7000, 8000, 9000, 10000, 11000, 12000, 13000, 14000, 15000, 16000}

	encoded := Encode(src)
	require.Len(t, encoded, blockBytes)

	gotErr, _, _, _ := greedyCompressBlock(src, 0, 0, decodeFilterByte(encoded[0]))

	minErr := int64(-1)
	for fb := 0; fb < 64; fb++ {
		errSum, _, _, _ := greedyCompressBlock(src, 0, 0, decodeFilterByte(byte(fb)))
		if minErr == -1 || errSum < minErr {
			minErr = errSum
		}
	}
	assert.Equal(t, minErr, gotErr)
}

// A 15-sample partial block encodes to 8 data bytes (15 nibbles plus one
// padding nibble, the same 9 bytes as a full block) and decodes back to 16
// samples; the caller trims the trailing padding sample to match the
// declared count.
func TestEncode_partialBlockPadsAndTrims(t *testing.T) {
	src := make([]int16, 15)
	for i := range src {
		src[i] = int16(i * 100)
	}

	encoded := Encode(src)
	require.Len(t, encoded, blockBytes)

	decoded := Decode(encoded)
	require.Len(t, decoded, 16)

	trimmed := decoded[:15]
	assert.Len(t, trimmed, len(src))
}

// decodeFilterByte(0) is a null predictor: compress then decompress of
// already-zero history reproduces a plain truncating quantizer.
func TestFilterMode0IsIdentityPredictor(t *testing.T) {
	f := decodeFilterByte(0)
	assert.Equal(t, int32(0), f.k1)
	assert.Equal(t, int32(0), f.k2)
}

// Round-trip law: encoding then decoding never panics and returns 16 samples
// per full block plus, for a trailing partial block, two samples per data
// byte after padding to an even byte count, for any slice of i16 PCM.
func TestRoundTrip_NeverPanicsAndPyramidsAlignOnBlocks(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 200).Draw(t, "n")
		src := make([]int16, n)
		for i := range src {
			src[i] = int16(rapid.IntRange(-32768, 32767).Draw(t, "sample"))
		}

		encoded := Encode(src)
		decoded := Decode(encoded)

		wantLen := (n / blockSamples) * blockSamples
		if r := n % blockSamples; r != 0 {
			nibbleBytes := (r + 1) / 2
			if nibbleBytes%2 == 1 {
				nibbleBytes++
			}
			wantLen += 2 * nibbleBytes
		}
		assert.Equal(t, wantLen, len(decoded))
	})
}

// Every produced nibble is in the 4-bit signed range regardless of input
// extremes, since compressSample always clamps.
func TestCompressSample_AlwaysClamped(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s0 := int16(rapid.IntRange(-32768, 32767).Draw(t, "s0"))
		d1 := int16(rapid.IntRange(-32768, 32767).Draw(t, "d1"))
		d2 := int16(rapid.IntRange(-32768, 32767).Draw(t, "d2"))
		fb := byte(rapid.IntRange(0, 63).Draw(t, "fb"))

		c := compressSample(s0, d1, d2, decodeFilterByte(fb))
		assert.GreaterOrEqual(t, int(c), -8)
		assert.LessOrEqual(t, int(c), 7)
	})
}
