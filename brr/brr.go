// Package brr implements the BRR (Bit Rate Reduction) codec: a 4-bit
// adaptive-differential scheme that packs 16 mono PCM samples into 9 bytes
// (1 filter byte + 8 nibble-pair bytes) with per-block filter selection.
//
// Grounded on dev/src/brr.cpp: the compressor stays "greedy" (it reverses the
// compression formula sample by sample rather than searching for a globally
// optimal code) by design — the resulting quantization noise is the engine's
// characteristic coloration, not a defect to be fixed.
package brr

// filterCoefficient holds the Q16.16 fixed-point predictor coefficients for
// one of the four BRR low-pass filter modes.
type filterCoefficient struct {
	k1, k2 int32
}

// filterTable mirrors the SNES's own BRR predictor coefficients, chosen to
// mimic its characteristic sound.
var filterTable = [4]filterCoefficient{
	{0, 0},
	{61440, 0},
	{124928, 61440},
	{117760, 53248},
}

// filter decomposes a filter byte into its shift amount and predictor
// coefficients.
type filter struct {
	expShift int
	k1, k2   int32
}

func decodeFilterByte(b byte) filter {
	return filter{
		expShift: int(b & 0x0f),
		k1:       filterTable[(b&0x30)>>4].k1,
		k2:       filterTable[(b&0x30)>>4].k2,
	}
}

func clampNibble(v int32) int8 {
	if v < -8 {
		return -8
	}
	if v > 7 {
		return 7
	}
	return int8(v)
}

// compressSample reverses the linear prediction formula to produce a 4-bit
// (clamped to [-8,7]) nibble from the original sample and the previous two
// *decompressed* samples.
func compressSample(sample0, dMinus1, dMinus2 int16, f filter) int8 {
	v := ((int64(sample0) << 16) - int64(f.k1)*int64(dMinus1) + int64(f.k2)*int64(dMinus2)) >> (f.expShift + 16)
	return clampNibble(int32(v))
}

// decompressSample applies the linear prediction formula to recover a
// sample from a 4-bit code and the previous two decompressed samples.
func decompressSample(code int8, dMinus1, dMinus2 int16, f filter) int16 {
	v := ((int64(code) << (f.expShift + 16)) + int64(f.k1)*int64(dMinus1) - int64(f.k2)*int64(dMinus2)) >> 16
	return int16(v)
}

// blockSamples is the number of source samples packed into one BRR block.
const blockSamples = 16

// blockBytes is the size in bytes of one full BRR block (1 filter byte + 8
// data bytes holding 16 nibbles).
const blockBytes = 9

// greedyCompressBlock runs the compressor for one block with a fixed filter,
// writing up to 8 nibble-pair bytes into dst (dst must be sized for
// ceil(n/2) bytes with padding to an even byte count handled by the caller).
// Returns the accumulated absolute error between source and decompressed
// samples, and the final two decompressed samples (most recent last).
func greedyCompressBlock(src []int16, dPrev1, dPrev2 int16, f filter) (errSum int64, nibbles []int8, last1, last2 int16) {
	n := len(src)
	d1, d2 := dPrev1, dPrev2

	nibbles = make([]int8, n)
	for i := 0; i < n; i++ {
		c := compressSample(src[i], d1, d2, f)
		dec := decompressSample(c, d1, d2, f)
		errSum += abs64(int64(src[i]) - int64(dec))
		nibbles[i] = c
		d2 = d1
		d1 = dec
	}

	return errSum, nibbles, d1, d2
}

// packNibbles writes nibbles into dst, nibble 0 in the low bits of byte 0,
// nibble 1 in the high bits, etc. dst must be at least ceil(len(nibbles)/2)
// bytes.
func packNibbles(nibbles []int8, dst []byte) {
	for i, c := range nibbles {
		byteIdx := i / 2
		if i%2 == 0 {
			dst[byteIdx] = byte(c) & 0x0f
		} else {
			dst[byteIdx] |= byte(c) << 4
		}
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// encodedBytesForBlock returns 1 (filter byte) + the padded-to-even nibble
// byte count for n source samples, n in [1, 16].
func encodedBytesForBlock(n int) int {
	nibbleBytes := (n + 1) / 2
	if nibbleBytes&1 == 1 {
		nibbleBytes++
	}
	return 1 + nibbleBytes
}

// compressBlock tries all 64 filter bytes, keeping the filter that minimizes
// the greedy compression error (ties go to the first-tried filter, i.e. the
// lowest filter byte value), then writes the winning block to dst.
// Returns the updated decompressed-sample history.
func compressBlock(src []int16, dPrev1, dPrev2 int16, dst []byte) (d1, d2 int16) {
	nibbleBytes := len(dst) - 1

	bestErr := int64(-1)
	var bestFilterByte byte

	for fb := 0; fb < 64; fb++ {
		f := decodeFilterByte(byte(fb))
		errSum, _, _, _ := greedyCompressBlock(src, dPrev1, dPrev2, f)
		if bestErr == -1 || errSum < bestErr {
			bestErr = errSum
			bestFilterByte = byte(fb)
		}
	}

	f := decodeFilterByte(bestFilterByte)
	_, nibbles, d1, d2 := greedyCompressBlock(src, dPrev1, dPrev2, f)

	dst[0] = bestFilterByte
	nibbleDst := dst[1 : 1+nibbleBytes]
	for i := range nibbleDst {
		nibbleDst[i] = 0
	}
	packNibbles(nibbles, nibbleDst)
	return d1, d2
}

// Encode compresses 16-bit mono PCM into BRR blocks, 16 source samples (9
// bytes) at a time. A trailing partial block is encoded with its nibble
// count rounded up to the next even byte count.
func Encode(samples []int16) []byte {
	var out []byte
	d1, d2 := int16(0), int16(0)

	for start := 0; start < len(samples); start += blockSamples {
		end := start + blockSamples
		if end > len(samples) {
			end = len(samples)
		}
		block := samples[start:end]
		blockLen := encodedBytesForBlock(len(block))
		dst := make([]byte, blockLen)
		d1, d2 = compressBlock(block, d1, d2, dst)
		out = append(out, dst...)
	}
	return out
}

func signExtendNibble(n byte) int8 {
	v := int8(n & 0x0f)
	if v&0x08 != 0 {
		v |= ^int8(0x0f)
	}
	return v
}

// Decode expands BRR blocks back to 16-bit mono PCM, maintaining filter
// state (the last two decompressed samples) across blocks. A block may have
// fewer than 8 data bytes (a trailing partial block); the caller is
// responsible for trimming any trailing padding sample against a known
// sample count (see DecodeTrimmed and the File framing in file.go).
func Decode(data []byte) []int16 {
	var out []int16
	d1, d2 := int16(0), int16(0)

	for start := 0; start < len(data); start += blockBytes {
		end := start + blockBytes
		if end > len(data) {
			end = len(data)
		}
		block := data[start:end]
		if len(block) < 1 {
			break
		}
		f := decodeFilterByte(block[0])
		for _, b := range block[1:] {
			loCode := signExtendNibble(b)
			hiCode := int8(int8(b) >> 4)

			s0 := decompressSample(loCode, d1, d2, f)
			s1 := decompressSample(hiCode, s0, d1, f)

			out = append(out, s0, s1)
			d2 = s0
			d1 = s1
		}
	}
	return out
}
