package zseq

import "github.com/pinebranch/brrengine/status"

// DecodeVarint reads a 1-2 byte varint encoding u in [0, 32767] starting at
// data[pos]. The first byte's high bit set means the low 7 bits are the
// value's low 7 bits and the next byte holds the upper 8 bits; high bit
// clear means the byte itself is the value.
func DecodeVarint(data []byte, pos int) (value uint16, newPos int, st status.Status) {
	if pos >= len(data) {
		return 0, pos, status.OutOfBoundsf("varint read past end of stream at %d", pos)
	}
	b0 := data[pos]
	if b0&0x80 == 0 {
		return uint16(b0), pos + 1, status.Ok()
	}
	if pos+1 >= len(data) {
		return 0, pos, status.OutOfBoundsf("truncated two-byte varint at %d", pos)
	}
	lo7 := uint16(b0 & 0x7f)
	hi8 := uint16(data[pos+1])
	return lo7 | (hi8 << 7), pos + 2, status.Ok()
}

// EncodeVarint writes u (which must be in [0, 32767]) in its canonical 1- or
// 2-byte form.
func EncodeVarint(u uint16) []byte {
	if u <= 127 {
		return []byte{byte(u)}
	}
	lo7 := byte(u & 0x7f)
	hi8 := byte(u >> 7)
	return []byte{lo7 | 0x80, hi8}
}
