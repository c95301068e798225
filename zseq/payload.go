// Package zseq implements the ZSEQ bytecode sequence format: an immutable
// payload plus stack-of-interpreters playlists (note, parameter, master)
// that drive sampler voices through delay/repeat/coda/jump control flow.
package zseq

import (
	"encoding/binary"
	"io"
	"sync/atomic"

	"github.com/pinebranch/brrengine/status"
)

const (
	tlgrTag  = 0x52474C54 // "TLGR" read little-endian
	zseqTag  = 0x5145535A // "ZSEQ" read little-endian
	sentinel = 0x5A
)

// ChannelBlock is one channel's instrument and playlist-offset record.
type ChannelBlock struct {
	StartInstrument uint8
	NoteOffset      uint16
	ParamOffset     uint16
}

// Payload is the immutable ZSEQ byte blob plus its parsed header fields.
// Playlists hold a non-owning back-reference against it (refCount); Close
// aborts if any playlist is still live, mirroring the original's assertion
// that a ZSEQ cannot be torn down with live playlists.
type Payload struct {
	raw []byte

	instrumentIDs   []uint64
	startTempo      uint8
	channels        uint8
	channelPriority []uint8
	channelRouting  []uint8
	masterOffset    uint16
	channelBlocks   []ChannelBlock

	refCount int32
}

// reader is a small bounds-checked cursor over a byte slice, used only
// during deserialization.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) u8() (uint8, status.Status) {
	if r.pos+1 > len(r.data) {
		return 0, status.FormatMismatchf("ZSEQ payload truncated reading u8 at %d", r.pos)
	}
	v := r.data[r.pos]
	r.pos++
	return v, status.Ok()
}

func (r *reader) u16() (uint16, status.Status) {
	if r.pos+2 > len(r.data) {
		return 0, status.FormatMismatchf("ZSEQ payload truncated reading u16 at %d", r.pos)
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos : r.pos+2])
	r.pos += 2
	return v, status.Ok()
}

func (r *reader) u64() (uint64, status.Status) {
	if r.pos+8 > len(r.data) {
		return 0, status.FormatMismatchf("ZSEQ payload truncated reading u64 at %d", r.pos)
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos : r.pos+8])
	r.pos += 8
	return v, status.Ok()
}

func (r *reader) varint() (uint16, status.Status) {
	v, newPos, st := DecodeVarint(r.data, r.pos)
	if !st.IsOK() {
		return 0, st
	}
	r.pos = newPos
	return v, status.Ok()
}

// Deserialize parses the "TLGR"/"ZSEQ" file framing from §6 and the payload
// layout it wraps.
func Deserialize(src io.Reader) status.Result[*Payload] {
	var fileHeader struct {
		Tlgr         uint32
		Zseq         uint32
		PayloadBytes uint32
	}
	if err := binary.Read(src, binary.LittleEndian, &fileHeader); err != nil {
		return status.Err[*Payload](status.IOErrorf("reading ZSEQ file header: %v", err))
	}
	if fileHeader.Tlgr != tlgrTag {
		return status.Err[*Payload](status.FormatMismatchf("ZSEQ file missing TLGR tag"))
	}
	if fileHeader.Zseq != zseqTag {
		return status.Err[*Payload](status.FormatMismatchf("ZSEQ file missing ZSEQ tag"))
	}

	raw := make([]byte, fileHeader.PayloadBytes)
	if _, err := io.ReadFull(src, raw); err != nil {
		return status.Err[*Payload](status.IOErrorf("reading ZSEQ payload: %v", err))
	}

	return parsePayload(raw)
}

func parsePayload(raw []byte) status.Result[*Payload] {
	r := &reader{data: raw}

	sent, st := r.u8()
	if !st.IsOK() {
		return status.Err[*Payload](st)
	}
	if sent != sentinel {
		return status.Err[*Payload](status.FormatMismatchf("ZSEQ payload missing 0x5A sentinel"))
	}

	nInstruments, st := r.u8()
	if !st.IsOK() {
		return status.Err[*Payload](st)
	}
	instrumentIDs := make([]uint64, nInstruments)
	for i := range instrumentIDs {
		v, st := r.u64()
		if !st.IsOK() {
			return status.Err[*Payload](st)
		}
		instrumentIDs[i] = v
	}

	startTempo, st := r.u8()
	if !st.IsOK() {
		return status.Err[*Payload](st)
	}
	channels, st := r.u8()
	if !st.IsOK() {
		return status.Err[*Payload](st)
	}
	if channels < 1 || channels > 8 {
		return status.Err[*Payload](status.FormatMismatchf("ZSEQ channels %d outside [1, 8]", channels))
	}

	priorityRaw, st := r.u16()
	if !st.IsOK() {
		return status.Err[*Payload](st)
	}
	routingRaw, st := r.u16()
	if !st.IsOK() {
		return status.Err[*Payload](st)
	}

	masterOffset, st := r.varint()
	if !st.IsOK() {
		return status.Err[*Payload](st)
	}

	channelTableOffsets := make([]uint16, channels)
	for i := range channelTableOffsets {
		v, st := r.u16()
		if !st.IsOK() {
			return status.Err[*Payload](st)
		}
		channelTableOffsets[i] = v
	}

	channelBlocks := make([]ChannelBlock, channels)
	for i, off := range channelTableOffsets {
		cr := &reader{data: raw, pos: int(off)}
		startInst, st := cr.u8()
		if !st.IsOK() {
			return status.Err[*Payload](st)
		}
		noteOff, st := cr.u16()
		if !st.IsOK() {
			return status.Err[*Payload](st)
		}
		paramOff, st := cr.u16()
		if !st.IsOK() {
			return status.Err[*Payload](st)
		}
		channelBlocks[i] = ChannelBlock{StartInstrument: startInst, NoteOffset: noteOff, ParamOffset: paramOff}
	}

	return status.From(&Payload{
		raw:             raw,
		instrumentIDs:   instrumentIDs,
		startTempo:      startTempo,
		channels:        channels,
		channelPriority: unpackNibbles(priorityRaw, int(channels)),
		channelRouting:  unpackNibbles(routingRaw, int(channels)),
		masterOffset:    masterOffset,
		channelBlocks:   channelBlocks,
	})
}

func unpackNibbles(packed uint16, count int) []uint8 {
	out := make([]uint8, count)
	for i := 0; i < count; i++ {
		out[i] = uint8((packed >> (4 * i)) & 0x0f)
	}
	return out
}

// InstrumentIDs returns the instrument resource ids this sequence refers to.
func (p *Payload) InstrumentIDs() []uint64 { return p.instrumentIDs }

// StartTempo is the initial tempo, in whatever unit the master playlist's
// tempo events use.
func (p *Payload) StartTempo() uint8 { return p.startTempo }

// Channels is the channel count, in [1, 8].
func (p *Payload) Channels() uint8 { return p.channels }

// ChannelPriority returns channel i's 4-bit priority value.
func (p *Payload) ChannelPriority(i int) uint8 { return p.channelPriority[i] }

// ChannelRouting returns channel i's 4-bit routing value.
func (p *Payload) ChannelRouting(i int) uint8 { return p.channelRouting[i] }

// ChannelBlock returns channel i's parsed block (instrument + playlist
// offsets).
func (p *Payload) ChannelBlock(i int) ChannelBlock { return p.channelBlocks[i] }

// MasterOffset is the byte offset of the master playlist within raw.
func (p *Payload) MasterOffset() uint16 { return p.masterOffset }

// Ref increments the live-playlist reference count. Every playlist
// constructed from this payload must call Ref once and Unref once.
func (p *Payload) Ref() { atomic.AddInt32(&p.refCount, 1) }

// Unref decrements the live-playlist reference count.
func (p *Payload) Unref() { atomic.AddInt32(&p.refCount, -1) }

// Close aborts if any playlist still holds a reference, mirroring the
// original's assertion that destroying a ZSEQ with live playlists is a
// precondition violation.
func (p *Payload) Close() {
	if atomic.LoadInt32(&p.refCount) != 0 {
		panic("zseq: Payload closed with live playlist references")
	}
}
