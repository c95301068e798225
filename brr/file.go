package brr

import (
	"encoding/binary"
	"io"

	"github.com/pinebranch/brrengine/status"
)

const (
	tlgrTag = 0x52474C54 // "TLGR" read little-endian
	brrTag  = 0x20525242 // "BRR " read little-endian

	pyramidHintFlag = 1 << 0
)

type fileHeader struct {
	Tlgr         uint32
	Brr          uint32
	SamplingRate uint16
	Mode         uint8
	SampleCount  uint32
	ByteCount    uint32
}

// File is a deserialized BRR file: the encoded block stream plus the
// metadata needed to decode and trim it back to the original sample count.
type File struct {
	SamplingRate uint16
	PyramidHint  bool
	SampleCount  uint32
	Data         []byte
}

// Serialize writes f in the BRR file's little-endian framing.
func Serialize(w io.Writer, f File) status.Status {
	mode := uint8(0)
	if f.PyramidHint {
		mode |= pyramidHintFlag
	}
	header := fileHeader{
		Tlgr:         tlgrTag,
		Brr:          brrTag,
		SamplingRate: f.SamplingRate,
		Mode:         mode,
		SampleCount:  f.SampleCount,
		ByteCount:    uint32(len(f.Data)),
	}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return status.IOErrorf("writing BRR file header: %v", err)
	}
	if _, err := w.Write(f.Data); err != nil {
		return status.IOErrorf("writing BRR block data: %v", err)
	}
	return status.Ok()
}

// Deserialize parses the "TLGR"/"BRR " file framing and its trailing block
// data.
func Deserialize(r io.Reader) status.Result[*File] {
	var header fileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return status.Err[*File](status.IOErrorf("reading BRR file header: %v", err))
	}
	if header.Tlgr != tlgrTag {
		return status.Err[*File](status.FormatMismatchf("BRR file missing TLGR tag"))
	}
	if header.Brr != brrTag {
		return status.Err[*File](status.FormatMismatchf("BRR file missing BRR tag"))
	}

	data := make([]byte, header.ByteCount)
	if _, err := io.ReadFull(r, data); err != nil {
		return status.Err[*File](status.IOErrorf("reading BRR block data: %v", err))
	}

	return status.From(&File{
		SamplingRate: header.SamplingRate,
		PyramidHint:  header.Mode&pyramidHintFlag != 0,
		SampleCount:  header.SampleCount,
		Data:         data,
	})
}

// DecodeTrimmed decodes f's block data and trims the trailing even-padding
// sample a partial final block may have produced, using f.SampleCount as the
// authoritative length.
func DecodeTrimmed(f *File) []int16 {
	decoded := Decode(f.Data)
	if uint32(len(decoded)) > f.SampleCount {
		decoded = decoded[:f.SampleCount]
	}
	return decoded
}
