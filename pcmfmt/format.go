// Package pcmfmt holds the shared sample format descriptor used by the
// sample and voice packages.
package pcmfmt

import "fmt"

// SampleFormat is the per-sample numeric encoding.
type SampleFormat int

const (
	Int8 SampleFormat = iota
	Int16
	Int32
	Int64
	Float32
	Float64
)

func (f SampleFormat) String() string {
	switch f {
	case Int8:
		return "INT8"
	case Int16:
		return "INT16"
	case Int32:
		return "INT32"
	case Int64:
		return "INT64"
	case Float32:
		return "FLOAT32"
	case Float64:
		return "FLOAT64"
	default:
		return "{Invalid}"
	}
}

// Layout is the channel layout.
type Layout int

const (
	Mono Layout = iota
	Stereo
)

func (l Layout) String() string {
	switch l {
	case Mono:
		return "MONO"
	case Stereo:
		return "STEREO"
	default:
		return "{Invalid}"
	}
}

// Format is a field-wise comparable format descriptor.
type Format struct {
	SampleFormat  SampleFormat
	Layout        Layout
	SamplingRate  uint32
}

func (f Format) String() string {
	sf := f.SampleFormat.String()
	lay := f.Layout.String()
	return fmt.Sprintf("{%s, %s, %d}", sf, lay, f.SamplingRate)
}

// Equal reports field-wise equality.
func (f Format) Equal(other Format) bool {
	return f == other
}
