package sample

import "github.com/pinebranch/brrengine/status"

// LoopMode selects whether a sample plays straight through or loops.
type LoopMode int

const (
	OneShot LoopMode = iota
	Loop
)

// LoopBounds describes one pyramid layer's loop window in fractional sample
// indices of that layer.
type LoopBounds struct {
	Begin  float64
	Length float64
}

// LoopSpec is the layer-0 loop request passed to Build/NewLoopInfo, before
// pyramiding.
type LoopSpec struct {
	Mode   LoopMode
	Begin  float64
	Length float64
}

// DefaultLoopSpec is the rate-independent default: one-shot, no loop window.
var DefaultLoopSpec = LoopSpec{Mode: OneShot, Begin: 0, Length: 0}

// LoopInfo holds a loop's bounds pyramided to match a sample's layers:
// layer k bounds are layer (k-1) bounds scaled by 0.25.
type LoopInfo struct {
	Mode   LoopMode
	Levels []LoopBounds
}

// NewLoopInfo validates begin/length against the layer-0 source length and
// builds the pyramided bounds for the given number of levels.
func NewLoopInfo(mode LoopMode, begin, length float64, sourceLength int, levels int) (LoopInfo, status.Status) {
	if begin < 0 {
		return LoopInfo{}, status.FailedPreconditionf("loop begin %v is negative", begin)
	}
	if begin+length > float64(sourceLength) {
		return LoopInfo{}, status.FailedPreconditionf("loop bounds [%v, %v) exceed sample length %d", begin, begin+length, sourceLength)
	}

	bounds := make([]LoopBounds, levels)
	bounds[0] = LoopBounds{Begin: begin, Length: length}
	for k := 1; k < levels; k++ {
		prev := bounds[k-1]
		bounds[k] = LoopBounds{Begin: prev.Begin * 0.25, Length: prev.Length * 0.25}
	}
	return LoopInfo{Mode: mode, Levels: bounds}, status.Ok()
}

// Expand grows a LoopInfo built with fewer layers than needed (e.g. an
// explicitly armed loop with only layer 0) out to levels total, by the same
// iterated ×0.25 rule, so bounds line up with a deeper sample pyramid.
func (l LoopInfo) Expand(levels int) LoopInfo {
	if len(l.Levels) >= levels {
		return l
	}
	out := make([]LoopBounds, levels)
	copy(out, l.Levels)
	for k := len(l.Levels); k < levels; k++ {
		prev := out[k-1]
		out[k] = LoopBounds{Begin: prev.Begin * 0.25, Length: prev.Length * 0.25}
	}
	return LoopInfo{Mode: l.Mode, Levels: out}
}
