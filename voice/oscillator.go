package voice

import "math"

// Oscillator is the engine-level vibrato rate, read by every voice rather
// than kept as hidden global state (see spec design note on global state).
type Oscillator struct {
	CyclesPerSample float64
}

// Value returns sin(clock * CyclesPerSample * 2π) for the given sample
// clock.
func (o Oscillator) Value(clock uint64) float64 {
	return math.Sin(float64(clock) * o.CyclesPerSample * 2 * math.Pi)
}
