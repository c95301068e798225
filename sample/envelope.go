package sample

// ADSRSeconds is a time-varying volume envelope expressed in seconds.
type ADSRSeconds struct {
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
}

// DefaultEnvelopeSeconds is the flat full-volume envelope.
var DefaultEnvelopeSeconds = ADSRSeconds{Attack: 0, Decay: 0, Sustain: 1.0, Release: 0}

// ADSRSamples is the sample-domain form of ADSRSeconds; meaningless without
// the sampling rate it was converted at.
type ADSRSamples struct {
	Attack  uint32
	Decay   uint32
	Sustain float64
	Release uint32
}

// ToSamples converts seconds-domain attack/decay/release to sample counts at
// samplingRate, preserving sustain as-is.
func (e ADSRSeconds) ToSamples(samplingRate uint32) ADSRSamples {
	return ADSRSamples{
		Attack:  uint32(e.Attack * float64(samplingRate)),
		Decay:   uint32(e.Decay * float64(samplingRate)),
		Sustain: e.Sustain,
		Release: uint32(e.Release * float64(samplingRate)),
	}
}
