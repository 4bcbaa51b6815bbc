package dsp

// HighFreqEnergy tracks high-frequency energy via a Butterworth high-pass
// filter followed by a squared-output envelope follower.
type HighFreqEnergy struct {
	filter   Biquad
	envelope *Envelope
}

// NewHighFreqEnergy builds a high-frequency energy tracker with the filter
// cutoff at cutoffHz and an attack of 1ms / release of windowMs.
func NewHighFreqEnergy(sampleRate, cutoffHz, windowMs float64) *HighFreqEnergy {
	h := &HighFreqEnergy{
		envelope: NewEnvelope(sampleRate, 1.0, windowMs),
	}
	h.filter.ConfigureHighpassButterworth(sampleRate, cutoffHz)
	return h
}

// Reset clears filter and envelope history, keeping coefficients.
func (h *HighFreqEnergy) Reset() {
	h.filter.ResetHistory()
	h.envelope.Reset()
}

// Process advances the tracker by one sample and returns the current
// smoothed high-frequency energy.
func (h *HighFreqEnergy) Process(in float64) float64 {
	filtered := h.filter.Process(in)
	return h.envelope.Process(filtered * filtered)
}
