// Package dsp implements the per-sample streaming DSP primitives that feed
// the syllable detector's feature fusion stage: a zero-frequency resonator,
// an RBJ biquad bandpass with envelope follower, an automatic gain
// controller, a high-frequency energy tracker, framed spectral-flux and MFCC
// delta analyzers, and a Morlet wavelet bank. Every type here is a stateful
// streaming transducer: construct once, then call Process per sample.
// SpectralFlux and MFCCDelta allocate their FFT output (and, for
// MFCCDelta, per-frame scratch slices) each time a frame completes; the
// other types do not allocate after construction.
package dsp

import "math"

// Biquad is a second-order IIR filter in Direct Form I, configured via the
// RBJ audio-cookbook formulas.
type Biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	x1, x2     float64
	y1, y2     float64
}

// ConfigureBandpass sets the filter to a constant-skirt-gain bandpass
// (peak gain equal to Q) centered at centerFreq with the given Q factor.
func (f *Biquad) ConfigureBandpass(sampleRate, centerFreq, qFactor float64) {
	w0 := 2 * math.Pi * centerFreq / sampleRate
	alpha := math.Sin(w0) / (2 * qFactor)

	b0 := qFactor * alpha
	b1 := 0.0
	b2 := -qFactor * alpha
	a0 := 1 + alpha
	a1 := -2 * math.Cos(w0)
	a2 := 1 - alpha

	invA0 := 1.0 / a0
	f.b0 = b0 * invA0
	f.b1 = b1 * invA0
	f.b2 = b2 * invA0
	f.a1 = a1 * invA0
	f.a2 = a2 * invA0
}

// ConfigureHighpassButterworth sets the filter to a second-order Butterworth
// high-pass (Q = 1/sqrt(2)) at cutoffFreq, derived via the bilinear
// transform.
func (f *Biquad) ConfigureHighpassButterworth(sampleRate, cutoffFreq float64) {
	wc := math.Tan(math.Pi * cutoffFreq / sampleRate)
	k := 1 + math.Sqrt2*wc + wc*wc

	f.b0 = 1 / k
	f.b1 = -2 / k
	f.b2 = 1 / k
	f.a1 = 2 * (wc*wc - 1) / k
	f.a2 = (1 - math.Sqrt2*wc + wc*wc) / k
}

// Reset clears both coefficients and history; callers that only want to
// clear history (keeping the configured coefficients) should instead zero
// x1/x2/y1/y2 directly via ResetHistory.
func (f *Biquad) Reset() {
	*f = Biquad{}
}

// ResetHistory clears the filter's sample history but keeps its coefficients.
func (f *Biquad) ResetHistory() {
	f.x1, f.x2, f.y1, f.y2 = 0, 0, 0, 0
}

// Process runs one sample through the filter, Direct Form I, flushing
// denormal output to zero.
func (f *Biquad) Process(in float64) float64 {
	out := f.b0*in + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2

	if math.Abs(out) < 1.0e-15 {
		out = 0
	}

	f.x2 = f.x1
	f.x1 = in
	f.y2 = f.y1
	f.y1 = out

	return out
}
