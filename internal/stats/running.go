// Package stats provides the per-feature running-statistics normalizer that
// turns raw DSP feature values into sigmoid-normalized, confidence-weighted
// scores for the fusion stage.
package stats

import "math"

const maxSampleCount = 100000

// Running maintains an EMA mean/variance (Welford-style) and a saturating
// sample counter for one feature channel.
type Running struct {
	alpha       float64
	mean        float64
	variance    float64
	sampleCount int64
}

// NewRunning builds a running-statistics tracker whose EMA time constant is
// tauMs milliseconds at sampleRate.
func NewRunning(sampleRate, tauMs float64) *Running {
	r := &Running{}
	r.Configure(sampleRate, tauMs)
	return r
}

// Configure (re)derives the EMA coefficient and clears all statistics.
func (r *Running) Configure(sampleRate, tauMs float64) {
	tau := tauMs * 0.001
	if tau < 1e-6 {
		tau = 1e-6
	}
	r.alpha = 1 - math.Exp(-1.0/(sampleRate*tau))
	r.Reset()
}

// Reset clears mean, variance, and sample count.
func (r *Running) Reset() {
	r.mean, r.variance = 0, 0
	r.sampleCount = 0
}

// Update folds one new observation into the running mean/variance.
func (r *Running) Update(x float64) {
	delta := x - r.mean
	r.mean += r.alpha * delta
	r.variance = (1 - r.alpha) * (r.variance + r.alpha*delta*delta)
	if r.sampleCount < maxSampleCount {
		r.sampleCount++
	}
}

// Mean returns the current running mean.
func (r *Running) Mean() float64 { return r.mean }

// Variance returns the current running variance.
func (r *Running) Variance() float64 { return r.variance }

// StdDev returns the current running standard deviation.
func (r *Running) StdDev() float64 {
	if r.variance <= 0 {
		return 0
	}
	return math.Sqrt(r.variance)
}

// Count returns the number of observations folded in so far (capped).
func (r *Running) Count() int64 { return r.sampleCount }

// FastSigmoid is the cheap saturating nonlinearity x/(1+|x|) used by the
// sigmoid normalizer.
func FastSigmoid(x float64) float64 {
	return x / (1 + math.Abs(x))
}

// SigmoidNormalize maps x to a [0,1] score using the running mean/std, with
// a confidence that degrades to 0.1 when the statistics are unreliable
// (too few samples, or zero variance). Below 100 samples or near-zero std,
// it returns a neutral 0.5.
func (r *Running) SigmoidNormalize(x float64) (value, confidence float64) {
	std := r.StdDev()
	if std < 1e-6 || r.sampleCount < 100 {
		return 0.5, 0.1
	}
	z := (x - r.mean) / std
	normalized := (FastSigmoid(z-1.0) + 1.0) * 0.5
	conf := float64(r.sampleCount) / 1000.0
	if conf > 1 {
		conf = 1
	}
	return normalized, conf
}

// LegacyNormalize is the simpler z-score normalization clamped to [0,1],
// used only by the unvoiced-onset trigger and the MIXED onset-type check.
func (r *Running) LegacyNormalize(x float64) float64 {
	std := r.StdDev()
	if std < 1e-6 || r.sampleCount < 100 {
		return 0.5
	}
	z := (x - r.mean) / std
	if z < 0 {
		z = 0
	}
	if z > 4 {
		z = 4
	}
	return z / 4
}
