package syllable

import "math"

// Indices into calibration's per-feature circular buffers and threshold
// array. The order matches spec.md's six raw feature channels: env energy,
// peak rate, spectral flux, high-frequency energy, MFCC delta, wavelet.
const (
	calFeatEnergy = iota
	calFeatPeakRate
	calFeatSpectralFlux
	calFeatHFE
	calFeatMFCC
	calFeatWavelet
	calFeatCount
)

const calBufCapacity = 100

// calibration implements the real-time calibration phase: while active, the
// state machine is held off and six rolling windows of raw feature values
// accumulate; on completion each channel's threshold is fit from its
// observed mean/std at the configured SNR margin.
type calibration struct {
	isCalibrating bool

	sampleCounter int64
	targetSamples int64

	bufs [calFeatCount][calBufCapacity]float64
	pos  [calFeatCount]int
	n    [calFeatCount]int

	thresholds [calFeatCount]float64
}

// init performs one-time setup from construction; equivalent to reset but
// named separately for clarity at the call site in buildModules.
func (c *calibration) init(cfg Config) {
	c.reset(cfg)
}

// reset (re)arms the calibration window if cfg.RealtimeMode is set,
// clearing all buffers and thresholds.
func (c *calibration) reset(cfg Config) {
	*c = calibration{}
	if !cfg.RealtimeMode {
		return
	}
	c.isCalibrating = true
	c.targetSamples = int64(cfg.CalibrationDurationMs * float64(cfg.SampleRate) / 1000.0)
	if c.targetSamples < 1 {
		c.targetSamples = 1
	}
}

// observe folds one sample's raw feature values into the calibration
// buffers and, once the target sample count is reached, finalizes
// thresholds and clears isCalibrating. No-op if not currently calibrating.
func (c *calibration) observe(cfg Config, energy, peakRate, spectralFlux, hfe, mfccDelta, wavelet float64) {
	if !c.isCalibrating {
		return
	}

	values := [calFeatCount]float64{energy, peakRate, spectralFlux, hfe, mfccDelta, wavelet}
	for k, v := range values {
		c.bufs[k][c.pos[k]] = v
		c.pos[k] = (c.pos[k] + 1) % calBufCapacity
		if c.n[k] < calBufCapacity {
			c.n[k]++
		}
	}

	c.sampleCounter++
	if c.sampleCounter >= c.targetSamples {
		c.finalize(cfg)
	}
}

// finalize fits a threshold per feature channel from its buffered samples
// and clears isCalibrating. Channels with fewer than 10 observations get a
// fixed floor threshold rather than an unreliable statistical fit.
func (c *calibration) finalize(cfg Config) {
	gamma := math.Pow(10, cfg.SNRThresholdDB/10.0)

	for k := 0; k < calFeatCount; k++ {
		if c.n[k] < 10 {
			c.thresholds[k] = 1e-3
			continue
		}
		mean, std := bufMeanStd(c.bufs[k][:c.n[k]])
		th := mean + gamma*std
		if th < 1e-6 {
			th = 1e-6
		}
		c.thresholds[k] = th
	}

	c.isCalibrating = false
}

func bufMeanStd(samples []float64) (mean, std float64) {
	n := float64(len(samples))
	for _, v := range samples {
		mean += v
	}
	mean /= n

	var sqDiff float64
	for _, v := range samples {
		d := v - mean
		sqDiff += d * d
	}
	variance := sqDiff / n
	if variance > 0 {
		std = math.Sqrt(variance)
	}
	return mean, std
}
