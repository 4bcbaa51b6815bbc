package syllable

import "math"

// voicingState tracks the zero-frequency-resonator-derived epoch train,
// smoothed F0, and voicing decision described in the detector's component
// design for ZFF & voicing.
type voicingState struct {
	lastZFF         float64
	samplesSinceEpoch int
	voicingCounter  int

	hasAcceptedFirst bool
	rawF0            float64
	smoothedF0       float64
	f0Derivative     float64

	jumpCounter int

	f0Baseline   float64
	semitoneDiff float64

	minF0SincePeak float64
	f0HasRisen     bool

	isVoiced bool

	voicedHoldSamples int
}

func (v *voicingState) reset() {
	saved := v.voicedHoldSamples
	*v = voicingState{}
	v.voicedHoldSamples = saved
	v.f0HasRisen = true
}

// process advances the voicing state machine by one sample, given this
// sample's ZFF output and the detector's sample rate, and reports whether a
// new glottal-closure epoch was detected.
func (v *voicingState) process(zffOut, sampleRate float64) bool {
	prevZFF := v.lastZFF
	v.lastZFF = zffOut
	v.samplesSinceEpoch++

	epoch := false
	if prevZFF < 0 && zffOut >= 0 {
		epoch = true
		delta := v.samplesSinceEpoch
		v.samplesSinceEpoch = 0

		if delta > 0 {
			raw := sampleRate / float64(delta)
			if raw >= 50 && raw <= 600 {
				v.rawF0 = raw
				v.acceptCandidate(raw)
				v.voicingCounter = 5
			}
		}
	}

	if v.voicingCounter > 0 {
		v.voicingCounter--
	}
	v.isVoiced = v.voicingCounter > 0 || v.samplesSinceEpoch < v.voicedHoldSamples

	prevSmoothed := v.smoothedF0
	v.updateF0Baseline(sampleRate)
	v.f0Derivative = v.smoothedF0 - prevSmoothed

	if v.smoothedF0 > 0 {
		if v.minF0SincePeak == 0 || v.smoothedF0 < v.minF0SincePeak {
			v.minF0SincePeak = v.smoothedF0
		}
		if v.smoothedF0 > v.minF0SincePeak*1.05 {
			v.f0HasRisen = true
		}
	} else if !v.isVoiced {
		v.f0HasRisen = true
	}

	return epoch
}

// acceptCandidate folds one accepted raw F0 candidate into the smoothed F0,
// with a three-strikes jump-confirmation rule before accepting a large step.
func (v *voicingState) acceptCandidate(raw float64) {
	if !v.hasAcceptedFirst {
		v.smoothedF0 = raw
		v.hasAcceptedFirst = true
		return
	}

	if math.Abs(raw-v.smoothedF0)/v.smoothedF0 < 0.2 {
		v.smoothedF0 = 0.7*v.smoothedF0 + 0.3*raw
		v.jumpCounter = 0
		return
	}

	v.jumpCounter++
	if v.jumpCounter >= 3 {
		v.smoothedF0 = raw
		v.jumpCounter = 0
	}
}

const f0BaselineTauSeconds = 1.0

// updateF0Baseline folds the current smoothed F0 into a slow (~1s) EMA
// baseline, only while voicing is plausible (smoothedF0 > 50 Hz), and
// refreshes the semitone difference from that baseline.
func (v *voicingState) updateF0Baseline(sampleRate float64) {
	if v.smoothedF0 > 50 {
		alpha := 1 - math.Exp(-1.0/(sampleRate*f0BaselineTauSeconds))
		if v.f0Baseline == 0 {
			v.f0Baseline = v.smoothedF0
		} else {
			v.f0Baseline += alpha * (v.smoothedF0 - v.f0Baseline)
		}
	}

	if v.f0Baseline > 0 && v.smoothedF0 > 0 {
		v.semitoneDiff = 12 * math.Log2(v.smoothedF0/v.f0Baseline)
	} else {
		v.semitoneDiff = 0
	}
}

// resetOnsetTracking clears the per-syllable F0-rise tracking state; called
// on IDLE -> ONSET_RISING transition.
func (v *voicingState) resetOnsetTracking() {
	v.minF0SincePeak = 0
	v.f0HasRisen = false
}
