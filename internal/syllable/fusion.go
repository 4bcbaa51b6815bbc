package syllable

import (
	"math"

	"github.com/Suke-go/syllabledetection/internal/stats"
)

// computeFusionScore dispatches to the offline or real-time fusion formula
// depending on configuration and calibration state.
func (d *Detector) computeFusionScore() float64 {
	if d.cfg.RealtimeMode && !d.cal.isCalibrating {
		return d.fusionRealtime()
	}
	return d.fusionOffline()
}

// fusionOffline is the offline fusion formula: an energy-gated blend of the
// max and the weighted average of sigmoid-normalized feature values,
// damped when average confidence across the active features is low.
// Feature raw values are read from the detector's last-computed per-sample
// snapshot (d.wip, d.currentPR); each DSP module's Process was already
// called once per sample in processSample before this runs.
func (d *Detector) fusionOffline() float64 {
	if d.currentEnergy < 1e-6 || d.currentEnergy < 1.5*d.energyFloor {
		return 0
	}

	var weightedNum, weightedDen float64
	var maxVal float64
	haveMax := false
	var confSum float64
	var confCount int

	add := func(enabled bool, raw, weight float64, tracker *stats.Running, countConfidence bool) {
		if !enabled {
			return
		}
		v, c := tracker.SigmoidNormalize(raw)
		weightedNum += weight * v
		weightedDen += weight
		if !haveMax || v > maxVal {
			maxVal = v
			haveMax = true
		}
		if countConfidence {
			confSum += c
			confCount++
		}
	}

	add(true, d.currentPR, d.cfg.Weights.PeakRate, d.statPeakRate, true)
	add(d.cfg.EnableSpectralFlux, d.wip.spectralFlux, d.cfg.Weights.SpectralFlux, d.statFlux, true)
	add(d.cfg.EnableHFE, d.wip.highFreqEnergy, d.cfg.Weights.HFE, d.statHFE, true)
	add(d.cfg.EnableMFCC, d.wip.mfccDelta, d.cfg.Weights.MFCC, d.statMFCC, true)
	// wavelet confidence is excluded from the confidence average: a wavelet
	// score has no meaningful sample-starvation regime the way the other
	// channels do, so its confidence is not representative.
	add(d.cfg.EnableWavelet, d.wip.waveletScore, d.cfg.Weights.Wavelet, d.statWavelet, false)

	voicedVal := 0.0
	if d.voicing.isVoiced {
		voicedVal = 1.0
	}
	weightedNum += d.cfg.Weights.VoicedBonus * voicedVal
	weightedDen += d.cfg.Weights.VoicedBonus

	weightedAvg := 0.0
	if weightedDen > 0 {
		weightedAvg = weightedNum / weightedDen
	}
	if !haveMax {
		maxVal = 0
	}

	fusion := d.cfg.FusionBlendAlpha*maxVal + (1-d.cfg.FusionBlendAlpha)*weightedAvg

	avgConfidence := 0.5
	if confCount > 0 {
		avgConfidence = confSum / float64(confCount)
	}
	if avgConfidence < 0.3 {
		fusion *= 0.5 + avgConfidence
	}

	return fusion
}

// fusionRealtime is the calibrated-threshold fusion formula used once
// real-time calibration has finished: a geometric mean of per-feature
// ratios over their calibrated thresholds, for features whose ratio
// exceeds 1, plus a voicing bonus.
func (d *Detector) fusionRealtime() float64 {
	type ratioFeature struct {
		enabled   bool
		value     float64
		threshold float64
	}

	ratios := []ratioFeature{
		{true, d.currentEnergy, d.cal.thresholds[calFeatEnergy]},
		{true, d.currentPR, d.cal.thresholds[calFeatPeakRate]},
		{d.cfg.EnableSpectralFlux, d.wip.spectralFlux, d.cal.thresholds[calFeatSpectralFlux]},
		{d.cfg.EnableHFE, d.wip.highFreqEnergy, d.cal.thresholds[calFeatHFE]},
		{d.cfg.EnableMFCC, d.wip.mfccDelta, d.cal.thresholds[calFeatMFCC]},
		{d.cfg.EnableWavelet, d.wip.waveletScore, d.cal.thresholds[calFeatWavelet]},
	}

	var logSum float64
	active := 0
	for _, r := range ratios {
		if !r.enabled || r.threshold <= 0 {
			continue
		}
		ratio := r.value / r.threshold
		if ratio > 1 {
			logSum += math.Log(ratio)
			active++
		}
	}

	voicingFrac := float64(d.voicing.voicingCounter) / 5.0
	if voicingFrac > 0.5 {
		active++
		bonus := voicingFrac
		if bonus > 1 {
			bonus = 1
		}
		logSum += math.Log(1 + bonus)
	}

	if active == 0 {
		return 0
	}

	geoMean := math.Exp(logSum / float64(active))
	return 1 - 1/(1+0.5*geoMean)
}

// updateEnergyFloor advances the adaptive noise-floor estimate: fast-fall
// while the envelope is below the floor (or the floor is uninitialized),
// slow-rise otherwise.
func (d *Detector) updateEnergyFloor() {
	if d.currentEnergy < d.energyFloor || d.energyFloor < 1e-8 {
		d.energyFloor = d.currentEnergy
	} else {
		d.energyFloor = 0.9999*d.energyFloor + 0.0001*d.currentEnergy
	}
}
