package syllable

import (
	"math"

	"github.com/Suke-go/syllabledetection/internal/types"
)

// processSample advances every DSP module and the state machine by one
// sample. It is the detector's entire per-sample hot path.
func (d *Detector) processSample(x float64) {
	if d.agc != nil {
		x = d.agc.Process(x)
	}

	zffOut := d.zff.Process(x)
	d.voicing.process(zffOut, d.sampleRate)

	bpOut := d.bandpass.Process(x)
	envOut := d.formantEnv.Process(bpOut)
	peakRate := envOut - d.prevEnvOut
	if peakRate < 0 {
		peakRate = 0
	}
	d.prevEnvOut = envOut
	d.currentPR = peakRate
	d.currentEnergy = envOut

	if d.flux != nil {
		d.flux.Process(x)
		d.wip.spectralFlux = d.flux.Flux()
	}
	if d.hfe != nil {
		d.wip.highFreqEnergy = d.hfe.Process(x)
	}
	if d.mfcc != nil {
		d.mfcc.Process(x)
		d.wip.mfccDelta = d.mfcc.Delta()
	}
	if d.wavelet != nil {
		d.wip.waveletScore = d.wavelet.Process(x)
	}

	teoVal := d.teo.Process(x)
	lerVal := d.ler.Process(x)

	d.updateEnergyFloor()

	d.statPeakRate.Update(d.currentPR)
	if d.cfg.EnableSpectralFlux {
		d.statFlux.Update(d.wip.spectralFlux)
	}
	if d.cfg.EnableHFE {
		d.statHFE.Update(d.wip.highFreqEnergy)
	}
	if d.cfg.EnableMFCC {
		d.statMFCC.Update(d.wip.mfccDelta)
	}
	if d.cfg.EnableWavelet {
		d.statWavelet.Update(d.wip.waveletScore)
	}

	if d.cal.isCalibrating {
		d.cal.observe(d.cfg, d.currentEnergy, d.currentPR, d.wip.spectralFlux, d.wip.highFreqEnergy, d.wip.mfccDelta, d.wip.waveletScore)
	}

	fusion := d.computeFusionScore()
	d.pushFusionHistory(fusion)

	d.sampleCounter++
	d.stateTimerSamples++

	if d.cfg.RealtimeMode && d.cal.isCalibrating {
		return
	}

	d.stepStateMachine(fusion, teoVal, lerVal)
}

// pushFusionHistory maintains the fusion history ring (parity with the
// reference state model; not otherwise consulted by the fusion formulas).
func (d *Detector) pushFusionHistory(fusion float64) {
	d.fusionHistory[d.fusionHistPos] = fusion
	d.fusionHistPos = (d.fusionHistPos + 1) % len(d.fusionHistory)
	if d.fusionHistCount < len(d.fusionHistory) {
		d.fusionHistCount++
	}

	var sum float64
	for i := 0; i < d.fusionHistCount; i++ {
		sum += d.fusionHistory[i]
	}
	mean := sum / float64(d.fusionHistCount)

	var madSum float64
	for i := 0; i < d.fusionHistCount; i++ {
		madSum += math.Abs(d.fusionHistory[i] - mean)
	}

	d.fusionMean = mean
	d.fusionMAD = madSum / float64(d.fusionHistCount)
}

// stepStateMachine evaluates triggers and advances the four-state
// onset/nucleus/cooldown machine by one sample.
func (d *Detector) stepStateMachine(fusion, teoVal, lerVal float64) {
	switch d.state {
	case types.Idle:
		d.tryEnterOnset(fusion, teoVal, lerVal)
	case types.OnsetRising:
		d.stepOnsetRising(fusion)
	case types.Nucleus:
		d.stepNucleus(fusion)
	case types.Cooldown:
		d.stepCooldown()
	}
}

func (d *Detector) adaptiveThresholdOn() float64 {
	base := d.cfg.ThresholdPeakRate
	if d.cfg.AdaptivePeakRateK > 0 {
		adaptive := d.statPeakRate.Mean() + d.cfg.AdaptivePeakRateK*d.statPeakRate.StdDev()
		if adaptive > base {
			base = adaptive
		}
	}
	return base * d.cfg.HysteresisOnFactor
}

func (d *Detector) energyGatePassed() bool {
	if !d.cfg.RealtimeMode {
		return true
	}
	return d.currentEnergy > 3*d.cal.thresholds[calFeatEnergy] && d.currentEnergy > 1e-3
}

func (d *Detector) tryEnterOnset(fusion, teoVal, lerVal float64) {
	voiced := d.voicing.isVoiced

	voicedTrigger := d.currentPR > d.adaptiveThresholdOn() && voiced
	fusionTrigger := fusion > 0.6*d.cfg.HysteresisOnFactor && (d.cfg.AllowUnvoicedOnsets || voiced)

	unvoicedTrigger := false
	if !voiced && d.cfg.AllowUnvoicedOnsets {
		sfNorm := d.statFlux.LegacyNormalize(d.wip.spectralFlux)
		hfeNorm := d.statHFE.LegacyNormalize(d.wip.highFreqEnergy)
		if sfNorm > d.cfg.UnvoicedOnsetThreshold || hfeNorm > d.cfg.UnvoicedOnsetThreshold {
			unvoicedTrigger = true
		}
	}

	if !(voicedTrigger || fusionTrigger || unvoicedTrigger) {
		return
	}

	if !d.f0AllowsNewOnset(fusion, teoVal, lerVal) {
		return
	}
	if !d.energyGatePassed() {
		return
	}

	d.enterOnset(voiced)
}

// f0AllowsNewOnset implements the gate of spec.md §4.11: an F0-rise
// requirement with a strong-evidence bypass and a long-gap bypass, forced
// true in realtime mode.
func (d *Detector) f0AllowsNewOnset(fusion, teoVal, lerVal float64) bool {
	if d.cfg.RealtimeMode {
		return true
	}
	if d.voicing.f0HasRisen {
		return true
	}
	if fusion > 0.85 {
		return true
	}
	if d.teo.ZScore(teoVal) > 3 {
		return true
	}
	if lerVal > 2 {
		return true
	}
	if d.flux != nil && d.flux.WeberFlatness() < -0.3 {
		return true
	}

	if d.lastEventSamples < 0 {
		return false
	}
	elapsed := d.sampleCounter - uint64(d.lastEventSamples)
	return float64(elapsed) > 2*float64(d.msToSamples(d.cfg.MinSyllableDistMs))
}

func (d *Detector) enterOnset(voiced bool) {
	d.wip.onsetSample = d.sampleCounter
	d.wip.peakRate = d.currentPR
	d.wip.energy = d.currentEnergy
	d.wip.f0 = d.voicing.smoothedF0
	d.wip.peakSampleOffset = 0

	hfeNorm := d.statHFE.LegacyNormalize(d.wip.highFreqEnergy)
	switch {
	case voiced && hfeNorm > 0.5:
		d.wip.onsetType = types.Mixed
	case voiced:
		d.wip.onsetType = types.Voiced
	default:
		d.wip.onsetType = types.Unvoiced
	}

	d.voicing.resetOnsetTracking()
	d.state = types.OnsetRising
	d.stateTimerSamples = 0
	d.maxPR = d.currentPR
	d.maxFusion = 0
	d.energyAccum = d.currentEnergy
}

func (d *Detector) stepOnsetRising(fusion float64) {
	if d.currentPR > d.maxPR {
		d.maxPR = d.currentPR
		d.wip.peakRate = d.maxPR
		d.wip.peakSampleOffset = d.stateTimerSamples
	}
	if fusion > d.maxFusion {
		d.maxFusion = fusion
	}
	d.energyAccum += d.currentEnergy

	if d.wip.onsetType == types.Voiced && !d.voicing.isVoiced {
		d.finalizeToCooldown()
		return
	}

	timerMs := float64(d.stateTimerSamples) / d.sampleRate * 1000.0
	if d.currentPR < 0.5*d.maxPR || fusion < 0.6*d.maxFusion || timerMs > 50 {
		riseTimeS := float64(d.wip.peakSampleOffset)/d.sampleRate + 1e-4
		d.wip.prSlope = d.maxPR / riseTimeS
		d.state = types.Nucleus
		d.stateTimerSamples = 0
	}
}

func (d *Detector) stepNucleus(fusion float64) {
	d.energyAccum += d.currentEnergy
	if fusion > d.maxFusion {
		d.maxFusion = fusion
	}

	exit := false
	if !d.cfg.RealtimeMode && d.currentEnergy < 0.1*d.wip.peakRate {
		exit = true
	}
	if d.cfg.RealtimeMode && d.currentEnergy < 0.2*d.wip.energy {
		exit = true
	}
	if d.wip.onsetType == types.Voiced && !d.voicing.isVoiced {
		exit = true
	}
	if fusion < 0.4*d.cfg.HysteresisOffFactor {
		exit = true
	}
	timerMs := float64(d.stateTimerSamples) / d.sampleRate * 1000.0
	if timerMs > 100 {
		exit = true
	}

	if exit {
		d.finalizeToCooldown()
	}
}

func (d *Detector) finalizeToCooldown() {
	durationSamples := d.sampleCounter - d.wip.onsetSample
	durationS := float64(durationSamples) / d.sampleRate

	ev := types.Event{
		TimestampSamples: d.wip.onsetSample,
		TimeSeconds:      d.timeSeconds(d.wip.onsetSample),
		PeakRate:         float32(d.maxPR),
		PRSlope:          float32(d.wip.prSlope),
		Energy:           float32(d.energyAccum),
		F0:               float32(d.voicing.smoothedF0),
		DurationS:        float32(durationS),
		SpectralFlux:     float32(d.wip.spectralFlux),
		HighFreqEnergy:   float32(d.wip.highFreqEnergy),
		MFCCDelta:        float32(d.wip.mfccDelta),
		WaveletScore:     float32(d.wip.waveletScore),
		FusionScore:      float32(d.maxFusion),
		OnsetType:        d.wip.onsetType,
	}
	d.ring.Push(ev)
	d.lastEventSamples = int64(d.sampleCounter)

	d.state = types.Cooldown
	d.stateTimerSamples = 0
}

func (d *Detector) stepCooldown() {
	timerMs := float64(d.stateTimerSamples) / d.sampleRate * 1000.0
	if timerMs > d.cfg.MinSyllableDistMs {
		d.state = types.Idle
		d.stateTimerSamples = 0
	}
}
