// Package syllable implements the streaming syllable/accent detector: a
// cascade of per-sample DSP primitives (internal/dsp) fused by a
// running-statistics normalizer (internal/stats) into a four-state
// onset/nucleus/cooldown machine, emitting prominence-scored events through
// a bounded look-ahead ring buffer (internal/ringbuffer).
//
// A Detector is a single-threaded streaming transducer: it is not safe for
// concurrent use by multiple goroutines, but independent Detector values
// are fully independent and may run on separate goroutines.
package syllable

import (
	"github.com/Suke-go/syllabledetection/internal/config"
	"github.com/Suke-go/syllabledetection/internal/dsp"
	"github.com/Suke-go/syllabledetection/internal/ringbuffer"
	"github.com/Suke-go/syllabledetection/internal/stats"
	"github.com/Suke-go/syllabledetection/internal/types"
)

// Config is the detector configuration. See internal/config for field
// documentation and defaults.
type Config = config.Config

// Event is a detected, prominence-scored syllable.
type Event = types.Event

// OnsetType classifies the voicing character of a syllable onset.
type OnsetType = types.OnsetType

const (
	Unvoiced = types.Unvoiced
	Voiced   = types.Voiced
	Mixed    = types.Mixed
)

// DefaultConfig returns the default configuration for sampleRate.
func DefaultConfig(sampleRate int) Config {
	return config.Default(sampleRate)
}

// wipEvent accumulates the feature snapshot for the syllable currently
// being tracked by the state machine.
type wipEvent struct {
	onsetSample     uint64
	onsetType       types.OnsetType
	peakRate        float64
	prSlope         float64
	energy          float64
	f0              float64
	spectralFlux    float64
	highFreqEnergy  float64
	mfccDelta       float64
	waveletScore    float64
	fusionScore     float64
	peakSampleOffset int
}

// Detector is a complete streaming syllable/accent detector instance.
type Detector struct {
	cfg        Config
	sampleRate float64

	sampleCounter uint64

	// --- DSP modules ---
	agc        *dsp.AGC
	zff        *dsp.ZFF
	bandpass   dsp.Biquad
	formantEnv *dsp.Envelope
	hfe        *dsp.HighFreqEnergy
	flux       *dsp.SpectralFlux
	mfcc       *dsp.MFCCDelta
	wavelet    *dsp.WaveletBank
	teo        *dsp.TEO
	ler        *dsp.LER

	// --- Voicing / F0 ---
	voicing voicingState

	// --- Energy ---
	prevEnvOut   float64
	currentPR    float64
	currentEnergy float64
	energyFloor  float64

	// --- Feature statistics ---
	statPeakRate   *stats.Running
	statFlux       *stats.Running
	statHFE        *stats.Running
	statMFCC       *stats.Running
	statWavelet    *stats.Running

	// --- Fusion history (tracked for state-model parity; see DESIGN.md) ---
	fusionHistory    [64]float64
	fusionHistLen    int
	fusionHistPos    int
	fusionHistCount  int
	fusionMean       float64
	fusionMAD        float64

	// --- State machine ---
	state               types.State
	stateTimerSamples   int
	wip                 wipEvent
	maxPR               float64
	maxFusion           float64
	energyAccum         float64
	lastEventSamples    int64 // signed: -1 means "no previous event"

	// --- Ring buffer / prominence ---
	ring ringbuffer.Ring

	// --- Real-time calibration ---
	cal calibration
}

// New validates cfg and constructs a fully initialized Detector. No
// partially initialized detector is ever returned.
func New(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Detector{cfg: cfg, sampleRate: float64(cfg.SampleRate)}
	d.buildModules()
	d.Reset()
	return d, nil
}

// buildModules allocates every DSP submodule once, per the enabled-feature
// toggles. Called only from New; Reset never reallocates.
func (d *Detector) buildModules() {
	sr := d.sampleRate
	cfg := d.cfg

	if cfg.EnableAGC {
		d.agc = dsp.NewAGC(sr, -23, 30)
	}

	d.zff = dsp.NewZFF(sr, cfg.ZFFTrendWindowMs)

	center := (cfg.PeakRateBandMinHz + cfg.PeakRateBandMaxHz) / 2
	bandwidth := cfg.PeakRateBandMaxHz - cfg.PeakRateBandMinHz
	q := center / bandwidth
	d.bandpass.ConfigureBandpass(sr, center, q)
	d.formantEnv = dsp.NewEnvelope(sr, 5.0, 20.0)

	if cfg.EnableHFE {
		d.hfe = dsp.NewHighFreqEnergy(sr, cfg.HighFreqCutoffHz, 10.0)
	}

	fftSize := dsp.NextPowerOfTwo(int(sr * cfg.FFTSizeMs / 1000.0))
	hopSize := int(sr * cfg.HopSizeMs / 1000.0)
	if hopSize < 1 {
		hopSize = 1
	}

	if cfg.EnableSpectralFlux {
		d.flux = dsp.NewSpectralFlux(fftSize, hopSize)
	}
	if cfg.EnableMFCC {
		d.mfcc = dsp.NewMFCCDelta(sr, fftSize, hopSize)
	}
	if cfg.EnableWavelet {
		d.wavelet = dsp.NewWaveletBank(sr, 2000, 6000, 3)
	}

	d.teo = dsp.NewTEO()
	d.ler = dsp.NewLER(sr, 20, 500)

	d.statPeakRate = stats.NewRunning(sr, cfg.AdaptivePeakRateTauMs)
	d.statFlux = stats.NewRunning(sr, cfg.AdaptivePeakRateTauMs)
	d.statHFE = stats.NewRunning(sr, cfg.AdaptivePeakRateTauMs)
	d.statMFCC = stats.NewRunning(sr, cfg.AdaptivePeakRateTauMs)
	d.statWavelet = stats.NewRunning(sr, cfg.AdaptivePeakRateTauMs)

	d.voicing.voicedHoldSamples = int(sr * cfg.VoicedHoldMs / 1000.0)
	if d.voicing.voicedHoldSamples < 1 {
		d.voicing.voicedHoldSamples = 1
	}

	d.cal.init(cfg)
}

// Reset zeroes all runtime state, clears every DSP module's history, and
// re-arms calibration if in realtime mode. Configuration is preserved, and
// so are the DSP coefficients, which depend only on it.
func (d *Detector) Reset() {
	d.sampleCounter = 0

	if d.agc != nil {
		d.agc.Reset()
	}
	d.zff.Reset()
	d.bandpass.ResetHistory()
	d.formantEnv.Reset()
	if d.hfe != nil {
		d.hfe.Reset()
	}
	if d.flux != nil {
		d.flux.Reset()
	}
	if d.mfcc != nil {
		d.mfcc.Reset()
	}
	if d.wavelet != nil {
		d.wavelet.Reset()
	}
	d.teo.Reset()
	d.ler.Reset()

	d.statPeakRate.Reset()
	d.statFlux.Reset()
	d.statHFE.Reset()
	d.statMFCC.Reset()
	d.statWavelet.Reset()

	d.voicing.reset()

	d.prevEnvOut = 0
	d.currentPR = 0
	d.currentEnergy = 0
	d.energyFloor = 0

	d.fusionHistory = [64]float64{}
	d.fusionHistPos = 0
	d.fusionHistCount = 0
	d.fusionMean = 0
	d.fusionMAD = 0

	d.state = types.Idle
	d.stateTimerSamples = 0
	d.wip = wipEvent{}
	d.maxPR = 0
	d.maxFusion = 0
	d.energyAccum = 0
	d.lastEventSamples = -1

	d.ring.Reset()

	d.cal.reset(d.cfg)
}

// Process consumes input, a block of mono samples, advancing the detector
// sample-by-sample, and writes up to len(eventsOut) newly ready events into
// eventsOut. It returns the number of events written.
func (d *Detector) Process(input []float32, eventsOut []Event) (int, error) {
	n := 0
	for _, s := range input {
		d.processSample(float64(s))
		n += d.drainReady(eventsOut[n:])
	}
	return n, nil
}

// Flush drains every remaining buffered event unconditionally, applying
// prominence with whatever context currently exists.
func (d *Detector) Flush(eventsOut []Event) int {
	n := 0
	for n < len(eventsOut) && d.ring.Pending() > 0 {
		idx := d.ring.NextIndex()
		ev := d.scoreProminence(idx, true)
		eventsOut[n] = ev
		d.ring.Advance()
		n++
	}
	return n
}

// SetRealtimeMode switches the threshold/fusion source and (re)arms
// calibration if enabling.
func (d *Detector) SetRealtimeMode(enabled bool) {
	d.cfg.RealtimeMode = enabled
	d.cal.reset(d.cfg)
}

// Recalibrate re-arms the real-time calibration window.
func (d *Detector) Recalibrate() {
	d.cal.reset(d.cfg)
}

// IsCalibrating reports whether the detector is within its initial
// real-time calibration window.
func (d *Detector) IsCalibrating() bool {
	return d.cfg.RealtimeMode && d.cal.isCalibrating
}

// SetSNRThreshold updates the SNR threshold (in dB) used by the next
// calibration finalize pass.
func (d *Detector) SetSNRThreshold(db float64) {
	d.cfg.SNRThresholdDB = db
}

// drainReady emits as many ready events as fit into out, given the current
// ring-buffer contents.
func (d *Detector) drainReady(out []Event) int {
	contextNeeded := d.cfg.ContextSize
	if d.cfg.RealtimeMode {
		contextNeeded = 0
	}

	n := 0
	for n < len(out) && d.ring.Pending() > contextNeeded {
		idx := d.ring.NextIndex()
		out[n] = d.scoreProminence(idx, false)
		d.ring.Advance()
		n++
	}
	return n
}

func (d *Detector) timeSeconds(sampleIdx uint64) float64 {
	return float64(sampleIdx) / d.sampleRate
}

// msToSamples converts a millisecond duration to a sample count at the
// detector's sample rate.
func (d *Detector) msToSamples(ms float64) int {
	return int(ms * d.sampleRate / 1000.0)
}

