package dsp

import "math"

// Envelope is an asymmetric attack/release envelope follower: it tracks the
// rectified input with a fast time constant while rising and a slower one
// while falling.
type Envelope struct {
	output       float64
	attackCoeff  float64
	releaseCoeff float64
}

// NewEnvelope builds an envelope follower with the given attack/release time
// constants in milliseconds.
func NewEnvelope(sampleRate, attackMs, releaseMs float64) *Envelope {
	e := &Envelope{}
	e.Configure(sampleRate, attackMs, releaseMs)
	return e
}

// Configure (re)computes the attack/release coefficients, clearing output.
func (e *Envelope) Configure(sampleRate, attackMs, releaseMs float64) {
	tAttack := attackMs * 0.001
	tRelease := releaseMs * 0.001
	if tAttack < 1.0e-5 {
		tAttack = 1.0e-5
	}
	if tRelease < 1.0e-5 {
		tRelease = 1.0e-5
	}

	e.attackCoeff = math.Exp(-1.0 / (sampleRate * tAttack))
	e.releaseCoeff = math.Exp(-1.0 / (sampleRate * tRelease))
	e.output = 0
}

// Reset clears the follower's output, keeping its coefficients.
func (e *Envelope) Reset() {
	e.output = 0
}

// Process advances the follower by one sample and returns the new output.
func (e *Envelope) Process(in float64) float64 {
	absIn := math.Abs(in)

	if absIn > e.output {
		e.output = e.attackCoeff*e.output + (1-e.attackCoeff)*absIn
	} else {
		e.output = e.releaseCoeff*e.output + (1-e.releaseCoeff)*absIn
	}

	return e.output
}

// Output returns the envelope's current value without advancing it.
func (e *Envelope) Output() float64 {
	return e.output
}
