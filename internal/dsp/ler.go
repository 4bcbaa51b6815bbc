package dsp

import "math"

// LER is the Local Energy Ratio: a short-term EMA of squared sample energy
// divided by a long-term EMA of the same, clamped to a bounded range.
type LER struct {
	shortCoeff, longCoeff float64
	shortEMA, longEMA     float64
}

// NewLER builds an LER tracker with short/long EMA time constants in
// milliseconds.
func NewLER(sampleRate, shortMs, longMs float64) *LER {
	l := &LER{}
	l.Configure(sampleRate, shortMs, longMs)
	return l
}

// Configure (re)derives the EMA coefficients from time constants in ms.
func (l *LER) Configure(sampleRate, shortMs, longMs float64) {
	l.shortCoeff = 1 - math.Exp(-1.0/(sampleRate*shortMs*0.001))
	l.longCoeff = 1 - math.Exp(-1.0/(sampleRate*longMs*0.001))
	l.Reset()
}

// Reset clears both EMAs.
func (l *LER) Reset() {
	l.shortEMA, l.longEMA = 0, 0
}

// Process advances both EMAs with the squared sample and returns the
// clamped short/long ratio.
func (l *LER) Process(x float64) float64 {
	sq := x * x
	l.shortEMA += l.shortCoeff * (sq - l.shortEMA)
	l.longEMA += l.longCoeff * (sq - l.longEMA)

	if l.longEMA < 1e-12 {
		return 0
	}
	ratio := l.shortEMA / l.longEMA
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 10 {
		ratio = 10
	}
	return ratio
}
