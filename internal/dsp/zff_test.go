package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZFFDetectsPeriodicEpochs(t *testing.T) {
	const sampleRate = 16000.0
	const freq = 150.0

	z := NewZFF(sampleRate, 10)

	var crossings int
	var lastOut float64
	for i := 0; i < int(sampleRate*2); i++ {
		x := math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
		out := z.Process(x)
		if lastOut < 0 && out >= 0 {
			crossings++
		}
		lastOut = out
	}

	// ~150 Hz over 2s should produce roughly 300 positive-going crossings;
	// allow generous slack for the trend-removal settling period.
	assert.InDelta(t, 300, crossings, 60)
}

func TestZFFResetClearsIntegratorState(t *testing.T) {
	z := NewZFF(16000, 10)
	for i := 0; i < 500; i++ {
		z.Process(1.0)
	}
	z.Reset()
	out := z.Process(0)
	assert.Equal(t, 0.0, out)
}
