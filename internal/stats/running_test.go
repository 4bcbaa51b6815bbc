package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSigmoidNormalizeIsNeutralBeforeEnoughSamples(t *testing.T) {
	r := NewRunning(16000, 500)
	for i := 0; i < 50; i++ {
		r.Update(1.0)
	}
	v, c := r.SigmoidNormalize(1.0)
	assert.Equal(t, 0.5, v)
	assert.Equal(t, 0.1, c)
}

func TestSigmoidNormalizeConvergesAboveMean(t *testing.T) {
	r := NewRunning(16000, 50)
	for i := 0; i < 5000; i++ {
		r.Update(float64(i % 2)) // alternating 0/1 gives a nonzero spread
	}
	for i := 0; i < 200; i++ {
		r.Update(0.0)
	}

	v, c := r.SigmoidNormalize(10.0)
	assert.Greater(t, v, 0.5, "a value far above the mean should normalize above 0.5")
	assert.Greater(t, c, 0.1)
}

func TestLegacyNormalizeClampsToUnitRange(t *testing.T) {
	r := NewRunning(16000, 50)
	for i := 0; i < 5000; i++ {
		r.Update(1.0 + float64(i%3)*0.01) // small spread around mean 1.0
	}

	low := r.LegacyNormalize(-1000)
	high := r.LegacyNormalize(1000)
	assert.Equal(t, 0.0, low)
	assert.Equal(t, 1.0, high)
}

func TestFastSigmoidIsOddAndBounded(t *testing.T) {
	assert.Equal(t, 0.0, FastSigmoid(0))
	assert.InDelta(t, -FastSigmoid(3), FastSigmoid(-3), 1e-12)
	assert.Less(t, FastSigmoid(1000), 1.0)
	assert.Greater(t, FastSigmoid(-1000), -1.0)
}
