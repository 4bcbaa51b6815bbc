package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBiquadBandpassAttenuatesDC(t *testing.T) {
	var bq Biquad
	bq.ConfigureBandpass(16000, 1850, 1850.0/2700)

	var out float64
	for i := 0; i < 1000; i++ {
		out = bq.Process(1.0)
	}
	assert.Less(t, math.Abs(out), 0.01, "a bandpass filter should settle near zero on a DC input")
}

func TestBiquadHighpassAttenuatesDC(t *testing.T) {
	var bq Biquad
	bq.ConfigureHighpassButterworth(16000, 2000)

	var out float64
	for i := 0; i < 1000; i++ {
		out = bq.Process(1.0)
	}
	assert.Less(t, math.Abs(out), 0.01)
}

func TestBiquadResetHistoryPreservesCoefficients(t *testing.T) {
	var bq Biquad
	bq.ConfigureBandpass(16000, 1850, 0.7)
	bq.Process(1.0)
	bq.Process(0.5)

	before := bq.b0
	bq.ResetHistory()
	assert.Equal(t, before, bq.b0, "ResetHistory must not touch coefficients")
	assert.Equal(t, 0.0, bq.x1)
	assert.Equal(t, 0.0, bq.y1)
}
