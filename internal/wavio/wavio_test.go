package wavio

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundtrip(t *testing.T) {
	const sampleRate = 16000
	samples := make([]float32, sampleRate/10)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/sampleRate))
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleRate, samples))

	f, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleRate, f.Format.SampleRate)
	assert.Equal(t, 1, f.Format.Channels)
	assert.Len(t, f.Samples, len(samples))

	for i := range samples {
		assert.InDelta(t, samples[i], f.Samples[i], 1.0/32767*2)
	}
}

func TestDecodeRejectsNonRIFF(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("not a wav file at all")))
	assert.Error(t, err)
}

func TestMixSinePulseStaysInBounds(t *testing.T) {
	samples := make([]float32, 16000)
	MixSinePulse(samples, 16000, 8000, 1000, 50, 0.5)

	var maxAbs float32
	for _, s := range samples {
		if abs := float32(math.Abs(float64(s))); abs > maxAbs {
			maxAbs = abs
		}
	}
	assert.Greater(t, maxAbs, float32(0))
	assert.LessOrEqual(t, maxAbs, float32(0.51))
}
