package syllable

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSampleRate = 16000

func sineWave(freq, amplitude float64, seconds float64) []float32 {
	n := int(testSampleRate * seconds)
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amplitude * math.Sin(2*math.Pi*freq*float64(i)/testSampleRate))
	}
	return out
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig(0)
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig(testSampleRate)
	cfg.PeakRateBandMinHz = 3000
	cfg.PeakRateBandMaxHz = 500
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestZeroSamplesDoesNotMutateState(t *testing.T) {
	det, err := New(DefaultConfig(testSampleRate))
	require.NoError(t, err)

	out := make([]Event, 8)
	n, err := det.Process(nil, out)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, uint64(0), det.sampleCounter)
}

func TestMaxEventsZeroNeverWrites(t *testing.T) {
	det, err := New(DefaultConfig(testSampleRate))
	require.NoError(t, err)

	input := sineWave(440, 0.3, 2.0)
	out := make([]Event, 0)
	n, err := det.Process(input, out)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSilenceYieldsNoEvents(t *testing.T) {
	det, err := New(DefaultConfig(testSampleRate))
	require.NoError(t, err)

	input := make([]float32, testSampleRate*2)
	out := make([]Event, 16)
	n, err := det.Process(input, out)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n = det.Flush(out)
	assert.Equal(t, 0, n)
}

func TestFlatToneYieldsNoEvents(t *testing.T) {
	det, err := New(DefaultConfig(testSampleRate))
	require.NoError(t, err)

	input := sineWave(440, 0.3, 2.0)
	out := make([]Event, 16)
	total := 0
	n, err := det.Process(input, out)
	require.NoError(t, err)
	total += n
	total += det.Flush(out)

	assert.Equal(t, 0, total, "a flat sine tone has no onset transients and should not trigger the state machine")
}

func TestResetIsIdempotent(t *testing.T) {
	det, err := New(DefaultConfig(testSampleRate))
	require.NoError(t, err)

	input := sineWave(150, 0.5, 0.5)
	out := make([]Event, 16)
	_, _ = det.Process(input, out)

	det.Reset()
	snap1 := *det
	det.Reset()
	snap2 := *det

	assert.Equal(t, snap1.state, snap2.state)
	assert.Equal(t, snap1.sampleCounter, snap2.sampleCounter)
	assert.Equal(t, snap1.lastEventSamples, snap2.lastEventSamples)
}

func TestRealtimeModeSuppressesEventsDuringCalibration(t *testing.T) {
	cfg := DefaultConfig(testSampleRate)
	cfg.RealtimeMode = true
	cfg.CalibrationDurationMs = 500

	det, err := New(cfg)
	require.NoError(t, err)
	assert.True(t, det.IsCalibrating())

	input := sineWave(150, 0.8, 0.4) // shorter than the calibration window
	out := make([]Event, 16)
	n, err := det.Process(input, out)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, "idle", det.state.String())
}

func TestAmplitudeModulatedBurstsEmitInTimestampOrder(t *testing.T) {
	det, err := New(DefaultConfig(testSampleRate))
	require.NoError(t, err)

	var input []float32
	burstFreq := 120.0
	for b := 0; b < 5; b++ {
		burst := sineWave(burstFreq, 0.0, 0.2)
		for i := range burst {
			env := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(len(burst))))
			burst[i] = float32(env * 0.6 * math.Sin(2*math.Pi*burstFreq*float64(i)/testSampleRate))
		}
		input = append(input, burst...)
		input = append(input, make([]float32, int(testSampleRate*0.1))...)
	}

	out := make([]Event, 32)
	var events []Event
	n, err := det.Process(input, out)
	require.NoError(t, err)
	events = append(events, out[:n]...)
	n = det.Flush(out)
	events = append(events, out[:n]...)

	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i].TimestampSamples, events[i-1].TimestampSamples,
			"emitted events must be in non-decreasing timestamp order")
	}
}
