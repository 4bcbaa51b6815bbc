package dsp

// ZFF is a zero-frequency resonator: two cascaded leaky integrators followed
// by a wide-window moving-average trend subtractor. Its output is a
// low-frequency bipolar signal whose positive-going zero crossings mark
// glottal-closure epochs; the caller (the voicing/F0 stage) observes sign
// changes in Process's return value and is not part of this type.
type ZFF struct {
	leak float64

	int1, int2 float64

	trendBuf   []float64
	trendSum   float64
	trendPos   int
	trendCount int
}

const zffLeak = 0.999

// NewZFF builds a ZFF resonator whose trend window spans trendWindowMs
// milliseconds at sampleRate.
func NewZFF(sampleRate, trendWindowMs float64) *ZFF {
	z := &ZFF{leak: zffLeak}
	z.Configure(sampleRate, trendWindowMs)
	return z
}

// Configure (re)sizes the trend window and clears all history.
func (z *ZFF) Configure(sampleRate, trendWindowMs float64) {
	windowSamples := int(sampleRate * trendWindowMs * 0.001)
	if windowSamples < 1 {
		windowSamples = 1
	}
	z.trendBuf = make([]float64, windowSamples)
	z.Reset()
}

// Reset clears all filter and trend-window history without resizing.
func (z *ZFF) Reset() {
	z.int1, z.int2 = 0, 0
	z.trendSum = 0
	z.trendPos = 0
	z.trendCount = 0
	for i := range z.trendBuf {
		z.trendBuf[i] = 0
	}
}

// Process advances the resonator by one sample and returns zff_out: the
// double-integrated signal with its local moving-average trend removed.
func (z *ZFF) Process(in float64) float64 {
	z.int1 = z.leak*z.int1 + in
	z.int2 = z.leak*z.int2 + z.int1

	old := z.trendBuf[z.trendPos]
	z.trendBuf[z.trendPos] = z.int2
	z.trendSum += z.int2 - old
	z.trendPos++
	if z.trendPos >= len(z.trendBuf) {
		z.trendPos = 0
	}
	if z.trendCount < len(z.trendBuf) {
		z.trendCount++
	}

	trend := z.trendSum / float64(z.trendCount)
	return z.int2 - trend
}
