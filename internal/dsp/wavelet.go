package dsp

import "math"

const morletW0 = 6.0

type morletScale struct {
	kernelReal []float64
	kernelImag []float64

	hist     []float64
	histPos  int
	energy   float64
	prevEner float64
}

// WaveletBank is a bank of continuous Morlet wavelet kernels at
// logarithmically spaced scales. Each incoming sample is convolved against
// every scale's kernel via a per-scale circular history buffer; the bank's
// output score is the Weber-ratio-derived transient score, normalized by
// the total number of scales.
type WaveletBank struct {
	scales []morletScale
}

// NewWaveletBank builds a bank of numScales kernels logarithmically spaced
// between minFreq and maxFreq Hz at the given sample rate.
func NewWaveletBank(sampleRate, minFreq, maxFreq float64, numScales int) *WaveletBank {
	wb := &WaveletBank{scales: make([]morletScale, numScales)}
	for s := 0; s < numScales; s++ {
		var freq float64
		if numScales > 1 {
			ratio := maxFreq / minFreq
			freq = minFreq * math.Pow(ratio, float64(s)/float64(numScales-1))
		} else {
			freq = minFreq
		}

		sigma := morletW0 / (2 * math.Pi * freq)
		duration := 6 * sigma
		kernelSize := int(duration * sampleRate)
		if kernelSize%2 == 0 {
			kernelSize++
		}
		if kernelSize < 5 {
			kernelSize = 5
		}
		if kernelSize > 128 {
			kernelSize = 127 // keep odd after the >128 clamp
		}
		if kernelSize%2 == 0 {
			kernelSize++
		}

		center := kernelSize / 2
		re := make([]float64, kernelSize)
		im := make([]float64, kernelSize)
		var energySum float64
		for k := 0; k < kernelSize; k++ {
			t := float64(k-center) / sampleRate
			envelope := math.Exp(-(t * t) / (2 * sigma * sigma))
			re[k] = envelope * math.Cos(2*math.Pi*freq*t)
			im[k] = envelope * math.Sin(2*math.Pi*freq*t)
			energySum += re[k]*re[k] + im[k]*im[k]
		}
		norm := 1.0
		if energySum > 0 {
			norm = 1.0 / math.Sqrt(energySum)
		}
		for k := 0; k < kernelSize; k++ {
			re[k] *= norm
			im[k] *= norm
		}

		wb.scales[s] = morletScale{
			kernelReal: re,
			kernelImag: im,
			hist:       make([]float64, kernelSize),
		}
	}
	return wb
}

// Reset clears all per-scale history and energy tracking.
func (wb *WaveletBank) Reset() {
	for i := range wb.scales {
		sc := &wb.scales[i]
		for j := range sc.hist {
			sc.hist[j] = 0
		}
		sc.histPos = 0
		sc.energy = 0
		sc.prevEner = 0
	}
}

// Process convolves one new sample against every scale's kernel and returns
// the bank's transient score: the sum of half-wave-rectified per-scale
// Weber-ratio energy changes, divided by the total number of scales.
func (wb *WaveletBank) Process(x float64) float64 {
	var total float64
	for i := range wb.scales {
		sc := &wb.scales[i]
		n := len(sc.hist)

		sc.hist[sc.histPos] = x
		sc.histPos++
		if sc.histPos >= n {
			sc.histPos = 0
		}

		var re, im float64
		for k := 0; k < n; k++ {
			sample := sc.hist[(sc.histPos-1-k+2*n)%n]
			re += sample * sc.kernelReal[k]
			im += sample * sc.kernelImag[k]
		}

		sc.prevEner = sc.energy
		sc.energy = re*re + im*im

		weber := (sc.energy - sc.prevEner) / (sc.prevEner + 1e-6)
		if weber > 0 {
			total += weber
		}
	}

	return total / float64(len(wb.scales))
}
