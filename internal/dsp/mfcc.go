package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	mfccNumFilters = 26
	mfccNumCoeffs  = 13
)

// MFCCDelta computes, on the same Hann-windowed hop-triggered frame basis as
// SpectralFlux, a type-II orthonormal-DCT MFCC vector per frame and exposes
// the L2 distance between successive frames' coefficient vectors.
type MFCCDelta struct {
	fft    *fourier.FFT
	window []float64
	fb     *FrameBuffer

	windowed []float64
	melFB    [][]float64
	dct      [][]float64 // precomputed dctScale*cos(pi*i*(j+0.5)/numFilters)

	prevCoeffs []float64
	curCoeffs  []float64

	delta float64
}

// NewMFCCDelta builds an MFCC-delta analyzer; fftSize must already be a
// power of two, hopSize in samples, sampleRate in Hz.
func NewMFCCDelta(sampleRate float64, fftSize, hopSize int) *MFCCDelta {
	m := &MFCCDelta{
		fft:        fourier.NewFFT(fftSize),
		window:     HannWindow(fftSize),
		fb:         NewFrameBuffer(fftSize, hopSize),
		windowed:   make([]float64, fftSize),
		melFB:      melFilterbank(mfccNumFilters, fftSize, sampleRate),
		dct:        dctMatrix(mfccNumCoeffs, mfccNumFilters),
		prevCoeffs: make([]float64, mfccNumCoeffs),
		curCoeffs:  make([]float64, mfccNumCoeffs),
	}
	return m
}

// Reset clears all frame and coefficient history.
func (m *MFCCDelta) Reset() {
	m.fb.Reset()
	for i := range m.prevCoeffs {
		m.prevCoeffs[i] = 0
	}
	for i := range m.curCoeffs {
		m.curCoeffs[i] = 0
	}
	m.delta = 0
}

// Process pushes one sample and reports whether a new frame was analyzed
// (in which case Delta reflects it).
func (m *MFCCDelta) Process(x float64) bool {
	if !m.fb.Push(x) {
		return false
	}

	frame := m.fb.Frame()
	for i, v := range frame {
		m.windowed[i] = v * m.window[i]
	}

	coeffs := m.fft.Coefficients(nil, m.windowed)
	nBins := len(m.melFB[0])

	power := make([]float64, nBins)
	for k := 0; k < nBins; k++ {
		re, im := real(coeffs[k]), imag(coeffs[k])
		power[k] = re*re + im*im
	}

	melEnergies := make([]float64, mfccNumFilters)
	for i := 0; i < mfccNumFilters; i++ {
		var e float64
		filt := m.melFB[i]
		for j := 0; j < nBins; j++ {
			e += power[j] * filt[j]
		}
		if e < 1e-10 {
			e = 1e-10
		}
		melEnergies[i] = math.Log(e)
	}

	m.prevCoeffs, m.curCoeffs = m.curCoeffs, m.prevCoeffs
	for i := 0; i < mfccNumCoeffs; i++ {
		var sum float64
		row := m.dct[i]
		for j := 0; j < mfccNumFilters; j++ {
			sum += melEnergies[j] * row[j]
		}
		m.curCoeffs[i] = sum
	}

	var sqDist float64
	for i := 0; i < mfccNumCoeffs; i++ {
		d := m.curCoeffs[i] - m.prevCoeffs[i]
		sqDist += d * d
	}
	m.delta = math.Sqrt(sqDist)

	return true
}

// Delta returns the most recently computed frame's MFCC delta (L2 distance
// from the previous frame's coefficient vector).
func (m *MFCCDelta) Delta() float64 { return m.delta }

func hzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

func melToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// melFilterbank builds numFilters triangular Mel filters spanning 80Hz to
// Nyquist, with edges equally spaced in Mel scale.
func melFilterbank(numFilters, fftSize int, sampleRate float64) [][]float64 {
	nyquist := sampleRate / 2
	lowMel := hzToMel(80)
	highMel := hzToMel(nyquist)

	melPoints := make([]float64, numFilters+2)
	for i := range melPoints {
		melPoints[i] = lowMel + float64(i)*(highMel-lowMel)/float64(numFilters+1)
	}

	hzPoints := make([]float64, numFilters+2)
	for i := range hzPoints {
		hzPoints[i] = melToHz(melPoints[i])
	}

	nBins := fftSize / 2
	binPoints := make([]int, numFilters+2)
	for i := range binPoints {
		binPoints[i] = int(math.Floor(hzPoints[i] * float64(fftSize) / sampleRate))
	}

	filters := make([][]float64, numFilters)
	for i := 0; i < numFilters; i++ {
		filters[i] = make([]float64, nBins)
		for j := binPoints[i]; j < binPoints[i+1] && j < nBins; j++ {
			if binPoints[i+1] != binPoints[i] {
				filters[i][j] = float64(j-binPoints[i]) / float64(binPoints[i+1]-binPoints[i])
			}
		}
		for j := binPoints[i+1]; j < binPoints[i+2] && j < nBins; j++ {
			if binPoints[i+2] != binPoints[i+1] {
				filters[i][j] = float64(binPoints[i+2]-j) / float64(binPoints[i+2]-binPoints[i+1])
			}
		}
	}
	return filters
}

// dctMatrix precomputes the type-II orthonormal DCT matrix mapping
// numFilters Mel log-energies to numCoeffs cepstral coefficients.
func dctMatrix(numCoeffs, numFilters int) [][]float64 {
	scale := math.Sqrt(2.0 / float64(numFilters))
	m := make([][]float64, numCoeffs)
	for i := 0; i < numCoeffs; i++ {
		rowScale := scale
		if i == 0 {
			rowScale = math.Sqrt(1.0 / float64(numFilters))
		}
		m[i] = make([]float64, numFilters)
		for j := 0; j < numFilters; j++ {
			m[i][j] = rowScale * math.Cos(math.Pi*float64(i)*(float64(j)+0.5)/float64(numFilters))
		}
	}
	return m
}
