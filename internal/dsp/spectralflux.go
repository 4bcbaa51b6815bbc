package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// SpectralFlux computes, on a Hann-windowed hop-triggered frame basis, the
// rectified spectral flux (positive energy of magnitude-spectrum change)
// along with spectral flatness and its Weber-ratio derivative. Between
// frames, Flux/Flatness/WeberFlatness hold the last computed frame's values.
type SpectralFlux struct {
	fft    *fourier.FFT
	window []float64
	fb     *FrameBuffer

	windowed []float64
	prevMag  []float64
	curMag   []float64

	flux         float64
	flatness     float64
	prevFlatness float64
	weber        float64
}

// NewSpectralFlux builds a spectral-flux analyzer; fftSize must already be a
// power of two, hopSize in samples.
func NewSpectralFlux(fftSize, hopSize int) *SpectralFlux {
	nBins := fftSize / 2
	return &SpectralFlux{
		fft:      fourier.NewFFT(fftSize),
		window:   HannWindow(fftSize),
		fb:       NewFrameBuffer(fftSize, hopSize),
		windowed: make([]float64, fftSize),
		prevMag:  make([]float64, nBins),
		curMag:   make([]float64, nBins),
	}
}

// Reset clears all frame and magnitude history.
func (s *SpectralFlux) Reset() {
	s.fb.Reset()
	for i := range s.prevMag {
		s.prevMag[i] = 0
	}
	for i := range s.curMag {
		s.curMag[i] = 0
	}
	s.flux, s.flatness, s.prevFlatness, s.weber = 0, 0, 0, 0
}

// Process pushes one sample and reports whether a new frame was analyzed
// (in which case Flux/Flatness/WeberFlatness reflect it).
func (s *SpectralFlux) Process(x float64) bool {
	if !s.fb.Push(x) {
		return false
	}

	frame := s.fb.Frame()
	for i, v := range frame {
		s.windowed[i] = v * s.window[i]
	}

	coeffs := s.fft.Coefficients(nil, s.windowed)

	n := len(s.curMag)
	var fluxSum float64
	var logSum float64
	var arithSum float64
	validBins := 0

	for k := 1; k < n; k++ { // skip DC (k=0)
		re, im := real(coeffs[k]), imag(coeffs[k])
		mag := math.Sqrt(re*re + im*im)
		s.curMag[k] = mag

		diff := mag - s.prevMag[k]
		if diff > 0 {
			fluxSum += diff * diff
		}

		if mag > 1e-12 {
			logSum += math.Log(mag)
			arithSum += mag
			validBins++
		}
	}
	s.curMag[0] = 0

	s.flux = fluxSum / float64(n)

	s.prevFlatness = s.flatness
	if validBins > 0 && arithSum > 1e-10 {
		geoMean := math.Exp(logSum / float64(validBins))
		arithMean := arithSum / float64(validBins)
		flatness := geoMean / arithMean
		if flatness > 1 {
			flatness = 1
		}
		if flatness < 0 {
			flatness = 0
		}
		s.flatness = flatness
	} else {
		s.flatness = 0
	}
	s.weber = (s.flatness - s.prevFlatness) / (s.prevFlatness + 0.01)

	s.prevMag, s.curMag = s.curMag, s.prevMag

	return true
}

// Flux returns the most recently computed frame's spectral flux.
func (s *SpectralFlux) Flux() float64 { return s.flux }

// Flatness returns the most recently computed frame's spectral flatness.
func (s *SpectralFlux) Flatness() float64 { return s.flatness }

// WeberFlatness returns the Weber ratio of flatness change between the last
// two frames; negative means becoming more harmonic.
func (s *SpectralFlux) WeberFlatness() float64 { return s.weber }
