package spectral

import (
	"github.com/mjibson/go-dsp/fft"
)

// FFT provides Fast Fourier Transform functionality backed by mjibson/go-dsp.
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the full complex spectrum of a real signal.
// go-dsp handles non power-of-two sizes.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	return fft.FFTReal(x)
}

// ComputePositive returns only the non-negative frequency bins
// (DC through Nyquist, len(x)/2+1 values).
func (f *FFT) ComputePositive(x []float64) []complex128 {
	full := f.Compute(x)
	if len(full) == 0 {
		return full
	}
	return full[:len(full)/2+1]
}
