package spectral

import "math/cmplx"

// PowerSpectrum converts spectra to power (squared magnitude).
type PowerSpectrum struct{}

// NewPowerSpectrum creates a new power spectrum calculator
func NewPowerSpectrum() *PowerSpectrum {
	return &PowerSpectrum{}
}

// Compute computes power from a magnitude spectrum
func (ps *PowerSpectrum) Compute(magnitudeSpectrum []float64) []float64 {
	power := make([]float64, len(magnitudeSpectrum))
	for i, mag := range magnitudeSpectrum {
		power[i] = mag * mag
	}
	return power
}

// ComputeComplex computes power directly from complex FFT bins.
func (ps *PowerSpectrum) ComputeComplex(spectrum []complex128) []float64 {
	power := make([]float64, len(spectrum))
	for i, c := range spectrum {
		a := cmplx.Abs(c)
		power[i] = a * a
	}
	return power
}

// ComputeFromSTFT computes a power spectrogram (time x frequency) from an STFT result
func (ps *PowerSpectrum) ComputeFromSTFT(stftResult *STFTResult) [][]float64 {
	power := make([][]float64, stftResult.TimeFrames)
	for t := range stftResult.TimeFrames {
		power[t] = ps.Compute(stftResult.Magnitude[t])
	}
	return power
}
