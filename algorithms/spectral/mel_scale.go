package spectral

import (
	"math"
)

// MelScale provides mel frequency conversion and triangular filter banks.
// Frequencies are mapped with the HTK formula.
type MelScale struct {
	// areaNormalize scales each filter to unit area (2 / bandwidth), so that
	// wide high-frequency filters do not dominate the narrow low ones.
	areaNormalize bool
}

// NewMelScale creates a mel scale with area-normalized filters
func NewMelScale() *MelScale {
	return &MelScale{areaNormalize: true}
}

// NewMelScaleUnnormalized creates a mel scale whose filters peak at 1.0
func NewMelScaleUnnormalized() *MelScale {
	return &MelScale{}
}

// HzToMel converts frequency in Hz to mel scale
func (ms *MelScale) HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz converts mel scale to frequency in Hz
func (ms *MelScale) MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// CreateMelFilterBank creates numFilters triangular filters over the
// fftSize/2+1 positive FFT bins. Filter edges fall between bins, and bin
// weights are interpolated from the bin's exact center frequency.
func (ms *MelScale) CreateMelFilterBank(numFilters int, fftSize int, sampleRate int, lowFreq, highFreq float64) [][]float64 {
	if numFilters <= 0 || fftSize <= 0 || sampleRate <= 0 {
		return nil
	}
	if highFreq <= 0 || highFreq > float64(sampleRate)/2 {
		highFreq = float64(sampleRate) / 2
	}

	numBins := fftSize/2 + 1
	binFreqs := make([]float64, numBins)
	for k := range binFreqs {
		binFreqs[k] = float64(k) * float64(sampleRate) / float64(fftSize)
	}

	lowMel := ms.HzToMel(lowFreq)
	highMel := ms.HzToMel(highFreq)
	hzPoints := make([]float64, numFilters+2)
	melStep := (highMel - lowMel) / float64(numFilters+1)
	for i := range hzPoints {
		hzPoints[i] = ms.MelToHz(lowMel + float64(i)*melStep)
	}

	filterBank := make([][]float64, numFilters)
	for m := range numFilters {
		left, center, right := hzPoints[m], hzPoints[m+1], hzPoints[m+2]
		filter := make([]float64, numBins)

		scale := 1.0
		if ms.areaNormalize && right > left {
			scale = 2.0 / (right - left)
		}

		for k, f := range binFreqs {
			lower := 0.0
			if center > left {
				lower = (f - left) / (center - left)
			}
			upper := 0.0
			if right > center {
				upper = (right - f) / (right - center)
			}
			if w := math.Min(lower, upper); w > 0 {
				filter[k] = w * scale
			}
		}
		filterBank[m] = filter
	}

	return filterBank
}

// ApplyFilterBank applies mel filter bank to power spectrum
func (ms *MelScale) ApplyFilterBank(powerSpectrum []float64, filterBank [][]float64) []float64 {
	if len(filterBank) == 0 || len(powerSpectrum) == 0 {
		return []float64{}
	}

	melSpectrum := make([]float64, len(filterBank))

	for i, filter := range filterBank {
		sum := 0.0
		for j := 0; j < len(filter) && j < len(powerSpectrum); j++ {
			sum += powerSpectrum[j] * filter[j]
		}
		melSpectrum[i] = sum
	}

	return melSpectrum
}
