package common

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// MinMaxNormalize normalizes data to [0, 1] range. Constant data maps to
// all zeros.
func MinMaxNormalize(data []float64) []float64 {
	if len(data) == 0 {
		return data
	}

	lo := floats.Min(data)
	hi := floats.Max(data)

	normalized := make([]float64, len(data))
	if math.Abs(hi-lo) < 1e-10 {
		return normalized
	}

	for i, val := range data {
		normalized[i] = (val - lo) / (hi - lo)
	}

	return normalized
}

// ConvolveSame convolves data with kernel and returns the central part of
// the full convolution, with the same length as data. Samples outside data
// count as zero.
func ConvolveSame(data, kernel []float64) []float64 {
	n, k := len(data), len(kernel)
	result := make([]float64, n)
	if n == 0 || k == 0 {
		return result
	}

	// full convolution index of result[0]
	shift := (k - 1) / 2
	for i := range result {
		full := i + shift
		sum := 0.0
		jLo := max(0, full-n+1)
		jHi := min(k-1, full)
		for j := jLo; j <= jHi; j++ {
			sum += kernel[j] * data[full-j]
		}
		result[i] = sum
	}

	return result
}

// MedianFilter applies a running median of windowSize samples centered on
// each element. Samples outside data count as zero. Even window sizes are
// incremented by one.
func MedianFilter(data []float64, windowSize int) []float64 {
	if len(data) == 0 || windowSize <= 1 {
		return slices.Clone(data)
	}
	if windowSize%2 == 0 {
		windowSize++
	}

	result := make([]float64, len(data))
	halfWindow := windowSize / 2
	window := make([]float64, windowSize)

	for i := range data {
		for j := range windowSize {
			idx := i - halfWindow + j
			if idx >= 0 && idx < len(data) {
				window[j] = data[idx]
			} else {
				window[j] = 0
			}
		}
		slices.Sort(window)
		result[i] = window[halfWindow]
	}

	return result
}

// ReflectIndex maps an out-of-range index onto [0, n) by mirroring about
// the first and last element without repeating them, so for n = 4 the
// indices -2..5 map to 2 1 0 1 2 3 2 1.
func ReflectIndex(i, n int) int {
	if n <= 1 {
		return 0
	}
	period := 2 * (n - 1)
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i
	}
	return i
}
