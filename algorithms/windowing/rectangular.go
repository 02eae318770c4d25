package windowing

import (
	"fmt"
)

// Rectangular represents a rectangular (boxcar) window function. Besides
// framing, it is the smoothing kernel for feature sequences: convolving with
// the normalized coefficients is a centered moving average.
type Rectangular struct {
	size         int
	coefficients []float64
}

// NewRectangular creates a new rectangular window
func NewRectangular(size int) *Rectangular {
	r := &Rectangular{
		size: size,
	}
	r.coefficients = make([]float64, r.size)
	for i := range r.coefficients {
		r.coefficients[i] = 1.0
	}
	return r
}

// NewOddRectangular creates a boxcar whose length is forced odd, so that it
// has a well-defined center sample. Even sizes are incremented by one.
func NewOddRectangular(size int) *Rectangular {
	if size%2 == 0 {
		size++
	}
	return NewRectangular(size)
}

// ApplyInPlace applies the window to a signal in-place
func (r *Rectangular) ApplyInPlace(signal []float64) error {
	if len(signal) != r.size {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), r.size)
	}

	// For rectangular window, signal remains unchanged
	return nil
}

// GetCoefficients returns a copy of the window coefficients
func (r *Rectangular) GetCoefficients() []float64 {
	coeffs := make([]float64, len(r.coefficients))
	copy(coeffs, r.coefficients)
	return coeffs
}

// GetNormalizedCoefficients returns the coefficients divided by the window
// length, so that they sum to one.
func (r *Rectangular) GetNormalizedCoefficients() []float64 {
	coeffs := make([]float64, len(r.coefficients))
	for i, c := range r.coefficients {
		coeffs[i] = c / float64(r.size)
	}
	return coeffs
}

// GetSize returns the window size
func (r *Rectangular) GetSize() int {
	return r.size
}

// GetType returns the window type
func (r *Rectangular) GetType() string {
	return "rectangular"
}
