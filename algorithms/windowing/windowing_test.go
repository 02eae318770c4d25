package windowing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodicHannCoefficients(t *testing.T) {
	h := NewPeriodicHann(4)
	coeffs := h.GetCoefficients()

	require.Len(t, coeffs, 4)
	assert.InDelta(t, 0.0, coeffs[0], 1e-12)
	assert.InDelta(t, 0.5, coeffs[1], 1e-12)
	assert.InDelta(t, 1.0, coeffs[2], 1e-12)
	assert.InDelta(t, 0.5, coeffs[3], 1e-12)
	assert.Equal(t, "hann-periodic", h.GetType())
}

func TestSymmetricHannEndsAtZero(t *testing.T) {
	coeffs := NewHann(5, true).GetCoefficients()
	assert.InDelta(t, 0.0, coeffs[0], 1e-12)
	assert.InDelta(t, 1.0, coeffs[2], 1e-12)
	assert.InDelta(t, 0.0, coeffs[4], 1e-12)
}

func TestHannApplyInPlaceSizeMismatch(t *testing.T) {
	h := NewPeriodicHann(8)
	assert.Error(t, h.ApplyInPlace(make([]float64, 7)))

	signal := []float64{1, 1, 1, 1, 1, 1, 1, 1}
	require.NoError(t, h.ApplyInPlace(signal))
	assert.Equal(t, h.GetCoefficients(), signal)
}

func TestOddRectangular(t *testing.T) {
	assert.Equal(t, 41, NewOddRectangular(41).GetSize())
	assert.Equal(t, 5, NewOddRectangular(4).GetSize())

	sum := 0.0
	for _, c := range NewOddRectangular(4).GetNormalizedCoefficients() {
		sum += c
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}
