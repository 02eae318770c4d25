package similarity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestStackMemoryShiftsDelayedCopies(t *testing.T) {
	data := make([]float64, 10)
	for i := range data {
		data[i] = float64(i + 1)
	}
	stacked := StackMemory(mat.NewDense(1, 10, data), 3, 3)

	r, c := stacked.Dims()
	require.Equal(t, 3, r)
	require.Equal(t, 10, c)

	assert.Equal(t, data, mat.Row(nil, 0, stacked))
	assert.Equal(t, []float64{0, 0, 0, 1, 2, 3, 4, 5, 6, 7}, mat.Row(nil, 1, stacked))
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0, 1, 2, 3, 4}, mat.Row(nil, 2, stacked))
}

func TestSmoothDownsampleBoxcar(t *testing.T) {
	features := mat.NewDense(1, 5, []float64{0, 0, 3, 0, 0})

	out, rate := SmoothDownsample(features, 20, 3, 1, SmoothBoxcar)
	assert.InDeltaSlice(t, []float64{0, 1, 1, 1, 0}, mat.Row(nil, 0, out), 1e-12)
	assert.Equal(t, 20.0, rate)

	// an even length is widened to the next odd one
	out, rate = SmoothDownsample(features, 20, 2, 2, SmoothBoxcar)
	assert.InDeltaSlice(t, []float64{0, 1, 0}, mat.Row(nil, 0, out), 1e-12)
	assert.Equal(t, 10.0, rate)
}

func TestSmoothDownsampleMedian(t *testing.T) {
	features := mat.NewDense(1, 5, []float64{5, 1, 9, 3, 7})
	out, _ := SmoothDownsample(features, 1, 3, 1, SmoothMedian)
	assert.Equal(t, []float64{1, 5, 3, 7, 3}, mat.Row(nil, 0, out))
}

func TestParseSmoothing(t *testing.T) {
	s, err := ParseSmoothing("median")
	require.NoError(t, err)
	assert.Equal(t, SmoothMedian, s)
	assert.Equal(t, "median", s.String())

	s, err = ParseSmoothing("")
	require.NoError(t, err)
	assert.Equal(t, SmoothBoxcar, s)

	_, err = ParseSmoothing("gaussian")
	assert.Error(t, err)
}

func TestNormalizeColumns(t *testing.T) {
	features := mat.NewDense(2, 3, []float64{
		3, 0, 0.0001,
		4, 0, 0,
	})
	out := NormalizeColumns(features, SilenceThreshold)

	assert.InDeltaSlice(t, []float64{0.6, 0.8}, mat.Col(nil, 0, out), 1e-12)
	fill := 1 / math.Sqrt2
	assert.InDeltaSlice(t, []float64{fill, fill}, mat.Col(nil, 1, out), 1e-12)
	assert.InDeltaSlice(t, []float64{fill, fill}, mat.Col(nil, 2, out), 1e-12)

	// input untouched
	assert.Equal(t, 3.0, features.At(0, 0))
}

func TestSelfSimilarityUnitDiagonal(t *testing.T) {
	features := NormalizeColumns(mat.NewDense(3, 4, []float64{
		1, 0, 2, 1,
		0, 1, 2, 1,
		0, 0, 0, 1,
	}), SilenceThreshold)
	ssm := SelfSimilarity(features)

	r, c := ssm.Dims()
	require.Equal(t, 4, r)
	require.Equal(t, 4, c)
	for i := range 4 {
		assert.InDelta(t, 1.0, ssm.At(i, i), 1e-12)
		for j := range 4 {
			assert.InDelta(t, ssm.At(i, j), ssm.At(j, i), 1e-12)
		}
	}
	assert.InDelta(t, 0.0, ssm.At(0, 1), 1e-12)
}

func TestCheckerboardKernel(t *testing.T) {
	k := CheckerboardKernel(8, 0.5, true)
	r, c := k.Dims()
	require.Equal(t, 17, r)
	require.Equal(t, 17, c)

	total := 0.0
	for i := range r {
		for j := range c {
			total += math.Abs(k.At(i, j))
		}
	}
	assert.InDelta(t, 1.0, total, 1e-12)

	// the center row and column carry no weight
	for i := range r {
		assert.Zero(t, k.At(8, i))
		assert.Zero(t, k.At(i, 8))
	}
	assert.Positive(t, k.At(0, 0))
	assert.Positive(t, k.At(16, 16))
	assert.Negative(t, k.At(0, 16))
	assert.Negative(t, k.At(16, 0))
	assert.Greater(t, k.At(7, 7), k.At(0, 0))

	raw := CheckerboardKernel(8, 0.5, false)
	assert.InDelta(t, raw.At(7, 9)/raw.At(0, 0), k.At(7, 9)/k.At(0, 0), 1e-9)
}

func blockSSM(n, boundary int) *mat.Dense {
	ssm := mat.NewDense(n, n, nil)
	for i := range n {
		for j := range n {
			if (i < boundary) == (j < boundary) {
				ssm.Set(i, j, 1)
			}
		}
	}
	return ssm
}

func TestNoveltyPeaksAtBlockBoundary(t *testing.T) {
	kernel := CheckerboardKernel(8, 0.5, true)
	nov := Novelty(blockSSM(40, 20), kernel, false)
	require.Len(t, nov, 40)

	assert.InDelta(t, 1.0, nov[19], 1e-9)
	assert.InDelta(t, 1.0, nov[20], 1e-9)
	assert.InDelta(t, 0.0, nov[5], 1e-9)
	assert.InDelta(t, 0.0, nov[35], 1e-9)
	for _, v := range nov {
		assert.GreaterOrEqual(t, v, -1e-12)
		assert.LessOrEqual(t, v, 1+1e-12)
	}
}

func TestNoveltyExcludeZeroesEdges(t *testing.T) {
	kernel := CheckerboardKernel(8, 0.5, true)
	nov := Novelty(blockSSM(40, 20), kernel, true)

	for i := range 8 {
		assert.Zero(t, nov[i])
		assert.Zero(t, nov[39-i])
	}
	assert.InDelta(t, 1.0, nov[20], 1e-9)

	// shorter than the kernel half-width: everything is excluded
	short := Novelty(blockSSM(5, 2), kernel, true)
	assert.Equal(t, make([]float64, 5), short)
}

func TestNoveltyConstantMatrixIsFlat(t *testing.T) {
	ssm := mat.NewDense(12, 12, nil)
	for i := range 12 {
		for j := range 12 {
			ssm.Set(i, j, 1)
		}
	}
	nov := Novelty(ssm, CheckerboardKernel(4, 0.5, true), false)
	assert.Equal(t, make([]float64, 12), nov)
}

func TestComputeShape(t *testing.T) {
	features := mat.NewDense(6, 100, nil)
	for i := range 6 {
		for j := range 100 {
			features.Set(i, j, math.Sin(float64(i*j)))
		}
	}
	ssm, rate := Compute(features, 21.5, DefaultConfig())

	r, c := ssm.Dims()
	assert.Equal(t, 13, r)
	assert.Equal(t, 13, c)
	assert.InDelta(t, 21.5/8, rate, 1e-12)
}
