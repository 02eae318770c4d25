package similarity

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/RyanBlaney/sonido-split/algorithms/common"
)

// CheckerboardKernel builds a (2n+1) x (2n+1) kernel whose quadrants
// alternate in sign, tapered by a 2D Gaussian. With normalize set the
// absolute values sum to one.
func CheckerboardKernel(n int, variance float64, normalize bool) *mat.Dense {
	size := 2*n + 1
	taper := math.Sqrt(0.5) / (float64(n) * variance)

	gauss := make([]float64, size)
	sign := make([]float64, size)
	for i := range size {
		axis := float64(i - n)
		gauss[i] = math.Exp(-taper * taper * axis * axis)
		switch {
		case axis > 0:
			sign[i] = 1
		case axis < 0:
			sign[i] = -1
		}
	}

	kernel := mat.NewDense(size, size, nil)
	total := 0.0
	for i := range size {
		for j := range size {
			v := sign[i] * sign[j] * gauss[i] * gauss[j]
			kernel.Set(i, j, v)
			total += math.Abs(v)
		}
	}

	if normalize && total > 0 {
		kernel.Scale(1/total, kernel)
	}
	return kernel
}

// Novelty correlates kernel along the main diagonal of ssm. The matrix is
// extended by mirror reflection (edge not repeated) so that every diagonal
// position gets a full window. The curve is min-max normalized to [0, 1];
// with exclude set, the first and last n values are zeroed afterwards.
func Novelty(ssm *mat.Dense, kernel *mat.Dense, exclude bool) []float64 {
	N, _ := ssm.Dims()
	size, _ := kernel.Dims()
	n := size / 2

	nov := make([]float64, N)
	for i := range N {
		sum := 0.0
		for a := range size {
			row := common.ReflectIndex(i+a-n, N)
			for b := range size {
				w := kernel.At(a, b)
				if w == 0 {
					continue
				}
				sum += w * ssm.At(row, common.ReflectIndex(i+b-n, N))
			}
		}
		nov[i] = sum
	}

	nov = common.MinMaxNormalize(nov)

	if exclude {
		for i := range min(n, N) {
			nov[i] = 0
		}
		for i := max(0, N-n); i < N; i++ {
			nov[i] = 0
		}
	}
	return nov
}
