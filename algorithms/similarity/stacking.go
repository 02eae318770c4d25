// Package similarity derives self-similarity matrices and novelty curves
// from feature sequences.
//
// Feature sequences are dims x frames matrices: each column is one time
// frame. All functions return new matrices and leave their input untouched.
package similarity

import (
	"gonum.org/v1/gonum/mat"
)

// StackMemory appends delayed copies of the sequence below it. Row block k
// (0 <= k < steps) holds the features of frame t - k*delay, or zeros where
// that frame would precede the sequence.
func StackMemory(features *mat.Dense, steps, delay int) *mat.Dense {
	dims, frames := features.Dims()
	if steps < 1 {
		steps = 1
	}

	stacked := mat.NewDense(dims*steps, frames, nil)
	for k := range steps {
		shift := k * delay
		for r := range dims {
			for t := shift; t < frames; t++ {
				stacked.Set(k*dims+r, t, features.At(r, t-shift))
			}
		}
	}
	return stacked
}
