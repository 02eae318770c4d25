package similarity

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SilenceThreshold is the column norm below which a frame is treated as
// silent and replaced by a constant unit vector.
const SilenceThreshold = 0.001

// NormalizeColumns scales every column to unit L2 norm. Columns whose norm
// does not exceed threshold become the constant vector 1/sqrt(dims).
func NormalizeColumns(features *mat.Dense, threshold float64) *mat.Dense {
	dims, frames := features.Dims()
	out := mat.NewDense(dims, frames, nil)
	fill := 1 / math.Sqrt(float64(dims))

	col := make([]float64, dims)
	for c := range frames {
		mat.Col(col, c, features)
		norm := floats.Norm(col, 2)
		if norm > threshold {
			floats.Scale(1/norm, col)
		} else {
			for i := range col {
				col[i] = fill
			}
		}
		out.SetCol(c, col)
	}
	return out
}

// SelfSimilarity returns featuresᵀ·features, a frames x frames symmetric
// matrix of column dot products.
func SelfSimilarity(features *mat.Dense) *mat.Dense {
	var ssm mat.Dense
	ssm.Mul(features.T(), features)
	return &ssm
}

// Config bundles the parameters of Compute.
type Config struct {
	MemorySteps  int
	MemoryDelay  int
	FilterLength int
	Downsampling int
	Smoothing    Smoothing
}

// DefaultConfig returns stacking depth 4, delay 8, a 41-frame boxcar and
// downsampling by 8.
func DefaultConfig() Config {
	return Config{
		MemorySteps:  4,
		MemoryDelay:  8,
		FilterLength: 41,
		Downsampling: 8,
		Smoothing:    SmoothBoxcar,
	}
}

// Compute runs stacking, smoothing/downsampling and normalization on a
// feature sequence and returns its self-similarity matrix together with the
// downsampled feature rate.
func Compute(features *mat.Dense, featureRate float64, cfg Config) (*mat.Dense, float64) {
	stacked := StackMemory(features, cfg.MemorySteps, cfg.MemoryDelay)
	smoothed, rate := SmoothDownsample(stacked, featureRate, cfg.FilterLength, cfg.Downsampling, cfg.Smoothing)
	return SelfSimilarity(NormalizeColumns(smoothed, SilenceThreshold)), rate
}
