package similarity

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/RyanBlaney/sonido-split/algorithms/common"
	"github.com/RyanBlaney/sonido-split/algorithms/windowing"
)

// Smoothing selects the temporal filter applied before downsampling.
type Smoothing int

const (
	// SmoothBoxcar is a centered moving average.
	SmoothBoxcar Smoothing = iota
	// SmoothMedian is a centered running median.
	SmoothMedian
)

func (s Smoothing) String() string {
	switch s {
	case SmoothBoxcar:
		return "boxcar"
	case SmoothMedian:
		return "median"
	default:
		return "unknown"
	}
}

// ParseSmoothing maps "boxcar" or "median" to a Smoothing.
func ParseSmoothing(name string) (Smoothing, error) {
	switch name {
	case "boxcar", "":
		return SmoothBoxcar, nil
	case "median":
		return SmoothMedian, nil
	default:
		return SmoothBoxcar, fmt.Errorf("unknown smoothing %q", name)
	}
}

// SmoothDownsample filters every row along time with a window of filterLen
// frames (forced odd) and keeps every downsampling-th column, starting with
// the first. It returns the result and the feature rate divided by
// downsampling.
func SmoothDownsample(features *mat.Dense, featureRate float64, filterLen, downsampling int, mode Smoothing) (*mat.Dense, float64) {
	if downsampling < 1 {
		downsampling = 1
	}
	rate := featureRate / float64(downsampling)
	dims, frames := features.Dims()
	outFrames := (frames + downsampling - 1) / downsampling
	if outFrames == 0 {
		return mat.NewDense(dims, 1, nil), rate
	}

	box := windowing.NewOddRectangular(filterLen)
	kernel := box.GetNormalizedCoefficients()

	out := mat.NewDense(dims, outFrames, nil)
	row := make([]float64, frames)
	for r := range dims {
		mat.Row(row, r, features)

		var smooth []float64
		switch mode {
		case SmoothMedian:
			smooth = common.MedianFilter(row, box.GetSize())
		default:
			smooth = common.ConvolveSame(row, kernel)
		}

		for c := range outFrames {
			out.Set(r, c, smooth[c*downsampling])
		}
	}

	return out, rate
}
