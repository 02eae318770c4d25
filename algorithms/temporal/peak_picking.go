package temporal

import (
	"math"
)

// PeakPicker selects local maxima of a detection curve. A sample x[i] is a
// peak when it
//
//   - equals the maximum of x[i-PreMax : i+PostMax],
//   - is at least the mean of x[i-PreAvg : i+PostAvg] plus Delta,
//   - is non-zero and lies more than Wait samples after the previous peak.
//
// Windows are clipped at the curve edges.
type PeakPicker struct {
	PreMax  int
	PostMax int
	PreAvg  int
	PostAvg int
	Delta   float64
	Wait    int
}

// NewPeakPicker uses symmetric windows of the given half-width for both the
// maximum and the average.
func NewPeakPicker(window int, delta float64, wait int) *PeakPicker {
	return &PeakPicker{
		PreMax:  window,
		PostMax: window,
		PreAvg:  window,
		PostAvg: window,
		Delta:   delta,
		Wait:    wait,
	}
}

// Pick returns the indices of the peaks of x in ascending order.
func (p *PeakPicker) Pick(x []float64) []int {
	n := len(x)
	if n == 0 {
		return []int{}
	}

	peaks := []int{}
	last := math.MinInt
	for i, v := range x {
		if v == 0 {
			continue
		}
		if v != movingMax(x, i-p.PreMax, i+p.PostMax) {
			continue
		}
		if v < movingMean(x, i-p.PreAvg, i+p.PostAvg)+p.Delta {
			continue
		}
		if last != math.MinInt && i <= last+p.Wait {
			continue
		}
		peaks = append(peaks, i)
		last = i
	}
	return peaks
}

// movingMax is the maximum of x[lo:hi]. Positions outside x take the
// minimum of x, so they never win.
func movingMax(x []float64, lo, hi int) float64 {
	lo = max(lo, 0)
	hi = min(hi, len(x))
	best := math.Inf(-1)
	for _, v := range x[lo:hi] {
		best = max(best, v)
	}
	return best
}

func movingMean(x []float64, lo, hi int) float64 {
	lo = max(lo, 0)
	hi = min(hi, len(x))
	if hi <= lo {
		return 0
	}
	sum := 0.0
	for _, v := range x[lo:hi] {
		sum += v
	}
	return sum / float64(hi-lo)
}
