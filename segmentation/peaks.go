package segmentation

import (
	"slices"

	"github.com/RyanBlaney/sonido-split/algorithms/temporal"
)

const (
	// peakWindow is the half-width, in novelty frames, of the moving max and
	// moving average used for peak picking.
	peakWindow = 10
	// waitFraction of the curve must pass after a peak before the next one.
	// It assumes windows of BlockFrames frames; retune both together.
	waitFraction = 10

	// ConsensusCount is how often a boundary must be detected across the
	// overlapping windows to be kept.
	ConsensusCount = 3
)

// SelectPeaks picks peaks of a novelty curve and maps them back to feature
// frames of the whole file: each index is multiplied by downsampling and
// offsetFrames is added.
func SelectPeaks(novelty []float64, threshold float64, downsampling, offsetFrames int) []int {
	wait := len(novelty) / waitFraction
	picked := temporal.NewPeakPicker(peakWindow, threshold, wait).Pick(novelty)

	for i := range picked {
		picked[i] = picked[i]*downsampling + offsetFrames
	}
	return picked
}

// FilterPeaks keeps the values that occur at least n times, sorted and
// without duplicates.
func FilterPeaks(peaks []int, n int) []int {
	counts := make(map[int]int, len(peaks))
	for _, p := range peaks {
		counts[p]++
	}

	kept := []int{}
	for p, c := range counts {
		if c >= n {
			kept = append(kept, p)
		}
	}
	slices.Sort(kept)
	return kept
}
