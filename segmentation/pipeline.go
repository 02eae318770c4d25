package segmentation

import (
	"github.com/RyanBlaney/sonido-split/algorithms/similarity"
)

const (
	memorySteps = 4
	memoryDelay = 8

	kernelHalfWidth = 8
	kernelVariance  = 0.5
)

// BlockParams are the per-window settings of the block pipeline.
type BlockParams struct {
	Feature   FeatureType
	Preset    Preset
	Smoothing similarity.Smoothing
}

// SegmentBlock finds boundary candidates in one mono window. The returned
// positions are feature frames of the whole file, i.e. relative to
// offsetFrames. A window shorter than one FFT window yields no candidates.
func SegmentBlock(signal []float64, sampleRate, hop int, params BlockParams, offsetFrames int) ([]int, error) {
	features, err := ExtractFeatures(signal, sampleRate, hop, params.Feature)
	if err != nil {
		return nil, err
	}
	if features == nil {
		return []int{}, nil
	}

	ssm, _ := similarity.Compute(features, float64(sampleRate)/float64(hop), similarity.Config{
		MemorySteps:  memorySteps,
		MemoryDelay:  memoryDelay,
		FilterLength: params.Preset.FilterLength,
		Downsampling: params.Preset.Downsampling,
		Smoothing:    params.Smoothing,
	})

	kernel := similarity.CheckerboardKernel(kernelHalfWidth, kernelVariance, true)
	novelty := similarity.Novelty(ssm, kernel, false)

	return SelectPeaks(novelty, params.Preset.PeakThreshold, params.Preset.Downsampling, offsetFrames), nil
}

// isConstant reports whether every sample of every channel has the same
// value.
func isConstant(samples [][]float64) bool {
	first, found := 0.0, false
	for _, ch := range samples {
		for _, v := range ch {
			if !found {
				first, found = v, true
				continue
			}
			if v != first {
				return false
			}
		}
	}
	return true
}
