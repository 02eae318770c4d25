package segmentation

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/RyanBlaney/sonido-split/algorithms/chroma"
	"github.com/RyanBlaney/sonido-split/algorithms/spectral"
	"github.com/RyanBlaney/sonido-split/algorithms/windowing"
)

// FeatureType selects the representation used for self-similarity.
type FeatureType int

const (
	// FeatureChroma is a 12-bin pitch-class profile per frame.
	FeatureChroma FeatureType = 1
	// FeatureSpectral is a mel power spectrogram per frame.
	FeatureSpectral FeatureType = 2
)

func (f FeatureType) String() string {
	switch f {
	case FeatureChroma:
		return "chroma"
	case FeatureSpectral:
		return "spectral"
	default:
		return fmt.Sprintf("FeatureType(%d)", int(f))
	}
}

const (
	// FFTWindow is the analysis window in samples.
	FFTWindow = 2048
	// MelBands is the number of mel bands of the spectral feature.
	MelBands = 128
)

// ExtractFeatures turns a mono signal into a dims x frames feature matrix.
// Frames are only taken where a full FFTWindow fits. It returns nil when
// signal is shorter than one window. An unknown feature type panics.
func ExtractFeatures(signal []float64, sampleRate, hop int, feature FeatureType) (*mat.Dense, error) {
	var (
		frames [][]float64
		err    error
	)

	switch feature {
	case FeatureChroma:
		if len(signal) < FFTWindow {
			return nil, nil
		}
		frames, err = chroma.NewChromaSTFTDefault(sampleRate).
			ComputeChroma(signal, FFTWindow, hop, windowing.NewPeriodicHann(FFTWindow))
	case FeatureSpectral:
		if len(signal) < FFTWindow {
			return nil, nil
		}
		frames, err = spectral.NewMelSpectrogram(FFTWindow, MelBands).Compute(signal, sampleRate, hop)
	default:
		panic(fmt.Sprintf("segmentation: unsupported feature type %v", feature))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s features: %w", feature, err)
	}

	return framesToDense(frames), nil
}

// framesToDense transposes frames x dims rows into a dims x frames matrix.
func framesToDense(frames [][]float64) *mat.Dense {
	if len(frames) == 0 || len(frames[0]) == 0 {
		return nil
	}
	dims := len(frames[0])
	out := mat.NewDense(dims, len(frames), nil)
	for t, frame := range frames {
		out.SetCol(t, frame)
	}
	return out
}
