package spectral

import (
	"fmt"
	"math/cmplx"
	"runtime"
	"sync"
)

// STFT provides Short-Time Fourier Transform functionality.
//
// Frames are only taken where a full window fits into the signal (no
// centering or padding), so a signal of n samples yields (n-window)/hop+1
// frames.
type STFT struct {
	fft *FFT
}

// STFTResult holds the result of STFT analysis
type STFTResult struct {
	Magnitude      [][]float64 `json:"magnitude"`       // Time x Frequency magnitude matrix
	Phase          [][]float64 `json:"phase"`           // Time x Frequency phase matrix
	TimeFrames     int         `json:"time_frames"`     // Number of time frames
	FreqBins       int         `json:"freq_bins"`       // Number of frequency bins
	SampleRate     int         `json:"sample_rate"`     // Sample rate
	WindowSize     int         `json:"window_size"`     // FFT window size
	HopSize        int         `json:"hop_size"`        // Hop size between frames
	FreqResolution float64     `json:"freq_resolution"` // Frequency resolution (Hz/bin)
	TimeResolution float64     `json:"time_resolution"` // Time resolution (seconds/frame)
}

// Window interface for windowing functions
type Window interface {
	ApplyInPlace(signal []float64) error
}

// FrameSink receives the positive-frequency spectrum of one frame. It is
// called concurrently from several workers, each call with a distinct
// frameIdx. The spectrum slice must not be retained after the call.
type FrameSink func(frameIdx int, spectrum []complex128)

// NewSTFT creates a new STFT calculator
func NewSTFT() *STFT {
	return &STFT{
		fft: NewFFT(),
	}
}

// NumFrames returns how many full windows fit into a signal of length n.
func NumFrames(n, windowSize, hopSize int) int {
	if n < windowSize || windowSize <= 0 || hopSize <= 0 {
		return 0
	}
	return (n-windowSize)/hopSize + 1
}

// Process windows every frame of signal, transforms it and hands the
// spectrum to sink. It returns the number of frames processed.
func (s *STFT) Process(signal []float64, windowSize int, hopSize int, window Window, sink FrameSink) (int, error) {
	if len(signal) == 0 {
		return 0, fmt.Errorf("empty signal")
	}

	if windowSize <= 0 {
		return 0, fmt.Errorf("window size must be positive")
	}

	if hopSize <= 0 {
		return 0, fmt.Errorf("hop size must be positive")
	}

	numFrames := NumFrames(len(signal), windowSize, hopSize)
	if numFrames <= 0 {
		return 0, fmt.Errorf("signal too short for given window size and hop size")
	}

	numWorkers := getOptimalWorkerCount(numFrames)

	jobs := make(chan int, numWorkers*2)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Reuse frame buffer for this worker
			frameBuffer := make([]float64, windowSize)

			for frameIdx := range jobs {
				start := frameIdx * hopSize
				copy(frameBuffer, signal[start:start+windowSize])

				if window != nil {
					if err := window.ApplyInPlace(frameBuffer); err != nil {
						errOnce.Do(func() { firstErr = err })
						continue
					}
				}

				sink(frameIdx, s.fft.ComputePositive(frameBuffer))
			}
		}()
	}

	for frameIdx := range numFrames {
		jobs <- frameIdx
	}
	close(jobs)

	wg.Wait()

	if firstErr != nil {
		return 0, fmt.Errorf("failed to window frame: %w", firstErr)
	}

	return numFrames, nil
}

// ComputeWithWindow computes magnitude and phase spectrograms.
func (s *STFT) ComputeWithWindow(signal []float64, windowSize int, hopSize int, sampleRate int, window Window) (*STFTResult, error) {
	numFrames := NumFrames(len(signal), windowSize, hopSize)
	freqBins := windowSize/2 + 1

	magnitude := make([][]float64, numFrames)
	phase := make([][]float64, numFrames)

	_, err := s.Process(signal, windowSize, hopSize, window, func(frameIdx int, spectrum []complex128) {
		mag := make([]float64, freqBins)
		ph := make([]float64, freqBins)
		for i, c := range spectrum {
			mag[i] = cmplx.Abs(c)
			ph[i] = cmplx.Phase(c)
		}
		magnitude[frameIdx] = mag
		phase[frameIdx] = ph
	})
	if err != nil {
		return nil, err
	}

	return &STFTResult{
		Magnitude:      magnitude,
		Phase:          phase,
		TimeFrames:     numFrames,
		FreqBins:       freqBins,
		SampleRate:     sampleRate,
		WindowSize:     windowSize,
		HopSize:        hopSize,
		FreqResolution: float64(sampleRate) / float64(windowSize),
		TimeResolution: float64(hopSize) / float64(sampleRate),
	}, nil
}

// getOptimalWorkerCount determines the number of workers based on workload
func getOptimalWorkerCount(numFrames int) int {
	numCPU := runtime.NumCPU()

	// For small workloads, don't over-parallelize
	if numFrames < 100 {
		return max(1, min(numCPU/2, numFrames))
	}

	if numFrames < 1000 {
		return min(numCPU, 8)
	}

	return numCPU
}
