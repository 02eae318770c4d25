package chroma

import (
	"math"

	"github.com/RyanBlaney/sonido-split/algorithms/spectral"
)

// ChromaSTFT computes a chromagram from a short-time power spectrum.
//
// Every FFT bin inside [minFreq, maxFreq] is assigned to the nearest
// equal-tempered pitch class (C, C#, ..., B), octaves folded together. Each
// frame is scaled so that its strongest pitch class is 1.
type ChromaSTFT struct {
	sampleRate int
	stft       *spectral.STFT
	power      *spectral.PowerSpectrum
	tuningFreq float64 // A4 frequency (default 440 Hz)
	chromaBins int     // Number of chroma bins (always 12)
	minFreq    float64 // Minimum frequency to consider
	maxFreq    float64 // Maximum frequency to consider
}

// NewChromaSTFT creates a new STFT-based chromagram calculator
func NewChromaSTFT(sampleRate int, tuningFreq float64) *ChromaSTFT {
	return &ChromaSTFT{
		sampleRate: sampleRate,
		stft:       spectral.NewSTFT(),
		power:      spectral.NewPowerSpectrum(),
		tuningFreq: tuningFreq,
		chromaBins: 12,
		minFreq:    80.0,   // Approximate E2
		maxFreq:    8000.0, // High enough for harmonics
	}
}

// NewChromaSTFTDefault creates chromagram with standard A4=440Hz tuning
func NewChromaSTFTDefault(sampleRate int) *ChromaSTFT {
	return NewChromaSTFT(sampleRate, 440.0)
}

// ComputeChroma returns a time x 12 chromagram of signal.
func (cs *ChromaSTFT) ComputeChroma(signal []float64, windowSize, hopSize int, window spectral.Window) ([][]float64, error) {
	mapping := cs.calculateChromaMapping(windowSize/2+1, float64(cs.sampleRate)/float64(windowSize))
	chromagram := make([][]float64, spectral.NumFrames(len(signal), windowSize, hopSize))

	_, err := cs.stft.Process(signal, windowSize, hopSize, window, func(frameIdx int, spectrum []complex128) {
		frame := make([]float64, cs.chromaBins)
		for f, p := range cs.power.ComputeComplex(spectrum) {
			if bin := mapping[f]; bin >= 0 {
				frame[bin] += p
			}
		}
		cs.normalizeChromaFrame(frame)
		chromagram[frameIdx] = frame
	})
	if err != nil {
		return nil, err
	}

	return chromagram, nil
}

// calculateChromaMapping maps FFT bins to chroma bins, -1 for ignored bins
func (cs *ChromaSTFT) calculateChromaMapping(freqBins int, freqResolution float64) []int {
	mapping := make([]int, freqBins)

	for f := range freqBins {
		frequency := float64(f) * freqResolution

		if frequency < cs.minFreq || frequency > cs.maxFreq {
			mapping[f] = -1
			continue
		}

		midiNote := int(math.Round(cs.frequencyToMIDI(frequency)))
		mapping[f] = ((midiNote % 12) + 12) % 12
	}

	return mapping
}

// frequencyToMIDI converts frequency to MIDI note number (A4 = 69)
func (cs *ChromaSTFT) frequencyToMIDI(frequency float64) float64 {
	if frequency <= 0 {
		return 0
	}
	return 69.0 + 12.0*math.Log2(frequency/cs.tuningFreq)
}

// normalizeChromaFrame scales a frame so its maximum is 1
func (cs *ChromaSTFT) normalizeChromaFrame(chromaFrame []float64) {
	peak := 0.0
	for _, energy := range chromaFrame {
		peak = math.Max(peak, energy)
	}

	if peak > 1e-10 {
		for i := range chromaFrame {
			chromaFrame[i] /= peak
		}
	}
}

// GetChromaLabels returns pitch class names in bin order
func (cs *ChromaSTFT) GetChromaLabels() []string {
	return []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
}

// Bins returns the number of chroma bins per frame
func (cs *ChromaSTFT) Bins() int {
	return cs.chromaBins
}
