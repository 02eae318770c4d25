package spectral

import (
	"fmt"

	"github.com/RyanBlaney/sonido-split/algorithms/windowing"
)

// MelSpectrogram computes mel-scaled power spectrograms of mono signals.
type MelSpectrogram struct {
	stft    *STFT
	power   *PowerSpectrum
	mel     *MelScale
	fftSize int
	numMels int
}

// NewMelSpectrogram creates a mel spectrogram calculator with the given FFT
// window size and number of mel bands.
func NewMelSpectrogram(fftSize, numMels int) *MelSpectrogram {
	return &MelSpectrogram{
		stft:    NewSTFT(),
		power:   NewPowerSpectrum(),
		mel:     NewMelScale(),
		fftSize: fftSize,
		numMels: numMels,
	}
}

// Compute returns a time x mel-band matrix of power values. The signal is
// framed with a periodic Hann window of fftSize and the given hop.
func (m *MelSpectrogram) Compute(signal []float64, sampleRate, hopSize int) ([][]float64, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive: %d", sampleRate)
	}

	filterBank := m.mel.CreateMelFilterBank(m.numMels, m.fftSize, sampleRate, 0, float64(sampleRate)/2)
	frames := make([][]float64, NumFrames(len(signal), m.fftSize, hopSize))

	_, err := m.stft.Process(signal, m.fftSize, hopSize, windowing.NewPeriodicHann(m.fftSize),
		func(frameIdx int, spectrum []complex128) {
			frames[frameIdx] = m.mel.ApplyFilterBank(m.power.ComputeComplex(spectrum), filterBank)
		})
	if err != nil {
		return nil, fmt.Errorf("mel spectrogram: %w", err)
	}

	return frames, nil
}

// NumMels returns the number of mel bands per frame
func (m *MelSpectrogram) NumMels() int {
	return m.numMels
}
