package spectral

import (
	"math"
	"math/cmplx"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(freq float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}
	return out
}

func argmax(x []float64) int {
	best := 0
	for i, v := range x {
		if v > x[best] {
			best = i
		}
	}
	return best
}

func TestFFTComputePositivePeak(t *testing.T) {
	// 64 samples, bin 8 holds exactly 8 cycles
	spectrum := NewFFT().ComputePositive(sine(8, 64, 64))
	require.Len(t, spectrum, 33)

	mags := make([]float64, len(spectrum))
	for i, c := range spectrum {
		mags[i] = cmplx.Abs(c)
	}
	assert.Equal(t, 8, argmax(mags))
	assert.InDelta(t, 32.0, mags[8], 1e-9)
}

func TestNumFrames(t *testing.T) {
	assert.Equal(t, 0, NumFrames(100, 128, 64))
	assert.Equal(t, 1, NumFrames(128, 128, 64))
	assert.Equal(t, 3, NumFrames(256, 128, 64))
	assert.Equal(t, 4095, NumFrames(4096*1024, 2048, 1024))
}

func TestProcessVisitsEveryFrameOnce(t *testing.T) {
	signal := sine(440, 8000, 8000)
	var calls atomic.Int64
	seen := make([]int32, NumFrames(len(signal), 256, 100))

	n, err := NewSTFT().Process(signal, 256, 100, nil, func(frameIdx int, spectrum []complex128) {
		calls.Add(1)
		atomic.AddInt32(&seen[frameIdx], 1)
		assert.Len(t, spectrum, 129)
	})
	require.NoError(t, err)
	assert.Equal(t, len(seen), n)
	assert.Equal(t, int64(n), calls.Load())
	for i, c := range seen {
		assert.Equal(t, int32(1), c, "frame %d", i)
	}
}

func TestProcessErrors(t *testing.T) {
	s := NewSTFT()
	noop := func(int, []complex128) {}

	_, err := s.Process(nil, 256, 128, nil, noop)
	assert.Error(t, err)
	_, err = s.Process(make([]float64, 100), 256, 128, nil, noop)
	assert.Error(t, err)
	_, err = s.Process(make([]float64, 300), 256, 0, nil, noop)
	assert.Error(t, err)
}

func TestComputeWithWindowMetadata(t *testing.T) {
	res, err := NewSTFT().ComputeWithWindow(sine(1000, 16000, 4096), 512, 256, 16000, nil)
	require.NoError(t, err)

	assert.Equal(t, 15, res.TimeFrames)
	assert.Equal(t, 257, res.FreqBins)
	assert.InDelta(t, 31.25, res.FreqResolution, 1e-9)
	assert.Equal(t, 32, argmax(res.Magnitude[0]))
	assert.Len(t, NewPowerSpectrum().ComputeFromSTFT(res), 15)
}

func TestMelFilterBankShape(t *testing.T) {
	bank := NewMelScale().CreateMelFilterBank(40, 2048, 22050, 0, 11025)
	require.Len(t, bank, 40)

	for m, filter := range bank {
		require.Len(t, filter, 1025)
		nonZero := 0
		for _, w := range filter {
			assert.GreaterOrEqual(t, w, 0.0)
			if w > 0 {
				nonZero++
			}
		}
		assert.Positive(t, nonZero, "filter %d is empty", m)
	}
}

func TestMelScaleRoundTrip(t *testing.T) {
	ms := NewMelScale()
	for _, hz := range []float64{0, 100, 440, 1000, 8000} {
		assert.InDelta(t, hz, ms.MelToHz(ms.HzToMel(hz)), 1e-6)
	}
	assert.InDelta(t, 1000.0, ms.HzToMel(1000), 0.5)
}

func TestMelSpectrogramConcentratesTone(t *testing.T) {
	mel := NewMelSpectrogram(1024, 32)
	low, err := mel.Compute(sine(200, 16000, 16000), 16000, 512)
	require.NoError(t, err)
	high, err := mel.Compute(sine(5000, 16000, 16000), 16000, 512)
	require.NoError(t, err)

	require.Len(t, low, NumFrames(16000, 1024, 512))
	require.Len(t, low[0], 32)
	assert.Less(t, argmax(low[3]), argmax(high[3]))
	assert.Equal(t, 32, mel.NumMels())

	_, err = mel.Compute(make([]float64, 10), 16000, 512)
	assert.Error(t, err)
}
