package segmentation

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-split/algorithms/similarity"
	"github.com/RyanBlaney/sonido-split/transcode"
)

func ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

func TestFilterPeaks(t *testing.T) {
	assert.Equal(t, []int{3, 4}, FilterPeaks([]int{1, 2, 3, 4, 3, 5, 4, 3}, 2))

	consistent := []int{9, 5, 5, 9, 5, 9, 9}
	once := FilterPeaks(consistent, ConsensusCount)
	assert.Equal(t, []int{5, 9}, once)

	// a set whose values each recur three times filters to itself
	tripled := append(append(append([]int{}, once...), once...), once...)
	assert.Equal(t, once, FilterPeaks(tripled, ConsensusCount))

	none := FilterPeaks([]int{1, 2, 2, 3, 4, 4}, ConsensusCount)
	assert.NotNil(t, none)
	assert.Empty(t, none)
	assert.Empty(t, FilterPeaks(nil, ConsensusCount))
}

func TestSelectPeaksUpsamplesAndOffsets(t *testing.T) {
	nov := make([]float64, 60)
	nov[30] = 1
	nov[29], nov[31] = 0.4, 0.4

	assert.Equal(t, []int{30*8 + 1024}, SelectPeaks(nov, 0.5, 8, 1024))
	assert.Empty(t, SelectPeaks(make([]float64, 60), 0.5, 8, 0))
}

func collectWindows(t *testing.T, o *OverlappingStream) []*Window {
	t.Helper()
	var out []*Window
	for {
		w, err := o.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, w)
	}
}

func TestOverlappingStreamWindows(t *testing.T) {
	// 22050 Hz gives a hop of 1024, so one frame per block means 1024 samples
	total := 2560
	src := transcode.NewMemoryStream([][]float64{ramp(total)}, 22050, 1)
	o := NewOverlappingStream(src)

	windows := collectWindows(t, o)

	var starts, lengths []int
	for _, w := range windows {
		starts = append(starts, w.Start)
		lengths = append(lengths, w.Len())
		for k, v := range w.Samples[0] {
			require.Equal(t, float64(w.Start+k), v, "window at %d not contiguous", w.Start)
		}
	}

	assert.Equal(t, []int{0, 256, 512, 768, 1024, 1280, 1536, 1792, 2048}, starts)
	assert.Equal(t, []int{1024, 1024, 1024, 1024, 1024, 896, 768, 640, 512}, lengths)
	assert.Equal(t, total, o.Consumed())

	_, err := o.Next(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestOverlappingStreamEqualBlocksHaveNoTail(t *testing.T) {
	src := transcode.NewMemoryStream([][]float64{ramp(2048), ramp(2048)}, 22050, 1)
	windows := collectWindows(t, NewOverlappingStream(src))

	require.Len(t, windows, 4)
	assert.Equal(t, 768, windows[3].Start)
	require.Len(t, windows[3].Samples, 2)
	assert.Equal(t, 1024, windows[3].Len())
}

func TestOverlappingStreamSingleBlock(t *testing.T) {
	src := transcode.NewMemoryStream([][]float64{ramp(700)}, 22050, 1)
	o := NewOverlappingStream(src)
	windows := collectWindows(t, o)

	require.Len(t, windows, 1)
	assert.Equal(t, 0, windows[0].Start)
	assert.Equal(t, 700, windows[0].Len())
	assert.Equal(t, 700, o.Consumed())
}

func TestOverlappingStreamEmpty(t *testing.T) {
	o := NewOverlappingStream(transcode.NewMemoryStream(nil, 22050, 1))
	_, err := o.Next(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestIsConstant(t *testing.T) {
	assert.True(t, isConstant([][]float64{{0, 0}, {0, 0}}))
	assert.True(t, isConstant([][]float64{{0.3, 0.3, 0.3}}))
	assert.True(t, isConstant(nil))
	assert.False(t, isConstant([][]float64{{0, 0}, {0, 1e-9}}))
}

func TestToSegmentsCoverage(t *testing.T) {
	segs := toSegments([]int{0, 10, 10, 50, 25}, 100, 1000, 4000)
	require.Len(t, segs, 3)
	assert.Equal(t, Segment{Start: 0, Duration: 1}, segs[0])
	assert.Equal(t, Segment{Start: 1, Duration: 1.5}, segs[1])
	assert.Equal(t, Segment{Start: 2.5, Duration: 1.5}, segs[2])

	assert.Nil(t, toSegments([]int{3}, 100, 1000, 0))
	assert.Equal(t, []Segment{{Start: 0, Duration: 4}}, toSegments(nil, 100, 1000, 4000))
}

func TestExtractFeaturesShapes(t *testing.T) {
	signal := make([]float64, FFTWindow+3*1024)
	for i := range signal {
		signal[i] = math.Sin(2 * math.Pi * 440 * float64(i) / 22050)
	}

	spec, err := ExtractFeatures(signal, 22050, 1024, FeatureSpectral)
	require.NoError(t, err)
	r, c := spec.Dims()
	assert.Equal(t, MelBands, r)
	assert.Equal(t, 4, c)

	chroma, err := ExtractFeatures(signal, 22050, 1024, FeatureChroma)
	require.NoError(t, err)
	r, c = chroma.Dims()
	assert.Equal(t, 12, r)
	assert.Equal(t, 4, c)

	short, err := ExtractFeatures(make([]float64, 100), 22050, 1024, FeatureSpectral)
	assert.NoError(t, err)
	assert.Nil(t, short)
}

func TestExtractFeaturesUnknownTypePanics(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = ExtractFeatures(make([]float64, 4096), 22050, 1024, FeatureType(7))
	})
	assert.Equal(t, "FeatureType(7)", FeatureType(7).String())
}

func TestSegmentBlockShortSignal(t *testing.T) {
	peaks, err := SegmentBlock(make([]float64, 10), 22050, 1024, BlockParams{Feature: FeatureSpectral, Preset: PresetNormal}, 0)
	require.NoError(t, err)
	assert.Empty(t, peaks)
}

// lowRate keeps the pipeline small: a hop of 102 samples and 64-frame blocks.
const (
	lowRate     = 2205
	lowHop      = 102
	blockFrames = 64
)

func assertCovers(t *testing.T, segs []Segment, duration float64) {
	t.Helper()
	require.NotEmpty(t, segs)
	assert.Zero(t, segs[0].Start)
	for i, s := range segs {
		assert.Positive(t, s.Duration, "segment %d", i)
		if i > 0 {
			assert.InDelta(t, segs[i-1].End(), s.Start, 1e-9, "gap before segment %d", i)
		}
	}
	assert.InDelta(t, duration, segs[len(segs)-1].End(), 1e-9)
}

func TestSegmenterSilentFileIsOneSegment(t *testing.T) {
	total := 3 * blockFrames * lowHop
	src := transcode.NewMemoryStream([][]float64{make([]float64, total), make([]float64, total)}, lowRate, blockFrames)
	require.Equal(t, lowHop, src.HopLength())

	stream := NewSegmenter(nil, PresetNormal).SegmentBlocks(src)
	segs, err := stream.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []Segment{{Start: 0, Duration: float64(total) / lowRate}}, segs)
	assert.NoError(t, stream.Close())
}

func TestSegmenterCoversFileWithSilentGap(t *testing.T) {
	blockLen := blockFrames * lowHop
	total := 5*blockLen + 1234
	signal := make([]float64, total)
	for i := range signal {
		switch {
		case i < 2*blockLen:
			signal[i] = math.Sin(2 * math.Pi * 220 * float64(i) / lowRate)
		case i < 3*blockLen:
			// silent block in the middle
		default:
			signal[i] = 0.5 * math.Sin(2*math.Pi*660*float64(i)/lowRate)
		}
	}

	for _, smoothing := range []similarity.Smoothing{similarity.SmoothBoxcar, similarity.SmoothMedian} {
		src := transcode.NewMemoryStream([][]float64{signal}, lowRate, blockFrames)
		seg := NewSegmenter(nil, PresetExtraStrict, WithSmoothing(smoothing))

		segs, err := seg.SegmentBlocks(src).Collect(context.Background())
		require.NoError(t, err, smoothing.String())
		assertCovers(t, segs, float64(total)/lowRate)
	}
}

// twoPartSignal alternates between two tones every half second: lowA/lowB
// for the first half of the file, highA/highB with some noise after it.
func twoPartSignal(rate int, half float64) []float64 {
	rng := rand.New(rand.NewSource(7))
	n := int(2 * half * float64(rate))
	signal := make([]float64, n)
	for i := range signal {
		t := float64(i) / float64(rate)
		even := int(t*2)%2 == 0
		var freq float64
		switch {
		case t < half && even:
			freq = 220
		case t < half:
			freq = 330
		case even:
			freq = 1500
		default:
			freq = 2200
		}
		signal[i] = 0.5 * math.Sin(2*math.Pi*freq*t)
		if t >= half {
			signal[i] += 0.05 * (rng.Float64()*2 - 1)
		}
	}
	return signal
}

func TestSegmenterFindsTransition(t *testing.T) {
	if testing.Short() {
		t.Skip("decodes several minutes of synthetic audio")
	}

	const (
		rate = 22050
		half = 250.0
	)
	signal := twoPartSignal(rate, half)

	for _, preset := range []Preset{PresetStrict, PresetNormal, PresetLenient} {
		src := transcode.NewMemoryStream([][]float64{signal}, rate, BlockFrames)
		segs, err := NewSegmenter(nil, preset).SegmentBlocks(src).Collect(context.Background())
		require.NoError(t, err, preset.Name)

		assertCovers(t, segs, float64(len(signal))/rate)
		require.Len(t, segs, 2, "%s: %v", preset.Name, segs)
		assert.InDelta(t, half, segs[1].Start, 5, preset.Name)
	}
}

func TestSegmenterChromaFeature(t *testing.T) {
	total := 2*blockFrames*lowHop + 500
	signal := make([]float64, total)
	for i := range signal {
		signal[i] = math.Sin(2 * math.Pi * 330 * float64(i) / lowRate)
	}
	src := transcode.NewMemoryStream([][]float64{signal}, lowRate, blockFrames)

	segs, err := NewSegmenter(nil, PresetLenient, WithFeature(FeatureChroma)).SegmentBlocks(src).Collect(context.Background())
	require.NoError(t, err)
	assertCovers(t, segs, float64(total)/lowRate)
}

type failingOpener struct{ t *testing.T }

func (f failingOpener) OpenStream(context.Context, string, int) (transcode.BlockStream, error) {
	f.t.Fatal("stream must not be opened for a missing file")
	return nil, nil
}

func TestSegmentMissingFile(t *testing.T) {
	seg := NewSegmenter(failingOpener{t}, PresetNormal)
	_, err := seg.Segment(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	assert.ErrorIs(t, err, transcode.ErrFileNotFound)
}

type brokenStream struct{ *transcode.MemoryStream }

func (b brokenStream) Next(context.Context) (*transcode.AudioBlock, error) {
	return nil, errors.New("corrupt frame")
}

func TestSegmentStreamPropagatesDecodeErrors(t *testing.T) {
	src := brokenStream{transcode.NewMemoryStream(nil, 22050, 1)}
	stream := NewSegmenter(nil, PresetNormal).SegmentBlocks(src)

	_, err := stream.Next(context.Background())
	assert.ErrorContains(t, err, "corrupt frame")
	_, err = stream.Next(context.Background())
	assert.Error(t, err)
}
