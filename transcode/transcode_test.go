package transcode

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFFprobeOutput(t *testing.T) {
	out := []byte(`{"streams":[{"codec_type":"audio","codec_name":"flac","codec_long_name":"FLAC (Free Lossless Audio Codec)",
		"sample_rate":"44100","channels":2,"duration":"312.5","bit_rate":"900000"}]}`)

	meta, err := parseFFprobeOutput(out)
	require.NoError(t, err)
	assert.Equal(t, 44100, meta.SampleRate)
	assert.Equal(t, 2, meta.Channels)
	assert.Equal(t, "flac", meta.Codec)
	assert.InDelta(t, 312.5, meta.Duration, 1e-9)
	assert.Equal(t, 900000, meta.Bitrate)
}

func TestParseFFprobeOutputErrors(t *testing.T) {
	cases := map[string]string{
		"not json":    `nope`,
		"no streams":  `{"streams":[]}`,
		"video":       `{"streams":[{"codec_type":"video","sample_rate":"44100","channels":2}]}`,
		"bad rate":    `{"streams":[{"codec_type":"audio","sample_rate":"","channels":2}]}`,
		"no channels": `{"streams":[{"codec_type":"audio","sample_rate":"48000","channels":0}]}`,
	}
	for name, body := range cases {
		_, err := parseFFprobeOutput([]byte(body))
		assert.Error(t, err, name)
	}
}

func TestBytesToFloat64(t *testing.T) {
	values := []float64{0.5, -1, math.Pi}
	raw := make([]byte, 0, len(values)*8+3)
	for _, v := range values {
		raw = binary.LittleEndian.AppendUint64(raw, math.Float64bits(v))
	}
	raw = append(raw, 1, 2, 3) // partial sample is dropped

	assert.Equal(t, values, bytesToFloat64(raw))
	assert.Nil(t, bytesToFloat64([]byte{1, 2}))
}

func TestDeinterleaveAndMono(t *testing.T) {
	samples := deinterleave([]float64{1, 3, 2, 4, 5, 7, 9}, 2)
	require.Len(t, samples, 2)
	assert.Equal(t, []float64{1, 2, 5}, samples[0])
	assert.Equal(t, []float64{3, 4, 7}, samples[1])

	data := &AudioData{Samples: samples, SampleRate: 8000, Channels: 2}
	assert.Equal(t, []float64{2, 3, 6}, data.Mono())
	assert.Equal(t, 3, data.Len())
}

func TestHopLengthFor(t *testing.T) {
	assert.Equal(t, 1024, HopLengthFor(22050))
	assert.Equal(t, 2048, HopLengthFor(44100))
	assert.Equal(t, 2229, HopLengthFor(48000))
	assert.Equal(t, 371, HopLengthFor(8000))
}

func TestMemoryStreamBlocks(t *testing.T) {
	const sr = 22050
	total := 3*1024*2 + 100
	left := make([]float64, total)
	right := make([]float64, total)
	for i := range total {
		left[i] = float64(i)
		right[i] = -float64(i)
	}

	stream := NewMemoryStream([][]float64{left, right}, sr, 2)
	assert.Equal(t, sr, stream.SampleRate())
	assert.Equal(t, 1024, stream.HopLength())

	ctx := context.Background()
	var lengths []int
	for {
		block, err := stream.Next(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.Len(t, block.Samples, 2)
		lengths = append(lengths, block.Len())
		assert.Equal(t, 1024, block.HopLength)
		assert.Equal(t, make([]float64, block.Len()), block.Mono())
	}
	assert.Equal(t, []int{2048, 2048, 2048, 100}, lengths)

	_, err := stream.Next(ctx)
	assert.Equal(t, io.EOF, err)
	assert.NoError(t, stream.Close())
}

func TestMemoryStreamHonoursContext(t *testing.T) {
	stream := NewMemoryStream([][]float64{make([]float64, 10)}, 22050, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := stream.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckFile(t *testing.T) {
	dir := t.TempDir()
	assert.ErrorIs(t, CheckFile(filepath.Join(dir, "missing.flac")), ErrFileNotFound)
	assert.ErrorIs(t, CheckFile(dir), ErrFileNotFound)

	path := filepath.Join(dir, "mix.flac")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	assert.NoError(t, CheckFile(path))
}

func TestDecoderRejectsMissingFileBeforeSpawning(t *testing.T) {
	d := NewDecoder(&DecoderConfig{FFmpegPath: "/nonexistent/ffmpeg", FFprobePath: "/nonexistent/ffprobe"})
	missing := filepath.Join(t.TempDir(), "gone.mp3")

	_, err := d.OpenStream(context.Background(), missing, 4096)
	assert.ErrorIs(t, err, ErrFileNotFound)
	_, err = d.DecodeRange(context.Background(), missing, 0, 10, 44100, 2)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestEncodePCM16(t *testing.T) {
	raw := EncodePCM16([][]float64{{0, 1, -2}, {0.5, -1, 0}})
	require.Len(t, raw, 12)

	got := make([]int16, 6)
	for i := range got {
		got[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	assert.Equal(t, []int16{0, 16384, 32767, -32767, -32767, 0}, got)
	assert.Nil(t, EncodePCM16(nil))
}
