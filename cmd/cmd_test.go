package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-split/identify"
	"github.com/RyanBlaney/sonido-split/segmentation"
)

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "0:00.000", formatTime(0))
	assert.Equal(t, "1:05.250", formatTime(65.25))
	assert.Equal(t, "59:59.999", formatTime(3599.999))
	assert.Equal(t, "1:00:00.000", formatTime(3600))
	assert.Equal(t, "2:03:04.500", formatTime(7384.5))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "(not recognised)", describe(nil))
	assert.Equal(t, "M83 - Midnight City [Hurry Up, We're Dreaming] (+1 more)", describe([]identify.MetadataOption{
		{Title: "Midnight City", Artist: "M83", Album: "Hurry Up, We're Dreaming"},
		{Title: "Midnight City", Artist: "M83", Album: "Midnight City"},
	}))
	assert.Equal(t, "M83 - Wait", describe([]identify.MetadataOption{{Title: "Wait", Artist: "M83"}}))
}

func TestRenderSegmentsTable(t *testing.T) {
	results := []fileSegments{
		{File: "mix.flac", Segments: []segmentation.Segment{
			{Start: 0, Duration: 61.5},
			{Start: 61.5, Duration: 120},
		}},
		{File: "broken.mp3", Error: "file not found"},
	}

	var out bytes.Buffer
	require.NoError(t, render(&out, "table", results, segmentsTable(results)))

	text := out.String()
	assert.Contains(t, text, "mix.flac")
	assert.Contains(t, text, "1:01.500")
	assert.Contains(t, text, "3:01.500")
	assert.Contains(t, text, "error: file not found")
}

func TestRenderSongsJSON(t *testing.T) {
	results := []fileSongs{{
		File: "mix.flac",
		Songs: []identify.Song{{
			Offset:          0,
			Duration:        200,
			MetadataOptions: []identify.MetadataOption{{Title: "Wait", Artist: "M83"}},
		}},
		MismatchOffsets: []float64{},
		FileNames:       []string{"M83 - Wait.flac"},
	}}

	var out bytes.Buffer
	require.NoError(t, render(&out, "json", results, songsTable(results)))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "mix.flac", decoded[0]["file"])
	assert.Equal(t, []any{"M83 - Wait.flac"}, decoded[0]["fileNames"])
	assert.Equal(t, []any{}, decoded[0]["mismatchOffsets"])
	assert.NotContains(t, decoded[0], "error")
}

func TestRenderSongsTable(t *testing.T) {
	results := []fileSongs{{
		File: "mix.flac",
		Songs: []identify.Song{
			{Offset: 0, Duration: 200, MetadataOptions: []identify.MetadataOption{{Title: "Wait", Artist: "M83"}}},
			{Offset: 200, Duration: 100, MetadataOptions: []identify.MetadataOption{}},
		},
		MismatchOffsets: []float64{200},
	}}

	var out bytes.Buffer
	require.NoError(t, render(&out, "table", results, songsTable(results)))

	text := out.String()
	assert.Contains(t, text, "M83 - Wait")
	assert.Contains(t, text, "(not recognised)")
	assert.Contains(t, text, "unresolved boundaries in segments starting at 3:20.000")
	assert.NotContains(t, text, "FILE NAME")
}

func TestRenderYAML(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, render(&out, "yaml", segmentation.Presets(), nil))

	var decoded []segmentation.Preset
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, segmentation.Presets(), decoded)
}

func TestRenderUnknownFormat(t *testing.T) {
	err := render(&bytes.Buffer{}, "csv", nil, nil)
	assert.ErrorContains(t, err, "csv")
}

func TestForEachFile(t *testing.T) {
	var calls atomic.Int32
	paths := []string{"a", "b", "c", "d"}

	err := forEachFile(context.Background(), 2, paths, func(ctx context.Context, i int, path string) error {
		calls.Add(1)
		if path == "b" || path == "d" {
			return errors.New("decode failed")
		}
		return nil
	})

	assert.Equal(t, int32(4), calls.Load())
	require.ErrorIs(t, err, errFilesFailed)
	assert.Contains(t, err.Error(), "2 of 4")
}

func TestForEachFileAllSucceed(t *testing.T) {
	err := forEachFile(context.Background(), 0, []string{"a"}, func(context.Context, int, string) error {
		return nil
	})
	assert.NoError(t, err)
}

func TestForEachFileCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	err := forEachFile(ctx, 1, []string{"a", "b"}, func(context.Context, int, string) error {
		calls.Add(1)
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestMetadataFromFlags(t *testing.T) {
	fs := pflag.NewFlagSet("submit", pflag.ContinueOnError)
	addMetadataFlags(fs)
	require.NoError(t, fs.Parse([]string{
		"--title", "Midnight City",
		"--artist", "M83",
		"--album-artist", "M83",
		"--year", "2011",
	}))

	assert.Equal(t, identify.MetadataOption{
		Title:       "Midnight City",
		Artist:      "M83",
		AlbumArtist: "M83",
		Year:        "2011",
	}, metadataFromFlags(fs))
}

func TestVersionCommand(t *testing.T) {
	out, err := runRoot(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "sonido-split dev\n", out)
}

func TestPresetsCommand(t *testing.T) {
	out, err := runRoot(t, "presets", "-o", "json")
	require.NoError(t, err)

	var decoded []segmentation.Preset
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 5)
	assert.Equal(t, "extra strict", decoded[0].Name)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "["))
}

func TestStatsPrint(t *testing.T) {
	s, err := newStats()
	require.NoError(t, err)
	ctx := context.Background()
	t.Cleanup(func() { s.Shutdown(ctx) })

	s.metrics.RecordProviderRequest(ctx, "acoustid", "match", 0.5)
	s.metrics.RecordProviderRequest(ctx, "acoustid", "match", 1.5)
	s.metrics.RecordProviderRequest(ctx, "shazam", "error", 2)
	s.metrics.RecordResult(ctx, identify.SongExtended)
	s.metrics.RecordResult(ctx, identify.SongExtended)
	s.metrics.RecordResult(ctx, identify.SongFinished)

	var out bytes.Buffer
	require.NoError(t, s.Print(ctx, &out))

	text := out.String()
	assert.Regexp(t, `acoustid match\s+2`, text)
	assert.Regexp(t, `shazam error\s+1`, text)
	assert.Regexp(t, `acoustid\s+1\.000s`, text)
	assert.Regexp(t, `shazam\s+2\.000s`, text)
	assert.Regexp(t, `extended\s+2`, text)
	assert.Regexp(t, `finished\s+1`, text)
}
