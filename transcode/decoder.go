package transcode

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-split/logging"
)

// ErrFileNotFound is returned when the input file does not exist or cannot be
// read. It is reported before any decoding starts.
var ErrFileNotFound = errors.New("audio file not found")

// AudioData represents a decoded range of a file
type AudioData struct {
	Samples    [][]float64   `json:"-"` // channels x samples
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	Duration   time.Duration `json:"duration"`
}

// Mono averages all channels into one.
func (a *AudioData) Mono() []float64 {
	return Downmix(a.Samples)
}

// Len returns the number of samples per channel.
func (a *AudioData) Len() int {
	if len(a.Samples) == 0 {
		return 0
	}
	return len(a.Samples[0])
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	FFmpegPath  string        `json:"ffmpeg_path"`  // Path to ffmpeg binary
	FFprobePath string        `json:"ffprobe_path"` // Path to ffprobe binary
	Timeout     time.Duration `json:"timeout"`      // Timeout for probe and range decodes
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		FFmpegPath:  "ffmpeg",  // Assume in PATH
		FFprobePath: "ffprobe", // Assume in PATH
		Timeout:     2 * time.Minute,
	}
}

// Decoder handles audio decoding using FFmpeg
type Decoder struct {
	config *DecoderConfig
}

// AudioMetadata holds detected audio properties from FFprobe
type AudioMetadata struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"`
	Format     string  `json:"format"`
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{config: config}
}

// CheckFile reports ErrFileNotFound when path is missing, a directory or
// unreadable.
func CheckFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFileNotFound, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrFileNotFound, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFileNotFound, path, err)
	}
	return f.Close()
}

// Probe uses ffprobe to read the properties of the first audio stream.
func (d *Decoder) Probe(ctx context.Context, path string) (*AudioMetadata, error) {
	if err := CheckFile(path); err != nil {
		return nil, err
	}

	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	args := []string{
		"-v", "quiet", // Suppress verbose output
		"-print_format", "json", // JSON output
		"-show_streams",          // Show stream info
		"-select_streams", "a:0", // First audio stream only
		path,
	}

	output, err := exec.CommandContext(ctx, d.config.FFprobePath, args...).Output()
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, string(exitError.Stderr))
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseFFprobeOutput(output)
}

// parseFFprobeOutput parses ffprobe JSON to extract audio metadata
func parseFFprobeOutput(jsonData []byte) (*AudioMetadata, error) {
	var probe struct {
		Streams []struct {
			CodecType     string `json:"codec_type"`
			CodecName     string `json:"codec_name"`
			SampleRate    string `json:"sample_rate"`
			Channels      int    `json:"channels"`
			Duration      string `json:"duration"`
			BitRate       string `json:"bit_rate"`
			CodecLongName string `json:"codec_long_name"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(jsonData, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("no audio streams found")
	}

	stream := probe.Streams[0]

	// Validate that this is an audio stream
	if stream.CodecType != "audio" {
		return nil, fmt.Errorf("stream is not audio type: %s", stream.CodecType)
	}

	sampleRate, err := strconv.Atoi(stream.SampleRate)
	if err != nil || sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %q", stream.SampleRate)
	}

	duration, err := strconv.ParseFloat(stream.Duration, 64)
	if err != nil {
		duration = 0
	}

	bitrate, err := strconv.Atoi(stream.BitRate)
	if err != nil {
		bitrate = 0
	}

	// Validate channels
	if stream.Channels <= 0 || stream.Channels > 8 {
		return nil, fmt.Errorf("invalid channel count: %d", stream.Channels)
	}

	return &AudioMetadata{
		SampleRate: sampleRate,
		Channels:   stream.Channels,
		Codec:      stream.CodecName,
		Duration:   duration,
		Bitrate:    bitrate,
		Format:     stream.CodecLongName,
	}, nil
}

// DecodeRange decodes duration seconds starting at offset, resampled to
// sampleRate with the given number of channels.
func (d *Decoder) DecodeRange(ctx context.Context, path string, offset, duration float64, sampleRate, channels int) (*AudioData, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "DecodeRange",
		"filename":  path,
		"offset":    offset,
		"duration":  duration,
	})

	if err := CheckFile(path); err != nil {
		return nil, err
	}
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("invalid output format: %d Hz, %d channels", sampleRate, channels)
	}

	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	args := []string{"-v", "error"}
	if offset > 0 {
		args = append(args, "-ss", fmt.Sprintf("%.6f", offset))
	}
	args = append(args, "-i", path)
	if duration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.6f", duration))
	}
	args = append(args, d.outputArgs(sampleRate, channels)...)

	logger.Debug("Running ffmpeg command", logging.Fields{
		"args": strings.Join(args, " "),
	})

	output, err := exec.CommandContext(ctx, d.config.FFmpegPath, args...).Output()
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			logger.Error(err, "Ffmpeg decode failed", logging.Fields{
				"stderr": string(exitError.Stderr),
			})
		}
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}

	samples := deinterleave(bytesToFloat64(output), channels)
	data := &AudioData{
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   channels,
	}
	data.Duration = time.Duration(data.Len()) * time.Second / time.Duration(sampleRate)

	logger.Debug("Range decode completed", logging.Fields{
		"samples_per_ch": data.Len(),
	})

	return data, nil
}

// outputArgs selects the first audio stream and writes raw float64 PCM to
// stdout.
func (d *Decoder) outputArgs(sampleRate, channels int) []string {
	return []string{
		"-map", "0:a:0",
		"-vn",         // No video
		"-f", "f64le", // Output raw float64 little-endian
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(sampleRate),
		"pipe:1",
	}
}

// ValidateConfig checks that ffmpeg and ffprobe can be executed.
func (d *Decoder) ValidateConfig() error {
	if _, err := exec.LookPath(d.config.FFmpegPath); err != nil {
		return fmt.Errorf("ffmpeg not found at %s: %w", d.config.FFmpegPath, err)
	}
	if _, err := exec.LookPath(d.config.FFprobePath); err != nil {
		return fmt.Errorf("ffprobe not found at %s: %w", d.config.FFprobePath, err)
	}
	return nil
}

// bytesToFloat64 converts raw float64 bytes to []float64
func bytesToFloat64(data []byte) []float64 {
	if len(data)%8 != 0 {
		// Trim to multiple of 8 bytes
		data = data[:len(data)-(len(data)%8)]
	}

	if len(data) == 0 {
		return nil
	}

	sampleCount := len(data) / 8
	samples := make([]float64, sampleCount)

	for i := range sampleCount {
		bits := binary.LittleEndian.Uint64(data[i*8 : i*8+8])
		samples[i] = math.Float64frombits(bits)
	}

	return samples
}

// deinterleave splits frame-interleaved samples into one slice per channel.
// A trailing partial frame is dropped.
func deinterleave(interleaved []float64, channels int) [][]float64 {
	frames := len(interleaved) / channels
	out := make([][]float64, channels)
	for c := range channels {
		out[c] = make([]float64, frames)
	}
	for i := range frames {
		for c := range channels {
			out[c][i] = interleaved[i*channels+c]
		}
	}
	return out
}

// Downmix averages channels into one. A single channel is returned as is.
func Downmix(samples [][]float64) []float64 {
	if len(samples) == 0 {
		return nil
	}
	if len(samples) == 1 {
		return samples[0]
	}

	mono := make([]float64, len(samples[0]))
	for _, ch := range samples {
		for i, v := range ch {
			mono[i] += v
		}
	}
	scale := 1 / float64(len(samples))
	for i := range mono {
		mono[i] *= scale
	}
	return mono
}
