package transcode

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/RyanBlaney/sonido-split/logging"
)

const (
	// ReferenceSampleRate is the rate at which the analysis hop is 1024
	// samples; other rates scale the hop proportionally.
	ReferenceSampleRate = 22050
	referenceHop        = 1024
)

// HopLengthFor returns the analysis hop in samples for a sample rate.
func HopLengthFor(sampleRate int) int {
	return referenceHop * sampleRate / ReferenceSampleRate
}

// AudioBlock is one fixed-length chunk of a streamed file.
type AudioBlock struct {
	Samples    [][]float64 // channels x samples
	SampleRate int
	HopLength  int
}

// Len returns the number of samples per channel.
func (b *AudioBlock) Len() int {
	if len(b.Samples) == 0 {
		return 0
	}
	return len(b.Samples[0])
}

// Mono averages all channels into one. Single-channel blocks return their
// samples without copying.
func (b *AudioBlock) Mono() []float64 {
	return Downmix(b.Samples)
}

// BlockStream yields consecutive blocks of a file. Next returns io.EOF after
// the last block. A stream is single pass.
type BlockStream interface {
	Next(ctx context.Context) (*AudioBlock, error)
	SampleRate() int
	HopLength() int
	Close() error
}

// ffmpegStream decodes a file incrementally from ffmpeg's stdout.
type ffmpegStream struct {
	cmd        *exec.Cmd
	reader     *bufio.Reader
	stderr     *bytes.Buffer
	cancel     context.CancelFunc
	sampleRate int
	channels   int
	hop        int
	blockLen   int
	buf        []byte
	done       bool
	logger     logging.Logger
}

// OpenStream starts decoding path at its native sample rate and channel
// count. Every block holds blockFrames*hop samples per channel, except
// possibly the last one.
func (d *Decoder) OpenStream(ctx context.Context, path string, blockFrames int) (BlockStream, error) {
	meta, err := d.Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "OpenStream",
		"filename":  path,
	})

	hop := HopLengthFor(meta.SampleRate)
	if hop <= 0 {
		return nil, fmt.Errorf("sample rate %d too low for analysis", meta.SampleRate)
	}

	args := append([]string{"-v", "error", "-i", path}, d.outputArgs(meta.SampleRate, meta.Channels)...)

	streamCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(streamCtx, d.config.FFmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open ffmpeg stdout: %w", err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	logger.Debug("Streaming decode started", logging.Fields{
		"sample_rate": meta.SampleRate,
		"channels":    meta.Channels,
		"hop":         hop,
		"block_len":   blockFrames * hop,
	})

	blockLen := blockFrames * hop
	return &ffmpegStream{
		cmd:        cmd,
		reader:     bufio.NewReaderSize(stdout, 1<<20),
		stderr:     stderr,
		cancel:     cancel,
		sampleRate: meta.SampleRate,
		channels:   meta.Channels,
		hop:        hop,
		blockLen:   blockLen,
		buf:        make([]byte, blockLen*meta.Channels*8),
		logger:     logger,
	}, nil
}

func (s *ffmpegStream) SampleRate() int { return s.sampleRate }
func (s *ffmpegStream) HopLength() int  { return s.hop }

func (s *ffmpegStream) Next(ctx context.Context) (*AudioBlock, error) {
	if s.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n, err := io.ReadFull(s.reader, s.buf)
	switch {
	case err == nil:
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		s.done = true
		waitErr := s.cmd.Wait()
		s.cmd = nil
		if waitErr != nil {
			return nil, fmt.Errorf("ffmpeg decode failed: %w, stderr: %s", waitErr, s.stderr.String())
		}
		s.logger.Debug("Streaming decode finished")
		if n < s.channels*8 {
			return nil, io.EOF
		}
	default:
		return nil, fmt.Errorf("failed to read decoded audio: %w", err)
	}

	return &AudioBlock{
		Samples:    deinterleave(bytesToFloat64(s.buf[:n]), s.channels),
		SampleRate: s.sampleRate,
		HopLength:  s.hop,
	}, nil
}

// Close stops ffmpeg if it is still running.
func (s *ffmpegStream) Close() error {
	s.done = true
	s.cancel()
	if s.cmd != nil {
		// the process was killed, its exit status carries no information
		_ = s.cmd.Wait()
		s.cmd = nil
	}
	return nil
}

// MemoryStream serves blocks from samples already in memory.
type MemoryStream struct {
	samples    [][]float64
	sampleRate int
	hop        int
	blockLen   int
	pos        int
}

// NewMemoryStream splits samples (channels x samples) into blocks of
// blockFrames*hop samples, with the hop derived from sampleRate.
func NewMemoryStream(samples [][]float64, sampleRate, blockFrames int) *MemoryStream {
	hop := HopLengthFor(sampleRate)
	return &MemoryStream{
		samples:    samples,
		sampleRate: sampleRate,
		hop:        hop,
		blockLen:   max(1, blockFrames*hop),
	}
}

func (m *MemoryStream) SampleRate() int { return m.sampleRate }
func (m *MemoryStream) HopLength() int  { return m.hop }
func (m *MemoryStream) Close() error    { return nil }

func (m *MemoryStream) Next(ctx context.Context) (*AudioBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	total := 0
	if len(m.samples) > 0 {
		total = len(m.samples[0])
	}
	if m.pos >= total {
		return nil, io.EOF
	}

	end := min(m.pos+m.blockLen, total)
	block := make([][]float64, len(m.samples))
	for c, ch := range m.samples {
		block[c] = ch[m.pos:end]
	}
	m.pos = end

	return &AudioBlock{Samples: block, SampleRate: m.sampleRate, HopLength: m.hop}, nil
}
