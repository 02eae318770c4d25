// Package segmentation splits a continuous recording into track segments by
// detecting novelty peaks in the self-similarity of streamed audio.
package segmentation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/RyanBlaney/sonido-split/algorithms/similarity"
	"github.com/RyanBlaney/sonido-split/logging"
	"github.com/RyanBlaney/sonido-split/transcode"
)

// BlockFrames is the length of one streamed block in analysis frames.
const BlockFrames = 4096

// Segment is a contiguous part of a file in seconds.
type Segment struct {
	Start    float64 `json:"start" yaml:"start"`
	Duration float64 `json:"duration" yaml:"duration"`
}

// End returns Start + Duration.
func (s Segment) End() float64 {
	return s.Start + s.Duration
}

// StreamOpener opens a file as a stream of blocks of blockFrames analysis
// frames. *transcode.Decoder implements it.
type StreamOpener interface {
	OpenStream(ctx context.Context, path string, blockFrames int) (transcode.BlockStream, error)
}

// Segmenter drives the block pipeline over a whole file.
type Segmenter struct {
	opener    StreamOpener
	preset    Preset
	smoothing similarity.Smoothing
	feature   FeatureType
	logger    logging.Logger
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithSmoothing selects the temporal filter applied before downsampling.
func WithSmoothing(s similarity.Smoothing) Option {
	return func(seg *Segmenter) { seg.smoothing = s }
}

// WithFeature overrides the feature type. Only FeatureSpectral and
// FeatureChroma are valid; anything else panics while segmenting.
func WithFeature(f FeatureType) Option {
	return func(seg *Segmenter) { seg.feature = f }
}

// NewSegmenter creates a segmenter using the spectral feature and boxcar
// smoothing unless overridden.
func NewSegmenter(opener StreamOpener, preset Preset, opts ...Option) *Segmenter {
	s := &Segmenter{
		opener:    opener,
		preset:    preset,
		smoothing: similarity.SmoothBoxcar,
		feature:   FeatureSpectral,
		logger: logging.WithFields(logging.Fields{
			"component": "segmenter",
			"preset":    preset.Name,
		}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Segment opens path and returns its lazy segment stream. A missing or
// unreadable file fails here with transcode.ErrFileNotFound, before any
// decoding. The caller must Close the stream.
func (s *Segmenter) Segment(ctx context.Context, path string) (*SegmentStream, error) {
	if err := transcode.CheckFile(path); err != nil {
		return nil, err
	}

	blocks, err := s.opener.OpenStream(ctx, path, BlockFrames)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	return s.SegmentBlocks(blocks), nil
}

// SegmentBlocks segments an already opened block stream. Closing the
// returned stream closes blocks.
func (s *Segmenter) SegmentBlocks(blocks transcode.BlockStream) *SegmentStream {
	return &SegmentStream{seg: s, blocks: blocks}
}

// SegmentStream yields the segments of one file in order. Boundaries are
// only final once every block has been analysed, so the first call to Next
// consumes the whole block stream; later calls are cheap. It is single pass.
type SegmentStream struct {
	seg      *Segmenter
	blocks   transcode.BlockStream
	segments []Segment
	pos      int
	analysed bool
	err      error
}

// Next returns the next segment, or io.EOF after the last one.
func (ss *SegmentStream) Next(ctx context.Context) (Segment, error) {
	if !ss.analysed {
		ss.analysed = true
		ss.segments, ss.err = ss.seg.analyse(ctx, ss.blocks)
	}
	if ss.err != nil {
		return Segment{}, ss.err
	}
	if ss.pos >= len(ss.segments) {
		return Segment{}, io.EOF
	}
	seg := ss.segments[ss.pos]
	ss.pos++
	return seg, nil
}

// Close releases the underlying block stream.
func (ss *SegmentStream) Close() error {
	return ss.blocks.Close()
}

// Collect drains the stream.
func (ss *SegmentStream) Collect(ctx context.Context) ([]Segment, error) {
	var out []Segment
	for {
		seg, err := ss.Next(ctx)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, seg)
	}
}

// analyse runs the block pipeline over every overlapping window, applies the
// consensus filter and converts the surviving boundaries into segments that
// exactly cover the decoded audio.
func (s *Segmenter) analyse(ctx context.Context, blocks transcode.BlockStream) ([]Segment, error) {
	sampleRate, hop := blocks.SampleRate(), blocks.HopLength()
	if sampleRate <= 0 || hop <= 0 {
		return nil, fmt.Errorf("invalid stream format: %d Hz, hop %d", sampleRate, hop)
	}

	params := BlockParams{Feature: s.feature, Preset: s.preset, Smoothing: s.smoothing}
	windows := NewOverlappingStream(blocks)

	var candidates []int
	analysed, skipped := 0, 0
	for {
		w, err := windows.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read audio: %w", err)
		}

		if isConstant(w.Samples) {
			skipped++
			continue
		}

		mono := (&transcode.AudioBlock{Samples: w.Samples}).Mono()
		peaks, err := SegmentBlock(mono, sampleRate, hop, params, w.Start/hop)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, peaks...)
		analysed++
	}

	total := windows.Consumed()
	boundaries := FilterPeaks(candidates, ConsensusCount)

	s.logger.Debug("Segmentation analysis completed", logging.Fields{
		"windows_analysed": analysed,
		"windows_skipped":  skipped,
		"candidates":       len(candidates),
		"boundaries":       len(boundaries),
		"total_samples":    total,
	})

	return toSegments(boundaries, hop, sampleRate, total), nil
}

// toSegments converts frame boundaries to segments covering [0, total)
// samples. Boundaries outside (0, total) are dropped.
func toSegments(boundaries []int, hop, sampleRate, total int) []Segment {
	if total <= 0 {
		return nil
	}

	cuts := []int{0}
	for _, b := range boundaries {
		if s := b * hop; s > 0 && s < total {
			cuts = append(cuts, s)
		}
	}
	cuts = append(cuts, total)
	slices.Sort(cuts)
	cuts = slices.Compact(cuts)

	sr := float64(sampleRate)
	segments := make([]Segment, 0, len(cuts)-1)
	for i := 1; i < len(cuts); i++ {
		segments = append(segments, Segment{
			Start:    float64(cuts[i-1]) / sr,
			Duration: float64(cuts[i]-cuts[i-1]) / sr,
		})
	}
	return segments
}
