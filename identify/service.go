// Package identify matches segments of a recording against recognition
// providers and merges consecutive segments of the same song.
package identify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/RyanBlaney/sonido-split/logging"
	"github.com/RyanBlaney/sonido-split/segmentation"
	"github.com/RyanBlaney/sonido-split/transcode"
)

const (
	// ReferenceSampleRate is the rate segments are decoded at. The snippet
	// provider only works at this rate.
	ReferenceSampleRate = 44100
	decodeChannels      = 2
)

// RangeDecoder decodes part of a file. *transcode.Decoder implements it.
type RangeDecoder interface {
	DecodeRange(ctx context.Context, path string, offset, duration float64, sampleRate, channels int) (*transcode.AudioData, error)
}

// SegmentSource yields segments until io.EOF. *segmentation.SegmentStream
// implements it.
type SegmentSource interface {
	Next(ctx context.Context) (segmentation.Segment, error)
}

// Song is a stretch of the file believed to be one recording, with every
// candidate identification still in the running.
type Song struct {
	Offset          float64          `json:"offset" yaml:"offset"`
	Duration        float64          `json:"duration" yaml:"duration"`
	MetadataOptions []MetadataOption `json:"metadataOptions" yaml:"metadataOptions"`
}

func (s Song) clone() Song {
	s.MetadataOptions = slices.Clone(s.MetadataOptions)
	if s.MetadataOptions == nil {
		s.MetadataOptions = []MetadataOption{}
	}
	return s
}

// Identification is the outcome of IdentifyAll.
type Identification struct {
	Songs []Song `json:"songs" yaml:"songs"`
	// MismatchOffsets are the starts of segments that contain the end of
	// one song and the start of another.
	MismatchOffsets []float64 `json:"mismatchOffsets" yaml:"mismatchOffsets"`
}

// Service holds the identification state of one file: the song currently
// being accumulated and the last finished one. It is not safe for
// concurrent use; create one Service per file.
type Service struct {
	decoder     RangeDecoder
	fingerprint FingerprintProvider
	snippet     SnippetProvider
	metrics     *Metrics
	progress    func(segmentation.Segment, Result)
	logger      logging.Logger

	fingerprintDisabled bool

	current Song
	last    Song
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithFingerprintProvider sets the provider queried first.
func WithFingerprintProvider(p FingerprintProvider) ServiceOption {
	return func(s *Service) { s.fingerprint = p }
}

// WithSnippetProvider sets the provider queried when fingerprinting finds
// nothing.
func WithSnippetProvider(p SnippetProvider) ServiceOption {
	return func(s *Service) { s.snippet = p }
}

// WithMetrics records into m instead of DefaultMetrics.
func WithMetrics(m *Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithProgress calls fn after every segment handled by IdentifyAll.
func WithProgress(fn func(segmentation.Segment, Result)) ServiceOption {
	return func(s *Service) { s.progress = fn }
}

// NewService creates a Service whose current and last songs hold the
// "not-set" placeholder.
func NewService(decoder RangeDecoder, opts ...ServiceOption) *Service {
	s := &Service{
		decoder: decoder,
		logger: logging.WithFields(logging.Fields{
			"component": "api_service",
		}),
		current: Song{MetadataOptions: placeholderOptions()},
		last:    Song{MetadataOptions: placeholderOptions()},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = DefaultMetrics()
	}
	return s
}

// LastSong returns the most recently finished song.
func (s *Service) LastSong() Song {
	return s.last.clone()
}

// FinalSong returns the song still being accumulated. Call it once after the
// last segment.
func (s *Service) FinalSong() Song {
	return s.current.clone()
}

// GetSongOptions identifies the segment [offset, offset+duration) of path
// and folds the outcome into the service state. Provider failures are
// logged and count as "nothing found"; only decode failures and context
// cancellation are returned as errors.
func (s *Service) GetSongOptions(ctx context.Context, offset, duration float64, path string) (Result, error) {
	audio, err := s.decoder.DecodeRange(ctx, path, offset, duration, ReferenceSampleRate, decodeChannels)
	if err != nil {
		return SongNotRecognised, fmt.Errorf("failed to decode segment at %.2fs: %w", offset, err)
	}

	logger := s.logger.WithFields(logging.Fields{
		"offset":   offset,
		"duration": duration,
	})

	result, err := s.identify(ctx, audio, offset, duration, logger)
	if err != nil {
		return result, err
	}

	s.metrics.RecordResult(ctx, result)
	logger.Debug("Segment identified", logging.Fields{
		"result":  result.String(),
		"options": len(s.current.MetadataOptions),
	})
	return result, nil
}

func (s *Service) identify(ctx context.Context, audio *transcode.AudioData, offset, duration float64, logger logging.Logger) (Result, error) {
	if options := s.lookupFingerprint(ctx, audio, logger); len(options) > 0 {
		return s.extendOrFinish(offset, duration, options), nil
	}
	if err := ctx.Err(); err != nil {
		return SongNotRecognised, err
	}

	if s.snippet != nil && audio.SampleRate == s.snippet.SampleRate() {
		start, end, ok := s.lookupSnippets(ctx, audio, logger)
		if err := ctx.Err(); err != nil {
			return SongNotRecognised, err
		}
		if ok {
			if options := Overlap(start, end); len(options) > 0 {
				return s.extendOrFinish(offset, duration, options), nil
			}
			if len(start) > 0 && len(end) > 0 {
				logger.Warn("Segment start and end are different songs", logging.Fields{
					"start_title": start[0].Title,
					"end_title":   end[0].Title,
				})
				s.store(offset, duration, nil)
				return SongMismatch, nil
			}
		}
	}

	s.store(offset, duration, nil)
	return SongNotRecognised, nil
}

// lookupFingerprint returns the fingerprint provider's candidates, or nil
// when it is unavailable or fails.
func (s *Service) lookupFingerprint(ctx context.Context, audio *transcode.AudioData, logger logging.Logger) []MetadataOption {
	if s.fingerprint == nil || s.fingerprintDisabled {
		return nil
	}
	name := s.fingerprint.Name()
	logger = logger.WithFields(logging.Fields{"provider": name})
	started := time.Now()

	fp, err := s.fingerprint.Fingerprint(ctx, audio.Samples, audio.SampleRate)
	if err != nil {
		s.metrics.RecordProviderRequest(ctx, name, "error", time.Since(started).Seconds())
		if errors.Is(err, ErrNoBackend) {
			// stays off for the rest of this file
			s.fingerprintDisabled = true
			logger.Error(err, "No fingerprint backend found, disabling provider")
			return nil
		}
		logger.Error(err, "Fingerprinting failed")
		return nil
	}

	options, err := s.fingerprint.Lookup(ctx, fp)
	if err != nil {
		s.metrics.RecordProviderRequest(ctx, name, "error", time.Since(started).Seconds())
		logger.Error(err, "Fingerprint lookup failed")
		return nil
	}

	s.metrics.RecordProviderRequest(ctx, name, matchStatus(len(options) > 0), time.Since(started).Seconds())
	return options
}

// lookupSnippets queries the snippet provider from both ends of the
// segment. ok is false if either query failed.
func (s *Service) lookupSnippets(ctx context.Context, audio *transcode.AudioData, logger logging.Logger) (start, end []MetadataOption, ok bool) {
	name := s.snippet.Name()
	logger = logger.WithFields(logging.Fields{"provider": name})

	query := func(fromStart bool) ([]MetadataOption, bool) {
		started := time.Now()
		match, err := s.snippet.Lookup(ctx, audio.Samples, fromStart)
		if err != nil {
			s.metrics.RecordProviderRequest(ctx, name, "error", time.Since(started).Seconds())
			logger.Error(err, "Snippet lookup failed", logging.Fields{"from_start": fromStart})
			return nil, false
		}
		s.metrics.RecordProviderRequest(ctx, name, matchStatus(match != nil), time.Since(started).Seconds())
		if match == nil {
			return []MetadataOption{}, true
		}
		return []MetadataOption{*match}, true
	}

	if start, ok = query(true); !ok {
		return nil, nil, false
	}
	if end, ok = query(false); !ok {
		return nil, nil, false
	}
	return start, end, true
}

func matchStatus(found bool) string {
	if found {
		return "match"
	}
	return "no_match"
}

// extendOrFinish reconciles a segment's candidates with the current song.
func (s *Service) extendOrFinish(offset, duration float64, options []MetadataOption) Result {
	matched := Overlap(s.current.MetadataOptions, options)
	if len(matched) == 0 {
		s.store(offset, duration, options)
		return SongFinished
	}

	s.current.MetadataOptions = matched
	s.current.Duration += duration
	return SongExtended
}

// store finishes the current song and starts a new one.
func (s *Service) store(offset, duration float64, options []MetadataOption) {
	if options == nil {
		options = []MetadataOption{}
	}
	s.last = s.current
	s.current = Song{Offset: offset, Duration: duration, MetadataOptions: options}
}

// IdentifyAll identifies every segment of path and returns the finished
// songs in order. The first finish is suppressed because it only flushes the
// placeholder state; the final song is appended whenever at least one
// segment was identified.
func (s *Service) IdentifyAll(ctx context.Context, segments SegmentSource, path string) (*Identification, error) {
	out := &Identification{
		Songs:           []Song{},
		MismatchOffsets: []float64{},
	}

	isFirst := true
	consumed := 0
	for {
		seg, err := segments.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		result, err := s.GetSongOptions(ctx, seg.Start, seg.Duration, path)
		if err != nil {
			return nil, err
		}
		consumed++

		switch result {
		case SongFinished, SongNotRecognised:
			if !isFirst {
				out.Songs = append(out.Songs, s.LastSong())
			}
		case SongMismatch:
			out.Songs = append(out.Songs, s.LastSong())
			out.MismatchOffsets = append(out.MismatchOffsets, seg.Start)
		}
		if result != SongExtended {
			isFirst = false
		}

		if s.progress != nil {
			s.progress(seg, result)
		}
	}

	// an empty file has no song, not the placeholder
	if consumed > 0 {
		out.Songs = append(out.Songs, s.FinalSong())
	}

	s.logger.Info("Identification completed", logging.Fields{
		"file":       path,
		"songs":      len(out.Songs),
		"mismatches": len(out.MismatchOffsets),
	})
	return out, nil
}

// SliceSegments serves segments from memory.
type SliceSegments struct {
	segments []segmentation.Segment
	pos      int
}

// NewSliceSegments wraps segs.
func NewSliceSegments(segs ...segmentation.Segment) *SliceSegments {
	return &SliceSegments{segments: segs}
}

func (s *SliceSegments) Next(ctx context.Context) (segmentation.Segment, error) {
	if err := ctx.Err(); err != nil {
		return segmentation.Segment{}, err
	}
	if s.pos >= len(s.segments) {
		return segmentation.Segment{}, io.EOF
	}
	seg := s.segments[s.pos]
	s.pos++
	return seg, nil
}
