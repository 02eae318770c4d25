package identify

import (
	"context"
	"errors"
)

var (
	// ErrNoBackend means the local fingerprinting tool is not installed.
	ErrNoBackend = errors.New("fingerprint backend not found")
	// ErrFingerprintGeneration means the fingerprinting tool failed.
	ErrFingerprintGeneration = errors.New("fingerprint generation failed")
	// ErrWebService means a recognition service rejected a request or
	// returned an unusable response.
	ErrWebService = errors.New("web service error")
	// ErrSubmission means a service refused a submission.
	ErrSubmission = errors.New("submission failed")
)

// Fingerprint is an acoustic signature of a stretch of audio.
type Fingerprint struct {
	Duration float64 `json:"duration"`
	Value    string  `json:"fingerprint"`
}

// FingerprintProvider identifies audio by fingerprint database lookup. It is
// queried first.
type FingerprintProvider interface {
	Name() string
	// Fingerprint computes the signature of samples (channels x samples).
	Fingerprint(ctx context.Context, samples [][]float64, sampleRate int) (Fingerprint, error)
	// Lookup returns every known candidate for the fingerprint, best first.
	Lookup(ctx context.Context, fp Fingerprint) ([]MetadataOption, error)
}

// SnippetProvider identifies a short snippet taken from either end of a
// segment. It only accepts audio at SampleRate.
type SnippetProvider interface {
	Name() string
	SampleRate() int
	// Lookup returns the match for samples (channels x samples), stepping
	// further into the audio while nothing matches, or nil if nothing did.
	Lookup(ctx context.Context, samples [][]float64, fromStart bool) (*MetadataOption, error)
}

// Submitter accepts user-confirmed metadata for a recording.
type Submitter interface {
	Name() string
	Submit(ctx context.Context, samples [][]float64, sampleRate int, meta MetadataOption) error
}
