package cache

import (
	"context"
	"errors"
	"strconv"

	"github.com/RyanBlaney/sonido-split/identify"
	"github.com/RyanBlaney/sonido-split/logging"
	"github.com/RyanBlaney/sonido-split/transcode"
)

// FingerprintProvider caches the lookups of another provider by
// fingerprint. Fingerprinting itself always runs.
type FingerprintProvider struct {
	next   identify.FingerprintProvider
	store  *Store
	logger logging.Logger
}

var _ identify.FingerprintProvider = (*FingerprintProvider)(nil)

// WrapFingerprintProvider returns next with cached lookups.
func WrapFingerprintProvider(next identify.FingerprintProvider, store *Store) *FingerprintProvider {
	return &FingerprintProvider{
		next:  next,
		store: store,
		logger: logging.WithFields(logging.Fields{
			"component": "cache",
			"provider":  next.Name(),
		}),
	}
}

func (p *FingerprintProvider) Name() string { return p.next.Name() }

func (p *FingerprintProvider) Fingerprint(ctx context.Context, samples [][]float64, sampleRate int) (identify.Fingerprint, error) {
	return p.next.Fingerprint(ctx, samples, sampleRate)
}

// Lookup answers from the cache when it can. Only successful lookups are
// stored, empty ones included.
func (p *FingerprintProvider) Lookup(ctx context.Context, fp identify.Fingerprint) ([]identify.MetadataOption, error) {
	key := Key("lookup:"+p.next.Name(), []byte(fp.Value), []byte(strconv.Itoa(int(fp.Duration))))

	var cached []identify.MetadataOption
	err := p.store.Get(key, &cached)
	if err == nil {
		p.logger.Debug("Lookup served from cache", logging.Fields{"options": len(cached)})
		return cached, nil
	}
	if !errors.Is(err, ErrNotFound) {
		p.logger.Warn("Cache read failed", logging.Fields{"error": err.Error()})
	}

	options, err := p.next.Lookup(ctx, fp)
	if err != nil {
		return nil, err
	}
	if options == nil {
		options = []identify.MetadataOption{}
	}
	if err := p.store.Set(key, options); err != nil {
		p.logger.Warn("Cache write failed", logging.Fields{"error": err.Error()})
	}
	return options, nil
}

// SnippetProvider caches another snippet provider by the PCM it is given.
type SnippetProvider struct {
	next   identify.SnippetProvider
	store  *Store
	logger logging.Logger
}

var _ identify.SnippetProvider = (*SnippetProvider)(nil)

// WrapSnippetProvider returns next with cached lookups.
func WrapSnippetProvider(next identify.SnippetProvider, store *Store) *SnippetProvider {
	return &SnippetProvider{
		next:  next,
		store: store,
		logger: logging.WithFields(logging.Fields{
			"component": "cache",
			"provider":  next.Name(),
		}),
	}
}

func (p *SnippetProvider) Name() string    { return p.next.Name() }
func (p *SnippetProvider) SampleRate() int { return p.next.SampleRate() }

type snippetEntry struct {
	Match *identify.MetadataOption `json:"match"`
}

// Lookup answers from the cache when it can. Misses are stored too.
func (p *SnippetProvider) Lookup(ctx context.Context, samples [][]float64, fromStart bool) (*identify.MetadataOption, error) {
	direction := []byte("end")
	if fromStart {
		direction = []byte("start")
	}
	key := Key("snippet:"+p.next.Name(), transcode.EncodePCM16(samples), direction)

	var cached snippetEntry
	err := p.store.Get(key, &cached)
	if err == nil {
		p.logger.Debug("Snippet served from cache", logging.Fields{"matched": cached.Match != nil})
		return cached.Match, nil
	}
	if !errors.Is(err, ErrNotFound) {
		p.logger.Warn("Cache read failed", logging.Fields{"error": err.Error()})
	}

	match, err := p.next.Lookup(ctx, samples, fromStart)
	if err != nil {
		return nil, err
	}
	if err := p.store.Set(key, snippetEntry{Match: match}); err != nil {
		p.logger.Warn("Cache write failed", logging.Fields{"error": err.Error()})
	}
	return match, nil
}
