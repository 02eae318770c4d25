package cmd

import (
	"context"

	"github.com/RyanBlaney/sonido-split/cache"
	"github.com/RyanBlaney/sonido-split/configs"
	"github.com/RyanBlaney/sonido-split/identify"
	"github.com/RyanBlaney/sonido-split/identify/acoustid"
	"github.com/RyanBlaney/sonido-split/identify/shazam"
	"github.com/RyanBlaney/sonido-split/logging"
	"github.com/RyanBlaney/sonido-split/segmentation"
	"github.com/RyanBlaney/sonido-split/transcode"
)

// app holds the components shared by all files of one invocation.
type app struct {
	config    *configs.Config
	decoder   *transcode.Decoder
	segmenter *segmentation.Segmenter

	fingerprint identify.FingerprintProvider
	snippet     identify.SnippetProvider
	submitters  []identify.Submitter

	store  *cache.Store
	stats  *stats
	logger logging.Logger
}

// appOptions selects the optional parts of an app.
type appOptions struct {
	// providers sets up the recognition services and the cache
	providers bool
	stats     bool
}

func newApp(cfg *configs.Config, opts appOptions) (*app, error) {
	a := &app{
		config: cfg,
		logger: logging.WithFields(logging.Fields{
			"component": "cli",
		}),
	}

	a.decoder = transcode.NewDecoder(&transcode.DecoderConfig{
		FFmpegPath:  cfg.Decoder.FFmpegPath,
		FFprobePath: cfg.Decoder.FFprobePath,
		Timeout:     cfg.Decoder.Timeout,
	})
	if err := a.decoder.ValidateConfig(); err != nil {
		return nil, err
	}

	a.segmenter = segmentation.NewSegmenter(a.decoder, cfg.PresetValue(),
		segmentation.WithSmoothing(cfg.SmoothingValue()),
	)

	if opts.stats {
		s, err := newStats()
		if err != nil {
			return nil, err
		}
		a.stats = s
	}

	if !opts.providers {
		return a, nil
	}

	if cfg.Cache.Enabled {
		store, err := cache.Open(cache.Options{Dir: cfg.Cache.Dir, TTL: cfg.Cache.TTL})
		if err != nil {
			// usually another instance holds the lock
			a.logger.Error(err, "Cache unavailable, continuing without it")
		} else {
			a.store = store
		}
	}

	a.setupProviders()
	return a, nil
}

func (a *app) setupProviders() {
	services := a.config.Services

	if key := services.AcoustID.APIKey; key != "" {
		client := acoustid.NewClient(acoustid.Config{
			APIKey:     key,
			UserKey:    services.AcoustID.UserKey,
			LookupURL:  services.AcoustID.URL,
			SubmitURL:  services.AcoustID.SubmitURL,
			FpcalcPath: services.AcoustID.FpcalcPath,
			Timeout:    services.Timeout,
		})
		a.fingerprint = client
		if a.store != nil {
			a.fingerprint = cache.WrapFingerprintProvider(client, a.store)
		}
		if services.AcoustID.UserKey != "" {
			a.submitters = append(a.submitters, client)
		}
	} else {
		a.logger.Warn("No AcoustID api key configured, fingerprint lookups disabled")
	}

	if key := services.Shazam.APIKey; key != "" {
		client := shazam.NewClient(shazam.Config{
			APIKey:  key,
			URL:     services.Shazam.URL,
			Host:    services.Shazam.Host,
			Timeout: services.Timeout,
		})
		a.snippet = client
		if a.store != nil {
			a.snippet = cache.WrapSnippetProvider(client, a.store)
		}
	} else {
		a.logger.Warn("No Shazam api key configured, snippet lookups disabled")
	}
}

// newService creates the per-file identification state machine.
func (a *app) newService(opts ...identify.ServiceOption) *identify.Service {
	base := []identify.ServiceOption{}
	if a.fingerprint != nil {
		base = append(base, identify.WithFingerprintProvider(a.fingerprint))
	}
	if a.snippet != nil {
		base = append(base, identify.WithSnippetProvider(a.snippet))
	}
	if a.stats != nil {
		base = append(base, identify.WithMetrics(a.stats.metrics))
	}
	return identify.NewService(a.decoder, append(base, opts...)...)
}

func (a *app) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// segmentFile returns every segment of path.
func (a *app) segmentFile(ctx context.Context, path string) ([]segmentation.Segment, error) {
	stream, err := a.segmenter.Segment(ctx, path)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	segments, err := stream.Collect(ctx)
	if err != nil {
		return nil, err
	}
	if segments == nil {
		segments = []segmentation.Segment{}
	}
	return segments, nil
}
