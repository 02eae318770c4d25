package identify

import (
	"context"
	"fmt"
	"strings"

	"github.com/RyanBlaney/sonido-split/logging"
)

// SubmitToServices decodes [offset, offset+duration) of path and offers meta
// to every submitter. It returns the names of the services that accepted
// it. Metadata without a usable title is never submitted. Submitter
// failures are logged; only decode failures are returned.
func SubmitToServices(ctx context.Context, decoder RangeDecoder, path string, offset, duration float64, meta MetadataOption, submitters ...Submitter) ([]string, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "submit",
		"title":     meta.Title,
		"artist":    meta.Artist,
	})

	title := strings.TrimSpace(meta.Title)
	if title == "" || strings.EqualFold(title, "unknown") {
		logger.Warn("Refusing to submit metadata without a title")
		return []string{}, nil
	}

	audio, err := decoder.DecodeRange(ctx, path, offset, duration, ReferenceSampleRate, decodeChannels)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s for submission: %w", path, err)
	}

	accepted := []string{}
	for _, sub := range submitters {
		if err := sub.Submit(ctx, audio.Samples, audio.SampleRate, meta); err != nil {
			logger.Error(err, "Submission failed", logging.Fields{"service": sub.Name()})
			continue
		}
		logger.Info("Submitted metadata", logging.Fields{"service": sub.Name()})
		accepted = append(accepted, sub.Name())
	}
	return accepted, nil
}
