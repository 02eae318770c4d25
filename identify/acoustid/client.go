// Package acoustid identifies recordings through chromaprint fingerprints
// and the AcoustID web service.
package acoustid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-split/identify"
	"github.com/RyanBlaney/sonido-split/logging"
)

const (
	DefaultLookupURL = "https://api.acoustid.org/v2/lookup"
	DefaultSubmitURL = "https://api.acoustid.org/v2/submit"

	lookupMeta = "recordings releasegroups"
	// responses larger than this are not AcoustID answers
	maxResponseBytes = 8 << 20
)

// Config holds the AcoustID client settings.
type Config struct {
	APIKey     string
	UserKey    string
	LookupURL  string
	SubmitURL  string
	FpcalcPath string
	Timeout    time.Duration
}

// Client is a fingerprint provider and submitter backed by AcoustID.
type Client struct {
	config Config
	fp     *Fingerprinter
	http   *http.Client
	logger logging.Logger
}

var (
	_ identify.FingerprintProvider = (*Client)(nil)
	_ identify.Submitter           = (*Client)(nil)
)

// NewClient creates a Client. Empty URLs fall back to the public service.
func NewClient(config Config) *Client {
	if config.LookupURL == "" {
		config.LookupURL = DefaultLookupURL
	}
	if config.SubmitURL == "" {
		config.SubmitURL = DefaultSubmitURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		config: config,
		fp:     NewFingerprinter(config.FpcalcPath),
		http:   &http.Client{Timeout: config.Timeout},
		logger: logging.WithFields(logging.Fields{
			"component": "acoustid",
		}),
	}
}

func (c *Client) Name() string { return "acoustid" }

// Fingerprint runs fpcalc over the samples.
func (c *Client) Fingerprint(ctx context.Context, samples [][]float64, sampleRate int) (identify.Fingerprint, error) {
	return c.fp.Fingerprint(ctx, samples, sampleRate)
}

// Lookup queries AcoustID for every recording matching fp.
func (c *Client) Lookup(ctx context.Context, fp identify.Fingerprint) ([]identify.MetadataOption, error) {
	if c.config.APIKey == "" {
		return nil, fmt.Errorf("%w: acoustid api key is not configured", identify.ErrWebService)
	}

	form := url.Values{
		"client":      {c.config.APIKey},
		"duration":    {strconv.Itoa(int(fp.Duration))},
		"fingerprint": {fp.Value},
		"meta":        {lookupMeta},
		"format":      {"json"},
	}

	resp, err := c.post(ctx, c.config.LookupURL, form)
	if err != nil {
		return nil, err
	}

	options, err := parseLookup(resp)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("AcoustID lookup completed", logging.Fields{
		"options":  len(options),
		"duration": fp.Duration,
	})
	return options, nil
}

// Submit fingerprints the samples and submits them with meta. It needs both
// an api key and a user key.
func (c *Client) Submit(ctx context.Context, samples [][]float64, sampleRate int, meta identify.MetadataOption) error {
	if c.config.APIKey == "" || c.config.UserKey == "" {
		return fmt.Errorf("%w: acoustid api key and user key are required", identify.ErrSubmission)
	}

	fp, err := c.fp.Fingerprint(ctx, samples, sampleRate)
	if err != nil {
		return fmt.Errorf("%w: %w", identify.ErrSubmission, err)
	}

	form := url.Values{
		"client":        {c.config.APIKey},
		"user":          {c.config.UserKey},
		"duration.0":    {strconv.Itoa(int(fp.Duration))},
		"fingerprint.0": {fp.Value},
		"format":        {"json"},
	}
	setIfPresent(form, "track.0", meta.Title)
	setIfPresent(form, "artist.0", meta.Artist)
	setIfPresent(form, "album.0", meta.Album)
	setIfPresent(form, "albumartist.0", meta.AlbumArtist)
	setIfPresent(form, "year.0", meta.Year)

	resp, err := c.post(ctx, c.config.SubmitURL, form)
	if err != nil {
		return fmt.Errorf("%w: %w", identify.ErrSubmission, err)
	}
	if err := resp.err(); err != nil {
		return fmt.Errorf("%w: %w", identify.ErrSubmission, err)
	}
	return nil
}

func setIfPresent(form url.Values, key, value string) {
	if value != "" && value != identify.NotSet {
		form.Set(key, value)
	}
}

// post sends form and decodes the JSON answer. AcoustID reports most
// failures as JSON with a non-200 status, so the body is decoded first.
func (c *Client) post(ctx context.Context, endpoint string, form url.Values) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", identify.ErrWebService, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", identify.ErrWebService, err)
	}

	var out response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: HTTP %d: invalid response: %v", identify.ErrWebService, res.StatusCode, err)
	}
	return &out, nil
}
