// Package shazam identifies short snippets through the Shazam API on
// RapidAPI.
package shazam

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/RyanBlaney/sonido-split/identify"
	"github.com/RyanBlaney/sonido-split/logging"
	"github.com/RyanBlaney/sonido-split/transcode"
)

const (
	DefaultURL  = "https://shazam.p.rapidapi.com/songs/v2/detect"
	DefaultHost = "shazam.p.rapidapi.com"

	// SampleRate is the only rate the API accepts.
	SampleRate = 44100
	// SnippetSeconds is the length of one request; the API wants 3 to 5 s.
	SnippetSeconds = 4
	// StepSeconds is how far the next snippet moves after a miss.
	StepSeconds = 10

	maxResponseBytes = 4 << 20
)

// Config holds the Shazam client settings.
type Config struct {
	APIKey  string
	URL     string
	Host    string
	Timeout time.Duration
}

// Client is a snippet provider backed by the Shazam detect endpoint.
type Client struct {
	config Config
	http   *http.Client
	logger logging.Logger
}

var _ identify.SnippetProvider = (*Client)(nil)

// NewClient creates a Client. Empty URL and host fall back to RapidAPI.
func NewClient(config Config) *Client {
	if config.URL == "" {
		config.URL = DefaultURL
	}
	if config.Host == "" {
		config.Host = DefaultHost
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
		logger: logging.WithFields(logging.Fields{
			"component": "shazam",
		}),
	}
}

func (c *Client) Name() string    { return "shazam" }
func (c *Client) SampleRate() int { return SampleRate }

type metadataItem struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type section struct {
	Type     string         `json:"type"`
	Metadata []metadataItem `json:"metadata"`
}

type track struct {
	Key      string    `json:"key"`
	Title    string    `json:"title"`
	Subtitle string    `json:"subtitle"`
	Sections []section `json:"sections"`
}

type detectResponse struct {
	Matches []json.RawMessage `json:"matches"`
	Track   *track            `json:"track"`
}

// Lookup sends 4 s snippets of the downmixed samples, starting at the
// beginning (fromStart) or ending at the end of the audio, and moves 10 s
// further in after every miss. It returns nil when no snippet matched.
func (c *Client) Lookup(ctx context.Context, samples [][]float64, fromStart bool) (*identify.MetadataOption, error) {
	if c.config.APIKey == "" {
		return nil, fmt.Errorf("%w: shazam api key is not configured", identify.ErrWebService)
	}

	pcm := transcode.EncodePCM16([][]float64{transcode.Downmix(samples)})
	n := len(pcm) / 2
	if n == 0 {
		return nil, nil
	}

	step := StepSeconds * SampleRate
	offset := 0
	if !fromStart {
		step = -step
		offset = -SnippetSeconds * SampleRate
	}

	for i := 0; ; i, offset = i+1, offset+step {
		if i > 0 && ((fromStart && offset > n) || (!fromStart && offset < -n)) {
			return nil, nil
		}

		start, end := snippetBounds(offset, n)
		if start >= end {
			continue
		}

		tr, err := c.detect(ctx, pcm[start*2:end*2])
		if err != nil {
			return nil, err
		}
		if tr == nil {
			continue
		}

		c.logger.Debug("Shazam match", logging.Fields{
			"title":      tr.Title,
			"from_start": fromStart,
			"offset":     float64(offset) / SampleRate,
		})
		return &identify.MetadataOption{
			Title:  tr.Title,
			Artist: tr.Subtitle,
			Album:  metadataValue(tr, "Album"),
			Year:   metadataValue(tr, "Released"),
		}, nil
	}
}

// snippetBounds resolves a snippet starting at offset into sample indices.
// Negative offsets count from the end; a snippet ending exactly at the end
// runs to the last sample.
func snippetBounds(offset, n int) (start, end int) {
	end = offset + SnippetSeconds*SampleRate
	if end == 0 {
		end = n
	}
	return resolveIndex(offset, n), resolveIndex(end, n)
}

func resolveIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	return max(0, min(i, n))
}

// detect sends one snippet. It returns nil if the API found no match.
func (c *Client) detect(ctx context.Context, pcm []byte) (*track, error) {
	payload := base64.StdEncoding.EncodeToString(pcm)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewBufferString(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("content-type", "text/plain")
	req.Header.Set("X-RapidAPI-Key", c.config.APIKey)
	req.Header.Set("X-RapidAPI-Host", c.config.Host)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", identify.ErrWebService, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", identify.ErrWebService, err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("%w: shazam returned HTTP %d: %s", identify.ErrWebService, res.StatusCode, bytes.TrimSpace(body))
	}

	var out detectResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: invalid shazam response: %v", identify.ErrWebService, err)
	}
	if out.Track == nil || len(out.Matches) == 0 {
		return nil, nil
	}
	return out.Track, nil
}

// metadataValue returns the text of the first item titled key in the first
// section, or "".
func metadataValue(tr *track, key string) string {
	if len(tr.Sections) == 0 {
		return ""
	}
	for _, item := range tr.Sections[0].Metadata {
		if item.Title == key {
			return item.Text
		}
	}
	return ""
}
