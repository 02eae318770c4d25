package configs

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/RyanBlaney/sonido-split/algorithms/similarity"
	"github.com/RyanBlaney/sonido-split/logging"
	"github.com/RyanBlaney/sonido-split/naming"
	"github.com/RyanBlaney/sonido-split/segmentation"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the application configuration
type Config struct {
	LogLevel     string `mapstructure:"log_level"`
	OutputFormat string `mapstructure:"output_format"`
	Preset       string `mapstructure:"preset"`
	Jobs         int    `mapstructure:"jobs"`

	Segmentation SegmentationConfig `mapstructure:"segmentation"`
	Decoder      DecoderConfig      `mapstructure:"decoder"`
	Services     ServicesConfig     `mapstructure:"services"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Naming       NamingConfig       `mapstructure:"naming"`
}

// SegmentationConfig contains segmenter settings beyond the preset
type SegmentationConfig struct {
	Smoothing string `mapstructure:"smoothing"`
}

// DecoderConfig contains ffmpeg settings
type DecoderConfig struct {
	FFmpegPath  string        `mapstructure:"ffmpeg_path"`
	FFprobePath string        `mapstructure:"ffprobe_path"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ServicesConfig contains recognition service settings
type ServicesConfig struct {
	Timeout  time.Duration  `mapstructure:"timeout"`
	AcoustID AcoustIDConfig `mapstructure:"acoustid"`
	Shazam   ShazamConfig   `mapstructure:"shazam"`
}

// AcoustIDConfig contains AcoustID and fpcalc settings
type AcoustIDConfig struct {
	APIKey     string `mapstructure:"api_key"`
	UserKey    string `mapstructure:"user_key"`
	URL        string `mapstructure:"url"`
	SubmitURL  string `mapstructure:"submit_url"`
	FpcalcPath string `mapstructure:"fpcalc_path"`
}

// ShazamConfig contains RapidAPI Shazam settings
type ShazamConfig struct {
	APIKey string `mapstructure:"api_key"`
	URL    string `mapstructure:"url"`
	Host   string `mapstructure:"host"`
}

// CacheConfig contains lookup cache settings
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Dir     string        `mapstructure:"dir"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// NamingConfig contains file name template settings
type NamingConfig struct {
	Template string `mapstructure:"template"`
}

// LoadConfig loads and validates configuration from the global viper
func LoadConfig() (*Config, error) {
	return Load(viper.GetViper())
}

// Load decodes and validates the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	config := &Config{}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return invalid("%v", err)
	}

	switch c.OutputFormat {
	case "table", "json", "yaml":
	default:
		return invalid("unknown output format %q (want table, json or yaml)", c.OutputFormat)
	}

	if _, err := segmentation.PresetByName(c.Preset); err != nil {
		return invalid("%v", err)
	}

	if _, err := similarity.ParseSmoothing(c.Segmentation.Smoothing); err != nil {
		return invalid("%v", err)
	}

	if c.Jobs <= 0 {
		return invalid("jobs must be positive")
	}

	if c.Decoder.Timeout <= 0 {
		return invalid("decoder timeout must be positive")
	}

	if c.Services.Timeout <= 0 {
		return invalid("services timeout must be positive")
	}

	if c.Cache.Enabled && c.Cache.Dir == "" {
		return invalid("cache dir is required when the cache is enabled")
	}

	if c.Cache.TTL < 0 {
		return invalid("cache ttl cannot be negative")
	}

	if err := naming.Validate(c.Naming.Template); err != nil {
		return invalid("%v", err)
	}

	return nil
}

// PresetValue returns the configured preset. Call Validate first.
func (c *Config) PresetValue() segmentation.Preset {
	p, _ := segmentation.PresetByName(c.Preset)
	return p
}

// SmoothingValue returns the configured smoothing mode. Call Validate first.
func (c *Config) SmoothingValue() similarity.Smoothing {
	s, _ := similarity.ParseSmoothing(c.Segmentation.Smoothing)
	return s
}
