package configs

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/RyanBlaney/sonido-split/identify/acoustid"
	"github.com/RyanBlaney/sonido-split/identify/shazam"
	"github.com/RyanBlaney/sonido-split/naming"
)

const (
	// EnvPrefix prefixes every environment variable, e.g. SONIDO_SPLIT_PRESET.
	EnvPrefix = "SONIDO_SPLIT"
	// ConfigName is the config file name without extension.
	ConfigName = "sonido-split"
)

// legacyEnv maps keys to the environment variable names used by earlier
// releases. They are consulted after the prefixed names.
var legacyEnv = map[string]string{
	"services.acoustid.api_key":  "SERVICE_ACOUSTID_API_KEY",
	"services.acoustid.user_key": "SERVICE_ACOUSTID_USER_KEY",
	"services.shazam.api_key":    "SERVICE_SHAZAM_API_KEY",
}

// Init prepares v: config file search (or configFile when set), environment
// binding and defaults. A missing config file is not an error.
func Init(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", ConfigName))
		}
		v.AddConfigPath("/etc/" + ConfigName)
		v.AddConfigPath("./configs")
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		modern := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, modern, legacy); err != nil {
			return err
		}
	}

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// SetDefaults sets default configuration values
func SetDefaults(v *viper.Viper) {
	// Application defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("output_format", "table")
	v.SetDefault("preset", "normal")
	v.SetDefault("jobs", max(1, runtime.NumCPU()/2))

	v.SetDefault("segmentation.smoothing", "boxcar")

	// Decoder defaults
	v.SetDefault("decoder.ffmpeg_path", "ffmpeg")
	v.SetDefault("decoder.ffprobe_path", "ffprobe")
	v.SetDefault("decoder.timeout", "2m")

	// Service defaults
	v.SetDefault("services.timeout", "30s")
	v.SetDefault("services.acoustid.url", acoustid.DefaultLookupURL)
	v.SetDefault("services.acoustid.submit_url", acoustid.DefaultSubmitURL)
	v.SetDefault("services.acoustid.fpcalc_path", "fpcalc")
	v.SetDefault("services.shazam.url", shazam.DefaultURL)
	v.SetDefault("services.shazam.host", shazam.DefaultHost)

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.dir", defaultCacheDir())
	v.SetDefault("cache.ttl", (30 * 24 * time.Hour).String())

	v.SetDefault("naming.template", naming.DefaultTemplate)
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, ConfigName)
	}
	return filepath.Join(os.TempDir(), ConfigName)
}
