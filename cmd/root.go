package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/sonido-split/configs"
	"github.com/RyanBlaney/sonido-split/logging"
)

var (
	configFile string
	initErr    error
	appConfig  *configs.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sonido-split",
	Short: "Split long recordings into songs and identify them",
	Long: `sonido-split finds the song boundaries in long recordings such as DJ mixes,
radio captures or concert bootlegs, then identifies every segment through
AcoustID fingerprints and Shazam snippets.

Boundaries come from a self-similarity analysis of the audio. Five presets
trade missed boundaries against spurious ones, from "extra strict" to
"extra lenient".

Examples:
  # Show where the songs of a mix start
  sonido-split segment mix.flac

  # Identify every song, as JSON, with a lenient preset
  sonido-split identify --preset lenient -o json mix.flac

  # Suggest file names for the identified songs
  sonido-split identify --names --template "{{ARTIST}} - {{TITLE}} ({{YEAR}})" mix.flac`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "",
		"config file (default is $HOME/.config/sonido-split/sonido-split.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.StringP("output", "o", "table", "output format (table, json, yaml)")
	flags.StringP("preset", "p", "normal",
		"segmentation preset (extra_strict, strict, normal, lenient, extra_lenient)")
	flags.IntP("jobs", "j", 1, "files processed in parallel")
	flags.String("smoothing", "boxcar", "feature smoothing before downsampling (boxcar, median)")
	flags.Bool("cache", true, "cache service answers between runs")
	flags.Bool("no-progress", false, "hide progress bars")
	flags.Bool("stats", false, "print provider statistics when done")

	viper.BindPFlag("log_level", flags.Lookup("log-level"))
	viper.BindPFlag("output_format", flags.Lookup("output"))
	viper.BindPFlag("preset", flags.Lookup("preset"))
	viper.BindPFlag("jobs", flags.Lookup("jobs"))
	viper.BindPFlag("segmentation.smoothing", flags.Lookup("smoothing"))
	viper.BindPFlag("cache.enabled", flags.Lookup("cache"))
	viper.BindPFlag("no_progress", flags.Lookup("no-progress"))
	viper.BindPFlag("stats", flags.Lookup("stats"))
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	initErr = configs.Init(viper.GetViper(), configFile)
}

// initializeConfig loads the configuration once flags are parsed and sets up
// logging.
func initializeConfig() error {
	if initErr != nil {
		return fmt.Errorf("failed to read config: %w", initErr)
	}

	cfg, err := configs.LoadConfig()
	if err != nil {
		return err
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger := logging.NewStderrLogger()
	logger.SetLevel(level)
	logging.SetGlobalLogger(logger)

	appConfig = cfg
	return nil
}

func noProgress() bool {
	return viper.GetBool("no_progress")
}

func printStats() bool {
	return viper.GetBool("stats")
}
