package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/RyanBlaney/sonido-split/identify"
)

var errNoSubmitters = errors.New("no submission service configured")

var submitCmd = &cobra.Command{
	Use:   "submit FILE",
	Short: "Submit the metadata of one song to AcoustID",
	Long: `Submit fingerprints the given part of FILE and sends it to AcoustID together
with the metadata given on the command line. Both the AcoustID api key and a
user key (services.acoustid.user_key) are required.

Example:
  sonido-split submit mix.flac --offset 312.5 --duration 241 \
    --title "Midnight City" --artist M83 --album "Hurry Up, We're Dreaming"`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCmd)

	fs := submitCmd.Flags()
	fs.Float64("offset", 0, "start of the song in seconds")
	fs.Float64("duration", 0, "length of the song in seconds")
	addMetadataFlags(fs)
	submitCmd.MarkFlagRequired("duration")
	submitCmd.MarkFlagRequired("title")
	submitCmd.MarkFlagRequired("artist")
}

func addMetadataFlags(fs *pflag.FlagSet) {
	fs.String("title", "", "song title")
	fs.String("artist", "", "song artist")
	fs.String("album", "", "album title")
	fs.String("album-artist", "", "album artist")
	fs.String("year", "", "release year")
}

func metadataFromFlags(fs *pflag.FlagSet) identify.MetadataOption {
	get := func(name string) string {
		v, _ := fs.GetString(name)
		return v
	}
	return identify.MetadataOption{
		Title:       get("title"),
		Artist:      get("artist"),
		Album:       get("album"),
		AlbumArtist: get("album-artist"),
		Year:        get("year"),
	}
}

func runSubmit(cmd *cobra.Command, args []string) error {
	offset, _ := cmd.Flags().GetFloat64("offset")
	duration, _ := cmd.Flags().GetFloat64("duration")
	if offset < 0 || duration <= 0 {
		return fmt.Errorf("invalid range: offset %.2f, duration %.2f", offset, duration)
	}

	a, err := newApp(appConfig, appOptions{providers: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if len(a.submitters) == 0 {
		return fmt.Errorf("%w: set services.acoustid.api_key and services.acoustid.user_key", errNoSubmitters)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	meta := metadataFromFlags(cmd.Flags())
	accepted, err := identify.SubmitToServices(ctx, a.decoder, args[0], offset, duration, meta, a.submitters...)
	if err != nil {
		return err
	}
	if len(accepted) == 0 {
		return fmt.Errorf("submission of %q was not accepted", meta.Title)
	}

	for _, name := range accepted {
		fmt.Fprintf(cmd.OutOrStdout(), "submitted to %s\n", name)
	}
	return nil
}
