package cmd

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-split/identify"
	"github.com/RyanBlaney/sonido-split/logging"
	"github.com/RyanBlaney/sonido-split/naming"
	"github.com/RyanBlaney/sonido-split/segmentation"
)

var identifyCmd = &cobra.Command{
	Use:   "identify FILE...",
	Short: "Split audio files into songs and identify them",
	Long: `Identify splits every file into segments, then asks AcoustID and Shazam
what plays in each segment. Consecutive segments of the same song are merged.

API keys are read from the config file or from SONIDO_SPLIT_SERVICES_ACOUSTID_API_KEY
and SONIDO_SPLIT_SERVICES_SHAZAM_API_KEY. The older SERVICE_ACOUSTID_API_KEY and
SERVICE_SHAZAM_API_KEY names are accepted as well.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)

	identifyCmd.Flags().Bool("names", false, "suggest a file name for every song")
	identifyCmd.Flags().String("template", "", "file name template (default from config)")
}

func runIdentify(cmd *cobra.Command, args []string) error {
	names, _ := cmd.Flags().GetBool("names")
	template, _ := cmd.Flags().GetString("template")
	if template == "" {
		template = appConfig.Naming.Template
	}
	if names {
		if err := naming.Validate(template); err != nil {
			return err
		}
	}

	a, err := newApp(appConfig, appOptions{providers: true, stats: printStats()})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	bars := newProgress(cmd.ErrOrStderr(), !noProgress())
	results := make([]fileSongs, len(args))

	runErr := forEachFile(ctx, a.config.Jobs, args, func(ctx context.Context, i int, path string) error {
		results[i].File = path
		id, err := a.identifyFile(ctx, path, bars)
		if err != nil {
			results[i].Error = err.Error()
			a.logger.Error(err, "Identification failed", logging.Fields{"file": path})
			return err
		}

		results[i].Songs = id.Songs
		results[i].MismatchOffsets = id.MismatchOffsets
		if names {
			results[i].FileNames = naming.Suggest(template, id.Songs, filepath.Ext(path))
		}
		return nil
	})
	bars.Wait()

	if err := render(cmd.OutOrStdout(), a.config.OutputFormat, results, songsTable(results)); err != nil {
		return err
	}

	if a.stats != nil {
		if err := a.stats.Print(ctx, cmd.ErrOrStderr()); err != nil {
			a.logger.Error(err, "Failed to collect statistics")
		}
		a.stats.Shutdown(ctx)
	}
	return runErr
}

// identifyFile segments path and identifies every segment with a fresh
// service.
func (a *app) identifyFile(ctx context.Context, path string, bars *progress) (*identify.Identification, error) {
	segments, err := a.segmentFile(ctx, path)
	if err != nil {
		return nil, err
	}

	bar := bars.add(path, "identify", int64(len(segments)))
	svc := a.newService(identify.WithProgress(func(segmentation.Segment, identify.Result) {
		bar.Increment()
	}))

	id, err := svc.IdentifyAll(ctx, identify.NewSliceSegments(segments...), path)
	if err != nil {
		bar.Abort(false)
		return nil, err
	}
	if len(segments) == 0 {
		bar.SetTotal(0, true)
	}
	return id, nil
}
