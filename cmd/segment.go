package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-split/logging"
)

var segmentCmd = &cobra.Command{
	Use:   "segment FILE...",
	Short: "Print the song boundaries of audio files",
	Long: `Segment decodes every file with ffmpeg and prints the segments found by
the self-similarity analysis. No recognition service is contacted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSegment,
}

func init() {
	rootCmd.AddCommand(segmentCmd)
}

func runSegment(cmd *cobra.Command, args []string) error {
	a, err := newApp(appConfig, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	bars := newProgress(cmd.ErrOrStderr(), !noProgress())
	results := make([]fileSegments, len(args))

	runErr := forEachFile(ctx, a.config.Jobs, args, func(ctx context.Context, i int, path string) error {
		results[i].File = path
		bar := bars.add(path, "segment", 1)

		segments, err := a.segmentFile(ctx, path)
		if err != nil {
			bar.Abort(false)
			results[i].Error = err.Error()
			a.logger.Error(err, "Segmentation failed", logging.Fields{"file": path})
			return err
		}
		bar.Increment()
		results[i].Segments = segments
		return nil
	})
	bars.Wait()

	if err := render(cmd.OutOrStdout(), a.config.OutputFormat, results, segmentsTable(results)); err != nil {
		return err
	}
	return runErr
}
