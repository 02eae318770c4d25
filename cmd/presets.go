package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-split/segmentation"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the segmentation presets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		presets := segmentation.Presets()
		return render(cmd.OutOrStdout(), appConfig.OutputFormat, presets, func(tw *tabwriter.Writer) {
			fmt.Fprintln(tw, "PRESET\tFILTER LENGTH\tDOWNSAMPLING\tPEAK THRESHOLD")
			for _, p := range presets {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f\n", p.Title(), p.FilterLength, p.Downsampling, p.PeakThreshold)
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}
