package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-split/identify"
	"github.com/RyanBlaney/sonido-split/segmentation"
)

// fileSegments is the output of the segment command for one file.
type fileSegments struct {
	File     string                 `json:"file" yaml:"file"`
	Segments []segmentation.Segment `json:"segments" yaml:"segments"`
	Error    string                 `json:"error,omitempty" yaml:"error,omitempty"`
}

// fileSongs is the output of the identify command for one file.
type fileSongs struct {
	File            string          `json:"file" yaml:"file"`
	Songs           []identify.Song `json:"songs" yaml:"songs"`
	MismatchOffsets []float64       `json:"mismatchOffsets" yaml:"mismatchOffsets"`
	FileNames       []string        `json:"fileNames,omitempty" yaml:"fileNames,omitempty"`
	Error           string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// render writes v as JSON or YAML, or calls table for the table format.
func render(w io.Writer, format string, v any, table func(*tabwriter.Writer)) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// formatTime renders seconds as m:ss.mmm, or h:mm:ss.mmm past an hour.
func formatTime(seconds float64) string {
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	ms %= 1000
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%03d", h, m, s, ms)
	}
	return fmt.Sprintf("%d:%02d.%03d", m, s, ms)
}

func segmentsTable(results []fileSegments) func(*tabwriter.Writer) {
	return func(tw *tabwriter.Writer) {
		for i, r := range results {
			if i > 0 {
				fmt.Fprintln(tw)
			}
			fmt.Fprintf(tw, "%s\n", r.File)
			if r.Error != "" {
				fmt.Fprintf(tw, "  error: %s\n", r.Error)
				continue
			}
			fmt.Fprintln(tw, "#\tSTART\tEND\tDURATION")
			for n, seg := range r.Segments {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", n+1, formatTime(seg.Start), formatTime(seg.End()), formatTime(seg.Duration))
			}
		}
	}
}

// describe summarises the candidates of a song on one line.
func describe(options []identify.MetadataOption) string {
	if len(options) == 0 {
		return "(not recognised)"
	}
	first := options[0]
	out := first.Artist + " - " + first.Title
	if first.Album != "" {
		out += " [" + first.Album + "]"
	}
	if len(options) > 1 {
		out += fmt.Sprintf(" (+%d more)", len(options)-1)
	}
	return out
}

func songsTable(results []fileSongs) func(*tabwriter.Writer) {
	return func(tw *tabwriter.Writer) {
		for i, r := range results {
			if i > 0 {
				fmt.Fprintln(tw)
			}
			fmt.Fprintf(tw, "%s\n", r.File)
			if r.Error != "" {
				fmt.Fprintf(tw, "  error: %s\n", r.Error)
				continue
			}

			header := "#\tSTART\tDURATION\tSONG"
			if len(r.FileNames) > 0 {
				header += "\tFILE NAME"
			}
			fmt.Fprintln(tw, header)
			for n, song := range r.Songs {
				row := []string{
					fmt.Sprint(n + 1),
					formatTime(song.Offset),
					formatTime(song.Duration),
					describe(song.MetadataOptions),
				}
				if n < len(r.FileNames) {
					row = append(row, r.FileNames[n])
				}
				fmt.Fprintln(tw, strings.Join(row, "\t"))
			}

			if len(r.MismatchOffsets) > 0 {
				marks := make([]string, len(r.MismatchOffsets))
				for n, off := range r.MismatchOffsets {
					marks[n] = formatTime(off)
				}
				fmt.Fprintf(tw, "  unresolved boundaries in segments starting at %s\n", strings.Join(marks, ", "))
			}
		}
	}
}
