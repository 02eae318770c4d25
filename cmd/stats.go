package cmd

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/RyanBlaney/sonido-split/identify"
)

// stats collects identification metrics in process and prints them at exit.
type stats struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
	metrics  *identify.Metrics
}

func newStats() (*stats, error) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := identify.NewMetrics(mp)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	return &stats{reader: reader, provider: mp, metrics: m}, nil
}

type statRow struct {
	name  string
	count int64
	mean  float64
}

// Print writes request counts, mean latencies and segment results to w.
func (s *stats) Print(ctx context.Context, w io.Writer) error {
	var rm metricdata.ResourceMetrics
	if err := s.reader.Collect(ctx, &rm); err != nil {
		return fmt.Errorf("failed to collect metrics: %w", err)
	}

	requests := map[string]int64{}
	latency := map[string]statRow{}
	results := map[string]int64{}

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					switch m.Name {
					case "sonido_split.provider.requests":
						provider, _ := dp.Attributes.Value("provider")
						status, _ := dp.Attributes.Value("status")
						requests[provider.AsString()+" "+status.AsString()] += dp.Value
					case "sonido_split.segment.results":
						result, _ := dp.Attributes.Value("result")
						results[result.AsString()] += dp.Value
					}
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					provider, _ := dp.Attributes.Value("provider")
					row := statRow{name: provider.AsString(), count: int64(dp.Count)}
					if dp.Count > 0 {
						row.mean = dp.Sum / float64(dp.Count)
					}
					latency[row.name] = row
				}
			}
		}
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER STATUS\tREQUESTS")
	for _, key := range slices.Sorted(maps.Keys(requests)) {
		fmt.Fprintf(tw, "%s\t%d\n", key, requests[key])
	}
	fmt.Fprintln(tw, "\nPROVIDER\tMEAN LATENCY")
	for _, key := range slices.Sorted(maps.Keys(latency)) {
		fmt.Fprintf(tw, "%s\t%.3fs\n", key, latency[key].mean)
	}
	fmt.Fprintln(tw, "\nRESULT\tSEGMENTS")
	for _, key := range slices.Sorted(maps.Keys(results)) {
		fmt.Fprintf(tw, "%s\t%d\n", key, results[key])
	}
	return tw.Flush()
}

func (s *stats) Shutdown(ctx context.Context) error {
	return s.provider.Shutdown(ctx)
}
