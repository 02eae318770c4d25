package identify

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all sonido-split metrics.
const meterName = "github.com/RyanBlaney/sonido-split"

// Metrics holds the instruments recorded while identifying segments. All
// fields are safe for concurrent use.
type Metrics struct {
	// ProviderRequests counts provider calls. Attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderDuration tracks provider call latency. Attribute:
	//   attribute.String("provider", ...)
	ProviderDuration metric.Float64Histogram

	// SegmentResults counts per-segment outcomes. Attribute:
	//   attribute.String("result", ...)
	SegmentResults metric.Int64Counter
}

// latencyBuckets covers fingerprinting and HTTP lookups, in seconds.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates the instruments on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ProviderRequests, err = m.Int64Counter("sonido_split.provider.requests",
		metric.WithDescription("Total recognition provider requests by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderDuration, err = m.Float64Histogram("sonido_split.provider.duration",
		metric.WithDescription("Latency of recognition provider requests."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SegmentResults, err = m.Int64Counter("sonido_split.segment.results",
		metric.WithDescription("Identified segments by result."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level Metrics built on
// otel.GetMeterProvider. It panics if instrument creation fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("identify: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordProviderRequest counts one provider call and its latency.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, status string, seconds float64) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		),
	)
	m.ProviderDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}

// RecordResult counts one segment outcome.
func (m *Metrics) RecordResult(ctx context.Context, r Result) {
	m.SegmentResults.Add(ctx, 1,
		metric.WithAttributes(attribute.String("result", r.String())),
	)
}
