// Package observe provides observability primitives for subtitler:
// OpenTelemetry metrics, tracing, trace-aware structured logging, and an HTTP
// client transport that ties them together for outgoing provider calls.
//
// Metrics are recorded through the OpenTelemetry Metrics API. [InitProvider]
// bridges them into a private Prometheus registry so a one-shot run can dump
// them to a node-exporter textfile. A package-level default [Metrics]
// instance ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all subtitler metrics.
const meterName = "github.com/MrWong99/subtitler"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// TranscriptionDuration tracks end-to-end provider transcription latency.
	// Use with attribute.String("provider", ...).
	TranscriptionDuration metric.Float64Histogram

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// SegmentsWritten counts subtitle segments persisted to disk.
	SegmentsWritten metric.Int64Counter

	// AudioBytes records the size of each uploaded audio file.
	AudioBytes metric.Int64Histogram

	// HTTPClientDuration tracks outgoing HTTP request time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("host", ...), attribute.Int("status", ...)
	HTTPClientDuration metric.Float64Histogram
}

// transcriptionBuckets defines histogram bucket boundaries (in seconds) for
// whole-file transcription calls, which scale with audio length.
var transcriptionBuckets = []float64{
	0.5, 1, 2.5, 5, 10, 20, 30, 60, 120, 300, 600,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TranscriptionDuration, err = m.Float64Histogram("subtitler.transcription.duration",
		metric.WithDescription("Latency of whole-file transcription by provider."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(transcriptionBuckets...),
	); err != nil {
		return nil, err
	}

	if met.ProviderRequests, err = m.Int64Counter("subtitler.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("subtitler.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.SegmentsWritten, err = m.Int64Counter("subtitler.segments.written",
		metric.WithDescription("Total subtitle segments written to the output file."),
	); err != nil {
		return nil, err
	}

	if met.AudioBytes, err = m.Int64Histogram("subtitler.audio.size",
		metric.WithDescription("Size of uploaded audio files."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if met.HTTPClientDuration, err = m.Float64Histogram("subtitler.http.client.duration",
		metric.WithDescription("Outgoing HTTP request latency by method, host, and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(transcriptionBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest records a provider request counter increment with
// the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a provider error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordTranscription records one transcription latency sample in seconds.
func (m *Metrics) RecordTranscription(ctx context.Context, provider string, seconds float64) {
	m.TranscriptionDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}

// RecordSegmentsWritten adds n to the written-segments counter.
func (m *Metrics) RecordSegmentsWritten(ctx context.Context, n int) {
	m.SegmentsWritten.Add(ctx, int64(n))
}
