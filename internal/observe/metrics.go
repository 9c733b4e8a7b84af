// Package observe provides OpenTelemetry metrics for the recognition
// pipeline and HTTP middleware that records request latency.
//
// Metrics are exported through a Prometheus bridge set up by [InitProvider].
// A package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/ayusman/signvision"

// Metrics holds all OpenTelemetry metric instruments for the application.
type Metrics struct {
	// FramesSent counts frames transmitted to the inference engine.
	FramesSent metric.Int64Counter

	// FramesSkipped counts capture ticks that sent nothing. Use with
	// attribute.String("reason", ...).
	FramesSkipped metric.Int64Counter

	// PredictionsReceived counts predictions by source ("remote", "local").
	PredictionsReceived metric.Int64Counter

	// PredictionsDropped counts discarded predictions. Use with
	// attribute.String("reason", ...).
	PredictionsDropped metric.Int64Counter

	// ClassifyDuration tracks local model inference latency.
	ClassifyDuration metric.Float64Histogram

	// PeakUpdates counts persisted peak-score writes.
	PeakUpdates metric.Int64Counter

	// StoreErrors counts persistence failures. Use with
	// attribute.String("op", ...).
	StoreErrors metric.Int64Counter

	// Reconnects counts engine reconnection attempts.
	Reconnects metric.Int64Counter

	// Recording is 1 while a recording session is active.
	Recording metric.Int64UpDownCounter

	// EngineConnected is 1 while the engine channel is open.
	EngineConnected metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries in seconds.
var latencyBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Counters.
	if met.FramesSent, err = m.Int64Counter("signvision.frames.sent",
		metric.WithDescription("Frames transmitted to the inference engine."),
	); err != nil {
		return nil, err
	}
	if met.FramesSkipped, err = m.Int64Counter("signvision.frames.skipped",
		metric.WithDescription("Capture ticks that transmitted nothing, by reason."),
	); err != nil {
		return nil, err
	}
	if met.PredictionsReceived, err = m.Int64Counter("signvision.predictions.received",
		metric.WithDescription("Predictions received by source."),
	); err != nil {
		return nil, err
	}
	if met.PredictionsDropped, err = m.Int64Counter("signvision.predictions.dropped",
		metric.WithDescription("Predictions discarded by reason."),
	); err != nil {
		return nil, err
	}
	if met.PeakUpdates, err = m.Int64Counter("signvision.peak.updates",
		metric.WithDescription("Peak score writes."),
	); err != nil {
		return nil, err
	}
	if met.StoreErrors, err = m.Int64Counter("signvision.store.errors",
		metric.WithDescription("Persistence failures by operation."),
	); err != nil {
		return nil, err
	}
	if met.Reconnects, err = m.Int64Counter("signvision.engine.reconnects",
		metric.WithDescription("Engine reconnection attempts."),
	); err != nil {
		return nil, err
	}

	// Histograms.
	if met.ClassifyDuration, err = m.Float64Histogram("signvision.classify.duration",
		metric.WithDescription("Latency of local sequence classification."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("signvision.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.Recording, err = m.Int64UpDownCounter("signvision.session.recording",
		metric.WithDescription("1 while a recording session is active."),
	); err != nil {
		return nil, err
	}
	if met.EngineConnected, err = m.Int64UpDownCounter("signvision.engine.connected",
		metric.WithDescription("1 while the inference engine channel is open."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider].
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

// RecordSkip records a capture tick that sent nothing.
func (m *Metrics) RecordSkip(ctx context.Context, reason string) {
	m.FramesSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordPrediction records a received prediction.
func (m *Metrics) RecordPrediction(ctx context.Context, source string) {
	m.PredictionsReceived.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// RecordDrop records a discarded prediction.
func (m *Metrics) RecordDrop(ctx context.Context, reason string) {
	m.PredictionsDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordStoreError records a failed persistence operation.
func (m *Metrics) RecordStoreError(ctx context.Context, op string) {
	m.StoreErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
