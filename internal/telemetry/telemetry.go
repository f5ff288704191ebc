// Package telemetry wires OpenTelemetry metrics and tracing for the service.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry holds the providers and instruments. A nil *Telemetry is a
// valid no-op receiver so callers never need to guard their calls.
type Telemetry struct {
	meterProvider metric.MeterProvider
	tracer        trace.Tracer
	meter         metric.Meter
	exporter      *prometheus.Exporter

	// RED metrics for the HTTP surface.
	httpRequestsTotal    metric.Int64Counter
	httpRequestDuration  metric.Float64Histogram
	httpRequestsInFlight metric.Int64UpDownCounter

	// Business metrics for the fetch path and the retention sweep.
	fetchesTotal        metric.Int64Counter
	fetchesActive       metric.Int64UpDownCounter
	fetchDuration       metric.Float64Histogram
	engineErrors        metric.Int64Counter
	cleanupFilesDeleted metric.Int64Counter
	cleanupSweepsTotal  metric.Int64Counter
}

// Config holds telemetry configuration.
type Config struct {
	Enabled        bool
	ServiceName    string
	OTLPEndpoint   string
	ExportInterval time.Duration
}

// New builds a Telemetry instance backed by a Prometheus exporter and,
// when an endpoint is configured, a periodic OTLP gRPC metric exporter.
// Returns nil (a functional no-op) when telemetry is disabled.
func New(ctx context.Context, cfg Config) (*Telemetry, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	readers := []sdkmetric.Option{sdkmetric.WithReader(exporter)}

	if cfg.OTLPEndpoint != "" {
		otlpExporter, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create otlp metric exporter: %w", err)
		}

		interval := cfg.ExportInterval
		if interval <= 0 {
			interval = 30 * time.Second
		}

		readers = append(readers, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(otlpExporter, sdkmetric.WithInterval(interval)),
		))
	}

	meterProvider := sdkmetric.NewMeterProvider(readers...)
	otel.SetMeterProvider(meterProvider)

	t := &Telemetry{
		meterProvider: meterProvider,
		tracer:        otel.Tracer(cfg.ServiceName),
		meter:         otel.Meter(cfg.ServiceName),
		exporter:      exporter,
	}

	if err := t.initializeMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	if err := otelruntime.Start(); err != nil {
		return nil, fmt.Errorf("failed to start runtime instrumentation: %w", err)
	}

	return t, nil
}

// Tracer returns the OpenTelemetry tracer.
func (t *Telemetry) Tracer() trace.Tracer {
	if t == nil {
		return otel.Tracer("noop")
	}

	return t.tracer
}

// Handler returns the HTTP handler for the metrics endpoint.
func (t *Telemetry) Handler() http.Handler {
	if t == nil || t.exporter == nil {
		return http.NotFoundHandler()
	}

	return promhttp.Handler()
}

// Shutdown flushes and stops the metric pipeline.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}

	if mp, ok := t.meterProvider.(*sdkmetric.MeterProvider); ok {
		return mp.Shutdown(ctx)
	}

	return nil
}

// RecordHTTPRequest records RED metrics for one served request.
func (t *Telemetry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if t == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.String("status", status),
	)

	if t.httpRequestsTotal != nil {
		t.httpRequestsTotal.Add(context.Background(), 1, attrs)
	}

	if t.httpRequestDuration != nil {
		t.httpRequestDuration.Record(context.Background(), duration.Seconds(), attrs)
	}
}

// IncrementHTTPInFlight increments in-flight HTTP requests.
func (t *Telemetry) IncrementHTTPInFlight() {
	if t != nil && t.httpRequestsInFlight != nil {
		t.httpRequestsInFlight.Add(context.Background(), 1)
	}
}

// DecrementHTTPInFlight decrements in-flight HTTP requests.
func (t *Telemetry) DecrementHTTPInFlight() {
	if t != nil && t.httpRequestsInFlight != nil {
		t.httpRequestsInFlight.Add(context.Background(), -1)
	}
}

// RecordFetch records the outcome and duration of one download attempt.
func (t *Telemetry) RecordFetch(status string, duration time.Duration) {
	if t == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("status", status))

	if t.fetchesTotal != nil {
		t.fetchesTotal.Add(context.Background(), 1, attrs)
	}

	if t.fetchDuration != nil {
		t.fetchDuration.Record(context.Background(), duration.Seconds(), attrs)
	}
}

// IncrementActiveFetches increments the active download gauge.
func (t *Telemetry) IncrementActiveFetches() {
	if t != nil && t.fetchesActive != nil {
		t.fetchesActive.Add(context.Background(), 1)
	}
}

// DecrementActiveFetches decrements the active download gauge.
func (t *Telemetry) DecrementActiveFetches() {
	if t != nil && t.fetchesActive != nil {
		t.fetchesActive.Add(context.Background(), -1)
	}
}

// RecordEngineError counts a failure reported by the external fetch engine.
func (t *Telemetry) RecordEngineError() {
	if t != nil && t.engineErrors != nil {
		t.engineErrors.Add(context.Background(), 1)
	}
}

// RecordSweep records one completed retention sweep and how many files it
// removed.
func (t *Telemetry) RecordSweep(filesDeleted int) {
	if t == nil {
		return
	}

	if t.cleanupSweepsTotal != nil {
		t.cleanupSweepsTotal.Add(context.Background(), 1)
	}

	if t.cleanupFilesDeleted != nil {
		t.cleanupFilesDeleted.Add(context.Background(), int64(filesDeleted))
	}
}

func (t *Telemetry) initializeMetrics() error {
	var err error

	t.httpRequestsTotal, err = t.meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	t.httpRequestDuration, err = t.meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create http_request_duration histogram: %w", err)
	}

	t.httpRequestsInFlight, err = t.meter.Int64UpDownCounter(
		"http_requests_in_flight",
		metric.WithDescription("Number of HTTP requests currently being processed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create http_requests_in_flight counter: %w", err)
	}

	t.fetchesTotal, err = t.meter.Int64Counter(
		"fetches_total",
		metric.WithDescription("Total number of media fetches"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create fetches_total counter: %w", err)
	}

	t.fetchesActive, err = t.meter.Int64UpDownCounter(
		"fetches_active",
		metric.WithDescription("Number of downloads currently in flight"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create fetches_active counter: %w", err)
	}

	t.fetchDuration, err = t.meter.Float64Histogram(
		"fetch_duration_seconds",
		metric.WithDescription("Media fetch duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create fetch_duration histogram: %w", err)
	}

	t.engineErrors, err = t.meter.Int64Counter(
		"engine_errors_total",
		metric.WithDescription("Total number of fetch engine failures"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create engine_errors_total counter: %w", err)
	}

	t.cleanupFilesDeleted, err = t.meter.Int64Counter(
		"cleanup_files_deleted_total",
		metric.WithDescription("Total number of expired artifacts deleted"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create cleanup_files_deleted_total counter: %w", err)
	}

	t.cleanupSweepsTotal, err = t.meter.Int64Counter(
		"cleanup_sweeps_total",
		metric.WithDescription("Total number of retention sweeps"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create cleanup_sweeps_total counter: %w", err)
	}

	return nil
}
