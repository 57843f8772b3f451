// Package metrics holds the OpenTelemetry instruments of the pipeline:
// task outcome counters, cache hits, and per-stage duration histograms.
// Without a configured OTLP endpoint the instruments run on the default
// no-op provider, so call sites never branch on whether metrics are enabled.
package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/taoxee/scribeflow/logger"
)

// Config configures the OTLP metric exporter.
type Config struct {
	// ServiceName identifies the service in exported metrics.
	ServiceName string `mapstructure:"service_name"`
	// Endpoint is the OTLP HTTP endpoint host:port. Empty disables export.
	Endpoint string `mapstructure:"endpoint"`
	// Insecure allows plain HTTP export.
	Insecure bool `mapstructure:"insecure"`
	// Interval is the export interval.
	Interval time.Duration `mapstructure:"interval"`
}

// InitProvider wires the OTLP HTTP exporter and installs the provider
// globally. The returned provider must be shut down on exit.
func InitProvider(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("metrics: create exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: create resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", cfg.ServiceName,
		"endpoint", cfg.Endpoint,
	))
	return mp, nil
}

// Metrics holds the pipeline instruments.
type Metrics struct {
	tasksStarted   metric.Int64Counter
	tasksCompleted metric.Int64Counter
	tasksFailed    metric.Int64Counter
	cacheHits      metric.Int64Counter
	stageDuration  metric.Float64Histogram
}

// New creates the instruments on the given meter. Pass otel.Meter(...) to
// use whatever provider is installed globally.
func New(meter metric.Meter) (*Metrics, error) {
	tasksStarted, err := meter.Int64Counter("tasks.started",
		metric.WithDescription("Tasks accepted for processing"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: tasks.started: %w", err)
	}
	tasksCompleted, err := meter.Int64Counter("tasks.completed",
		metric.WithDescription("Tasks that reached the complete state"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: tasks.completed: %w", err)
	}
	tasksFailed, err := meter.Int64Counter("tasks.failed",
		metric.WithDescription("Tasks that reached the failed state, by error code"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: tasks.failed: %w", err)
	}
	cacheHits, err := meter.Int64Counter("tasks.cache_hits",
		metric.WithDescription("Tasks served from a previously completed run"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: tasks.cache_hits: %w", err)
	}
	stageDuration, err := meter.Float64Histogram("stage.duration",
		metric.WithDescription("Duration of pipeline stages in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: stage.duration: %w", err)
	}

	return &Metrics{
		tasksStarted:   tasksStarted,
		tasksCompleted: tasksCompleted,
		tasksFailed:    tasksFailed,
		cacheHits:      cacheHits,
		stageDuration:  stageDuration,
	}, nil
}

// Default creates the instruments on the globally installed provider.
func Default() (*Metrics, error) {
	return New(otel.Meter("scribeflow"))
}

// TaskStarted counts one accepted task.
func (m *Metrics) TaskStarted(ctx context.Context, asrVendor, llmVendor string) {
	m.tasksStarted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("asr_vendor", asrVendor),
		attribute.String("llm_vendor", llmVendor),
	))
}

// TaskCompleted counts one completed task.
func (m *Metrics) TaskCompleted(ctx context.Context) {
	m.tasksCompleted.Add(ctx, 1)
}

// TaskFailed counts one failed task by taxonomy code and stage.
func (m *Metrics) TaskFailed(ctx context.Context, code, stage string) {
	m.tasksFailed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("stage", stage),
	))
}

// CacheHit counts one replayed task.
func (m *Metrics) CacheHit(ctx context.Context) {
	m.cacheHits.Add(ctx, 1)
}

// StageDuration records how long one stage ran, labeled by vendor.
func (m *Metrics) StageDuration(ctx context.Context, stage, vendor string, d time.Duration) {
	m.stageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("vendor", vendor),
	))
}
