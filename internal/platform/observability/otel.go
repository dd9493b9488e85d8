package observability

import (
	"context"
	"errors"
	"fmt"

	"productservice/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ShutdownFunc flushes and stops one telemetry pipeline.
type ShutdownFunc func(context.Context) error

// noopShutdown is returned when telemetry is disabled so callers never check for nil.
func noopShutdown(context.Context) error { return nil }

func newResource() (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
		),
	)
}

func authHeaders(cfg *config.Config) map[string]string {
	return map[string]string{"Authorization": cfg.OtelAuthHeader}
}

// SetupLoggingSDK initializes OpenTelemetry logging with the provided configuration
func SetupLoggingSDK(ctx context.Context, cfg *config.Config) (ShutdownFunc, error) {
	if !cfg.TelemetryEnabled() {
		return noopShutdown, nil
	}

	res, err := newResource()
	if err != nil {
		return noopShutdown, fmt.Errorf("failed to create resource: %w", err)
	}

	logExporter, err := otlploghttp.New(ctx,
		otlploghttp.WithEndpoint(cfg.OtelEndpoint),
		otlploghttp.WithURLPath(config.LogsPath),
		otlploghttp.WithHeaders(authHeaders(cfg)),
	)
	if err != nil {
		return noopShutdown, fmt.Errorf("OTLP Log Exporter: %w", err)
	}

	logProcessor := sdklog.NewBatchProcessor(logExporter,
		sdklog.WithExportTimeout(config.ExportTimeout),
		sdklog.WithMaxQueueSize(config.MaxQueueSize),
	)

	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(logProcessor),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(loggerProvider)

	return loggerProvider.Shutdown, nil
}

// SetupTracingSDK initializes OpenTelemetry tracing with the provided configuration.
// The propagator is installed even when export is disabled so that trace context
// found in Kafka headers is still honoured.
func SetupTracingSDK(ctx context.Context, cfg *config.Config) (*sdktrace.TracerProvider, ShutdownFunc, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !cfg.TelemetryEnabled() {
		return nil, noopShutdown, nil
	}

	res, err := newResource()
	if err != nil {
		return nil, noopShutdown, fmt.Errorf("failed to create resource: %w", err)
	}

	traceExporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OtelEndpoint),
		otlptracehttp.WithURLPath(config.TracesPath),
		otlptracehttp.WithHeaders(authHeaders(cfg)),
	)
	if err != nil {
		return nil, noopShutdown, fmt.Errorf("OTLP Trace Exporter: %w", err)
	}

	traceProcessor := sdktrace.NewBatchSpanProcessor(traceExporter,
		sdktrace.WithExportTimeout(config.ExportTimeout),
		sdktrace.WithMaxQueueSize(config.MaxQueueSize),
	)

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(traceProcessor),
	)
	otel.SetTracerProvider(tracerProvider)

	return tracerProvider, tracerProvider.Shutdown, nil
}

// SetupMetricsSDK initializes the OpenTelemetry meter provider used by the stock pipeline counters.
func SetupMetricsSDK(ctx context.Context, cfg *config.Config) (ShutdownFunc, error) {
	if !cfg.TelemetryEnabled() {
		return noopShutdown, nil
	}

	res, err := newResource()
	if err != nil {
		return noopShutdown, fmt.Errorf("failed to create resource: %w", err)
	}

	metricExporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(cfg.OtelEndpoint),
		otlpmetrichttp.WithURLPath(config.MetricsPath),
		otlpmetrichttp.WithHeaders(authHeaders(cfg)),
	)
	if err != nil {
		return noopShutdown, fmt.Errorf("OTLP Metric Exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
			sdkmetric.WithInterval(config.MetricInterval),
		)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	return meterProvider.Shutdown, nil
}

// JoinShutdown runs every shutdown function and aggregates their errors.
func JoinShutdown(fns ...ShutdownFunc) ShutdownFunc {
	return func(ctx context.Context) error {
		var err error
		for _, fn := range fns {
			if fn != nil {
				err = errors.Join(err, fn(ctx))
			}
		}
		return err
	}
}
