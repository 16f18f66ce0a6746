// Package observability provides OpenTelemetry tracing for herbwise.
//
// Traces are exported over OTLP HTTP to a local collector (default
// localhost:4318). Export is best-effort: an unreachable collector
// degrades to a no-op, it never blocks or fails the serve path.
package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// DefaultEndpoint is the default OTLP HTTP collector endpoint.
const DefaultEndpoint = "localhost:4318"

// Config for tracing setup.
type Config struct {
	// Endpoint is the OTLP HTTP collector host:port. Empty uses
	// DefaultEndpoint.
	Endpoint string

	// ServiceName is the service name attached to every span.
	ServiceName string

	// Environment is the deployment environment tag (dev, prod).
	Environment string
}

// Setup installs a global tracer provider exporting to the configured
// collector. The returned shutdown function flushes pending spans.
//
// Setup never fails the caller: if the exporter cannot be created,
// tracing stays disabled and the shutdown function is a no-op.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) (func(context.Context) error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(), // local collector, no TLS
	)
	if err != nil {
		logger.Warn("trace exporter unavailable, tracing disabled", "error", err)
		return func(context.Context) error { return nil }, nil
	}

	attrs := []resource.Option{
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	}
	if cfg.Environment != "" {
		attrs = append(attrs, resource.WithAttributes(
			semconv.DeploymentEnvironment(cfg.Environment),
		))
	}
	res, err := resource.New(ctx, attrs...)
	if err != nil {
		res = resource.Default()
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	logger.Debug("tracing enabled",
		"endpoint", endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)
	return provider.Shutdown, nil
}
