// Package telemetry configures OpenTelemetry tracing for upstream calls.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"microburbs-relay/internal/config"
)

// Tracer owns the process tracer provider.
type Tracer struct {
	Provider trace.TracerProvider
	shutdown func(context.Context) error
}

// New builds a Tracer. When tracing is disabled it returns a no-op provider;
// otherwise spans are batched to a stdout exporter writing to w.
func New(cfg *config.Config, logger *slog.Logger, w io.Writer) (*Tracer, error) {
	if !cfg.Tracing.Enabled {
		return &Tracer{
			Provider: noop.NewTracerProvider(),
			shutdown: func(context.Context) error { return nil },
		}, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			semconv.ServiceName(cfg.Tracing.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	logger.Info("tracing enabled", "service", cfg.Tracing.ServiceName)

	return &Tracer{Provider: tp, shutdown: tp.Shutdown}, nil
}

// Shutdown flushes pending spans.
func (t *Tracer) Shutdown(ctx context.Context) error {
	return t.shutdown(ctx)
}
