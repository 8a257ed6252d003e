package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName    = "tuesdata-pipeline"
	ServiceVersion = "1.0.0"
)

// OTelConfig holds OpenTelemetry configuration.
type OTelConfig struct {
	ServiceName   string
	Environment   string
	EnableTracing bool
	SampleRatio   float64
}

// OTelProviders holds the initialized OpenTelemetry providers.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	Tracer         trace.Tracer
	Logger         *slog.Logger
}

// DefaultOTelConfig returns a default OpenTelemetry configuration.
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	return &OTelConfig{
		ServiceName:   ServiceName,
		Environment:   env,
		EnableTracing: true,
		SampleRatio:   1.0,
	}
}

// InitializeOTel initializes tracing with a stdout span exporter. Metrics
// are exposed separately through Prometheus.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}
	ctx := context.Background()

	logger.InfoContext(ctx, "initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing))

	providers := &OTelProviders{Logger: logger}
	if !cfg.EnableTracing {
		providers.Tracer = otel.Tracer(cfg.ServiceName)
		return providers, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(ServiceVersion),
			semconv.DeploymentEnvironmentName(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(cfg.ServiceName)

	logger.InfoContext(ctx, "OpenTelemetry initialization complete")
	return providers, nil
}

// Shutdown flushes and stops the tracer provider.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	if p.TracerProvider == nil {
		return nil
	}
	if err := p.TracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down tracer provider: %w", err)
	}
	return nil
}
