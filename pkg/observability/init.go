package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/multierr"

	"github.com/ajitpratap0/reservoir/pkg/logger"
)

// Initialize sets up logging and, when enabled, tracing. It may be called
// again to replace the previous setup; the old tracer provider is shut down.
func Initialize(ctx context.Context, config Config) error {
	if err := logger.Init(config.Logging); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	if !config.Tracing.Enabled || config.Tracing.ExporterType == "none" {
		return nil
	}

	exporter, err := newExporter(config.Tracing)
	if err != nil {
		return err
	}
	return installTracing(ctx, config.Tracing, exporter)
}

func newExporter(config TracingConfig) (sdktrace.SpanExporter, error) {
	var w io.Writer = os.Stdout
	if config.Writer != nil {
		w = config.Writer
	}

	switch config.ExporterType {
	case "", "stdout":
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		return exporter, nil
	}
	return nil, fmt.Errorf("unsupported trace exporter %q", config.ExporterType)
}

// installTracing builds a tracer provider around exporter and makes it the
// global one.
func installTracing(ctx context.Context, config TracingConfig, exporter sdktrace.SpanExporter) error {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	if config.BatchTimeout <= 0 {
		config.BatchTimeout = 5 * time.Second
	}
	if config.MaxQueueSize <= 0 {
		config.MaxQueueSize = 2048
	}
	if config.MaxExportBatch <= 0 || config.MaxExportBatch > config.MaxQueueSize {
		config.MaxExportBatch = min(512, config.MaxQueueSize)
	}

	// Configure sampling
	var sampler sdktrace.Sampler
	if config.SamplingRate <= 0 {
		sampler = sdktrace.NeverSample()
	} else if config.SamplingRate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(config.SamplingRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(config.BatchTimeout),
			sdktrace.WithMaxExportBatchSize(config.MaxExportBatch),
			sdktrace.WithMaxQueueSize(config.MaxQueueSize),
		),
	)

	mu.Lock()
	prev := provider
	provider = tp
	tracer = tp.Tracer(config.ServiceName)
	mu.Unlock()

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if prev != nil {
		return prev.Shutdown(ctx)
	}
	return nil
}

// DefaultConfig returns a default observability configuration
func DefaultConfig() Config {
	return Config{
		Tracing: TracingConfig{
			Enabled:        false,
			ServiceName:    "reservoir",
			ServiceVersion: "1.0.0",
			Environment:    getEnv("ENVIRONMENT", "development"),
			SamplingRate:   0.1, // 10% sampling
			ExporterType:   getEnv("TRACING_EXPORTER", "stdout"),
			BatchTimeout:   5 * time.Second,
			MaxExportBatch: 512,
			MaxQueueSize:   2048,
		},
		Logging: logger.Config{
			Level:       getEnv("LOG_LEVEL", "info"),
			Encoding:    getEnv("LOG_FORMAT", "json"),
			Development: getEnv("ENVIRONMENT", "development") == "development",
		},
	}
}

// getEnv gets environment variable with default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Flush exports every span that has ended so far.
func Flush(ctx context.Context) error {
	mu.RLock()
	tp := provider
	mu.RUnlock()
	if tp == nil {
		return nil
	}
	return tp.ForceFlush(ctx)
}

// Shutdown flushes and stops the tracer provider and syncs the logger.
// Every failure is reported, not just the first.
func Shutdown(ctx context.Context) error {
	var err error

	mu.Lock()
	tp := provider
	provider = nil
	tracer = nil
	mu.Unlock()

	if tp != nil {
		if serr := tp.Shutdown(ctx); serr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to shutdown tracer: %w", serr))
		}
	}

	if serr := logger.Sync(); serr != nil && !ignorableSyncError(serr) {
		err = multierr.Append(err, fmt.Errorf("failed to sync logger: %w", serr))
	}

	return err
}

// ignorableSyncError matches the errors fsync returns for terminals and
// pipes. See https://github.com/uber-go/zap/issues/328
func ignorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "bad file descriptor") ||
		strings.Contains(msg, "invalid argument") ||
		strings.Contains(msg, "inappropriate ioctl") ||
		strings.Contains(msg, "/dev/stdout") ||
		strings.Contains(msg, "/dev/stderr")
}
