package tracing

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Config configures tracing initialization.
type Config struct {
	// ServiceName identifies this process in exported spans.
	ServiceName string

	// Writer receives the exported spans. nil selects stdout.
	Writer io.Writer

	// PrettyPrint renders spans as indented JSON.
	PrettyPrint bool
}

var (
	mu       sync.Mutex
	provider *sdktrace.TracerProvider
)

// Initialize sets up a tracer provider exporting spans to the configured
// writer and installs it as the global provider. It fails if tracing has
// already been initialized.
func Initialize(ctx context.Context, cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	if provider != nil {
		return fmt.Errorf("tracing is already initialized")
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "taskpool"
	}

	opts := []stdouttrace.Option{}
	if cfg.Writer != nil {
		opts = append(opts, stdouttrace.WithWriter(cfg.Writer))
	}
	if cfg.PrettyPrint {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}

	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(sdkresource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
		)),
	)
	otel.SetTracerProvider(provider)

	return nil
}

// IsInitialized reports whether Initialize has run.
func IsInitialized() bool {
	mu.Lock()
	defer mu.Unlock()
	return provider != nil
}

// Provider returns the installed tracer provider, or nil before Initialize.
// Pass it to pool.Config.TracerProvider to trace blocking batches.
func Provider() trace.TracerProvider {
	mu.Lock()
	defer mu.Unlock()
	if provider == nil {
		return nil
	}
	return provider
}

// Shutdown flushes pending spans and releases the provider.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	p := provider
	provider = nil
	mu.Unlock()

	if p == nil {
		return nil
	}
	if err := p.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down tracing: %w", err)
	}
	return nil
}
