// Package tracing configures OpenTelemetry and starts the spans kaminari emits around
// repository operations, cache lookups and third-party API calls.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

const shutdownTimeout = 10 * time.Second

// Options describe where spans go and how many are kept.
type Options struct {
	Enabled     bool
	Service     string
	Version     string
	Environment string

	// Endpoint is the OTLP gRPC collector, e.g. "otel-collector:4317".
	Endpoint string
	Insecure bool
	// SampleRate applies to root spans. Children follow their parent.
	SampleRate float64

	// Exporter replaces the OTLP exporter. Tests pass an in-memory one.
	Exporter sdktrace.SpanExporter
}

func (o Options) validate() error {
	var errs []error
	if o.Service == "" {
		errs = append(errs, errors.New("service name is required"))
	}
	if o.Endpoint == "" && o.Exporter == nil {
		errs = append(errs, errors.New("OTLP endpoint is required"))
	}
	if o.SampleRate < 0 || o.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("sample rate %v must be between 0 and 1", o.SampleRate))
	}
	return errors.Join(errs...)
}

// Provider owns the SDK tracer provider for the lifetime of the process.
type Provider struct {
	sdk *sdktrace.TracerProvider
}

// Setup builds the provider. An enabled provider is installed as the global one
// together with the W3C trace-context and baggage propagators. A disabled provider
// samples nothing and is not installed.
func Setup(ctx context.Context, opts Options) (*Provider, error) {
	if !opts.Enabled {
		return &Provider{sdk: sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.NeverSample()))}, nil
	}
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	exporter := opts.Exporter
	if exporter == nil {
		clientOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
		if opts.Insecure {
			clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
		}
		var err error
		if exporter, err = otlptracegrpc.New(ctx, clientOpts...); err != nil {
			return nil, fmt.Errorf("tracing: otlp exporter: %w", err)
		}
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(opts.Service),
		semconv.ServiceVersion(opts.Version),
		semconv.DeploymentEnvironment(opts.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("tracing: resource: %w", err)
	}

	sdk := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(opts.SampleRate))),
	)
	otel.SetTracerProvider(sdk)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	return &Provider{sdk: sdk}, nil
}

func (p *Provider) Tracer(scope string) trace.Tracer {
	return p.sdk.Tracer(scope)
}

// Flush exports the spans still buffered by the batcher.
func (p *Provider) Flush(ctx context.Context) error {
	return p.sdk.ForceFlush(ctx)
}

// Shutdown flushes and stops the exporter, giving up after ten seconds.
func (p *Provider) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := p.sdk.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracing: shutdown: %w", err)
	}
	return nil
}
