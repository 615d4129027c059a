package tracing

import (
	"context"
	"errors"
	"fmt"

	"tabula-hq/formula/pkg/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/credentials/insecure"
)

// InstrumentationName is the name of the tracer used by every span helper.
const InstrumentationName = "tabula-hq/formula"

// Tracer owns the OpenTelemetry tracer provider of the process.
type Tracer struct {
	config   *config.TracingConfig
	provider *sdktrace.TracerProvider
	enabled  bool
}

// Option customizes New.
type Option func(*options)

type options struct {
	processors []sdktrace.SpanProcessor
}

// WithSpanProcessor registers an additional span processor, for example a
// tracetest.SpanRecorder in tests.
func WithSpanProcessor(sp sdktrace.SpanProcessor) Option {
	return func(o *options) {
		o.processors = append(o.processors, sp)
	}
}

// New creates a Tracer with the given configuration and installs its
// provider as the global OpenTelemetry tracer provider, so the span helpers
// of this package record into it.
//
// If tracing is disabled, nothing is installed and the helpers produce
// non-recording spans.
//
// The tracer must be shut down when no longer needed:
//
//	defer tracer.Shutdown(context.Background())
func New(cfg *config.TracingConfig, opts ...Option) (*Tracer, error) {
	if cfg == nil {
		return nil, errors.New("tracing config is nil")
	}

	t := &Tracer{
		config:  cfg,
		enabled: cfg.Enabled,
	}
	if !cfg.Enabled {
		return t, nil
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	sampler, err := createSampler(cfg.Sampler, cfg.SampleRatio)
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler: %w", err)
	}

	providerOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sampler),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
		)),
	}

	exporter, err := createExporter(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}
	if exporter != nil {
		providerOpts = append(providerOpts, sdktrace.WithBatcher(exporter))
	}
	for _, sp := range o.processors {
		providerOpts = append(providerOpts, sdktrace.WithSpanProcessor(sp))
	}

	t.provider = sdktrace.NewTracerProvider(providerOpts...)

	otel.SetTracerProvider(t.provider)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	return t, nil
}

// Shutdown flushes any pending spans and shuts down the provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if !t.enabled || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// Enabled returns whether tracing is enabled.
func (t *Tracer) Enabled() bool {
	return t.enabled
}

// createExporter returns the configured span exporter, or nil for "none".
func createExporter(cfg *config.TracingConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "", "none":
		return nil, nil
	case "otlp":
		return createOTLPExporter(cfg)
	default:
		return nil, fmt.Errorf("unsupported exporter: %s", cfg.Exporter)
	}
}

// createOTLPExporter creates an OTLP gRPC exporter. The connection is
// established lazily on the first export.
func createOTLPExporter(cfg *config.TracingConfig) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
	}

	exporter, err := otlptrace.New(context.Background(), otlptracegrpc.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}
	return exporter, nil
}

// Start starts a span with the global tracer provider.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(InstrumentationName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// TraceID returns the trace ID from the context as a string.
// Returns empty string if no trace context exists.
func TraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// SetError marks the span as failed and records the error.
func SetError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// End sets the span status from err and ends the span.
//
//	ctx, span := tracing.StartBatch(ctx, batch.ID, len(batch.Requests))
//	defer func() { tracing.End(span, err) }()
func End(span trace.Span, err error) {
	if err != nil {
		SetError(span, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
