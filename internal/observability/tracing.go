package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds tracing configuration.
type TracingConfig struct {
	ServiceName string
	Environment string
	Endpoint    string
	SampleRate  float64
}

// TracerProvider wraps the OpenTelemetry provider with environment-based
// sampling and batch export.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	config   TracingConfig
}

// InitTracing initializes distributed tracing with an OTLP gRPC exporter.
func InitTracing(ctx context.Context, config TracingConfig) (*TracerProvider, error) {
	if config.ServiceName == "" {
		config.ServiceName = "appshell"
	}
	if config.SampleRate == 0 {
		config.SampleRate = defaultSampleRate(config.Environment)
	}
	if config.Endpoint == "" {
		config.Endpoint = "localhost:4317"
	}

	exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(
		otlptracegrpc.WithEndpoint(config.Endpoint),
		otlptracegrpc.WithInsecure(),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
			semconv.DeploymentEnvironmentName(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.SampleRate))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{
		provider: tp,
		tracer:   tp.Tracer(config.ServiceName),
		config:   config,
	}, nil
}

// Tracer returns the configured tracer.
func (tp *TracerProvider) Tracer() trace.Tracer {
	return tp.tracer
}

// Shutdown flushes and shuts down the underlying provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	return tp.provider.Shutdown(ctx)
}

func defaultSampleRate(environment string) float64 {
	switch environment {
	case "production":
		return 0.1
	default:
		return 1.0
	}
}

// PhaseTracer observes orchestrator phases and records one span per
// phase. Phases run strictly sequentially, so a single in-flight span is
// sufficient; the map guards against out-of-order observer wiring.
type PhaseTracer struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[string]trace.Span
}

// NewPhaseTracer creates a phase observer backed by the given tracer.
func NewPhaseTracer(tracer trace.Tracer) *PhaseTracer {
	return &PhaseTracer{tracer: tracer, spans: make(map[string]trace.Span)}
}

// PhaseStarted opens a span for the phase.
func (p *PhaseTracer) PhaseStarted(ctx context.Context, phase string) {
	_, span := p.tracer.Start(ctx, "phase "+phase,
		trace.WithAttributes(attribute.String("appshell.phase", phase)),
	)
	p.mu.Lock()
	p.spans[phase] = span
	p.mu.Unlock()
}

// PhaseFinished closes the phase's span, recording the outcome.
func (p *PhaseTracer) PhaseFinished(ctx context.Context, phase string, duration time.Duration, err error) {
	p.mu.Lock()
	span, ok := p.spans[phase]
	delete(p.spans, phase)
	p.mu.Unlock()
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("appshell.phase.duration_ms", duration.Milliseconds()))
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}
