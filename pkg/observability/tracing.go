// Package observability sets up OpenTelemetry tracing. With tracing
// disabled the provider is a no-op and spans cost nothing.
package observability

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ajitpratap0/ingestor/pkg/errors"
)

const instrumentationName = "github.com/ajitpratap0/ingestor"

// TracingConfig contains tracing configuration
type TracingConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	// Writer receives stdout-exported spans. Nil means os.Stdout.
	Writer io.Writer
	// Exporter overrides the stdout exporter, for tests.
	Exporter sdktrace.SpanExporter
}

// Provider owns the tracer provider for one process
type Provider struct {
	provider trace.TracerProvider
	sdk      *sdktrace.TracerProvider
}

// NewProvider builds a provider from cfg
func NewProvider(ctx context.Context, cfg TracingConfig) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{provider: noop.NewTracerProvider()}, nil
	}

	exporter := cfg.Exporter
	if exporter == nil {
		opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
		if cfg.Writer != nil {
			opts = append(opts, stdouttrace.WithWriter(cfg.Writer))
		}
		var err error
		exporter, err = stdouttrace.New(opts...)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create stdout exporter")
		}
	}

	name := cfg.ServiceName
	if name == "" {
		name = "ingestor"
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(name),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create resource")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithSyncer(exporter),
	)
	return &Provider{provider: tp, sdk: tp}, nil
}

// Tracer returns the ingestor tracer. A nil Provider yields a no-op tracer.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil {
		return noop.NewTracerProvider().Tracer(instrumentationName)
	}
	return p.provider.Tracer(instrumentationName)
}

// Shutdown flushes and stops exporting.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.sdk == nil {
		return nil
	}
	return p.sdk.Shutdown(ctx)
}

// StartDataset opens a span around one dataset run.
func StartDataset(ctx context.Context, tracer trace.Tracer, group, dataset, kind string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "ingest.dataset", trace.WithAttributes(
		attribute.String("ingest.group", group),
		attribute.String("ingest.dataset", dataset),
		attribute.String("ingest.kind", kind),
	))
}

// End records err on span, if any, and ends it.
func End(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.type", string(errors.TypeOf(err))))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
