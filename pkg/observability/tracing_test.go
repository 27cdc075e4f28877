package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ajitpratap0/ingestor/pkg/errors"
)

func TestDisabledProviderIsNoop(t *testing.T) {
	p, err := NewProvider(context.Background(), TracingConfig{})
	require.NoError(t, err)

	_, span := StartDataset(context.Background(), p.Tracer(), "g", "d", "rdbms")
	assert.False(t, span.SpanContext().IsValid())
	End(span, nil)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestDatasetSpan(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	p, err := NewProvider(context.Background(), TracingConfig{Enabled: true, Exporter: exp})
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	_, span := StartDataset(context.Background(), p.Tracer(), "sales", "orders", "rdbms")
	End(span, errors.New(errors.ErrorTypeQuery, "no such table"), attribute.Int64("ingest.rows", 0))

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "ingest.dataset", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Contains(t, spans[0].Attributes, attribute.String("ingest.dataset", "orders"))
	assert.Contains(t, spans[0].Attributes, attribute.String("error.type", "query"))
}

func TestStdoutExporter(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewProvider(context.Background(), TracingConfig{Enabled: true, Writer: &buf, ServiceVersion: "test"})
	require.NoError(t, err)

	_, span := StartDataset(context.Background(), p.Tracer(), "sales", "orders", "file")
	End(span, nil)
	require.NoError(t, p.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "ingest.dataset")
}

func TestNilProvider(t *testing.T) {
	var p *Provider
	assert.NotNil(t, p.Tracer())
	assert.NoError(t, p.Shutdown(context.Background()))
}
