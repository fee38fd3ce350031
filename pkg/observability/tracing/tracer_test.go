package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetup_Disabled(t *testing.T) {
	p, err := Setup(context.Background(), Options{Service: "kaminari"})
	require.NoError(t, err)

	_, span := p.Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsSampled())
	span.End()

	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSetup_ExportsThroughInjectedExporter(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	exporter := tracetest.NewInMemoryExporter()
	p, err := Setup(context.Background(), Options{
		Enabled:    true,
		Service:    "kaminari",
		Version:    "1.2.0",
		SampleRate: 1,
		Exporter:   exporter,
	})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "GET /api/Anime/Search")
	span.End()
	require.NoError(t, p.Flush(context.Background()))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/Anime/Search", spans[0].Name)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSetup_Validation(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr []string
	}{
		{
			name:    "missing service and endpoint",
			opts:    Options{Enabled: true, SampleRate: 0.5},
			wantErr: []string{"service name is required", "OTLP endpoint is required"},
		},
		{
			name:    "sample rate above one",
			opts:    Options{Enabled: true, Service: "kaminari", Endpoint: "localhost:4317", SampleRate: 1.5},
			wantErr: []string{"must be between 0 and 1"},
		},
		{
			name:    "negative sample rate",
			opts:    Options{Enabled: true, Service: "kaminari", Endpoint: "localhost:4317", SampleRate: -0.1},
			wantErr: []string{"must be between 0 and 1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Setup(context.Background(), tt.opts)
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.ErrorContains(t, err, want)
			}
		})
	}
}
