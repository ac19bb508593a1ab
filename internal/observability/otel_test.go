package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestInitTracer_Disabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), TracerConfig{}, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracer_StdoutExporter(t *testing.T) {
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	var spans, logs bytes.Buffer
	shutdown, err := InitTracer(context.Background(), TracerConfig{
		Enabled:        true,
		ServiceName:    "dvbatch-test",
		ServiceVersion: "0.0.1",
		Writer:         &spans,
	}, zerolog.New(&logs))
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "batch.run")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, spans.String(), `"Name":"batch.run"`)
	assert.Contains(t, spans.String(), "dvbatch-test")
	assert.Contains(t, logs.String(), `"type":"stdout"`)
}
