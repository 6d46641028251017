package telemetry_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/oggyb/devconnect/internal/config"
	"github.com/oggyb/devconnect/internal/logger"
	"github.com/oggyb/devconnect/internal/telemetry"
)

func TestInitDisabled(t *testing.T) {
	before := otel.GetTracerProvider()

	shutdown, err := telemetry.Init(context.Background(), &config.Config{}, logger.Discard(), nil)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.Equal(t, before, otel.GetTracerProvider())
}

func TestInitExportsSpans(t *testing.T) {
	before := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(before) })

	cfg := &config.Config{}
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.ServiceName = "devconnect-test"

	var buf bytes.Buffer
	shutdown, err := telemetry.Init(context.Background(), cfg, logger.Discard(), &buf)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "match.Decide")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "match.Decide")
	assert.Contains(t, buf.String(), "devconnect-test")
}
