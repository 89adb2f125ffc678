package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInit_DisabledIsNoop(t *testing.T) {
	t.Setenv("TRIAGEBOT_OTEL_ENABLED", "")

	var buf bytes.Buffer
	require.NoError(t, initWithWriter(context.Background(), "triagebot", "test", &buf))
	assert.Empty(t, shutdownFns)

	counter, err := otel.Meter("test").Int64Counter("noop.counter")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	require.NoError(t, Shutdown(context.Background()))
	assert.Empty(t, buf.String())
}

func TestInit_EnabledExportsOnShutdown(t *testing.T) {
	t.Setenv("TRIAGEBOT_OTEL_ENABLED", "true")

	var buf bytes.Buffer
	require.NoError(t, initWithWriter(context.Background(), "triagebot", "test", &buf))
	t.Cleanup(func() { _ = Shutdown(context.Background()) })

	counter, err := otel.Meter("test").Int64Counter("triagebot.test.counter")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	require.NoError(t, Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "triagebot.test.counter")
}
