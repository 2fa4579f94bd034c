package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" a=1, b = two ,broken,=x")
	require.Equal(t, map[string]string{"a": "1", "b": "two"}, got)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "x-token=abc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")
	var cfg Config
	cfg.ApplyEnv()
	require.Equal(t, "collector:4318", cfg.Endpoint)
	require.True(t, cfg.Insecure)
	require.Equal(t, "abc", cfg.Headers["x-token"])
	require.InDelta(t, 0.25, cfg.SampleRatio, 1e-9)
}

func TestInitDisabledIsNoop(t *testing.T) {
	_, err := Init(context.Background(), Config{})
	require.Error(t, err)

	shutdown, err := Init(context.Background(), Config{ServiceName: "bricsd"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
