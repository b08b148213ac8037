package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-management-api/pkg/config"
)

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), &config.Config{}, nil)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitStdoutExporter(t *testing.T) {
	cfg := &config.Config{Env: "test", Tracing: config.TracingConfig{Enabled: true, SampleRatio: 1}}
	shutdown, err := Init(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
