package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/runtimeeditor/history/internal/config"
)

func TestDisabledIsNoop(t *testing.T) {
	p, err := New(Config{})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.Equal(t, noop.Meter{}, p.Meter("x"))
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestEnabledNeedsAnOutput(t *testing.T) {
	_, err := New(Config{Enabled: true})
	assert.Error(t, err)
}

func TestEnabledWithWriter(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(FromConfig(config.OTelConfig{
		Enabled:      true,
		ServiceName:  "edithistory-test",
		BatchTimeout: time.Second,
	}, &buf))
	require.NoError(t, err)

	assert.True(t, p.Enabled())
	require.NotNil(t, p.LoggerProvider())
	assert.NotNil(t, p.Meter("history"))
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestServiceNameDefault(t *testing.T) {
	p, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, "edithistory", p.ServiceName())

	var buf bytes.Buffer
	p, err = New(Config{Enabled: true, ServiceName: "editor", ServiceVersion: "1.2.3", LogWriter: &buf})
	require.NoError(t, err)
	assert.Equal(t, "editor", p.ServiceName())
	assert.NoError(t, p.Shutdown(context.Background()))
}
