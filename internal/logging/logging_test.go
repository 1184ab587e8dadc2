package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func TestLogFilePath(t *testing.T) {
	sessionStart := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		appName string
		want    string
	}{
		{
			name:    "basic path",
			logsDir: "edithistory-logs",
			appName: "edithistory",
			want:    filepath.Join("edithistory-logs", "edithistory.20260212_213836.log"),
		},
		{
			name:    "relative path with dot",
			logsDir: "./logs",
			appName: "edithistory",
			want:    filepath.Join(".", "logs", "edithistory.20260212_213836.log"),
		},
		{
			name:    "absolute path",
			logsDir: filepath.Join("/var", "log", "editor"),
			appName: "edithistory",
			want:    filepath.Join("/var", "log", "editor", "edithistory.20260212_213836.log"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LogFilePath(tt.logsDir, tt.appName, sessionStart))
		})
	}
}

func TestOpenLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "run.log")
	f, err := OpenLogFile(path)
	require.NoError(t, err)
	_, err = f.WriteString("line\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(data))
}

func TestSetupFileOnly(t *testing.T) {
	var stdout bytes.Buffer
	orig := osStdout
	osStdout = &stdout
	t.Cleanup(func() { osStdout = orig })

	var file bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{File: &file, Level: "info"})
	m.Logger().Info("hello file")

	assert.Contains(t, file.String(), "hello file")
	assert.Empty(t, stdout.String(), "nothing goes to stdout when a file is given")
}

func TestSetupNoFileWritesStdout(t *testing.T) {
	var stdout bytes.Buffer
	orig := osStdout
	osStdout = &stdout
	t.Cleanup(func() { osStdout = orig })

	m := NewSlogManager()
	m.Setup(Options{Level: "info"})
	m.Logger().Info("hello console")

	assert.Contains(t, stdout.String(), "hello console")
}

func TestSetupLevels(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{File: &buf, Level: "info"})

	m.Logger().Debug("should be filtered")
	m.Logger().Info("should appear")

	assert.NotContains(t, buf.String(), "should be filtered")
	assert.Contains(t, buf.String(), "should appear")
}

func TestSetupContextProvider(t *testing.T) {
	var buf bytes.Buffer
	depth := 3
	m := NewSlogManager()
	m.Setup(Options{
		File:  &buf,
		Level: "debug",
		Context: func() []slog.Attr {
			return []slog.Attr{slog.Int("undoDepth", depth)}
		},
	})

	m.Logger().Info("recorded")
	assert.Contains(t, buf.String(), "undoDepth=3")

	depth = 4
	m.Logger().Info("recorded again")
	assert.Contains(t, buf.String(), "undoDepth=4")
}

func TestSetupWithOTelProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider()

	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{File: &buf, Level: "info", Provider: provider})

	m.Logger().Info("otel integrated")
	assert.Contains(t, buf.String(), "otel integrated")
	assert.NoError(t, m.Flush(context.Background()))
}

func TestLoggerDefaultBeforeSetup(t *testing.T) {
	m := NewSlogManager()
	assert.Equal(t, slog.Default(), m.Logger())
	assert.NoError(t, m.Flush(context.Background()))
	m.WriteLog("noop", "dropped", "info")
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{File: &buf, Level: "info"})

	m.Component("history").Info("undo")
	assert.Contains(t, buf.String(), "component=history")
}

func TestWriteLogAllLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "unknown"} {
		t.Run(level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(Options{File: &buf, Level: "debug"})

			m.WriteLog("testFunc", level+" message", level)

			assert.Contains(t, buf.String(), level+" message")
			assert.Contains(t, buf.String(), "testFunc")
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"Error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

type errorHandler struct {
	slog.Handler
}

func (h *errorHandler) Handle(context.Context, slog.Record) error { return errors.New("handler error") }
func (h *errorHandler) Enabled(context.Context, slog.Level) bool  { return true }

func TestMultiHandlerKeepsGoingAfterError(t *testing.T) {
	var buf bytes.Buffer
	spy := slog.NewTextHandler(&buf, nil)

	multi := NewMultiHandler(&errorHandler{}, nil, spy)
	var r slog.Record
	r.Level = slog.LevelInfo
	r.Message = "should reach spy"

	err := multi.Handle(context.Background(), r)
	assert.EqualError(t, err, "handler error")
	assert.Contains(t, buf.String(), "should reach spy")
}

func TestMultiHandlerWithAttrsAndGroup(t *testing.T) {
	var a, b bytes.Buffer
	multi := NewMultiHandler(slog.NewTextHandler(&a, nil), slog.NewTextHandler(&b, nil))

	assert.Same(t, multi, multi.WithGroup(""))

	logger := slog.New(multi.WithAttrs([]slog.Attr{slog.String("tile", "t1")}).WithGroup("brush"))
	logger.Info("stroke", "size", 4)

	for _, out := range []string{a.String(), b.String()} {
		assert.Contains(t, out, "tile=t1")
		assert.Contains(t, out, "brush.size=4")
	}
}

func TestContextHandlerReadsContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewContextHandler(slog.NewTextHandler(&buf, nil), nil))

	ctx := WithAttrs(context.Background(), slog.String("command", "c-1"))
	ctx = WithAttrs(ctx, slog.String("kind", "heights"))
	logger.InfoContext(ctx, "undo")

	assert.Contains(t, buf.String(), "command=c-1")
	assert.Contains(t, buf.String(), "kind=heights")
}

func TestZerologAdapter(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapter(NewZerolog(&buf, "debug"))

	l.Warn("tile missing", "handle", "t-9", "err", errors.New("gone"), 7, "ignored")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "tile missing", entry["message"])
	assert.Equal(t, "t-9", entry["handle"])
	assert.Equal(t, "gone", entry["err"])
}

func TestNewZerologLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerolog(&buf, "bogus")
	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())

	l.Debug().Msg("hidden")
	assert.Empty(t, buf.String())
}
