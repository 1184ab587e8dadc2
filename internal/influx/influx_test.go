package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runtimeeditor/history/internal/config"
	"github.com/runtimeeditor/history/internal/history"
	"github.com/runtimeeditor/history/pkg/core"
)

func unreachable() config.InfluxConfig {
	return config.InfluxConfig{
		Enabled:  true,
		Host:     "127.0.0.1",
		Port:     "1",
		Protocol: "http",
		Token:    "token",
		Org:      "edithistory",
		Bucket:   "history",
	}
}

func TestConnectDisabled(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{}, "")
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
	assert.NoError(t, m.Close())
}

func TestURL(t *testing.T) {
	m := NewManager(zerolog.Nop(), unreachable(), "")
	assert.Equal(t, "http://127.0.0.1:1", m.URL())
}

func TestWriteWithoutConnection(t *testing.T) {
	m := NewManager(zerolog.Nop(), unreachable(), "")
	err := m.WritePoint(influxdb2_write.NewPointWithMeasurement("x").AddField("v", 1))
	assert.Error(t, err)
}

func TestUnreachableFallsBackToBackup(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "influx", "backup.lp.gz")
	m := NewManager(zerolog.Nop(), unreachable(), backup)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx))
	assert.False(t, m.IsValid)

	res := history.Result{
		CommandID: "cmd-1",
		Kind:      core.KindHeights,
		Affected:  []core.EntityHandle{"tile-1"},
	}
	auditor := NewAuditor(m)
	auditor.now = func() time.Time { return time.Unix(1700000000, 0) }
	auditor.Audit("undo", res, history.State{CanRedo: true, RedoLen: 1})
	require.NoError(t, m.Close())

	f, err := os.Open(backup)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)

	line := string(data)
	assert.True(t, strings.HasPrefix(line, "history_ops,"), line)
	assert.Contains(t, line, "kind=heights")
	assert.Contains(t, line, "op=undo")
	assert.Contains(t, line, "affected=1i")
	assert.Contains(t, line, `commandId="cmd-1"`)
	assert.Contains(t, line, "redoLen=1i")
	assert.Contains(t, line, "1700000000000000000")
}

func TestHistoryPointForClear(t *testing.T) {
	p := HistoryPoint("clear", history.Result{Cleared: true}, history.State{}, time.Unix(0, 0))

	assert.Equal(t, Measurement, p.Name())
	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, map[string]string{"op": "clear"}, tags)

	fields := map[string]any{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, true, fields["cleared"])
	assert.NotContains(t, fields, "commandId")
}
