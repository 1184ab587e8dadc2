package influx

import (
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/runtimeeditor/history/internal/history"
)

// Measurement is the measurement name of history audit points.
const Measurement = "history_ops"

// HistoryPoint builds one audit point for an undo, redo, record or clear.
func HistoryPoint(op string, res history.Result, st history.State, at time.Time) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement(Measurement).
		AddTag("op", op).
		AddField("affected", len(res.Affected)).
		AddField("skipped", len(res.Skipped)).
		AddField("warnings", len(res.Warnings)).
		AddField("staleSkipped", res.StaleSkipped).
		AddField("cleared", res.Cleared).
		AddField("undoLen", st.UndoLen).
		AddField("redoLen", st.RedoLen).
		SetTime(at)
	if !res.Empty() {
		p.AddTag("kind", res.Kind.String())
		p.AddField("commandId", res.CommandID)
	}
	return p
}

// Auditor writes history operations through a Manager.
type Auditor struct {
	m   *Manager
	now func() time.Time
}

// NewAuditor wraps m.
func NewAuditor(m *Manager) *Auditor {
	return &Auditor{m: m, now: time.Now}
}

// Audit records one history operation. Write failures are logged, not returned.
func (a *Auditor) Audit(op string, res history.Result, st history.State) {
	if err := a.m.WritePoint(HistoryPoint(op, res, st, a.now())); err != nil {
		a.m.Logger.Error().Err(err).Str("op", op).Msg("Failed to write history audit point")
	}
}
