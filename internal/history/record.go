package history

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/runtimeeditor/history/internal/command"
	"github.com/runtimeeditor/history/internal/snapshot"
	"github.com/runtimeeditor/history/pkg/core"
)

// Record pushes a closed command onto the undo stack and clears redo.
// It reports whether the command was kept. Selection and tool changes,
// empty commands, transforms that moved nothing and exact repeats of the
// previous transform are dropped. When the stack is over capacity the
// oldest entries are evicted and lost.
func (h *History) Record(cmd command.Command) (bool, error) {
	if cmd == nil {
		return false, fmt.Errorf("record: nil command")
	}
	if !h.Enabled() {
		cmd.Release()
		return false, nil
	}
	if !h.busy.CompareAndSwap(false, true) {
		h.logger.Warn("Skipping record while history operation in flight", "kind", cmd.Kind().String(), "id", cmd.ID())
		cmd.Release()
		return false, ErrReentrant
	}
	defer h.busy.Store(false)

	if cmd.State() == command.StateOpen {
		return false, fmt.Errorf("record %s command %s: %w", cmd.Kind(), cmd.ID(), command.ErrCommandNotClosed)
	}

	if reason := h.skipReason(cmd); reason != "" {
		h.logger.Debug("Command not recorded", "kind", cmd.Kind().String(), "id", cmd.ID(), "reason", reason)
		h.skipped.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("kind", cmd.Kind().String()),
			attribute.String("reason", reason),
		))
		cmd.Release()
		return false, nil
	}

	h.mu.Lock()
	for _, c := range h.redo {
		c.Release()
	}
	h.redo = nil
	h.undo = append(h.undo, cmd)
	evicted := 0
	for len(h.undo) > h.cfg.Capacity {
		h.undo[0].Release()
		h.undo[0] = nil
		h.undo = h.undo[1:]
		evicted++
	}
	h.mu.Unlock()

	h.recorded.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", cmd.Kind().String())))
	if evicted > 0 {
		h.logger.Debug("Evicted oldest history entries", "count", evicted, "capacity", h.cfg.Capacity)
	}
	h.logger.Debug("Command recorded", "kind", cmd.Kind().String(), "id", cmd.ID(), "entities", len(cmd.Entities()))
	h.notify()
	return true, nil
}

func (h *History) skipReason(cmd command.Command) string {
	if !cmd.Kind().Recorded() {
		return "not recorded"
	}
	m, ok := cmd.(*command.Modify)
	if !ok {
		return ""
	}
	if m.Empty() {
		return "empty"
	}
	if m.Kind() != core.KindTransform {
		return ""
	}
	if !m.Changed(h.cfg.PositionEpsilon, h.cfg.AngleEpsilon) {
		return "no change"
	}
	if h.repeatsTop(m) {
		return "duplicate"
	}
	return ""
}

// repeatsTop reports whether m repeats the transform on top of the undo
// stack: the identical entity set moved from the same start to the same end.
func (h *History) repeatsTop(m *command.Modify) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.undo) == 0 {
		return false
	}
	top, ok := h.undo[len(h.undo)-1].(*command.Modify)
	if !ok || top.Kind() != core.KindTransform || !core.SameHandles(top.Entities(), m.Entities()) {
		return false
	}
	for _, e := range m.Entities() {
		if !h.sameTransform(top.Before, m.Before, e) || !h.sameTransform(top.After, m.After, e) {
			return false
		}
	}
	return true
}

func (h *History) sameTransform(a, b func(core.EntityHandle) (snapshot.Snapshot, bool), e core.EntityHandle) bool {
	sa, okA := a(e)
	sb, okB := b(e)
	if !okA || !okB {
		return false
	}
	ta, okA := sa.(*snapshot.TransformSnapshot)
	tb, okB := sb.(*snapshot.TransformSnapshot)
	return okA && okB && ta.Transform().ApproxEqual(tb.Transform(), h.cfg.PositionEpsilon, h.cfg.AngleEpsilon)
}
