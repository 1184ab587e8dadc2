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

// Undo reverts the most recent command and moves it to the redo stack.
// An empty stack is a no-op. Any hard failure clears both stacks and is returned.
func (h *History) Undo() (Result, error) {
	return h.step(undoing)
}

// Redo re-applies the most recently undone command.
func (h *History) Redo() (Result, error) {
	return h.step(redoing)
}

func (h *History) step(dir direction) (Result, error) {
	if !h.Enabled() {
		return Result{}, ErrDisabled
	}
	if !h.busy.CompareAndSwap(false, true) {
		h.logger.Warn("Skipping nested history step", "direction", dir.String())
		return Result{}, ErrReentrant
	}
	defer h.busy.Store(false)

	var res Result
	if h.underPressure() {
		h.mu.Lock()
		n := len(h.undo)
		h.clearLocked()
		h.mu.Unlock()
		h.cleared.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", "pressure")))
		h.logger.Warn("History near capacity, clearing", "entries", n, "capacity", h.cfg.Capacity)
		res.Cleared = true
		h.notify()
		return res, nil
	}

	err := h.stepDepth(dir, 1, &res)
	h.notify()
	return res, err
}

// underPressure reports whether the undo stack is past the configured share
// of capacity. A zero ratio disables the check.
func (h *History) underPressure() bool {
	if h.cfg.PressureRatio <= 0 {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return float64(len(h.undo)) > float64(h.cfg.Capacity)*h.cfg.PressureRatio
}

func (h *History) stepDepth(dir direction, depth int, res *Result) error {
	if depth > h.cfg.MaxDepth {
		err := fmt.Errorf("%w: %d stale entries skipped in one %s", ErrRecursionDepthExceeded, depth-1, dir)
		h.failSafe("recursion depth", err)
		res.Cleared = true
		return err
	}

	cmd, ok := h.pop(dir)
	if !ok {
		return nil
	}

	var out command.Outcome
	var err error
	if dir == undoing {
		out, err = cmd.Revert()
	} else {
		out, err = cmd.Apply()
	}
	if err != nil {
		err = fmt.Errorf("%s %s command %s: %w", dir, cmd.Kind(), cmd.ID(), err)
		cmd.Release()
		h.failSafe(dir.String()+" failed", err)
		res.Cleared = true
		return err
	}

	res.Warnings = append(res.Warnings, out.Warnings...)
	if out.Stale() {
		h.logger.Warn("Skipping history entry with no surviving entities",
			"direction", dir.String(), "kind", cmd.Kind().String(), "id", cmd.ID())
		res.StaleSkipped++
		cmd.Release()
		return h.stepDepth(dir, depth+1, res)
	}

	h.push(dir, cmd)
	res.CommandID = cmd.ID()
	res.Kind = cmd.Kind()
	res.Affected = out.Affected
	res.Skipped = out.Skipped
	for _, w := range out.Warnings {
		h.logger.Warn("Partial history step", "direction", dir.String(), "id", cmd.ID(), "warning", w)
	}
	h.steps.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("direction", dir.String()),
		attribute.String("kind", cmd.Kind().String()),
	))
	return nil
}

func (h *History) pop(dir direction) (command.Command, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	stack := &h.undo
	if dir == redoing {
		stack = &h.redo
	}
	n := len(*stack)
	if n == 0 {
		return nil, false
	}
	cmd := (*stack)[n-1]
	(*stack)[n-1] = nil
	*stack = (*stack)[:n-1]
	return cmd, true
}

// push moves a stepped command onto the opposite stack.
func (h *History) push(dir direction, cmd command.Command) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if dir == undoing {
		h.redo = append(h.redo, cmd)
		return
	}
	h.undo = append(h.undo, cmd)
}

// LastTransform returns the transform h is expected to have after the most
// recent recorded command that touched it, falling back to the live transform.
func (h *History) LastTransform(handle core.EntityHandle) (core.Transform, bool) {
	h.mu.RLock()
	store := h.store
	for i := len(h.undo) - 1; i >= 0; i-- {
		c := h.undo[i]
		if !containsHandle(c.Entities(), handle) {
			continue
		}
		if m, ok := c.(*command.Modify); ok && m.Kind() == core.KindTransform {
			if snap, ok := m.After(handle); ok {
				if ts, ok := snap.(*snapshot.TransformSnapshot); ok {
					h.mu.RUnlock()
					return ts.Transform(), true
				}
			}
		}
		break
	}
	h.mu.RUnlock()

	if store == nil {
		return core.Transform{}, false
	}
	snap, err := store.CaptureTransform(handle)
	if err != nil {
		return core.Transform{}, false
	}
	return snap.Transform(), true
}

func containsHandle(hs []core.EntityHandle, h core.EntityHandle) bool {
	for _, x := range hs {
		if x == h {
			return true
		}
	}
	return false
}
