package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/runtimeeditor/history/internal/command"
	"github.com/runtimeeditor/history/internal/config"
	"github.com/runtimeeditor/history/internal/snapshot"
	"github.com/runtimeeditor/history/pkg/core"
)

var (
	// ErrRecursionDepthExceeded is returned when a single undo or redo had to
	// walk past more stale entries than the depth bound allows. History is
	// cleared when it happens.
	ErrRecursionDepthExceeded = errors.New("history recursion depth exceeded")

	// ErrReentrant is returned when a mutating call arrives while another
	// undo, redo or record is still in flight. The call is dropped.
	ErrReentrant = errors.New("history operation already in progress")

	// ErrDisabled is returned by Undo and Redo while history is disabled.
	ErrDisabled = errors.New("history disabled")
)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// State is what an editor needs to enable or disable its undo/redo controls.
type State struct {
	Enabled bool `json:"enabled"`
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
	UndoLen int  `json:"undoLen"`
	RedoLen int  `json:"redoLen"`
}

// Observer is notified with the new State after every change.
type Observer func(State)

// Result describes one Undo or Redo call.
type Result struct {
	CommandID string
	Kind      core.Kind
	Affected  []core.EntityHandle
	Skipped   []core.EntityHandle
	Warnings  []error
	// StaleSkipped counts entries dropped because none of their entities survived.
	StaleSkipped int
	// Cleared is set when the call emptied both stacks.
	Cleared bool
}

// Empty reports whether no command was undone or redone.
func (r Result) Empty() bool {
	return r.CommandID == ""
}

type direction int

const (
	undoing direction = iota
	redoing
)

func (d direction) String() string {
	if d == redoing {
		return "redo"
	}
	return "undo"
}

// History is a bounded pair of undo and redo stacks.
//
// Calls are expected from one goroutine. Mutating calls made while another is
// in flight, typically from a scene side effect of a restore, are rejected
// with ErrReentrant instead of being queued.
type History struct {
	cfg    config.HistoryConfig
	store  *snapshot.Store
	logger Logger

	busy atomic.Bool

	mu        sync.RWMutex
	undo      []command.Command
	redo      []command.Command
	observers []Observer
	closed    bool

	recorded  metric.Int64Counter
	skipped   metric.Int64Counter
	steps     metric.Int64Counter
	cleared   metric.Int64Counter
	stackSize metric.Int64ObservableGauge
}

// New creates a history over store. A nil logger uses slog.Default().
// Uses the global OTel meter for metrics (no-op if not configured).
func New(store *snapshot.Store, cfg config.HistoryConfig, logger Logger) (*History, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Capacity < 1 {
		return nil, fmt.Errorf("history capacity must be positive, got %d", cfg.Capacity)
	}
	if cfg.MaxDepth < 1 {
		cfg.MaxDepth = 1
	}

	h := &History{
		cfg:    cfg,
		store:  store,
		logger: logger,
	}
	if err := h.initMetrics(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *History) initMetrics() error {
	m := meter()

	var err error
	h.recorded, err = m.Int64Counter(
		"history.commands.recorded",
		metric.WithDescription("Commands pushed onto the undo stack"),
	)
	if err != nil {
		return fmt.Errorf("creating recorded counter: %w", err)
	}

	h.skipped, err = m.Int64Counter(
		"history.commands.skipped",
		metric.WithDescription("Commands not recorded (non-recorded kind, no-op or duplicate)"),
	)
	if err != nil {
		return fmt.Errorf("creating skipped counter: %w", err)
	}

	h.steps, err = m.Int64Counter(
		"history.steps",
		metric.WithDescription("Undo and redo steps performed"),
	)
	if err != nil {
		return fmt.Errorf("creating steps counter: %w", err)
	}

	h.cleared, err = m.Int64Counter(
		"history.cleared",
		metric.WithDescription("Full history clears"),
	)
	if err != nil {
		return fmt.Errorf("creating cleared counter: %w", err)
	}

	h.stackSize, err = m.Int64ObservableGauge(
		"history.stack.size",
		metric.WithDescription("Current number of entries per stack"),
	)
	if err != nil {
		return fmt.Errorf("creating stack size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			h.mu.RLock()
			defer h.mu.RUnlock()
			o.ObserveInt64(h.stackSize, int64(len(h.undo)),
				metric.WithAttributes(attribute.String("stack", "undo")))
			o.ObserveInt64(h.stackSize, int64(len(h.redo)),
				metric.WithAttributes(attribute.String("stack", "redo")))
			return nil
		},
		h.stackSize,
	)
	if err != nil {
		return fmt.Errorf("registering stack callback: %w", err)
	}
	return nil
}

// Subscribe registers an observer for state changes.
func (h *History) Subscribe(o Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observers = append(h.observers, o)
}

// State returns the current stack occupancy.
func (h *History) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stateLocked()
}

func (h *History) stateLocked() State {
	return State{
		Enabled: h.cfg.Enabled && !h.closed,
		CanUndo: len(h.undo) > 0,
		CanRedo: len(h.redo) > 0,
		UndoLen: len(h.undo),
		RedoLen: len(h.redo),
	}
}

func (h *History) CanUndo() bool { return h.State().CanUndo }
func (h *History) CanRedo() bool { return h.State().CanRedo }

// Enabled reports whether Record, Undo and Redo are active.
func (h *History) Enabled() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg.Enabled && !h.closed
}

// SetEnabled turns recording and stepping on or off. Disabling clears both stacks.
func (h *History) SetEnabled(enabled bool) {
	h.mu.Lock()
	h.cfg.Enabled = enabled
	if !enabled {
		h.clearLocked()
	}
	h.mu.Unlock()
	h.notify()
}

// UndoIDs returns the IDs on the undo stack, oldest first.
func (h *History) UndoIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return commandIDs(h.undo)
}

// RedoIDs returns the IDs on the redo stack, oldest first.
func (h *History) RedoIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return commandIDs(h.redo)
}

func commandIDs(stack []command.Command) []string {
	ids := make([]string, len(stack))
	for i, c := range stack {
		ids[i] = c.ID()
	}
	return ids
}

// Clear empties both stacks and releases every command.
func (h *History) Clear(reason string) error {
	if !h.busy.CompareAndSwap(false, true) {
		h.logger.Warn("Skipping clear while history operation in flight", "reason", reason)
		return ErrReentrant
	}
	defer h.busy.Store(false)

	h.mu.Lock()
	h.clearLocked()
	h.mu.Unlock()

	h.cleared.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
	h.logger.Info("History cleared", "reason", reason)
	h.notify()
	return nil
}

func (h *History) clearLocked() {
	for _, c := range h.undo {
		c.Release()
	}
	for _, c := range h.redo {
		c.Release()
	}
	h.undo = nil
	h.redo = nil
}

// failSafe clears everything after an unrecoverable condition. Caller holds busy.
func (h *History) failSafe(reason string, err error) {
	h.mu.Lock()
	h.clearLocked()
	h.mu.Unlock()
	h.cleared.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
	h.logger.Error("History cleared", "reason", reason, "error", err)
}

// Close drops every command reference and disables the history for good.
func (h *History) Close() {
	h.mu.Lock()
	h.clearLocked()
	h.closed = true
	h.observers = nil
	h.store = nil
	h.mu.Unlock()
}

func (h *History) notify() {
	h.mu.RLock()
	state := h.stateLocked()
	observers := make([]Observer, len(h.observers))
	copy(observers, h.observers)
	h.mu.RUnlock()

	for _, o := range observers {
		o(state)
	}
}
