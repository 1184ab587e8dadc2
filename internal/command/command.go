// internal/command/command.go
package command

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/runtimeeditor/history/internal/snapshot"
	"github.com/runtimeeditor/history/pkg/core"
)

var (
	// ErrCommandNotClosed is returned by Apply and Revert on a command that is still open.
	ErrCommandNotClosed = errors.New("command not closed")

	// ErrInvalidTransition is returned when a command is asked to move to a state
	// it cannot reach from its current one.
	ErrInvalidTransition = errors.New("invalid command state transition")

	// ErrReleased is returned by commands whose references were dropped by Release.
	ErrReleased = errors.New("command released")
)

// State is the lifecycle position of a command.
type State int

const (
	StateOpen State = iota
	StateClosed
	StateApplied
	StateReverted
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateApplied:
		return "applied"
	case StateReverted:
		return "reverted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Command is one undoable gesture.
type Command interface {
	ID() string
	Kind() core.Kind
	State() State
	CreatedAt() time.Time
	// Entities lists the handles the command touches, in capture order.
	Entities() []core.EntityHandle
	// Close captures the after state. The command is immutable afterwards.
	Close() error
	// Apply writes the after state. Valid from Closed or Reverted.
	Apply() (Outcome, error)
	// Revert writes the before state. Valid from Closed or Applied.
	Revert() (Outcome, error)
	// Release drops snapshots and the store reference.
	Release()
}

// Outcome reports what an Apply or Revert did.
// Warnings hold soft per-entity failures; a hard failure is returned as the error instead.
type Outcome struct {
	Affected []core.EntityHandle
	Skipped  []core.EntityHandle
	Warnings []error
}

// Stale reports whether nothing could be written because every entity was skipped.
func (o Outcome) Stale() bool {
	return len(o.Affected) == 0 && len(o.Skipped) > 0
}

func (o *Outcome) affect(h core.EntityHandle) {
	o.Affected = append(o.Affected, h)
}

func (o *Outcome) skip(h core.EntityHandle, err error) {
	o.Skipped = append(o.Skipped, h)
	if err != nil {
		o.Warnings = append(o.Warnings, err)
	}
}

// base carries the identity and state machine shared by every variant.
type base struct {
	id      string
	kind    core.Kind
	state   State
	created time.Time
	store   *snapshot.Store
}

func newBase(store *snapshot.Store, kind core.Kind) base {
	return base{
		id:      uuid.NewString(),
		kind:    kind,
		state:   StateOpen,
		created: time.Now(),
		store:   store,
	}
}

func (b *base) ID() string           { return b.id }
func (b *base) Kind() core.Kind      { return b.kind }
func (b *base) State() State         { return b.state }
func (b *base) CreatedAt() time.Time { return b.created }

func (b *base) checkOpen() error {
	if b.store == nil {
		return ErrReleased
	}
	if b.state != StateOpen {
		return fmt.Errorf("%w: %s command %s is %s", ErrInvalidTransition, b.kind, b.id, b.state)
	}
	return nil
}

func (b *base) checkApply() error {
	if b.store == nil {
		return ErrReleased
	}
	switch b.state {
	case StateOpen:
		return fmt.Errorf("apply %s command %s: %w", b.kind, b.id, ErrCommandNotClosed)
	case StateApplied:
		return fmt.Errorf("%w: %s command %s already applied", ErrInvalidTransition, b.kind, b.id)
	}
	return nil
}

func (b *base) checkRevert() error {
	if b.store == nil {
		return ErrReleased
	}
	switch b.state {
	case StateOpen:
		return fmt.Errorf("revert %s command %s: %w", b.kind, b.id, ErrCommandNotClosed)
	case StateReverted:
		return fmt.Errorf("%w: %s command %s already reverted", ErrInvalidTransition, b.kind, b.id)
	}
	return nil
}

// softOrHard sorts a per-entity write error into the outcome or returns it.
func softOrHard(out *Outcome, h core.EntityHandle, err error) error {
	if err == nil {
		out.affect(h)
		return nil
	}
	if snapshot.IsSoft(err) {
		out.skip(h, err)
		return nil
	}
	return err
}
