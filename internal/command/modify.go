package command

import (
	"errors"
	"fmt"

	"github.com/runtimeeditor/history/internal/snapshot"
	"github.com/runtimeeditor/history/pkg/core"
)

// Modify records a before/after pair of state snapshots for a set of entities.
// It backs the heights, splats, trees and transform kinds.
type Modify struct {
	base
	entities []core.EntityHandle
	before   map[core.EntityHandle]snapshot.Snapshot
	after    map[core.EntityHandle]snapshot.Snapshot
}

// NewModify opens an empty command. Entities join it through Touch.
func NewModify(store *snapshot.Store, kind core.Kind) (*Modify, error) {
	switch kind {
	case core.KindHeights, core.KindSplats, core.KindTrees, core.KindTransform:
	default:
		return nil, fmt.Errorf("modify: unsupported kind %s", kind)
	}
	return &Modify{
		base:   newBase(store, kind),
		before: make(map[core.EntityHandle]snapshot.Snapshot),
		after:  make(map[core.EntityHandle]snapshot.Snapshot),
	}, nil
}

// OpenModify opens a command and captures the before state of every handle.
func OpenModify(store *snapshot.Store, kind core.Kind, handles ...core.EntityHandle) (*Modify, error) {
	m, err := NewModify(store, kind)
	if err != nil {
		return nil, err
	}
	for _, h := range handles {
		if _, err := m.Touch(h); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Touch captures the before state of h the first time it is seen.
// It reports whether h was newly added.
func (m *Modify) Touch(h core.EntityHandle) (bool, error) {
	if err := m.checkOpen(); err != nil {
		return false, err
	}
	if _, ok := m.before[h]; ok {
		return false, nil
	}
	snap, err := m.store.Capture(h, m.kind)
	if err != nil {
		return false, err
	}
	m.before[h] = snap
	m.entities = append(m.entities, h)
	return true, nil
}

// Close captures the after state of every touched entity. Entities destroyed
// mid-gesture are dropped from the command.
func (m *Modify) Close() error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	kept := m.entities[:0]
	for _, h := range m.entities {
		snap, err := m.store.Capture(h, m.kind)
		if errors.Is(err, snapshot.ErrEntityNotFound) {
			delete(m.before, h)
			continue
		}
		if err != nil {
			return err
		}
		m.after[h] = snap
		kept = append(kept, h)
	}
	m.entities = kept
	m.state = StateClosed
	return nil
}

func (m *Modify) Entities() []core.EntityHandle {
	return core.CloneHandles(m.entities)
}

// Empty reports whether no entity was touched.
func (m *Modify) Empty() bool {
	return len(m.entities) == 0
}

// Before returns the before snapshot of h.
func (m *Modify) Before(h core.EntityHandle) (snapshot.Snapshot, bool) {
	s, ok := m.before[h]
	return s, ok
}

// After returns the after snapshot of h. Only set once closed.
func (m *Modify) After(h core.EntityHandle) (snapshot.Snapshot, bool) {
	s, ok := m.after[h]
	return s, ok
}

// Changed reports whether any entity differs between before and after.
// Transforms compare within posEps per axis and angleEps degrees; grids and
// point lists compare exactly.
func (m *Modify) Changed(posEps, angleEps float64) bool {
	for _, h := range m.entities {
		if !snapshotsEqual(m.before[h], m.after[h], posEps, angleEps) {
			return true
		}
	}
	return false
}

func (m *Modify) Apply() (Outcome, error) {
	if err := m.checkApply(); err != nil {
		return Outcome{}, err
	}
	out, err := m.writeAll(m.after)
	if err != nil {
		return out, err
	}
	m.state = StateApplied
	return out, nil
}

func (m *Modify) Revert() (Outcome, error) {
	if err := m.checkRevert(); err != nil {
		return Outcome{}, err
	}
	out, err := m.writeAll(m.before)
	if err != nil {
		return out, err
	}
	m.state = StateReverted
	return out, nil
}

func (m *Modify) writeAll(snaps map[core.EntityHandle]snapshot.Snapshot) (Outcome, error) {
	var out Outcome
	for _, h := range m.entities {
		if err := softOrHard(&out, h, m.store.Restore(snaps[h])); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (m *Modify) Release() {
	m.store = nil
	m.before = nil
	m.after = nil
}

func snapshotsEqual(a, b snapshot.Snapshot, posEps, angleEps float64) bool {
	switch av := a.(type) {
	case *snapshot.TransformSnapshot:
		bv, ok := b.(*snapshot.TransformSnapshot)
		return ok && av.Transform().ApproxEqual(bv.Transform(), posEps, angleEps)
	case *snapshot.GridSnapshot:
		bv, ok := b.(*snapshot.GridSnapshot)
		return ok && av.Grid().Equal(bv.Grid())
	case *snapshot.TreeSnapshot:
		bv, ok := b.(*snapshot.TreeSnapshot)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		at, bt := av.Trees(), bv.Trees()
		for i := range at {
			if at[i] != bt[i] {
				return false
			}
		}
		return true
	}
	return false
}
