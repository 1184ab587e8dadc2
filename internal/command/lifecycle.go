package command

import (
	"fmt"

	"github.com/runtimeeditor/history/internal/snapshot"
	"github.com/runtimeeditor/history/pkg/core"
)

// Placement records an object appearing in the scene.
// Revert removes it again and Apply brings it back with its placed transform.
type Placement struct {
	base
	handle    core.EntityHandle
	transform core.Transform
}

// NewPlacement opens a placement command for an object that is about to be placed
// or has just been placed.
func NewPlacement(store *snapshot.Store, h core.EntityHandle) *Placement {
	return &Placement{base: newBase(store, core.KindPlacement), handle: h}
}

// Close captures where the object ended up.
func (p *Placement) Close() error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	snap, err := p.store.CaptureTransform(p.handle)
	if err != nil {
		return err
	}
	p.transform = snap.Transform()
	p.state = StateClosed
	return nil
}

func (p *Placement) Entities() []core.EntityHandle {
	return []core.EntityHandle{p.handle}
}

func (p *Placement) Revert() (Outcome, error) {
	if err := p.checkRevert(); err != nil {
		return Outcome{}, err
	}
	var out Outcome
	if err := removeEntity(p.store, &out, p.handle); err != nil {
		return out, err
	}
	p.state = StateReverted
	return out, nil
}

func (p *Placement) Apply() (Outcome, error) {
	if err := p.checkApply(); err != nil {
		return Outcome{}, err
	}
	var out Outcome
	if err := restoreEntity(p.store, &out, p.handle, p.transform); err != nil {
		return out, err
	}
	p.state = StateApplied
	return out, nil
}

func (p *Placement) Release() {
	p.store = nil
}

// Deletion records an object leaving the scene. It captures the transform on
// open, so it must be created before the object is removed.
type Deletion struct {
	base
	handle    core.EntityHandle
	transform core.Transform
}

// NewDeletion opens a deletion command and captures the object's transform.
func NewDeletion(store *snapshot.Store, h core.EntityHandle) (*Deletion, error) {
	snap, err := store.CaptureTransform(h)
	if err != nil {
		return nil, err
	}
	return &Deletion{
		base:      newBase(store, core.KindDeletion),
		handle:    h,
		transform: snap.Transform(),
	}, nil
}

// Close marks the deletion complete. The after state is the absence of the object.
func (d *Deletion) Close() error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	d.state = StateClosed
	return nil
}

func (d *Deletion) Entities() []core.EntityHandle {
	return []core.EntityHandle{d.handle}
}

func (d *Deletion) Revert() (Outcome, error) {
	if err := d.checkRevert(); err != nil {
		return Outcome{}, err
	}
	var out Outcome
	if err := restoreEntity(d.store, &out, d.handle, d.transform); err != nil {
		return out, err
	}
	d.state = StateReverted
	return out, nil
}

func (d *Deletion) Apply() (Outcome, error) {
	if err := d.checkApply(); err != nil {
		return Outcome{}, err
	}
	var out Outcome
	if err := removeEntity(d.store, &out, d.handle); err != nil {
		return out, err
	}
	d.state = StateApplied
	return out, nil
}

func (d *Deletion) Release() {
	d.store = nil
}

func removeEntity(store *snapshot.Store, out *Outcome, h core.EntityHandle) error {
	if !store.Exists(h) {
		out.skip(h, fmt.Errorf("remove %s: %w", h, snapshot.ErrEntityNotFound))
		return nil
	}
	if err := store.Scene().RemoveEntity(h); err != nil {
		return softOrHard(out, h, fmt.Errorf("remove %s: %w", h, err))
	}
	out.affect(h)
	return nil
}

func restoreEntity(store *snapshot.Store, out *Outcome, h core.EntityHandle, t core.Transform) error {
	var err error
	if store.Exists(h) {
		err = store.Scene().WriteTransform(h, t)
	} else {
		err = store.Scene().RestoreEntity(h, t)
	}
	if err != nil {
		return softOrHard(out, h, fmt.Errorf("restore %s: %w", h, err))
	}
	out.affect(h)
	return nil
}
