package command

import (
	"errors"
	"fmt"

	"github.com/runtimeeditor/history/internal/snapshot"
	"github.com/runtimeeditor/history/pkg/core"
)

// ErrTooFewMembers is reported when a group cannot be rebuilt because fewer
// than two of its members are still alive.
var ErrTooFewMembers = errors.New("group needs at least two live members")

// membership is the state shared by Group and Ungroup: the group as it exists
// when grouped, and each member's transform when ungrouped.
type membership struct {
	info       core.GroupInfo
	transforms map[core.EntityHandle]core.Transform
}

func (m *membership) captureMembers(store *snapshot.Store, members []core.EntityHandle) error {
	m.transforms = make(map[core.EntityHandle]core.Transform, len(members))
	for _, h := range members {
		snap, err := store.CaptureTransform(h)
		if errors.Is(err, snapshot.ErrEntityNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		m.transforms[h] = snap.Transform()
	}
	return nil
}

// dissolve removes the group and puts the live members back where they were.
// Missing members are skipped.
func (m *membership) dissolve(store *snapshot.Store) (Outcome, error) {
	var out Outcome
	if err := store.Scene().DissolveGroup(m.info.ID); err != nil {
		if !snapshot.IsSoft(err) {
			return out, fmt.Errorf("dissolve group %s: %w", m.info.ID, err)
		}
		out.Warnings = append(out.Warnings, fmt.Errorf("dissolve group %s: %w", m.info.ID, err))
	}
	for _, h := range m.info.Members {
		if !store.Exists(h) {
			out.skip(h, fmt.Errorf("ungroup member %s: %w", h, snapshot.ErrEntityNotFound))
			continue
		}
		t, ok := m.transforms[h]
		if !ok {
			out.affect(h)
			continue
		}
		if err := softOrHard(&out, h, store.Scene().WriteTransform(h, t)); err != nil {
			return out, err
		}
	}
	return out, nil
}

// regroup rebuilds the group from whichever members are still alive.
func (m *membership) regroup(store *snapshot.Store) (Outcome, error) {
	var out Outcome
	var live []core.EntityHandle
	for _, h := range m.info.Members {
		if store.Exists(h) {
			live = append(live, h)
			continue
		}
		out.skip(h, fmt.Errorf("regroup member %s: %w", h, snapshot.ErrEntityNotFound))
	}
	if len(live) < 2 {
		for _, h := range live {
			out.skip(h, nil)
		}
		out.Warnings = append(out.Warnings, fmt.Errorf("regroup %s: %w", m.info.ID, ErrTooFewMembers))
		return out, nil
	}

	positions := make([]core.Vec3, 0, len(live))
	for _, h := range live {
		if t, err := store.Scene().ReadTransform(h); err == nil {
			positions = append(positions, t.Position)
		}
	}
	want := m.info.Clone()
	want.Members = live
	want.Pivot = core.PivotOf(positions)

	created, err := store.Scene().CreateGroup(want)
	if err != nil {
		return out, fmt.Errorf("regroup %s: %w", m.info.ID, err)
	}
	m.info = created.Clone()
	out.Affected = append(out.Affected, live...)
	return out, nil
}

// Group records objects being joined under a synthetic group.
type Group struct {
	base
	membership
	members []core.EntityHandle
}

// NewGroup opens a group command over members and captures their transforms.
func NewGroup(store *snapshot.Store, members []core.EntityHandle) (*Group, error) {
	g := &Group{
		base:    newBase(store, core.KindGroup),
		members: core.CloneHandles(members),
	}
	if err := g.captureMembers(store, members); err != nil {
		return nil, err
	}
	return g, nil
}

// Close looks up the group the host created for the members.
func (g *Group) Close() error {
	if err := g.checkOpen(); err != nil {
		return err
	}
	info, ok := g.store.Scene().GroupOf(g.members)
	if !ok {
		return fmt.Errorf("close group: no group holds %v: %w", g.members, snapshot.ErrEntityNotFound)
	}
	g.info = info.Clone()
	g.state = StateClosed
	return nil
}

// Info returns the group as last created.
func (g *Group) Info() core.GroupInfo {
	return g.info.Clone()
}

func (g *Group) Entities() []core.EntityHandle {
	return core.CloneHandles(g.members)
}

func (g *Group) Revert() (Outcome, error) {
	if err := g.checkRevert(); err != nil {
		return Outcome{}, err
	}
	out, err := g.dissolve(g.store)
	if err != nil {
		return out, err
	}
	g.state = StateReverted
	return out, nil
}

func (g *Group) Apply() (Outcome, error) {
	if err := g.checkApply(); err != nil {
		return Outcome{}, err
	}
	out, err := g.regroup(g.store)
	if err != nil {
		return out, err
	}
	g.state = StateApplied
	return out, nil
}

func (g *Group) Release() {
	g.store = nil
	g.transforms = nil
}

// Ungroup records a group being dissolved. It carries the pivot, name and
// member list needed to rebuild the group.
type Ungroup struct {
	base
	membership
}

// NewUngroup opens an ungroup command for an existing group.
func NewUngroup(store *snapshot.Store, info core.GroupInfo) (*Ungroup, error) {
	u := &Ungroup{base: newBase(store, core.KindUngroup)}
	u.info = info.Clone()
	return u, nil
}

// Close captures the member transforms after the group was dissolved.
func (u *Ungroup) Close() error {
	if err := u.checkOpen(); err != nil {
		return err
	}
	if err := u.captureMembers(u.store, u.info.Members); err != nil {
		return err
	}
	u.state = StateClosed
	return nil
}

func (u *Ungroup) Info() core.GroupInfo {
	return u.info.Clone()
}

func (u *Ungroup) Entities() []core.EntityHandle {
	return core.CloneHandles(u.info.Members)
}

func (u *Ungroup) Revert() (Outcome, error) {
	if err := u.checkRevert(); err != nil {
		return Outcome{}, err
	}
	out, err := u.regroup(u.store)
	if err != nil {
		return out, err
	}
	u.state = StateReverted
	return out, nil
}

func (u *Ungroup) Apply() (Outcome, error) {
	if err := u.checkApply(); err != nil {
		return Outcome{}, err
	}
	out, err := u.dissolve(u.store)
	if err != nil {
		return out, err
	}
	u.state = StateApplied
	return out, nil
}

func (u *Ungroup) Release() {
	u.store = nil
	u.transforms = nil
}
