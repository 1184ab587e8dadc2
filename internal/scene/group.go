package scene

import (
	"fmt"

	"github.com/runtimeeditor/history/internal/snapshot"
	"github.com/runtimeeditor/history/pkg/core"
)

// Group joins live objects under a new synthetic group named name.
func (s *Scene) Group(name string, members []core.EntityHandle) (core.GroupInfo, error) {
	return s.CreateGroup(core.GroupInfo{Name: name, Members: members})
}

// GroupOf returns the live group whose members are the given handles in any order.
func (s *Scene) GroupOf(members []core.EntityHandle) (core.GroupInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.groups {
		if sameSet(g.Members, members) {
			return g.Clone(), true
		}
	}
	return core.GroupInfo{}, false
}

// CreateGroup groups info.Members. An empty ID gets a fresh one and an empty
// name defaults to "Group". The pivot is recomputed from member positions.
func (s *Scene) CreateGroup(info core.GroupInfo) (core.GroupInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(info.Members) < 2 {
		return core.GroupInfo{}, fmt.Errorf("group %q needs at least two members, got %d", info.Name, len(info.Members))
	}

	positions := make([]core.Vec3, 0, len(info.Members))
	for _, h := range info.Members {
		o, ok := s.objects[h]
		if !ok {
			return core.GroupInfo{}, fmt.Errorf("group member %s: %w", h, snapshot.ErrEntityNotFound)
		}
		for id, g := range s.groups {
			if containsHandle(g.Members, h) {
				return core.GroupInfo{}, fmt.Errorf("member %s already belongs to group %s", h, id)
			}
		}
		positions = append(positions, o.transform.Position)
	}

	g := info.Clone()
	if g.ID == "" {
		g.ID = newGroupID()
	}
	if g.Name == "" {
		g.Name = "Group"
	}
	g.Handle = core.EntityHandle("group-" + g.ID)
	g.Pivot = core.PivotOf(positions)
	s.groups[g.ID] = g
	return g.Clone(), nil
}

// DissolveGroup deletes the group entity; members stay where they are.
func (s *Scene) DissolveGroup(groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[groupID]; !ok {
		return fmt.Errorf("group %s: %w", groupID, snapshot.ErrEntityNotFound)
	}
	delete(s.groups, groupID)
	return nil
}

// GroupByID returns a live group.
func (s *Scene) GroupByID(groupID string) (core.GroupInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[groupID]
	return g.Clone(), ok
}

func containsHandle(hs []core.EntityHandle, h core.EntityHandle) bool {
	for _, x := range hs {
		if x == h {
			return true
		}
	}
	return false
}

func sameSet(a, b []core.EntityHandle) bool {
	if len(a) != len(b) {
		return false
	}
	for _, h := range b {
		if !containsHandle(a, h) {
			return false
		}
	}
	return true
}
