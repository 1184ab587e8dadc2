package snapshot

import (
	"fmt"

	"github.com/runtimeeditor/history/pkg/core"
)

// fakeScene is a minimal Scene used by this package's tests.
type fakeScene struct {
	heights    map[core.EntityHandle]core.Grid
	trees      map[core.EntityHandle][]core.TreeInstance
	transforms map[core.EntityHandle]core.Transform
	writes     int
}

func newFakeScene() *fakeScene {
	return &fakeScene{
		heights:    make(map[core.EntityHandle]core.Grid),
		trees:      make(map[core.EntityHandle][]core.TreeInstance),
		transforms: make(map[core.EntityHandle]core.Transform),
	}
}

func (f *fakeScene) GridShape(h core.EntityHandle, _ core.GridKind) (core.GridShape, error) {
	g, ok := f.heights[h]
	if !ok {
		return core.GridShape{}, fmt.Errorf("tile %s: %w", h, ErrEntityNotFound)
	}
	return g.Shape(), nil
}

func (f *fakeScene) ReadGrid(h core.EntityHandle, _ core.GridKind) (core.Grid, error) {
	g, ok := f.heights[h]
	if !ok {
		return core.Grid{}, fmt.Errorf("tile %s: %w", h, ErrEntityNotFound)
	}
	return g, nil
}

func (f *fakeScene) WriteGrid(h core.EntityHandle, _ core.GridKind, g core.Grid) error {
	f.writes++
	f.heights[h] = g
	return nil
}

func (f *fakeScene) ReadPointList(h core.EntityHandle) ([]core.TreeInstance, error) {
	trees, ok := f.trees[h]
	if !ok {
		return nil, ErrEntityNotFound
	}
	return trees, nil
}

func (f *fakeScene) WritePointList(h core.EntityHandle, trees []core.TreeInstance) error {
	if _, ok := f.trees[h]; !ok {
		return ErrEntityNotFound
	}
	f.writes++
	f.trees[h] = trees
	return nil
}

func (f *fakeScene) ReadTransform(h core.EntityHandle) (core.Transform, error) {
	t, ok := f.transforms[h]
	if !ok {
		return core.Transform{}, ErrEntityNotFound
	}
	return t, nil
}

func (f *fakeScene) WriteTransform(h core.EntityHandle, t core.Transform) error {
	if _, ok := f.transforms[h]; !ok {
		return ErrEntityNotFound
	}
	f.writes++
	f.transforms[h] = t
	return nil
}

func (f *fakeScene) Exists(h core.EntityHandle) bool {
	_, ok := f.transforms[h]
	return ok
}

func (f *fakeScene) RemoveEntity(h core.EntityHandle) error {
	delete(f.transforms, h)
	return nil
}

func (f *fakeScene) RestoreEntity(h core.EntityHandle, t core.Transform) error {
	f.transforms[h] = t
	return nil
}

func (f *fakeScene) GroupOf([]core.EntityHandle) (core.GroupInfo, bool) {
	return core.GroupInfo{}, false
}

func (f *fakeScene) CreateGroup(info core.GroupInfo) (core.GroupInfo, error) {
	return info, nil
}

func (f *fakeScene) DissolveGroup(string) error {
	return nil
}
