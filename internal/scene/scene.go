// internal/scene/scene.go
package scene

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/runtimeeditor/history/internal/snapshot"
	"github.com/runtimeeditor/history/pkg/core"
)

// ErrNotAnObject is returned when an object-only operation is given a tile handle.
var ErrNotAnObject = errors.New("handle is not a scene object")

type tile struct {
	meta    core.TileMeta
	heights core.Grid
	splats  core.Grid
	trees   []core.TreeInstance
}

type object struct {
	name      string
	transform core.Transform
}

// Scene is an in-memory editor world: terrain tiles, placed objects and groups.
// It implements snapshot.Scene and is safe for concurrent use.
type Scene struct {
	mu      sync.RWMutex
	tiles   map[core.EntityHandle]*tile
	objects map[core.EntityHandle]*object
	removed map[core.EntityHandle]*object
	groups  map[string]core.GroupInfo
}

// Verify Scene implements the history collaborator contract
var _ snapshot.Scene = (*Scene)(nil)

// New creates an empty scene.
func New() *Scene {
	return &Scene{
		tiles:   make(map[core.EntityHandle]*tile),
		objects: make(map[core.EntityHandle]*object),
		removed: make(map[core.EntityHandle]*object),
		groups:  make(map[string]core.GroupInfo),
	}
}

// AddTile creates or replaces a terrain tile.
func (s *Scene) AddTile(save core.TileSave) error {
	if err := save.Heights.Validate(); err != nil {
		return fmt.Errorf("tile %s heights: %w", save.Handle, err)
	}
	if err := save.Splats.Validate(); err != nil {
		return fmt.Errorf("tile %s splats: %w", save.Handle, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiles[save.Handle] = &tile{
		meta:    save.TileMeta,
		heights: save.Heights.Clone(),
		splats:  save.Splats.Clone(),
		trees:   core.CloneTrees(save.Trees),
	}
	return nil
}

// AddObject creates or replaces a named object.
func (s *Scene) AddObject(h core.EntityHandle, name string, t core.Transform) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.removed, h)
	s.objects[h] = &object{name: name, transform: t}
}

// TileHandles returns every tile handle in sorted order.
func (s *Scene) TileHandles() []core.EntityHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.tiles)
}

// ObjectHandles returns every live object handle in sorted order.
func (s *Scene) ObjectHandles() []core.EntityHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.objects)
}

// TileMeta returns where a tile sits in the world.
func (s *Scene) TileMeta(h core.EntityHandle) (core.TileMeta, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tiles[h]
	if !ok {
		return core.TileMeta{}, false
	}
	return t.meta, true
}

// ObjectName returns the display name of a live object.
func (s *Scene) ObjectName(h core.EntityHandle) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[h]
	if !ok {
		return "", false
	}
	return o.name, true
}

// Groups returns every live group sorted by ID.
func (s *Scene) Groups() []core.GroupInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.GroupInfo, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Reset removes every tile, object and group.
func (s *Scene) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiles = make(map[core.EntityHandle]*tile)
	s.objects = make(map[core.EntityHandle]*object)
	s.removed = make(map[core.EntityHandle]*object)
	s.groups = make(map[string]core.GroupInfo)
}

func (s *Scene) tileLocked(h core.EntityHandle) (*tile, error) {
	t, ok := s.tiles[h]
	if !ok {
		return nil, fmt.Errorf("tile %s: %w", h, snapshot.ErrEntityNotFound)
	}
	return t, nil
}

func (t *tile) grid(kind core.GridKind) *core.Grid {
	if kind == core.GridSplats {
		return &t.splats
	}
	return &t.heights
}

func (s *Scene) GridShape(h core.EntityHandle, kind core.GridKind) (core.GridShape, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.tileLocked(h)
	if err != nil {
		return core.GridShape{}, err
	}
	return t.grid(kind).Shape(), nil
}

func (s *Scene) ReadGrid(h core.EntityHandle, kind core.GridKind) (core.Grid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.tileLocked(h)
	if err != nil {
		return core.Grid{}, err
	}
	return t.grid(kind).Clone(), nil
}

func (s *Scene) WriteGrid(h core.EntityHandle, kind core.GridKind, g core.Grid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.tileLocked(h)
	if err != nil {
		return err
	}
	dst := t.grid(kind)
	if dst.Shape() != g.Shape() {
		return fmt.Errorf("tile %s %s: %w", h, kind, snapshot.ErrEntityShapeMismatch)
	}
	*dst = g.Clone()
	return nil
}

func (s *Scene) ReadPointList(h core.EntityHandle) ([]core.TreeInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.tileLocked(h)
	if err != nil {
		return nil, err
	}
	return core.CloneTrees(t.trees), nil
}

func (s *Scene) WritePointList(h core.EntityHandle, trees []core.TreeInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.tileLocked(h)
	if err != nil {
		return err
	}
	t.trees = core.CloneTrees(trees)
	return nil
}

func (s *Scene) ReadTransform(h core.EntityHandle) (core.Transform, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[h]
	if !ok {
		return core.Transform{}, fmt.Errorf("object %s: %w", h, snapshot.ErrEntityNotFound)
	}
	return o.transform, nil
}

func (s *Scene) WriteTransform(h core.EntityHandle, t core.Transform) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[h]
	if !ok {
		return fmt.Errorf("object %s: %w", h, snapshot.ErrEntityNotFound)
	}
	o.transform = t
	return nil
}

func (s *Scene) Exists(h core.EntityHandle) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.objects[h]; ok {
		return true
	}
	_, ok := s.tiles[h]
	return ok
}

func (s *Scene) RemoveEntity(h core.EntityHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tiles[h]; ok {
		return fmt.Errorf("remove tile %s: %w", h, ErrNotAnObject)
	}
	o, ok := s.objects[h]
	if !ok {
		return fmt.Errorf("object %s: %w", h, snapshot.ErrEntityNotFound)
	}
	delete(s.objects, h)
	s.removed[h] = o
	return nil
}

// RestoreEntity brings a removed object back, keeping its name.
// Unknown handles are created fresh.
func (s *Scene) RestoreEntity(h core.EntityHandle, t core.Transform) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tiles[h]; ok {
		return fmt.Errorf("restore tile %s: %w", h, ErrNotAnObject)
	}
	o, ok := s.removed[h]
	if !ok {
		o = &object{name: string(h)}
	}
	delete(s.removed, h)
	o.transform = t
	s.objects[h] = o
	return nil
}

func sortedKeys[V any](m map[core.EntityHandle]V) []core.EntityHandle {
	keys := make([]core.EntityHandle, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func newGroupID() string {
	return uuid.NewString()
}
