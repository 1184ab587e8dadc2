package snapshot

import (
	"time"

	"github.com/runtimeeditor/history/pkg/core"
)

// Snapshot is an immutable capture of one entity's state at one instant.
type Snapshot interface {
	Handle() core.EntityHandle
	Kind() core.Kind
	CapturedAt() time.Time
}

// GridSnapshot holds a full-resolution copy of a height or splat grid.
type GridSnapshot struct {
	handle core.EntityHandle
	grid   core.GridKind
	data   core.Grid
	at     time.Time
}

// NewGridSnapshot copies g into a snapshot for h.
func NewGridSnapshot(h core.EntityHandle, kind core.GridKind, g core.Grid, at time.Time) *GridSnapshot {
	return &GridSnapshot{handle: h, grid: kind, data: g.Clone(), at: at}
}

func (s *GridSnapshot) Handle() core.EntityHandle { return s.handle }
func (s *GridSnapshot) CapturedAt() time.Time     { return s.at }
func (s *GridSnapshot) GridKind() core.GridKind   { return s.grid }
func (s *GridSnapshot) Shape() core.GridShape     { return s.data.Shape() }

func (s *GridSnapshot) Kind() core.Kind {
	if s.grid == core.GridSplats {
		return core.KindSplats
	}
	return core.KindHeights
}

// Grid returns a copy of the captured grid.
func (s *GridSnapshot) Grid() core.Grid { return s.data.Clone() }

// TreeSnapshot holds a copy of a tile's tree instance list.
type TreeSnapshot struct {
	handle core.EntityHandle
	trees  []core.TreeInstance
	at     time.Time
}

func NewTreeSnapshot(h core.EntityHandle, trees []core.TreeInstance, at time.Time) *TreeSnapshot {
	return &TreeSnapshot{handle: h, trees: core.CloneTrees(trees), at: at}
}

func (s *TreeSnapshot) Handle() core.EntityHandle { return s.handle }
func (s *TreeSnapshot) Kind() core.Kind           { return core.KindTrees }
func (s *TreeSnapshot) CapturedAt() time.Time     { return s.at }
func (s *TreeSnapshot) Len() int                  { return len(s.trees) }

// Trees returns a copy of the captured list.
func (s *TreeSnapshot) Trees() []core.TreeInstance { return core.CloneTrees(s.trees) }

// TransformSnapshot holds an object's position, rotation and scale.
type TransformSnapshot struct {
	handle    core.EntityHandle
	transform core.Transform
	at        time.Time
}

func NewTransformSnapshot(h core.EntityHandle, t core.Transform, at time.Time) *TransformSnapshot {
	return &TransformSnapshot{handle: h, transform: t, at: at}
}

func (s *TransformSnapshot) Handle() core.EntityHandle { return s.handle }
func (s *TransformSnapshot) Kind() core.Kind           { return core.KindTransform }
func (s *TransformSnapshot) CapturedAt() time.Time     { return s.at }
func (s *TransformSnapshot) Transform() core.Transform { return s.transform }
