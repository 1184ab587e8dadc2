package snapshot

import (
	"errors"

	"github.com/runtimeeditor/history/pkg/core"
)

var (
	// ErrEntityNotFound is returned when a handle no longer resolves to a live entity.
	// Scene implementations should wrap or return it for stale handles.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrEntityShapeMismatch is returned when a grid snapshot no longer matches
	// the resolution or layer count of the entity it was taken from.
	ErrEntityShapeMismatch = errors.New("entity shape mismatch")
)

// GridAccessor reads and writes the height and splat grids of terrain tiles.
type GridAccessor interface {
	GridShape(h core.EntityHandle, kind core.GridKind) (core.GridShape, error)
	ReadGrid(h core.EntityHandle, kind core.GridKind) (core.Grid, error)
	WriteGrid(h core.EntityHandle, kind core.GridKind, g core.Grid) error
}

// PointListAccessor reads and writes the tree instances of terrain tiles.
type PointListAccessor interface {
	ReadPointList(h core.EntityHandle) ([]core.TreeInstance, error)
	WritePointList(h core.EntityHandle, trees []core.TreeInstance) error
}

// TransformAccessor reads and writes object transforms.
type TransformAccessor interface {
	ReadTransform(h core.EntityHandle) (core.Transform, error)
	WriteTransform(h core.EntityHandle, t core.Transform) error
}

// Lifecycle lets commands remove objects from the scene and bring them back.
// RestoreEntity must make h resolve again with the given transform.
type Lifecycle interface {
	Exists(h core.EntityHandle) bool
	RemoveEntity(h core.EntityHandle) error
	RestoreEntity(h core.EntityHandle, t core.Transform) error
}

// Grouper manages synthetic groups of objects.
type Grouper interface {
	// GroupOf returns the group whose members are exactly the given handles.
	GroupOf(members []core.EntityHandle) (core.GroupInfo, bool)
	// CreateGroup groups info.Members, reusing info.ID and info.Name when set,
	// and returns the group as created.
	CreateGroup(info core.GroupInfo) (core.GroupInfo, error)
	// DissolveGroup removes the group entity and leaves its members in place.
	DissolveGroup(groupID string) error
}

// Scene is everything the history needs from the host engine.
type Scene interface {
	GridAccessor
	PointListAccessor
	TransformAccessor
	Lifecycle
	Grouper
}
