package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runtimeeditor/history/internal/snapshot"
	"github.com/runtimeeditor/history/pkg/core"
)

func newTile(h core.EntityHandle, size int) core.TileSave {
	return core.TileSave{
		TileMeta: core.TileMeta{Handle: h, MapSize: size},
		Heights:  core.FilledGrid(size, size, 1, 0.5),
		Splats:   core.FilledGrid(size, size, 2, 0),
	}
}

func at(x, y, z float64) core.Transform {
	t := core.IdentityTransform()
	t.Position = core.Vec3{x, y, z}
	return t
}

func TestAddTileValidates(t *testing.T) {
	s := New()
	bad := newTile("tile-1", 4)
	bad.Heights.Data = bad.Heights.Data[:3]

	assert.Error(t, s.AddTile(bad))
	assert.Empty(t, s.TileHandles())
}

func TestReadGridIsCopy(t *testing.T) {
	s := New()
	require.NoError(t, s.AddTile(newTile("tile-1", 4)))

	g, err := s.ReadGrid("tile-1", core.GridHeights)
	require.NoError(t, err)
	g.Set(0, 0, 0, 1)

	again, err := s.ReadGrid("tile-1", core.GridHeights)
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), again.At(0, 0, 0))
}

func TestWriteGridShapeMismatch(t *testing.T) {
	s := New()
	require.NoError(t, s.AddTile(newTile("tile-1", 4)))

	err := s.WriteGrid("tile-1", core.GridSplats, core.NewGrid(4, 4, 1))
	assert.ErrorIs(t, err, snapshot.ErrEntityShapeMismatch)
}

func TestMissingEntities(t *testing.T) {
	s := New()

	_, err := s.ReadGrid("nope", core.GridHeights)
	assert.ErrorIs(t, err, snapshot.ErrEntityNotFound)

	_, err = s.ReadTransform("nope")
	assert.ErrorIs(t, err, snapshot.ErrEntityNotFound)

	assert.ErrorIs(t, s.RemoveEntity("nope"), snapshot.ErrEntityNotFound)
	assert.ErrorIs(t, s.DissolveGroup("nope"), snapshot.ErrEntityNotFound)
}

func TestRemoveAndRestoreKeepsName(t *testing.T) {
	s := New()
	s.AddObject("crate", "Wooden Crate", at(1, 0, 1))

	require.NoError(t, s.RemoveEntity("crate"))
	assert.False(t, s.Exists("crate"))

	require.NoError(t, s.RestoreEntity("crate", at(2, 0, 2)))
	name, ok := s.ObjectName("crate")
	require.True(t, ok)
	assert.Equal(t, "Wooden Crate", name)

	tr, err := s.ReadTransform("crate")
	require.NoError(t, err)
	assert.Equal(t, core.Vec3{2, 0, 2}, tr.Position)
}

func TestTilesCannotBeRemoved(t *testing.T) {
	s := New()
	require.NoError(t, s.AddTile(newTile("tile-1", 4)))

	assert.ErrorIs(t, s.RemoveEntity("tile-1"), ErrNotAnObject)
	assert.True(t, s.Exists("tile-1"))
}

func TestGroupLifecycle(t *testing.T) {
	s := New()
	s.AddObject("a", "A", at(0, 0, 0))
	s.AddObject("b", "B", at(2, 0, 0))
	s.AddObject("c", "C", at(4, 0, 3))

	g, err := s.Group("", []core.EntityHandle{"a", "b", "c"})
	require.NoError(t, err)
	assert.NotEmpty(t, g.ID)
	assert.Equal(t, "Group", g.Name)
	assert.InDelta(t, 2.0, g.Pivot.X(), 1e-9)
	assert.InDelta(t, 1.0, g.Pivot.Z(), 1e-9)

	found, ok := s.GroupOf([]core.EntityHandle{"c", "a", "b"})
	require.True(t, ok)
	assert.Equal(t, g.ID, found.ID)

	_, err = s.Group("again", []core.EntityHandle{"a", "b"})
	assert.Error(t, err, "members already grouped")

	require.NoError(t, s.DissolveGroup(g.ID))
	assert.Empty(t, s.Groups())
}

func TestGroupNeedsTwoMembers(t *testing.T) {
	s := New()
	s.AddObject("a", "A", at(0, 0, 0))

	_, err := s.Group("solo", []core.EntityHandle{"a"})
	assert.Error(t, err)
}

func TestAdjustHeightsClipsAndClamps(t *testing.T) {
	s := New()
	require.NoError(t, s.AddTile(newTile("tile-1", 4)))

	require.NoError(t, s.AdjustHeights("tile-1", Rect{X: 2, Y: 2, W: 5, H: 5}, 0.7))

	g, err := s.ReadGrid("tile-1", core.GridHeights)
	require.NoError(t, err)
	assert.Equal(t, float32(1), g.At(3, 3, 0))
	assert.Equal(t, float32(0.5), g.At(1, 1, 0))
}

func TestPaintLayer(t *testing.T) {
	s := New()
	require.NoError(t, s.AddTile(newTile("tile-1", 4)))

	require.NoError(t, s.PaintLayer("tile-1", Rect{X: 0, Y: 0, W: 1, H: 1}, 1))

	g, err := s.ReadGrid("tile-1", core.GridSplats)
	require.NoError(t, err)
	assert.Equal(t, float32(0), g.At(0, 0, 0))
	assert.Equal(t, float32(1), g.At(0, 0, 1))
	assert.Equal(t, float32(0), g.At(1, 0, 1))
}

func TestTrees(t *testing.T) {
	s := New()
	require.NoError(t, s.AddTile(newTile("tile-1", 4)))

	require.NoError(t, s.PlantTree("tile-1", core.TreeInstance{Position: core.Vec3{1, 0, 1}}))
	require.NoError(t, s.PlantTree("tile-1", core.TreeInstance{Position: core.Vec3{9, 0, 9}}))

	n, err := s.RemoveTreesNear("tile-1", core.Vec3{0, 0, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	trees, err := s.ReadPointList("tile-1")
	require.NoError(t, err)
	require.Len(t, trees, 1)
	assert.Equal(t, core.Vec3{9, 0, 9}, trees[0].Position)
}

func TestReset(t *testing.T) {
	s := New()
	require.NoError(t, s.AddTile(newTile("tile-1", 4)))
	s.AddObject("a", "A", at(0, 0, 0))

	s.Reset()

	assert.Empty(t, s.TileHandles())
	assert.Empty(t, s.ObjectHandles())
}
