package command

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runtimeeditor/history/internal/scene"
	"github.com/runtimeeditor/history/internal/snapshot"
	"github.com/runtimeeditor/history/pkg/core"
)

// Verify every variant implements Command
var (
	_ Command = (*Modify)(nil)
	_ Command = (*Placement)(nil)
	_ Command = (*Deletion)(nil)
	_ Command = (*Group)(nil)
	_ Command = (*Ungroup)(nil)
)

func newWorld(t *testing.T) (*scene.Scene, *snapshot.Store) {
	t.Helper()
	s := scene.New()
	require.NoError(t, s.AddTile(core.TileSave{
		TileMeta: core.TileMeta{Handle: "tile-1", MapSize: 4},
		Heights:  core.FilledGrid(4, 4, 1, 0.5),
		Splats:   core.FilledGrid(4, 4, 2, 0),
	}))
	return s, snapshot.NewStore(s, nil)
}

func at(x, y, z float64) core.Transform {
	t := core.IdentityTransform()
	t.Position = core.Vec3{x, y, z}
	return t
}

func heights(t *testing.T, s *scene.Scene) core.Grid {
	t.Helper()
	g, err := s.ReadGrid("tile-1", core.GridHeights)
	require.NoError(t, err)
	return g
}

func position(t *testing.T, s *scene.Scene, h core.EntityHandle) core.Vec3 {
	t.Helper()
	tr, err := s.ReadTransform(h)
	require.NoError(t, err)
	return tr.Position
}

func TestRaiseBrushUndoRedo(t *testing.T) {
	s, store := newWorld(t)

	cmd, err := OpenModify(store, core.KindHeights, "tile-1")
	require.NoError(t, err)
	require.NoError(t, s.AdjustHeights("tile-1", scene.Rect{X: 1, Y: 1, W: 2, H: 2}, 0.1))
	require.NoError(t, cmd.Close())
	assert.True(t, cmd.Changed(1e-3, 0.01))

	out, err := cmd.Revert()
	require.NoError(t, err)
	assert.Equal(t, []core.EntityHandle{"tile-1"}, out.Affected)
	g := heights(t, s)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			assert.Equal(t, float32(0.5), g.At(x, y, 0), "cell %d,%d", x, y)
		}
	}

	_, err = cmd.Apply()
	require.NoError(t, err)
	g = heights(t, s)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := 0.5
			if x >= 1 && x <= 2 && y >= 1 && y <= 2 {
				want = 0.6
			}
			assert.InDelta(t, want, float64(g.At(x, y, 0)), 1e-6, "cell %d,%d", x, y)
		}
	}
}

func TestStateMachine(t *testing.T) {
	_, store := newWorld(t)
	cmd, err := OpenModify(store, core.KindHeights, "tile-1")
	require.NoError(t, err)
	assert.Equal(t, StateOpen, cmd.State())

	_, err = cmd.Apply()
	assert.ErrorIs(t, err, ErrCommandNotClosed)
	_, err = cmd.Revert()
	assert.ErrorIs(t, err, ErrCommandNotClosed)

	require.NoError(t, cmd.Close())
	assert.Equal(t, StateClosed, cmd.State())
	assert.ErrorIs(t, cmd.Close(), ErrInvalidTransition)

	_, err = cmd.Touch("tile-1")
	assert.ErrorIs(t, err, ErrInvalidTransition, "closed command is immutable")

	for i := 0; i < 3; i++ {
		_, err = cmd.Revert()
		require.NoError(t, err)
		assert.Equal(t, StateReverted, cmd.State())
		_, err = cmd.Revert()
		assert.ErrorIs(t, err, ErrInvalidTransition)

		_, err = cmd.Apply()
		require.NoError(t, err)
		assert.Equal(t, StateApplied, cmd.State())
	}
}

func TestTouchCapturesOnce(t *testing.T) {
	s, store := newWorld(t)
	cmd, err := NewModify(store, core.KindHeights)
	require.NoError(t, err)
	assert.True(t, cmd.Empty())

	added, err := cmd.Touch("tile-1")
	require.NoError(t, err)
	assert.True(t, added)

	require.NoError(t, s.AdjustHeights("tile-1", scene.Rect{W: 4, H: 4}, 0.2))

	added, err = cmd.Touch("tile-1")
	require.NoError(t, err)
	assert.False(t, added, "second touch keeps the first capture")

	before, ok := cmd.Before("tile-1")
	require.True(t, ok)
	assert.Equal(t, float32(0.5), before.(*snapshot.GridSnapshot).Grid().At(0, 0, 0))
}

func TestTouchMissingTile(t *testing.T) {
	_, store := newWorld(t)
	cmd, err := NewModify(store, core.KindSplats)
	require.NoError(t, err)

	_, err = cmd.Touch("tile-9")
	assert.ErrorIs(t, err, snapshot.ErrEntityNotFound)
	assert.True(t, cmd.Empty())
}

func TestNewModifyRejectsLifecycleKinds(t *testing.T) {
	_, store := newWorld(t)
	_, err := NewModify(store, core.KindPlacement)
	assert.Error(t, err)
}

func TestTransformNoopDetected(t *testing.T) {
	s, store := newWorld(t)
	s.AddObject("a", "A", at(0, 0, 0))

	cmd, err := OpenModify(store, core.KindTransform, "a")
	require.NoError(t, err)
	require.NoError(t, s.MoveObject("a", core.Vec3{0.0001, 0, 0}))
	require.NoError(t, cmd.Close())

	assert.False(t, cmd.Changed(1e-3, 0.01))
}

func TestTransformRotationChangeDetected(t *testing.T) {
	s, store := newWorld(t)
	s.AddObject("a", "A", at(0, 0, 0))

	cmd, err := OpenModify(store, core.KindTransform, "a")
	require.NoError(t, err)
	tr := at(0, 0, 0)
	tr.Rotation = mgl64.QuatRotate(mgl64.DegToRad(1), core.Vec3{0, 1, 0})
	require.NoError(t, s.WriteTransform("a", tr))
	require.NoError(t, cmd.Close())

	assert.True(t, cmd.Changed(1e-3, 0.01))
}

func TestTreesFullListRestore(t *testing.T) {
	s, store := newWorld(t)
	require.NoError(t, s.PlantTree("tile-1", core.TreeInstance{Position: core.Vec3{1, 0, 1}}))

	cmd, err := OpenModify(store, core.KindTrees, "tile-1")
	require.NoError(t, err)
	require.NoError(t, s.PlantTree("tile-1", core.TreeInstance{Position: core.Vec3{2, 0, 2}, PrototypeIndex: 1}))
	require.NoError(t, cmd.Close())
	require.True(t, cmd.Changed(0, 0))

	_, err = cmd.Revert()
	require.NoError(t, err)
	trees, err := s.ReadPointList("tile-1")
	require.NoError(t, err)
	assert.Len(t, trees, 1)

	_, err = cmd.Apply()
	require.NoError(t, err)
	trees, err = s.ReadPointList("tile-1")
	require.NoError(t, err)
	assert.Len(t, trees, 2)
}

func TestModifySkipsDestroyedEntity(t *testing.T) {
	s, store := newWorld(t)
	s.AddObject("a", "A", at(0, 0, 0))
	s.AddObject("b", "B", at(1, 0, 0))

	cmd, err := OpenModify(store, core.KindTransform, "a", "b")
	require.NoError(t, err)
	require.NoError(t, s.MoveObject("a", core.Vec3{5, 0, 0}))
	require.NoError(t, s.MoveObject("b", core.Vec3{5, 0, 0}))
	require.NoError(t, cmd.Close())

	require.NoError(t, s.RemoveEntity("b"))
	out, err := cmd.Revert()
	require.NoError(t, err)

	assert.Equal(t, []core.EntityHandle{"a"}, out.Affected)
	assert.Equal(t, []core.EntityHandle{"b"}, out.Skipped)
	require.Len(t, out.Warnings, 1)
	assert.ErrorIs(t, out.Warnings[0], snapshot.ErrEntityNotFound)
	assert.False(t, out.Stale())
	assert.Equal(t, core.Vec3{0, 0, 0}, position(t, s, "a"))
}

func TestModifyShapeMismatchIsSoft(t *testing.T) {
	s, store := newWorld(t)
	cmd, err := OpenModify(store, core.KindHeights, "tile-1")
	require.NoError(t, err)
	require.NoError(t, cmd.Close())

	require.NoError(t, s.AddTile(core.TileSave{
		TileMeta: core.TileMeta{Handle: "tile-1", MapSize: 8},
		Heights:  core.FilledGrid(8, 8, 1, 0.2),
		Splats:   core.FilledGrid(8, 8, 2, 0),
	}))

	out, err := cmd.Revert()
	require.NoError(t, err)
	assert.True(t, out.Stale())
	assert.ErrorIs(t, out.Warnings[0], snapshot.ErrEntityShapeMismatch)
	assert.Equal(t, float32(0.2), heights(t, s).At(0, 0, 0))
}

func TestCloseDropsEntityDestroyedMidGesture(t *testing.T) {
	s, store := newWorld(t)
	s.AddObject("a", "A", at(0, 0, 0))
	s.AddObject("b", "B", at(1, 0, 0))

	cmd, err := OpenModify(store, core.KindTransform, "a", "b")
	require.NoError(t, err)
	require.NoError(t, s.RemoveEntity("b"))
	require.NoError(t, cmd.Close())

	assert.Equal(t, []core.EntityHandle{"a"}, cmd.Entities())
}

func TestRelease(t *testing.T) {
	_, store := newWorld(t)
	cmd, err := OpenModify(store, core.KindHeights, "tile-1")
	require.NoError(t, err)
	require.NoError(t, cmd.Close())

	cmd.Release()

	_, err = cmd.Revert()
	assert.ErrorIs(t, err, ErrReleased)
	_, ok := cmd.Before("tile-1")
	assert.False(t, ok)
}
