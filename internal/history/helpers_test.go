package history

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/runtimeeditor/history/internal/command"
	"github.com/runtimeeditor/history/internal/config"
	"github.com/runtimeeditor/history/internal/scene"
	"github.com/runtimeeditor/history/internal/snapshot"
	"github.com/runtimeeditor/history/pkg/core"
)

func testConfig() config.HistoryConfig {
	return config.HistoryConfig{
		Enabled:         true,
		Capacity:        100,
		MaxDepth:        5,
		PressureRatio:   0.9,
		PositionEpsilon: 0.001,
		AngleEpsilon:    0.01,
	}
}

type fixture struct {
	scene *scene.Scene
	store *snapshot.Store
	hist  *History
}

func newFixture(t *testing.T, cfg config.HistoryConfig) *fixture {
	t.Helper()
	s := scene.New()
	require.NoError(t, s.AddTile(core.TileSave{
		TileMeta: core.TileMeta{Handle: "tile-1", MapSize: 4},
		Heights:  core.FilledGrid(4, 4, 1, 0.5),
		Splats:   core.FilledGrid(4, 4, 2, 0),
	}))
	store := snapshot.NewStore(s, nil)
	h, err := New(store, cfg, nil)
	require.NoError(t, err)
	return &fixture{scene: s, store: store, hist: h}
}

func at(x, y, z float64) core.Transform {
	t := core.IdentityTransform()
	t.Position = core.Vec3{x, y, z}
	return t
}

// move records a transform command that translates the given objects by offset.
func (f *fixture) move(t *testing.T, offset core.Vec3, handles ...core.EntityHandle) command.Command {
	t.Helper()
	cmd, err := command.OpenModify(f.store, core.KindTransform, handles...)
	require.NoError(t, err)
	for _, h := range handles {
		require.NoError(t, f.scene.MoveObject(h, offset))
	}
	require.NoError(t, cmd.Close())
	kept, err := f.hist.Record(cmd)
	require.NoError(t, err)
	require.True(t, kept)
	return cmd
}

func (f *fixture) position(t *testing.T, h core.EntityHandle) core.Vec3 {
	t.Helper()
	tr, err := f.scene.ReadTransform(h)
	require.NoError(t, err)
	return tr.Position
}

// scripted is a closed command whose Apply and Revert run caller-supplied hooks.
type scripted struct {
	id       string
	kind     core.Kind
	state    command.State
	onRevert func() error
	onApply  func() error
	released bool
}

func newScripted(kind core.Kind) *scripted {
	return &scripted{id: "scripted-" + kind.String(), kind: kind, state: command.StateClosed}
}

func (c *scripted) ID() string                    { return c.id }
func (c *scripted) Kind() core.Kind               { return c.kind }
func (c *scripted) State() command.State          { return c.state }
func (c *scripted) CreatedAt() time.Time          { return time.Time{} }
func (c *scripted) Entities() []core.EntityHandle { return []core.EntityHandle{"x"} }
func (c *scripted) Close() error                  { return errors.New("already closed") }
func (c *scripted) Release()                      { c.released = true }

func (c *scripted) Revert() (command.Outcome, error) {
	if c.onRevert != nil {
		if err := c.onRevert(); err != nil {
			return command.Outcome{}, err
		}
	}
	c.state = command.StateReverted
	return command.Outcome{Affected: []core.EntityHandle{"x"}}, nil
}

func (c *scripted) Apply() (command.Outcome, error) {
	if c.onApply != nil {
		if err := c.onApply(); err != nil {
			return command.Outcome{}, err
		}
	}
	c.state = command.StateApplied
	return command.Outcome{Affected: []core.EntityHandle{"x"}}, nil
}
