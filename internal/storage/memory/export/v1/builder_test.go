package v1

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runtimeeditor/history/pkg/core"
)

func sampleSave() *core.SaveFile {
	heights := core.NewGrid(3, 2, 1)
	heights.Set(2, 1, 0, 0.75)
	splats := core.NewGrid(3, 2, 2)
	splats.Set(0, 1, 1, 1)

	rot := core.Transform{
		Position: core.Vec3{1, 2, 3},
		Rotation: mgl64.QuatRotate(mgl64.DegToRad(90), core.Vec3{0, 1, 0}),
		Scale:    core.Vec3{1, 2, 1},
	}
	return &core.SaveFile{
		Name:      "island",
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Tiles: []core.TileSave{{
			TileMeta: core.TileMeta{Handle: "tile-0-0", PosX: 0, PosZ: 512, MapSize: 512},
			Heights:  heights,
			Splats:   splats,
			Trees:    []core.TreeInstance{{Position: core.Vec3{4, 0, 5}, WidthScale: 1, HeightScale: 1.5, PrototypeIndex: 2}},
		}},
		Objects: []core.ObjectSave{{Handle: "crate", Name: "Crate", Transform: rot}},
	}
}

func TestBuildLayout(t *testing.T) {
	f, err := Build(sampleSave())
	require.NoError(t, err)

	assert.Equal(t, Version, f.Version)
	assert.Equal(t, "2024-03-01T12:00:00Z", f.CreatedAt)
	require.Len(t, f.Terrains, 1)
	tr := f.Terrains[0]
	require.Len(t, tr.HeightMap, 2)
	require.Len(t, tr.HeightMap[0], 3)
	assert.Equal(t, float32(0.75), tr.HeightMap[1][2])
	assert.Equal(t, []float32{0, 1}, tr.SplatMap[1][0])
	assert.Equal(t, 2, tr.TreeInstanceData[0].PrototypeIndex)
	assert.Equal(t, [3]float64{1, 2, 3}, f.Objects[0].Position)
}

func TestBuildRejectsMismatchedGrid(t *testing.T) {
	save := sampleSave()
	save.Tiles[0].Heights = core.Grid{Width: 4, Height: 4, Layers: 1}

	_, err := Build(save)
	assert.ErrorContains(t, err, "tile 0 (tile-0-0) heights")

	save = sampleSave()
	save.Tiles[0].Splats.Data = save.Tiles[0].Splats.Data[:3]
	_, err = Build(save)
	assert.ErrorContains(t, err, "splats")
}

func TestBuildParseRoundTrip(t *testing.T) {
	orig := sampleSave()

	built, err := Build(orig)
	require.NoError(t, err)
	data, err := json.Marshal(built)
	require.NoError(t, err)

	var f File
	require.NoError(t, json.Unmarshal(data, &f))
	got, err := Parse(f)
	require.NoError(t, err)

	assert.Equal(t, orig.Name, got.Name)
	assert.True(t, orig.CreatedAt.Equal(got.CreatedAt))
	require.Len(t, got.Tiles, 1)
	assert.Equal(t, orig.Tiles[0].TileMeta, got.Tiles[0].TileMeta)
	assert.True(t, got.Tiles[0].Heights.Equal(orig.Tiles[0].Heights))
	assert.True(t, got.Tiles[0].Splats.Equal(orig.Tiles[0].Splats))
	assert.Equal(t, orig.Tiles[0].Trees, got.Tiles[0].Trees)
	require.Len(t, got.Objects, 1)
	assert.True(t, got.Objects[0].Transform.ApproxEqual(orig.Objects[0].Transform, 1e-12, 1e-9))
	assert.Equal(t, "Crate", got.Objects[0].Name)
}

func TestParseRejectsVersion(t *testing.T) {
	_, err := Parse(File{Version: 2})
	assert.Error(t, err)
}

func TestParseRejectsRaggedRows(t *testing.T) {
	f := File{
		Version: Version,
		Terrains: []Terrain{{
			Handle:    "t",
			HeightMap: [][]float32{{0, 0}, {0}},
		}},
	}
	_, err := Parse(f)
	assert.Error(t, err)
}
