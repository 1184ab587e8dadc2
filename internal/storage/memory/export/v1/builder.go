package v1

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/runtimeeditor/history/pkg/core"
)

// Build converts a save file into the v1 layout. Tiles whose grids do not
// match their declared shape are rejected.
func Build(save *core.SaveFile) (File, error) {
	f := File{
		Version:   Version,
		Name:      save.Name,
		CreatedAt: save.CreatedAt.UTC().Format(time.RFC3339),
		Terrains:  make([]Terrain, 0, len(save.Tiles)),
		Objects:   make([]Object, 0, len(save.Objects)),
	}

	for i, tile := range save.Tiles {
		if err := tile.Heights.Validate(); err != nil {
			return File{}, fmt.Errorf("tile %d (%s) heights: %w", i, tile.Handle, err)
		}
		if err := tile.Splats.Validate(); err != nil {
			return File{}, fmt.Errorf("tile %d (%s) splats: %w", i, tile.Handle, err)
		}
		t := Terrain{
			Handle:           string(tile.Handle),
			PosX:             tile.PosX,
			PosZ:             tile.PosZ,
			MapSize:          tile.MapSize,
			HeightMap:        gridToRows(tile.Heights),
			SplatMap:         gridToLayers(tile.Splats),
			TreeInstanceData: make([]Tree, 0, len(tile.Trees)),
		}
		for _, tree := range tile.Trees {
			t.TreeInstanceData = append(t.TreeInstanceData, Tree{
				Position:       tree.Position,
				WidthScale:     tree.WidthScale,
				HeightScale:    tree.HeightScale,
				Rotation:       tree.Rotation,
				PrototypeIndex: tree.PrototypeIndex,
			})
		}
		f.Terrains = append(f.Terrains, t)
	}

	for _, obj := range save.Objects {
		r := obj.Transform.Rotation
		f.Objects = append(f.Objects, Object{
			Handle:   string(obj.Handle),
			Name:     obj.Name,
			Position: obj.Transform.Position,
			Rotation: [4]float64{r.W, r.V[0], r.V[1], r.V[2]},
			Scale:    obj.Transform.Scale,
		})
	}

	return f, nil
}

// Parse converts a v1 file back into a save file.
func Parse(f File) (*core.SaveFile, error) {
	if f.Version != Version {
		return nil, fmt.Errorf("unsupported save file version %d", f.Version)
	}

	save := &core.SaveFile{Name: f.Name}
	if f.CreatedAt != "" {
		created, err := time.Parse(time.RFC3339, f.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("invalid createdAt: %w", err)
		}
		save.CreatedAt = created
	}

	for i, t := range f.Terrains {
		heights, err := rowsToGrid(t.HeightMap)
		if err != nil {
			return nil, fmt.Errorf("terrain %d (%s) heightMap: %w", i, t.Handle, err)
		}
		splats, err := layersToGrid(t.SplatMap)
		if err != nil {
			return nil, fmt.Errorf("terrain %d (%s) splatMap: %w", i, t.Handle, err)
		}
		tile := core.TileSave{
			TileMeta: core.TileMeta{
				Handle:  core.EntityHandle(t.Handle),
				PosX:    t.PosX,
				PosZ:    t.PosZ,
				MapSize: t.MapSize,
			},
			Heights: heights,
			Splats:  splats,
		}
		for _, tree := range t.TreeInstanceData {
			tile.Trees = append(tile.Trees, core.TreeInstance{
				Position:       tree.Position,
				WidthScale:     tree.WidthScale,
				HeightScale:    tree.HeightScale,
				Rotation:       tree.Rotation,
				PrototypeIndex: tree.PrototypeIndex,
			})
		}
		save.Tiles = append(save.Tiles, tile)
	}

	for _, o := range f.Objects {
		save.Objects = append(save.Objects, core.ObjectSave{
			Handle: core.EntityHandle(o.Handle),
			Name:   o.Name,
			Transform: core.Transform{
				Position: o.Position,
				Rotation: mgl64.Quat{W: o.Rotation[0], V: mgl64.Vec3{o.Rotation[1], o.Rotation[2], o.Rotation[3]}},
				Scale:    o.Scale,
			},
		})
	}

	return save, nil
}

func gridToRows(g core.Grid) [][]float32 {
	rows := make([][]float32, g.Height)
	for y := 0; y < g.Height; y++ {
		rows[y] = make([]float32, g.Width)
		for x := 0; x < g.Width; x++ {
			rows[y][x] = g.At(x, y, 0)
		}
	}
	return rows
}

func gridToLayers(g core.Grid) [][][]float32 {
	out := make([][][]float32, g.Height)
	for y := 0; y < g.Height; y++ {
		out[y] = make([][]float32, g.Width)
		for x := 0; x < g.Width; x++ {
			cell := make([]float32, g.Layers)
			for l := 0; l < g.Layers; l++ {
				cell[l] = g.At(x, y, l)
			}
			out[y][x] = cell
		}
	}
	return out
}

func rowsToGrid(rows [][]float32) (core.Grid, error) {
	height := len(rows)
	width := 0
	if height > 0 {
		width = len(rows[0])
	}
	g := core.NewGrid(width, height, 1)
	for y, row := range rows {
		if len(row) != width {
			return core.Grid{}, fmt.Errorf("row %d has %d columns, want %d", y, len(row), width)
		}
		for x, v := range row {
			g.Set(x, y, 0, v)
		}
	}
	return g, nil
}

func layersToGrid(cells [][][]float32) (core.Grid, error) {
	height := len(cells)
	width, layers := 0, 1
	if height > 0 {
		width = len(cells[0])
		if width > 0 {
			layers = len(cells[0][0])
		}
	}
	g := core.NewGrid(width, height, layers)
	for y, row := range cells {
		if len(row) != width {
			return core.Grid{}, fmt.Errorf("row %d has %d columns, want %d", y, len(row), width)
		}
		for x, cell := range row {
			if len(cell) != g.Layers {
				return core.Grid{}, fmt.Errorf("cell %d,%d has %d layers, want %d", x, y, len(cell), g.Layers)
			}
			for l, v := range cell {
				g.Set(x, y, l, v)
			}
		}
	}
	return g, nil
}
