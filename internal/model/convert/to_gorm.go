// Package convert maps save files to and from their gorm rows.
package convert

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"

	"github.com/runtimeeditor/history/internal/model"
	"github.com/runtimeeditor/history/internal/snapshot"
	"github.com/runtimeeditor/history/pkg/core"
)

// FormatVersion is stored in SaveMap.Metadata.
const FormatVersion = 1

type metadata struct {
	Format  int `json:"format"`
	Tiles   int `json:"tiles"`
	Objects int `json:"objects"`
}

// vec3ToPoint converts a position to a geom.Point with Z
func vec3ToPoint(v core.Vec3) geom.Point {
	coords := geom.Coordinates{XY: geom.XY{X: v[0], Y: v[1]}, Z: v[2], Type: geom.DimXYZ}
	return geom.NewPoint(coords)
}

// originToPoint converts a tile corner on the XZ plane to a 2D geom.Point
func originToPoint(x, z float64) geom.Point {
	return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: x, Y: z}})
}

// ToGorm converts a save file into a SaveMap row with its tiles and objects.
func ToGorm(save *core.SaveFile) (*model.SaveMap, error) {
	meta, err := json.Marshal(metadata{
		Format:  FormatVersion,
		Tiles:   len(save.Tiles),
		Objects: len(save.Objects),
	})
	if err != nil {
		return nil, err
	}

	row := &model.SaveMap{
		Name:     save.Name,
		SavedAt:  save.CreatedAt,
		Metadata: datatypes.JSON(meta),
		Tiles:    make([]model.SaveTile, 0, len(save.Tiles)),
		Objects:  make([]model.SaveObject, 0, len(save.Objects)),
	}

	for i, tile := range save.Tiles {
		t, err := tileToGorm(i, tile, save.CreatedAt)
		if err != nil {
			return nil, err
		}
		row.Tiles = append(row.Tiles, t)
	}

	for i, obj := range save.Objects {
		o, err := objectToGorm(i, obj)
		if err != nil {
			return nil, err
		}
		row.Objects = append(row.Objects, o)
	}

	return row, nil
}

func tileToGorm(i int, tile core.TileSave, at time.Time) (model.SaveTile, error) {
	heights, err := snapshot.Encode(snapshot.NewGridSnapshot(tile.Handle, core.GridHeights, tile.Heights, at))
	if err != nil {
		return model.SaveTile{}, fmt.Errorf("tile %s heights: %w", tile.Handle, err)
	}
	splats, err := snapshot.Encode(snapshot.NewGridSnapshot(tile.Handle, core.GridSplats, tile.Splats, at))
	if err != nil {
		return model.SaveTile{}, fmt.Errorf("tile %s splats: %w", tile.Handle, err)
	}
	trees := tile.Trees
	if trees == nil {
		trees = []core.TreeInstance{}
	}
	treesJSON, err := json.Marshal(trees)
	if err != nil {
		return model.SaveTile{}, fmt.Errorf("tile %s trees: %w", tile.Handle, err)
	}

	return model.SaveTile{
		Seq:      i,
		Handle:   string(tile.Handle),
		Origin:   originToPoint(tile.PosX, tile.PosZ),
		MapSize:  tile.MapSize,
		Heights:  heights,
		Splats:   splats,
		Trees:    datatypes.JSON(treesJSON),
	}, nil
}

func objectToGorm(i int, obj core.ObjectSave) (model.SaveObject, error) {
	r := obj.Transform.Rotation
	rotation, err := json.Marshal([4]float64{r.W, r.V[0], r.V[1], r.V[2]})
	if err != nil {
		return model.SaveObject{}, err
	}
	scale, err := json.Marshal(obj.Transform.Scale)
	if err != nil {
		return model.SaveObject{}, err
	}

	return model.SaveObject{
		Seq:      i,
		Handle:   string(obj.Handle),
		Name:     obj.Name,
		Location: vec3ToPoint(obj.Transform.Position),
		Rotation: datatypes.JSON(rotation),
		Scale:    datatypes.JSON(scale),
	}, nil
}

// FromGorm rebuilds a save file from its rows. Tiles and objects are
// expected in their saved order.
func FromGorm(row *model.SaveMap) (*core.SaveFile, error) {
	save := &core.SaveFile{
		Name:      row.Name,
		CreatedAt: row.SavedAt,
	}

	for _, t := range row.Tiles {
		tile, err := tileFromGorm(t)
		if err != nil {
			return nil, err
		}
		save.Tiles = append(save.Tiles, tile)
	}

	for _, o := range row.Objects {
		obj, err := objectFromGorm(o)
		if err != nil {
			return nil, err
		}
		save.Objects = append(save.Objects, obj)
	}

	return save, nil
}

func tileFromGorm(t model.SaveTile) (core.TileSave, error) {
	tile := core.TileSave{
		TileMeta: core.TileMeta{
			Handle:  core.EntityHandle(t.Handle),
			MapSize: t.MapSize,
		},
	}
	if c, ok := t.Origin.Coordinates(); ok {
		tile.PosX, tile.PosZ = c.XY.X, c.XY.Y
	}

	var err error
	if tile.Heights, err = decodeGrid(t.Heights); err != nil {
		return tile, fmt.Errorf("tile %s heights: %w", t.Handle, err)
	}
	if tile.Splats, err = decodeGrid(t.Splats); err != nil {
		return tile, fmt.Errorf("tile %s splats: %w", t.Handle, err)
	}
	if len(t.Trees) > 0 {
		if err := json.Unmarshal(t.Trees, &tile.Trees); err != nil {
			return tile, fmt.Errorf("tile %s trees: %w", t.Handle, err)
		}
	}
	return tile, nil
}

func decodeGrid(data []byte) (core.Grid, error) {
	snap, err := snapshot.Decode(data)
	if err != nil {
		return core.Grid{}, err
	}
	gs, ok := snap.(*snapshot.GridSnapshot)
	if !ok {
		return core.Grid{}, fmt.Errorf("blob holds %s, not a grid", snap.Kind())
	}
	return gs.Grid(), nil
}

func objectFromGorm(o model.SaveObject) (core.ObjectSave, error) {
	obj := core.ObjectSave{
		Handle:    core.EntityHandle(o.Handle),
		Name:      o.Name,
		Transform: core.IdentityTransform(),
	}
	if c, ok := o.Location.Coordinates(); ok {
		obj.Transform.Position = core.Vec3{c.XY.X, c.XY.Y, c.Z}
	}

	var rotation [4]float64
	if len(o.Rotation) > 0 {
		if err := json.Unmarshal(o.Rotation, &rotation); err != nil {
			return obj, fmt.Errorf("object %s rotation: %w", o.Handle, err)
		}
		obj.Transform.Rotation = mgl64.Quat{W: rotation[0], V: mgl64.Vec3{rotation[1], rotation[2], rotation[3]}}
	}
	if len(o.Scale) > 0 {
		if err := json.Unmarshal(o.Scale, &obj.Transform.Scale); err != nil {
			return obj, fmt.Errorf("object %s scale: %w", o.Handle, err)
		}
	}
	return obj, nil
}
