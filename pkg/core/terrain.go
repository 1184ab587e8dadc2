// pkg/core/terrain.go
package core

import "time"

// TreeInstance is one placed tree on a terrain tile.
type TreeInstance struct {
	Position       Vec3    `json:"position"`
	WidthScale     float32 `json:"widthScale"`
	HeightScale    float32 `json:"heightScale"`
	Rotation       float32 `json:"rotation"`
	PrototypeIndex int     `json:"prototypeIndex"`
}

// CloneTrees copies a tree list so the result never aliases the input.
func CloneTrees(trees []TreeInstance) []TreeInstance {
	if trees == nil {
		return nil
	}
	out := make([]TreeInstance, len(trees))
	copy(out, trees)
	return out
}

// GroupInfo describes a synthetic group and the members it was built from.
// Members are held by handle so the record outlives destroyed members.
type GroupInfo struct {
	ID      string         `json:"id"`
	Handle  EntityHandle   `json:"handle"`
	Name    string         `json:"name"`
	Pivot   Vec3           `json:"pivot"`
	Members []EntityHandle `json:"members"`
}

func (g GroupInfo) Clone() GroupInfo {
	g.Members = CloneHandles(g.Members)
	return g
}

// TileMeta places a terrain tile in the world.
type TileMeta struct {
	Handle  EntityHandle `json:"handle"`
	PosX    float64      `json:"posX"`
	PosZ    float64      `json:"posZ"`
	MapSize int          `json:"mapSize"`
}

// TileSave is the persisted state of one terrain tile.
type TileSave struct {
	TileMeta
	Heights Grid           `json:"heightMap"`
	Splats  Grid           `json:"splatMap"`
	Trees   []TreeInstance `json:"treeInstanceData"`
}

// ObjectSave is the persisted transform of one scene object.
type ObjectSave struct {
	Handle    EntityHandle `json:"handle"`
	Name      string       `json:"name,omitempty"`
	Transform Transform    `json:"transform"`
}

// SaveFile is a full level save handed to a storage backend.
type SaveFile struct {
	Name      string       `json:"name"`
	CreatedAt time.Time    `json:"createdAt"`
	Tiles     []TileSave   `json:"terrains"`
	Objects   []ObjectSave `json:"objects"`
}
