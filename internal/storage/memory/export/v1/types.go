// Package v1 contains the v1 RUNTIMEMAP save file format.
// Terrain fields keep the names used by earlier runtime editor builds.
package v1

// Version is written into every file of this format.
const Version = 1

// File is the root JSON structure for v1 format
type File struct {
	Version   int       `json:"version"`
	Name      string    `json:"name"`
	CreatedAt string    `json:"createdAt"`
	Terrains  []Terrain `json:"terrains"`
	Objects   []Object  `json:"objects"`
}

// Terrain is one tile. HeightMap is indexed [row][column] and SplatMap
// [row][column][layer].
type Terrain struct {
	Handle           string        `json:"handle"`
	PosX             float64       `json:"posX"`
	PosZ             float64       `json:"posZ"`
	MapSize          int           `json:"mapSize"`
	HeightMap        [][]float32   `json:"heightMap"`
	SplatMap         [][][]float32 `json:"splatMap"`
	TreeInstanceData []Tree        `json:"treeInstanceData"`
}

// Tree is one tree instance
type Tree struct {
	Position       [3]float64 `json:"position"`
	WidthScale     float32    `json:"widthScale"`
	HeightScale    float32    `json:"heightScale"`
	Rotation       float32    `json:"rotation"`
	PrototypeIndex int        `json:"prototypeIndex"`
}

// Object is a placed scene object. Rotation is a quaternion as [w, x, y, z].
type Object struct {
	Handle   string     `json:"handle"`
	Name     string     `json:"name,omitempty"`
	Position [3]float64 `json:"position"`
	Rotation [4]float64 `json:"rotation"`
	Scale    [3]float64 `json:"scale"`
}
