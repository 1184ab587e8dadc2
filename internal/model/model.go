package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&SaveMap{},
	&SaveTile{},
	&SaveObject{},
}

// SaveMap is one named level save
type SaveMap struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Name      string    `json:"name" gorm:"size:255;uniqueIndex"`
	SavedAt   time.Time `json:"savedAt"`
	// Metadata carries the format version and entity counts
	Metadata datatypes.JSON `json:"metadata"`
	Tiles    []SaveTile     `json:"tiles" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignKey:SaveMapID"`
	Objects  []SaveObject   `json:"objects" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignKey:SaveMapID"`
}

func (*SaveMap) TableName() string {
	return "save_maps"
}

// SaveTile is one terrain tile of a save. Heights and Splats hold gzip
// snapshot blobs, Origin is the tile corner on the XZ plane.
type SaveTile struct {
	ID        uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	SaveMapID uint           `json:"saveMapId" gorm:"index:idx_savetile_save_map_id"`
	Seq       int            `json:"seq"`
	Handle    string         `json:"handle" gorm:"size:255"`
	Origin    geom.Point     `json:"origin"`
	MapSize   int            `json:"mapSize"`
	Heights   []byte         `json:"heights"`
	Splats    []byte         `json:"splats"`
	Trees     datatypes.JSON `json:"trees"`
}

func (*SaveTile) TableName() string {
	return "save_tiles"
}

// SaveObject is one placed scene object of a save
type SaveObject struct {
	ID        uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	SaveMapID uint           `json:"saveMapId" gorm:"index:idx_saveobject_save_map_id"`
	Seq       int            `json:"seq"`
	Handle    string         `json:"handle" gorm:"size:255"`
	Name      string         `json:"name" gorm:"size:255"`
	Location  geom.Point     `json:"location"`
	Rotation  datatypes.JSON `json:"rotation"`
	Scale     datatypes.JSON `json:"scale"`
}

func (*SaveObject) TableName() string {
	return "save_objects"
}
