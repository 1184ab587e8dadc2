// internal/storage/storage.go
package storage

import (
	"errors"

	"github.com/runtimeeditor/history/pkg/core"
)

// ErrNotFound is returned when no save file exists under the requested name.
var ErrNotFound = errors.New("save file not found")

// Backend is the interface all save file storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Save file management
	SaveMap(save *core.SaveFile) error
	LoadMap(name string) (*core.SaveFile, error)
	ListMaps() ([]string, error)
	DeleteMap(name string) error
}

// Exporter is an optional interface for backends that write save files to disk.
type Exporter interface {
	LastExportPath() string
}
