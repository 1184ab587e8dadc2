// internal/storage/memory/memory.go
package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/runtimeeditor/history/internal/config"
	"github.com/runtimeeditor/history/internal/storage"
	v1 "github.com/runtimeeditor/history/internal/storage/memory/export/v1"
	"github.com/runtimeeditor/history/pkg/core"
)

// Backend keeps save files in memory and mirrors every save to a
// .runtimemap file in the configured output directory.
type Backend struct {
	cfg   config.MemoryConfig
	saves map[string]v1.File

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:   cfg,
		saves: make(map[string]v1.File),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// SaveMap stores the save file and writes it to disk when an output
// directory is configured. Saving under an existing name replaces it.
func (b *Backend) SaveMap(save *core.SaveFile) error {
	if save == nil || save.Name == "" {
		return fmt.Errorf("save file needs a name")
	}
	f, err := v1.Build(save)
	if err != nil {
		return fmt.Errorf("save %q: %w", save.Name, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.saves[save.Name] = f
	if b.cfg.OutputDir == "" {
		return nil
	}
	return b.exportFile(f)
}

// LoadMap returns a fresh copy of the named save file, falling back to the
// output directory for saves written by an earlier session.
func (b *Backend) LoadMap(name string) (*core.SaveFile, error) {
	b.mu.RLock()
	f, ok := b.saves[name]
	b.mu.RUnlock()

	if !ok {
		var err error
		f, err = b.readFile(name)
		if err != nil {
			return nil, err
		}
	}
	return v1.Parse(f)
}

// ListMaps returns the names of every known save file, sorted.
func (b *Backend) ListMaps() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	seen := make(map[string]struct{}, len(b.saves))
	for name := range b.saves {
		seen[name] = struct{}{}
	}
	onDisk, err := b.listFiles()
	if err != nil {
		return nil, err
	}
	for _, name := range onDisk {
		seen[name] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// DeleteMap removes the save file from memory and disk.
func (b *Backend) DeleteMap(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, inMemory := b.saves[name]
	delete(b.saves, name)

	removed, err := b.removeFiles(name)
	if err != nil {
		return err
	}
	if !inMemory && !removed {
		return fmt.Errorf("delete %q: %w", name, storage.ErrNotFound)
	}
	return nil
}

// LastExportPath returns the path of the most recently written file.
func (b *Backend) LastExportPath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
