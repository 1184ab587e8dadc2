// Package gormstorage implements the storage.Backend interface on top of a
// gorm connection. The sqlite and postgres backends embed it and only
// differ in how the connection is created and kept.
package gormstorage

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/runtimeeditor/history/internal/database"
	"github.com/runtimeeditor/history/internal/logging"
	"github.com/runtimeeditor/history/internal/model"
	"github.com/runtimeeditor/history/internal/model/convert"
	"github.com/runtimeeditor/history/internal/storage"
	"github.com/runtimeeditor/history/pkg/core"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
}

// Backend implements storage.Backend with one row per save plus child rows
// for its tiles and objects.
type Backend struct {
	deps Dependencies
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Backend{deps: deps}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm backend has no database")
	}
	return database.Migrate(b.deps.DB)
}

// Close is a no-op; the connection belongs to whoever created it.
func (b *Backend) Close() error {
	return nil
}

// SaveMap replaces any save stored under the same name.
func (b *Backend) SaveMap(save *core.SaveFile) error {
	if save == nil || save.Name == "" {
		return fmt.Errorf("save file needs a name")
	}
	row, err := convert.ToGorm(save)
	if err != nil {
		return fmt.Errorf("convert %q: %w", save.Name, err)
	}

	err = b.deps.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := deleteByName(tx, save.Name); err != nil {
			return err
		}
		return tx.Create(row).Error
	})
	if err != nil {
		return fmt.Errorf("save %q: %w", save.Name, err)
	}

	b.deps.LogManager.Logger().Debug("Saved map",
		"name", save.Name,
		"tiles", len(row.Tiles),
		"objects", len(row.Objects))
	return nil
}

// LoadMap reads a save and its tiles and objects in saved order.
func (b *Backend) LoadMap(name string) (*core.SaveFile, error) {
	var row model.SaveMap
	err := b.deps.DB.
		Preload("Tiles", func(db *gorm.DB) *gorm.DB { return db.Order("seq") }).
		Preload("Objects", func(db *gorm.DB) *gorm.DB { return db.Order("seq") }).
		Where("name = ?", name).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load %q: %w", name, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", name, err)
	}
	return convert.FromGorm(&row)
}

// ListMaps returns every save name, sorted.
func (b *Backend) ListMaps() ([]string, error) {
	var names []string
	err := b.deps.DB.Model(&model.SaveMap{}).Order("name").Pluck("name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	return names, nil
}

// DeleteMap removes a save and its child rows.
func (b *Backend) DeleteMap(name string) error {
	var found bool
	err := b.deps.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		found, err = deleteByName(tx, name)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete %q: %w", name, err)
	}
	if !found {
		return fmt.Errorf("delete %q: %w", name, storage.ErrNotFound)
	}
	return nil
}

func deleteByName(tx *gorm.DB, name string) (bool, error) {
	var ids []uint
	if err := tx.Model(&model.SaveMap{}).Where("name = ?", name).Pluck("id", &ids).Error; err != nil {
		return false, err
	}
	if len(ids) == 0 {
		return false, nil
	}
	if err := tx.Where("save_map_id IN ?", ids).Delete(&model.SaveTile{}).Error; err != nil {
		return false, err
	}
	if err := tx.Where("save_map_id IN ?", ids).Delete(&model.SaveObject{}).Error; err != nil {
		return false, err
	}
	if err := tx.Delete(&model.SaveMap{}, ids).Error; err != nil {
		return false, err
	}
	return true, nil
}
