// Package postgres implements the storage.Backend interface using GORM/PostgreSQL.
package postgres

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/runtimeeditor/history/internal/database"
	"github.com/runtimeeditor/history/internal/logging"
	gormstorage "github.com/runtimeeditor/history/internal/storage/gorm"
)

// Dependencies holds all dependencies for the postgres storage backend.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
}

// Backend wraps the GORM backend with its own postgres connection.
type Backend struct {
	*gormstorage.Backend
	deps  Dependencies
	owned bool
}

// New creates a new postgres storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Backend{deps: deps}
}

// Init connects when no DB was injected via Dependencies, then runs schema migration.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.GetPostgresDBStandalone()
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.deps.DB = db
		b.owned = true
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:         b.deps.DB,
		LogManager: b.deps.LogManager,
	})
	if err := b.Backend.Init(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.deps.LogManager.Logger().Info("Postgres storage ready")
	return nil
}

// Close releases the connection if this backend opened it.
func (b *Backend) Close() error {
	if !b.owned || b.deps.DB == nil {
		return nil
	}
	sqlDB, err := b.deps.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
