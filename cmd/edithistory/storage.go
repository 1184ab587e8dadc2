package main

import (
	"fmt"
	"path/filepath"

	"github.com/runtimeeditor/history/internal/config"
	"github.com/runtimeeditor/history/internal/database"
	"github.com/runtimeeditor/history/internal/storage"
	gormstorage "github.com/runtimeeditor/history/internal/storage/gorm"
	"github.com/runtimeeditor/history/internal/storage/memory"
	pgstorage "github.com/runtimeeditor/history/internal/storage/postgres"
	sqlitestorage "github.com/runtimeeditor/history/internal/storage/sqlite"
)

// managedBackend is a gorm backend over a database.Manager connection:
// postgres when reachable, otherwise an in-memory SQLite database that is
// dumped to disk on close.
type managedBackend struct {
	*gormstorage.Backend
	db       *database.Manager
	dumpPath string
}

func (b *managedBackend) Close() error {
	if b.db.ShouldSaveLocal && b.db.IsValid {
		if err := b.db.DumpMemoryToDisk(b.dumpPath); err != nil {
			b.db.Logger.Error().Err(err).Str("path", b.dumpPath).Msg("Failed to dump local database")
		}
	}
	return b.db.Close()
}

func (a *app) createStorageBackend(storageCfg config.StorageConfig) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		a.logger.Info("Postgres storage backend initialized")
		return pgstorage.New(pgstorage.Dependencies{LogManager: a.logs}), nil

	case "sqlite":
		dumpPath := storageCfg.SQLite.Path
		if dumpPath == "" {
			dumpPath = a.localDBPath()
		}
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpPath:     dumpPath,
		}, a.logs)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		a.logger.Info("SQLite storage backend initialized", "dumpPath", dumpPath)
		return backend, nil

	case "database":
		m := database.NewManager(a.zlog)
		if err := m.Connect(); err != nil {
			return nil, fmt.Errorf("failed to connect database: %w", err)
		}
		a.logger.Info("Database storage backend initialized", "local", m.ShouldSaveLocal)
		return &managedBackend{
			Backend:  gormstorage.New(gormstorage.Dependencies{DB: m.DB, LogManager: a.logs}),
			db:       m,
			dumpPath: a.localDBPath(),
		}, nil

	case "memory", "":
		a.logger.Info("Memory storage backend initialized", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// localDBPath is where local SQLite databases are dumped for this session.
func (a *app) localDBPath() string {
	return filepath.Join(a.logsDir, fmt.Sprintf("%s_%s.db", appName, a.start.Format("20060102_150405")))
}
