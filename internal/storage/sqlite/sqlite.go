// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend; the only SQLite-specific concerns are creating
// the in-memory DB, restoring an earlier dump, and dumping to disk.
package sqlitestorage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/runtimeeditor/history/internal/database"
	"github.com/runtimeeditor/history/internal/logging"
	gormstorage "github.com/runtimeeditor/history/internal/storage/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DumpInterval time.Duration
	DumpPath     string // Path for periodic VACUUM INTO dumps
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db        *gorm.DB
	cfg       Config
	log       *logging.SlogManager
	stopChan  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a new SQLite storage backend.
func New(cfg Config, logManager *logging.SlogManager) (*Backend, error) {
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}
	db, err := database.GetSqliteDBStandalone(database.MemoryDSN(uuid.NewString()))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			DB:         db,
			LogManager: logManager,
		}),
		db:       db,
		cfg:      cfg,
		log:      logManager,
		stopChan: make(chan struct{}),
	}, nil
}

// Init migrates the schema, restores saves from an existing dump and
// starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" {
		if err := b.restore(); err != nil {
			return fmt.Errorf("failed to restore %s: %w", b.cfg.DumpPath, err)
		}
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}

	return nil
}

// Close stops the dump goroutine, writes a final dump and closes the database.
func (b *Backend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.stopChan)
		b.wg.Wait()

		if b.cfg.DumpPath != "" {
			err = database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath)
		}
		if sqlDB, dbErr := b.db.DB(); dbErr == nil {
			err = errors.Join(err, sqlDB.Close())
		}
	})
	return err
}

// Dump writes the current database to the dump path.
func (b *Backend) Dump() error {
	return database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath)
}

// restore copies every save from an earlier dump into the in-memory database.
func (b *Backend) restore() error {
	if _, err := os.Stat(b.cfg.DumpPath); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	fileDB, err := database.GetSqliteDBStandalone(b.cfg.DumpPath)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := fileDB.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	src := gormstorage.New(gormstorage.Dependencies{DB: fileDB, LogManager: b.log})
	if err := src.Init(); err != nil {
		return err
	}
	names, err := src.ListMaps()
	if err != nil {
		return err
	}
	for _, name := range names {
		save, err := src.LoadMap(name)
		if err != nil {
			return err
		}
		if err := b.SaveMap(save); err != nil {
			return err
		}
	}

	b.log.Logger().Info("Restored saves from disk", "path", b.cfg.DumpPath, "count", len(names))
	return nil
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := b.Dump(); err != nil {
				b.log.WriteLog("sqlite:dumpLoop", fmt.Sprintf("Error dumping to disk: %v", err), "ERROR")
			} else {
				b.log.WriteLog("sqlite:dumpLoop", fmt.Sprintf("Dumped to disk in %s", time.Since(start)), "DEBUG")
			}
		}
	}
}
