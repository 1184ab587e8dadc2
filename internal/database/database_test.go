package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runtimeeditor/history/internal/model"
)

func TestPostgresDSN(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "db.local")
	viper.Set("db.port", "6432")
	viper.Set("db.username", "editor")
	viper.Set("db.password", "secret")
	viper.Set("db.database", "maps")

	assert.Equal(t, "host=db.local port=6432 user=editor password=secret dbname=maps sslmode=disable", PostgresDSN())
}

func TestSqliteFileMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maps.db")

	db, err := GetSqliteDBStandalone(path)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	assert.True(t, db.Migrator().HasTable(&model.SaveMap{}))
	assert.True(t, db.Migrator().HasTable(&model.SaveTile{}))
	assert.True(t, db.Migrator().HasTable(&model.SaveObject{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func TestManagerSqliteSetupAndDump(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(zerolog.Nop())
	m.SqliteFilePath = filepath.Join(dir, "live.db")

	require.NoError(t, m.connectSqlite())
	assert.True(t, m.IsValid)
	assert.True(t, m.ShouldSaveLocal)
	require.NoError(t, m.Setup())

	require.NoError(t, m.DB.Create(&model.SaveMap{Name: "dumped"}).Error)

	dump := filepath.Join(dir, "backup", "dump.db")
	require.NoError(t, m.DumpMemoryToDisk(dump))
	// a second dump replaces the first
	require.NoError(t, m.DumpMemoryToDisk(dump))
	_, err := os.Stat(dump)
	require.NoError(t, err)

	paths, err := GetBackupDBPaths(filepath.Join(dir, "backup"))
	require.NoError(t, err)
	assert.Equal(t, []string{dump}, paths)

	require.NoError(t, m.Close())
	assert.False(t, m.IsValid)
}

func TestDumpRequiresPath(t *testing.T) {
	assert.Error(t, DumpMemoryDBToDisk(nil, ""))
}
