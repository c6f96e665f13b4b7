package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wikid82/warden/internal/config"
)

func TestOpen(t *testing.T) {
	db, err := Open("file::memory:")
	require.NoError(t, err)
	assert.NotNil(t, db)

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err = Open(dbPath)
	require.NoError(t, err)
	assert.NotNil(t, db)
	assert.FileExists(t, dbPath)
}

func TestOpen_EnablesForeignKeys(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "fk.db"))
	require.NoError(t, err)

	var enabled int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&enabled).Error)
	assert.Equal(t, 1, enabled)
}

func TestOpen_UsesWriteAheadLog(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "wal.db"))
	require.NoError(t, err)

	var mode string
	require.NoError(t, db.Raw("PRAGMA journal_mode").Scan(&mode).Error)
	assert.Equal(t, "wal", mode)
}

func TestConnect_DefaultsToSQLite(t *testing.T) {
	cfg := config.Config{DatabaseDriver: "sqlite", DatabasePath: filepath.Join(t.TempDir(), "warden.db")}
	db, err := Connect(cfg)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", db.Dialector.Name())
}

func TestWithSQLitePragmas(t *testing.T) {
	assert.Equal(t, "a.db?"+sqlitePragmas, withSQLitePragmas("a.db"))
	assert.Equal(t, "file::memory:?cache=shared&"+sqlitePragmas, withSQLitePragmas("file::memory:?cache=shared"))
	assert.Contains(t, sqlitePragmas, "_txlock=immediate")
}

func TestMigrate(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, table := range []string{"websites", "block_requests", "users", "notifications"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	// Running again is a no-op.
	require.NoError(t, Migrate(db))
}
