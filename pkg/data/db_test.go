package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, db.Init())
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(dbPath)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Init())

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestInit_RunsSchema(t *testing.T) {
	db := setupTestDB(t)

	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	assert.NoError(t, err)
	assert.Greater(t, version, 0)
}

func TestInit_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, db.Init())

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestInit_NilDB(t *testing.T) {
	var db *DB
	assert.Error(t, db.Init())
}

func TestRebind(t *testing.T) {
	sqlite := &DB{driver: driverSQLite}
	assert.Equal(t, "SELECT * FROM t WHERE a = ? AND b = ?",
		sqlite.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	pg := &DB{driver: driverPostgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2",
		pg.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))
	assert.Equal(t, "SELECT 1", pg.rebind("SELECT 1"))
}
