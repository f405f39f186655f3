package database

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "portal.db"), MaxOpenConns: 1}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_content.sql":        {Data: []byte("CREATE TABLE content (id INTEGER);")},
		"001_initial_schema.sql": {Data: []byte("CREATE TABLE submissions (id INTEGER);")},
		"README.md":              {Data: []byte("not a migration")},
	}

	migrations, err := LoadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "initial_schema", migrations[0].Name)
	assert.Equal(t, 2, migrations[1].Version)
}

func TestLoadMigrations_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		fsys   fstest.MapFS
		errMsg string
	}{
		{"no version", fstest.MapFS{"initial.sql": {Data: []byte("SELECT 1;")}}, "invalid migration filename"},
		{"duplicate version", fstest.MapFS{
			"001_a.sql": {Data: []byte("SELECT 1;")},
			"01_b.sql":  {Data: []byte("SELECT 1;")},
		}, "duplicate migration version 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMigrations(tt.fsys)
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestRunMigrations(t *testing.T) {
	db := openTestDB(t)
	m := NewMigrator(db, zap.NewNop())

	version, err := m.CurrentVersion()
	require.NoError(t, err)
	assert.Zero(t, version)

	fsys := fstest.MapFS{
		"001_submissions.sql": {Data: []byte("CREATE TABLE submissions (reference_id TEXT PRIMARY KEY);")},
		"002_receipts.sql":    {Data: []byte("CREATE TABLE receipts (reference_id TEXT PRIMARY KEY);")},
	}
	require.NoError(t, m.RunMigrations(fsys))

	version, err = m.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	// A second run applies nothing; re-running CREATE TABLE would fail
	require.NoError(t, m.RunMigrations(fsys))
}

func TestRunMigrations_FailureRollsBack(t *testing.T) {
	db := openTestDB(t)
	m := NewMigrator(db, zap.NewNop())

	fsys := fstest.MapFS{
		"001_ok.sql":     {Data: []byte("CREATE TABLE submissions (id INTEGER);")},
		"002_broken.sql": {Data: []byte("CREATE TABLE receipts (id INTEGER); CREATE TABL oops;")},
	}
	err := m.RunMigrations(fsys)
	assert.ErrorContains(t, err, "failed to apply migration 2")

	version, err := m.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestWithTransaction(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec("CREATE TABLE codes (subject TEXT)")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = db.WithTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO codes (subject) VALUES ('9876543210')"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM codes").Scan(&count))
	assert.Zero(t, count)
}
