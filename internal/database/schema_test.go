package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB_SuccessAndTableCreation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test_newdb.db")
	db, err := NewDB(dbPath, DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Ping())

	var count int
	err = db.QueryRow("SELECT count(*) FROM sqlite_master WHERE type='table' AND name='stars'").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	for _, column := range []string{"id", "title", "url", "abstract", "added_at"} {
		exists, err := columnExists(context.Background(), db.DB, "stars", column)
		require.NoError(t, err)
		assert.True(t, exists, "column %s", column)
	}
}

func TestNewDB_Idempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "arxiv.db")

	db, err := NewDB(dbPath, DefaultConfig())
	require.NoError(t, err)
	_, err = NewStarStore(db).Upsert(context.Background(), Star{ID: "2401.00001", Title: "Kept"})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = NewDB(dbPath, DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	star, err := NewStarStore(db).Get(context.Background(), "2401.00001")
	require.NoError(t, err)
	assert.Equal(t, "Kept", star.Title)
}

func TestNewDB_CompletesPartialTable(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "partial.db")

	partial, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = partial.Exec(`CREATE TABLE stars (id TEXT PRIMARY KEY, title TEXT);
		INSERT INTO stars (id, title) VALUES ('old', 'Old Paper');`)
	require.NoError(t, err)
	require.NoError(t, partial.Close())

	db, err := NewDB(dbPath, DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	stars, err := NewStarStore(db).List(context.Background())
	require.NoError(t, err)
	require.Len(t, stars, 1)
	assert.Equal(t, Star{ID: "old", Title: "Old Paper"}, stars[0])
}
