// Package database owns the SQLite file that holds starred papers.
//
// The file is assumed to have a single writer process. Callers that may run
// overlapping invocations must serialize them externally.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// driverName registers go-sqlite3 with a Unicode-aware lower() replacement,
// since SQLite's built-in lower() only folds ASCII.
const driverName = "sqlite3_arxivdigest"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("unicode_lower", strings.ToLower, true)
		},
	})
}

const Schema = `
CREATE TABLE IF NOT EXISTS stars (
    id TEXT PRIMARY KEY,
    title TEXT,
    url TEXT,
    abstract TEXT,
    added_at TEXT
);`

const Indexes = `
CREATE INDEX IF NOT EXISTS idx_stars_added_at ON stars(added_at DESC);`

// DB represents our database connection and operations
type DB struct {
	*sql.DB
}

// Configuration for the database
type Config struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig keeps a single connection: the store is accessed
// sequentially by one process.
func DefaultConfig() Config {
	return Config{
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	}
}

// NewDB opens (creating if needed) the database at dbPath and makes sure the
// schema exists. Opening an already initialized file is a no-op.
func NewDB(dbPath string, cfg Config) (*DB, error) {
	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	if err := createSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating schema: %w", err)
	}

	return &DB{db}, nil
}

func createSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("error executing schema: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing schema: %w", err)
	}

	// A stars table created by hand or by another tool may hold only some
	// of the columns; add the missing ones so existing rows stay readable.
	for _, column := range []string{"title", "url", "abstract", "added_at"} {
		exists, err := columnExists(ctx, db, "stars", column)
		if err != nil {
			return fmt.Errorf("error checking column stars.%s: %w", column, err)
		}
		if !exists {
			if _, err := db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE stars ADD COLUMN %s TEXT", column)); err != nil {
				return fmt.Errorf("error adding column stars.%s: %w", column, err)
			}
		}
	}

	if _, err := db.ExecContext(ctx, Indexes); err != nil {
		return fmt.Errorf("error creating indexes: %w", err)
	}
	return nil
}

func columnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
