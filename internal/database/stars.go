package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotFound = errors.New("record not found")

// AddedAtLayout is ISO-8601 UTC at second precision. Rows compare correctly
// as plain strings in this form.
const AddedAtLayout = "2006-01-02T15:04:05+00:00"

// Star is a paper persisted by the user.
type Star struct {
	ID       string
	Title    string
	URL      string
	Abstract string
	AddedAt  string
}

// StarStore reads and writes the stars table.
type StarStore struct {
	db  *DB
	now func() time.Time
}

func NewStarStore(db *DB) *StarStore {
	return &StarStore{db: db, now: time.Now}
}

const starColumns = `id, COALESCE(title, ''), COALESCE(url, ''), COALESCE(abstract, ''), COALESCE(added_at, '')`

// Upsert inserts star or replaces every column of the row with the same id,
// stamping it with the current time. The stored row is returned.
func (s *StarStore) Upsert(ctx context.Context, star Star) (Star, error) {
	if star.ID == "" {
		return Star{}, errors.New("star has no id")
	}
	star.AddedAt = s.now().UTC().Format(AddedAtLayout)

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO stars (id, title, url, abstract, added_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            title = excluded.title,
            url = excluded.url,
            abstract = excluded.abstract,
            added_at = excluded.added_at`,
		star.ID, star.Title, star.URL, star.Abstract, star.AddedAt,
	)
	if err != nil {
		return Star{}, fmt.Errorf("error saving star %s: %w", star.ID, err)
	}
	return star, nil
}

// Get returns the star with the given id or ErrNotFound.
func (s *StarStore) Get(ctx context.Context, id string) (Star, error) {
	var star Star
	err := s.db.QueryRowContext(ctx,
		"SELECT "+starColumns+" FROM stars WHERE id = ?", id,
	).Scan(&star.ID, &star.Title, &star.URL, &star.Abstract, &star.AddedAt)
	if err == sql.ErrNoRows {
		return Star{}, ErrNotFound
	}
	if err != nil {
		return Star{}, fmt.Errorf("error loading star %s: %w", id, err)
	}
	return star, nil
}

// List returns every star, most recently added first.
func (s *StarStore) List(ctx context.Context) ([]Star, error) {
	return s.query(ctx, "SELECT "+starColumns+" FROM stars ORDER BY added_at DESC, rowid DESC")
}

// Search returns the stars whose title or abstract contains query, ignoring
// case, most recently added first. query is matched literally; an empty
// query returns everything.
func (s *StarStore) Search(ctx context.Context, query string) ([]Star, error) {
	if query == "" {
		return s.List(ctx)
	}
	needle := strings.ToLower(query)
	return s.query(ctx, `
        SELECT `+starColumns+` FROM stars
        WHERE instr(unicode_lower(COALESCE(title, '')), ?) > 0
           OR instr(unicode_lower(COALESCE(abstract, '')), ?) > 0
        ORDER BY added_at DESC, rowid DESC`,
		needle, needle,
	)
}

func (s *StarStore) query(ctx context.Context, q string, args ...any) ([]Star, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying stars: %w", err)
	}
	defer rows.Close()

	stars := make([]Star, 0)
	for rows.Next() {
		var star Star
		if err := rows.Scan(&star.ID, &star.Title, &star.URL, &star.Abstract, &star.AddedAt); err != nil {
			return nil, fmt.Errorf("error scanning star: %w", err)
		}
		stars = append(stars, star)
	}
	return stars, rows.Err()
}
