// Package sqlstore serves verses from the SQLite "bible" table.
package sqlstore

import (
	"context"
	"database/sql"
	"strings"

	"github.com/FocuswithJustin/BibleEcho/core/errors"
	"github.com/FocuswithJustin/BibleEcho/core/sqlite"
	"github.com/FocuswithJustin/BibleEcho/core/verse"
)

// Backend names this store in errors and metrics.
const Backend = "sqlite"

// Schema creates the verse table and its lookup index.
const Schema = `
CREATE TABLE IF NOT EXISTS bible (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	version TEXT NOT NULL,
	book    TEXT NOT NULL,
	chapter INTEGER NOT NULL,
	verse   INTEGER NOT NULL,
	text    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bible_ref ON bible (version, book, chapter, verse);
`

const (
	selectColumns = `SELECT version, book, chapter, verse, text FROM bible `

	lookupChapter = selectColumns +
		`WHERE version = ? AND book = ? AND chapter = ? ORDER BY verse`

	lookupRange = selectColumns +
		`WHERE version = ? AND book = ? AND chapter = ? AND verse BETWEEN ? AND ? ORDER BY verse`

	// SQLite lower() folds ASCII only, so keyword matching happens in Go.
	scanTranslation = selectColumns +
		`WHERE version = ? ORDER BY id`
)

// Store is a verse.Store over a SQLite database.
type Store struct {
	db          *sql.DB
	translation string
}

// Option configures a Store.
type Option func(*Store)

// WithTranslation selects the version column value to serve.
func WithTranslation(t string) Option {
	return func(s *Store) {
		if t != "" {
			s.translation = t
		}
	}
}

// New wraps an open database handle. The caller keeps ownership of db.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, translation: verse.DefaultTranslation}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open opens the database file at path read-only.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return nil, errors.NewStore(Backend, "open", errors.Join(verse.ErrStoreUnavailable, err))
	}
	return New(db, opts...), nil
}

// Translation returns the version served by the store.
func (s *Store) Translation() string {
	return s.translation
}

// Ping checks that the database is reachable and the table exists.
func (s *Store) Ping(ctx context.Context) error {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'bible'`).Scan(&n)
	if err != nil {
		return s.fail("ping", err)
	}
	if n == 0 {
		return s.fail("ping", errors.NewNotFound("table", "bible"))
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LookupExact returns the verses addressed by q in ascending verse order.
func (s *Store) LookupExact(ctx context.Context, q verse.Query) ([]verse.Record, error) {
	start, end := q.Bounds()

	var (
		rows *sql.Rows
		err  error
	)
	if start == 0 {
		rows, err = s.db.QueryContext(ctx, lookupChapter, s.translation, q.Book.String(), q.Chapter)
	} else {
		rows, err = s.db.QueryContext(ctx, lookupRange, s.translation, q.Book.String(), q.Chapter, start, end)
	}
	if err != nil {
		return nil, s.fail("lookup", err)
	}

	records, err := scan(rows)
	if err != nil {
		return nil, s.fail("lookup", err)
	}
	return records, nil
}

// SearchKeyword returns up to limit verses containing phrase, in table order.
// Matching is case-insensitive over Unicode, the same as memstore.
func (s *Store) SearchKeyword(ctx context.Context, phrase string, limit int) ([]verse.Record, error) {
	if limit <= 0 {
		return []verse.Record{}, nil
	}

	rows, err := s.db.QueryContext(ctx, scanTranslation, s.translation)
	if err != nil {
		return nil, s.fail("search", err)
	}
	defer rows.Close()

	needle := strings.ToLower(phrase)
	records := []verse.Record{}
	for len(records) < limit && rows.Next() {
		var r verse.Record
		if err := rows.Scan(&r.Translation, &r.Book, &r.Chapter, &r.Verse, &r.Text); err != nil {
			return nil, s.fail("search", err)
		}
		if strings.Contains(strings.ToLower(r.Text), needle) {
			records = append(records, r)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("search", err)
	}
	return records, nil
}

// Insert appends records in order. Used by tests and loaders.
func (s *Store) Insert(ctx context.Context, records ...verse.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.fail("insert", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO bible (version, book, chapter, verse, text) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return s.fail("insert", err)
	}
	defer stmt.Close()

	for _, r := range records {
		translation := r.Translation
		if translation == "" {
			translation = s.translation
		}
		if _, err := stmt.ExecContext(ctx, translation, r.Book, r.Chapter, r.Verse, r.Text); err != nil {
			return s.fail("insert", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return s.fail("insert", err)
	}
	return nil
}

func (s *Store) fail(op string, err error) error {
	return errors.NewStore(Backend, op, errors.Join(verse.ErrStoreUnavailable, err))
}

func scan(rows *sql.Rows) ([]verse.Record, error) {
	defer rows.Close()

	records := []verse.Record{}
	for rows.Next() {
		var r verse.Record
		if err := rows.Scan(&r.Translation, &r.Book, &r.Chapter, &r.Verse, &r.Text); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
