package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/singleflight"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - products, sales, missing_items, metadata
// 2 - added debts and ledger tables
// 3 - timestamp index columns rewritten in TimestampLayout
const currentSchemaVersion = 3

// Record is implemented by everything the store can persist.
type Record interface {
	RecordID() string
}

// Records converts a typed slice into the []Record the bulk operations take.
func Records[T Record](items []T) []Record {
	out := make([]Record, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock sets the time source used to stamp metadata entries.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is the record store. It is created unopened and opens its database
// lazily on first use; every caller of one Store shares the same handle.
type Store struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	opens singleflight.Group

	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// New returns a store for the SQLite database at path without opening it.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:   path,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open creates a store and opens its database immediately.
// Failures are reported as *StorageUnavailableError.
func Open(path string, opts ...Option) (*Store, error) {
	s := New(path, opts...)
	if _, err := s.handle(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection. Safe to call more than once and on
// a store that was never opened.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// handle returns the opened database, opening it on first use. Concurrent
// first callers share one open attempt. A failed open is not remembered, so
// the next call retries.
func (s *Store) handle(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.db != nil {
		db := s.db
		s.mu.Unlock()
		return db, nil
	}
	s.mu.Unlock()

	ch := s.opens.DoChan("open", func() (interface{}, error) {
		s.mu.Lock()
		if s.db != nil {
			db := s.db
			s.mu.Unlock()
			return db, nil
		}
		s.mu.Unlock()

		db, err := openDB(s.path)
		if err != nil {
			s.logger.Error("record store unavailable", "path", s.path, "error", err)
			return nil, &StorageUnavailableError{Path: s.path, Err: err}
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			db.Close()
			return nil, ErrClosed
		}
		s.db = db
		s.logger.Debug("record store opened", "path", s.path, "schema_version", currentSchemaVersion)
		return db, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*sql.DB), nil
	}
}

// openDB opens the SQLite file, applies pragmas and brings the schema up to
// currentSchemaVersion.
func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite has a single writer; one connection also makes each
	// transaction a consistent view across kinds.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return db, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates the base tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 2 {
		if err := migrateToV2(db); err != nil {
			return err
		}
	}

	if version < 3 {
		if err := migrateToV3(db); err != nil {
			return err
		}
	}

	if version != currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}

	return nil
}

// migrateToV2 adds the debts and ledger tables. Databases at version 0 or 1
// only have the base tables from schema.sql.
func migrateToV2(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS debts (
			id           TEXT PRIMARY KEY NOT NULL,
			doc          TEXT NOT NULL,
			client_name  TEXT,
			is_paid      INTEGER,
			created_at   TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_debts_client_name ON debts(client_name);
		CREATE INDEX IF NOT EXISTS idx_debts_is_paid ON debts(is_paid);
		CREATE INDEX IF NOT EXISTS idx_debts_created_at ON debts(created_at);

		CREATE TABLE IF NOT EXISTS ledger (
			id          TEXT PRIMARY KEY NOT NULL,
			doc         TEXT NOT NULL,
			is_paid     INTEGER,
			created_at  TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_ledger_is_paid ON ledger(is_paid);
		CREATE INDEX IF NOT EXISTS idx_ledger_created_at ON ledger(created_at);
	`)
	if err != nil {
		return fmt.Errorf("migrate to v2: %w", err)
	}
	return nil
}

// migrateToV3 rewrites timestamp index columns in TimestampLayout. Earlier
// versions copied the document's RFC 3339 text, which drops trailing zeros
// and does not sort.
func migrateToV3(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate to v3: %w", err)
	}
	defer tx.Rollback()

	for _, kind := range Kinds {
		t := tables[kind]
		for _, idx := range t.indexes {
			if !idx.timestamp {
				continue
			}
			if err := reindexTimestamps(tx, t, idx); err != nil {
				return fmt.Errorf("migrate to v3: %w", err)
			}
		}
	}
	return tx.Commit()
}

func reindexTimestamps(tx *sql.Tx, t table, idx index) error {
	rows, err := tx.Query(fmt.Sprintf("SELECT id, %s FROM %s WHERE %s IS NOT NULL", idx.column, t.name, idx.column))
	if err != nil {
		return fmt.Errorf("read %s.%s: %w", t.name, idx.column, err)
	}
	updates := map[string]any{}
	for rows.Next() {
		var id, value string
		if err := rows.Scan(&id, &value); err != nil {
			rows.Close()
			return fmt.Errorf("scan %s.%s: %w", t.name, idx.column, err)
		}
		if converted := idx.value(value); converted != value {
			updates[id] = converted
		}
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s.%s: %w", t.name, idx.column, err)
	}

	for id, value := range updates {
		query := fmt.Sprintf("UPDATE %s SET %s = ? WHERE id = ?", t.name, idx.column)
		if _, err := tx.Exec(query, value, id); err != nil {
			return fmt.Errorf("update %s.%s: %w", t.name, idx.column, err)
		}
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	db, err := s.handle(context.Background())
	if err != nil {
		return err
	}
	var value string
	if err := db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
