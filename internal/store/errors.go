package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrUnknownKind is returned for a Kind the schema does not define.
	ErrUnknownKind = errors.New("unknown record kind")

	// ErrUnknownIndex is returned by FindBy for an index the kind does not have.
	ErrUnknownIndex = errors.New("unknown index")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store is closed")
)

// DuplicateKeyError is returned by Add when a record with the same key exists.
type DuplicateKeyError struct {
	Kind Kind
	ID   string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key %q in %s", e.ID, e.Kind)
}

// IsDuplicateKey reports whether err wraps a *DuplicateKeyError.
func IsDuplicateKey(err error) bool {
	var de *DuplicateKeyError
	return errors.As(err, &de)
}

// StorageUnavailableError is returned when the database cannot be opened.
// Callers may fall back to an in-memory mode.
type StorageUnavailableError struct {
	Path string
	Err  error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("storage unavailable at %s: %v", e.Path, e.Err)
}

func (e *StorageUnavailableError) Unwrap() error {
	return e.Err
}

// IsStorageUnavailable reports whether err wraps a *StorageUnavailableError.
func IsStorageUnavailable(err error) bool {
	var se *StorageUnavailableError
	return errors.As(err, &se)
}

// BulkError reports the record that made a bulk write fail.
// The whole batch is rolled back when it is returned.
type BulkError struct {
	Kind  Kind
	Index int
	ID    string
	Err   error
}

func (e *BulkError) Error() string {
	return fmt.Sprintf("bulk write to %s failed at record %d (%q): %v", e.Kind, e.Index, e.ID, e.Err)
}

func (e *BulkError) Unwrap() error {
	return e.Err
}

// isPrimaryKeyViolation reports whether err is SQLite's primary key or
// unique constraint failure.
func isPrimaryKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
