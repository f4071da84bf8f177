package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// querier is the subset of *sql.DB and *sql.Tx the record operations need.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Reader is implemented by *Store, *Tx and *ReadTx so the generic read
// helpers work both standalone and inside a transaction.
type Reader interface {
	conn(ctx context.Context) (querier, error)
}

func (s *Store) conn(ctx context.Context) (querier, error) {
	return s.handle(ctx)
}

// Add inserts rec. It fails with *DuplicateKeyError if the key already exists.
func (s *Store) Add(ctx context.Context, kind Kind, rec Record) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	return insert(ctx, db, kind, rec, false)
}

// Put inserts rec or replaces the record with the same key.
func (s *Store) Put(ctx context.Context, kind Kind, rec Record) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	return insert(ctx, db, kind, rec, true)
}

// Delete removes the record with the given key. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, kind Kind, id string) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	return remove(ctx, db, kind, id)
}

// Clear removes every record of kind.
func (s *Store) Clear(ctx context.Context, kind Kind) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	return clearKind(ctx, db, kind)
}

// Count returns the number of records of kind.
func (s *Store) Count(ctx context.Context, kind Kind) (int, error) {
	db, err := s.handle(ctx)
	if err != nil {
		return 0, err
	}
	t, err := lookupTable(kind)
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.name).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", kind, err)
	}
	return n, nil
}

// BulkAdd inserts every record in one transaction. The first failure,
// including a duplicate key, rolls back the whole batch.
func (s *Store) BulkAdd(ctx context.Context, kind Kind, recs []Record) error {
	return s.Update(ctx, func(tx *Tx) error {
		return tx.BulkAdd(ctx, kind, recs)
	})
}

// BulkPut upserts every record in one transaction. Later records win over
// earlier ones with the same key.
func (s *Store) BulkPut(ctx context.Context, kind Kind, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	return s.Update(ctx, func(tx *Tx) error {
		return tx.BulkPut(ctx, kind, recs)
	})
}

// Get decodes the record of kind with the given key into a T.
// The boolean is false when no such record exists.
func Get[T any](ctx context.Context, r Reader, kind Kind, id string) (T, bool, error) {
	var zero T
	q, err := r.conn(ctx)
	if err != nil {
		return zero, false, err
	}
	t, err := lookupTable(kind)
	if err != nil {
		return zero, false, err
	}

	var doc string
	err = q.QueryRowContext(ctx, "SELECT doc FROM "+t.name+" WHERE id = ?", id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("get %s %q: %w", kind, id, err)
	}

	var out T
	if err := json.Unmarshal([]byte(doc), &out); err != nil {
		return zero, false, fmt.Errorf("decode %s %q: %w", kind, id, err)
	}
	return out, true, nil
}

// GetAll returns every record of kind. Callers must not rely on the order.
// Returns an empty slice (not nil) when the table is empty.
func GetAll[T any](ctx context.Context, r Reader, kind Kind) ([]T, error) {
	t, err := lookupTable(kind)
	if err != nil {
		return nil, err
	}
	return queryDocs[T](ctx, r, kind, "SELECT doc FROM "+t.name+" ORDER BY id")
}

// FindBy returns the records of kind whose index equals value. The index is
// named by its field key path, e.g. "category" or "isResolved". Timestamp
// indexes accept a time.Time or an RFC 3339 string.
func FindBy[T any](ctx context.Context, r Reader, kind Kind, index string, value any) ([]T, error) {
	t, err := lookupTable(kind)
	if err != nil {
		return nil, err
	}
	idx, err := t.index(index)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT doc FROM %s WHERE %s = ? ORDER BY id", t.name, idx.column)
	return queryDocs[T](ctx, r, kind, query, idx.arg(value))
}

func queryDocs[T any](ctx context.Context, r Reader, kind Kind, query string, args ...any) ([]T, error) {
	q, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", kind, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		var rec T
		if err := json.Unmarshal([]byte(doc), &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", kind, err)
	}
	return out, nil
}

// insert writes one record. With upsert false a key collision is reported
// as *DuplicateKeyError.
func insert(ctx context.Context, q querier, kind Kind, rec Record, upsert bool) error {
	t, err := lookupTable(kind)
	if err != nil {
		return err
	}
	r, err := t.encode(rec)
	if err != nil {
		return err
	}

	cols := []string{"id", "doc"}
	for _, idx := range t.indexes {
		cols = append(cols, idx.column)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.name, strings.Join(cols, ", "), placeholders)
	if upsert {
		sets := make([]string, 0, len(cols)-1)
		for _, c := range cols[1:] {
			sets = append(sets, c+" = excluded."+c)
		}
		query += " ON CONFLICT(id) DO UPDATE SET " + strings.Join(sets, ", ")
	}

	args := append([]any{r.id, r.doc}, r.values...)
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		if !upsert && isPrimaryKeyViolation(err) {
			return &DuplicateKeyError{Kind: kind, ID: r.id}
		}
		return fmt.Errorf("write %s %q: %w", kind, r.id, err)
	}
	return nil
}

func remove(ctx context.Context, q querier, kind Kind, id string) error {
	t, err := lookupTable(kind)
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, "DELETE FROM "+t.name+" WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete %s %q: %w", kind, id, err)
	}
	return nil
}

func clearKind(ctx context.Context, q querier, kind Kind) error {
	t, err := lookupTable(kind)
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, "DELETE FROM "+t.name); err != nil {
		return fmt.Errorf("clear %s: %w", kind, err)
	}
	return nil
}
