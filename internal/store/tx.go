package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/stockroom/internal/model"
)

// Tx is a read-write transaction. Every write made through it commits or
// rolls back together.
//
// The store has a single connection, so code running inside Update must use
// the Tx and never call methods on the Store itself.
type Tx struct {
	tx  *sql.Tx
	now func() time.Time
}

func (t *Tx) conn(context.Context) (querier, error) {
	return t.tx, nil
}

// Update runs fn in one transaction, committing if fn returns nil and
// rolling back otherwise.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}

	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback() // No-op if committed

	if err := fn(&Tx{tx: sqlTx, now: s.now}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Add inserts rec, failing with *DuplicateKeyError on an existing key.
func (t *Tx) Add(ctx context.Context, kind Kind, rec Record) error {
	return insert(ctx, t.tx, kind, rec, false)
}

// Put upserts rec.
func (t *Tx) Put(ctx context.Context, kind Kind, rec Record) error {
	return insert(ctx, t.tx, kind, rec, true)
}

// Delete removes the record with the given key if present.
func (t *Tx) Delete(ctx context.Context, kind Kind, id string) error {
	return remove(ctx, t.tx, kind, id)
}

// Clear removes every record of kind.
func (t *Tx) Clear(ctx context.Context, kind Kind) error {
	return clearKind(ctx, t.tx, kind)
}

// BulkAdd inserts recs, stopping at the first failure.
func (t *Tx) BulkAdd(ctx context.Context, kind Kind, recs []Record) error {
	return t.bulk(ctx, kind, recs, false)
}

// BulkPut upserts recs, stopping at the first failure.
func (t *Tx) BulkPut(ctx context.Context, kind Kind, recs []Record) error {
	return t.bulk(ctx, kind, recs, true)
}

func (t *Tx) bulk(ctx context.Context, kind Kind, recs []Record, upsert bool) error {
	if _, err := lookupTable(kind); err != nil {
		return err
	}
	for i, rec := range recs {
		if err := insert(ctx, t.tx, kind, rec, upsert); err != nil {
			return &BulkError{Kind: kind, Index: i, ID: rec.RecordID(), Err: err}
		}
	}
	return nil
}

// SetMetadata stores value under key, stamped with the store clock.
func (t *Tx) SetMetadata(ctx context.Context, key string, value any) error {
	rec, err := newMetadata(key, value, t.now())
	if err != nil {
		return err
	}
	return insert(ctx, t.tx, KindMetadata, rec, true)
}

// ReadTx is a read-only transaction used for consistent multi-kind reads.
type ReadTx struct {
	tx *sql.Tx
}

func (r *ReadTx) conn(context.Context) (querier, error) {
	return r.tx, nil
}

// View runs fn in a transaction that is always rolled back. All reads made
// through the ReadTx observe the same committed state.
func (s *Store) View(ctx context.Context, fn func(tx *ReadTx) error) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}

	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin read tx: %w", err)
	}
	defer sqlTx.Rollback()

	return fn(&ReadTx{tx: sqlTx})
}

func newMetadata(key string, value any, now time.Time) (model.Metadata, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return model.Metadata{}, fmt.Errorf("marshal metadata %q: %w", key, err)
	}
	return model.Metadata{Key: key, Value: raw, UpdatedAt: now}, nil
}
