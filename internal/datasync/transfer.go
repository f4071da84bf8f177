package datasync

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/stockroom/internal/model"
	"github.com/roach88/stockroom/internal/store"
)

// Snapshot is a consistent copy of the exported kinds.
type Snapshot struct {
	Products     []model.Product
	MissingItems []model.MissingItem
	Sales        []model.Sale
}

// ImportData is an import payload. A nil slice means the kind was absent
// from the payload; an empty non-nil slice means it was present and empty.
type ImportData struct {
	Products     []model.Product
	MissingItems []model.MissingItem
	Sales        []model.Sale
}

// ImportMode selects what an import clears before writing.
type ImportMode int

const (
	// ReplaceAll clears products, sales and missing items whether or not
	// the payload carries them.
	ReplaceAll ImportMode = iota
	// ReplacePresent clears only the kinds present in the payload.
	ReplacePresent
)

func (m ImportMode) String() string {
	switch m {
	case ReplaceAll:
		return "replace-all"
	case ReplacePresent:
		return "replace-present"
	default:
		return fmt.Sprintf("ImportMode(%d)", int(m))
	}
}

// ImportError reports a payload record that failed validation. Nothing is
// written when an import fails this way.
type ImportError struct {
	Kind  store.Kind
	Index int
	ID    string
	Err   error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import %s[%d] (id %q): %v", e.Kind, e.Index, e.ID, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// IsImportError reports whether err wraps an *ImportError.
func IsImportError(err error) bool {
	var ie *ImportError
	return errors.As(err, &ie)
}

// ExportAll reads products, missing items and sales inside one read
// transaction.
func (f *Facade) ExportAll(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := f.store.View(ctx, func(tx *store.ReadTx) error {
		var err error
		if snap.Products, err = store.GetAll[model.Product](ctx, tx, store.KindProducts); err != nil {
			return err
		}
		if snap.MissingItems, err = store.GetAll[model.MissingItem](ctx, tx, store.KindMissingItems); err != nil {
			return err
		}
		snap.Sales, err = store.GetAll[model.Sale](ctx, tx, store.KindSales)
		return err
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("export: %w", err)
	}
	return snap, nil
}

// ImportAll replaces stored data with data. Every record is validated
// before anything is cleared; the clear, the writes and the lastSync stamp
// commit together.
func (f *Facade) ImportAll(ctx context.Context, data ImportData, mode ImportMode) error {
	if mode != ReplaceAll && mode != ReplacePresent {
		return fmt.Errorf("import: unknown mode %v", mode)
	}

	products, err := prepareImport(store.KindProducts, data.Products)
	if err != nil {
		return err
	}
	missing, err := prepareImport(store.KindMissingItems, data.MissingItems)
	if err != nil {
		return err
	}
	sales, err := prepareImport(store.KindSales, data.Sales)
	if err != nil {
		return err
	}

	for _, k := range []store.Kind{store.KindProducts, store.KindMissingItems, store.KindSales} {
		f.locks[k].Lock()
		defer f.locks[k].Unlock()
	}

	batches := []struct {
		kind    store.Kind
		present bool
		recs    []store.Record
	}{
		{store.KindProducts, data.Products != nil, store.Records(products)},
		{store.KindSales, data.Sales != nil, store.Records(sales)},
		{store.KindMissingItems, data.MissingItems != nil, store.Records(missing)},
	}

	now := f.now().UTC()
	err = f.store.Update(ctx, func(tx *store.Tx) error {
		for _, b := range batches {
			if mode == ReplaceAll || b.present {
				if err := tx.Clear(ctx, b.kind); err != nil {
					return err
				}
			}
		}
		for _, b := range batches {
			if !b.present {
				continue
			}
			if err := tx.BulkPut(ctx, b.kind, b.recs); err != nil {
				return err
			}
		}
		return tx.SetMetadata(ctx, model.MetaLastSync, now)
	})
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	f.logger.Info("import complete",
		"mode", mode.String(),
		"products", len(products),
		"missingItems", len(missing),
		"sales", len(sales))
	return nil
}

func prepareImport[T model.Entity](kind store.Kind, items []T) ([]T, error) {
	if items == nil {
		return nil, nil
	}
	recs := make([]T, len(items))
	copy(recs, items)
	for i := range recs {
		if n, ok := any(&recs[i]).(normalizer); ok {
			n.Normalize()
		}
		if err := recs[i].Validate(); err != nil {
			return nil, &ImportError{Kind: kind, Index: i, ID: recs[i].RecordID(), Err: err}
		}
	}
	return recs, nil
}
