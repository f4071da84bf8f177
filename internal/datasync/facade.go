// Package datasync is the persistence facade the application talks to.
//
// It wraps the record store with per-kind save and load operations, image
// optimisation for products and missing items, the one-time legacy
// migration, and whole-database export and import. Save and load report
// failure through their return value and the log rather than an error so
// that callers can keep working from memory.
package datasync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/stockroom/internal/imagecodec"
	"github.com/roach88/stockroom/internal/migrate"
	"github.com/roach88/stockroom/internal/model"
	"github.com/roach88/stockroom/internal/store"
)

// Compressor optimises embedded images before they are stored.
type Compressor interface {
	IsRaw(payload string) bool
	Compress(ctx context.Context, payload string) (string, error)
}

// Migrator runs the one-time legacy migration.
type Migrator interface {
	MigrateIfNeeded(ctx context.Context) (migrate.Result, error)
}

// Options configures a Facade. Zero values select defaults.
type Options struct {
	// Compressor defaults to an imagecodec.Codec built from Quality and
	// MaxWidth.
	Compressor Compressor
	// Migrator is optional; without one LoadProducts skips migration.
	Migrator Migrator
	Logger   *slog.Logger
	Clock    func() time.Time

	Quality  float64
	MaxWidth int
}

// Facade is safe for concurrent use. Saves of the same kind are applied
// one at a time in the order they acquire the kind's lock.
type Facade struct {
	store      *store.Store
	compressor Compressor
	migrator   Migrator
	logger     *slog.Logger
	now        func() time.Time

	locks map[store.Kind]*sync.Mutex
}

// New returns a Facade over st.
func New(st *store.Store, opts Options) *Facade {
	f := &Facade{
		store:      st,
		compressor: opts.Compressor,
		migrator:   opts.Migrator,
		logger:     opts.Logger,
		now:        opts.Clock,
		locks:      make(map[store.Kind]*sync.Mutex, len(store.Kinds)),
	}
	if f.compressor == nil {
		f.compressor = imagecodec.New(opts.Quality, opts.MaxWidth)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	if f.now == nil {
		f.now = time.Now
	}
	for _, k := range store.Kinds {
		f.locks[k] = &sync.Mutex{}
	}
	return f
}

// Store returns the underlying record store.
func (f *Facade) Store() *store.Store {
	return f.store
}

// SaveProducts optimises product images and upserts the products.
func (f *Facade) SaveProducts(ctx context.Context, products []model.Product) bool {
	return saveAll(ctx, f, store.KindProducts, products, func(ctx context.Context, p *model.Product) {
		p.Image = f.optimizeImage(ctx, "product", p.ID, p.Image)
	})
}

// SaveMissingItems optimises item images and upserts the items.
func (f *Facade) SaveMissingItems(ctx context.Context, items []model.MissingItem) bool {
	return saveAll(ctx, f, store.KindMissingItems, items, func(ctx context.Context, m *model.MissingItem) {
		m.Image = f.optimizeImage(ctx, "missing item", m.ID, m.Image)
	})
}

// SaveSales upserts sales.
func (f *Facade) SaveSales(ctx context.Context, sales []model.Sale) bool {
	return saveAll[model.Sale](ctx, f, store.KindSales, sales, nil)
}

// SaveDebts upserts client debts.
func (f *Facade) SaveDebts(ctx context.Context, debts []model.Debt) bool {
	return saveAll[model.Debt](ctx, f, store.KindDebts, debts, nil)
}

// SaveLedger upserts ledger entries.
func (f *Facade) SaveLedger(ctx context.Context, entries []model.LedgerEntry) bool {
	return saveAll[model.LedgerEntry](ctx, f, store.KindLedger, entries, nil)
}

// LoadProducts runs the legacy migration if needed and returns all
// products. A failed migration is logged and the load continues.
// The migration writes products, so it holds the products lock.
func (f *Facade) LoadProducts(ctx context.Context) []model.Product {
	if f.migrator != nil {
		lock := f.locks[store.KindProducts]
		lock.Lock()
		_, err := f.migrator.MigrateIfNeeded(ctx)
		lock.Unlock()
		if err != nil {
			f.logger.Warn("legacy migration skipped", "error", err)
		}
	}
	return loadAll[model.Product](ctx, f, store.KindProducts)
}

// LoadMissingItems returns all missing items.
func (f *Facade) LoadMissingItems(ctx context.Context) []model.MissingItem {
	return loadAll[model.MissingItem](ctx, f, store.KindMissingItems)
}

// LoadSales returns all sales.
func (f *Facade) LoadSales(ctx context.Context) []model.Sale {
	return loadAll[model.Sale](ctx, f, store.KindSales)
}

// LoadDebts returns all client debts.
func (f *Facade) LoadDebts(ctx context.Context) []model.Debt {
	return loadAll[model.Debt](ctx, f, store.KindDebts)
}

// LoadLedger returns all ledger entries.
func (f *Facade) LoadLedger(ctx context.Context) []model.LedgerEntry {
	return loadAll[model.LedgerEntry](ctx, f, store.KindLedger)
}

// DeleteProduct removes one product.
func (f *Facade) DeleteProduct(ctx context.Context, id string) bool {
	return f.deleteOne(ctx, store.KindProducts, id)
}

// DeleteMissingItem removes one missing item.
func (f *Facade) DeleteMissingItem(ctx context.Context, id string) bool {
	return f.deleteOne(ctx, store.KindMissingItems, id)
}

// DeleteSale removes one sale.
func (f *Facade) DeleteSale(ctx context.Context, id string) bool {
	return f.deleteOne(ctx, store.KindSales, id)
}

// DeleteDebt removes one debt.
func (f *Facade) DeleteDebt(ctx context.Context, id string) bool {
	return f.deleteOne(ctx, store.KindDebts, id)
}

// DeleteLedgerEntry removes one ledger entry.
func (f *Facade) DeleteLedgerEntry(ctx context.Context, id string) bool {
	return f.deleteOne(ctx, store.KindLedger, id)
}

// LastSync returns the time of the last successful save or import.
func (f *Facade) LastSync(ctx context.Context) (time.Time, bool, error) {
	var t time.Time
	ok, err := f.store.GetMetadata(ctx, model.MetaLastSync, &t)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	return t, true, nil
}

func (f *Facade) deleteOne(ctx context.Context, kind store.Kind, id string) bool {
	lock := f.locks[kind]
	lock.Lock()
	defer lock.Unlock()

	if err := f.store.Delete(ctx, kind, id); err != nil {
		f.logger.Error("delete failed", "kind", kind, "id", id, "error", err)
		return false
	}
	return true
}

// optimizeImage returns the compressed payload, or the original when it is
// already optimised or cannot be compressed.
func (f *Facade) optimizeImage(ctx context.Context, kind, id, payload string) string {
	if payload == "" || !f.compressor.IsRaw(payload) {
		return payload
	}
	out, err := f.compressor.Compress(ctx, payload)
	if err != nil {
		f.logger.Warn("image optimisation failed; keeping original", "kind", kind, "id", id, "error", err)
		return payload
	}
	return out
}

type normalizer interface {
	Normalize()
}

// saveAll prepares, validates and upserts items in one transaction that
// also stamps lastSync. The kind lock is held from preparation through
// commit.
func saveAll[T model.Entity](ctx context.Context, f *Facade, kind store.Kind, items []T, prepare func(context.Context, *T)) bool {
	lock := f.locks[kind]
	lock.Lock()
	defer lock.Unlock()

	recs := make([]T, len(items))
	copy(recs, items)
	for i := range recs {
		if prepare != nil {
			prepare(ctx, &recs[i])
		}
		if n, ok := any(&recs[i]).(normalizer); ok {
			n.Normalize()
		}
		if err := recs[i].Validate(); err != nil {
			f.logger.Error("save rejected invalid record", "kind", kind, "index", i, "error", err)
			return false
		}
	}

	now := f.now().UTC()
	err := f.store.Update(ctx, func(tx *store.Tx) error {
		if err := tx.BulkPut(ctx, kind, store.Records(recs)); err != nil {
			return err
		}
		return tx.SetMetadata(ctx, model.MetaLastSync, now)
	})
	if err != nil {
		f.logger.Error("save failed", "kind", kind, "count", len(recs), "error", err)
		return false
	}
	f.logger.Debug("saved records", "kind", kind, "count", len(recs))
	return true
}

// loadAll returns every stored record of kind, skipping records that no
// longer validate. Failures yield an empty slice.
func loadAll[T model.Entity](ctx context.Context, f *Facade, kind store.Kind) []T {
	items, err := store.GetAll[T](ctx, f.store, kind)
	if err != nil {
		f.logger.Error("load failed", "kind", kind, "error", err)
		return []T{}
	}
	return keepValid(f.logger, kind, items)
}

func keepValid[T model.Entity](logger *slog.Logger, kind store.Kind, items []T) []T {
	out := items[:0]
	for _, it := range items {
		if err := it.Validate(); err != nil {
			logger.Warn("skipping invalid stored record", "kind", kind, "id", it.RecordID(), "error", err)
			continue
		}
		out = append(out, it)
	}
	return out
}
