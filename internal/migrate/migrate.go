// Package migrate moves products from legacy key/value storage into the
// record store, once.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/stockroom/internal/legacy"
	"github.com/roach88/stockroom/internal/model"
	"github.com/roach88/stockroom/internal/store"
)

// Source is the legacy storage the manager reads from.
type Source interface {
	GetItem(key string) (string, bool, error)
}

// MigrationError reports legacy data that could not be migrated. The
// migration flag stays unset so the next start retries.
type MigrationError struct {
	Err error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration from legacy storage failed: %v", e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

// IsMigrationError reports whether err wraps a *MigrationError.
func IsMigrationError(err error) bool {
	var me *MigrationError
	return errors.As(err, &me)
}

// Result describes what MigrateIfNeeded did.
type Result struct {
	// Skipped is true when an earlier run already migrated.
	Skipped bool
	// Migrated is the number of products copied.
	Migrated int
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithClock sets the time source used for the lastSync stamp.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager performs the one-time legacy migration.
type Manager struct {
	store  *store.Store
	source Source
	logger *slog.Logger
	now    func() time.Time
}

// NewManager returns a manager copying from source into st.
func NewManager(st *store.Store, source Source, opts ...Option) *Manager {
	m := &Manager{
		store:  st,
		source: source,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MigrateIfNeeded copies the legacy product list into the store unless the
// migration flag is already set. The products, the flag and the lastSync
// stamp are written in one transaction.
func (m *Manager) MigrateIfNeeded(ctx context.Context) (Result, error) {
	var done bool
	if _, err := m.store.GetMetadata(ctx, model.MetaMigratedFromLegacy, &done); err != nil {
		return Result{}, fmt.Errorf("read migration flag: %w", err)
	}
	if done {
		return Result{Skipped: true}, nil
	}

	raw, ok, err := m.source.GetItem(legacy.ProductsKey)
	if err != nil {
		return Result{}, m.fail(&MigrationError{Err: err})
	}
	if !ok {
		// Nothing to copy; record that so later starts skip the legacy read.
		if err := m.store.SetMetadata(ctx, model.MetaMigratedFromLegacy, true); err != nil {
			return Result{}, fmt.Errorf("set migration flag: %w", err)
		}
		return Result{}, nil
	}

	products, err := legacy.ParseProducts(raw)
	if err != nil {
		return Result{}, m.fail(&MigrationError{Err: err})
	}
	for i := range products {
		products[i].Normalize()
		if err := products[i].Validate(); err != nil {
			return Result{}, m.fail(&MigrationError{Err: err})
		}
	}

	now := m.now().UTC()
	err = m.store.Update(ctx, func(tx *store.Tx) error {
		if err := tx.BulkPut(ctx, store.KindProducts, store.Records(products)); err != nil {
			return err
		}
		if err := tx.SetMetadata(ctx, model.MetaMigratedFromLegacy, true); err != nil {
			return err
		}
		return tx.SetMetadata(ctx, model.MetaLastSync, now)
	})
	if err != nil {
		return Result{}, fmt.Errorf("write migrated products: %w", err)
	}

	m.logger.Info("migrated products from legacy storage", "count", len(products))
	return Result{Migrated: len(products)}, nil
}

func (m *Manager) fail(err *MigrationError) error {
	m.logger.Error("legacy migration failed", "error", err.Err)
	return err
}
