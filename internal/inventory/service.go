// Package inventory is the in-memory application state: products, missing
// items, sales, client debts and the two-party ledger, kept in step with
// the persistence facade.
//
// Every mutation updates the cache first and then persists. When the
// facade reports a failed save the cache keeps the change and the method
// returns ErrNotPersisted so the caller can warn that the change lives
// only in memory.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/stockroom/internal/ids"
	"github.com/roach88/stockroom/internal/model"
	"github.com/roach88/stockroom/internal/reconcile"
)

var (
	// ErrNotFound is returned when an operation names an unknown record.
	ErrNotFound = errors.New("record not found")

	// ErrNotPersisted is returned when a change was applied in memory but
	// could not be saved.
	ErrNotPersisted = errors.New("change not persisted")
)

// Persistence is the subset of the sync facade the service uses.
type Persistence interface {
	LoadProducts(ctx context.Context) []model.Product
	LoadMissingItems(ctx context.Context) []model.MissingItem
	LoadSales(ctx context.Context) []model.Sale
	LoadDebts(ctx context.Context) []model.Debt
	LoadLedger(ctx context.Context) []model.LedgerEntry

	SaveProducts(ctx context.Context, products []model.Product) bool
	SaveMissingItems(ctx context.Context, items []model.MissingItem) bool
	SaveSales(ctx context.Context, sales []model.Sale) bool
	SaveDebts(ctx context.Context, debts []model.Debt) bool
	SaveLedger(ctx context.Context, entries []model.LedgerEntry) bool

	DeleteProduct(ctx context.Context, id string) bool
	DeleteMissingItem(ctx context.Context, id string) bool
}

// Option configures a Service.
type Option func(*Service)

// WithIDs sets the generator for new record IDs.
func WithIDs(g ids.Generator) Option {
	return func(s *Service) { s.ids = g }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMissingIDs sets the generator for auto-detected missing items. By
// default they are named auto-<productID>-<unix millis>.
func WithMissingIDs(g ids.Generator) Option {
	return func(s *Service) { s.missingIDs = g }
}

// Service owns the cached state. All methods are safe for concurrent use;
// mutations are serialised.
type Service struct {
	data       Persistence
	ids        ids.Generator
	missingIDs ids.Generator
	now        func() time.Time
	logger     *slog.Logger

	mu       sync.Mutex
	products []model.Product
	missing  []model.MissingItem
	sales    []model.Sale
	debts    []model.Debt
	ledger   []model.LedgerEntry
}

// New returns a Service with an empty cache. Call Load to hydrate it.
func New(data Persistence, opts ...Option) *Service {
	s := &Service{
		data:   data,
		ids:    ids.UUIDv7Generator{},
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the cache with the persisted state. It holds the service
// lock throughout, so mutations wait for the load instead of being replaced
// by it.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		products []model.Product
		missing  []model.MissingItem
		sales    []model.Sale
		debts    []model.Debt
		ledger   []model.LedgerEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { products = s.data.LoadProducts(gctx); return nil })
	g.Go(func() error { missing = s.data.LoadMissingItems(gctx); return nil })
	g.Go(func() error { sales = s.data.LoadSales(gctx); return nil })
	g.Go(func() error { debts = s.data.LoadDebts(gctx); return nil })
	g.Go(func() error { ledger = s.data.LoadLedger(gctx); return nil })
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.products, s.missing, s.sales, s.debts, s.ledger = products, missing, sales, debts, ledger
	s.logger.Debug("inventory loaded",
		"products", len(products),
		"missingItems", len(missing),
		"sales", len(sales),
		"debts", len(debts),
		"ledger", len(ledger))
	return nil
}

// State is a copy of the cached records.
type State struct {
	Products     []model.Product
	MissingItems []model.MissingItem
	Sales        []model.Sale
	Debts        []model.Debt
	Ledger       []model.LedgerEntry
}

// Snapshot returns copies of the cached slices.
func (s *Service) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Products:     clone(s.products),
		MissingItems: clone(s.missing),
		Sales:        clone(s.sales),
		Debts:        clone(s.debts),
		Ledger:       clone(s.ledger),
	}
}

// Product returns the cached product with id.
func (s *Service) Product(id string) (model.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.products, id)
	if i < 0 {
		return model.Product{}, false
	}
	return s.products[i], true
}

// UpsertProduct adds p or replaces the product with the same ID. An empty
// ID is assigned; CreatedAt is kept from the stored product or set to now.
func (s *Service) UpsertProduct(ctx context.Context, p model.Product) (model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if p.ID == "" {
		p.ID = s.ids.NewID()
	}
	i := indexOf(s.products, p.ID)
	switch {
	case i >= 0:
		p.CreatedAt = s.products[i].CreatedAt
	case p.CreatedAt.IsZero():
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.Normalize()
	if err := p.Validate(); err != nil {
		return model.Product{}, err
	}

	if i >= 0 {
		s.products[i] = p
	} else {
		s.products = append(s.products, p)
	}

	saved := s.data.SaveProducts(ctx, []model.Product{p})
	return p, s.finish(ctx, saved)
}

// DeleteProduct removes a product. Missing items that point at it are
// kept.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.products, id)
	if i < 0 {
		return fmt.Errorf("product %q: %w", id, ErrNotFound)
	}
	s.products = append(s.products[:i], s.products[i+1:]...)
	if !s.data.DeleteProduct(ctx, id) {
		return ErrNotPersisted
	}
	return nil
}

// RecordSale records a sale and takes the sold units out of stock. Stock
// floors at zero. Line names and prices default from the product.
func (s *Service) RecordSale(ctx context.Context, form model.SaleForm) (model.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]model.LineItem, len(form.Items))
	for n, it := range form.Items {
		i := indexOf(s.products, it.ProductID)
		if i < 0 {
			return model.Sale{}, fmt.Errorf("sale line %d: product %q: %w", n, it.ProductID, ErrNotFound)
		}
		p := s.products[i]
		name, price := it.ProductName, it.UnitPrice
		if name == "" {
			name = p.NameAr
		}
		if price.IsZero() {
			price = p.UnitPrice()
		}
		items[n] = model.NewLineItem(p.ID, name, it.Quantity, price)
	}
	form.Items = items
	if form.PaymentMethod == "" {
		form.PaymentMethod = model.PaymentCash
	}

	now := s.now()
	sale := model.NewSale(s.ids.NewID(), form, now)
	if err := sale.Validate(); err != nil {
		return model.Sale{}, err
	}

	var changed []model.Product
	for _, it := range sale.Items {
		i := indexOf(s.products, it.ProductID)
		p := &s.products[i]
		p.Quantity = max(0, p.Quantity-it.Quantity)
		p.UpdatedAt = now
		changed = upsertLocal(changed, *p)
	}
	s.sales = append(s.sales, sale)

	saved := s.data.SaveSales(ctx, []model.Sale{sale})
	saved = s.data.SaveProducts(ctx, changed) && saved
	return sale, s.finish(ctx, saved)
}

// AddMissingItem records a manually reported missing item.
func (s *Service) AddMissingItem(ctx context.Context, m model.MissingItem) (model.MissingItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = s.ids.NewID()
	}
	if m.DetectedAt.IsZero() {
		m.DetectedAt = s.now()
	}
	if m.Priority == "" {
		m.Priority = model.PriorityMedium
	}
	if m.Reason == "" {
		m.Reason = model.ReasonOther
	}
	m.IsResolved = false
	m.ResolvedAt = nil
	m.Normalize()
	if err := m.Validate(); err != nil {
		return model.MissingItem{}, err
	}

	s.missing = append(s.missing, m)
	if !s.data.SaveMissingItems(ctx, []model.MissingItem{m}) {
		return m, ErrNotPersisted
	}
	return m, nil
}

// ResolveMissingItem marks a missing item as re-acquired.
func (s *Service) ResolveMissingItem(ctx context.Context, id string) (model.MissingItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.missing, id)
	if i < 0 {
		return model.MissingItem{}, fmt.Errorf("missing item %q: %w", id, ErrNotFound)
	}
	s.missing[i].Resolve(s.now())
	m := s.missing[i]
	if !s.data.SaveMissingItems(ctx, []model.MissingItem{m}) {
		return m, ErrNotPersisted
	}
	return m, nil
}

// DeleteMissingItem removes a missing item.
func (s *Service) DeleteMissingItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.missing, id)
	if i < 0 {
		return fmt.Errorf("missing item %q: %w", id, ErrNotFound)
	}
	s.missing = append(s.missing[:i], s.missing[i+1:]...)
	if !s.data.DeleteMissingItem(ctx, id) {
		return ErrNotPersisted
	}
	return nil
}

// Reconcile records a missing item for every out-of-stock product that
// has no open one and returns the new records.
func (s *Service) Reconcile(ctx context.Context) ([]model.MissingItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := s.reconcileLocked()
	if len(added) == 0 {
		return nil, nil
	}
	if !s.data.SaveMissingItems(ctx, added) {
		return added, ErrNotPersisted
	}
	return added, nil
}

// AddDebt opens a client debt.
func (s *Service) AddDebt(ctx context.Context, form model.DebtForm) (model.Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := model.NewDebt(s.ids.NewID(), form, s.now())
	if err := d.Validate(); err != nil {
		return model.Debt{}, err
	}
	s.debts = append(s.debts, d)
	if !s.data.SaveDebts(ctx, []model.Debt{d}) {
		return d, ErrNotPersisted
	}
	return d, nil
}

// PayDebt applies a payment to a debt.
func (s *Service) PayDebt(ctx context.Context, id string, amount decimal.Decimal, note string) (model.Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.debts, id)
	if i < 0 {
		return model.Debt{}, fmt.Errorf("debt %q: %w", id, ErrNotFound)
	}
	d := s.debts[i]
	if err := d.ApplyPayment(amount, note, s.now()); err != nil {
		return model.Debt{}, err
	}
	s.debts[i] = d
	if !s.data.SaveDebts(ctx, []model.Debt{d}) {
		return d, ErrNotPersisted
	}
	return d, nil
}

// AddLedgerEntry records a ledger entry, classifying the running balance.
func (s *Service) AddLedgerEntry(ctx context.Context, form model.LedgerForm) (model.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := model.NewLedgerEntry(s.ids.NewID(), form, s.ledger, s.now())
	if err := e.Validate(); err != nil {
		return model.LedgerEntry{}, err
	}
	s.ledger = append(s.ledger, e)
	if !s.data.SaveLedger(ctx, []model.LedgerEntry{e}) {
		return e, ErrNotPersisted
	}
	return e, nil
}

// PayLedgerEntry applies a payment to a ledger entry.
func (s *Service) PayLedgerEntry(ctx context.Context, id string, amount decimal.Decimal, note string) (model.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.ledger, id)
	if i < 0 {
		return model.LedgerEntry{}, fmt.Errorf("ledger entry %q: %w", id, ErrNotFound)
	}
	e := s.ledger[i]
	if err := e.ApplyPayment(amount, note, s.now()); err != nil {
		return model.LedgerEntry{}, err
	}
	s.ledger[i] = e
	if !s.data.SaveLedger(ctx, []model.LedgerEntry{e}) {
		return e, ErrNotPersisted
	}
	return e, nil
}

// finish runs the reconciler after a product change and folds both
// persistence results into one error.
func (s *Service) finish(ctx context.Context, saved bool) error {
	added := s.reconcileLocked()
	if len(added) > 0 && !s.data.SaveMissingItems(ctx, added) {
		saved = false
	}
	if !saved {
		return ErrNotPersisted
	}
	return nil
}

func (s *Service) reconcileLocked() []model.MissingItem {
	added := reconcile.MissingFromStock(s.products, s.missing, s.now(), s.missingIDs)
	if len(added) > 0 {
		s.missing = append(s.missing, added...)
		s.logger.Info("out-of-stock products detected", "count", len(added))
	}
	return added
}

func indexOf[T model.Entity](items []T, id string) int {
	for i, it := range items {
		if it.RecordID() == id {
			return i
		}
	}
	return -1
}

func upsertLocal(items []model.Product, p model.Product) []model.Product {
	if i := indexOf(items, p.ID); i >= 0 {
		items[i] = p
		return items
	}
	return append(items, p)
}

func clone[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}
