package store

import (
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stockroom/internal/model"
)

var testTime = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithClock(func() time.Time { return testTime }))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestProduct creates a product with minimal required fields.
func createTestProduct(id, name, category string, qty int) model.Product {
	return model.Product{
		ID:           id,
		NameAr:       name,
		Category:     category,
		Quantity:     qty,
		BuyingPrice:  model.Money("10"),
		SellingPrice: model.Money("15"),
		Price:        model.Money("15"),
		CreatedAt:    testTime,
		UpdatedAt:    testTime,
	}
}

// createTestSale creates a one-line cash sale.
func createTestSale(id string) model.Sale {
	return model.NewSale(id, model.SaleForm{
		Items:         []model.LineItem{model.NewLineItem("p1", "Pipe", 2, model.Money("5"))},
		PaymentMethod: model.PaymentCash,
	}, testTime)
}

// createTestMissingItem creates an unresolved missing item.
func createTestMissingItem(id string, resolved bool) model.MissingItem {
	m := model.MissingItem{
		ID:         id,
		NameAr:     "item " + id,
		Category:   "1",
		Priority:   model.PriorityMedium,
		Reason:     model.ReasonOutOfStock,
		DetectedAt: testTime,
	}
	if resolved {
		m.Resolve(testTime.Add(time.Hour))
	}
	return m
}

// openRaw opens a database without applying the schema.
func openRaw(path string) (*sql.DB, error) {
	return sql.Open("sqlite3", path)
}

// assertSameJSON compares two records by their JSON encoding, which is the
// form the store persists.
func assertSameJSON(t *testing.T, want, got any) {
	t.Helper()
	w, err := json.Marshal(want)
	require.NoError(t, err)
	g, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(w), string(g))
}
