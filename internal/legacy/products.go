package legacy

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/stockroom/internal/model"
)

// SaveProducts writes the product list and stamps the last sync time.
// It reports false and logs on failure.
func (f *File) SaveProducts(products []model.Product) bool {
	if products == nil {
		products = []model.Product{}
	}
	data, err := json.Marshal(products)
	if err != nil {
		f.logger.Error("failed to encode legacy products", "error", err)
		return false
	}
	now := f.now().UTC()
	err = f.update(func(items map[string]string) {
		items[ProductsKey] = string(data)
		items[LastSyncKey] = now.Format(timestampLayout)
	})
	if err != nil {
		f.logger.Error("failed to save legacy products", "error", err)
		return false
	}
	return true
}

// LoadProducts returns the stored products, or an empty list when nothing
// is stored or the stored value cannot be read.
func (f *File) LoadProducts() []model.Product {
	raw, ok, err := f.GetItem(ProductsKey)
	if err != nil {
		f.logger.Error("failed to read legacy products", "error", err)
		return []model.Product{}
	}
	if !ok || raw == "" {
		return []model.Product{}
	}
	products, err := ParseProducts(raw)
	if err != nil {
		f.logger.Error("failed to parse legacy products", "error", err)
		return []model.Product{}
	}
	return products
}

// LastSync returns the time of the last SaveProducts.
func (f *File) LastSync() (time.Time, bool) {
	raw, ok, err := f.GetItem(LastSyncKey)
	if err != nil {
		f.logger.Error("failed to get last sync time", "error", err)
		return time.Time{}, false
	}
	if !ok {
		return time.Time{}, false
	}
	t, err := parseTimestamp(raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ClearData removes the product list and the last sync time.
func (f *File) ClearData() bool {
	err := f.update(func(items map[string]string) {
		delete(items, ProductsKey)
		delete(items, LastSyncKey)
	})
	if err != nil {
		f.logger.Error("failed to clear legacy storage", "error", err)
		return false
	}
	return true
}

// timestampLayout matches the millisecond ISO form the legacy writer used.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// legacyProduct carries timestamps as raw strings so that every layout the
// old writer produced can be re-hydrated.
type legacyProduct struct {
	model.Product
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// ParseProducts decodes a stored product list, re-hydrating timestamps.
func ParseProducts(raw string) ([]model.Product, error) {
	var stored []legacyProduct
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("decode product list: %w", err)
	}

	products := make([]model.Product, 0, len(stored))
	for i, lp := range stored {
		p := lp.Product
		created, err := parseTimestamp(lp.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("product %d (%q): createdAt: %w", i, p.ID, err)
		}
		p.CreatedAt = created
		if lp.UpdatedAt != "" {
			updated, err := parseTimestamp(lp.UpdatedAt)
			if err != nil {
				return nil, fmt.Errorf("product %d (%q): updatedAt: %w", i, p.ID, err)
			}
			p.UpdatedAt = updated
		}
		products = append(products, p)
	}
	return products, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
