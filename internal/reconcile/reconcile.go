// Package reconcile derives missing-item records from stock levels.
package reconcile

import (
	"fmt"
	"time"

	"github.com/roach88/stockroom/internal/ids"
	"github.com/roach88/stockroom/internal/model"
)

// MissingFromStock returns a new missing item for every out-of-stock
// product that has no unresolved missing item pointing at it. Resolved
// items do not block a new record, so a product that is restocked and runs
// out again is reported again.
//
// The result is in product order and holds at most one record per product.
// A nil generator yields IDs of the form auto-<productID>-<unix millis>.
// An ID already held by a record in missing gets a -2, -3, ... suffix, so
// a new record never replaces an existing one.
// MissingFromStock does not modify its inputs.
func MissingFromStock(products []model.Product, missing []model.MissingItem, now time.Time, gen ids.Generator) []model.MissingItem {
	open := make(map[string]bool, len(missing))
	taken := make(map[string]bool, len(missing))
	for _, m := range missing {
		taken[m.ID] = true
		if m.ProductID != "" && !m.IsResolved {
			open[m.ProductID] = true
		}
	}

	var out []model.MissingItem
	for _, p := range products {
		if !p.IsOutOfStock() || open[p.ID] {
			continue
		}
		open[p.ID] = true
		m := fromProduct(p, now, uniqueID(p, now, gen, taken))
		taken[m.ID] = true
		out = append(out, m)
	}
	return out
}

func uniqueID(p model.Product, now time.Time, gen ids.Generator, taken map[string]bool) string {
	id := fmt.Sprintf("auto-%s-%d", p.ID, now.UnixMilli())
	if gen != nil {
		id = gen.NewID()
	}
	if !taken[id] {
		return id
	}
	for n := 2; ; n++ {
		if candidate := fmt.Sprintf("%s-%d", id, n); !taken[candidate] {
			return candidate
		}
	}
}

func fromProduct(p model.Product, now time.Time, id string) model.MissingItem {
	price := p.UnitPrice()
	return model.MissingItem{
		ID:             id,
		ProductID:      p.ID,
		NameAr:         p.NameAr,
		NameEn:         p.NameEn,
		Category:       p.Category,
		Priority:       model.PriorityMedium,
		Reason:         model.ReasonOutOfStock,
		Description:    model.AutoDetectedDescription,
		Image:          p.Image,
		Supplier:       p.Supplier,
		EstimatedPrice: &price,
		DetectedAt:     now,
		IsResolved:     false,
	}
}
