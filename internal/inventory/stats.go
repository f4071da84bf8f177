package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/stockroom/internal/model"
)

// Stats summarises the cached state.
type Stats struct {
	TotalProducts     int             `json:"totalProducts"`
	OutOfStock        int             `json:"outOfStock"`
	LowStock          int             `json:"lowStock"`
	TotalSales        int             `json:"totalSales"`
	Revenue           decimal.Decimal `json:"revenue"`
	UnresolvedMissing int             `json:"unresolvedMissing"`
	OpenDebts         int             `json:"openDebts"`
	TotalOwed         decimal.Decimal `json:"totalOwed"`
}

// Stats computes counts and totals over the cache.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		TotalProducts: len(s.products),
		TotalSales:    len(s.sales),
	}
	for _, p := range s.products {
		switch {
		case p.IsOutOfStock():
			st.OutOfStock++
		case p.IsLowStock():
			st.LowStock++
		}
	}
	for _, sale := range s.sales {
		st.Revenue = st.Revenue.Add(sale.TotalAmount)
	}
	for _, m := range s.missing {
		if !m.IsResolved {
			st.UnresolvedMissing++
		}
	}
	for _, d := range s.debts {
		if !d.IsPaid {
			st.OpenDebts++
			st.TotalOwed = st.TotalOwed.Add(d.RemainingAmount)
		}
	}
	return st
}

// Search returns the products whose Arabic or English name contains term,
// ignoring case. An empty term matches everything.
func (s *Service) Search(term string) []model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	term = model.NormalizeText(term)
	out := []model.Product{}
	for _, p := range s.products {
		if term == "" ||
			model.ContainsFold(p.NameAr, term) ||
			model.ContainsFold(p.NameEn, term) {
			out = append(out, p)
		}
	}
	return out
}
