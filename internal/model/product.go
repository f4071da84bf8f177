package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultMinStock applies when a product carries no minimum-stock threshold.
const DefaultMinStock = 5

// Product is a stocked item.
type Product struct {
	ID           string          `json:"id" validate:"required"`
	NameAr       string          `json:"nameAr" validate:"required"`
	NameEn       string          `json:"nameEn,omitempty"`
	Category     string          `json:"category" validate:"required"`
	Quantity     int             `json:"quantity" validate:"gte=0"`
	BuyingPrice  decimal.Decimal `json:"buyingPrice" validate:"gte=0"`
	SellingPrice decimal.Decimal `json:"sellingPrice" validate:"gte=0"`
	// Price mirrors SellingPrice for records written before the split.
	Price     decimal.Decimal `json:"price" validate:"gte=0"`
	Supplier  string          `json:"supplier,omitempty"`
	Image     string          `json:"image,omitempty"`
	MinStock  *int            `json:"minStock,omitempty" validate:"omitempty,gte=0"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// RecordID returns the product's store key.
func (p Product) RecordID() string { return p.ID }

// EffectiveMinStock returns MinStock or DefaultMinStock when unset.
func (p Product) EffectiveMinStock() int {
	if p.MinStock == nil {
		return DefaultMinStock
	}
	return *p.MinStock
}

// IsOutOfStock reports whether the product has no units left.
func (p Product) IsOutOfStock() bool {
	return p.Quantity == 0
}

// IsLowStock reports whether the product has units left but no more than
// its minimum-stock threshold.
func (p Product) IsLowStock() bool {
	return p.Quantity > 0 && p.Quantity <= p.EffectiveMinStock()
}

// UnitPrice is the price a sale charges per unit.
func (p Product) UnitPrice() decimal.Decimal {
	if p.SellingPrice.IsZero() {
		return p.Price
	}
	return p.SellingPrice
}

// Normalize canonicalises text fields and reconciles the legacy price field.
func (p *Product) Normalize() {
	p.NameAr = NormalizeText(p.NameAr)
	p.NameEn = NormalizeText(p.NameEn)
	p.Supplier = NormalizeText(p.Supplier)
	if p.SellingPrice.IsZero() && !p.Price.IsZero() {
		p.SellingPrice = p.Price
	}
	if p.Price.IsZero() && !p.SellingPrice.IsZero() {
		p.Price = p.SellingPrice
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
}

// Validate checks the product's required fields and non-negative amounts.
func (p Product) Validate() error {
	var extra []string
	if p.CreatedAt.IsZero() {
		extra = append(extra, "Product.createdAt is zero")
	}
	return checkStruct("product", p.ID, p, extra...)
}
