package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how a sale was settled.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
)

// LineItem is one product line of a sale, debt or ledger entry.
// ProductName is a snapshot taken when the line was recorded.
type LineItem struct {
	ProductID   string          `json:"productId" validate:"required"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity" validate:"gt=0"`
	UnitPrice   decimal.Decimal `json:"unitPrice" validate:"gte=0"`
	TotalPrice  decimal.Decimal `json:"totalPrice" validate:"gte=0"`
}

// NewLineItem builds a line and computes its total.
func NewLineItem(productID, name string, qty int, unit decimal.Decimal) LineItem {
	return LineItem{
		ProductID:   productID,
		ProductName: name,
		Quantity:    qty,
		UnitPrice:   unit,
		TotalPrice:  unit.Mul(decimal.NewFromInt(int64(qty))),
	}
}

// Sale is an immutable sales transaction.
type Sale struct {
	ID            string          `json:"id" validate:"required"`
	Items         []LineItem      `json:"items" validate:"required,min=1,dive"`
	TotalAmount   decimal.Decimal `json:"totalAmount" validate:"gte=0"`
	CustomerName  string          `json:"customerName,omitempty"`
	CustomerPhone string          `json:"customerPhone,omitempty"`
	PaymentMethod PaymentMethod   `json:"paymentMethod" validate:"oneof=cash card transfer"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// SaleForm is the caller input for recording a sale.
type SaleForm struct {
	Items         []LineItem
	CustomerName  string
	CustomerPhone string
	PaymentMethod PaymentMethod
	Notes         string
}

// NewSale builds a sale from a form, totalling its lines.
func NewSale(id string, form SaleForm, now time.Time) Sale {
	items := append([]LineItem(nil), form.Items...)
	return Sale{
		ID:            id,
		Items:         items,
		TotalAmount:   sumLines(items),
		CustomerName:  NormalizeText(form.CustomerName),
		CustomerPhone: NormalizeText(form.CustomerPhone),
		PaymentMethod: form.PaymentMethod,
		Notes:         form.Notes,
		CreatedAt:     now,
	}
}

// RecordID returns the sale's store key.
func (s Sale) RecordID() string { return s.ID }

// Normalize canonicalises the sale's text fields.
func (s *Sale) Normalize() {
	s.CustomerName = NormalizeText(s.CustomerName)
	s.CustomerPhone = NormalizeText(s.CustomerPhone)
}

// Validate checks the item list, payment method and creation time.
func (s Sale) Validate() error {
	var extra []string
	if s.CreatedAt.IsZero() {
		extra = append(extra, "Sale.createdAt is zero")
	}
	return checkStruct("sale", s.ID, s, extra...)
}
