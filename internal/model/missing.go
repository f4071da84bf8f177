package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Priority ranks how urgently a missing item should be re-acquired.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Reason records why an item went missing.
type Reason string

const (
	ReasonOutOfStock Reason = "out_of_stock"
	ReasonDamaged    Reason = "damaged"
	ReasonLost       Reason = "lost"
	ReasonOther      Reason = "other"
)

// AutoDetectedDescription is the description given to records synthesized
// when a product runs out of stock.
const AutoDetectedDescription = "تم الكشف تلقائياً عند نفاد المخزون"

// MissingItem is a product the business wants to re-acquire.
// ProductID is set for auto-detected items and empty for manual entries.
type MissingItem struct {
	ID             string           `json:"id" validate:"required"`
	ProductID      string           `json:"productId,omitempty"`
	NameAr         string           `json:"nameAr" validate:"required"`
	NameEn         string           `json:"nameEn,omitempty"`
	Category       string           `json:"category"`
	Priority       Priority         `json:"priority" validate:"oneof=low medium high urgent"`
	Reason         Reason           `json:"reason" validate:"oneof=out_of_stock damaged lost other"`
	Description    string           `json:"description,omitempty"`
	Image          string           `json:"image,omitempty"`
	Supplier       string           `json:"supplier,omitempty"`
	EstimatedPrice *decimal.Decimal `json:"estimatedPrice,omitempty" validate:"omitempty,gte=0"`
	DetectedAt     time.Time        `json:"detectedAt"`
	ResolvedAt     *time.Time       `json:"resolvedAt,omitempty"`
	IsResolved     bool             `json:"isResolved"`
}

// RecordID returns the missing item's store key.
func (m MissingItem) RecordID() string { return m.ID }

// Resolve marks the item as re-acquired at now.
func (m *MissingItem) Resolve(now time.Time) {
	m.IsResolved = true
	m.ResolvedAt = &now
}

// Normalize canonicalises the item's text fields.
func (m *MissingItem) Normalize() {
	m.NameAr = NormalizeText(m.NameAr)
	m.NameEn = NormalizeText(m.NameEn)
	m.Supplier = NormalizeText(m.Supplier)
}

// Validate checks enums, names and timestamps.
func (m MissingItem) Validate() error {
	var extra []string
	if m.DetectedAt.IsZero() {
		extra = append(extra, "MissingItem.detectedAt is zero")
	}
	if !m.IsResolved && m.ResolvedAt != nil {
		extra = append(extra, "MissingItem.resolvedAt set on unresolved item")
	}
	return checkStruct("missing item", m.ID, m, extra...)
}
