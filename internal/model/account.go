package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidPayment is returned for payments that are not strictly positive.
var ErrInvalidPayment = errors.New("payment amount must be positive")

// Account is the running balance shared by client debts and ledger entries.
type Account struct {
	Items           []LineItem      `json:"items" validate:"dive"`
	TotalAmount     decimal.Decimal `json:"totalAmount" validate:"gte=0"`
	PaidAmount      decimal.Decimal `json:"paidAmount" validate:"gte=0"`
	RemainingAmount decimal.Decimal `json:"remainingAmount" validate:"gte=0"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	IsPaid          bool            `json:"isPaid"`
	Notes           string          `json:"notes,omitempty"`
}

// NewAccount opens a balance for items at now.
func NewAccount(items []LineItem, notes string, now time.Time) Account {
	total := sumLines(items)
	return Account{
		Items:           append([]LineItem(nil), items...),
		TotalAmount:     total,
		PaidAmount:      decimal.Decimal{},
		RemainingAmount: total,
		CreatedAt:       now,
		UpdatedAt:       now,
		IsPaid:          false,
		Notes:           notes,
	}
}

// ApplyPayment records a payment. Overpayment is accepted: the remaining
// amount floors at zero and the account is marked paid.
func (a *Account) ApplyPayment(amount decimal.Decimal, note string, now time.Time) error {
	if amount.Sign() <= 0 {
		return ErrInvalidPayment
	}
	a.PaidAmount = a.PaidAmount.Add(amount)
	remaining := a.TotalAmount.Sub(a.PaidAmount)
	a.IsPaid = remaining.Sign() <= 0
	a.RemainingAmount = decimal.Max(decimal.Decimal{}, remaining)
	a.UpdatedAt = now
	if note != "" {
		a.Notes = fmt.Sprintf("%s\nدفعة: %s دج - %s", a.Notes, amount.String(), note)
	}
	return nil
}

func (a Account) validate(kind, id string, v any) error {
	var extra []string
	if a.CreatedAt.IsZero() {
		extra = append(extra, "createdAt is zero")
	}
	return checkStruct(kind, id, v, extra...)
}

// Debt is money a client owes for goods taken on credit.
type Debt struct {
	ID          string `json:"id" validate:"required"`
	ClientName  string `json:"clientName" validate:"required"`
	ClientPhone string `json:"clientPhone,omitempty"`
	Account
}

// DebtForm is the caller input for opening a debt.
type DebtForm struct {
	ClientName  string
	ClientPhone string
	Items       []LineItem
	Notes       string
}

// NewDebt opens a debt from a form.
func NewDebt(id string, form DebtForm, now time.Time) Debt {
	return Debt{
		ID:          id,
		ClientName:  NormalizeText(form.ClientName),
		ClientPhone: NormalizeText(form.ClientPhone),
		Account:     NewAccount(form.Items, form.Notes, now),
	}
}

// RecordID returns the debt's store key.
func (d Debt) RecordID() string { return d.ID }

// Normalize canonicalises the debt's text fields.
func (d *Debt) Normalize() {
	d.ClientName = NormalizeText(d.ClientName)
	d.ClientPhone = NormalizeText(d.ClientPhone)
}

// Validate checks the client and balance fields.
func (d Debt) Validate() error {
	return d.Account.validate("debt", d.ID, d)
}

// BalanceType says which party of the two-party ledger owes the other.
type BalanceType string

const (
	BalanceAbdullahOwes BalanceType = "abdullah_owes"
	BalanceBokraeOwes   BalanceType = "bokrae_owes"
	BalanceBalanced     BalanceType = "balanced"
)

// LedgerEntry is one record of the internal two-party running ledger.
type LedgerEntry struct {
	ID          string      `json:"id" validate:"required"`
	BalanceType BalanceType `json:"balanceType,omitempty" validate:"omitempty,oneof=abdullah_owes bokrae_owes balanced"`
	Account
}

// LedgerForm is the caller input for a ledger entry.
type LedgerForm struct {
	Items []LineItem
	Notes string
}

// NewLedgerEntry opens a ledger entry, classifying the running balance
// against the entries already recorded.
func NewLedgerEntry(id string, form LedgerForm, previous []LedgerEntry, now time.Time) LedgerEntry {
	acct := NewAccount(form.Items, form.Notes, now)
	return LedgerEntry{
		ID:          id,
		BalanceType: NextBalanceType(previous, acct.TotalAmount),
		Account:     acct,
	}
}

// NextBalanceType classifies the balance after adding total to the
// remaining amounts of previous entries.
func NextBalanceType(previous []LedgerEntry, total decimal.Decimal) BalanceType {
	balance := total
	for _, e := range previous {
		balance = balance.Add(e.RemainingAmount)
	}
	switch balance.Sign() {
	case 1:
		return BalanceAbdullahOwes
	case -1:
		return BalanceBokraeOwes
	default:
		return BalanceBalanced
	}
}

// RecordID returns the entry's store key.
func (l LedgerEntry) RecordID() string { return l.ID }

// Validate checks the balance fields.
func (l LedgerEntry) Validate() error {
	return l.Account.validate("ledger entry", l.ID, l)
}
