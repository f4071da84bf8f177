package model

import "github.com/shopspring/decimal"

func init() {
	// Export documents carry prices as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Money parses a decimal literal and panics on malformed input.
// Intended for constants and tests.
func Money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// sumLines adds up the line totals of items.
func sumLines(items []LineItem) decimal.Decimal {
	total := decimal.Decimal{}
	for _, it := range items {
		total = total.Add(it.TotalPrice)
	}
	return total
}
