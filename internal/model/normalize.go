package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeText trims surrounding whitespace and applies NFC normalization.
func NormalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// FoldText returns a case-folded NFC form of s for case-insensitive matching.
// A Caser is stateful, so a fresh one is built per call.
func FoldText(s string) string {
	return cases.Fold().String(NormalizeText(s))
}

// ContainsFold reports whether term occurs in s, ignoring case and
// normalization differences. An empty term matches everything.
func ContainsFold(s, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(FoldText(s), FoldText(term))
}
