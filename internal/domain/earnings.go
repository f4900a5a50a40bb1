package domain

import "github.com/shopspring/decimal"

// SchemeKind tags the pay scheme variant.
type SchemeKind string

const (
	SchemeKindTiered SchemeKind = "tiered"
	SchemeKindFixed  SchemeKind = "fixed"
)

// PayScheme describes how a driver's payout is derived from shift receipts.
// Tiered pays BaseRate on receipts up to Threshold and SurplusRate beyond it;
// Fixed overrides the computation with a flat salary amount.
type PayScheme struct {
	Kind SchemeKind

	// tiered
	Threshold   decimal.Decimal
	BaseRate    decimal.Decimal
	SurplusRate decimal.Decimal

	// fixed
	Amount decimal.Decimal
}

// DefaultTieredScheme returns the commission rule observed in the domain:
// 40% on the first 180 of receipts, 30% on the surplus.
func DefaultTieredScheme() PayScheme {
	return PayScheme{
		Kind:        SchemeKindTiered,
		Threshold:   decimal.NewFromInt(180),
		BaseRate:    decimal.New(40, -2),
		SurplusRate: decimal.New(30, -2),
	}
}
