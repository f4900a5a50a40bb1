package service

import (
	"github.com/shopspring/decimal"

	"roadsheet/internal/domain"
)

// ComputeEarnings turns accumulated receipts into a driver payout figure.
// Pure function: identical inputs always produce identical output, so it can
// project a live running total during the shift and the final figure at
// close-out.
//
// Tiered schemes pay BaseRate on receipts up to Threshold and SurplusRate on
// the surplus, rounded half-up to 2 decimal places. Fixed schemes return the
// salary amount unchanged.
func ComputeEarnings(receipts decimal.Decimal, scheme domain.PayScheme) (decimal.Decimal, error) {
	switch scheme.Kind {
	case domain.SchemeKindFixed:
		return scheme.Amount, nil

	case domain.SchemeKindTiered:
		base := decimal.Min(receipts, scheme.Threshold).Mul(scheme.BaseRate)
		surplus := decimal.Max(receipts.Sub(scheme.Threshold), decimal.Zero).Mul(scheme.SurplusRate)
		return base.Add(surplus).Round(2), nil

	default:
		return decimal.Zero, ErrUnknownSchemeKind
	}
}

// ParsePayScheme builds a PayScheme from its wire representation. An empty
// kind yields the default tiered scheme; anything unrecognized is rejected.
func ParsePayScheme(kind string, fixedAmount decimal.Decimal) (domain.PayScheme, error) {
	switch domain.SchemeKind(kind) {
	case domain.SchemeKindTiered, "":
		return domain.DefaultTieredScheme(), nil
	case domain.SchemeKindFixed:
		return domain.PayScheme{Kind: domain.SchemeKindFixed, Amount: fixedAmount}, nil
	default:
		return domain.PayScheme{}, ErrUnknownSchemeKind
	}
}
