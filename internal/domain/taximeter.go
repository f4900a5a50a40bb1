package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MeterQuantity identifies one of the four physical quantities a taximeter
// reports as paired start/end values.
type MeterQuantity string

const (
	MeterQuantityFlagFall MeterQuantity = "flag_fall" // prise en charge
	MeterQuantityTotalKm  MeterQuantity = "total_km"  // cumulative distance index
	MeterQuantityLoadedKm MeterQuantity = "loaded_km" // in-service (charge) distance index
	MeterQuantityDrop     MeterQuantity = "drop"      // chute / discount amount
)

// MeterReading holds the start/end taximeter values for a shift. At most one
// reading exists per shift; it is created lazily on the first reported value
// and updated field by field afterwards.
type MeterReading struct {
	ID      string
	ShiftID string

	FlagFallStart decimal.NullDecimal
	FlagFallEnd   decimal.NullDecimal
	TotalKmStart  decimal.NullDecimal
	TotalKmEnd    decimal.NullDecimal
	LoadedKmStart decimal.NullDecimal
	LoadedKmEnd   decimal.NullDecimal
	DropStart     decimal.NullDecimal
	DropEnd       decimal.NullDecimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReconciliationWarning reports a suspicious but non-fatal computed total,
// typically a negative delta caused by a meter rollover.
type ReconciliationWarning struct {
	Quantity MeterQuantity   `json:"quantity"`
	Value    decimal.Decimal `json:"value"`
	Message  string          `json:"message"`
}

// MeterTotals carries the end-minus-start deltas for a reading. A total is
// unset when either bound is missing. Negative totals are still reported,
// accompanied by a ReconciliationWarning.
type MeterTotals struct {
	Distance       decimal.NullDecimal
	LoadedDistance decimal.NullDecimal
	Drop           decimal.NullDecimal
	Warnings       []ReconciliationWarning
}
