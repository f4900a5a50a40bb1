package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Course represents a single trip entry recorded within a shift.
type Course struct {
	ID       string
	ShiftID  string
	Sequence int // unique within the shift, starts at 1

	PickupLocation  string
	PickupTime      time.Time
	PickupIndex     decimal.NullDecimal
	DropoffLocation string
	DropoffTime     time.Time // zero while the trip is in progress
	DropoffIndex    decimal.NullDecimal

	MeterFare decimal.NullDecimal // fare quoted by the taximeter
	Collected decimal.Decimal     // amount actually collected

	PaymentMethodID string
	ClientID        string
	OffHours        bool

	CreatedAt time.Time
}
