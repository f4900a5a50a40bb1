package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a flat ledger entry attached to a shift (fuel, wash, parking...).
type Expense struct {
	ID              string
	ShiftID         string
	Amount          decimal.Decimal
	Category        string
	PaymentMethodID string
	Note            string
	CreatedAt       time.Time
}
