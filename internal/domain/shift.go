package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EncodingMode describes how a shift's data is entered.
type EncodingMode string

const (
	// EncodingModeLive is continuous entry during the shift; the shift stays resumable.
	EncodingModeLive EncodingMode = "LIVE"
	// EncodingModeDeferred is after-the-fact entry; never offered for resumption.
	EncodingModeDeferred EncodingMode = "DEFERRED"
)

// Shift represents one driver's working period (feuille de route), the root
// aggregate of the tracking core. At most one shift per driver may be open
// (closed = false) at any time.
type Shift struct {
	ID        string
	DriverID  string
	VehicleID string

	ServiceDate time.Time
	StartTime   time.Time
	EndTime     time.Time // zero until closed
	Mode        EncodingMode

	StartOdometer decimal.Decimal
	EndOdometer   decimal.NullDecimal

	InterruptionNote string
	DeclaredCash     decimal.NullDecimal
	Signature        string

	Closed      bool
	Validated   bool
	ValidatedAt time.Time // zero until validated

	CreatedAt time.Time
}
