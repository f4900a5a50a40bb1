package repository

import (
	"context"

	"roadsheet/internal/domain"
)

// ShiftRepository defines the persistence operations for shifts.
type ShiftRepository interface {
	// Create persists a new shift. Returns ErrConflict if the driver already
	// has an open shift (enforced by a partial unique index).
	Create(ctx context.Context, shift *domain.Shift) error

	// GetByID retrieves a shift by ID.
	GetByID(ctx context.Context, id string) (*domain.Shift, error)

	// GetAll retrieves recent shifts, newest first.
	GetAll(ctx context.Context) ([]*domain.Shift, error)

	// Update updates an existing shift.
	Update(ctx context.Context, shift *domain.Shift) error

	// FindOpenByDriver retrieves the driver's open shift regardless of mode,
	// most recently created first. Returns nil if the driver has none.
	FindOpenByDriver(ctx context.Context, driverID string) (*domain.Shift, error)

	// FindActiveByDriver retrieves the open shift for a driver and encoding
	// mode, most recently created first if legacy data holds more than one.
	// Returns nil if no open shift exists.
	FindActiveByDriver(ctx context.Context, driverID string, mode domain.EncodingMode) (*domain.Shift, error)

	// FindLatestValidatedByDriver retrieves the driver's most recently
	// validated shift. Returns nil if the driver has none.
	FindLatestValidatedByDriver(ctx context.Context, driverID string) (*domain.Shift, error)
}

// ShiftTxRunner runs fn against a shift repository bound to a single
// transaction; fn's writes commit together or not at all.
type ShiftTxRunner interface {
	RunShiftTx(ctx context.Context, fn func(repo ShiftRepository) error) error
}
