package repository

import (
	"context"

	"roadsheet/internal/domain"
)

// MeterReadingRepository defines the persistence operations for taximeter readings.
type MeterReadingRepository interface {
	// GetByShift retrieves the single reading of a shift.
	// Returns nil if the shift has no reading yet.
	GetByShift(ctx context.Context, shiftID string) (*domain.MeterReading, error)

	// Create persists a new reading.
	Create(ctx context.Context, reading *domain.MeterReading) error

	// Update rewrites an existing reading.
	Update(ctx context.Context, reading *domain.MeterReading) error
}
