package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"roadsheet/internal/domain"
)

// CourseRepository defines the persistence operations for trip entries.
type CourseRepository interface {
	// Create persists a new course.
	Create(ctx context.Context, course *domain.Course) error

	// ListByShift retrieves the courses of a shift, sequence ascending.
	ListByShift(ctx context.Context, shiftID string) ([]*domain.Course, error)

	// MaxSequence returns the highest sequence number used in a shift,
	// 0 when the shift has no courses yet.
	MaxSequence(ctx context.Context, shiftID string) (int, error)

	// SequenceTaken reports whether a sequence number is already used in a shift.
	SequenceTaken(ctx context.Context, shiftID string, sequence int) (bool, error)

	// SumCollected returns the sum of collected amounts over a shift's courses.
	SumCollected(ctx context.Context, shiftID string) (decimal.Decimal, error)
}
