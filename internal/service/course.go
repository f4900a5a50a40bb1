package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"roadsheet/internal/domain"
	"roadsheet/internal/repository"
)

// appendSequenceAttempts bounds the retries when a concurrent append wins the
// sequence race between the availability check and the insert.
const appendSequenceAttempts = 3

// CourseService is the ordered trip-entry ledger of a shift.
type CourseService struct {
	courseRepo repository.CourseRepository
	shiftRepo  repository.ShiftRepository
}

// NewCourseService creates a new CourseService.
func NewCourseService(courseRepo repository.CourseRepository, shiftRepo repository.ShiftRepository) *CourseService {
	return &CourseService{courseRepo: courseRepo, shiftRepo: shiftRepo}
}

// AppendCourseRequest contains the parameters for appending a trip entry.
type AppendCourseRequest struct {
	// Sequence may be 0 (unset); a collision with an existing entry is
	// resolved by reassigning the next free number instead of failing, which
	// tolerates duplicate client-side retries.
	Sequence int

	PickupLocation  string
	PickupTime      time.Time
	PickupIndex     decimal.NullDecimal
	DropoffLocation string
	DropoffTime     time.Time
	DropoffIndex    decimal.NullDecimal

	MeterFare decimal.NullDecimal
	Collected decimal.Decimal

	PaymentMethodID string
	ClientID        string
	OffHours        bool
}

// Append records a trip entry against an open shift.
func (s *CourseService) Append(ctx context.Context, shiftID string, req AppendCourseRequest) (*domain.Course, error) {
	if shiftID == "" {
		return nil, ErrInvalidShiftID
	}
	if err := validateAppendRequest(req); err != nil {
		return nil, err
	}

	shift, err := s.shiftRepo.GetByID(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if shift.Closed {
		return nil, ErrShiftClosed
	}

	sequence := req.Sequence
	for attempt := 0; attempt < appendSequenceAttempts; attempt++ {
		assignNext := sequence <= 0
		if !assignNext {
			taken, err := s.courseRepo.SequenceTaken(ctx, shiftID, sequence)
			if err != nil {
				return nil, err
			}
			assignNext = taken
		}
		if assignNext {
			max, err := s.courseRepo.MaxSequence(ctx, shiftID)
			if err != nil {
				return nil, err
			}
			sequence = max + 1
		}

		course := &domain.Course{
			ID:              uuid.New().String(),
			ShiftID:         shiftID,
			Sequence:        sequence,
			PickupLocation:  req.PickupLocation,
			PickupTime:      req.PickupTime,
			PickupIndex:     req.PickupIndex,
			DropoffLocation: req.DropoffLocation,
			DropoffTime:     req.DropoffTime,
			DropoffIndex:    req.DropoffIndex,
			MeterFare:       req.MeterFare,
			Collected:       req.Collected,
			PaymentMethodID: req.PaymentMethodID,
			ClientID:        req.ClientID,
			OffHours:        req.OffHours,
			CreatedAt:       time.Now(),
		}

		err := s.courseRepo.Create(ctx, course)
		if err == nil {
			return course, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, err
		}
		// A concurrent append took the number between the check and the
		// insert; pick a fresh one and try again.
		sequence = 0
	}

	return nil, repository.ErrConflict
}

func validateAppendRequest(req AppendCourseRequest) error {
	if req.PickupLocation == "" {
		return invalidField("pickup_location", "required")
	}
	if req.PickupTime.IsZero() {
		return invalidField("pickup_time", "required")
	}
	if req.DropoffLocation == "" {
		return invalidField("dropoff_location", "required")
	}
	if req.Collected.IsNegative() {
		return invalidField("collected", "must not be negative")
	}
	if !req.DropoffTime.IsZero() && req.DropoffTime.Before(req.PickupTime) {
		return invalidField("dropoff_time", "must not precede pickup time")
	}
	if req.PickupIndex.Valid && req.DropoffIndex.Valid &&
		req.DropoffIndex.Decimal.LessThan(req.PickupIndex.Decimal) {
		return invalidField("dropoff_index", "must not be below pickup index")
	}
	return nil
}

// List retrieves a shift's courses, sequence ascending.
func (s *CourseService) List(ctx context.Context, shiftID string) ([]*domain.Course, error) {
	if shiftID == "" {
		return nil, ErrInvalidShiftID
	}
	if _, err := s.shiftRepo.GetByID(ctx, shiftID); err != nil {
		return nil, err
	}
	return s.courseRepo.ListByShift(ctx, shiftID)
}

// TotalReceipts sums the collected amounts of a shift's courses.
func (s *CourseService) TotalReceipts(ctx context.Context, shiftID string) (decimal.Decimal, error) {
	if shiftID == "" {
		return decimal.Zero, ErrInvalidShiftID
	}
	return s.courseRepo.SumCollected(ctx, shiftID)
}
