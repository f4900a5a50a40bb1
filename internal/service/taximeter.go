package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"roadsheet/internal/domain"
	internalRedis "roadsheet/internal/redis"
	"roadsheet/internal/repository"
)

const (
	mergeLockTTL      = 5 * time.Second
	mergeLockAttempts = 3
	mergeLockBackoff  = 50 * time.Millisecond
)

// TaximeterService reconciles the start/end meter readings of a shift.
// Merges are field-level upserts: a fragment never clears fields it does not
// carry, and concurrent merges for one shift serialize on a redis lock.
type TaximeterService struct {
	meterRepo repository.MeterReadingRepository
	shiftRepo repository.ShiftRepository
	locks     internalRedis.LockStoreInterface
	log       zerolog.Logger
}

// NewTaximeterService creates a new TaximeterService. locks may be nil, in
// which case merges are not serialized (single-instance deployments).
func NewTaximeterService(
	meterRepo repository.MeterReadingRepository,
	shiftRepo repository.ShiftRepository,
	locks internalRedis.LockStoreInterface,
	log zerolog.Logger,
) *TaximeterService {
	return &TaximeterService{
		meterRepo: meterRepo,
		shiftRepo: shiftRepo,
		locks:     locks,
		log:       log,
	}
}

// ReadingFragment is a partial set of the eight reading fields. Unset fields
// (Valid = false) leave the stored value untouched. Alias resolution and the
// quoted-"0" blank-form tolerance happen at the HTTP boundary, before a
// fragment is built; the reconciler itself knows one name per quantity.
type ReadingFragment struct {
	FlagFallStart decimal.NullDecimal
	FlagFallEnd   decimal.NullDecimal
	TotalKmStart  decimal.NullDecimal
	TotalKmEnd    decimal.NullDecimal
	LoadedKmStart decimal.NullDecimal
	LoadedKmEnd   decimal.NullDecimal
	DropStart     decimal.NullDecimal
	DropEnd       decimal.NullDecimal
}

// Empty reports whether the fragment carries no values at all.
func (f ReadingFragment) Empty() bool {
	return !f.FlagFallStart.Valid && !f.FlagFallEnd.Valid &&
		!f.TotalKmStart.Valid && !f.TotalKmEnd.Valid &&
		!f.LoadedKmStart.Valid && !f.LoadedKmEnd.Valid &&
		!f.DropStart.Valid && !f.DropEnd.Valid
}

// Merge upserts a fragment into the shift's single reading record,
// creating it on the first reported value. Merging the same value twice
// is idempotent.
func (s *TaximeterService) Merge(ctx context.Context, shiftID string, fragment ReadingFragment) (*domain.MeterReading, error) {
	if shiftID == "" {
		return nil, ErrInvalidShiftID
	}

	shift, err := s.shiftRepo.GetByID(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if shift.Closed {
		return nil, ErrShiftClosed
	}

	if s.locks != nil {
		acquired, err := s.acquireMergeLock(ctx, shiftID)
		if err != nil {
			return nil, err
		}
		if !acquired {
			return nil, ErrReadingBusy
		}
		defer func() {
			if err := s.locks.ReleaseShiftLock(ctx, shiftID); err != nil {
				s.log.Warn().Err(err).Str("shift_id", shiftID).Msg("merge lock release failed")
			}
		}()
	}

	reading, err := s.meterRepo.GetByShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if reading == nil {
		reading = &domain.MeterReading{
			ID:        uuid.New().String(),
			ShiftID:   shiftID,
			CreatedAt: now,
		}
		applyFragment(reading, fragment)
		reading.UpdatedAt = now

		if err := s.meterRepo.Create(ctx, reading); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				// Lost the create race to a concurrent first merge.
				return nil, ErrReadingBusy
			}
			return nil, err
		}
		return reading, nil
	}

	applyFragment(reading, fragment)
	reading.UpdatedAt = now

	if err := s.meterRepo.Update(ctx, reading); err != nil {
		return nil, err
	}
	return reading, nil
}

func (s *TaximeterService) acquireMergeLock(ctx context.Context, shiftID string) (bool, error) {
	for attempt := 0; attempt < mergeLockAttempts; attempt++ {
		acquired, err := s.locks.AcquireShiftLock(ctx, shiftID, mergeLockTTL)
		if err != nil {
			return false, err
		}
		if acquired {
			return true, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(mergeLockBackoff):
		}
	}
	return false, nil
}

func applyFragment(reading *domain.MeterReading, fragment ReadingFragment) {
	if fragment.FlagFallStart.Valid {
		reading.FlagFallStart = fragment.FlagFallStart
	}
	if fragment.FlagFallEnd.Valid {
		reading.FlagFallEnd = fragment.FlagFallEnd
	}
	if fragment.TotalKmStart.Valid {
		reading.TotalKmStart = fragment.TotalKmStart
	}
	if fragment.TotalKmEnd.Valid {
		reading.TotalKmEnd = fragment.TotalKmEnd
	}
	if fragment.LoadedKmStart.Valid {
		reading.LoadedKmStart = fragment.LoadedKmStart
	}
	if fragment.LoadedKmEnd.Valid {
		reading.LoadedKmEnd = fragment.LoadedKmEnd
	}
	if fragment.DropStart.Valid {
		reading.DropStart = fragment.DropStart
	}
	if fragment.DropEnd.Valid {
		reading.DropEnd = fragment.DropEnd
	}
}

// GetByShift retrieves the shift's reading, nil if none exists yet.
func (s *TaximeterService) GetByShift(ctx context.Context, shiftID string) (*domain.MeterReading, error) {
	if shiftID == "" {
		return nil, ErrInvalidShiftID
	}
	if _, err := s.shiftRepo.GetByID(ctx, shiftID); err != nil {
		return nil, err
	}
	return s.meterRepo.GetByShift(ctx, shiftID)
}

// ComputeTotals derives end-minus-start deltas for each quantity with both
// bounds present. A negative delta is reported with a ReconciliationWarning
// instead of rejected: a meter rollover is a legitimate occurrence.
func ComputeTotals(reading *domain.MeterReading) domain.MeterTotals {
	var totals domain.MeterTotals
	if reading == nil {
		return totals
	}

	totals.Distance = quantityDelta(reading.TotalKmStart, reading.TotalKmEnd,
		domain.MeterQuantityTotalKm, &totals.Warnings)
	totals.LoadedDistance = quantityDelta(reading.LoadedKmStart, reading.LoadedKmEnd,
		domain.MeterQuantityLoadedKm, &totals.Warnings)
	totals.Drop = quantityDelta(reading.DropStart, reading.DropEnd,
		domain.MeterQuantityDrop, &totals.Warnings)
	return totals
}

func quantityDelta(start, end decimal.NullDecimal, quantity domain.MeterQuantity, warnings *[]domain.ReconciliationWarning) decimal.NullDecimal {
	if !start.Valid || !end.Valid {
		return decimal.NullDecimal{}
	}

	delta := end.Decimal.Sub(start.Decimal)
	if delta.IsNegative() {
		*warnings = append(*warnings, domain.ReconciliationWarning{
			Quantity: quantity,
			Value:    delta,
			Message:  "end value below start value, possible meter rollover",
		})
	}
	return decimal.NullDecimal{Decimal: delta, Valid: true}
}
