package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"roadsheet/internal/domain"
	"roadsheet/internal/events"
	"roadsheet/internal/redis"
	"roadsheet/internal/repository"
)

// ShiftService owns the shift lifecycle: ABSENT -> ACTIVE -> CLOSED -> VALIDATED.
// The single-open-shift-per-driver invariant is enforced by the storage layer
// (partial unique index), not by a read-then-write check.
type ShiftService struct {
	txRunner   repository.ShiftTxRunner
	shiftRepo  repository.ShiftRepository
	courseRepo repository.CourseRepository
	meterRepo  repository.MeterReadingRepository
	expense    repository.ExpenseRepository
	taximeter  *TaximeterService
	publisher  events.Publisher
	cache      redis.CacheStoreInterface
	log        zerolog.Logger
}

// NewShiftService creates a new ShiftService. publisher and cache may be nil.
func NewShiftService(
	txRunner repository.ShiftTxRunner,
	shiftRepo repository.ShiftRepository,
	courseRepo repository.CourseRepository,
	meterRepo repository.MeterReadingRepository,
	expenseRepo repository.ExpenseRepository,
	taximeter *TaximeterService,
	publisher events.Publisher,
	cache redis.CacheStoreInterface,
	log zerolog.Logger,
) *ShiftService {
	return &ShiftService{
		txRunner:   txRunner,
		shiftRepo:  shiftRepo,
		courseRepo: courseRepo,
		meterRepo:  meterRepo,
		expense:    expenseRepo,
		taximeter:  taximeter,
		publisher:  publisher,
		cache:      cache,
		log:        log,
	}
}

// ParseEncodingMode validates an encoding mode string. Unknown modes are
// rejected rather than silently defaulted.
func ParseEncodingMode(mode string) (domain.EncodingMode, error) {
	switch domain.EncodingMode(mode) {
	case domain.EncodingModeLive, domain.EncodingModeDeferred:
		return domain.EncodingMode(mode), nil
	default:
		return "", invalidField("mode", "must be LIVE or DEFERRED")
	}
}

// OpenShiftRequest contains the parameters for opening a shift.
type OpenShiftRequest struct {
	DriverID         string
	VehicleID        string
	ServiceDate      time.Time
	Mode             domain.EncodingMode
	StartTime        time.Time
	StartOdometer    decimal.Decimal
	InterruptionNote string

	// AutoClosePrevious requests the explicit close-and-open policy: any shift
	// still open for the driver is closed with this shift's start time and
	// start odometer before the new one is created.
	AutoClosePrevious bool

	// InitialReading, when present, is merged after the shift is created.
	// Its failure never rolls back the shift.
	InitialReading *ReadingFragment
}

// OpenShiftResponse contains the created shift plus non-fatal warnings.
type OpenShiftResponse struct {
	Shift    *domain.Shift
	Warnings []string
}

// Open creates a new shift in the ACTIVE state with zero courses.
func (s *ShiftService) Open(ctx context.Context, req OpenShiftRequest) (*OpenShiftResponse, error) {
	if err := s.validateOpenRequest(req); err != nil {
		return nil, err
	}

	shift := &domain.Shift{
		ID:               uuid.New().String(),
		DriverID:         req.DriverID,
		VehicleID:        req.VehicleID,
		ServiceDate:      req.ServiceDate,
		StartTime:        req.StartTime,
		Mode:             req.Mode,
		StartOdometer:    req.StartOdometer,
		InterruptionNote: req.InterruptionNote,
		CreatedAt:        time.Now(),
	}

	var err error
	if req.AutoClosePrevious {
		err = s.autoCloseAndCreate(ctx, shift, req)
	} else {
		err = s.shiftRepo.Create(ctx, shift)
	}
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrDriverShiftOpen
		}
		return nil, err
	}

	response := &OpenShiftResponse{Shift: shift}

	// The shift is the primary record; the initial reading is best-effort.
	if req.InitialReading != nil && s.taximeter != nil {
		if _, mergeErr := s.taximeter.Merge(ctx, shift.ID, *req.InitialReading); mergeErr != nil {
			s.log.Warn().Err(mergeErr).Str("shift_id", shift.ID).
				Msg("initial meter reading not recorded")
			response.Warnings = append(response.Warnings,
				"initial meter reading not recorded: "+mergeErr.Error())
		}
	}

	return response, nil
}

// autoCloseAndCreate closes the driver's open shift (if any) and inserts the
// new one in a single transaction, so no moment exists with two open shifts.
// The prior shift inherits the new shift's start time and start odometer as
// its end values.
func (s *ShiftService) autoCloseAndCreate(ctx context.Context, shift *domain.Shift, req OpenShiftRequest) error {
	return s.txRunner.RunShiftTx(ctx, func(repo repository.ShiftRepository) error {
		prior, err := repo.FindOpenByDriver(ctx, req.DriverID)
		if err != nil {
			return err
		}

		if prior != nil {
			prior.Closed = true
			prior.EndTime = req.StartTime
			prior.EndOdometer = decimal.NullDecimal{Decimal: req.StartOdometer, Valid: true}
			if err := repo.Update(ctx, prior); err != nil {
				return err
			}
		}

		return repo.Create(ctx, shift)
	})
}

func (s *ShiftService) validateOpenRequest(req OpenShiftRequest) error {
	if req.DriverID == "" {
		return ErrInvalidDriverID
	}
	if req.VehicleID == "" {
		return invalidField("vehicle_id", "required")
	}
	if req.ServiceDate.IsZero() {
		return invalidField("service_date", "required")
	}
	if req.StartTime.IsZero() {
		return invalidField("start_time", "required")
	}
	if req.StartOdometer.IsNegative() {
		return invalidField("start_odometer", "must not be negative")
	}
	switch req.Mode {
	case domain.EncodingModeLive, domain.EncodingModeDeferred:
	default:
		return invalidField("mode", "must be LIVE or DEFERRED")
	}
	return nil
}

// CloseShiftRequest contains the parameters for closing a shift. EndOdometer
// must be present; a real zero reading is carried as a valid zero, never as
// an omitted field.
type CloseShiftRequest struct {
	EndTime          time.Time
	EndOdometer      decimal.NullDecimal
	InterruptionNote string
	DeclaredCash     decimal.NullDecimal
	Signature        string
}

// CloseShiftResponse contains the frozen shift plus the final payout figure.
type CloseShiftResponse struct {
	Shift    *domain.Shift
	Receipts decimal.Decimal
	Earnings decimal.Decimal
}

// Close freezes a shift: records the end fields and sets closed = true.
// It never touches validated.
func (s *ShiftService) Close(ctx context.Context, shiftID string, req CloseShiftRequest) (*CloseShiftResponse, error) {
	if shiftID == "" {
		return nil, ErrInvalidShiftID
	}
	if req.EndTime.IsZero() {
		return nil, invalidField("end_time", "required")
	}
	if !req.EndOdometer.Valid {
		return nil, invalidField("end_odometer", "required")
	}
	if req.EndOdometer.Decimal.IsNegative() {
		return nil, invalidField("end_odometer", "must not be negative")
	}

	shift, err := s.shiftRepo.GetByID(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if shift.Closed {
		return nil, ErrShiftClosed
	}

	shift.Closed = true
	shift.EndTime = req.EndTime
	shift.EndOdometer = req.EndOdometer
	if req.InterruptionNote != "" {
		shift.InterruptionNote = req.InterruptionNote
	}
	shift.DeclaredCash = req.DeclaredCash
	shift.Signature = req.Signature

	if err := s.shiftRepo.Update(ctx, shift); err != nil {
		return nil, err
	}

	receipts, earnings, err := s.ProjectEarnings(ctx, shiftID, domain.DefaultTieredScheme())
	if err != nil {
		// The shift is closed either way; the projection is recomputable.
		s.log.Warn().Err(err).Str("shift_id", shiftID).Msg("earnings projection failed at close")
		receipts, earnings = decimal.Zero, decimal.Zero
	}

	if s.publisher != nil {
		event := events.ShiftClosedEvent{
			ShiftID:     shift.ID,
			DriverID:    shift.DriverID,
			VehicleID:   shift.VehicleID,
			ServiceDate: shift.ServiceDate.Format("2006-01-02"),
			Receipts:    receipts.StringFixed(2),
			Earnings:    earnings.StringFixed(2),
			ClosedAt:    shift.EndTime.Format(time.RFC3339),
		}
		if shift.DeclaredCash.Valid {
			event.DeclaredCash = shift.DeclaredCash.Decimal.StringFixed(2)
		}
		if err := s.publisher.PublishShiftClosed(ctx, event); err != nil {
			s.log.Warn().Err(err).Str("shift_id", shift.ID).Msg("shift.closed event not published")
		}
	}

	return &CloseShiftResponse{Shift: shift, Receipts: receipts, Earnings: earnings}, nil
}

// Validate promotes a closed shift to the terminal VALIDATED state.
// Strictly once: an already validated shift is rejected.
func (s *ShiftService) Validate(ctx context.Context, shiftID string) (*domain.Shift, error) {
	if shiftID == "" {
		return nil, ErrInvalidShiftID
	}

	shift, err := s.shiftRepo.GetByID(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if !shift.Closed {
		return nil, ErrShiftNotClosed
	}
	if shift.Validated {
		return nil, ErrShiftAlreadyValidated
	}

	shift.Validated = true
	shift.ValidatedAt = time.Now()

	if err := s.shiftRepo.Update(ctx, shift); err != nil {
		return nil, err
	}

	if s.cache != nil {
		// The driver's last-validated-vehicle suggestion just changed.
		_ = s.cache.InvalidateSuggestion(ctx, shift.DriverID)
	}

	if s.publisher != nil {
		event := events.ShiftValidatedEvent{
			ShiftID:     shift.ID,
			DriverID:    shift.DriverID,
			ValidatedAt: shift.ValidatedAt.Format(time.RFC3339),
		}
		if err := s.publisher.PublishShiftValidated(ctx, event); err != nil {
			s.log.Warn().Err(err).Str("shift_id", shift.ID).Msg("shift.validated event not published")
		}
	}

	return shift, nil
}

// FindActive returns the driver's open shift for a mode, nil if none.
func (s *ShiftService) FindActive(ctx context.Context, driverID string, mode domain.EncodingMode) (*domain.Shift, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	return s.shiftRepo.FindActiveByDriver(ctx, driverID, mode)
}

// ShiftDetail is the full shift payload: the record plus everything it owns.
type ShiftDetail struct {
	Shift    *domain.Shift
	Courses  []*domain.Course
	Reading  *domain.MeterReading
	Expenses []*domain.Expense
	Receipts decimal.Decimal
	Earnings decimal.Decimal
}

// GetDetail loads a shift with its courses, meter reading, expenses and the
// current earnings projection under the default scheme.
func (s *ShiftService) GetDetail(ctx context.Context, shiftID string) (*ShiftDetail, error) {
	if shiftID == "" {
		return nil, ErrInvalidShiftID
	}

	shift, err := s.shiftRepo.GetByID(ctx, shiftID)
	if err != nil {
		return nil, err
	}

	courses, err := s.courseRepo.ListByShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}

	reading, err := s.meterRepo.GetByShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}

	expenses, err := s.expense.ListByShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}

	receipts, earnings, err := s.ProjectEarnings(ctx, shiftID, domain.DefaultTieredScheme())
	if err != nil {
		return nil, err
	}

	return &ShiftDetail{
		Shift:    shift,
		Courses:  courses,
		Reading:  reading,
		Expenses: expenses,
		Receipts: receipts,
		Earnings: earnings,
	}, nil
}

// GetAll retrieves recent shifts.
func (s *ShiftService) GetAll(ctx context.Context) ([]*domain.Shift, error) {
	return s.shiftRepo.GetAll(ctx)
}

// ProjectEarnings computes the payout projection for a shift under a scheme.
// Callable at any point of the shift's life; the same receipts and scheme
// always yield the same figure.
func (s *ShiftService) ProjectEarnings(ctx context.Context, shiftID string, scheme domain.PayScheme) (receipts, earnings decimal.Decimal, err error) {
	if shiftID == "" {
		return decimal.Zero, decimal.Zero, ErrInvalidShiftID
	}
	if _, err = s.shiftRepo.GetByID(ctx, shiftID); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	receipts, err = s.courseRepo.SumCollected(ctx, shiftID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	earnings, err = ComputeEarnings(receipts, scheme)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return receipts, earnings, nil
}
