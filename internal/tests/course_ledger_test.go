package tests

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"roadsheet/internal/domain"
	"roadsheet/internal/repository"
	"roadsheet/internal/service"
)

// ──────────────────────────────────────────────
// 3. TRIP ENTRY LEDGER
// ──────────────────────────────────────────────

func openLedgerShift(shiftRepo *MockShiftRepository) {
	shiftRepo.AddShift(&domain.Shift{
		ID:       "shift-1",
		DriverID: "driver-1",
		Mode:     domain.EncodingModeLive,
	})
}

func appendRequest(sequence int) service.AppendCourseRequest {
	return service.AppendCourseRequest{
		Sequence:        sequence,
		PickupLocation:  "Gare du Midi",
		PickupTime:      time.Date(2025, 3, 14, 8, 15, 0, 0, time.UTC),
		DropoffLocation: "Avenue Louise 99",
		DropoffTime:     time.Date(2025, 3, 14, 8, 40, 0, 0, time.UTC),
		Collected:       decimal.RequireFromString("18.50"),
		PaymentMethodID: "cash",
	}
}

func TestCourse_AppendAssignsNextSequence(t *testing.T) {
	t.Parallel()

	shiftRepo := NewMockShiftRepository()
	courseRepo := NewMockCourseRepository()
	openLedgerShift(shiftRepo)
	svc := service.NewCourseService(courseRepo, shiftRepo)

	// No sequence given: first entry becomes 1, then 2.
	first, err := svc.Append(context.Background(), "shift-1", appendRequest(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Sequence != 1 {
		t.Errorf("expected sequence 1, got %d", first.Sequence)
	}

	second, err := svc.Append(context.Background(), "shift-1", appendRequest(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Sequence != 2 {
		t.Errorf("expected sequence 2, got %d", second.Sequence)
	}
}

func TestCourse_DuplicateSequenceReassigned(t *testing.T) {
	t.Parallel()

	shiftRepo := NewMockShiftRepository()
	courseRepo := NewMockCourseRepository()
	openLedgerShift(shiftRepo)
	svc := service.NewCourseService(courseRepo, shiftRepo)

	for seq := 1; seq <= 3; seq++ {
		if _, err := svc.Append(context.Background(), "shift-1", appendRequest(seq)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// A retry carrying an already-used number gets max+1, not an error.
	course, err := svc.Append(context.Background(), "shift-1", appendRequest(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if course.Sequence != 4 {
		t.Errorf("expected reassigned sequence 4, got %d", course.Sequence)
	}
	if courseRepo.CountCourses("shift-1") != 4 {
		t.Errorf("expected 4 courses, got %d", courseRepo.CountCourses("shift-1"))
	}
}

func TestCourse_SequenceRaceRetried(t *testing.T) {
	t.Parallel()

	shiftRepo := NewMockShiftRepository()
	courseRepo := NewMockCourseRepository()
	openLedgerShift(shiftRepo)
	svc := service.NewCourseService(courseRepo, shiftRepo)

	// A concurrent append steals the number between the availability check
	// and the insert; the entry still lands under a fresh sequence.
	courseRepo.ConflictsRemaining = 1

	course, err := svc.Append(context.Background(), "shift-1", appendRequest(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if course == nil {
		t.Fatal("expected a stored course")
	}
	if courseRepo.CreateCallCount != 2 {
		t.Errorf("expected 2 create attempts, got %d", courseRepo.CreateCallCount)
	}
	if courseRepo.CountCourses("shift-1") != 1 {
		t.Errorf("expected 1 course stored, got %d", courseRepo.CountCourses("shift-1"))
	}
}

func TestCourse_SequenceRaceExhaustionSurfaces(t *testing.T) {
	t.Parallel()

	shiftRepo := NewMockShiftRepository()
	courseRepo := NewMockCourseRepository()
	openLedgerShift(shiftRepo)
	svc := service.NewCourseService(courseRepo, shiftRepo)

	// Every retry loses the race; the caller gets the conflict back.
	courseRepo.ConflictsRemaining = 100

	_, err := svc.Append(context.Background(), "shift-1", appendRequest(1))
	if err != repository.ErrConflict {
		t.Errorf("expected ErrConflict after exhausted retries, got %v", err)
	}
	if courseRepo.CreateCallCount != 3 {
		t.Errorf("expected 3 create attempts, got %d", courseRepo.CreateCallCount)
	}
}

func TestCourse_SequenceIndependentAcrossShifts(t *testing.T) {
	t.Parallel()

	shiftRepo := NewMockShiftRepository()
	courseRepo := NewMockCourseRepository()
	openLedgerShift(shiftRepo)
	shiftRepo.AddShift(&domain.Shift{
		ID:       "shift-2",
		DriverID: "driver-2",
		Mode:     domain.EncodingModeLive,
	})
	svc := service.NewCourseService(courseRepo, shiftRepo)

	if _, err := svc.Append(context.Background(), "shift-1", appendRequest(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Sequence 1 is free in the other shift's ledger.
	course, err := svc.Append(context.Background(), "shift-2", appendRequest(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if course.Sequence != 1 {
		t.Errorf("expected sequence 1 in second shift, got %d", course.Sequence)
	}
}

func TestCourse_AppendToClosedShiftRejected(t *testing.T) {
	t.Parallel()

	shiftRepo := NewMockShiftRepository()
	shiftRepo.AddShift(&domain.Shift{
		ID:       "shift-1",
		DriverID: "driver-1",
		Mode:     domain.EncodingModeLive,
		Closed:   true,
	})
	svc := service.NewCourseService(NewMockCourseRepository(), shiftRepo)

	_, err := svc.Append(context.Background(), "shift-1", appendRequest(1))
	if err != service.ErrShiftClosed {
		t.Errorf("expected ErrShiftClosed, got %v", err)
	}
}

func TestCourse_AppendValidation(t *testing.T) {
	t.Parallel()

	shiftRepo := NewMockShiftRepository()
	openLedgerShift(shiftRepo)
	svc := service.NewCourseService(NewMockCourseRepository(), shiftRepo)

	req := appendRequest(1)
	req.PickupLocation = ""
	if _, err := svc.Append(context.Background(), "shift-1", req); !service.IsValidation(err) {
		t.Errorf("expected validation error for missing pickup, got %v", err)
	}

	req = appendRequest(1)
	req.Collected = decimal.RequireFromString("-5.00")
	if _, err := svc.Append(context.Background(), "shift-1", req); !service.IsValidation(err) {
		t.Errorf("expected validation error for negative collected, got %v", err)
	}

	req = appendRequest(1)
	req.DropoffTime = req.PickupTime.Add(-10 * time.Minute)
	if _, err := svc.Append(context.Background(), "shift-1", req); !service.IsValidation(err) {
		t.Errorf("expected validation error for dropoff before pickup, got %v", err)
	}

	req = appendRequest(1)
	req.PickupIndex = decimal.NullDecimal{Decimal: decimal.NewFromInt(500), Valid: true}
	req.DropoffIndex = decimal.NullDecimal{Decimal: decimal.NewFromInt(400), Valid: true}
	if _, err := svc.Append(context.Background(), "shift-1", req); !service.IsValidation(err) {
		t.Errorf("expected validation error for dropoff index below pickup, got %v", err)
	}
}

func TestCourse_InProgressTripAllowed(t *testing.T) {
	t.Parallel()

	shiftRepo := NewMockShiftRepository()
	openLedgerShift(shiftRepo)
	svc := service.NewCourseService(NewMockCourseRepository(), shiftRepo)

	// Dropoff time is still unknown while the trip runs.
	req := appendRequest(1)
	req.DropoffTime = time.Time{}

	course, err := svc.Append(context.Background(), "shift-1", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !course.DropoffTime.IsZero() {
		t.Error("expected zero dropoff time preserved")
	}
}

func TestCourse_TotalReceipts(t *testing.T) {
	t.Parallel()

	shiftRepo := NewMockShiftRepository()
	courseRepo := NewMockCourseRepository()
	openLedgerShift(shiftRepo)
	svc := service.NewCourseService(courseRepo, shiftRepo)

	amounts := []string{"18.50", "25.00", "18.90"}
	for i, amount := range amounts {
		req := appendRequest(i + 1)
		req.Collected = decimal.RequireFromString(amount)
		if _, err := svc.Append(context.Background(), "shift-1", req); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	total, err := svc.TotalReceipts(context.Background(), "shift-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total.StringFixed(2) != "62.40" {
		t.Errorf("expected total 62.40, got %s", total.StringFixed(2))
	}
}

func TestCourse_ListOrderedBySequence(t *testing.T) {
	t.Parallel()

	shiftRepo := NewMockShiftRepository()
	courseRepo := NewMockCourseRepository()
	openLedgerShift(shiftRepo)
	svc := service.NewCourseService(courseRepo, shiftRepo)

	for _, seq := range []int{3, 1, 2} {
		courseRepo.AddCourse(&domain.Course{
			ID:       "course-" + string(rune('0'+seq)),
			ShiftID:  "shift-1",
			Sequence: seq,
		})
	}

	courses, err := svc.List(context.Background(), "shift-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, c := range courses {
		if c.Sequence != i+1 {
			t.Errorf("position %d holds sequence %d", i, c.Sequence)
		}
	}
}
