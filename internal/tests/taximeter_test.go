package tests

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"roadsheet/internal/domain"
	"roadsheet/internal/service"
)

// ──────────────────────────────────────────────
// 4. TAXIMETER RECONCILIATION
// ──────────────────────────────────────────────

func newMeterFixture() (*service.TaximeterService, *MockShiftRepository, *MockMeterReadingRepository, *MockLockStore) {
	shiftRepo := NewMockShiftRepository()
	meterRepo := NewMockMeterReadingRepository()
	locks := NewMockLockStore()
	shiftRepo.AddShift(&domain.Shift{
		ID:       "shift-1",
		DriverID: "driver-1",
		Mode:     domain.EncodingModeLive,
	})
	svc := service.NewTaximeterService(meterRepo, shiftRepo, locks, zerolog.Nop())
	return svc, shiftRepo, meterRepo, locks
}

func nd(value string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(value), Valid: true}
}

func TestMeter_FirstMergeCreatesReading(t *testing.T) {
	t.Parallel()

	svc, _, meterRepo, locks := newMeterFixture()

	reading, err := svc.Merge(context.Background(), "shift-1", service.ReadingFragment{
		TotalKmStart: nd("125000"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if meterRepo.CreateCallCount != 1 {
		t.Errorf("expected 1 create, got %d", meterRepo.CreateCallCount)
	}
	if !reading.TotalKmStart.Valid || reading.TotalKmStart.Decimal.String() != "125000" {
		t.Errorf("unexpected total km start: %+v", reading.TotalKmStart)
	}
	if reading.TotalKmEnd.Valid {
		t.Error("unreported fields must stay unset")
	}
	if locks.ReleaseCallCount != 1 {
		t.Errorf("expected lock released, release count %d", locks.ReleaseCallCount)
	}
}

func TestMeter_LaterMergePreservesEarlierFields(t *testing.T) {
	t.Parallel()

	svc, _, meterRepo, _ := newMeterFixture()

	if _, err := svc.Merge(context.Background(), "shift-1", service.ReadingFragment{
		TotalKmStart:  nd("125000"),
		FlagFallStart: nd("12"),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The end-of-shift fragment carries only end values.
	reading, err := svc.Merge(context.Background(), "shift-1", service.ReadingFragment{
		TotalKmEnd:  nd("125180"),
		FlagFallEnd: nd("31"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reading.TotalKmStart.Valid || reading.TotalKmStart.Decimal.String() != "125000" {
		t.Error("merge cleared the earlier start value")
	}
	if !reading.TotalKmEnd.Valid || reading.TotalKmEnd.Decimal.String() != "125180" {
		t.Errorf("unexpected total km end: %+v", reading.TotalKmEnd)
	}
	if meterRepo.UpdateCallCount != 1 {
		t.Errorf("expected 1 update, got %d", meterRepo.UpdateCallCount)
	}
}

func TestMeter_RepeatedMergeIdempotent(t *testing.T) {
	t.Parallel()

	svc, _, meterRepo, _ := newMeterFixture()

	fragment := service.ReadingFragment{TotalKmStart: nd("125000")}
	if _, err := svc.Merge(context.Background(), "shift-1", fragment); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reading, err := svc.Merge(context.Background(), "shift-1", fragment)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if reading.TotalKmStart.Decimal.String() != "125000" {
		t.Errorf("unexpected value after repeat: %s", reading.TotalKmStart.Decimal.String())
	}
	if meterRepo.CreateCallCount != 1 {
		t.Errorf("repeat merge must not create a second reading, creates %d", meterRepo.CreateCallCount)
	}
	if meterRepo.GetReading("shift-1") == nil {
		t.Fatal("reading missing after merges")
	}
}

func TestMeter_MergeAgainstClosedShiftRejected(t *testing.T) {
	t.Parallel()

	svc, shiftRepo, _, _ := newMeterFixture()
	shift := shiftRepo.GetShift("shift-1")
	shift.Closed = true

	_, err := svc.Merge(context.Background(), "shift-1", service.ReadingFragment{TotalKmEnd: nd("125180")})
	if err != service.ErrShiftClosed {
		t.Errorf("expected ErrShiftClosed, got %v", err)
	}
}

func TestMeter_MergeBusyWhenLockHeld(t *testing.T) {
	t.Parallel()

	svc, _, _, locks := newMeterFixture()
	locks.FailAcquire = true

	_, err := svc.Merge(context.Background(), "shift-1", service.ReadingFragment{TotalKmStart: nd("125000")})
	if err != service.ErrReadingBusy {
		t.Errorf("expected ErrReadingBusy, got %v", err)
	}
	// The merge retries before giving up.
	if locks.AcquireCallCount != 3 {
		t.Errorf("expected 3 acquire attempts, got %d", locks.AcquireCallCount)
	}
}

func TestMeter_ComputeTotals(t *testing.T) {
	t.Parallel()

	reading := &domain.MeterReading{
		ShiftID:       "shift-1",
		TotalKmStart:  nd("125000"),
		TotalKmEnd:    nd("125180"),
		LoadedKmStart: nd("8400.5"),
		LoadedKmEnd:   nd("8472.3"),
	}

	totals := service.ComputeTotals(reading)

	if !totals.Distance.Valid || totals.Distance.Decimal.String() != "180" {
		t.Errorf("expected distance 180, got %+v", totals.Distance)
	}
	if !totals.LoadedDistance.Valid || totals.LoadedDistance.Decimal.String() != "71.8" {
		t.Errorf("expected loaded distance 71.8, got %+v", totals.LoadedDistance)
	}
	// Drop has no bounds reported.
	if totals.Drop.Valid {
		t.Errorf("expected unset drop total, got %+v", totals.Drop)
	}
	if len(totals.Warnings) != 0 {
		t.Errorf("unexpected warnings: %+v", totals.Warnings)
	}
}

func TestMeter_RolloverYieldsWarningNotError(t *testing.T) {
	t.Parallel()

	// The mechanical counter wrapped during the shift.
	reading := &domain.MeterReading{
		ShiftID:      "shift-1",
		TotalKmStart: nd("15722.8"),
		TotalKmEnd:   nd("15642.5"),
	}

	totals := service.ComputeTotals(reading)

	if !totals.Distance.Valid || totals.Distance.Decimal.String() != "-80.3" {
		t.Errorf("expected distance -80.3, got %+v", totals.Distance)
	}
	if len(totals.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(totals.Warnings))
	}
	warning := totals.Warnings[0]
	if warning.Quantity != domain.MeterQuantityTotalKm {
		t.Errorf("expected total_km warning, got %s", warning.Quantity)
	}
	if warning.Value.String() != "-80.3" {
		t.Errorf("expected warning value -80.3, got %s", warning.Value.String())
	}
}

func TestMeter_ComputeTotalsNilReading(t *testing.T) {
	t.Parallel()

	totals := service.ComputeTotals(nil)
	if totals.Distance.Valid || totals.LoadedDistance.Valid || totals.Drop.Valid {
		t.Errorf("expected empty totals, got %+v", totals)
	}
}

func TestMeter_GetByShiftNilWhenNone(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newMeterFixture()

	reading, err := svc.GetByShift(context.Background(), "shift-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reading != nil {
		t.Errorf("expected nil reading, got %+v", reading)
	}
}
