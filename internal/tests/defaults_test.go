package tests

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"roadsheet/internal/domain"
	"roadsheet/internal/service"
)

// ──────────────────────────────────────────────
// 5. ENCODING DEFAULTS
// ──────────────────────────────────────────────

func newDefaultsFixture(shiftRepo *MockShiftRepository, cache *MockCacheStore) *service.DefaultsService {
	shifts := newShiftFixture(shiftRepo, NewMockCourseRepository(), NewMockMeterReadingRepository(), NewMockExpenseRepository(), NewMockPublisher(), cache)
	return service.NewDefaultsService(shiftRepo, shifts, cache, zerolog.Nop())
}

func TestDefaults_LiveResumesOpenShift(t *testing.T) {
	t.Parallel()

	shiftRepo := NewMockShiftRepository()
	shiftRepo.AddShift(&domain.Shift{
		ID:        "shift-1",
		DriverID:  "driver-1",
		VehicleID: "vehicle-7",
		Mode:      domain.EncodingModeLive,
	})
	svc := newDefaultsFixture(shiftRepo, NewMockCacheStore())

	result, err := svc.Resolve(context.Background(), "driver-1", domain.EncodingModeLive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Resume {
		t.Fatal("expected resume")
	}
	if result.Shift == nil || result.Shift.Shift.ID != "shift-1" {
		t.Errorf("expected shift-1 resumed, got %+v", result.Shift)
	}
	if result.Suggestions != nil {
		t.Error("resume must not carry suggestions")
	}
}

func TestDefaults_LiveSuggestsWhenNoOpenShift(t *testing.T) {
	t.Parallel()

	shiftRepo := NewMockShiftRepository()
	shiftRepo.AddShift(&domain.Shift{
		ID:          "shift-old",
		DriverID:    "driver-1",
		VehicleID:   "vehicle-7",
		Mode:        domain.EncodingModeLive,
		Closed:      true,
		Validated:   true,
		ValidatedAt: time.Date(2025, 3, 13, 20, 0, 0, 0, time.UTC),
	})
	svc := newDefaultsFixture(shiftRepo, NewMockCacheStore())

	result, err := svc.Resolve(context.Background(), "driver-1", domain.EncodingModeLive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Resume {
		t.Fatal("expected no resume")
	}
	if result.Suggestions == nil {
		t.Fatal("expected suggestions")
	}
	if result.Suggestions.VehicleID != "vehicle-7" {
		t.Errorf("expected last validated vehicle suggested, got %q", result.Suggestions.VehicleID)
	}
	if result.Suggestions.BlankFields {
		t.Error("live mode must not blank fields")
	}
}

func TestDefaults_DeferredNeverResumes(t *testing.T) {
	t.Parallel()

	// An open deferred shift exists, yet the resolver must not offer it.
	shiftRepo := NewMockShiftRepository()
	shiftRepo.AddShift(&domain.Shift{
		ID:       "shift-1",
		DriverID: "driver-1",
		Mode:     domain.EncodingModeDeferred,
	})
	svc := newDefaultsFixture(shiftRepo, NewMockCacheStore())

	result, err := svc.Resolve(context.Background(), "driver-1", domain.EncodingModeDeferred)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Resume {
		t.Error("deferred mode must never resume")
	}
	if result.Suggestions == nil {
		t.Fatal("expected suggestions")
	}
	if !result.Suggestions.BlankFields {
		t.Error("deferred suggestions must mark fields blank")
	}
}

func TestDefaults_UnknownModeRejected(t *testing.T) {
	t.Parallel()

	svc := newDefaultsFixture(NewMockShiftRepository(), NewMockCacheStore())

	_, err := svc.Resolve(context.Background(), "driver-1", "PAPER")
	if !service.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestDefaults_EmptyDriverRejected(t *testing.T) {
	t.Parallel()

	svc := newDefaultsFixture(NewMockShiftRepository(), NewMockCacheStore())

	_, err := svc.Resolve(context.Background(), "", domain.EncodingModeLive)
	if err != service.ErrInvalidDriverID {
		t.Errorf("expected ErrInvalidDriverID, got %v", err)
	}
}

func TestDefaults_SuggestionServedFromCache(t *testing.T) {
	t.Parallel()

	shiftRepo := NewMockShiftRepository()
	cache := NewMockCacheStore()
	svc := newDefaultsFixture(shiftRepo, cache)

	// First resolve populates the cache from the validated history.
	shiftRepo.AddShift(&domain.Shift{
		ID:          "shift-old",
		DriverID:    "driver-1",
		VehicleID:   "vehicle-7",
		Mode:        domain.EncodingModeLive,
		Closed:      true,
		Validated:   true,
		ValidatedAt: time.Now(),
	})

	if _, err := svc.Resolve(context.Background(), "driver-1", domain.EncodingModeLive); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache.SetCallCount != 1 {
		t.Errorf("expected cache populated once, got %d", cache.SetCallCount)
	}

	result, err := svc.Resolve(context.Background(), "driver-1", domain.EncodingModeLive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Suggestions.VehicleID != "vehicle-7" {
		t.Errorf("expected cached vehicle, got %q", result.Suggestions.VehicleID)
	}
	// A cache hit skips the repeat write.
	if cache.SetCallCount != 1 {
		t.Errorf("expected no second cache write, got %d", cache.SetCallCount)
	}
}

func TestDefaults_SuggestionDateIsLocalToday(t *testing.T) {
	t.Parallel()

	svc := newDefaultsFixture(NewMockShiftRepository(), NewMockCacheStore())

	before := time.Now()
	result, err := svc.Resolve(context.Background(), "driver-1", domain.EncodingModeLive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after := time.Now()

	got := result.Suggestions.ServiceDate
	wantBefore := time.Date(before.Year(), before.Month(), before.Day(), 0, 0, 0, 0, before.Location())
	wantAfter := time.Date(after.Year(), after.Month(), after.Day(), 0, 0, 0, 0, after.Location())

	// Midnight of the local calendar day, not the UTC one.
	if !got.Equal(wantBefore) && !got.Equal(wantAfter) {
		t.Errorf("service date %v, expected local midnight %v", got, wantBefore)
	}
	if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 {
		t.Errorf("service date not at midnight: %v", got)
	}
}

func TestDefaults_NoHistoryYieldsEmptySuggestion(t *testing.T) {
	t.Parallel()

	svc := newDefaultsFixture(NewMockShiftRepository(), NewMockCacheStore())

	result, err := svc.Resolve(context.Background(), "driver-1", domain.EncodingModeLive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Suggestions == nil {
		t.Fatal("expected suggestions")
	}
	if result.Suggestions.VehicleID != "" {
		t.Errorf("expected no vehicle suggestion, got %q", result.Suggestions.VehicleID)
	}
	if result.Suggestions.ServiceDate.IsZero() {
		t.Error("expected a service date suggestion")
	}
}
