package tests

import (
	"testing"

	"github.com/shopspring/decimal"

	"roadsheet/internal/domain"
	"roadsheet/internal/service"
)

// ──────────────────────────────────────────────
// 1. EARNINGS COMPUTATION
// ──────────────────────────────────────────────

func TestEarnings_BelowThreshold(t *testing.T) {
	t.Parallel()

	// 62.40 * 0.40 = 24.96, no surplus tier touched.
	receipts := decimal.RequireFromString("62.40")
	earnings, err := service.ComputeEarnings(receipts, domain.DefaultTieredScheme())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if earnings.StringFixed(2) != "24.96" {
		t.Errorf("expected 24.96, got %s", earnings.StringFixed(2))
	}
}

func TestEarnings_AboveThreshold(t *testing.T) {
	t.Parallel()

	// 180 * 0.40 + 70 * 0.30 = 72.00 + 21.00 = 93.00
	receipts := decimal.RequireFromString("250.00")
	earnings, err := service.ComputeEarnings(receipts, domain.DefaultTieredScheme())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if earnings.StringFixed(2) != "93.00" {
		t.Errorf("expected 93.00, got %s", earnings.StringFixed(2))
	}
}

func TestEarnings_ExactlyAtThreshold(t *testing.T) {
	t.Parallel()

	// The boundary belongs to the base tier: 180 * 0.40 = 72.00.
	receipts := decimal.NewFromInt(180)
	earnings, err := service.ComputeEarnings(receipts, domain.DefaultTieredScheme())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if earnings.StringFixed(2) != "72.00" {
		t.Errorf("expected 72.00, got %s", earnings.StringFixed(2))
	}
}

func TestEarnings_ZeroReceipts(t *testing.T) {
	t.Parallel()

	earnings, err := service.ComputeEarnings(decimal.Zero, domain.DefaultTieredScheme())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !earnings.IsZero() {
		t.Errorf("expected 0, got %s", earnings.String())
	}
}

func TestEarnings_Deterministic(t *testing.T) {
	t.Parallel()

	receipts := decimal.RequireFromString("147.35")
	scheme := domain.DefaultTieredScheme()

	first, err := service.ComputeEarnings(receipts, scheme)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := service.ComputeEarnings(receipts, scheme)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.Equal(second) {
		t.Errorf("same inputs produced %s and %s", first.String(), second.String())
	}
}

func TestEarnings_RoundingHalfUp(t *testing.T) {
	t.Parallel()

	// 62.4375 * 0.40 = 24.975 -> rounds half-up to 24.98.
	receipts := decimal.RequireFromString("62.4375")
	earnings, err := service.ComputeEarnings(receipts, domain.DefaultTieredScheme())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if earnings.StringFixed(2) != "24.98" {
		t.Errorf("expected 24.98, got %s", earnings.StringFixed(2))
	}
}

func TestEarnings_FixedScheme(t *testing.T) {
	t.Parallel()

	scheme := domain.PayScheme{
		Kind:   domain.SchemeKindFixed,
		Amount: decimal.RequireFromString("120.00"),
	}

	// Receipts are ignored under a fixed salary.
	earnings, err := service.ComputeEarnings(decimal.RequireFromString("999.99"), scheme)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if earnings.StringFixed(2) != "120.00" {
		t.Errorf("expected 120.00, got %s", earnings.StringFixed(2))
	}
}

func TestEarnings_UnknownSchemeKind(t *testing.T) {
	t.Parallel()

	_, err := service.ComputeEarnings(decimal.NewFromInt(100), domain.PayScheme{Kind: "commission"})
	if err != service.ErrUnknownSchemeKind {
		t.Errorf("expected ErrUnknownSchemeKind, got %v", err)
	}
}

func TestParsePayScheme(t *testing.T) {
	t.Parallel()

	// Empty kind falls back to the default tiered scheme.
	scheme, err := service.ParsePayScheme("", decimal.Zero)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scheme.Kind != domain.SchemeKindTiered {
		t.Errorf("expected tiered, got %s", scheme.Kind)
	}
	if !scheme.Threshold.Equal(decimal.NewFromInt(180)) {
		t.Errorf("expected threshold 180, got %s", scheme.Threshold.String())
	}

	scheme, err = service.ParsePayScheme("fixed", decimal.RequireFromString("90.50"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scheme.Kind != domain.SchemeKindFixed || scheme.Amount.StringFixed(2) != "90.50" {
		t.Errorf("unexpected fixed scheme: %+v", scheme)
	}

	if _, err := service.ParsePayScheme("hourly", decimal.Zero); err != service.ErrUnknownSchemeKind {
		t.Errorf("expected ErrUnknownSchemeKind, got %v", err)
	}
}
