package handler

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"roadsheet/internal/domain"
	"roadsheet/internal/service"
)

func TestMeterField_QuotedZeroMeansAbsent(t *testing.T) {
	t.Parallel()

	var field MeterField
	if err := field.UnmarshalJSON([]byte(`"0"`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if field.Valid {
		t.Error("quoted zero must decode as absent")
	}
}

func TestMeterField_UnquotedZeroIsRealZero(t *testing.T) {
	t.Parallel()

	var field MeterField
	if err := field.UnmarshalJSON([]byte(`0`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !field.Valid {
		t.Fatal("unquoted zero must decode as present")
	}
	if !field.Decimal.IsZero() {
		t.Errorf("expected zero, got %s", field.Decimal.String())
	}
}

func TestMeterField_Variants(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		input string
		valid bool
		value string
	}{
		{"number", `125000.5`, true, "125000.5"},
		{"numeric string", `"125000.5"`, true, "125000.5"},
		{"null", `null`, false, ""},
		{"empty string", `""`, false, ""},
		{"quoted zero decimal", `"0.00"`, false, ""},
		{"negative number", `-12.5`, true, "-12.5"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var field MeterField
			if err := field.UnmarshalJSON([]byte(tc.input)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if field.Valid != tc.valid {
				t.Fatalf("valid = %v, expected %v", field.Valid, tc.valid)
			}
			if tc.valid && field.Decimal.String() != tc.value {
				t.Errorf("expected %s, got %s", tc.value, field.Decimal.String())
			}
		})
	}
}

func TestMeterField_RejectsGarbage(t *testing.T) {
	t.Parallel()

	var field MeterField
	if err := field.UnmarshalJSON([]byte(`"abc"`)); err == nil {
		t.Error("expected error for non-numeric string")
	}
}

func TestDecodeReadingFragment_ModernAlias(t *testing.T) {
	t.Parallel()

	fragment, err := decodeReadingFragment([]byte(`{"taximetre_index_km_debut": 125000}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fragment.TotalKmStart.Valid || fragment.TotalKmStart.Decimal.String() != "125000" {
		t.Errorf("unexpected total km start: %+v", fragment.TotalKmStart)
	}
}

func TestDecodeReadingFragment_LegacyAlias(t *testing.T) {
	t.Parallel()

	fragment, err := decodeReadingFragment([]byte(`{"index_km_debut_tax": "125000"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fragment.TotalKmStart.Valid || fragment.TotalKmStart.Decimal.String() != "125000" {
		t.Errorf("unexpected total km start: %+v", fragment.TotalKmStart)
	}
}

func TestDecodeReadingFragment_ModernNameWins(t *testing.T) {
	t.Parallel()

	body := []byte(`{"taximetre_index_km_debut": 125000, "index_km_debut_tax": 999}`)
	fragment, err := decodeReadingFragment(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fragment.TotalKmStart.Decimal.String() != "125000" {
		t.Errorf("expected the newer alias to win, got %s", fragment.TotalKmStart.Decimal.String())
	}
}

func TestDecodeReadingFragment_BlankModernFallsToLegacy(t *testing.T) {
	t.Parallel()

	// The modern field arrived as a blank form value; the legacy one carries data.
	body := []byte(`{"taximetre_index_km_debut": "0", "index_km_debut_tax": 125000}`)
	fragment, err := decodeReadingFragment(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fragment.TotalKmStart.Valid || fragment.TotalKmStart.Decimal.String() != "125000" {
		t.Errorf("unexpected total km start: %+v", fragment.TotalKmStart)
	}
}

func TestDecodeReadingFragment_UnknownFieldsIgnored(t *testing.T) {
	t.Parallel()

	fragment, err := decodeReadingFragment([]byte(`{"remarque": "pluie", "taximetre_chute_fin": 31.5}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fragment.DropEnd.Valid || fragment.DropEnd.Decimal.String() != "31.5" {
		t.Errorf("unexpected drop end: %+v", fragment.DropEnd)
	}
	if fragment.TotalKmStart.Valid {
		t.Error("unrelated fields must stay unset")
	}
}

func TestDecodeReadingFragment_BadValueRejected(t *testing.T) {
	t.Parallel()

	_, err := decodeReadingFragment([]byte(`{"taximetre_index_km_debut": "not a number"}`))
	if !service.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestReadingPayload_EmitsBothAliases(t *testing.T) {
	t.Parallel()

	reading := &domain.MeterReading{
		ID:           "reading-1",
		ShiftID:      "shift-1",
		TotalKmStart: decimal.NullDecimal{Decimal: decimal.NewFromInt(125000), Valid: true},
		UpdatedAt:    time.Now(),
	}

	payload := readingPayload(reading)

	if payload["taximetre_index_km_debut"] != "125000" {
		t.Errorf("modern alias missing, payload %v", payload)
	}
	if payload["index_km_debut_tax"] != "125000" {
		t.Errorf("legacy alias missing, payload %v", payload)
	}
	// Unset quantities are omitted entirely, under either name.
	if _, ok := payload["taximetre_index_km_fin"]; ok {
		t.Error("unset quantity must not appear")
	}
	if _, ok := payload["index_km_fin_tax"]; ok {
		t.Error("unset quantity must not appear under the legacy name")
	}
}
