package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"roadsheet/internal/domain"
	"roadsheet/internal/service"
)

// TaximeterHandler handles HTTP requests for shift meter readings.
type TaximeterHandler struct {
	taximeterService *service.TaximeterService
}

// NewTaximeterHandler creates a new TaximeterHandler.
func NewTaximeterHandler(taximeterService *service.TaximeterService) *TaximeterHandler {
	return &TaximeterHandler{taximeterService: taximeterService}
}

// meterAliases maps each canonical reading field to the accepted wire names,
// newest naming scheme first. Both schemes survive in stored sheets, so both
// are accepted on input and emitted on output. This table is the only place
// that knows about the duplication.
var meterAliases = map[string][]string{
	"flag_fall_start": {"taximetre_prise_charge_debut", "pc_debut_tax"},
	"flag_fall_end":   {"taximetre_prise_charge_fin", "pc_fin_tax"},
	"total_km_start":  {"taximetre_index_km_debut", "index_km_debut_tax"},
	"total_km_end":    {"taximetre_index_km_fin", "index_km_fin_tax"},
	"loaded_km_start": {"taximetre_km_charge_debut", "km_charge_debut_tax"},
	"loaded_km_end":   {"taximetre_km_charge_fin", "km_charge_fin_tax"},
	"drop_start":      {"taximetre_chute_debut", "chutes_debut_tax"},
	"drop_end":        {"taximetre_chute_fin", "chutes_fin_tax"},
}

// MeterField is a reading value as submitted by the legacy forms: a JSON
// number, a numeric string, null, or "". A QUOTED "0" is the historical
// blank-form convention for "not provided" and is normalized to absent;
// an unquoted 0 is kept as a real zero reading.
type MeterField struct {
	decimal.NullDecimal
}

// UnmarshalJSON implements the blank-vs-zero form tolerance.
func (f *MeterField) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		f.NullDecimal = decimal.NullDecimal{}
		return nil
	}

	quoted := len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"'
	if quoted {
		inner := strings.TrimSpace(raw[1 : len(raw)-1])
		if inner == "" {
			f.NullDecimal = decimal.NullDecimal{}
			return nil
		}
		value, err := decimal.NewFromString(inner)
		if err != nil {
			return err
		}
		if value.IsZero() {
			// Legacy quirk: a quoted zero means the form field was left blank.
			f.NullDecimal = decimal.NullDecimal{}
			return nil
		}
		f.NullDecimal = decimal.NullDecimal{Decimal: value, Valid: true}
		return nil
	}

	value, err := decimal.NewFromString(raw)
	if err != nil {
		return err
	}
	f.NullDecimal = decimal.NullDecimal{Decimal: value, Valid: true}
	return nil
}

// decodeReadingFragment resolves aliases against the raw request body and
// builds the canonical fragment the reconciler works on. When a quantity
// arrives under both names, the newer name wins.
func decodeReadingFragment(body []byte) (service.ReadingFragment, error) {
	var raw map[string]json.RawMessage
	decoder := json.NewDecoder(bytes.NewReader(body))
	if err := decoder.Decode(&raw); err != nil {
		return service.ReadingFragment{}, err
	}

	fields := make(map[string]decimal.NullDecimal, len(meterAliases))
	for canonical, aliases := range meterAliases {
		for _, alias := range aliases {
			value, ok := raw[alias]
			if !ok {
				continue
			}
			var field MeterField
			if err := field.UnmarshalJSON(value); err != nil {
				return service.ReadingFragment{}, &service.ValidationError{
					Field: alias, Reason: "not a numeric value",
				}
			}
			if field.Valid {
				fields[canonical] = field.NullDecimal
				break
			}
		}
	}

	return service.ReadingFragment{
		FlagFallStart: fields["flag_fall_start"],
		FlagFallEnd:   fields["flag_fall_end"],
		TotalKmStart:  fields["total_km_start"],
		TotalKmEnd:    fields["total_km_end"],
		LoadedKmStart: fields["loaded_km_start"],
		LoadedKmEnd:   fields["loaded_km_end"],
		DropStart:     fields["drop_start"],
		DropEnd:       fields["drop_end"],
	}, nil
}

// readingPayload renders a reading with every populated quantity under both
// historical aliases, so existing readers of either name keep working.
func readingPayload(reading *domain.MeterReading) gin.H {
	payload := gin.H{
		"id":         reading.ID,
		"shift_id":   reading.ShiftID,
		"updated_at": reading.UpdatedAt.Format(time.RFC3339),
	}

	values := map[string]decimal.NullDecimal{
		"flag_fall_start": reading.FlagFallStart,
		"flag_fall_end":   reading.FlagFallEnd,
		"total_km_start":  reading.TotalKmStart,
		"total_km_end":    reading.TotalKmEnd,
		"loaded_km_start": reading.LoadedKmStart,
		"loaded_km_end":   reading.LoadedKmEnd,
		"drop_start":      reading.DropStart,
		"drop_end":        reading.DropEnd,
	}

	for canonical, value := range values {
		if !value.Valid {
			continue
		}
		for _, alias := range meterAliases[canonical] {
			payload[alias] = value.Decimal.String()
		}
	}

	return payload
}

// TotalsResponse carries the computed deltas and any rollover warnings.
type TotalsResponse struct {
	Distance       *string                        `json:"distance_total,omitempty"`
	LoadedDistance *string                        `json:"loaded_distance_total,omitempty"`
	Drop           *string                        `json:"drop_total,omitempty"`
	Warnings       []domain.ReconciliationWarning `json:"warnings,omitempty"`
}

func totalsResponse(totals domain.MeterTotals) TotalsResponse {
	response := TotalsResponse{Warnings: totals.Warnings}
	if totals.Distance.Valid {
		v := totals.Distance.Decimal.String()
		response.Distance = &v
	}
	if totals.LoadedDistance.Valid {
		v := totals.LoadedDistance.Decimal.String()
		response.LoadedDistance = &v
	}
	if totals.Drop.Valid {
		v := totals.Drop.Decimal.String()
		response.Drop = &v
	}
	return response
}

// Merge handles PUT /v1/shifts/:id/taximeter
func (h *TaximeterHandler) Merge(c *gin.Context) {
	shiftID := c.Param("id")

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	fragment, err := decodeReadingFragment(body)
	if err != nil {
		respondError(c, err)
		return
	}

	reading, err := h.taximeterService.Merge(c.Request.Context(), shiftID, fragment)
	if err != nil {
		respondError(c, err)
		return
	}

	payload := readingPayload(reading)
	payload["totals"] = totalsResponse(service.ComputeTotals(reading))
	respondJSON(c, http.StatusOK, payload)
}

// Get handles GET /v1/shifts/:id/taximeter
func (h *TaximeterHandler) Get(c *gin.Context) {
	shiftID := c.Param("id")

	reading, err := h.taximeterService.GetByShift(c.Request.Context(), shiftID)
	if err != nil {
		respondError(c, err)
		return
	}
	if reading == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no meter reading recorded for shift"})
		return
	}

	payload := readingPayload(reading)
	payload["totals"] = totalsResponse(service.ComputeTotals(reading))
	respondJSON(c, http.StatusOK, payload)
}
