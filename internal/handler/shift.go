package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"roadsheet/internal/domain"
	"roadsheet/internal/middleware"
	"roadsheet/internal/service"
)

const (
	timeFormat = time.RFC3339
	dateFormat = "2006-01-02"
)

// ShiftHandler handles HTTP requests for shifts.
type ShiftHandler struct {
	shiftService *service.ShiftService
}

// NewShiftHandler creates a new ShiftHandler.
func NewShiftHandler(shiftService *service.ShiftService) *ShiftHandler {
	return &ShiftHandler{shiftService: shiftService}
}

// OpenShiftRequest is the HTTP request body for opening a shift.
type OpenShiftRequest struct {
	DriverID          string          `json:"driver_id,omitempty"` // defaults to the authenticated driver
	VehicleID         string          `json:"vehicle_id"`
	ServiceDate       string          `json:"service_date"` // 2006-01-02
	Mode              string          `json:"mode"`         // LIVE | DEFERRED
	StartTime         string          `json:"start_time"`   // RFC3339
	StartOdometer     decimal.Decimal `json:"start_odometer"`
	InterruptionNote  string          `json:"interruption_note,omitempty"`
	AutoClosePrevious bool            `json:"auto_close_previous,omitempty"`

	// Taximeter optionally carries an initial reading fragment, merged
	// best-effort once the shift exists.
	Taximeter json.RawMessage `json:"taximeter,omitempty"`
}

// CloseShiftRequest is the HTTP request body for closing a shift. An omitted
// end_odometer is rejected; it is not a zero reading.
type CloseShiftRequest struct {
	EndTime          string              `json:"end_time"` // RFC3339
	EndOdometer      decimal.NullDecimal `json:"end_odometer"`
	InterruptionNote string              `json:"interruption_note,omitempty"`
	DeclaredCash     decimal.NullDecimal `json:"declared_cash,omitempty"`
	Signature        string              `json:"signature,omitempty"`
}

// ShiftResponse is the HTTP representation of a shift record.
type ShiftResponse struct {
	ID               string  `json:"id"`
	DriverID         string  `json:"driver_id"`
	VehicleID        string  `json:"vehicle_id"`
	ServiceDate      string  `json:"service_date"`
	Mode             string  `json:"mode"`
	StartTime        string  `json:"start_time"`
	EndTime          string  `json:"end_time,omitempty"`
	StartOdometer    string  `json:"start_odometer"`
	EndOdometer      *string `json:"end_odometer,omitempty"`
	InterruptionNote string  `json:"interruption_note,omitempty"`
	DeclaredCash     *string `json:"declared_cash,omitempty"`
	Signature        string  `json:"signature,omitempty"`
	Closed           bool    `json:"closed"`
	Validated        bool    `json:"validated"`
	ValidatedAt      string  `json:"validated_at,omitempty"`
}

func shiftResponse(shift *domain.Shift) ShiftResponse {
	response := ShiftResponse{
		ID:               shift.ID,
		DriverID:         shift.DriverID,
		VehicleID:        shift.VehicleID,
		ServiceDate:      shift.ServiceDate.Format(dateFormat),
		Mode:             string(shift.Mode),
		StartTime:        shift.StartTime.Format(timeFormat),
		StartOdometer:    shift.StartOdometer.String(),
		InterruptionNote: shift.InterruptionNote,
		Signature:        shift.Signature,
		Closed:           shift.Closed,
		Validated:        shift.Validated,
	}
	if !shift.EndTime.IsZero() {
		response.EndTime = shift.EndTime.Format(timeFormat)
	}
	if shift.EndOdometer.Valid {
		v := shift.EndOdometer.Decimal.String()
		response.EndOdometer = &v
	}
	if shift.DeclaredCash.Valid {
		v := shift.DeclaredCash.Decimal.StringFixed(2)
		response.DeclaredCash = &v
	}
	if !shift.ValidatedAt.IsZero() {
		response.ValidatedAt = shift.ValidatedAt.Format(timeFormat)
	}
	return response
}

// ShiftDetailResponse is the full shift payload with everything it owns.
type ShiftDetailResponse struct {
	ShiftResponse
	Courses   []CourseResponse  `json:"courses"`
	Taximeter gin.H             `json:"taximeter"`
	Expenses  []ExpenseResponse `json:"expenses"`
	Receipts  string            `json:"receipts"`
	Earnings  string            `json:"earnings"`
}

func shiftDetailResponse(detail *service.ShiftDetail) ShiftDetailResponse {
	response := ShiftDetailResponse{
		ShiftResponse: shiftResponse(detail.Shift),
		Courses:       make([]CourseResponse, 0, len(detail.Courses)),
		Expenses:      make([]ExpenseResponse, 0, len(detail.Expenses)),
		Receipts:      detail.Receipts.StringFixed(2),
		Earnings:      detail.Earnings.StringFixed(2),
	}
	for _, course := range detail.Courses {
		response.Courses = append(response.Courses, courseResponse(course))
	}
	for _, expense := range detail.Expenses {
		response.Expenses = append(response.Expenses, expenseResponse(expense))
	}
	if detail.Reading != nil {
		response.Taximeter = readingPayload(detail.Reading)
	}
	return response
}

// Open handles POST /v1/shifts
func (h *ShiftHandler) Open(c *gin.Context) {
	var req OpenShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	driverID := req.DriverID
	if driverID == "" {
		driverID = middleware.DriverID(c)
	}

	mode, err := service.ParseEncodingMode(req.Mode)
	if err != nil {
		respondError(c, err)
		return
	}

	serviceDate, err := parseDate("service_date", req.ServiceDate)
	if err != nil {
		respondError(c, err)
		return
	}

	startTime, err := parseTime("start_time", req.StartTime)
	if err != nil {
		respondError(c, err)
		return
	}

	openReq := service.OpenShiftRequest{
		DriverID:          driverID,
		VehicleID:         req.VehicleID,
		ServiceDate:       serviceDate,
		Mode:              mode,
		StartTime:         startTime,
		StartOdometer:     req.StartOdometer,
		InterruptionNote:  req.InterruptionNote,
		AutoClosePrevious: req.AutoClosePrevious,
	}

	if len(req.Taximeter) > 0 {
		fragment, err := decodeReadingFragment(req.Taximeter)
		if err != nil {
			respondError(c, err)
			return
		}
		if !fragment.Empty() {
			openReq.InitialReading = &fragment
		}
	}

	result, err := h.shiftService.Open(c.Request.Context(), openReq)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, gin.H{
		"shift":    shiftResponse(result.Shift),
		"warnings": result.Warnings,
	})
}

// Close handles POST /v1/shifts/:id/close
func (h *ShiftHandler) Close(c *gin.Context) {
	shiftID := c.Param("id")

	var req CloseShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	endTime, err := parseTime("end_time", req.EndTime)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.shiftService.Close(c.Request.Context(), shiftID, service.CloseShiftRequest{
		EndTime:          endTime,
		EndOdometer:      req.EndOdometer,
		InterruptionNote: req.InterruptionNote,
		DeclaredCash:     req.DeclaredCash,
		Signature:        req.Signature,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"shift":    shiftResponse(result.Shift),
		"receipts": result.Receipts.StringFixed(2),
		"earnings": result.Earnings.StringFixed(2),
	})
}

// Validate handles POST /v1/shifts/:id/validate
func (h *ShiftHandler) Validate(c *gin.Context) {
	shiftID := c.Param("id")

	shift, err := h.shiftService.Validate(c.Request.Context(), shiftID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, shiftResponse(shift))
}

// Get handles GET /v1/shifts/:id
func (h *ShiftHandler) Get(c *gin.Context) {
	shiftID := c.Param("id")

	detail, err := h.shiftService.GetDetail(c.Request.Context(), shiftID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, shiftDetailResponse(detail))
}

// GetAll handles GET /v1/shifts
func (h *ShiftHandler) GetAll(c *gin.Context) {
	shifts, err := h.shiftService.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]ShiftResponse, 0, len(shifts))
	for _, shift := range shifts {
		response = append(response, shiftResponse(shift))
	}
	c.JSON(http.StatusOK, response)
}

// Earnings handles GET /v1/shifts/:id/earnings
// Query: scheme=tiered|fixed (default tiered), amount=<fixed salary>.
func (h *ShiftHandler) Earnings(c *gin.Context) {
	shiftID := c.Param("id")

	var fixedAmount decimal.Decimal
	if raw := c.Query("amount"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			respondError(c, &service.ValidationError{Field: "amount", Reason: "not a numeric value"})
			return
		}
		fixedAmount = parsed
	}

	scheme, err := service.ParsePayScheme(c.Query("scheme"), fixedAmount)
	if err != nil {
		respondError(c, err)
		return
	}

	receipts, earnings, err := h.shiftService.ProjectEarnings(c.Request.Context(), shiftID, scheme)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"shift_id": shiftID,
		"scheme":   string(scheme.Kind),
		"receipts": receipts.StringFixed(2),
		"earnings": earnings.StringFixed(2),
	})
}

func parseTime(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, &service.ValidationError{Field: field, Reason: "required"}
	}
	t, err := time.Parse(timeFormat, value)
	if err != nil {
		return time.Time{}, &service.ValidationError{Field: field, Reason: "must be RFC3339"}
	}
	return t, nil
}

func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, &service.ValidationError{Field: field, Reason: "required"}
	}
	t, err := time.Parse(dateFormat, value)
	if err != nil {
		return time.Time{}, &service.ValidationError{Field: field, Reason: "must be YYYY-MM-DD"}
	}
	return t, nil
}
