package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"roadsheet/internal/domain"
	"roadsheet/internal/service"
)

// CourseHandler handles HTTP requests for trip entries.
type CourseHandler struct {
	courseService *service.CourseService
}

// NewCourseHandler creates a new CourseHandler.
func NewCourseHandler(courseService *service.CourseService) *CourseHandler {
	return &CourseHandler{courseService: courseService}
}

// AppendCourseRequest is the HTTP request body for appending a trip entry.
type AppendCourseRequest struct {
	Sequence        int                 `json:"sequence,omitempty"`
	PickupLocation  string              `json:"pickup_location"`
	PickupTime      string              `json:"pickup_time"` // RFC3339
	PickupIndex     decimal.NullDecimal `json:"pickup_index,omitempty"`
	DropoffLocation string              `json:"dropoff_location"`
	DropoffTime     string              `json:"dropoff_time,omitempty"` // RFC3339
	DropoffIndex    decimal.NullDecimal `json:"dropoff_index,omitempty"`
	MeterFare       decimal.NullDecimal `json:"meter_fare,omitempty"`
	Collected       decimal.Decimal     `json:"collected"`
	PaymentMethodID string              `json:"payment_method_id,omitempty"`
	ClientID        string              `json:"client_id,omitempty"`
	OffHours        bool                `json:"off_hours,omitempty"`
}

// CourseResponse is the HTTP representation of a trip entry.
type CourseResponse struct {
	ID              string  `json:"id"`
	ShiftID         string  `json:"shift_id"`
	Sequence        int     `json:"sequence"`
	PickupLocation  string  `json:"pickup_location"`
	PickupTime      string  `json:"pickup_time"`
	PickupIndex     *string `json:"pickup_index,omitempty"`
	DropoffLocation string  `json:"dropoff_location"`
	DropoffTime     string  `json:"dropoff_time,omitempty"`
	DropoffIndex    *string `json:"dropoff_index,omitempty"`
	MeterFare       *string `json:"meter_fare,omitempty"`
	Collected       string  `json:"collected"`
	PaymentMethodID string  `json:"payment_method_id,omitempty"`
	ClientID        string  `json:"client_id,omitempty"`
	OffHours        bool    `json:"off_hours"`
}

func courseResponse(course *domain.Course) CourseResponse {
	response := CourseResponse{
		ID:              course.ID,
		ShiftID:         course.ShiftID,
		Sequence:        course.Sequence,
		PickupLocation:  course.PickupLocation,
		PickupTime:      course.PickupTime.Format(timeFormat),
		DropoffLocation: course.DropoffLocation,
		Collected:       course.Collected.StringFixed(2),
		PaymentMethodID: course.PaymentMethodID,
		ClientID:        course.ClientID,
		OffHours:        course.OffHours,
	}
	if !course.DropoffTime.IsZero() {
		response.DropoffTime = course.DropoffTime.Format(timeFormat)
	}
	if course.PickupIndex.Valid {
		v := course.PickupIndex.Decimal.String()
		response.PickupIndex = &v
	}
	if course.DropoffIndex.Valid {
		v := course.DropoffIndex.Decimal.String()
		response.DropoffIndex = &v
	}
	if course.MeterFare.Valid {
		v := course.MeterFare.Decimal.StringFixed(2)
		response.MeterFare = &v
	}
	return response
}

// Append handles POST /v1/shifts/:id/courses
func (h *CourseHandler) Append(c *gin.Context) {
	shiftID := c.Param("id")

	var req AppendCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	pickupTime, err := parseTime("pickup_time", req.PickupTime)
	if err != nil {
		respondError(c, err)
		return
	}

	appendReq := service.AppendCourseRequest{
		Sequence:        req.Sequence,
		PickupLocation:  req.PickupLocation,
		PickupTime:      pickupTime,
		PickupIndex:     req.PickupIndex,
		DropoffLocation: req.DropoffLocation,
		DropoffIndex:    req.DropoffIndex,
		MeterFare:       req.MeterFare,
		Collected:       req.Collected,
		PaymentMethodID: req.PaymentMethodID,
		ClientID:        req.ClientID,
		OffHours:        req.OffHours,
	}

	if req.DropoffTime != "" {
		dropoffTime, err := parseTime("dropoff_time", req.DropoffTime)
		if err != nil {
			respondError(c, err)
			return
		}
		appendReq.DropoffTime = dropoffTime
	}

	course, err := h.courseService.Append(c.Request.Context(), shiftID, appendReq)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, courseResponse(course))
}

// List handles GET /v1/shifts/:id/courses
func (h *CourseHandler) List(c *gin.Context) {
	shiftID := c.Param("id")

	courses, err := h.courseService.List(c.Request.Context(), shiftID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]CourseResponse, 0, len(courses))
	for _, course := range courses {
		response = append(response, courseResponse(course))
	}
	c.JSON(http.StatusOK, response)
}
