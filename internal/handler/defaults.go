package handler

import (
	"github.com/gin-gonic/gin"

	"roadsheet/internal/middleware"
	"roadsheet/internal/service"
)

// DefaultsHandler handles HTTP requests for encoding defaults.
type DefaultsHandler struct {
	defaultsService *service.DefaultsService
}

// NewDefaultsHandler creates a new DefaultsHandler.
func NewDefaultsHandler(defaultsService *service.DefaultsService) *DefaultsHandler {
	return &DefaultsHandler{defaultsService: defaultsService}
}

// SuggestionsResponse is the blank-slate payload offered for a new shift.
type SuggestionsResponse struct {
	VehicleID   string `json:"vehicle_id,omitempty"`
	ServiceDate string `json:"service_date"`
	BlankFields bool   `json:"blank_fields"`
}

// DefaultsResponse is either a resumable shift or suggestions for a new one.
type DefaultsResponse struct {
	Resume      bool                 `json:"resume"`
	Shift       *ShiftDetailResponse `json:"shift,omitempty"`
	Suggestions *SuggestionsResponse `json:"suggestions,omitempty"`
}

// Resolve handles GET /v1/defaults?mode=LIVE|DEFERRED
func (h *DefaultsHandler) Resolve(c *gin.Context) {
	driverID := c.Query("driver_id")
	if driverID == "" {
		driverID = middleware.DriverID(c)
	}

	mode, err := service.ParseEncodingMode(c.Query("mode"))
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.defaultsService.Resolve(c.Request.Context(), driverID, mode)
	if err != nil {
		respondError(c, err)
		return
	}

	response := DefaultsResponse{Resume: result.Resume}
	if result.Shift != nil {
		detail := shiftDetailResponse(result.Shift)
		response.Shift = &detail
	}
	if result.Suggestions != nil {
		response.Suggestions = &SuggestionsResponse{
			VehicleID:   result.Suggestions.VehicleID,
			ServiceDate: result.Suggestions.ServiceDate.Format(dateFormat),
			BlankFields: result.Suggestions.BlankFields,
		}
	}

	respondJSON(c, 200, response)
}
