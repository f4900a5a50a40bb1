package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"roadsheet/internal/repository"
	"roadsheet/internal/service"
)

// ErrorResponse represents an error response. Field is set for validation
// failures so the caller knows the offending input.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: ve.Error(), Field: ve.Field})
		return
	}
	c.JSON(mapErrorToHTTPStatus(err), ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidShiftID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrUnknownSchemeKind):
		return http.StatusBadRequest

	// Lifecycle/conflict errors
	case errors.Is(err, service.ErrDriverShiftOpen),
		errors.Is(err, service.ErrShiftClosed),
		errors.Is(err, service.ErrShiftNotClosed),
		errors.Is(err, service.ErrShiftAlreadyValidated),
		errors.Is(err, service.ErrReadingBusy),
		errors.Is(err, repository.ErrConflict):
		return http.StatusConflict

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
