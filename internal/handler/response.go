package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rideledger/internal/money"
	"rideledger/internal/repository"
	"rideledger/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

var errInvalidRideID = errors.New("invalid ride id")

// respondError records err on the context for the request logger and sends
// an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	code := mapErrorToHTTPStatus(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(code, ErrorResponse{Error: msg})
}

// respondBadRequest sends a 400 with msg.
func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
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
	case errors.Is(err, service.ErrFundsMismatch),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidCaller),
		errors.Is(err, errInvalidRideID),
		errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, money.ErrNegativeAmount),
		errors.Is(err, money.ErrTooPrecise),
		errors.Is(err, money.ErrOutOfRange):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrInvalidState):
		return http.StatusConflict

	// Forbidden
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusForbidden

	// Custody transfer refused by the destination
	case errors.Is(err, service.ErrPayoutFailed),
		errors.Is(err, service.ErrRefundFailed):
		return http.StatusUnprocessableEntity

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}

// parseRideID reads the :id path parameter.
func parseRideID(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, errInvalidRideID
	}
	return id, nil
}
