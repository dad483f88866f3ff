package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lexbook/services/booking"
	"lexbook/utils"
)

var statusByCode = map[booking.ErrorCode]int{
	booking.CodeValidation:  http.StatusBadRequest,
	booking.CodeNotFound:    http.StatusNotFound,
	booking.CodeUnavailable: http.StatusBadRequest,
	booking.CodeConflict:    http.StatusConflict,
	booking.CodeForbidden:   http.StatusForbidden,
	booking.CodeTimeout:     http.StatusInternalServerError,
	booking.CodeInternal:    http.StatusInternalServerError,
}

// StatusFor maps a booking error to its HTTP status.
func StatusFor(err error) int {
	if status, ok := statusByCode[booking.CodeOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// errorResponder writes booking errors. Server-side failures get a generic
// message; the underlying error is only exposed when debug is set.
type errorResponder struct {
	logger *zap.Logger
	debug  bool
}

func (r errorResponder) write(c *gin.Context, err error) {
	status := StatusFor(err)
	logger := getLogger(c, r.logger)

	message := err.Error()
	if be, ok := asBookingError(err); ok {
		message = be.Message
	}

	details := ""
	switch {
	case booking.CodeOf(err) == booking.CodeTimeout:
		message = "the request timed out, please retry"
	case status >= http.StatusInternalServerError:
		message = "internal server error"
	}
	if status >= http.StatusInternalServerError && r.debug {
		details = err.Error()
	}
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.Int("status", status), zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, utils.ErrorResponse{Error: message, Details: details})
}

func (r errorResponder) badRequest(c *gin.Context, message string, err error) {
	details := ""
	if err != nil {
		details = err.Error()
	}
	utils.JSONError(c, getLogger(c, r.logger), http.StatusBadRequest, message, details)
}

func asBookingError(err error) (*booking.Error, bool) {
	var be *booking.Error
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
