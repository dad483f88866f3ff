package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lexbook/middleware"
	"lexbook/models"
	"lexbook/services/booking"
)

// ConsultationHandler serves booking and consultation lifecycle endpoints.
type ConsultationHandler struct {
	engine    *booking.Engine
	validator *booking.Validator
	errs      errorResponder
}

func NewConsultationHandler(engine *booking.Engine, validator *booking.Validator, logger *zap.Logger, debugErrors bool) *ConsultationHandler {
	return &ConsultationHandler{
		engine:    engine,
		validator: validator,
		errs:      errorResponder{logger: logger, debug: debugErrors},
	}
}

// CreateConsultationHandler books a slot for the authenticated client.
func (h *ConsultationHandler) CreateConsultationHandler(c *gin.Context) {
	var req models.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.badRequest(c, "invalid request body", err)
		return
	}

	candidate, err := h.validator.Validate(req)
	if err != nil {
		h.errs.write(c, err)
		return
	}

	id, err := h.engine.Book(c.Request.Context(), candidate, middleware.CurrentUserID(c))
	if err != nil {
		h.errs.write(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "consultationId": id})
}

// GetConsultationHandler returns a consultation to one of its parties.
func (h *ConsultationHandler) GetConsultationHandler(c *gin.Context) {
	consultation, err := h.engine.GetConsultation(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		h.errs.write(c, err)
		return
	}
	c.JSON(http.StatusOK, consultation)
}

// UpdateStatusHandler completes or cancels a consultation.
func (h *ConsultationHandler) UpdateStatusHandler(c *gin.Context) {
	var req models.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.badRequest(c, "invalid request body", err)
		return
	}

	consultation, err := h.engine.UpdateStatus(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), req.Status)
	if err != nil {
		h.errs.write(c, err)
		return
	}
	c.JSON(http.StatusOK, consultation)
}
