package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	lawyerRepo "lexbook/database/repository/lawyer"
	"lexbook/middleware"
	"lexbook/models"
	"lexbook/services/booking"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// LawyerHandler serves lawyer listings and availability.
type LawyerHandler struct {
	engine  *booking.Engine
	lawyers lawyerRepo.LawyerRepository
	errs    errorResponder
}

func NewLawyerHandler(engine *booking.Engine, lawyers lawyerRepo.LawyerRepository, logger *zap.Logger, debugErrors bool) *LawyerHandler {
	return &LawyerHandler{
		engine:  engine,
		lawyers: lawyers,
		errs:    errorResponder{logger: logger, debug: debugErrors},
	}
}

// ListLawyersHandler returns public profiles of bookable lawyers.
func (h *LawyerHandler) ListLawyersHandler(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		h.errs.badRequest(c, "invalid limit", err)
		return
	}
	lawyers, err := h.lawyers.ListBookable(c.Request.Context(), limit)
	if err != nil {
		h.errs.write(c, booking.InternalError(err, "failed to list lawyers"))
		return
	}
	out := make([]models.LawyerPublicDTO, 0, len(lawyers))
	for _, l := range lawyers {
		out = append(out, l.Public())
	}
	c.JSON(http.StatusOK, gin.H{"lawyers": out})
}

// GetAvailabilityHandler lists open slots, e.g.
// GET /api/lawyers/:id/availability?from=2026-10-19&days=7&timezone=Africa/Douala
func (h *LawyerHandler) GetAvailabilityHandler(c *gin.Context) {
	q := booking.AvailabilityQuery{
		From:     c.Query("from"),
		Timezone: c.Query("timezone"),
	}
	if raw := c.Query("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			h.errs.badRequest(c, "days must be an integer", err)
			return
		}
		q.Days = days
	}

	days, err := h.engine.Availability(c.Request.Context(), c.Param("id"), q)
	if err != nil {
		h.errs.write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lawyerId": c.Param("id"), "days": days})
}

// SetAvailabilityHandler replaces the caller's weekly template.
func (h *LawyerHandler) SetAvailabilityHandler(c *gin.Context) {
	var req models.SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.badRequest(c, "invalid request body", err)
		return
	}

	tmpl, err := h.engine.SetAvailability(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), req.Availability)
	if err != nil {
		h.errs.write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"availability": tmpl})
}

func parseLimit(raw string) (int64, error) {
	if raw == "" {
		return defaultListLimit, nil
	}
	limit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || limit <= 0 {
		return 0, strconv.ErrSyntax
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, nil
}
