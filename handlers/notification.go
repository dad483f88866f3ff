package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lexbook/database/repository"
	notificationRepo "lexbook/database/repository/notification"
	"lexbook/middleware"
	"lexbook/models"
	"lexbook/services/booking"
)

type NotificationHandler struct {
	repo notificationRepo.NotificationRepository
	errs errorResponder
}

func NewNotificationHandler(repo notificationRepo.NotificationRepository, logger *zap.Logger, debugErrors bool) *NotificationHandler {
	return &NotificationHandler{repo: repo, errs: errorResponder{logger: logger, debug: debugErrors}}
}

// ListNotificationsHandler returns the caller's notifications, newest first.
func (h *NotificationHandler) ListNotificationsHandler(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		h.errs.badRequest(c, "invalid limit", err)
		return
	}
	list, err := h.repo.ListByUser(c.Request.Context(), middleware.CurrentUserID(c), limit)
	if err != nil {
		h.errs.write(c, booking.InternalError(err, "failed to list notifications"))
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

// MarkReadHandler acknowledges one of the caller's notifications.
func (h *NotificationHandler) MarkReadHandler(c *gin.Context) {
	err := h.repo.MarkRead(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		h.errs.write(c, booking.NotFoundError("notification %s not found", c.Param("id")))
		return
	case err != nil:
		h.errs.write(c, booking.InternalError(err, "failed to update notification"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
