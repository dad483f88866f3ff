package notificationRepo

import (
	"context"

	"lexbook/models"
)

// NotificationRepository reads and acknowledges notifications. Writes happen
// inside booking transactions through the scheduler repository.
type NotificationRepository interface {
	// ListByUser returns the user's notifications, newest first. limit <= 0 means no limit.
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.Notification, error)
	// MarkRead flags one of the user's notifications as read.
	MarkRead(ctx context.Context, userID, notificationID string) error
}
