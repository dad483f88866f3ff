package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	schedulerRepo "lexbook/database/repository/scheduler"
	"lexbook/models"
)

// Dispatcher writes notification records through the caller's transaction,
// so they commit or roll back together with the booking state they describe.
type Dispatcher struct {
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewDispatcher creates a dispatcher that stamps records with the wall clock.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
}

// WithClock overrides the timestamp source. Used by tests.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Dispatch records a booking_confirmed notification for the client and a
// new_booking notification for the lawyer.
func (d *Dispatcher) Dispatch(ctx context.Context, tx schedulerRepo.Tx, c *models.Consultation) error {
	when := describeSlot(c)
	records := []models.Notification{
		d.build(c.ClientID, c.ID, models.NotificationBookingConfirmed,
			"Consultation confirmed",
			fmt.Sprintf("Your consultation \"%s\" is booked for %s.", c.Subject, when)),
		d.build(c.LawyerID, c.ID, models.NotificationNewBooking,
			"New consultation booked",
			fmt.Sprintf("A client booked \"%s\" for %s.", c.Subject, when)),
	}
	if err := tx.InsertNotifications(ctx, records...); err != nil {
		return fmt.Errorf("dispatch booking notifications for %s: %w", c.ID, err)
	}
	d.logger.Debug("Booking notifications staged", zap.String("consultationId", c.ID))
	return nil
}

// DispatchCancellation notifies the party that did not cancel.
func (d *Dispatcher) DispatchCancellation(ctx context.Context, tx schedulerRepo.Tx, c *models.Consultation, cancelledBy string) error {
	recipient := c.LawyerID
	if cancelledBy == c.LawyerID {
		recipient = c.ClientID
	}
	record := d.build(recipient, c.ID, models.NotificationBookingCancelled,
		"Consultation cancelled",
		fmt.Sprintf("The consultation \"%s\" on %s was cancelled.", c.Subject, describeSlot(c)))
	if err := tx.InsertNotifications(ctx, record); err != nil {
		return fmt.Errorf("dispatch cancellation notification for %s: %w", c.ID, err)
	}
	return nil
}

// DispatchReminder records a consultation_reminder for both parties. Ids are
// derived from the consultation so a redelivered task hits the unique index.
func (d *Dispatcher) DispatchReminder(ctx context.Context, tx schedulerRepo.Tx, c *models.Consultation) error {
	msg := fmt.Sprintf("Reminder: \"%s\" starts %s.", c.Subject, describeSlot(c))
	records := []models.Notification{
		d.build(c.ClientID, c.ID, models.NotificationReminder, "Upcoming consultation", msg),
		d.build(c.LawyerID, c.ID, models.NotificationReminder, "Upcoming consultation", msg),
	}
	for i := range records {
		records[i].ID = ReminderNotificationID(c.ID, records[i].UserID)
	}
	if err := tx.InsertNotifications(ctx, records...); err != nil {
		return fmt.Errorf("dispatch reminders for %s: %w", c.ID, err)
	}
	return nil
}

// ReminderNotificationID is the fixed id of a reminder for one recipient.
func ReminderNotificationID(consultationID, userID string) string {
	return "reminder-" + consultationID + "-" + userID
}

func (d *Dispatcher) build(userID, bookingID string, typ models.NotificationType, title, message string) models.Notification {
	return models.Notification{
		ID:        d.newID(),
		UserID:    userID,
		Type:      typ,
		BookingID: bookingID,
		Title:     title,
		Message:   message,
		Read:      false,
		CreatedAt: d.now().UTC(),
	}
}

func describeSlot(c *models.Consultation) string {
	return fmt.Sprintf("%s %s-%s (%s)", c.Date, c.TimeSlot.Start, c.TimeSlot.End, c.Timezone)
}
