package models

import "time"

type NotificationType string

const (
	NotificationBookingConfirmed NotificationType = "booking_confirmed"
	NotificationNewBooking       NotificationType = "new_booking"
	NotificationReminder         NotificationType = "consultation_reminder"
	NotificationBookingCancelled NotificationType = "booking_cancelled"
)

type Notification struct {
	ID        string           `bson:"id" json:"id"`
	UserID    string           `bson:"userId" json:"userId"`
	Type      NotificationType `bson:"type" json:"type"`
	BookingID string           `bson:"bookingId" json:"bookingId"`
	Title     string           `bson:"title" json:"title"`
	Message   string           `bson:"message" json:"message"`
	Read      bool             `bson:"read" json:"read"`
	CreatedAt time.Time        `bson:"createdAt" json:"createdAt"`
}

// ReminderPayload is the asynq task body for consultation reminders.
type ReminderPayload struct {
	ConsultationID string `json:"consultationId"`
	FireAt         string `json:"fireAt,omitempty"`
}
