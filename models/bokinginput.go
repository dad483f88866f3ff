package models

import "time"

// BookingRequest is the client payload for POST /api/consultations.
type BookingRequest struct {
	LawyerID      string    `json:"lawyerId"`
	ClientID      string    `json:"clientId"`
	Subject       string    `json:"subject"`
	Description   string    `json:"description,omitempty"`
	Date          string    `json:"date"`
	TimeSlot      TimeRange `json:"timeSlot"`
	Timezone      string    `json:"timezone"`
	PaymentAmount *float64  `json:"paymentAmount,omitempty"`
}

// BookingCandidate is a validated request ready for the booking engine.
type BookingCandidate struct {
	LawyerID      string
	ClientID      string
	Subject       string
	Description   string
	Date          string
	Weekday       time.Weekday
	TimeSlot      TimeRange
	Timezone      string
	StartsAt      time.Time // UTC
	PaymentAmount *float64
}

// StatusUpdateRequest is the payload for PATCH /api/consultations/:id/status.
type StatusUpdateRequest struct {
	Status ConsultationStatus `json:"status" binding:"required"`
}

// SetAvailabilityRequest is the payload for PUT /api/lawyers/:id/availability.
type SetAvailabilityRequest struct {
	Availability AvailabilityTemplate `json:"availability" binding:"required"`
}
