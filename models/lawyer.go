package models

import (
	"errors"
	"fmt"
	"time"
)

var ErrMalformedLawyer = errors.New("malformed lawyer document")

// Lawyer is a provider that offers consultations.
type Lawyer struct {
	ID           string               `bson:"id" json:"id"`
	Name         string               `bson:"name" json:"name"`
	Email        string               `bson:"email" json:"email"`
	Verified     bool                 `bson:"verified" json:"verified"`
	Active       bool                 `bson:"active" json:"active"`
	HourlyRate   float64              `bson:"hourlyRate" json:"hourlyRate"`
	Currency     string               `bson:"currency,omitempty" json:"currency,omitempty"`
	Availability AvailabilityTemplate `bson:"availability" json:"availability"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// Validate rejects documents that cannot safely reach business logic.
func (l Lawyer) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedLawyer)
	}
	if l.HourlyRate < 0 {
		return fmt.Errorf("%w: negative hourly rate", ErrMalformedLawyer)
	}
	if err := l.Availability.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedLawyer, err)
	}
	return nil
}

// Bookable reports whether the lawyer may currently take consultations.
func (l Lawyer) Bookable() bool {
	return l.Verified && l.Active
}

// LawyerPublicDTO is the view returned to clients.
type LawyerPublicDTO struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	HourlyRate float64 `json:"hourlyRate"`
	Currency   string  `json:"currency,omitempty"`
}

func (l Lawyer) Public() LawyerPublicDTO {
	return LawyerPublicDTO{ID: l.ID, Name: l.Name, HourlyRate: l.HourlyRate, Currency: l.Currency}
}
