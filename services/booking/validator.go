package booking

import (
	"strings"
	"time"

	"lexbook/models"
)

const DefaultHorizonDays = 60

// Validator checks booking requests without touching the store.
type Validator struct {
	HorizonDays int
	Now         func() time.Time
}

func NewValidator(horizonDays int) *Validator {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	return &Validator{HorizonDays: horizonDays, Now: time.Now}
}

// Validate returns the normalized candidate or the first ValidationError found.
func (v *Validator) Validate(req models.BookingRequest) (*models.BookingCandidate, error) {
	req.LawyerID = strings.TrimSpace(req.LawyerID)
	req.ClientID = strings.TrimSpace(req.ClientID)
	req.Subject = strings.TrimSpace(req.Subject)
	req.Date = strings.TrimSpace(req.Date)
	req.Timezone = strings.TrimSpace(req.Timezone)

	switch {
	case req.LawyerID == "":
		return nil, ValidationError("lawyerId is required")
	case req.ClientID == "":
		return nil, ValidationError("clientId is required")
	case req.Subject == "":
		return nil, ValidationError("subject is required")
	case req.Date == "":
		return nil, ValidationError("date is required")
	case req.TimeSlot.Start == "" || req.TimeSlot.End == "":
		return nil, ValidationError("timeSlot.start and timeSlot.end are required")
	case req.Timezone == "":
		return nil, ValidationError("timezone is required")
	}

	day, err := time.Parse(models.DateLayout, req.Date)
	if err != nil {
		return nil, ValidationError("date %q must use the yyyy-MM-dd format", req.Date)
	}
	slot, err := models.NewTemplateSlot(req.TimeSlot.Start, req.TimeSlot.End)
	if err != nil {
		return nil, ValidationError("invalid timeSlot: %v", err)
	}
	if req.PaymentAmount != nil && *req.PaymentAmount < 0 {
		return nil, ValidationError("paymentAmount must not be negative")
	}

	loc, err := loadZone(req.Timezone)
	if err != nil {
		return nil, ValidationError("unknown timezone %q", req.Timezone)
	}

	startMin, _ := models.ParseClock(slot.Start)
	startsAt := time.Date(day.Year(), day.Month(), day.Day(), startMin/60, startMin%60, 0, 0, loc)

	now := v.now()
	if !startsAt.After(now) {
		return nil, ValidationError("consultation must start in the future")
	}

	if daysAhead(now.In(loc), day) > v.horizon() {
		return nil, ValidationError("date must be within %d days", v.horizon())
	}

	return &models.BookingCandidate{
		LawyerID:      req.LawyerID,
		ClientID:      req.ClientID,
		Subject:       req.Subject,
		Description:   strings.TrimSpace(req.Description),
		Date:          req.Date,
		Weekday:       day.Weekday(),
		TimeSlot:      models.TimeRange{Start: slot.Start, End: slot.End},
		Timezone:      loc.String(),
		StartsAt:      startsAt.UTC(),
		PaymentAmount: req.PaymentAmount,
	}, nil
}

func (v *Validator) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

func (v *Validator) horizon() int {
	if v.HorizonDays <= 0 {
		return DefaultHorizonDays
	}
	return v.HorizonDays
}

// loadZone only accepts explicit IANA names; "Local" depends on the host.
func loadZone(name string) (*time.Location, error) {
	if strings.EqualFold(name, "local") {
		return nil, models.ErrInvalidTimezone
	}
	return time.LoadLocation(name)
}

// daysAhead counts calendar days from the local date of now to day.
func daysAhead(now time.Time, day time.Time) int {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	target := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return int(target.Sub(today).Hours() / 24)
}
