package models

import "time"

type ConsultationStatus string

const (
	StatusScheduled ConsultationStatus = "scheduled"
	StatusCompleted ConsultationStatus = "completed"
	StatusCancelled ConsultationStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// TimeRange is a slot window copied from the template at booking time.
type TimeRange struct {
	Start string `bson:"start" json:"start"`
	End   string `bson:"end" json:"end"`
}

// Consultation is a concrete, dated reservation of one template slot.
// Records are never deleted; cancellation is a status change.
type Consultation struct {
	ID            string             `bson:"id" json:"id"`
	LawyerID      string             `bson:"lawyerId" json:"lawyerId"`
	ClientID      string             `bson:"clientId" json:"clientId"`
	Subject       string             `bson:"subject" json:"subject"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	Date          string             `bson:"date" json:"date"` // "yyyy-MM-dd"
	TimeSlot      TimeRange          `bson:"timeSlot" json:"timeSlot"`
	Timezone      string             `bson:"timezone" json:"timezone"`
	StartsAt      time.Time          `bson:"startsAt" json:"startsAt"`
	Status        ConsultationStatus `bson:"status" json:"status"`
	PaymentStatus PaymentStatus      `bson:"paymentStatus" json:"paymentStatus"`
	PaymentAmount float64            `bson:"paymentAmount" json:"paymentAmount"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsTerminal reports whether the status can no longer change.
func (s ConsultationStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether s may move to next.
func (s ConsultationStatus) CanTransitionTo(next ConsultationStatus) bool {
	return s == StatusScheduled && next.IsTerminal()
}

// Weekday resolves the day of week of the consultation date.
func (c Consultation) Weekday() (time.Weekday, error) {
	d, err := time.Parse(DateLayout, c.Date)
	if err != nil {
		return 0, err
	}
	return d.Weekday(), nil
}

// HasParty reports whether userID is the client or the lawyer.
func (c Consultation) HasParty(userID string) bool {
	return userID != "" && (userID == c.ClientID || userID == c.LawyerID)
}
