package schedulerRepo

import (
	"context"
	"time"

	"lexbook/models"
)

// Tx is the set of operations available inside a unit of work. Every call
// must use the ctx handed to the WithTransaction callback.
type Tx interface {
	// GetLawyer loads a lawyer and its availability template.
	GetLawyer(ctx context.Context, lawyerID string) (*models.Lawyer, error)
	// FindScheduledConsultation returns the active consultation holding
	// (lawyerID, date, start), or repository.ErrNotFound.
	FindScheduledConsultation(ctx context.Context, lawyerID, date, start string) (*models.Consultation, error)
	// HasScheduledOnWeekday reports whether a scheduled consultation other
	// than excludeID holds the template slot (lawyerID, wd, start) on any date.
	HasScheduledOnWeekday(ctx context.Context, lawyerID string, wd time.Weekday, start, excludeID string) (bool, error)
	// GetConsultation loads a consultation by id.
	GetConsultation(ctx context.Context, consultationID string) (*models.Consultation, error)
	// InsertConsultation persists a new consultation.
	InsertConsultation(ctx context.Context, c *models.Consultation) error
	// UpdateConsultationStatus moves a consultation from one status to another.
	UpdateConsultationStatus(ctx context.Context, consultationID string, from, to models.ConsultationStatus, at time.Time) error
	// SetSlotBooked updates the cached booked flag on a template slot.
	SetSlotBooked(ctx context.Context, lawyerID string, wd time.Weekday, start string, booked bool) error
	// ReplaceAvailability overwrites the lawyer's template.
	ReplaceAvailability(ctx context.Context, lawyerID string, tmpl models.AvailabilityTemplate, at time.Time) error
	// InsertNotifications persists notification records.
	InsertNotifications(ctx context.Context, notifications ...models.Notification) error
}

// UnitOfWork runs fn atomically. Reads made through tx are re-validated at
// commit; a lost race is reported as repository.ErrWriteConflict and a
// duplicate active booking as repository.ErrDuplicate. Errors returned by
// fn abort the transaction and are returned unchanged.
type UnitOfWork interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// SchedulerRepository is the data access used by the scheduling engine.
type SchedulerRepository interface {
	UnitOfWork

	// GetLawyer reads a lawyer outside any transaction.
	GetLawyer(ctx context.Context, lawyerID string) (*models.Lawyer, error)
	// GetConsultation reads a consultation outside any transaction.
	GetConsultation(ctx context.Context, consultationID string) (*models.Consultation, error)
	// ListScheduledConsultations returns active consultations of a lawyer
	// whose date lies in [fromDate, toDate].
	ListScheduledConsultations(ctx context.Context, lawyerID, fromDate, toDate string) ([]models.Consultation, error)
}
