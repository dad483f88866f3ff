package lawyerRepo

import (
	"context"

	"lexbook/models"
)

// LawyerRepository manages lawyer profiles outside the booking transaction.
type LawyerRepository interface {
	Upsert(ctx context.Context, lawyer *models.Lawyer) error
	ListBookable(ctx context.Context, limit int64) ([]models.Lawyer, error)
}
