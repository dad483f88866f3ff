package booking

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"lexbook/database/repository"
	schedulerRepo "lexbook/database/repository/scheduler"
	"lexbook/models"
)

// SetAvailability replaces the lawyer's weekly template. Booked flags sent
// by the caller are ignored; flags of slots that survive unchanged are
// carried over from the stored template.
func (e *Engine) SetAvailability(ctx context.Context, lawyerID, actorID string, tmpl models.AvailabilityTemplate) (*models.AvailabilityTemplate, error) {
	if actorID == "" || actorID != lawyerID {
		return nil, ForbiddenError("only the lawyer may change their availability")
	}
	if tmpl.Schedule == nil {
		tmpl.Schedule = map[string]models.DaySchedule{}
	}
	if err := tmpl.Validate(); err != nil {
		return nil, ValidationError("invalid availability: %v", err)
	}

	var merged models.AvailabilityTemplate
	err := e.runInTx(ctx, conflictOnWriteMsg, func(ctx context.Context, tx schedulerRepo.Tx) error {
		lawyer, err := tx.GetLawyer(ctx, lawyerID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return NotFoundError("lawyer %s not found", lawyerID)
			}
			return err
		}
		merged = mergeBookedFlags(tmpl, lawyer.Availability)
		return tx.ReplaceAvailability(ctx, lawyerID, merged, e.now().UTC())
	})
	if err != nil {
		e.logOutcome("Availability update rejected", err, zap.String("lawyerId", lawyerID))
		return nil, err
	}

	e.logger.Info("Availability updated", zap.String("lawyerId", lawyerID))
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	e.invalidate(ctx, lawyerID)
	return &merged, nil
}

func mergeBookedFlags(next, current models.AvailabilityTemplate) models.AvailabilityTemplate {
	out := next.Clone()
	for key, day := range out.Schedule {
		old := current.Schedule[key]
		for i := range day.Slots {
			day.Slots[i].Booked = false
			for _, prev := range old.Slots {
				if prev.Start == day.Slots[i].Start && prev.End == day.Slots[i].End {
					day.Slots[i].Booked = prev.Booked
					break
				}
			}
		}
	}
	return out
}
