package booking

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"lexbook/database/repository"
	schedulerRepo "lexbook/database/repository/scheduler"
	"lexbook/models"
)

// GetConsultation returns a consultation visible to actorID.
func (e *Engine) GetConsultation(ctx context.Context, consultationID, actorID string) (*models.Consultation, error) {
	c, err := e.repo.GetConsultation(ctx, consultationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFoundError("consultation %s not found", consultationID)
		}
		return nil, InternalError(err, "failed to load consultation")
	}
	if !c.HasParty(actorID) {
		return nil, ForbiddenError("only the client or the lawyer may view this consultation")
	}
	return c, nil
}

// UpdateStatus moves a scheduled consultation to completed or cancelled.
// Either party may cancel; only the lawyer may complete. Cancelling clears
// the template flag and notifies the other party in the same unit of work.
func (e *Engine) UpdateStatus(ctx context.Context, consultationID, actorID string, next models.ConsultationStatus) (*models.Consultation, error) {
	if !next.IsTerminal() {
		return nil, ValidationError("status must be %q or %q", models.StatusCompleted, models.StatusCancelled)
	}

	var updated models.Consultation
	err := e.runInTx(ctx, conflictOnWriteMsg, func(ctx context.Context, tx schedulerRepo.Tx) error {
		c, err := tx.GetConsultation(ctx, consultationID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return NotFoundError("consultation %s not found", consultationID)
			}
			return err
		}
		if !c.HasParty(actorID) {
			return ForbiddenError("only the client or the lawyer may change this consultation")
		}
		if next == models.StatusCompleted && actorID != c.LawyerID {
			return ForbiddenError("only the lawyer may complete a consultation")
		}
		if !c.Status.CanTransitionTo(next) {
			return ValidationError("cannot change status from %s to %s", c.Status, next)
		}

		now := e.now().UTC()
		if err := tx.UpdateConsultationStatus(ctx, c.ID, c.Status, next, now); err != nil {
			return err
		}
		c.Status = next
		c.UpdatedAt = now

		if next == models.StatusCancelled {
			if err := e.releaseSlot(ctx, tx, c); err != nil {
				return err
			}
			if err := e.dispatcher.DispatchCancellation(ctx, tx, c, actorID); err != nil {
				return notificationFailure(err)
			}
		}
		updated = *c
		return nil
	})
	if err != nil {
		e.logOutcome("Status change rejected", err,
			zap.String("consultationId", consultationID),
			zap.String("status", string(next)),
		)
		return nil, err
	}

	e.logger.Info("Consultation status changed",
		zap.String("consultationId", updated.ID),
		zap.String("status", string(updated.Status)),
	)
	if updated.Status == models.StatusCancelled {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
		defer cancel()
		e.invalidate(ctx, updated.LawyerID)
	}
	return &updated, nil
}

// releaseSlot recomputes the cached booked flag: it stays set while another
// date on the same weekday still holds the slot. A slot removed from the
// template since the booking has no flag left to clear.
func (e *Engine) releaseSlot(ctx context.Context, tx schedulerRepo.Tx, c *models.Consultation) error {
	wd, err := c.Weekday()
	if err != nil {
		return InternalError(err, "stored consultation has an invalid date")
	}
	held, err := tx.HasScheduledOnWeekday(ctx, c.LawyerID, wd, c.TimeSlot.Start, c.ID)
	if err != nil {
		return err
	}
	// Written even when unchanged so concurrent cancellations of this slot conflict.
	if err := tx.SetSlotBooked(ctx, c.LawyerID, wd, c.TimeSlot.Start, held); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}
