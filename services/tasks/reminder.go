package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"lexbook/models"
)

const (
	TypeConsultationReminder = "consultation:reminder"
	reminderMaxRetry         = 5
)

// NewReminderTask builds the delayed reminder task for one consultation.
// The task id makes re-enqueueing the same consultation a no-op.
func NewReminderTask(payload models.ReminderPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeConsultationReminder, b)
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		asynq.TaskID(ReminderTaskID(payload.ConsultationID)),
		asynq.MaxRetry(reminderMaxRetry),
	}
	return task, opts, nil
}

// ReminderTaskID is the queue-wide id of a consultation's reminder.
func ReminderTaskID(consultationID string) string {
	return "reminder:" + consultationID
}

// Enqueuer is the subset of *asynq.Client used here.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ReminderScheduler enqueues consultation reminders lead before they start.
type ReminderScheduler struct {
	client Enqueuer
	lead   time.Duration
	now    func() time.Time
	logger *zap.Logger
}

func NewReminderScheduler(client Enqueuer, lead time.Duration, logger *zap.Logger) *ReminderScheduler {
	return &ReminderScheduler{client: client, lead: lead, now: time.Now, logger: logger}
}

// WithClock overrides the clock. Used by tests.
func (s *ReminderScheduler) WithClock(now func() time.Time) *ReminderScheduler {
	s.now = now
	return s
}

// ScheduleReminder enqueues the reminder. Consultations whose reminder time
// has already passed get none.
func (s *ReminderScheduler) ScheduleReminder(ctx context.Context, c *models.Consultation) error {
	fireAt := c.StartsAt.Add(-s.lead)
	if !fireAt.After(s.now()) {
		s.logger.Debug("Reminder time already passed, skipping",
			zap.String("consultationId", c.ID), zap.Time("fireAt", fireAt))
		return nil
	}

	task, opts, err := NewReminderTask(models.ReminderPayload{
		ConsultationID: c.ID,
		FireAt:         fireAt.UTC().Format(time.RFC3339),
	}, fireAt)
	if err != nil {
		return fmt.Errorf("build reminder task: %w", err)
	}
	info, err := s.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("enqueue reminder for %s: %w", c.ID, err)
	}
	s.logger.Debug("Reminder scheduled",
		zap.String("consultationId", c.ID),
		zap.String("taskId", info.ID),
		zap.Time("fireAt", fireAt))
	return nil
}
