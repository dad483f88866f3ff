package cron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"lexbook/database/repository"
	schedulerRepo "lexbook/database/repository/scheduler"
	"lexbook/models"
	"lexbook/services/tasks"
)

// ReminderDispatcher writes reminder notifications inside a transaction.
type ReminderDispatcher interface {
	DispatchReminder(ctx context.Context, tx schedulerRepo.Tx, c *models.Consultation) error
}

// ReminderWorker processes consultation reminder tasks.
type ReminderWorker struct {
	uow        schedulerRepo.UnitOfWork
	dispatcher ReminderDispatcher
	logger     *zap.Logger
}

func NewReminderWorker(uow schedulerRepo.UnitOfWork, dispatcher ReminderDispatcher, logger *zap.Logger) *ReminderWorker {
	return &ReminderWorker{uow: uow, dispatcher: dispatcher, logger: logger}
}

// HandleReminder writes reminders for both parties if the consultation is
// still scheduled. Cancelled, completed or missing consultations are skipped.
func (w *ReminderWorker) HandleReminder(ctx context.Context, task *asynq.Task) error {
	var p models.ReminderPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil || p.ConsultationID == "" {
		w.logger.Error("Invalid reminder payload", zap.ByteString("payload", task.Payload()), zap.Error(err))
		return fmt.Errorf("invalid reminder payload: %w", asynq.SkipRetry)
	}

	var skipped string
	err := w.uow.WithTransaction(ctx, func(ctx context.Context, tx schedulerRepo.Tx) error {
		skipped = ""
		c, err := tx.GetConsultation(ctx, p.ConsultationID)
		if errors.Is(err, repository.ErrNotFound) {
			skipped = "not found"
			return nil
		}
		if err != nil {
			return err
		}
		if c.Status != models.StatusScheduled {
			skipped = string(c.Status)
			return nil
		}
		return w.dispatcher.DispatchReminder(ctx, tx, c)
	})

	switch {
	case errors.Is(err, repository.ErrDuplicate):
		w.logger.Info("Reminder already delivered", zap.String("consultationId", p.ConsultationID))
		return nil
	case err != nil:
		w.logger.Error("Reminder failed", zap.String("consultationId", p.ConsultationID), zap.Error(err))
		return err
	case skipped != "":
		w.logger.Info("Reminder skipped",
			zap.String("consultationId", p.ConsultationID), zap.String("reason", skipped))
		return nil
	}
	w.logger.Info("Reminder delivered", zap.String("consultationId", p.ConsultationID))
	return nil
}

// NewServer builds the asynq server and mux for the reminder queue.
func NewServer(redisOpt asynq.RedisClientOpt, worker *ReminderWorker, logger *zap.Logger) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
			Logger: logger.Sugar(),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeConsultationReminder, worker.HandleReminder)
	return srv, mux
}
