package booking

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lexbook/database/repository"
	schedulerRepo "lexbook/database/repository/scheduler"
	"lexbook/models"
)

const (
	DefaultTxTimeout   = 10 * time.Second
	sideEffectTimeout  = 5 * time.Second
	conflictOnBookMsg  = "the requested slot was just booked by another request"
	conflictOnWriteMsg = "the consultation was modified concurrently"
)

// Dispatcher stages notification records inside the caller's transaction.
type Dispatcher interface {
	Dispatch(ctx context.Context, tx schedulerRepo.Tx, c *models.Consultation) error
	DispatchCancellation(ctx context.Context, tx schedulerRepo.Tx, c *models.Consultation, cancelledBy string) error
}

// ReminderScheduler enqueues a reminder for a committed consultation.
type ReminderScheduler interface {
	ScheduleReminder(ctx context.Context, c *models.Consultation) error
}

// AvailabilityCache stores computed availability views per lawyer. Entries
// are keyed by a generation that Invalidate advances.
type AvailabilityCache interface {
	Generation(ctx context.Context, lawyerID string) (int64, error)
	Get(ctx context.Context, lawyerID string, gen int64, query string, out interface{}) error
	Set(ctx context.Context, lawyerID string, gen int64, query string, value interface{}) error
	Invalidate(ctx context.Context, lawyerID string) error
}

// Engine grants template slots to clients. The consultation collection is
// the only source of truth for conflicts; the template booked flag is kept
// in step but never consulted.
type Engine struct {
	repo        schedulerRepo.SchedulerRepository
	dispatcher  Dispatcher
	logger      *zap.Logger
	now         func() time.Time
	newID       func() string
	txTimeout   time.Duration
	horizonDays int
	retryOpts   []RetryOption
	cache       AvailabilityCache
	reminders   ReminderScheduler
}

// Option configures an Engine.
type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

func WithTxTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.txTimeout = d
		}
	}
}

func WithHorizonDays(days int) Option {
	return func(e *Engine) {
		if days > 0 {
			e.horizonDays = days
		}
	}
}

// WithRetry sets the backoff used when a unit of work loses a commit race.
func WithRetry(opts ...RetryOption) Option {
	return func(e *Engine) { e.retryOpts = opts }
}

func WithAvailabilityCache(cache AvailabilityCache) Option {
	return func(e *Engine) { e.cache = cache }
}

func WithReminderScheduler(reminders ReminderScheduler) Option {
	return func(e *Engine) { e.reminders = reminders }
}

// NewEngine wires the booking engine. Cache and reminders are optional.
func NewEngine(repo schedulerRepo.SchedulerRepository, dispatcher Dispatcher, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		repo:        repo,
		dispatcher:  dispatcher,
		logger:      logger,
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
		txTimeout:   DefaultTxTimeout,
		horizonDays: DefaultHorizonDays,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Book reserves the candidate slot for verifiedClientID and returns the new
// consultation id. The booking, the template flag and both notifications
// commit together or not at all.
func (e *Engine) Book(ctx context.Context, cand *models.BookingCandidate, verifiedClientID string) (string, error) {
	if cand == nil {
		return "", ValidationError("booking request is empty")
	}
	if verifiedClientID == "" || cand.ClientID != verifiedClientID {
		return "", ForbiddenError("clientId does not match the authenticated user")
	}
	weekday, err := weekdayOf(cand.Date)
	if err != nil {
		return "", ValidationError("date %q must use the yyyy-MM-dd format", cand.Date)
	}

	ctx, cancel := context.WithTimeout(ctx, e.txTimeout)
	defer cancel()

	// The id is fixed across retries so a retried attempt never creates a second record.
	consultationID := e.newID()
	var created models.Consultation

	attempts, err := RetryWithExponentialBackoff(ctx, func(ctx context.Context) error {
		return e.repo.WithTransaction(ctx, func(ctx context.Context, tx schedulerRepo.Tx) error {
			c, err := e.bookInTx(ctx, tx, cand, weekday, consultationID)
			if err != nil {
				return err
			}
			created = *c
			return nil
		})
	}, e.retryOpts...)
	if err != nil {
		berr := e.fail(ctx, err, conflictOnBookMsg)
		e.logOutcome("Booking rejected", berr,
			zap.String("lawyerId", cand.LawyerID),
			zap.String("date", cand.Date),
			zap.String("start", cand.TimeSlot.Start),
			zap.Int("attempts", attempts),
		)
		return "", berr
	}

	e.logger.Info("Consultation booked",
		zap.String("consultationId", created.ID),
		zap.String("lawyerId", created.LawyerID),
		zap.String("date", created.Date),
		zap.String("start", created.TimeSlot.Start),
		zap.Int("attempts", attempts),
	)
	e.afterBooking(ctx, &created)
	return created.ID, nil
}

func (e *Engine) bookInTx(ctx context.Context, tx schedulerRepo.Tx, cand *models.BookingCandidate, weekday time.Weekday, id string) (*models.Consultation, error) {
	lawyer, err := tx.GetLawyer(ctx, cand.LawyerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFoundError("lawyer %s not found", cand.LawyerID)
		}
		return nil, err
	}
	if !lawyer.Bookable() {
		return nil, UnavailableError("lawyer is not accepting consultations")
	}

	day, ok := lawyer.Availability.DaySchedule(weekday)
	if !ok || !day.Available {
		return nil, UnavailableError("lawyer does not offer consultations on %s", models.WeekdayKey(weekday))
	}
	slot, ok := lawyer.Availability.FindSlot(weekday, cand.TimeSlot.Start, cand.TimeSlot.End)
	if !ok {
		return nil, UnavailableError("the requested time slot is not offered")
	}

	// slot.Booked is only a cache; the consultation query decides.
	if _, err := tx.FindScheduledConsultation(ctx, cand.LawyerID, cand.Date, cand.TimeSlot.Start); err == nil {
		return nil, ConflictError("the requested slot is already booked")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	now := e.now().UTC()
	c := &models.Consultation{
		ID:            id,
		LawyerID:      lawyer.ID,
		ClientID:      cand.ClientID,
		Subject:       cand.Subject,
		Description:   cand.Description,
		Date:          cand.Date,
		TimeSlot:      models.TimeRange{Start: slot.Start, End: slot.End},
		Timezone:      cand.Timezone,
		StartsAt:      cand.StartsAt.UTC(),
		Status:        models.StatusScheduled,
		PaymentStatus: models.PaymentPending,
		PaymentAmount: paymentAmount(cand.PaymentAmount, lawyer.HourlyRate, slot),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := tx.InsertConsultation(ctx, c); err != nil {
		return nil, err
	}
	if err := tx.SetSlotBooked(ctx, lawyer.ID, weekday, slot.Start, true); err != nil {
		return nil, err
	}
	if err := e.dispatcher.Dispatch(ctx, tx, c); err != nil {
		return nil, notificationFailure(err)
	}
	return c, nil
}

// notificationFailure keeps commit races retryable and reports anything else
// as a retryable internal error.
func notificationFailure(err error) error {
	if errors.Is(err, repository.ErrWriteConflict) {
		return err
	}
	return InternalError(err, "failed to record notifications")
}

func paymentAmount(supplied *float64, hourlyRate float64, slot models.TemplateSlot) float64 {
	if supplied != nil {
		return *supplied
	}
	return math.Round(hourlyRate*slot.Duration().Hours()*100) / 100
}

func weekdayOf(date string) (time.Weekday, error) {
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return 0, err
	}
	return d.Weekday(), nil
}

// fail classifies err; an expired deadline always wins over a conflict.
func (e *Engine) fail(ctx context.Context, err error, conflictMsg string) error {
	var be *Error
	if !errors.As(err, &be) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return TimeoutError(err)
	}
	return classify(err, conflictMsg)
}

func (e *Engine) logOutcome(msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("code", string(CodeOf(err))), zap.Error(err))
	switch CodeOf(err) {
	case CodeInternal, CodeTimeout:
		e.logger.Error(msg, fields...)
	default:
		e.logger.Info(msg, fields...)
	}
}

// afterBooking runs best-effort side effects; failures are logged only.
func (e *Engine) afterBooking(ctx context.Context, c *models.Consultation) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	e.invalidate(ctx, c.LawyerID)
	if e.reminders != nil {
		if err := e.reminders.ScheduleReminder(ctx, c); err != nil {
			e.logger.Warn("Failed to schedule consultation reminder",
				zap.String("consultationId", c.ID), zap.Error(err))
		}
	}
}

func (e *Engine) invalidate(ctx context.Context, lawyerID string) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Invalidate(ctx, lawyerID); err != nil {
		e.logger.Warn("Failed to invalidate availability cache",
			zap.String("lawyerId", lawyerID), zap.Error(err))
	}
}

// runInTx wraps the shared timeout, retry and classification used by every
// write operation.
func (e *Engine) runInTx(ctx context.Context, conflictMsg string, fn func(ctx context.Context, tx schedulerRepo.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, e.txTimeout)
	defer cancel()

	_, err := RetryWithExponentialBackoff(ctx, func(ctx context.Context) error {
		return e.repo.WithTransaction(ctx, fn)
	}, e.retryOpts...)
	if err != nil {
		return e.fail(ctx, err, conflictMsg)
	}
	return nil
}
