package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lexbook/database/repository"
	schedulerRepo "lexbook/database/repository/scheduler"
	"lexbook/models"
	"lexbook/services/notification"
)

func mondayLawyer() models.Lawyer {
	return models.Lawyer{
		ID:         "law-1",
		Name:       "Amina Ndongo",
		Verified:   true,
		Active:     true,
		HourlyRate: 120,
		Availability: models.AvailabilityTemplate{Schedule: map[string]models.DaySchedule{
			"monday": {Available: true, Slots: []models.TemplateSlot{
				{Start: "09:00", End: "10:00"},
				{Start: "10:00", End: "11:30"},
			}},
			"tuesday": {Available: false, Slots: []models.TemplateSlot{
				{Start: "09:00", End: "10:00"},
			}},
		}},
	}
}

func newTestEngine(t *testing.T, repo schedulerRepo.SchedulerRepository, opts ...Option) *Engine {
	t.Helper()
	dispatcher := notification.NewDispatcher(zap.NewNop()).WithClock(fixedClock)
	base := []Option{
		WithClock(fixedClock),
		WithRetry(WithBaseDelay(time.Millisecond)),
	}
	return NewEngine(repo, dispatcher, zap.NewNop(), append(base, opts...)...)
}

func seededMemory(t *testing.T, lawyers ...models.Lawyer) *schedulerRepo.MemoryStore {
	t.Helper()
	store := schedulerRepo.NewMemoryStore()
	if len(lawyers) == 0 {
		lawyers = []models.Lawyer{mondayLawyer()}
	}
	for _, l := range lawyers {
		require.NoError(t, store.PutLawyer(l))
	}
	return store
}

func candidate(t *testing.T, mutate ...func(r *models.BookingRequest)) *models.BookingCandidate {
	t.Helper()
	req := validRequest()
	for _, m := range mutate {
		m(&req)
	}
	cand, err := testValidator().Validate(req)
	require.NoError(t, err)
	return cand
}

func bookedFlag(t *testing.T, store *schedulerRepo.MemoryStore, wd time.Weekday, start, end string) bool {
	t.Helper()
	lawyer, err := store.GetLawyer(context.Background(), "law-1")
	require.NoError(t, err)
	slot, ok := lawyer.Availability.FindSlot(wd, start, end)
	require.True(t, ok)
	return slot.Booked
}

func Test_Book_Succeeds(t *testing.T) {
	ctx := context.Background()
	store := seededMemory(t)
	engine := newTestEngine(t, store, WithIDGenerator(func() string { return "cons-1" }))

	id, err := engine.Book(ctx, candidate(t), "client-1")

	require.NoError(t, err)
	assert.Equal(t, "cons-1", id)

	c, err := store.GetConsultation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, c.Status)
	assert.Equal(t, models.PaymentPending, c.PaymentStatus)
	assert.Equal(t, "Africa/Douala", c.Timezone)
	assert.Equal(t, time.Date(2026, time.October, 19, 8, 0, 0, 0, time.UTC), c.StartsAt)
	assert.Equal(t, 120.0, c.PaymentAmount)
	assert.True(t, bookedFlag(t, store, time.Monday, "09:00", "10:00"))

	notes := store.Notifications()
	require.Len(t, notes, 2)
	byUser := map[string]models.NotificationType{}
	for _, n := range notes {
		assert.Equal(t, id, n.BookingID)
		assert.False(t, n.Read)
		byUser[n.UserID] = n.Type
	}
	assert.Equal(t, models.NotificationBookingConfirmed, byUser["client-1"])
	assert.Equal(t, models.NotificationNewBooking, byUser["law-1"])
}

func Test_Book_DefaultPaymentUsesSlotLength(t *testing.T) {
	store := seededMemory(t)
	engine := newTestEngine(t, store)

	id, err := engine.Book(context.Background(), candidate(t, func(r *models.BookingRequest) {
		r.TimeSlot = models.TimeRange{Start: "10:00", End: "11:30"}
	}), "client-1")

	require.NoError(t, err)
	c, err := store.GetConsultation(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 180.0, c.PaymentAmount)
}

func Test_Book_SecondRequestForSameSlotConflicts(t *testing.T) {
	ctx := context.Background()
	store := seededMemory(t)
	engine := newTestEngine(t, store)

	_, err := engine.Book(ctx, candidate(t), "client-1")
	require.NoError(t, err)

	_, err = engine.Book(ctx, candidate(t, func(r *models.BookingRequest) { r.ClientID = "client-2" }), "client-2")

	require.Error(t, err)
	assert.Equal(t, CodeConflict, CodeOf(err))
	assert.Len(t, store.Consultations(), 1)
	assert.Len(t, store.Notifications(), 2)
}

func Test_Book_ConcurrentRequestsGrantSlotOnce(t *testing.T) {
	ctx := context.Background()
	store := seededMemory(t)
	engine := newTestEngine(t, store, WithRetry(WithMaxAttempts(5), WithBaseDelay(time.Millisecond)))

	const clients = 8
	var (
		wg        sync.WaitGroup
		successes int32
		conflicts int32
	)
	for i := 0; i < clients; i++ {
		clientID := fmt.Sprintf("client-%d", i)
		cand := candidate(t, func(r *models.BookingRequest) { r.ClientID = clientID })
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Book(ctx, cand, clientID)
			if err == nil {
				atomic.AddInt32(&successes, 1)
			} else if CodeOf(err) == CodeConflict {
				atomic.AddInt32(&conflicts, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes)
	assert.Equal(t, int32(clients-1), conflicts)
	assert.Len(t, store.Consultations(), 1)
	assert.Len(t, store.Notifications(), 2)
}

func Test_Book_DifferentSlotsBothSucceed(t *testing.T) {
	ctx := context.Background()
	store := seededMemory(t)
	engine := newTestEngine(t, store)

	_, err := engine.Book(ctx, candidate(t), "client-1")
	require.NoError(t, err)
	_, err = engine.Book(ctx, candidate(t, func(r *models.BookingRequest) {
		r.ClientID = "client-2"
		r.TimeSlot = models.TimeRange{Start: "10:00", End: "11:30"}
	}), "client-2")
	require.NoError(t, err)

	// Same weekday slot on the following Monday is a different consultation.
	_, err = engine.Book(ctx, candidate(t, func(r *models.BookingRequest) {
		r.ClientID = "client-3"
		r.Date = "2026-10-26"
	}), "client-3")
	require.NoError(t, err)

	assert.Len(t, store.Consultations(), 3)
}

func Test_Book_StaleBookedFlagDoesNotBlock(t *testing.T) {
	lawyer := mondayLawyer()
	lawyer.Availability.Schedule["monday"].Slots[0].Booked = true
	store := seededMemory(t, lawyer)
	engine := newTestEngine(t, store)

	_, err := engine.Book(context.Background(), candidate(t), "client-1")

	assert.NoError(t, err)
}

func Test_Book_Rejections(t *testing.T) {
	inactive := mondayLawyer()
	inactive.ID = "law-2"
	inactive.Active = false
	unverified := mondayLawyer()
	unverified.ID = "law-3"
	unverified.Verified = false

	cases := []struct {
		name     string
		mutate   func(r *models.BookingRequest)
		clientID string
		code     ErrorCode
	}{
		{"unknown lawyer", func(r *models.BookingRequest) { r.LawyerID = "nobody" }, "client-1", CodeNotFound},
		{"inactive lawyer", func(r *models.BookingRequest) { r.LawyerID = "law-2" }, "client-1", CodeUnavailable},
		{"unverified lawyer", func(r *models.BookingRequest) { r.LawyerID = "law-3" }, "client-1", CodeUnavailable},
		{"day not in template", func(r *models.BookingRequest) { r.Date = "2026-10-21" }, "client-1", CodeUnavailable},
		{"day marked unavailable", func(r *models.BookingRequest) { r.Date = "2026-10-20" }, "client-1", CodeUnavailable},
		{"slot not offered", func(r *models.BookingRequest) {
			r.TimeSlot = models.TimeRange{Start: "09:00", End: "09:30"}
		}, "client-1", CodeUnavailable},
		{"someone else's client id", func(r *models.BookingRequest) {}, "client-9", CodeForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := seededMemory(t, mondayLawyer(), inactive, unverified)
			engine := newTestEngine(t, store)

			_, err := engine.Book(context.Background(), candidate(t, tc.mutate), tc.clientID)

			require.Error(t, err)
			assert.Equal(t, tc.code, CodeOf(err))
			assert.Empty(t, store.Consultations())
			assert.Empty(t, store.Notifications())
		})
	}
}

func Test_Book_NilCandidate(t *testing.T) {
	engine := newTestEngine(t, seededMemory(t))

	_, err := engine.Book(context.Background(), nil, "client-1")

	assert.Equal(t, CodeValidation, CodeOf(err))
}

func Test_Book_NotificationFailureRollsBack(t *testing.T) {
	store := seededMemory(t)
	store.FailNotificationsWith(errors.New("notification store down"))
	engine := newTestEngine(t, store)

	_, err := engine.Book(context.Background(), candidate(t), "client-1")

	require.Error(t, err)
	assert.Equal(t, CodeInternal, CodeOf(err))
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.True(t, be.Retryable())
	assert.Empty(t, store.Consultations())
	assert.Empty(t, store.Notifications())
	assert.False(t, bookedFlag(t, store, time.Monday, "09:00", "10:00"))
}

// blockingRepo never finishes a unit of work before the context ends.
type blockingRepo struct {
	schedulerRepo.SchedulerRepository
}

func (b blockingRepo) WithTransaction(ctx context.Context, _ func(ctx context.Context, tx schedulerRepo.Tx) error) error {
	<-ctx.Done()
	return ctx.Err()
}

func Test_Book_TimesOut(t *testing.T) {
	store := seededMemory(t)
	engine := newTestEngine(t, blockingRepo{store}, WithTxTimeout(20*time.Millisecond))

	_, err := engine.Book(context.Background(), candidate(t), "client-1")

	require.Error(t, err)
	assert.Equal(t, CodeTimeout, CodeOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, store.Consultations())
}

// flakyRepo fails the first n commits with a write conflict.
type flakyRepo struct {
	schedulerRepo.SchedulerRepository
	failures int32
	calls    int32
}

func (f *flakyRepo) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx schedulerRepo.Tx) error) error {
	if atomic.AddInt32(&f.calls, 1) <= f.failures {
		return repository.ErrWriteConflict
	}
	return f.SchedulerRepository.WithTransaction(ctx, fn)
}

func Test_Book_RetriesCommitRace(t *testing.T) {
	store := seededMemory(t)
	repo := &flakyRepo{SchedulerRepository: store, failures: 1}
	engine := newTestEngine(t, repo)

	id, err := engine.Book(context.Background(), candidate(t), "client-1")

	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&repo.calls))
	_, err = store.GetConsultation(context.Background(), id)
	assert.NoError(t, err)
}

func Test_Book_ExhaustedRetriesReportConflict(t *testing.T) {
	store := seededMemory(t)
	repo := &flakyRepo{SchedulerRepository: store, failures: 10}
	engine := newTestEngine(t, repo)

	_, err := engine.Book(context.Background(), candidate(t), "client-1")

	require.Error(t, err)
	assert.Equal(t, CodeConflict, CodeOf(err))
	assert.Equal(t, int32(defaultMaxAttempts), atomic.LoadInt32(&repo.calls))
}

type recordingReminders struct {
	mu   sync.Mutex
	seen []string
	err  error
}

func (r *recordingReminders) ScheduleReminder(_ context.Context, c *models.Consultation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, c.ID)
	return r.err
}

func Test_Book_SchedulesReminderAfterCommit(t *testing.T) {
	reminders := &recordingReminders{err: errors.New("queue down")}
	engine := newTestEngine(t, seededMemory(t), WithReminderScheduler(reminders))

	id, err := engine.Book(context.Background(), candidate(t), "client-1")

	require.NoError(t, err, "a reminder failure must not fail the booking")
	assert.Equal(t, []string{id}, reminders.seen)
}

func bookOne(t *testing.T, engine *Engine) string {
	t.Helper()
	id, err := engine.Book(context.Background(), candidate(t), "client-1")
	require.NoError(t, err)
	return id
}

func Test_UpdateStatus_ClientCancelsAndFreesSlot(t *testing.T) {
	ctx := context.Background()
	store := seededMemory(t)
	engine := newTestEngine(t, store)
	id := bookOne(t, engine)

	c, err := engine.UpdateStatus(ctx, id, "client-1", models.StatusCancelled)

	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, c.Status)
	assert.False(t, bookedFlag(t, store, time.Monday, "09:00", "10:00"))

	notes := store.Notifications()
	require.Len(t, notes, 3)
	last := notes[len(notes)-1]
	assert.Equal(t, models.NotificationBookingCancelled, last.Type)
	assert.Equal(t, "law-1", last.UserID)

	// The slot can be booked again.
	_, err = engine.Book(ctx, candidate(t, func(r *models.BookingRequest) { r.ClientID = "client-2" }), "client-2")
	assert.NoError(t, err)
}

func Test_UpdateStatus_CancelKeepsFlagWhileWeekdayStillBooked(t *testing.T) {
	ctx := context.Background()
	store := seededMemory(t)
	engine := newTestEngine(t, store)
	first := bookOne(t, engine)
	second, err := engine.Book(ctx, candidate(t, func(r *models.BookingRequest) {
		r.ClientID = "client-2"
		r.Date = "2026-10-26"
	}), "client-2")
	require.NoError(t, err)

	_, err = engine.UpdateStatus(ctx, first, "client-1", models.StatusCancelled)
	require.NoError(t, err)
	assert.True(t, bookedFlag(t, store, time.Monday, "09:00", "10:00"), "2026-10-26 still holds monday 09:00")

	_, err = engine.UpdateStatus(ctx, second, "client-2", models.StatusCancelled)
	require.NoError(t, err)
	assert.False(t, bookedFlag(t, store, time.Monday, "09:00", "10:00"))
}

func Test_UpdateStatus_ConcurrentCancelsOfSameWeekdayClearFlag(t *testing.T) {
	ctx := context.Background()
	store := seededMemory(t)
	engine := newTestEngine(t, store, WithRetry(WithMaxAttempts(5), WithBaseDelay(time.Millisecond)))
	ids := []string{bookOne(t, engine)}
	id, err := engine.Book(ctx, candidate(t, func(r *models.BookingRequest) {
		r.ClientID = "client-2"
		r.Date = "2026-10-26"
	}), "client-2")
	require.NoError(t, err)
	ids = append(ids, id)

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = engine.UpdateStatus(ctx, id, "law-1", models.StatusCancelled)
		}(i, id)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.False(t, bookedFlag(t, store, time.Monday, "09:00", "10:00"))
}

func Test_UpdateStatus_LawyerCancelNotifiesClient(t *testing.T) {
	store := seededMemory(t)
	engine := newTestEngine(t, store)
	id := bookOne(t, engine)

	_, err := engine.UpdateStatus(context.Background(), id, "law-1", models.StatusCancelled)

	require.NoError(t, err)
	notes := store.Notifications()
	assert.Equal(t, "client-1", notes[len(notes)-1].UserID)
}

func Test_UpdateStatus_Rules(t *testing.T) {
	cases := []struct {
		name  string
		actor string
		next  models.ConsultationStatus
		code  ErrorCode
	}{
		{"client cannot complete", "client-1", models.StatusCompleted, CodeForbidden},
		{"stranger cannot cancel", "client-9", models.StatusCancelled, CodeForbidden},
		{"back to scheduled", "law-1", models.StatusScheduled, CodeValidation},
		{"unknown status", "law-1", models.ConsultationStatus("archived"), CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := newTestEngine(t, seededMemory(t))
			id := bookOne(t, engine)

			_, err := engine.UpdateStatus(context.Background(), id, tc.actor, tc.next)

			assert.Equal(t, tc.code, CodeOf(err))
		})
	}
}

func Test_UpdateStatus_TerminalStatusIsFinal(t *testing.T) {
	ctx := context.Background()
	store := seededMemory(t)
	engine := newTestEngine(t, store)
	id := bookOne(t, engine)

	_, err := engine.UpdateStatus(ctx, id, "law-1", models.StatusCompleted)
	require.NoError(t, err)
	assert.True(t, bookedFlag(t, store, time.Monday, "09:00", "10:00"), "completing keeps the flag")

	_, err = engine.UpdateStatus(ctx, id, "client-1", models.StatusCancelled)
	assert.Equal(t, CodeValidation, CodeOf(err))
}

func Test_UpdateStatus_UnknownConsultation(t *testing.T) {
	engine := newTestEngine(t, seededMemory(t))

	_, err := engine.UpdateStatus(context.Background(), "missing", "client-1", models.StatusCancelled)

	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func Test_GetConsultation_OnlyParties(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, seededMemory(t))
	id := bookOne(t, engine)

	c, err := engine.GetConsultation(ctx, id, "law-1")
	require.NoError(t, err)
	assert.Equal(t, id, c.ID)

	_, err = engine.GetConsultation(ctx, id, "client-9")
	assert.Equal(t, CodeForbidden, CodeOf(err))

	_, err = engine.GetConsultation(ctx, "missing", "client-1")
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func Test_SetAvailability_CarriesBookedFlags(t *testing.T) {
	ctx := context.Background()
	store := seededMemory(t)
	engine := newTestEngine(t, store)
	bookOne(t, engine)

	next := models.AvailabilityTemplate{Schedule: map[string]models.DaySchedule{
		"monday": {Available: true, Slots: []models.TemplateSlot{
			{Start: "09:00", End: "10:00"},
			{Start: "13:00", End: "14:00", Booked: true},
		}},
		"friday": {Available: true, Slots: []models.TemplateSlot{{Start: "08:00", End: "09:00"}}},
	}}

	merged, err := engine.SetAvailability(ctx, "law-1", "law-1", next)

	require.NoError(t, err)
	monday := merged.Schedule["monday"]
	assert.True(t, monday.Slots[0].Booked, "unchanged booked slot keeps its flag")
	assert.False(t, monday.Slots[1].Booked, "client supplied flags are ignored")

	stored, err := store.GetLawyer(ctx, "law-1")
	require.NoError(t, err)
	assert.Equal(t, *merged, stored.Availability)
}

func Test_SetAvailability_Rejections(t *testing.T) {
	overlapping := models.AvailabilityTemplate{Schedule: map[string]models.DaySchedule{
		"monday": {Available: true, Slots: []models.TemplateSlot{
			{Start: "09:00", End: "10:30"},
			{Start: "10:00", End: "11:00"},
		}},
	}}
	badDay := models.AvailabilityTemplate{Schedule: map[string]models.DaySchedule{
		"funday": {Available: true},
	}}

	engine := newTestEngine(t, seededMemory(t))
	ctx := context.Background()

	_, err := engine.SetAvailability(ctx, "law-1", "client-1", mondayLawyer().Availability)
	assert.Equal(t, CodeForbidden, CodeOf(err))

	_, err = engine.SetAvailability(ctx, "law-1", "law-1", overlapping)
	assert.Equal(t, CodeValidation, CodeOf(err))

	_, err = engine.SetAvailability(ctx, "law-1", "law-1", badDay)
	assert.Equal(t, CodeValidation, CodeOf(err))

	_, err = engine.SetAvailability(ctx, "law-9", "law-9", mondayLawyer().Availability)
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func Test_Availability_ListsOpenSlots(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, seededMemory(t))
	bookOne(t, engine)

	days, err := engine.Availability(ctx, "law-1", AvailabilityQuery{Timezone: "Africa/Douala", Days: 2})

	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2026-10-18", days[0].Date)
	assert.Equal(t, "sunday", days[0].Weekday)
	assert.Empty(t, days[0].Slots)

	monday := days[1]
	assert.Equal(t, "monday", monday.Weekday)
	require.Len(t, monday.Slots, 1, "the booked 09:00 slot is hidden")
	assert.Equal(t, "10:00", monday.Slots[0].Start)
	assert.Equal(t, time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC), monday.Slots[0].StartsAt)
}

func Test_Availability_SkipsPastSlotsAndClampsHorizon(t *testing.T) {
	lawyer := mondayLawyer()
	lawyer.Availability.Schedule["sunday"] = models.DaySchedule{Available: true, Slots: []models.TemplateSlot{
		{Start: "08:00", End: "09:00"},
		{Start: "18:00", End: "19:00"},
	}}
	engine := newTestEngine(t, seededMemory(t, lawyer), WithHorizonDays(3))

	days, err := engine.Availability(context.Background(), "law-1", AvailabilityQuery{Days: 30})

	require.NoError(t, err)
	require.Len(t, days, 4, "today plus three days")
	require.Len(t, days[0].Slots, 1)
	assert.Equal(t, "18:00", days[0].Slots[0].Start)
}

func Test_Availability_NonBookableLawyerIsEmpty(t *testing.T) {
	lawyer := mondayLawyer()
	lawyer.Active = false
	engine := newTestEngine(t, seededMemory(t, lawyer))

	days, err := engine.Availability(context.Background(), "law-1", AvailabilityQuery{})

	require.NoError(t, err)
	assert.Empty(t, days)
}

func Test_Availability_Rejections(t *testing.T) {
	engine := newTestEngine(t, seededMemory(t))
	ctx := context.Background()

	_, err := engine.Availability(ctx, "law-9", AvailabilityQuery{})
	assert.Equal(t, CodeNotFound, CodeOf(err))

	_, err = engine.Availability(ctx, "law-1", AvailabilityQuery{Timezone: "Nowhere/Land"})
	assert.Equal(t, CodeValidation, CodeOf(err))

	_, err = engine.Availability(ctx, "law-1", AvailabilityQuery{From: "18-10-2026"})
	assert.Equal(t, CodeValidation, CodeOf(err))

	_, err = engine.Availability(ctx, "law-1", AvailabilityQuery{Days: -1})
	assert.Equal(t, CodeValidation, CodeOf(err))
}

// mapCache is an in-process AvailabilityCache with generation counters.
type mapCache struct {
	mu          sync.Mutex
	entries     map[string][]models.DayAvailability
	invalidated map[string]int
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string][]models.DayAvailability{}, invalidated: map[string]int{}}
}

func (m *mapCache) Generation(_ context.Context, lawyerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(m.invalidated[lawyerID]), nil
}

func (m *mapCache) Get(_ context.Context, lawyerID string, gen int64, query string, out interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[fmt.Sprintf("%s:%d:%s", lawyerID, gen, query)]
	if !ok {
		return errors.New("miss")
	}
	*(out.(*[]models.DayAvailability)) = v
	return nil
}

func (m *mapCache) Set(_ context.Context, lawyerID string, gen int64, query string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[fmt.Sprintf("%s:%d:%s", lawyerID, gen, query)] = value.([]models.DayAvailability)
	return nil
}

func (m *mapCache) Invalidate(_ context.Context, lawyerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated[lawyerID]++
	return nil
}

func Test_Availability_CacheIsInvalidatedByWrites(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	engine := newTestEngine(t, seededMemory(t), WithAvailabilityCache(cache))
	query := AvailabilityQuery{Timezone: "Africa/Douala", Days: 2}

	before, err := engine.Availability(ctx, "law-1", query)
	require.NoError(t, err)
	require.Len(t, before[1].Slots, 2)

	id := bookOne(t, engine)
	afterBook, err := engine.Availability(ctx, "law-1", query)
	require.NoError(t, err)
	assert.Len(t, afterBook[1].Slots, 1)

	_, err = engine.UpdateStatus(ctx, id, "client-1", models.StatusCancelled)
	require.NoError(t, err)
	afterCancel, err := engine.Availability(ctx, "law-1", query)
	require.NoError(t, err)
	assert.Len(t, afterCancel[1].Slots, 2)

	assert.Equal(t, 2, cache.invalidated["law-1"])
}

// racingRepo runs afterList once, right after the first consultation listing
// has been read and before the caller uses it.
type racingRepo struct {
	schedulerRepo.SchedulerRepository
	afterList func()
}

func (r *racingRepo) ListScheduledConsultations(ctx context.Context, lawyerID, fromDate, toDate string) ([]models.Consultation, error) {
	list, err := r.SchedulerRepository.ListScheduledConsultations(ctx, lawyerID, fromDate, toDate)
	if hook := r.afterList; hook != nil {
		r.afterList = nil
		hook()
	}
	return list, err
}

func Test_Availability_BookingDuringComputeIsNotCachedAsCurrent(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	repo := &racingRepo{SchedulerRepository: seededMemory(t)}
	engine := newTestEngine(t, repo, WithAvailabilityCache(cache))
	repo.afterList = func() { bookOne(t, engine) }
	query := AvailabilityQuery{Timezone: "Africa/Douala", Days: 2}

	stale, err := engine.Availability(ctx, "law-1", query)
	require.NoError(t, err)
	assert.Len(t, stale[1].Slots, 2, "computed from the listing taken before the booking")

	fresh, err := engine.Availability(ctx, "law-1", query)
	require.NoError(t, err)
	require.Len(t, fresh[1].Slots, 1)
	assert.Equal(t, "10:00", fresh[1].Slots[0].Start)
}
