package schedulerRepo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"lexbook/database/repository"
	"lexbook/models"
)

// MemoryStore is an in-process SchedulerRepository with optimistic
// transactions: every key a transaction reads or writes is checked at
// commit, and the transaction fails with repository.ErrWriteConflict if a
// concurrent commit touched it after the transaction began.
type MemoryStore struct {
	mu            sync.Mutex
	seq           uint64
	keySeq        map[string]uint64
	lawyers       map[string]models.Lawyer
	consultations map[string]models.Consultation
	active        map[string]string
	notifications []models.Notification

	notificationErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keySeq:        make(map[string]uint64),
		lawyers:       make(map[string]models.Lawyer),
		consultations: make(map[string]models.Consultation),
		active:        make(map[string]string),
	}
}

func lawyerKey(id string) string { return "lawyer:" + id }

func slotKey(lawyerID, day, start string) string {
	return fmt.Sprintf("slot:%s:%s:%s", lawyerID, day, start)
}

func activeKey(lawyerID, date, start string) string {
	return fmt.Sprintf("active:%s:%s:%s", lawyerID, date, start)
}

func consultationKey(id string) string { return "consultation:" + id }

// PutLawyer stores or replaces a lawyer outside any transaction.
func (s *MemoryStore) PutLawyer(l models.Lawyer) error {
	if err := l.Validate(); err != nil {
		return err
	}
	l.Availability = l.Availability.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.lawyers[l.ID] = l
	s.keySeq[lawyerKey(l.ID)] = s.seq
	return nil
}

// Upsert implements the lawyer repository on top of PutLawyer.
func (s *MemoryStore) Upsert(_ context.Context, l *models.Lawyer) error {
	return s.PutLawyer(*l)
}

// ListBookable returns verified, active lawyers ordered by name.
func (s *MemoryStore) ListBookable(_ context.Context, limit int64) ([]models.Lawyer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Lawyer
	for _, l := range s.lawyers {
		if l.Bookable() {
			l.Availability = l.Availability.Clone()
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FailNotificationsWith makes every later InsertNotifications call fail with err.
// A nil err restores normal behaviour.
func (s *MemoryStore) FailNotificationsWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notificationErr = err
}

// Notifications returns a copy of every stored notification.
func (s *MemoryStore) Notifications() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// Consultations returns a copy of every stored consultation.
func (s *MemoryStore) Consultations() []models.Consultation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Consultation, 0, len(s.consultations))
	for _, c := range s.consultations {
		out = append(out, c)
	}
	return out
}

func (s *MemoryStore) GetLawyer(_ context.Context, lawyerID string) (*models.Lawyer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lawyerLocked(lawyerID)
}

func (s *MemoryStore) lawyerLocked(lawyerID string) (*models.Lawyer, error) {
	l, ok := s.lawyers[lawyerID]
	if !ok {
		return nil, fmt.Errorf("lawyer %s: %w", lawyerID, repository.ErrNotFound)
	}
	l.Availability = l.Availability.Clone()
	return &l, nil
}

func (s *MemoryStore) GetConsultation(_ context.Context, consultationID string) (*models.Consultation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.consultations[consultationID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) ListScheduledConsultations(_ context.Context, lawyerID, fromDate, toDate string) ([]models.Consultation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Consultation
	for _, c := range s.consultations {
		if c.LawyerID == lawyerID && c.Status == models.StatusScheduled && c.Date >= fromDate && c.Date <= toDate {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].TimeSlot.Start < out[j].TimeSlot.Start
	})
	return out, nil
}

// ListByUser returns the user's notifications, newest first.
func (s *MemoryStore) ListByUser(_ context.Context, userID string, limit int64) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for i := len(s.notifications) - 1; i >= 0; i-- {
		if s.notifications[i].UserID == userID {
			out = append(out, s.notifications[i])
			if limit > 0 && int64(len(out)) == limit {
				break
			}
		}
	}
	return out, nil
}

// MarkRead flags one of the user's notifications as read.
func (s *MemoryStore) MarkRead(_ context.Context, userID, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == notificationID && s.notifications[i].UserID == userID {
			s.notifications[i].Read = true
			return nil
		}
	}
	return repository.ErrNotFound
}

// WithTransaction implements UnitOfWork.
func (s *MemoryStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	tx := &memTx{
		store:    s,
		startSeq: s.seq,
		touched:  make(map[string]struct{}),
		written:  make(map[string]struct{}),
	}
	s.mu.Unlock()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return tx.commit()
}

type memOp struct {
	check func() error
	apply func()
}

type memTx struct {
	store    *MemoryStore
	startSeq uint64
	touched  map[string]struct{}
	written  map[string]struct{}
	ops      []memOp
}

func (tx *memTx) read(key string) { tx.touched[key] = struct{}{} }

func (tx *memTx) write(key string) {
	tx.touched[key] = struct{}{}
	tx.written[key] = struct{}{}
}

func (tx *memTx) commit() error {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range tx.touched {
		if s.keySeq[key] > tx.startSeq {
			return fmt.Errorf("%s: %w", key, repository.ErrWriteConflict)
		}
	}
	for _, op := range tx.ops {
		if op.check == nil {
			continue
		}
		if err := op.check(); err != nil {
			return err
		}
	}
	s.seq++
	for _, op := range tx.ops {
		op.apply()
	}
	for key := range tx.written {
		s.keySeq[key] = s.seq
	}
	return nil
}

func (tx *memTx) GetLawyer(_ context.Context, lawyerID string) (*models.Lawyer, error) {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	tx.read(lawyerKey(lawyerID))
	return tx.store.lawyerLocked(lawyerID)
}

func (tx *memTx) FindScheduledConsultation(_ context.Context, lawyerID, date, start string) (*models.Consultation, error) {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.read(activeKey(lawyerID, date, start))
	id, ok := s.active[activeKey(lawyerID, date, start)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := s.consultations[id]
	return &c, nil
}

func (tx *memTx) HasScheduledOnWeekday(_ context.Context, lawyerID string, wd time.Weekday, start, excludeID string) (bool, error) {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	// Every booking or release of this template slot writes slotKey.
	tx.read(slotKey(lawyerID, models.WeekdayKey(wd), start))
	for id, c := range s.consultations {
		if id == excludeID || c.LawyerID != lawyerID || c.Status != models.StatusScheduled || c.TimeSlot.Start != start {
			continue
		}
		if day, err := c.Weekday(); err == nil && day == wd {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memTx) GetConsultation(_ context.Context, consultationID string) (*models.Consultation, error) {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.read(consultationKey(consultationID))
	c, ok := s.consultations[consultationID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (tx *memTx) InsertConsultation(_ context.Context, c *models.Consultation) error {
	s := tx.store
	record := *c
	idKey := consultationKey(record.ID)
	slot := activeKey(record.LawyerID, record.Date, record.TimeSlot.Start)
	tx.write(idKey)
	if record.Status == models.StatusScheduled {
		tx.write(slot)
	}
	tx.ops = append(tx.ops, memOp{
		check: func() error {
			if _, exists := s.consultations[record.ID]; exists {
				return fmt.Errorf("consultation %s: %w", record.ID, repository.ErrDuplicate)
			}
			if _, taken := s.active[slot]; taken && record.Status == models.StatusScheduled {
				return fmt.Errorf("%s: %w", slot, repository.ErrDuplicate)
			}
			return nil
		},
		apply: func() {
			s.consultations[record.ID] = record
			if record.Status == models.StatusScheduled {
				s.active[slot] = record.ID
			}
		},
	})
	return nil
}

func (tx *memTx) UpdateConsultationStatus(_ context.Context, consultationID string, from, to models.ConsultationStatus, at time.Time) error {
	s := tx.store
	s.mu.Lock()
	current, ok := s.consultations[consultationID]
	s.mu.Unlock()
	if !ok {
		return repository.ErrNotFound
	}
	slot := activeKey(current.LawyerID, current.Date, current.TimeSlot.Start)
	tx.write(consultationKey(consultationID))
	tx.write(slot)
	tx.ops = append(tx.ops, memOp{
		check: func() error {
			if s.consultations[consultationID].Status != from {
				return fmt.Errorf("consultation %s is no longer %s: %w", consultationID, from, repository.ErrWriteConflict)
			}
			return nil
		},
		apply: func() {
			c := s.consultations[consultationID]
			c.Status = to
			c.UpdatedAt = at
			s.consultations[consultationID] = c
			if from == models.StatusScheduled && to != models.StatusScheduled && s.active[slot] == consultationID {
				delete(s.active, slot)
			}
		},
	})
	return nil
}

func (tx *memTx) SetSlotBooked(_ context.Context, lawyerID string, wd time.Weekday, start string, booked bool) error {
	s := tx.store
	s.mu.Lock()
	l, ok := s.lawyers[lawyerID]
	var slotErr error
	if ok {
		trial := l.Availability.Clone()
		slotErr = trial.MarkSlotBooked(wd, start, booked)
	}
	s.mu.Unlock()
	if !ok || slotErr != nil {
		return fmt.Errorf("slot %s %s of lawyer %s: %w", models.WeekdayKey(wd), start, lawyerID, repository.ErrNotFound)
	}

	tx.write(slotKey(lawyerID, models.WeekdayKey(wd), start))
	tx.ops = append(tx.ops, memOp{
		apply: func() {
			l := s.lawyers[lawyerID]
			l.Availability = l.Availability.Clone()
			// The template may have been replaced since; a missing slot is left alone.
			_ = l.Availability.MarkSlotBooked(wd, start, booked)
			s.lawyers[lawyerID] = l
		},
	})
	return nil
}

func (tx *memTx) ReplaceAvailability(_ context.Context, lawyerID string, tmpl models.AvailabilityTemplate, at time.Time) error {
	s := tx.store
	s.mu.Lock()
	current, ok := s.lawyers[lawyerID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("lawyer %s: %w", lawyerID, repository.ErrNotFound)
	}
	// Booked flags are carried over by the caller, so a concurrent flip must abort this write.
	for day, schedule := range current.Availability.Schedule {
		for _, slot := range schedule.Slots {
			tx.read(slotKey(lawyerID, day, slot.Start))
		}
	}
	replacement := tmpl.Clone()
	tx.write(lawyerKey(lawyerID))
	tx.ops = append(tx.ops, memOp{
		apply: func() {
			l := s.lawyers[lawyerID]
			l.Availability = replacement
			l.UpdatedAt = at
			s.lawyers[lawyerID] = l
		},
	})
	return nil
}

func (tx *memTx) InsertNotifications(_ context.Context, notifications ...models.Notification) error {
	s := tx.store
	s.mu.Lock()
	failure := s.notificationErr
	s.mu.Unlock()
	if failure != nil {
		return fmt.Errorf("insert notifications failed: %w", failure)
	}
	batch := make([]models.Notification, len(notifications))
	copy(batch, notifications)
	tx.ops = append(tx.ops, memOp{
		check: func() error {
			for _, n := range batch {
				for _, existing := range s.notifications {
					if existing.ID == n.ID {
						return fmt.Errorf("notification %s: %w", n.ID, repository.ErrDuplicate)
					}
				}
			}
			return nil
		},
		apply: func() {
			s.notifications = append(s.notifications, batch...)
		},
	})
	return nil
}
