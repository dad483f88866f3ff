package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ClockLayout is the wire format of a template slot boundary.
const ClockLayout = "15:04"

// DateLayout is the wire format of a consultation date.
const DateLayout = "2006-01-02"

var (
	ErrSlotNotFound   = errors.New("no template slot matches")
	ErrInvalidClock   = errors.New("time must be in HH:mm format")
	ErrInvalidWeekday = errors.New("unknown weekday")

	ErrInvalidTimezone = errors.New("timezone must be an IANA zone name")
)

// TemplateSlot is one recurring weekly offer of availability.
type TemplateSlot struct {
	Start  string `bson:"start" json:"start"`   // "HH:mm"
	End    string `bson:"end" json:"end"`       // "HH:mm"
	Booked bool   `bson:"booked" json:"booked"` // cached, never authoritative
}

// DaySchedule lists the slots offered on one weekday.
type DaySchedule struct {
	Available bool           `bson:"available" json:"available"`
	Slots     []TemplateSlot `bson:"slots" json:"slots"`
}

// AvailabilityTemplate is a lawyer's recurring weekly schedule keyed by
// lower-case weekday name ("monday" ... "sunday").
type AvailabilityTemplate struct {
	Schedule map[string]DaySchedule `bson:"schedule" json:"schedule"`
}

// ParseClock converts "HH:mm" into minutes from midnight.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// WeekdayKey returns the schedule key used for wd.
func WeekdayKey(wd time.Weekday) string {
	return strings.ToLower(wd.String())
}

func parseWeekdayKey(key string) (time.Weekday, error) {
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if WeekdayKey(wd) == key {
			return wd, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, key)
}

// NewTemplateSlot validates the boundaries and returns an unbooked slot.
func NewTemplateSlot(start, end string) (TemplateSlot, error) {
	s, err := ParseClock(start)
	if err != nil {
		return TemplateSlot{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return TemplateSlot{}, err
	}
	if s >= e {
		return TemplateSlot{}, fmt.Errorf("slot start %s must be before end %s", start, end)
	}
	return TemplateSlot{Start: start, End: end}, nil
}

// Duration returns the length of the slot. Callers must pass a validated slot.
func (s TemplateSlot) Duration() time.Duration {
	start, _ := ParseClock(s.Start)
	end, _ := ParseClock(s.End)
	return time.Duration(end-start) * time.Minute
}

// DaySchedule returns the schedule for wd.
func (t AvailabilityTemplate) DaySchedule(wd time.Weekday) (DaySchedule, bool) {
	day, ok := t.Schedule[WeekdayKey(wd)]
	return day, ok
}

// FindSlot returns the slot on wd whose boundaries match exactly.
func (t AvailabilityTemplate) FindSlot(wd time.Weekday, start, end string) (TemplateSlot, bool) {
	day, ok := t.DaySchedule(wd)
	if !ok {
		return TemplateSlot{}, false
	}
	for _, slot := range day.Slots {
		if slot.Start == start && slot.End == end {
			return slot, true
		}
	}
	return TemplateSlot{}, false
}

// MarkSlotBooked flips the cached booked flag on the slot starting at start.
// It does not check for conflicts.
func (t *AvailabilityTemplate) MarkSlotBooked(wd time.Weekday, start string, booked bool) error {
	key := WeekdayKey(wd)
	day, ok := t.Schedule[key]
	if !ok {
		return fmt.Errorf("%w: %s %s", ErrSlotNotFound, key, start)
	}
	for i := range day.Slots {
		if day.Slots[i].Start == start {
			day.Slots[i].Booked = booked
			return nil
		}
	}
	return fmt.Errorf("%w: %s %s", ErrSlotNotFound, key, start)
}

// Validate checks weekday keys, slot boundaries and that no two slots of a
// day overlap.
func (t AvailabilityTemplate) Validate() error {
	for key, day := range t.Schedule {
		if _, err := parseWeekdayKey(key); err != nil {
			return err
		}
		if err := day.validate(); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func (d DaySchedule) validate() error {
	type bounds struct{ start, end int }
	spans := make([]bounds, 0, len(d.Slots))
	for _, slot := range d.Slots {
		if _, err := NewTemplateSlot(slot.Start, slot.End); err != nil {
			return err
		}
		s, _ := ParseClock(slot.Start)
		e, _ := ParseClock(slot.End)
		spans = append(spans, bounds{s, e})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	for i := 1; i < len(spans); i++ {
		if spans[i].start < spans[i-1].end {
			return errors.New("template slots overlap")
		}
	}
	return nil
}

// Clone returns a deep copy so callers can mutate slots without aliasing.
func (t AvailabilityTemplate) Clone() AvailabilityTemplate {
	out := AvailabilityTemplate{Schedule: make(map[string]DaySchedule, len(t.Schedule))}
	for key, day := range t.Schedule {
		slots := make([]TemplateSlot, len(day.Slots))
		copy(slots, day.Slots)
		out.Schedule[key] = DaySchedule{Available: day.Available, Slots: slots}
	}
	return out
}

// OpenSlot is a concrete, dated slot a client can book.
type OpenSlot struct {
	Date     string    `json:"date"`
	Start    string    `json:"start"`
	End      string    `json:"end"`
	StartsAt time.Time `json:"startsAt"`
}

// DayAvailability groups the open slots of one calendar date.
type DayAvailability struct {
	Date    string     `json:"date"`
	Weekday string     `json:"weekday"`
	Slots   []OpenSlot `json:"slots"`
}
