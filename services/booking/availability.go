package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"lexbook/database/repository"
	"lexbook/models"
)

const defaultAvailabilityDays = 7

// AvailabilityQuery selects the dates shown to a client. Zero values mean
// "today in Timezone", seven days and UTC.
type AvailabilityQuery struct {
	From     string
	Days     int
	Timezone string
}

// Availability lists the open slots of a lawyer, date by date. Open means
// offered by the template, in the future, within the horizon and not held
// by a scheduled consultation. The booked flag is not consulted.
func (e *Engine) Availability(ctx context.Context, lawyerID string, q AvailabilityQuery) ([]models.DayAvailability, error) {
	if strings.TrimSpace(lawyerID) == "" {
		return nil, ValidationError("lawyer id is required")
	}
	if q.Timezone == "" {
		q.Timezone = "UTC"
	}
	loc, err := loadZone(q.Timezone)
	if err != nil {
		return nil, ValidationError("unknown timezone %q", q.Timezone)
	}
	if q.Days < 0 {
		return nil, ValidationError("days must not be negative")
	}
	if q.Days == 0 {
		q.Days = defaultAvailabilityDays
	}

	now := e.now()
	localNow := now.In(loc)
	today := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, time.UTC)
	from := today
	if q.From != "" {
		parsed, err := time.Parse(models.DateLayout, q.From)
		if err != nil {
			return nil, ValidationError("from %q must use the yyyy-MM-dd format", q.From)
		}
		if parsed.After(from) {
			from = parsed
		}
	}
	last := from.AddDate(0, 0, q.Days-1)
	if limit := today.AddDate(0, 0, e.horizonDays); last.After(limit) {
		last = limit
	}
	if from.After(last) {
		return []models.DayAvailability{}, nil
	}

	cacheKey := fmt.Sprintf("%s:%s:%s", from.Format(models.DateLayout), last.Format(models.DateLayout), loc.String())
	// The generation is read before the store so that a booking committed
	// while we compute leaves this view under the older generation.
	cacheable := false
	var gen int64
	if e.cache != nil {
		if gen, err = e.cache.Generation(ctx, lawyerID); err != nil {
			e.logger.Warn("Failed to read availability cache generation", zap.String("lawyerId", lawyerID), zap.Error(err))
		} else {
			cacheable = true
			var cached []models.DayAvailability
			if err := e.cache.Get(ctx, lawyerID, gen, cacheKey, &cached); err == nil {
				return cached, nil
			}
		}
	}

	lawyer, err := e.repo.GetLawyer(ctx, lawyerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFoundError("lawyer %s not found", lawyerID)
		}
		return nil, InternalError(err, "failed to load lawyer")
	}
	if !lawyer.Bookable() {
		return []models.DayAvailability{}, nil
	}

	booked, err := e.repo.ListScheduledConsultations(ctx, lawyerID, from.Format(models.DateLayout), last.Format(models.DateLayout))
	if err != nil {
		return nil, InternalError(err, "failed to load consultations")
	}
	taken := make(map[string]struct{}, len(booked))
	for _, c := range booked {
		taken[c.Date+" "+c.TimeSlot.Start] = struct{}{}
	}

	out := make([]models.DayAvailability, 0, int(last.Sub(from).Hours()/24)+1)
	for day := from; !day.After(last); day = day.AddDate(0, 0, 1) {
		date := day.Format(models.DateLayout)
		entry := models.DayAvailability{
			Date:    date,
			Weekday: models.WeekdayKey(day.Weekday()),
			Slots:   []models.OpenSlot{},
		}
		schedule, ok := lawyer.Availability.DaySchedule(day.Weekday())
		if ok && schedule.Available {
			slots := append([]models.TemplateSlot(nil), schedule.Slots...)
			sort.Slice(slots, func(i, j int) bool { return slots[i].Start < slots[j].Start })
			for _, slot := range slots {
				if _, held := taken[date+" "+slot.Start]; held {
					continue
				}
				startMin, err := models.ParseClock(slot.Start)
				if err != nil {
					continue
				}
				startsAt := time.Date(day.Year(), day.Month(), day.Day(), startMin/60, startMin%60, 0, 0, loc)
				if !startsAt.After(now) {
					continue
				}
				entry.Slots = append(entry.Slots, models.OpenSlot{
					Date:     date,
					Start:    slot.Start,
					End:      slot.End,
					StartsAt: startsAt.UTC(),
				})
			}
		}
		out = append(out, entry)
	}

	if cacheable {
		if err := e.cache.Set(ctx, lawyerID, gen, cacheKey, out); err != nil {
			e.logger.Warn("Failed to cache availability", zap.String("lawyerId", lawyerID), zap.Error(err))
		}
	}
	return out, nil
}
