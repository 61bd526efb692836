package appointments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"opscrm/backend/internal/domain"
)

// BusinessHours is the configured bookable window, evaluated in Location's
// zone. Durations are the per-type defaults used when a caller does not ask
// for a specific length.
type BusinessHours struct {
	Open        string // "15:04"
	Close       string // "15:04"
	StepMinutes int
	Location    *time.Location
	Durations   map[domain.AppointmentType]int
}

func (h BusinessHours) window(date time.Time) (time.Time, time.Time, error) {
	open, err := time.Parse("15:04", h.Open)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse open time %q: %w", h.Open, err)
	}
	close, err := time.Parse("15:04", h.Close)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse close time %q: %w", h.Close, err)
	}

	loc := h.Location
	if loc == nil {
		loc = time.UTC
	}
	// The caller names a calendar day, not an instant. Reading the Y/M/D
	// straight off the value keeps a date parsed in another zone (midnight UTC
	// from the query string) from sliding onto the previous local day.
	year, month, day := date.Date()
	openAt := time.Date(year, month, day, open.Hour(), open.Minute(), 0, 0, loc)
	closeAt := time.Date(year, month, day, close.Hour(), close.Minute(), 0, 0, loc)
	return openAt, closeAt, nil
}

// AvailableSlots walks the business-hours window in fixed steps and returns
// every start time whose interval does not conflict at the location and has
// not already passed. The result is recomputed from current store state on
// every call.
func (s *Service) AvailableSlots(ctx context.Context, locationID int64, date time.Time, apptType domain.AppointmentType, durationMinutes int) ([]time.Time, error) {
	if locationID == 0 {
		return nil, validationError("location_id", "location_id is required")
	}
	if date.IsZero() {
		return nil, validationError("date", "date is required")
	}
	if apptType == "" {
		return nil, validationError("appointment_type", "appointment_type is required")
	}
	if !apptType.Valid() {
		return nil, validationError("appointment_type", "unrecognized appointment_type")
	}
	if durationMinutes <= 0 {
		durationMinutes = s.hours.Durations[apptType]
	}
	if durationMinutes <= 0 {
		return nil, validationError("duration_minutes", "duration_minutes is required")
	}

	began := time.Now()
	defer func() {
		s.metrics.ObserveSlotQuery(time.Since(began).Seconds())
	}()

	openAt, closeAt, err := s.hours.window(date)
	if err != nil {
		return nil, err
	}

	duration := time.Duration(durationMinutes) * time.Minute
	step := time.Duration(s.hours.StepMinutes) * time.Minute
	if step <= 0 {
		step = 30 * time.Minute
	}
	now := s.now()

	var slots []time.Time
	for start := openAt; !start.Add(duration).After(closeAt); start = start.Add(step) {
		if start.Before(now) {
			continue
		}
		conflict, err := s.repo.HasConflict(ctx, locationID, start.UTC(), start.Add(duration).UTC(), uuid.Nil)
		if err != nil {
			return nil, err
		}
		if !conflict {
			slots = append(slots, start)
		}
	}
	return slots, nil
}
