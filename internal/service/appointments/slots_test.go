package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"opscrm/backend/internal/domain"
)

// conflictRepo answers HasConflict from a fixed set of booked intervals at
// location 1, using the same half-open overlap rule as the store.
type bookedInterval struct {
	start, end time.Time
}

func slotService(t *testing.T, hours BusinessHours, now time.Time, booked []bookedInterval) *Service {
	t.Helper()
	repo := &fakeRepo{
		hasConflictFn: func(ctx context.Context, locationID int64, start, end time.Time, excludeID uuid.UUID) (bool, error) {
			for _, b := range booked {
				if domain.Overlaps(start, end, b.start, b.end) {
					return true, nil
				}
			}
			return false, nil
		},
	}
	dirs := &fakeDirectories{}
	return NewService(repo, Directories{
		Locations: dirs.locations(),
		Leads:     dirs.leads(),
		Customers: dirs.customers(),
	}, hours, Options{Now: func() time.Time { return now }})
}

func TestAvailableSlots_SkipsBookedAndKeepsTouching(t *testing.T) {
	hours := BusinessHours{Open: "09:00", Close: "11:00", StepMinutes: 30, Location: time.UTC}
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)

	booked := []bookedInterval{{
		start: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
		end:   time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC),
	}}

	svc := slotService(t, hours, now, booked)
	slots, err := svc.AvailableSlots(context.Background(), 1, day, domain.AppointmentTypeRecalibration, 30)
	if err != nil {
		t.Fatalf("AvailableSlots error: %v", err)
	}

	want := []time.Time{
		time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC),
		time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 1, 10, 30, 0, 0, time.UTC),
	}
	if len(slots) != len(want) {
		t.Fatalf("slots = %v, want %v", slots, want)
	}
	for i := range want {
		if !slots[i].Equal(want[i]) {
			t.Fatalf("slot[%d] = %v, want %v", i, slots[i], want[i])
		}
	}
}

func TestAvailableSlots_WesternZoneKeepsRequestedDay(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatalf("LoadLocation error: %v", err)
	}
	hours := BusinessHours{Open: "09:00", Close: "11:00", StepMinutes: 30, Location: chicago}
	// Date-only query params arrive as midnight UTC, which is still the
	// previous evening in Chicago. The window must stay on January 1.
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)

	svc := slotService(t, hours, now, nil)
	slots, err := svc.AvailableSlots(context.Background(), 1, day, domain.AppointmentTypeRecalibration, 30)
	if err != nil {
		t.Fatalf("AvailableSlots error: %v", err)
	}

	want := []time.Time{
		time.Date(2025, 1, 1, 9, 0, 0, 0, chicago),
		time.Date(2025, 1, 1, 9, 30, 0, 0, chicago),
		time.Date(2025, 1, 1, 10, 0, 0, 0, chicago),
		time.Date(2025, 1, 1, 10, 30, 0, 0, chicago),
	}
	if len(slots) != len(want) {
		t.Fatalf("slots = %v, want %v", slots, want)
	}
	for i := range want {
		if !slots[i].Equal(want[i]) {
			t.Fatalf("slot[%d] = %v, want %v", i, slots[i], want[i])
		}
		y, m, d := slots[i].In(chicago).Date()
		if y != 2025 || m != time.January || d != 1 {
			t.Fatalf("slot[%d] = %v, falls outside the requested local day", i, slots[i])
		}
	}
}

func TestAvailableSlots_WesternZonePastCutoff(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatalf("LoadLocation error: %v", err)
	}
	hours := BusinessHours{Open: "09:00", Close: "11:00", StepMinutes: 30, Location: chicago}
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	// 15:45 UTC is 09:45 in Chicago; the first two local candidates are gone.
	now := time.Date(2025, 1, 1, 15, 45, 0, 0, time.UTC)

	svc := slotService(t, hours, now, nil)
	slots, err := svc.AvailableSlots(context.Background(), 1, day, domain.AppointmentTypeRecalibration, 30)
	if err != nil {
		t.Fatalf("AvailableSlots error: %v", err)
	}

	want := []time.Time{
		time.Date(2025, 1, 1, 10, 0, 0, 0, chicago),
		time.Date(2025, 1, 1, 10, 30, 0, 0, chicago),
	}
	if len(slots) != len(want) {
		t.Fatalf("slots = %v, want %v", slots, want)
	}
	for i := range want {
		if !slots[i].Equal(want[i]) {
			t.Fatalf("slot[%d] = %v, want %v", i, slots[i], want[i])
		}
	}
}

func TestAvailableSlots_RejectsPastCandidates(t *testing.T) {
	hours := BusinessHours{Open: "09:00", Close: "11:00", StepMinutes: 30, Location: time.UTC}
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	// Mid-morning: 09:00 and 09:30 are already gone.
	now := time.Date(2025, 1, 1, 9, 45, 0, 0, time.UTC)

	svc := slotService(t, hours, now, nil)
	slots, err := svc.AvailableSlots(context.Background(), 1, day, domain.AppointmentTypeRecalibration, 30)
	if err != nil {
		t.Fatalf("AvailableSlots error: %v", err)
	}

	want := []time.Time{
		time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 1, 10, 30, 0, 0, time.UTC),
	}
	if len(slots) != len(want) {
		t.Fatalf("slots = %v, want %v", slots, want)
	}
	for i := range want {
		if !slots[i].Equal(want[i]) {
			t.Fatalf("slot[%d] = %v, want %v", i, slots[i], want[i])
		}
	}
}

func TestAvailableSlots_FullyPastDayIsEmpty(t *testing.T) {
	hours := BusinessHours{Open: "09:00", Close: "11:00", StepMinutes: 30, Location: time.UTC}
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	svc := slotService(t, hours, now, nil)
	slots, err := svc.AvailableSlots(context.Background(), 1, day, domain.AppointmentTypeRecalibration, 30)
	if err != nil {
		t.Fatalf("AvailableSlots error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("slots = %v, want none", slots)
	}
}

func TestAvailableSlots_DefaultDurationPerType(t *testing.T) {
	hours := BusinessHours{
		Open:        "09:00",
		Close:       "11:00",
		StepMinutes: 30,
		Location:    time.UTC,
		Durations:   map[domain.AppointmentType]int{domain.AppointmentTypeInstall: 120},
	}
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)

	svc := slotService(t, hours, now, nil)
	// A two-hour install only fits at opening time in a two-hour window.
	slots, err := svc.AvailableSlots(context.Background(), 1, day, domain.AppointmentTypeInstall, 0)
	if err != nil {
		t.Fatalf("AvailableSlots error: %v", err)
	}
	if len(slots) != 1 || !slots[0].Equal(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("slots = %v, want exactly 09:00", slots)
	}
}

func TestAvailableSlots_UnknownTypeWithoutDuration(t *testing.T) {
	hours := BusinessHours{Open: "09:00", Close: "11:00", StepMinutes: 30, Location: time.UTC}
	svc := slotService(t, hours, time.Now(), nil)

	_, err := svc.AvailableSlots(context.Background(), 1, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), domain.AppointmentTypePaperSwap, 0)
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "duration_minutes" {
		t.Fatalf("error = %v, want duration_minutes validation error", err)
	}
}

func TestAvailableSlots_ValidatesInput(t *testing.T) {
	svc := slotService(t, BusinessHours{Open: "09:00", Close: "11:00", StepMinutes: 30, Location: time.UTC}, time.Now(), nil)

	_, err := svc.AvailableSlots(context.Background(), 0, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), domain.AppointmentTypeInstall, 30)
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "location_id" {
		t.Fatalf("error = %v, want location_id validation error", err)
	}

	_, err = svc.AvailableSlots(context.Background(), 1, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "garbage", 30)
	if !errors.As(err, &vErr) || vErr.Field != "appointment_type" {
		t.Fatalf("error = %v, want appointment_type validation error", err)
	}
}
