package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"opscrm/backend/internal/domain"
)

// RangeFilter narrows a date-range listing. Zero values mean "any".
type RangeFilter struct {
	LocationID *int64
	Status     string
	Type       domain.AppointmentType
	CustomerID *int64
}

type AppointmentRepository interface {
	Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	ListRange(ctx context.Context, windowStart, windowEnd time.Time, filter RangeFilter) ([]domain.Appointment, error)

	// Update applies a full-record replacement. The pre-update state is
	// snapshotted into the history ledger and the calendar linkage is cleared
	// when a material field changed, all within one transaction.
	Update(ctx context.Context, appt domain.Appointment, actingUserID, reason string) (domain.Appointment, error)

	// Delete removes the record after snapshotting it with the given reason.
	Delete(ctx context.Context, id uuid.UUID, actingUserID, reason string) error

	// HasConflict reports whether [start, end) overlaps a non-terminal
	// appointment at the location, ignoring excludeID. Read-only.
	HasConflict(ctx context.Context, locationID int64, start, end time.Time, excludeID uuid.UUID) (bool, error)

	ListHistory(ctx context.Context, appointmentID uuid.UUID) ([]domain.AppointmentHistory, error)
}

// SchedulingTx is the per-transaction surface over the appointments table and
// its history ledger. Implementations run under the location advisory lock.
type SchedulingTx interface {
	CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error
	FirstConflict(ctx context.Context, locationID int64, start, end time.Time, excludeID uuid.UUID) (uuid.UUID, bool, error)
	InsertHistory(ctx context.Context, h domain.AppointmentHistory) error
}
