package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AppointmentType string

const (
	AppointmentTypeInstall         AppointmentType = "install"
	AppointmentTypeRecalibration   AppointmentType = "recalibration"
	AppointmentTypeRemovalDownload AppointmentType = "removal_download"
	AppointmentTypeService         AppointmentType = "service"
	AppointmentTypePaperSwap       AppointmentType = "paper_swap"
)

func (t AppointmentType) Valid() bool {
	switch t {
	case AppointmentTypeInstall, AppointmentTypeRecalibration, AppointmentTypeRemovalDownload,
		AppointmentTypeService, AppointmentTypePaperSwap:
		return true
	}
	return false
}

const (
	StatusScheduled = "scheduled"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// IsTerminalStatus reports whether an appointment in this status is excluded
// from conflict checks.
func IsTerminalStatus(status string) bool {
	return status == StatusCancelled || status == StatusCompleted
}

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID            uuid.UUID       `bun:"id,pk,type:uuid"`
	LeadID        *int64          `bun:"lead_id"`
	CustomerID    *int64          `bun:"customer_id"`
	Title         string          `bun:"title,notnull"`
	Type          AppointmentType `bun:"appointment_type,notnull"`
	ServiceNote   string          `bun:"service_note"`
	Description   string          `bun:"description"`
	StartTime     time.Time       `bun:"start_time,notnull"`
	EndTime       time.Time       `bun:"end_time,notnull"`
	LocationID    int64           `bun:"location_id,notnull"`
	Status        string          `bun:"status,notnull"`
	GoogleEventID *string         `bun:"google_event_id"`
	LastSync      *time.Time      `bun:"last_sync"`
	CreatedAt     time.Time       `bun:"created_at,notnull"`
	UpdatedAt     time.Time       `bun:"updated_at,notnull"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}

// AppointmentHistory is one row of the append-only audit ledger. Rows are
// written in the same transaction as the mutation they describe and are never
// updated or deleted afterwards.
type AppointmentHistory struct {
	bun.BaseModel `bun:"table:appointment_history"`

	ID              int64     `bun:"id,pk,autoincrement"`
	AppointmentID   uuid.UUID `bun:"appointment_id,notnull,type:uuid"`
	StartTime       time.Time `bun:"start_time,notnull"`
	EndTime         time.Time `bun:"end_time,notnull"`
	Status          string    `bun:"status,notnull"`
	LocationID      int64     `bun:"location_id,notnull"`
	ChangedByUserID string    `bun:"changed_by_user_id,notnull"`
	Reason          string    `bun:"reason"`
	CreatedAt       time.Time `bun:"created_at,notnull"`
}

func (h *AppointmentHistory) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok && h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	return nil
}

// Snapshot captures the material state of an appointment as it stands before a
// mutation, for the audit ledger.
func Snapshot(a Appointment, actingUserID, reason string) AppointmentHistory {
	return AppointmentHistory{
		AppointmentID:   a.ID,
		StartTime:       a.StartTime,
		EndTime:         a.EndTime,
		Status:          a.Status,
		LocationID:      a.LocationID,
		ChangedByUserID: actingUserID,
		Reason:          reason,
	}
}

// Overlaps reports whether the half-open intervals [s1, e1) and [s2, e2)
// intersect. Touching intervals do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// NeedsResync reports whether an update changed a field that invalidates the
// external calendar linkage. Description changes do not count.
func NeedsResync(old, updated Appointment) bool {
	return !old.StartTime.Equal(updated.StartTime) ||
		!old.EndTime.Equal(updated.EndTime) ||
		old.Title != updated.Title ||
		old.Status != updated.Status ||
		old.LocationID != updated.LocationID
}
