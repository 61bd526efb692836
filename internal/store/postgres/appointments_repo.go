package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"opscrm/backend/internal/domain"
	"opscrm/backend/internal/store"
)

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

type schedulingTx struct {
	tx bun.Tx
}

func (r *AppointmentRepo) Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	var out domain.Appointment
	err := r.InLocationTransaction(ctx, appt.LocationID, func(ctx context.Context, tx store.SchedulingTx) error {
		if !domain.IsTerminalStatus(appt.Status) {
			id, found, err := tx.FirstConflict(ctx, appt.LocationID, appt.StartTime, appt.EndTime, uuid.Nil)
			if err != nil {
				return err
			}
			if found {
				return &store.ConflictError{ConflictingID: id}
			}
		}
		a, err := tx.CreateAppointment(ctx, appt)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (r *AppointmentRepo) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var a domain.Appointment
	err := r.db.NewSelect().
		Model(&a).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return a, nil
}

func (r *AppointmentRepo) ListRange(ctx context.Context, windowStart, windowEnd time.Time, filter store.RangeFilter) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	q := r.db.NewSelect().
		Model(&rows).
		Where("start_time <= ?", windowEnd).
		Where("end_time >= ?", windowStart).
		OrderExpr("start_time ASC")

	if filter.LocationID != nil {
		q = q.Where("location_id = ?", *filter.LocationID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		q = q.Where("appointment_type = ?", filter.Type)
	}
	if filter.CustomerID != nil {
		q = q.Where("customer_id = ?", *filter.CustomerID)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) Update(ctx context.Context, appt domain.Appointment, actingUserID, reason string) (domain.Appointment, error) {
	var out domain.Appointment
	err := r.InLocationTransaction(ctx, appt.LocationID, func(ctx context.Context, tx store.SchedulingTx) error {
		old, err := tx.GetAppointment(ctx, appt.ID)
		if err != nil {
			return err
		}

		if !domain.IsTerminalStatus(appt.Status) {
			id, found, err := tx.FirstConflict(ctx, appt.LocationID, appt.StartTime, appt.EndTime, appt.ID)
			if err != nil {
				return err
			}
			if found {
				return &store.ConflictError{ConflictingID: id}
			}
		}

		// The snapshot goes in before the replacement write; both commit or
		// neither does.
		if err := tx.InsertHistory(ctx, domain.Snapshot(old, actingUserID, reason)); err != nil {
			return err
		}

		// Full-record replace: callers resupply business fields, the calendar
		// linkage is owned by the sync collaborator and carried over unless a
		// material field changed.
		appt.CreatedAt = old.CreatedAt
		appt.GoogleEventID = old.GoogleEventID
		appt.LastSync = old.LastSync
		if domain.NeedsResync(old, appt) {
			appt.GoogleEventID = nil
			appt.LastSync = nil
		}

		updated, err := tx.UpdateAppointment(ctx, appt)
		if err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (r *AppointmentRepo) Delete(ctx context.Context, id uuid.UUID, actingUserID, reason string) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		s := schedulingTx{tx: tx}
		old, err := s.GetAppointment(ctx, id)
		if err != nil {
			return err
		}
		if err := s.InsertHistory(ctx, domain.Snapshot(old, actingUserID, reason)); err != nil {
			return err
		}
		return s.DeleteAppointment(ctx, id)
	})
}

func (r *AppointmentRepo) HasConflict(ctx context.Context, locationID int64, start, end time.Time, excludeID uuid.UUID) (bool, error) {
	q := r.db.NewSelect().
		Model((*domain.Appointment)(nil)).
		Where("location_id = ?", locationID).
		Where("status NOT IN (?)", bun.In([]string{domain.StatusCancelled, domain.StatusCompleted})).
		Where("start_time < ?", end).
		Where("end_time > ?", start)
	if excludeID != uuid.Nil {
		q = q.Where("id != ?", excludeID)
	}
	return q.Exists(ctx)
}

func (r *AppointmentRepo) ListHistory(ctx context.Context, appointmentID uuid.UUID) ([]domain.AppointmentHistory, error) {
	var rows []domain.AppointmentHistory
	err := r.db.NewSelect().
		Model(&rows).
		Where("appointment_id = ?", appointmentID).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// InLocationTransaction serializes check-then-write sequences against other
// writers targeting the same location. The advisory lock closes the window
// between the conflict probe and the insert; the exclusion constraint on the
// table backstops writers that bypass this path.
func (r *AppointmentRepo) InLocationTransaction(ctx context.Context, locationID int64, fn func(ctx context.Context, tx store.SchedulingTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockLocation(ctx, tx, locationID); err != nil {
			return err
		}
		return fn(ctx, schedulingTx{tx: tx})
	})
}

func lockLocation(ctx context.Context, tx bun.Tx, locationID int64) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(?)", locationID).Exec(ctx)
	return err
}

func (s schedulingTx) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	if m.Status == "" {
		m.Status = domain.StatusScheduled
	}

	_, err := s.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23P01" && pgErr.ConstraintName == "appointments_no_overlap" {
			return domain.Appointment{}, &store.ConflictError{}
		}
		return domain.Appointment{}, err
	}
	return m, nil
}

func (s schedulingTx) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var a domain.Appointment
	err := s.tx.NewSelect().
		Model(&a).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return a, nil
}

func (s schedulingTx) UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	if m.Status == "" {
		m.Status = domain.StatusScheduled
	}

	res, err := s.tx.NewUpdate().Model(&m).WherePK().Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23P01" && pgErr.ConstraintName == "appointments_no_overlap" {
			return domain.Appointment{}, &store.ConflictError{}
		}
		return domain.Appointment{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, err
	}
	if affected == 0 {
		return domain.Appointment{}, store.ErrNotFound
	}
	return m, nil
}

func (s schedulingTx) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	res, err := s.tx.NewDelete().
		Model((*domain.Appointment)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s schedulingTx) FirstConflict(ctx context.Context, locationID int64, start, end time.Time, excludeID uuid.UUID) (uuid.UUID, bool, error) {
	var ids []uuid.UUID
	q := s.tx.NewSelect().
		Model((*domain.Appointment)(nil)).
		Column("id").
		Where("location_id = ?", locationID).
		Where("status NOT IN (?)", bun.In([]string{domain.StatusCancelled, domain.StatusCompleted})).
		Where("start_time < ?", end).
		Where("end_time > ?", start).
		OrderExpr("start_time ASC").
		Limit(1)
	if excludeID != uuid.Nil {
		q = q.Where("id != ?", excludeID)
	}
	if err := q.Scan(ctx, &ids); err != nil {
		return uuid.Nil, false, err
	}
	if len(ids) == 0 {
		return uuid.Nil, false, nil
	}
	return ids[0], true, nil
}

func (s schedulingTx) InsertHistory(ctx context.Context, h domain.AppointmentHistory) error {
	_, err := s.tx.NewInsert().Model(&h).Exec(ctx)
	return err
}
