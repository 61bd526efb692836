package appointments

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"opscrm/backend/internal/directory"
	"opscrm/backend/internal/domain"
	"opscrm/backend/internal/observability/metrics"
	"opscrm/backend/internal/store"
)

type ValidationError struct {
	Field string
	msg   string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(field, msg string) error {
	return &ValidationError{Field: field, msg: msg}
}

// Directories are the external collaborators appointments reference by id.
type Directories struct {
	Locations directory.Locations
	Leads     directory.Leads
	Customers directory.Customers
}

type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.SchedulingMetrics
	Now     func() time.Time
}

type Service struct {
	repo    store.AppointmentRepository
	dirs    Directories
	hours   BusinessHours
	log     *slog.Logger
	metrics *metrics.SchedulingMetrics
	now     func() time.Time
}

func NewService(repo store.AppointmentRepository, dirs Directories, hours BusinessHours, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:    repo,
		dirs:    dirs,
		hours:   hours,
		log:     log.With(slog.String("component", "service.appointments")),
		metrics: opts.Metrics,
		now:     now,
	}
}

// AppointmentInput carries every field of an appointment. Updates are
// full-record replacements, so the same input shape and the same validation
// apply to create and update.
type AppointmentInput struct {
	Title        string
	Type         domain.AppointmentType
	ServiceNote  string
	Description  string
	StartTime    time.Time
	EndTime      time.Time
	LocationID   int64
	LeadID       *int64
	CustomerID   *int64
	Status       string
	ChangeReason string
}

// CreateResult is a created appointment plus a non-fatal warning when the lead
// status side effect failed.
type CreateResult struct {
	Appointment domain.Appointment
	Warning     string
}

// Detail is an appointment enriched with display names resolved at read time.
type Detail struct {
	Appointment  domain.Appointment
	LocationName string
	LeadName     string
	CustomerName string
}

func (s *Service) Create(ctx context.Context, in AppointmentInput) (CreateResult, error) {
	appt, err := buildAppointment(in)
	if err != nil {
		s.metrics.ObserveOperation("create", "invalid")
		return CreateResult{}, err
	}

	created, err := s.repo.Create(ctx, appt)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			s.metrics.ObserveOperation("create", "conflict")
			s.metrics.ObserveConflict()
		} else {
			s.metrics.ObserveOperation("create", "error")
		}
		return CreateResult{}, err
	}
	s.metrics.ObserveOperation("create", "created")

	res := CreateResult{Appointment: created}
	if created.LeadID != nil {
		// The booking already committed; a failed lead-status signal degrades
		// to a warning instead of rolling it back.
		if err := s.dirs.Leads.SetStatus(ctx, *created.LeadID, directory.LeadStatusScheduled); err != nil {
			res.Warning = "appointment created, but updating the lead status failed"
			s.log.Warn("lead status update failed",
				slog.Int64("lead_id", *created.LeadID),
				slog.String("appointment_id", created.ID.String()),
				slog.Any("err", err),
			)
		}
	}

	s.log.Info("appointment created",
		slog.String("appointment_id", created.ID.String()),
		slog.Int64("location_id", created.LocationID),
		slog.Time("start_time", created.StartTime),
		slog.Time("end_time", created.EndTime),
	)
	return res, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Detail, error) {
	if id == uuid.Nil {
		return Detail{}, validationError("id", "id is required")
	}
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return Detail{}, err
	}

	d := Detail{Appointment: appt}
	if name, err := s.dirs.Locations.DisplayName(ctx, appt.LocationID); err == nil {
		d.LocationName = name
	} else {
		s.log.Warn("location lookup failed", slog.Int64("location_id", appt.LocationID), slog.Any("err", err))
	}
	if appt.LeadID != nil {
		if name, err := s.dirs.Leads.DisplayName(ctx, *appt.LeadID); err == nil {
			d.LeadName = name
		} else {
			s.log.Warn("lead lookup failed", slog.Int64("lead_id", *appt.LeadID), slog.Any("err", err))
		}
	}
	if appt.CustomerID != nil {
		if name, err := s.dirs.Customers.DisplayName(ctx, *appt.CustomerID); err == nil {
			d.CustomerName = name
		} else {
			s.log.Warn("customer lookup failed", slog.Int64("customer_id", *appt.CustomerID), slog.Any("err", err))
		}
	}
	return d, nil
}

func (s *Service) ListRange(ctx context.Context, windowStart, windowEnd time.Time, filter store.RangeFilter) ([]domain.Appointment, error) {
	if windowStart.IsZero() {
		return nil, validationError("start_date", "start_date is required")
	}
	if windowEnd.IsZero() {
		return nil, validationError("end_date", "end_date is required")
	}
	start := windowStart.UTC()
	end := windowEnd.UTC()
	if end.Before(start) {
		return nil, validationError("end_date", "end_date must not be before start_date")
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, validationError("appointment_type", "unrecognized appointment_type")
	}
	return s.repo.ListRange(ctx, start, end, filter)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in AppointmentInput, actingUserID string) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, validationError("id", "id is required")
	}
	if strings.TrimSpace(actingUserID) == "" {
		return domain.Appointment{}, validationError("acting_user_id", "acting_user_id is required")
	}

	appt, err := buildAppointment(in)
	if err != nil {
		s.metrics.ObserveOperation("update", "invalid")
		return domain.Appointment{}, err
	}
	appt.ID = id

	updated, err := s.repo.Update(ctx, appt, actingUserID, strings.TrimSpace(in.ChangeReason))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			s.metrics.ObserveOperation("update", "conflict")
			s.metrics.ObserveConflict()
		case errors.Is(err, store.ErrNotFound):
			s.metrics.ObserveOperation("update", "not_found")
		default:
			s.metrics.ObserveOperation("update", "error")
		}
		return domain.Appointment{}, err
	}
	s.metrics.ObserveOperation("update", "updated")

	s.log.Info("appointment updated",
		slog.String("appointment_id", id.String()),
		slog.String("acting_user_id", actingUserID),
	)
	return updated, nil
}

const defaultDeleteReason = "Appointment deleted"

func (s *Service) Delete(ctx context.Context, id uuid.UUID, actingUserID, reason string) error {
	if id == uuid.Nil {
		return validationError("id", "id is required")
	}
	if strings.TrimSpace(actingUserID) == "" {
		return validationError("acting_user_id", "acting_user_id is required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultDeleteReason
	}

	if err := s.repo.Delete(ctx, id, actingUserID, reason); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.metrics.ObserveOperation("delete", "not_found")
		} else {
			s.metrics.ObserveOperation("delete", "error")
		}
		return err
	}
	s.metrics.ObserveOperation("delete", "deleted")

	s.log.Info("appointment deleted",
		slog.String("appointment_id", id.String()),
		slog.String("acting_user_id", actingUserID),
	)
	return nil
}

func (s *Service) History(ctx context.Context, id uuid.UUID) ([]domain.AppointmentHistory, error) {
	if id == uuid.Nil {
		return nil, validationError("id", "id is required")
	}
	return s.repo.ListHistory(ctx, id)
}

func buildAppointment(in AppointmentInput) (domain.Appointment, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Appointment{}, validationError("title", "title is required")
	}
	if in.StartTime.IsZero() {
		return domain.Appointment{}, validationError("start_time", "start_time is required")
	}
	if in.EndTime.IsZero() {
		return domain.Appointment{}, validationError("end_time", "end_time is required")
	}
	if in.LocationID == 0 {
		return domain.Appointment{}, validationError("location_id", "location_id is required")
	}
	if in.Type == "" {
		return domain.Appointment{}, validationError("appointment_type", "appointment_type is required")
	}
	if !in.Type.Valid() {
		return domain.Appointment{}, validationError("appointment_type", "unrecognized appointment_type")
	}

	start := in.StartTime.UTC()
	end := in.EndTime.UTC()
	if !start.Before(end) {
		return domain.Appointment{}, validationError("end_time", "end_time must be after start_time")
	}

	if in.LeadID == nil && in.CustomerID == nil {
		return domain.Appointment{}, validationError("lead_id", "either lead_id or customer_id is required")
	}

	serviceNote := strings.TrimSpace(in.ServiceNote)
	if in.Type == domain.AppointmentTypeService && serviceNote == "" {
		return domain.Appointment{}, validationError("service_note", "service_note is required for service appointments")
	}

	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = domain.StatusScheduled
	}

	return domain.Appointment{
		LeadID:      in.LeadID,
		CustomerID:  in.CustomerID,
		Title:       title,
		Type:        in.Type,
		ServiceNote: serviceNote,
		Description: strings.TrimSpace(in.Description),
		StartTime:   start,
		EndTime:     end,
		LocationID:  in.LocationID,
		Status:      status,
	}, nil
}
