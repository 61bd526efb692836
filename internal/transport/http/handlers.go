package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"opscrm/backend/internal/domain"
	"opscrm/backend/internal/service/appointments"
	"opscrm/backend/internal/store"
)

// ActingUserHeader names the header carrying the id of the user performing a
// mutation, recorded in the audit ledger.
const ActingUserHeader = "X-Acting-User"

type schedulingService interface {
	Create(ctx context.Context, in appointments.AppointmentInput) (appointments.CreateResult, error)
	Get(ctx context.Context, id uuid.UUID) (appointments.Detail, error)
	ListRange(ctx context.Context, windowStart, windowEnd time.Time, filter store.RangeFilter) ([]domain.Appointment, error)
	Update(ctx context.Context, id uuid.UUID, in appointments.AppointmentInput, actingUserID string) (domain.Appointment, error)
	Delete(ctx context.Context, id uuid.UUID, actingUserID, reason string) error
	History(ctx context.Context, id uuid.UUID) ([]domain.AppointmentHistory, error)
	AvailableSlots(ctx context.Context, locationID int64, date time.Time, apptType domain.AppointmentType, durationMinutes int) ([]time.Time, error)
}

type AppointmentsHandler struct {
	svc schedulingService
	log *slog.Logger
}

func NewAppointmentsHandler(svc schedulingService, log *slog.Logger) *AppointmentsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AppointmentsHandler{
		svc: svc,
		log: log.With(slog.String("component", "http.appointments")),
	}
}

type appointmentRequest struct {
	Title           string     `json:"title"`
	AppointmentType string     `json:"appointment_type"`
	ServiceNote     string     `json:"service_note"`
	Description     string     `json:"description"`
	StartTime       *time.Time `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	LocationID      int64      `json:"location_id"`
	LeadID          *int64     `json:"lead_id"`
	CustomerID      *int64     `json:"customer_id"`
	Status          string     `json:"status"`
	ChangeReason    string     `json:"change_reason"`
}

func (r appointmentRequest) toInput() appointments.AppointmentInput {
	in := appointments.AppointmentInput{
		Title:        r.Title,
		Type:         domain.AppointmentType(r.AppointmentType),
		ServiceNote:  r.ServiceNote,
		Description:  r.Description,
		LocationID:   r.LocationID,
		LeadID:       r.LeadID,
		CustomerID:   r.CustomerID,
		Status:       r.Status,
		ChangeReason: r.ChangeReason,
	}
	if r.StartTime != nil {
		in.StartTime = *r.StartTime
	}
	if r.EndTime != nil {
		in.EndTime = *r.EndTime
	}
	return in
}

type appointmentResponse struct {
	ID              uuid.UUID  `json:"id"`
	LeadID          *int64     `json:"lead_id,omitempty"`
	CustomerID      *int64     `json:"customer_id,omitempty"`
	Title           string     `json:"title"`
	AppointmentType string     `json:"appointment_type"`
	ServiceNote     string     `json:"service_note,omitempty"`
	Description     string     `json:"description,omitempty"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	LocationID      int64      `json:"location_id"`
	Status          string     `json:"status"`
	GoogleEventID   *string    `json:"google_event_id,omitempty"`
	LastSync        *time.Time `json:"last_sync,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toAppointmentResponse(a domain.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:              a.ID,
		LeadID:          a.LeadID,
		CustomerID:      a.CustomerID,
		Title:           a.Title,
		AppointmentType: string(a.Type),
		ServiceNote:     a.ServiceNote,
		Description:     a.Description,
		StartTime:       a.StartTime,
		EndTime:         a.EndTime,
		LocationID:      a.LocationID,
		Status:          a.Status,
		GoogleEventID:   a.GoogleEventID,
		LastSync:        a.LastSync,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

type detailResponse struct {
	appointmentResponse
	LocationName string `json:"location_name,omitempty"`
	LeadName     string `json:"lead_name,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
}

type historyResponse struct {
	ID              int64     `json:"id"`
	AppointmentID   uuid.UUID `json:"appointment_id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	Status          string    `json:"status"`
	LocationID      int64     `json:"location_id"`
	ChangedByUserID string    `json:"changed_by_user_id"`
	Reason          string    `json:"reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type errorResponse struct {
	Error                    string `json:"error"`
	Field                    string `json:"field,omitempty"`
	ConflictingAppointmentID string `json:"conflicting_appointment_id,omitempty"`
	Hint                     string `json:"hint,omitempty"`
}

func (h *AppointmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	res, err := h.svc.Create(r.Context(), req.toInput())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	body := struct {
		Appointment appointmentResponse `json:"appointment"`
		Warning     string              `json:"warning,omitempty"`
	}{
		Appointment: toAppointmentResponse(res.Appointment),
		Warning:     res.Warning,
	}
	writeJSON(w, http.StatusCreated, body)
}

func (h *AppointmentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	d, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, detailResponse{
		appointmentResponse: toAppointmentResponse(d.Appointment),
		LocationName:        d.LocationName,
		LeadName:            d.LeadName,
		CustomerName:        d.CustomerName,
	})
}

func (h *AppointmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start, err := parseDateParam(q.Get("start_date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid start_date", Field: "start_date"})
		return
	}
	end, err := parseDateParam(q.Get("end_date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid end_date", Field: "end_date"})
		return
	}

	filter := store.RangeFilter{
		Status: q.Get("status"),
		Type:   domain.AppointmentType(q.Get("appointment_type")),
	}
	if v := q.Get("location_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid location_id", Field: "location_id"})
			return
		}
		filter.LocationID = &id
	}
	if v := q.Get("customer_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid customer_id", Field: "customer_id"})
			return
		}
		filter.CustomerID = &id
	}

	appts, err := h.svc.ListRange(r.Context(), start, end, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentResponse(a))
	}
	writeJSON(w, http.StatusOK, struct {
		Appointments []appointmentResponse `json:"appointments"`
		Count        int                   `json:"count"`
	}{Appointments: out, Count: len(out)})
}

func (h *AppointmentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	actingUser := strings.TrimSpace(r.Header.Get(ActingUserHeader))
	if actingUser == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing " + ActingUserHeader + " header", Field: "acting_user_id"})
		return
	}

	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	updated, err := h.svc.Update(r.Context(), id, req.toInput(), actingUser)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(updated))
}

func (h *AppointmentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	actingUser := strings.TrimSpace(r.Header.Get(ActingUserHeader))
	if actingUser == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing " + ActingUserHeader + " header", Field: "acting_user_id"})
		return
	}

	if err := h.svc.Delete(r.Context(), id, actingUser, r.URL.Query().Get("reason")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AppointmentsHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	rows, err := h.svc.History(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]historyResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, historyResponse{
			ID:              row.ID,
			AppointmentID:   row.AppointmentID,
			StartTime:       row.StartTime,
			EndTime:         row.EndTime,
			Status:          row.Status,
			LocationID:      row.LocationID,
			ChangedByUserID: row.ChangedByUserID,
			Reason:          row.Reason,
			CreatedAt:       row.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, struct {
		History []historyResponse `json:"history"`
	}{History: out})
}

func (h *AppointmentsHandler) Slots(w http.ResponseWriter, r *http.Request) {
	locationID, err := strconv.ParseInt(chi.URLParam(r, "locationID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid location id", Field: "location_id"})
		return
	}

	q := r.URL.Query()
	date, err := parseDateParam(q.Get("date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid date", Field: "date"})
		return
	}

	duration := 0
	if v := q.Get("duration_minutes"); v != "" {
		duration, err = strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid duration_minutes", Field: "duration_minutes"})
			return
		}
	}

	slots, err := h.svc.AvailableSlots(r.Context(), locationID, date, domain.AppointmentType(q.Get("appointment_type")), duration)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if slots == nil {
		slots = []time.Time{}
	}
	writeJSON(w, http.StatusOK, struct {
		Slots []time.Time `json:"slots"`
	}{Slots: slots})
}

func (h *AppointmentsHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *appointments.ValidationError
	if errors.As(err, &vErr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: vErr.Error(), Field: vErr.Field})
		return
	}

	var cErr *store.ConflictError
	if errors.As(err, &cErr) {
		resp := errorResponse{
			Error: "the requested time overlaps an existing appointment",
			Hint:  "query available slots for an open time",
		}
		if cErr.ConflictingID != uuid.Nil {
			resp.ConflictingAppointmentID = cErr.ConflictingID.String()
		}
		writeJSON(w, http.StatusConflict, resp)
		return
	}
	if errors.Is(err, store.ErrConflict) {
		writeJSON(w, http.StatusConflict, errorResponse{
			Error: "the requested time overlaps an existing appointment",
			Hint:  "query available slots for an open time",
		})
		return
	}

	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "appointment not found"})
		return
	}

	h.log.Error("request failed", slog.String("path", r.URL.Path), slog.Any("err", err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid appointment id", Field: "id"})
		return uuid.Nil, false
	}
	return id, true
}

// parseDateParam accepts either a date or a full RFC 3339 timestamp.
func parseDateParam(v string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
