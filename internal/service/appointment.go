package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anuragpardeshii/MediCare/internal/auth"
	"github.com/anuragpardeshii/MediCare/internal/domain"
	"github.com/anuragpardeshii/MediCare/internal/event"
	"github.com/anuragpardeshii/MediCare/internal/repository"
	apperrors "github.com/anuragpardeshii/MediCare/pkg/errors"
	"github.com/anuragpardeshii/MediCare/pkg/pagination"
)

// CreateAppointmentInput holds the parameters for booking an appointment.
// The patient is always the caller; there is no user ID field.
type CreateAppointmentInput struct {
	FirstName        string
	LastName         string
	ConsultationType string
	Phone            string
	Doctor           string
	Date             string // YYYY-MM-DD
	Time             string
	Symptoms         string
}

// AppointmentService books, lists and cancels appointments. It does not
// detect slot conflicts.
type AppointmentService struct {
	appointments repository.AppointmentRepository
	events       *event.Producer
	logger       *slog.Logger
	now          func() time.Time
}

// NewAppointmentService creates a new appointment service.
func NewAppointmentService(
	appointments repository.AppointmentRepository,
	events *event.Producer,
	logger *slog.Logger,
) *AppointmentService {
	return &AppointmentService{
		appointments: appointments,
		events:       events,
		logger:       logger,
		now:          time.Now,
	}
}

// Create books an appointment for the calling patient.
func (s *AppointmentService) Create(ctx context.Context, actor *auth.Identity, input CreateAppointmentInput) (*domain.Appointment, error) {
	var msgs []string
	required := []struct{ value, msg string }{
		{input.FirstName, "First name is required."},
		{input.LastName, "Last name is required."},
		{input.ConsultationType, "Consultation type is required."},
		{input.Phone, "Phone is required."},
		{input.Doctor, "Doctor is required."},
		{input.Date, "Date is required."},
		{input.Time, "Time is required."},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			msgs = append(msgs, f.msg)
		}
	}

	var date time.Time
	if input.Date != "" {
		d, err := time.Parse(domain.DateLayout, input.Date)
		if err != nil {
			msgs = append(msgs, "Date must be formatted as YYYY-MM-DD.")
		}
		date = d
	}
	if len(msgs) > 0 {
		return nil, apperrors.Validation(msgs...)
	}

	now := s.now().UTC()
	appt := &domain.Appointment{
		ID:               uuid.New().String(),
		UserID:           actor.UserID,
		FirstName:        strings.TrimSpace(input.FirstName),
		LastName:         strings.TrimSpace(input.LastName),
		ConsultationType: strings.TrimSpace(input.ConsultationType),
		Phone:            strings.TrimSpace(input.Phone),
		Doctor:           strings.TrimSpace(input.Doctor),
		Date:             date,
		Time:             strings.TrimSpace(input.Time),
		Symptoms:         strings.TrimSpace(input.Symptoms),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.appointments.Create(ctx, appt); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	if err := s.events.PublishAppointmentBooked(ctx, appt); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish appointment.booked event",
			slog.String("appointment_id", appt.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "appointment booked",
		slog.String("appointment_id", appt.ID),
		slog.String("doctor", appt.Doctor),
	)
	return appt, nil
}

// ListAll returns every patient's appointments, earliest first.
func (s *AppointmentService) ListAll(ctx context.Context, page pagination.Params) ([]domain.Appointment, int, error) {
	return s.list(ctx, "", page)
}

// ListByPatient returns a patient's appointments. Patients may only read
// their own; doctors may read anyone's.
func (s *AppointmentService) ListByPatient(ctx context.Context, actor *auth.Identity, patientID string, page pagination.Params) ([]domain.Appointment, int, error) {
	if actor.UserID != patientID && !actor.Role.Allows(domain.RoleDoctor) {
		return nil, 0, apperrors.Forbidden("you can only view your own appointments")
	}
	return s.list(ctx, patientID, page)
}

// ListMine returns the caller's own appointments.
func (s *AppointmentService) ListMine(ctx context.Context, actor *auth.Identity, page pagination.Params) ([]domain.Appointment, int, error) {
	return s.list(ctx, actor.UserID, page)
}

func (s *AppointmentService) list(ctx context.Context, userID string, page pagination.Params) ([]domain.Appointment, int, error) {
	appts, total, err := s.appointments.List(ctx, domain.AppointmentFilter{
		UserID:  userID,
		Page:    page.Page,
		PerPage: page.PerPage,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	return appts, total, nil
}

// Cancel deletes an appointment. Only the booking patient or a doctor may
// cancel it.
func (s *AppointmentService) Cancel(ctx context.Context, actor *auth.Identity, id string) error {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get appointment: %w", err)
	}
	if !appt.OwnedBy(actor.UserID) && !actor.Role.Allows(domain.RoleDoctor) {
		return apperrors.Forbidden("you can only cancel your own appointments")
	}

	if err := s.appointments.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}

	if err := s.events.PublishAppointmentCancelled(ctx, appt, actor.UserID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish appointment.cancelled event",
			slog.String("appointment_id", appt.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "appointment cancelled",
		slog.String("appointment_id", appt.ID),
		slog.String("cancelled_by", actor.UserID),
	)
	return nil
}
