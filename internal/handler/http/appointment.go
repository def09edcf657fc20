package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anuragpardeshii/MediCare/internal/domain"
	"github.com/anuragpardeshii/MediCare/internal/service"
	"github.com/anuragpardeshii/MediCare/pkg/httputil"
	"github.com/anuragpardeshii/MediCare/pkg/pagination"
)

// AppointmentHandler serves appointment booking and listing.
type AppointmentHandler struct {
	service *service.AppointmentService
	logger  *slog.Logger
}

// NewAppointmentHandler creates a new appointment HTTP handler.
func NewAppointmentHandler(svc *service.AppointmentService, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{service: svc, logger: logger}
}

// CreateAppointmentRequest is the booking form. Presence checks live in the
// service; the tags here only bound field sizes.
type CreateAppointmentRequest struct {
	FirstName        string `json:"first_name" validate:"max=100"`
	LastName         string `json:"last_name" validate:"max=100"`
	ConsultationType string `json:"consultation_type" validate:"max=50"`
	Phone            string `json:"phone" validate:"max=30"`
	Doctor           string `json:"doctor" validate:"max=100"`
	Date             string `json:"date" validate:"max=10"`
	Time             string `json:"time" validate:"max=20"`
	Symptoms         string `json:"symptoms" validate:"max=2000"`
}

// Create handles POST /api/appointments.
func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	appt, err := h.service.Create(r.Context(), IdentityFromContext(r.Context()), service.CreateAppointmentInput{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		ConsultationType: req.ConsultationType,
		Phone:            req.Phone,
		Doctor:           req.Doctor,
		Date:             req.Date,
		Time:             req.Time,
		Symptoms:         req.Symptoms,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, dataResponse{Success: true, Data: appt})
}

// ListAll handles GET /api/appointments.
func (h *AppointmentHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)
	appts, total, err := h.service.ListAll(r.Context(), page)
	h.writeAppointments(w, r, appts, total, page, err)
}

// ListMine handles GET /api/appointments/me.
func (h *AppointmentHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)
	appts, total, err := h.service.ListMine(r.Context(), IdentityFromContext(r.Context()), page)
	h.writeAppointments(w, r, appts, total, page, err)
}

// ListByPatient handles GET /api/appointments/patient/{userId}.
func (h *AppointmentHandler) ListByPatient(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)
	appts, total, err := h.service.ListByPatient(r.Context(), IdentityFromContext(r.Context()), chi.URLParam(r, "userId"), page)
	h.writeAppointments(w, r, appts, total, page, err)
}

// Cancel handles DELETE /api/appointments/{id}.
func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Cancel(r.Context(), IdentityFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Appointment cancelled"})
}

func (h *AppointmentHandler) writeAppointments(w http.ResponseWriter, r *http.Request, appts []domain.Appointment, total int, page pagination.Params, err error) {
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeList(w, appts, total, page)
}
