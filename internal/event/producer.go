package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anuragpardeshii/MediCare/internal/domain"
	pkgkafka "github.com/anuragpardeshii/MediCare/pkg/kafka"
	"github.com/anuragpardeshii/MediCare/pkg/logger"
)

// Kafka topics for clinic domain events.
const (
	TopicUserRegistered       = "clinic.user.registered"
	TopicAppointmentBooked    = "clinic.appointment.booked"
	TopicAppointmentCancelled = "clinic.appointment.cancelled"
)

// Aggregate types.
const (
	AggregateTypeUser        = "user"
	AggregateTypeAppointment = "appointment"
)

// Source identifies events originating from this service.
const Source = "medicare-api"

// UserRegisteredData is the payload for a user.registered event. It never
// carries credentials.
type UserRegisteredData struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Role           string  `json:"role"`
	Specialization *string `json:"specialization"`
}

// AppointmentBookedData is the payload for an appointment.booked event.
type AppointmentBookedData struct {
	ID               string `json:"id"`
	UserID           string `json:"user_id"`
	Doctor           string `json:"doctor"`
	ConsultationType string `json:"consultation_type"`
	Date             string `json:"date"`
	Time             string `json:"time"`
}

// AppointmentCancelledData is the payload for an appointment.cancelled event.
type AppointmentCancelledData struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Doctor      string    `json:"doctor"`
	CancelledBy string    `json:"cancelled_by"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// Producer publishes clinic domain events.
type Producer struct {
	publisher pkgkafka.Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(publisher pkgkafka.Publisher, logger *slog.Logger) *Producer {
	return &Producer{publisher: publisher, logger: logger}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, u *domain.User) error {
	return p.publish(ctx, TopicUserRegistered, "user.registered", AggregateTypeUser, u.ID, UserRegisteredData{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           u.Role.String(),
		Specialization: u.Specialization,
	})
}

// PublishAppointmentBooked publishes an appointment.booked event.
func (p *Producer) PublishAppointmentBooked(ctx context.Context, a *domain.Appointment) error {
	return p.publish(ctx, TopicAppointmentBooked, "appointment.booked", AggregateTypeAppointment, a.ID, AppointmentBookedData{
		ID:               a.ID,
		UserID:           a.UserID,
		Doctor:           a.Doctor,
		ConsultationType: a.ConsultationType,
		Date:             a.Date.Format(domain.DateLayout),
		Time:             a.Time,
	})
}

// PublishAppointmentCancelled publishes an appointment.cancelled event.
func (p *Producer) PublishAppointmentCancelled(ctx context.Context, a *domain.Appointment, cancelledBy string) error {
	return p.publish(ctx, TopicAppointmentCancelled, "appointment.cancelled", AggregateTypeAppointment, a.ID, AppointmentCancelledData{
		ID:          a.ID,
		UserID:      a.UserID,
		Doctor:      a.Doctor,
		CancelledBy: cancelledBy,
		CancelledAt: time.Now().UTC(),
	})
}

func (p *Producer) publish(ctx context.Context, topic, eventType, aggregateType, aggregateID string, data any) error {
	evt, err := pkgkafka.NewEvent(eventType, aggregateType, aggregateID, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	evt.CorrelationID = logger.CorrelationIDFromContext(ctx)

	if err := p.publisher.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "domain event published",
		slog.String("event_type", eventType),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
