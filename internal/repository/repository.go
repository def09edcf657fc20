package repository

import (
	"context"

	"github.com/anuragpardeshii/MediCare/internal/domain"
)

// UserRepository is the credential store. Implementations must enforce email
// uniqueness themselves and report a duplicate as apperrors.ErrAlreadyExists.
type UserRepository interface {
	// Create inserts a new user.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by exact, case-sensitive email match.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// List returns one page of users matching filter and the total count.
	List(ctx context.Context, filter domain.UserFilter) ([]domain.User, int, error)

	// Delete removes a user and their appointments.
	Delete(ctx context.Context, id string) error
}

// AppointmentRepository persists booked appointments.
type AppointmentRepository interface {
	// Create inserts a new appointment.
	Create(ctx context.Context, appt *domain.Appointment) error

	// GetByID retrieves an appointment by its identifier.
	GetByID(ctx context.Context, id string) (*domain.Appointment, error)

	// List returns one page of appointments ordered by date ascending and the
	// total count.
	List(ctx context.Context, filter domain.AppointmentFilter) ([]domain.Appointment, int, error)

	// Delete removes an appointment.
	Delete(ctx context.Context, id string) error
}
