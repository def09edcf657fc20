package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/anuragpardeshii/MediCare/internal/domain"
	"github.com/anuragpardeshii/MediCare/pkg/database"
	apperrors "github.com/anuragpardeshii/MediCare/pkg/errors"
)

const appointmentColumns = `id, user_id, first_name, last_name, consultation_type, phone,
		doctor, appointment_date, appointment_time, symptoms, created_at, updated_at`

// AppointmentRepository implements repository.AppointmentRepository using PostgreSQL.
type AppointmentRepository struct {
	db database.DBTX
}

// NewAppointmentRepository creates a new PostgreSQL-backed appointment repository.
func NewAppointmentRepository(db database.DBTX) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// Create inserts a new appointment.
func (r *AppointmentRepository) Create(ctx context.Context, a *domain.Appointment) error {
	query := `
		INSERT INTO appointments (` + appointmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Exec(ctx, query,
		a.ID,
		a.UserID,
		a.FirstName,
		a.LastName,
		a.ConsultationType,
		a.Phone,
		a.Doctor,
		a.Date,
		a.Time,
		a.Symptoms,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

// GetByID retrieves an appointment by its ID.
func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (*domain.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var a domain.Appointment
	err := r.db.QueryRow(ctx, query, id).Scan(appointmentFields(&a)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("appointment", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return &a, nil
}

// List returns appointments ordered by date and time, optionally for one patient.
func (r *AppointmentRepository) List(ctx context.Context, filter domain.AppointmentFilter) ([]domain.Appointment, int, error) {
	limit, offset := pageBounds(filter.Page, filter.PerPage)

	var (
		query string
		args  []any
	)
	if filter.UserID != "" {
		query = `
		SELECT ` + appointmentColumns + `, count(*) OVER() AS total_count
		FROM appointments
		WHERE user_id = $1
		ORDER BY appointment_date ASC, appointment_time ASC
		LIMIT $2 OFFSET $3`
		args = []any{filter.UserID, limit, offset}
	} else {
		query = `
		SELECT ` + appointmentColumns + `, count(*) OVER() AS total_count
		FROM appointments
		ORDER BY appointment_date ASC, appointment_time ASC
		LIMIT $1 OFFSET $2`
		args = []any{limit, offset}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var (
		appts      []domain.Appointment
		totalCount int
	)
	for rows.Next() {
		var a domain.Appointment
		if err := rows.Scan(append(appointmentFields(&a), &totalCount)...); err != nil {
			return nil, 0, fmt.Errorf("scan appointment row: %w", err)
		}
		appts = append(appts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate appointment rows: %w", err)
	}

	return appts, totalCount, nil
}

// Delete removes an appointment.
func (r *AppointmentRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("appointment", id)
	}
	return nil
}

func appointmentFields(a *domain.Appointment) []any {
	return []any{
		&a.ID, &a.UserID, &a.FirstName, &a.LastName, &a.ConsultationType, &a.Phone,
		&a.Doctor, &a.Date, &a.Time, &a.Symptoms, &a.CreatedAt, &a.UpdatedAt,
	}
}
