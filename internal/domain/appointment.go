package domain

import "time"

// DateLayout is the calendar date format used for appointment days.
const DateLayout = "2006-01-02"

// Appointment is a consultation a patient booked with a doctor. UserID is
// always the booking patient's ID taken from their session.
type Appointment struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	ConsultationType string    `json:"consultation_type"`
	Phone            string    `json:"phone"`
	Doctor           string    `json:"doctor"`
	Date             time.Time `json:"date"`
	Time             string    `json:"time"`
	Symptoms         string    `json:"symptoms,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// OwnedBy reports whether the appointment was booked by userID.
func (a *Appointment) OwnedBy(userID string) bool {
	return a.UserID == userID
}

// AppointmentFilter narrows an appointment listing. An empty UserID lists
// every patient's appointments.
type AppointmentFilter struct {
	UserID  string
	Page    int
	PerPage int
}
