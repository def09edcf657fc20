package domain

import (
	"time"
)

// User is a registered patient or doctor.
type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Role           Role      `json:"role"`
	Specialization *string   `json:"specialization"`
	CreatedAt      time.Time `json:"created_at"`
}

// PublicUser is the only user shape written to responses and events.
type PublicUser struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           Role      `json:"role"`
	Specialization *string   `json:"specialization"`
	CreatedAt      time.Time `json:"created_at"`
}

// Public returns the projection of u without the password hash.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           u.Role,
		Specialization: u.Specialization,
		CreatedAt:      u.CreatedAt,
	}
}

// PublicUsers projects a slice of users.
func PublicUsers(users []User) []PublicUser {
	out := make([]PublicUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out
}

// HasConsistentSpecialization reports whether the specialization matches the
// role: doctors carry one, patients never do.
func (u *User) HasConsistentSpecialization() bool {
	if u.Role == RoleDoctor {
		return u.Specialization != nil && *u.Specialization != ""
	}
	return u.Specialization == nil
}

// UserFilter narrows a user listing. Query, when set, matches name or
// specialization case-insensitively.
type UserFilter struct {
	Role    *Role
	Query   string
	Page    int
	PerPage int
}
