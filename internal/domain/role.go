package domain

import "fmt"

// Role is the closed set of account kinds. It is set once at registration.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// ValidRoles returns every role in the system.
func ValidRoles() []Role {
	return []Role{RolePatient, RoleDoctor}
}

// ParseRole converts s into a Role. An empty string yields the default,
// RolePatient.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return RolePatient, nil
	}
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RolePatient || r == RoleDoctor
}

// Allows reports whether r may act where required is demanded. Roles are
// flat: there is no hierarchy, only equality.
func (r Role) Allows(required Role) bool {
	return r.Valid() && r == required
}

func (r Role) String() string {
	return string(r)
}
