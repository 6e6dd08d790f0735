package models

import "fmt"

// Role is the closed set of account roles.
type Role string

const (
	RoleVolunteer Role = "volunteer"
	RoleNGO       Role = "ngo"
	RoleAdmin     Role = "admin"
)

// Roles lists every role in display order.
var Roles = []Role{RoleVolunteer, RoleNGO, RoleAdmin}

func (r Role) Valid() bool {
	switch r {
	case RoleVolunteer, RoleNGO, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole converts s into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}
