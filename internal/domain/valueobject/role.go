package valueobject

import (
	"strings"

	"github.com/oksasatya/tutorhub-user-service/internal/domain/domainerr"
)

// Role is the user's position in the marketplace.
type Role string

const (
	RoleStudent    Role = "student"
	RoleTutor      Role = "tutor"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Roles lists every valid role in privilege order.
func Roles() []Role {
	return []Role{RoleStudent, RoleTutor, RoleAdmin, RoleSuperAdmin}
}

// ParseRole accepts the wire value case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", domainerr.NewValidationError("role", "must be one of: student, tutor, admin, super_admin", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTutor, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Administrative reports whether the role carries staff privileges.
func (r Role) Administrative() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

func (r Role) String() string { return string(r) }
