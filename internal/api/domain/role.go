package domain

import (
	"fmt"
	"strings"
)

// Role is a tenant-scoped role.
type Role string

const (
	RoleOwner Role = "OWNER"
	RoleAdmin Role = "ADMIN"
	RoleStaff Role = "STAFF"
)

// PlatformRole is a cross-tenant privilege, independent of Role.
type PlatformRole string

const (
	PlatformRoleNone       PlatformRole = "NONE"
	PlatformRoleSuperAdmin PlatformRole = "SUPER_ADMIN"
)

func (r Role) rank() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleAdmin:
		return 2
	case RoleStaff:
		return 1
	default:
		return 0
	}
}

func (r Role) Valid() bool { return r.rank() > 0 }

// Outranks reports whether r is strictly above other.
func (r Role) Outranks(other Role) bool { return r.rank() > other.rank() }

// ParseRole accepts any case. Empty input is an error.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidState, s)
	}
	return r, nil
}

func (p PlatformRole) Valid() bool {
	return p == PlatformRoleNone || p == PlatformRoleSuperAdmin
}
