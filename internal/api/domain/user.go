package domain

import (
	"strings"
	"time"
)

type User struct {
	ID           string
	Email        string // lower-cased
	CognitoSub   string // empty until linked
	ClinicID     string
	Role         Role
	PlatformRole PlatformRole
	IsActive     bool
	LastActiveAt *time.Time

	// DeactivatedAt is set when a clinic admin removes the user. Only an
	// invite accept clears it.
	DeactivatedAt *time.Time
	DeactivatedBy string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Removed reports whether an admin removed the user from their clinic.
func (u User) Removed() bool {
	return u.DeactivatedAt != nil
}

// NormalizeEmail trims and lower-cases an address for storage and
// comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
