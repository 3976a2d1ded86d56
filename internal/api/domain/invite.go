package domain

import "time"

// InviteStatus is the stored status. Expiry is not stored; see State.
type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "PENDING"
	InviteStatusAccepted InviteStatus = "ACCEPTED"
	InviteStatusRevoked  InviteStatus = "REVOKED"
)

// InviteState adds the implicit EXPIRED state to InviteStatus.
type InviteState string

const (
	InviteStatePending  InviteState = "PENDING"
	InviteStateExpired  InviteState = "EXPIRED"
	InviteStateAccepted InviteState = "ACCEPTED"
	InviteStateRevoked  InviteState = "REVOKED"
)

// Invite bounds, in days.
const (
	InviteMinTTLDays     = 1
	InviteMaxTTLDays     = 60
	InviteDefaultTTLDays = 7
)

type Invite struct {
	ID               string
	ClinicID         string
	Email            string
	Role             Role
	TokenHash        string
	Status           InviteStatus
	ExpiresAt        time.Time
	SendCount        int
	LastSentAt       time.Time
	InvitedByUserID  string
	AcceptedByUserID string
	AcceptedAt       *time.Time
	RevokedByUserID  string
	RevokedAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Expired reports whether a pending invite is past its expiry at now.
func (i Invite) Expired(now time.Time) bool {
	return i.Status == InviteStatusPending && !now.Before(i.ExpiresAt)
}

// State evaluates the lifecycle state at now.
func (i Invite) State(now time.Time) InviteState {
	switch i.Status {
	case InviteStatusAccepted:
		return InviteStateAccepted
	case InviteStatusRevoked:
		return InviteStateRevoked
	}
	if i.Expired(now) {
		return InviteStateExpired
	}
	return InviteStatePending
}
