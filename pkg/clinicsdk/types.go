package clinicsdk

import "time"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// MisconfiguredResponse lists missing settings by name. Values are never
// included.
type MisconfiguredResponse struct {
	Error   string          `json:"error"`
	Missing map[string]bool `json:"missing"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

// ============================================================================
// Identity
// ============================================================================

type Clinic struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

type User struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	Role               string     `json:"role"`
	ClinicID           string     `json:"clinicId"`
	ExternalIdentityID string     `json:"externalIdentityId"`
	IsActive           bool       `json:"isActive"`
	PlatformRole       string     `json:"platformRole"`
	LastActiveAt       *time.Time `json:"lastActiveAt,omitempty"`
}

// EnsureUserResponse is returned by bootstrap and by /v1/me.
type EnsureUserResponse struct {
	Clinic Clinic `json:"clinic"`
	User   User   `json:"user"`
}

type MeResponse = EnsureUserResponse

// ============================================================================
// Invites
// ============================================================================

type CreateInviteRequest struct {
	Email         string `json:"email" validate:"required,email,max=254"`
	Role          string `json:"role,omitempty" validate:"omitempty,oneof=OWNER ADMIN STAFF"`
	ExpiresInDays *int   `json:"expiresInDays,omitempty" validate:"omitempty,min=1,max=60"`
}

type CreateInviteResponse struct {
	InviteID  string `json:"inviteId"`
	Token     string `json:"token"`
	InviteURL string `json:"inviteUrl"`
}

type ResendInviteRequest struct {
	ExpiresInDays *int `json:"expiresInDays,omitempty" validate:"omitempty,min=1,max=60"`
}

type ResendInviteResponse struct {
	Token     string `json:"token"`
	InviteURL string `json:"inviteUrl"`
}

type AcceptInviteRequest struct {
	Token string `json:"token" validate:"required,max=512"`
}

type AcceptInviteResponse struct {
	OK       bool   `json:"ok"`
	UserID   string `json:"userId"`
	ClinicID string `json:"clinicId"`
	Role     string `json:"role"`
}

// Invite is the listing view. The token hash is never exposed.
type Invite struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Role             string     `json:"role"`
	Status           string     `json:"status"`
	State            string     `json:"state"`
	ExpiresAt        time.Time  `json:"expiresAt"`
	SendCount        int        `json:"sendCount"`
	LastSentAt       time.Time  `json:"lastSentAt"`
	InvitedByUserID  string     `json:"invitedByUserId"`
	AcceptedByUserID string     `json:"acceptedByUserId,omitempty"`
	AcceptedAt       *time.Time `json:"acceptedAt,omitempty"`
	RevokedByUserID  string     `json:"revokedByUserId,omitempty"`
	RevokedAt        *time.Time `json:"revokedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

type ListInvitesResponse struct {
	Invites []Invite `json:"invites"`
}

// ============================================================================
// Admin
// ============================================================================

type ListUsersResponse struct {
	Users []User `json:"users"`
}

type ListClinicsResponse struct {
	Clinics []Clinic `json:"clinics"`
}

type CreateClinicRequest struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}
