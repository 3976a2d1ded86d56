package http

import (
	"time"

	"github.com/aussiebroadwan/clinic/internal/api/domain"
	"github.com/aussiebroadwan/clinic/internal/api/service"
	"github.com/aussiebroadwan/clinic/pkg/clinicsdk"
)

func toClinic(c domain.Clinic) clinicsdk.Clinic {
	return clinicsdk.Clinic{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt}
}

func toUser(u domain.User) clinicsdk.User {
	return clinicsdk.User{
		ID:                 u.ID,
		Email:              u.Email,
		Role:               string(u.Role),
		ClinicID:           u.ClinicID,
		ExternalIdentityID: u.CognitoSub,
		IsActive:           u.IsActive,
		PlatformRole:       string(u.PlatformRole),
		LastActiveAt:       u.LastActiveAt,
	}
}

func toMembership(m service.Membership) clinicsdk.EnsureUserResponse {
	return clinicsdk.EnsureUserResponse{Clinic: toClinic(m.Clinic), User: toUser(m.User)}
}

func toInvite(i domain.Invite, now time.Time) clinicsdk.Invite {
	return clinicsdk.Invite{
		ID:               i.ID,
		Email:            i.Email,
		Role:             string(i.Role),
		Status:           string(i.Status),
		State:            string(i.State(now)),
		ExpiresAt:        i.ExpiresAt,
		SendCount:        i.SendCount,
		LastSentAt:       i.LastSentAt,
		InvitedByUserID:  i.InvitedByUserID,
		AcceptedByUserID: i.AcceptedByUserID,
		AcceptedAt:       i.AcceptedAt,
		RevokedByUserID:  i.RevokedByUserID,
		RevokedAt:        i.RevokedAt,
		CreatedAt:        i.CreatedAt,
	}
}

func toAccepted(a service.AcceptedInvite) clinicsdk.AcceptInviteResponse {
	return clinicsdk.AcceptInviteResponse{
		OK:       true,
		UserID:   a.UserID,
		ClinicID: a.ClinicID,
		Role:     string(a.Role),
	}
}
