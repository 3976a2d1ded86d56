package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/clinic/internal/api/domain"
	"github.com/aussiebroadwan/clinic/internal/api/store"
	"github.com/aussiebroadwan/clinic/pkg/slogx"
)

// UserListLimit caps GET /v1/admin/users.
const UserListLimit = 500

// UserService serves the resolved user and clinic-scoped user admin.
type UserService struct {
	Store store.Store
}

// Me returns the caller with their clinic.
func (s *UserService) Me(ctx context.Context, user domain.User) (Membership, error) {
	clinic, err := s.Store.Clinics().GetClinicByID(ctx, user.ClinicID)
	if err != nil {
		return Membership{}, err
	}
	return Membership{Clinic: clinic, User: user}, nil
}

// ListUsers returns the actor's clinic members, newest first.
func (s *UserService) ListUsers(ctx context.Context, actor domain.User) ([]domain.User, error) {
	return s.Store.Users().ListUsersByClinic(ctx, actor.ClinicID, UserListLimit)
}

// RemoveUser deactivates a member of the actor's clinic and records who did
// it. The row is kept so the identity cannot bootstrap back in on its next
// login; only an invite accept restores access.
func (s *UserService) RemoveUser(ctx context.Context, actor domain.User, userID string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	if userID == actor.ID {
		return domain.User{}, fmt.Errorf("%w: cannot remove yourself", domain.ErrInvalidState)
	}

	target, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, fmt.Errorf("%w: user", domain.ErrNotFound)
		}
		return domain.User{}, err
	}
	if target.ClinicID != actor.ClinicID {
		log.Warn("cross-tenant user removal", slog.String("actor_id", actor.ID), slog.String("user_id", userID))
		return domain.User{}, fmt.Errorf("%w: user", domain.ErrNotFound)
	}
	if target.Role.Outranks(actor.Role) {
		return domain.User{}, fmt.Errorf("%w: cannot remove a %s", domain.ErrForbidden, target.Role)
	}
	if target.Removed() && !target.IsActive {
		return target, nil
	}

	at := time.Now().UTC()
	target.IsActive = false
	target.DeactivatedAt = &at
	target.DeactivatedBy = actor.ID
	if err := s.Store.Users().UpdateUser(ctx, target); err != nil {
		log.Error("failed to deactivate user", slog.String("user_id", userID), slog.Any("error", err))
		return domain.User{}, err
	}

	log.Info("user removed", slog.String("user_id", userID), slog.String("removed_by", actor.ID))
	return target, nil
}
