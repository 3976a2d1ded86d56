package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/clinic/internal/api/domain"
	"github.com/aussiebroadwan/clinic/internal/api/store"
	"github.com/aussiebroadwan/clinic/pkg/idx"
	"github.com/aussiebroadwan/clinic/pkg/slogx"
)

const DefaultClinicName = "Default Clinic"

// BootstrapService binds a verified external identity to a local user on
// first login.
type BootstrapService struct {
	Store store.Store

	DefaultClinicID   string
	DefaultClinicName string
	DefaultRole       domain.Role

	// PlatformAdminEmails are normalized addresses granted SUPER_ADMIN.
	PlatformAdminEmails []string

	Now func() time.Time
}

// Membership is a user together with the clinic it belongs to.
type Membership struct {
	Clinic domain.Clinic
	User   domain.User
}

// EnsureUser finds or creates the local user for id. It is idempotent: a
// second call for the same identity returns the same user and clinic.
//
// Steps, in one transaction:
//  1. Resolve the default clinic (by id, then name, then create)
//  2. Match by sub and refresh email / active flag, keeping the user's clinic
//  3. Match by email and link the sub when the row has none and the email is verified
//
// A user removed by a clinic admin is never reactivated here and gets
// ErrUnauthorized.
//  4. Otherwise create the user in the default clinic
//  5. Stamp SUPER_ADMIN for configured platform admins (never demotes)
func (s *BootstrapService) EnsureUser(ctx context.Context, id domain.Identity) (Membership, error) {
	log := slogx.FromContext(ctx)

	sub := strings.TrimSpace(id.Sub)
	email := domain.NormalizeEmail(id.Email)
	if sub == "" {
		return Membership{}, fmt.Errorf("%w: token has no subject", domain.ErrUnauthorized)
	}
	if email == "" {
		return Membership{}, fmt.Errorf("%w: token has no email claim", domain.ErrInvalidState)
	}

	var out Membership
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		// 1. Default clinic
		def, err := s.defaultClinic(ctx, tx)
		if err != nil {
			return err
		}

		// 2-4. Resolve the user
		user, err := s.resolveUser(ctx, tx, sub, email, id.EmailVerified, def)
		if err != nil {
			return err
		}

		// 5. Platform admin stamp
		if s.isPlatformAdmin(email) && user.PlatformRole != domain.PlatformRoleSuperAdmin {
			user.PlatformRole = domain.PlatformRoleSuperAdmin
			if err := tx.Users().UpdateUser(ctx, user); err != nil {
				return fmt.Errorf("grant platform role: %w", err)
			}
			log.Info("platform admin granted", slog.String("user_id", user.ID))
		}

		clinic := def
		if user.ClinicID != def.ID {
			clinic, err = tx.Clinics().GetClinicByID(ctx, user.ClinicID)
			if err != nil {
				return fmt.Errorf("load user clinic: %w", err)
			}
		}

		out = Membership{Clinic: clinic, User: user}
		return nil
	})
	if err != nil {
		if !isDomainError(err) {
			log.Error("ensure user failed", slog.Any("error", err))
		}
		return Membership{}, err
	}

	return out, nil
}

func (s *BootstrapService) defaultClinic(ctx context.Context, tx store.Tx) (domain.Clinic, error) {
	name := strings.TrimSpace(s.DefaultClinicName)
	if name == "" {
		name = DefaultClinicName
	}

	if s.DefaultClinicID != "" {
		c, err := tx.Clinics().GetClinicByID(ctx, s.DefaultClinicID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return domain.Clinic{}, err
		}
	}

	c, err := tx.Clinics().GetClinicByName(ctx, name)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.Clinic{}, err
	}

	newID := s.DefaultClinicID
	if newID == "" {
		newID = idx.New().String()
	}
	now := s.now()
	created, err := tx.Clinics().CreateClinicIfAbsent(ctx, domain.Clinic{
		ID:        newID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return domain.Clinic{}, fmt.Errorf("create default clinic: %w", err)
	}
	if created {
		slogx.FromContext(ctx).Info("default clinic created", slog.String("clinic_id", newID))
		return tx.Clinics().GetClinicByID(ctx, newID)
	}

	// Lost a race with a concurrent bootstrap.
	return tx.Clinics().GetClinicByName(ctx, name)
}

func (s *BootstrapService) resolveUser(
	ctx context.Context,
	tx store.Tx,
	sub, email string,
	emailVerified bool,
	def domain.Clinic,
) (domain.User, error) {
	log := slogx.FromContext(ctx)

	// Known identity: refresh, never re-tenant.
	user, err := tx.Users().GetUserBySub(ctx, sub)
	switch {
	case err == nil:
		if user.Removed() {
			log.Info("removed user denied bootstrap", slog.String("user_id", user.ID))
			return domain.User{}, fmt.Errorf("%w: user was removed from the clinic", domain.ErrUnauthorized)
		}
		if user.Email == email && user.IsActive {
			return user, nil
		}
		user.Email = email
		user.IsActive = true
		if err := tx.Users().UpdateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return domain.User{}, fmt.Errorf("%w: email already belongs to another user", domain.ErrInvalidState)
			}
			return domain.User{}, err
		}
		return user, nil
	case !errors.Is(err, store.ErrNotFound):
		return domain.User{}, err
	}

	// Pre-provisioned row (from an invite accepted without login).
	user, err = tx.Users().GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if user.CognitoSub != "" {
			log.Warn("email bound to a different identity", slog.String("user_id", user.ID))
			return domain.User{}, fmt.Errorf("%w: email is linked to a different identity", domain.ErrInvalidState)
		}
		if user.Removed() {
			log.Info("removed user denied bootstrap", slog.String("user_id", user.ID))
			return domain.User{}, fmt.Errorf("%w: user was removed from the clinic", domain.ErrUnauthorized)
		}
		if !emailVerified {
			return domain.User{}, fmt.Errorf("%w: email must be verified to link an existing account", domain.ErrInvalidState)
		}
		user.CognitoSub = sub
		user.IsActive = true
		if err := tx.Users().UpdateUser(ctx, user); err != nil {
			return domain.User{}, err
		}
		log.Info("identity linked to existing user", slog.String("user_id", user.ID))
		return user, nil
	case !errors.Is(err, store.ErrNotFound):
		return domain.User{}, err
	}

	role := s.DefaultRole
	if !role.Valid() {
		role = domain.RoleAdmin
	}
	now := s.now()
	user = domain.User{
		ID:           idx.New().String(),
		Email:        email,
		CognitoSub:   sub,
		ClinicID:     def.ID,
		Role:         role,
		PlatformRole: domain.PlatformRoleNone,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	created, err := tx.Users().CreateUserIfAbsent(ctx, user)
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	if created {
		log.Info("user bootstrapped",
			slog.String("user_id", user.ID),
			slog.String("clinic_id", def.ID),
			slog.String("role", string(role)),
		)
		return tx.Users().GetUserByID(ctx, user.ID)
	}

	// A concurrent first login created the row.
	user, err = tx.Users().GetUserBySub(ctx, sub)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, fmt.Errorf("%w: email already belongs to another user", domain.ErrInvalidState)
	}
	return user, err
}

func (s *BootstrapService) isPlatformAdmin(email string) bool {
	for _, e := range s.PlatformAdminEmails {
		if domain.NormalizeEmail(e) == email {
			return true
		}
	}
	return false
}

func (s *BootstrapService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
