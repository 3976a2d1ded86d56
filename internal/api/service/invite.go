package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/clinic/internal/api/domain"
	"github.com/aussiebroadwan/clinic/internal/api/store"
	"github.com/aussiebroadwan/clinic/pkg/cryptox"
	"github.com/aussiebroadwan/clinic/pkg/httpx"
	"github.com/aussiebroadwan/clinic/pkg/idx"
	"github.com/aussiebroadwan/clinic/pkg/metrics"
	"github.com/aussiebroadwan/clinic/pkg/notify"
	"github.com/aussiebroadwan/clinic/pkg/slogx"
)

// InviteListLimit caps GET /v1/invites.
const InviteListLimit = 500

type InviteService struct {
	Store    store.Store
	Notifier notify.Notifier
	Metrics  *metrics.Metrics

	// WebAppBaseURL, when set, turns tokens into carry links on the web app.
	WebAppBaseURL  string
	DefaultTTLDays int

	Now func() time.Time
}

type CreateInviteInput struct {
	Email         string
	Role          string // defaults to STAFF
	ExpiresInDays *int
}

// IssuedInvite carries the raw token. It is returned once and never stored.
type IssuedInvite struct {
	Invite    domain.Invite
	Token     string
	InviteURL string
}

// AcceptedInvite describes the user an invite landed on.
type AcceptedInvite struct {
	InviteID string
	UserID   string
	ClinicID string
	Role     domain.Role
}

// CreateInvite mints an invite into the actor's clinic.
//
// The invite is persisted before the notifier runs. A notifier failure is
// returned as ErrUpstreamUnavailable alongside the issued invite so the
// caller can report it; the invite can be resent later.
func (s *InviteService) CreateInvite(ctx context.Context, actor domain.User, in CreateInviteInput) (IssuedInvite, error) {
	log := slogx.FromContext(ctx)

	// 1. Validate input
	email := domain.NormalizeEmail(in.Email)
	if err := httpx.Validator().Var(email, "required,email,max=254"); err != nil {
		return IssuedInvite{}, fmt.Errorf("%w: a valid email is required", domain.ErrInvalidState)
	}

	role := domain.RoleStaff
	if strings.TrimSpace(in.Role) != "" {
		r, err := domain.ParseRole(in.Role)
		if err != nil {
			return IssuedInvite{}, err
		}
		role = r
	}

	// 2. An inviter cannot mint a role above their own
	if role.Outranks(actor.Role) {
		log.Warn("invite role escalation rejected",
			slog.String("actor_id", actor.ID),
			slog.String("actor_role", string(actor.Role)),
			slog.String("invite_role", string(role)),
		)
		return IssuedInvite{}, fmt.Errorf("%w: cannot invite a %s", domain.ErrForbidden, role)
	}

	ttl, err := s.ttl(in.ExpiresInDays)
	if err != nil {
		return IssuedInvite{}, err
	}

	clinic, err := s.Store.Clinics().GetClinicByID(ctx, actor.ClinicID)
	if err != nil {
		log.Error("failed to load inviter clinic", slog.Any("error", err))
		return IssuedInvite{}, err
	}

	// 3. Generate the token; only its fingerprint is stored
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		log.Error("failed to generate invite token", slog.Any("error", err))
		return IssuedInvite{}, err
	}

	now := s.now()
	inv := domain.Invite{
		ID:              idx.NewAt(now).String(),
		ClinicID:        clinic.ID,
		Email:           email,
		Role:            role,
		TokenHash:       cryptox.FingerprintToken(token),
		Status:          domain.InviteStatusPending,
		ExpiresAt:       now.Add(ttl),
		SendCount:       1,
		LastSentAt:      now,
		InvitedByUserID: actor.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// 4. Persist
	if err := s.Store.Invites().CreateInvite(ctx, inv); err != nil {
		log.Error("failed to create invite", slog.String("invite_id", inv.ID), slog.Any("error", err))
		return IssuedInvite{}, err
	}
	s.Metrics.InviteTransition(metrics.InviteCreated)

	log.Info("invite created",
		slog.String("invite_id", inv.ID),
		slog.String("clinic_id", clinic.ID),
		slog.String("role", string(role)),
		slog.Time("expires_at", inv.ExpiresAt),
	)

	issued := IssuedInvite{Invite: inv, Token: token, InviteURL: s.inviteURL(token)}

	// 5. Notify
	if err := s.notify(ctx, inv, clinic, issued.InviteURL); err != nil {
		return issued, err
	}
	return issued, nil
}

// ResendInvite rotates the token of a pending invite in the actor's clinic
// and notifies again. The previous token stops working.
func (s *InviteService) ResendInvite(ctx context.Context, actor domain.User, inviteID string, expiresInDays *int) (IssuedInvite, error) {
	log := slogx.FromContext(ctx)

	inv, err := s.tenantInvite(ctx, actor, inviteID)
	if err != nil {
		return IssuedInvite{}, err
	}
	if inv.Status != domain.InviteStatusPending {
		return IssuedInvite{}, fmt.Errorf("%w: invite is %s", domain.ErrInvalidState, strings.ToLower(string(inv.Status)))
	}
	if inv.Role.Outranks(actor.Role) {
		return IssuedInvite{}, fmt.Errorf("%w: cannot resend a %s invite", domain.ErrForbidden, inv.Role)
	}

	ttl, err := s.ttl(expiresInDays)
	if err != nil {
		return IssuedInvite{}, err
	}

	clinic, err := s.Store.Clinics().GetClinicByID(ctx, inv.ClinicID)
	if err != nil {
		return IssuedInvite{}, err
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		log.Error("failed to generate invite token", slog.Any("error", err))
		return IssuedInvite{}, err
	}

	now := s.now()
	hash := cryptox.FingerprintToken(token)
	expiresAt := now.Add(ttl)
	if err := s.Store.Invites().RotateInviteToken(ctx, inv.ID, hash, expiresAt, now); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return IssuedInvite{}, fmt.Errorf("%w: invite is no longer pending", domain.ErrInvalidState)
		}
		log.Error("failed to rotate invite token", slog.String("invite_id", inv.ID), slog.Any("error", err))
		return IssuedInvite{}, err
	}
	s.Metrics.InviteTransition(metrics.InviteResent)

	inv.TokenHash = hash
	inv.ExpiresAt = expiresAt
	inv.SendCount++
	inv.LastSentAt = now
	inv.UpdatedAt = now

	log.Info("invite resent",
		slog.String("invite_id", inv.ID),
		slog.Int("send_count", inv.SendCount),
	)

	issued := IssuedInvite{Invite: inv, Token: token, InviteURL: s.inviteURL(token)}
	if err := s.notify(ctx, inv, clinic, issued.InviteURL); err != nil {
		return issued, err
	}
	return issued, nil
}

// RevokeInvite withdraws a pending invite in the actor's clinic.
func (s *InviteService) RevokeInvite(ctx context.Context, actor domain.User, inviteID string) error {
	log := slogx.FromContext(ctx)

	inv, err := s.tenantInvite(ctx, actor, inviteID)
	if err != nil {
		return err
	}
	if inv.Status != domain.InviteStatusPending {
		return fmt.Errorf("%w: invite is %s", domain.ErrInvalidState, strings.ToLower(string(inv.Status)))
	}

	if err := s.Store.Invites().MarkInviteRevoked(ctx, inv.ID, actor.ID, s.now()); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("%w: invite is no longer pending", domain.ErrInvalidState)
		}
		log.Error("failed to revoke invite", slog.String("invite_id", inv.ID), slog.Any("error", err))
		return err
	}
	s.Metrics.InviteTransition(metrics.InviteRevoked)

	log.Info("invite revoked", slog.String("invite_id", inv.ID), slog.String("revoked_by", actor.ID))
	return nil
}

// ListInvites returns the actor's clinic invites, newest first.
func (s *InviteService) ListInvites(ctx context.Context, actor domain.User) ([]domain.Invite, error) {
	return s.Store.Invites().ListInvitesByClinic(ctx, actor.ClinicID, InviteListLimit)
}

// AcceptInvite redeems a token without a logged-in identity. The user is
// upserted by the invite email and moved into the invite's clinic.
func (s *InviteService) AcceptInvite(ctx context.Context, token string) (AcceptedInvite, error) {
	log := slogx.FromContext(ctx)

	inv, err := s.redeemable(ctx, token)
	if err != nil {
		return AcceptedInvite{}, err
	}

	now := s.now()
	var user domain.User
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		user, err = s.upsertInvitee(ctx, tx, inv, "", now)
		if err != nil {
			return err
		}
		return s.markAccepted(ctx, tx, inv, user, now)
	})
	if err != nil {
		if !isDomainError(err) {
			log.Error("invite accept failed", slog.String("invite_id", inv.ID), slog.Any("error", err))
		}
		return AcceptedInvite{}, err
	}
	s.Metrics.InviteTransition(metrics.InviteAccepted)

	log.Info("invite accepted",
		slog.String("invite_id", inv.ID),
		slog.String("user_id", user.ID),
		slog.String("clinic_id", inv.ClinicID),
	)
	return AcceptedInvite{InviteID: inv.ID, UserID: user.ID, ClinicID: inv.ClinicID, Role: inv.Role}, nil
}

// AcceptInviteAuth redeems a token for a verified identity. The identity's
// email must match the invite, and neither the sub nor the invite email may
// already be bound to someone else.
func (s *InviteService) AcceptInviteAuth(ctx context.Context, id domain.Identity, token string) (AcceptedInvite, error) {
	log := slogx.FromContext(ctx)

	email := domain.NormalizeEmail(id.Email)
	if email == "" {
		return AcceptedInvite{}, fmt.Errorf("%w: token has no email claim", domain.ErrInvalidState)
	}
	if id.Sub == "" {
		return AcceptedInvite{}, fmt.Errorf("%w: token has no subject", domain.ErrUnauthorized)
	}

	inv, err := s.redeemable(ctx, token)
	if err != nil {
		return AcceptedInvite{}, err
	}

	if email != inv.Email {
		log.Warn("invite email mismatch", slog.String("invite_id", inv.ID))
		return AcceptedInvite{}, fmt.Errorf("%w: invite was issued to a different email", domain.ErrInvalidState)
	}

	now := s.now()
	var user domain.User
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// (a) this identity already owns a different account
		bySub, err := tx.Users().GetUserBySub(ctx, id.Sub)
		switch {
		case err == nil:
			if bySub.Email != inv.Email {
				log.Warn("identity bound to a different email",
					slog.String("invite_id", inv.ID),
					slog.String("user_id", bySub.ID),
				)
				return fmt.Errorf("%w: identity is linked to a different account", domain.ErrInvalidState)
			}
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		// (b) the invite email already belongs to another identity
		byEmail, err := tx.Users().GetUserByEmail(ctx, inv.Email)
		switch {
		case err == nil:
			if byEmail.CognitoSub != "" && byEmail.CognitoSub != id.Sub {
				log.Warn("invite email bound to a different identity",
					slog.String("invite_id", inv.ID),
					slog.String("user_id", byEmail.ID),
				)
				return fmt.Errorf("%w: email is linked to a different identity", domain.ErrInvalidState)
			}
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		user, err = s.upsertInvitee(ctx, tx, inv, id.Sub, now)
		if err != nil {
			return err
		}
		return s.markAccepted(ctx, tx, inv, user, now)
	})
	if err != nil {
		if !isDomainError(err) {
			log.Error("authenticated invite accept failed", slog.String("invite_id", inv.ID), slog.Any("error", err))
		}
		return AcceptedInvite{}, err
	}
	s.Metrics.InviteTransition(metrics.InviteAcceptedAuth)

	log.Info("invite accepted",
		slog.String("invite_id", inv.ID),
		slog.String("user_id", user.ID),
		slog.String("clinic_id", inv.ClinicID),
		slog.Bool("authenticated", true),
	)
	return AcceptedInvite{InviteID: inv.ID, UserID: user.ID, ClinicID: inv.ClinicID, Role: inv.Role}, nil
}

// redeemable looks an invite up by token and checks it can still be accepted.
func (s *InviteService) redeemable(ctx context.Context, token string) (domain.Invite, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Invite{}, fmt.Errorf("%w: missing invite token", domain.ErrInvalidToken)
	}

	inv, err := s.Store.Invites().GetInviteByTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invite{}, fmt.Errorf("%w: unknown invite token", domain.ErrInvalidToken)
		}
		return domain.Invite{}, err
	}

	if inv.Status != domain.InviteStatusPending {
		return domain.Invite{}, fmt.Errorf("%w: invite is %s", domain.ErrInvalidState, strings.ToLower(string(inv.Status)))
	}
	if inv.Expired(s.now()) {
		return domain.Invite{}, fmt.Errorf("%w: invite expired at %s", domain.ErrExpired, inv.ExpiresAt.Format(time.RFC3339))
	}
	return inv, nil
}

// upsertInvitee creates or updates the user for inv.Email and places it in
// the invite's clinic with the invite's role. A non-empty sub is linked.
func (s *InviteService) upsertInvitee(ctx context.Context, tx store.Tx, inv domain.Invite, sub string, now time.Time) (domain.User, error) {
	user, err := tx.Users().GetUserByEmail(ctx, inv.Email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	if errors.Is(err, store.ErrNotFound) {
		user = domain.User{
			ID:           idx.NewAt(now).String(),
			Email:        inv.Email,
			CognitoSub:   sub,
			ClinicID:     inv.ClinicID,
			Role:         inv.Role,
			PlatformRole: domain.PlatformRoleNone,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		created, err := tx.Users().CreateUserIfAbsent(ctx, user)
		if err != nil {
			return domain.User{}, err
		}
		if created {
			return user, nil
		}
		return domain.User{}, fmt.Errorf("%w: account was created concurrently", domain.ErrInvalidState)
	}

	user.ClinicID = inv.ClinicID
	user.Role = inv.Role
	user.IsActive = true
	user.DeactivatedAt = nil
	user.DeactivatedBy = ""
	if sub != "" {
		user.CognitoSub = sub
	}
	if err := tx.Users().UpdateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, fmt.Errorf("%w: identity is linked to a different account", domain.ErrInvalidState)
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *InviteService) markAccepted(ctx context.Context, tx store.Tx, inv domain.Invite, user domain.User, now time.Time) error {
	if err := tx.Invites().MarkInviteAccepted(ctx, inv.ID, user.ID, now); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("%w: invite is no longer pending", domain.ErrInvalidState)
		}
		return err
	}
	return nil
}

// tenantInvite loads an invite and hides other tenants' invites as missing.
func (s *InviteService) tenantInvite(ctx context.Context, actor domain.User, inviteID string) (domain.Invite, error) {
	inv, err := s.Store.Invites().GetInviteByID(ctx, inviteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invite{}, fmt.Errorf("%w: invite", domain.ErrNotFound)
		}
		return domain.Invite{}, err
	}
	if inv.ClinicID != actor.ClinicID {
		slogx.FromContext(ctx).Warn("cross-tenant invite access",
			slog.String("invite_id", inv.ID),
			slog.String("actor_id", actor.ID),
		)
		return domain.Invite{}, fmt.Errorf("%w: invite", domain.ErrNotFound)
	}
	return inv, nil
}

func (s *InviteService) notify(ctx context.Context, inv domain.Invite, clinic domain.Clinic, inviteURL string) error {
	if notify.IsNoop(s.Notifier) {
		return nil
	}

	err := s.Notifier.SendInvite(ctx, notify.InviteMessage{
		To:         inv.Email,
		InviteURL:  inviteURL,
		ClinicName: clinic.Name,
		Role:       string(inv.Role),
	})
	if err != nil {
		s.Metrics.NotifierFailed(s.Notifier.Kind())
		slogx.FromContext(ctx).Error("invite notification failed",
			slog.String("invite_id", inv.ID),
			slog.String("notifier", s.Notifier.Kind()),
			slog.Any("error", err),
		)
		return fmt.Errorf("%w: invite saved but email could not be sent", domain.ErrUpstreamUnavailable)
	}
	return nil
}

func (s *InviteService) ttl(days *int) (time.Duration, error) {
	d := s.DefaultTTLDays
	if d == 0 {
		d = domain.InviteDefaultTTLDays
	}
	if days != nil {
		d = *days
	}
	if d < domain.InviteMinTTLDays || d > domain.InviteMaxTTLDays {
		return 0, fmt.Errorf("%w: expiresInDays must be between %d and %d",
			domain.ErrInvalidState, domain.InviteMinTTLDays, domain.InviteMaxTTLDays)
	}
	return time.Duration(d) * 24 * time.Hour, nil
}

func (s *InviteService) inviteURL(token string) string {
	base := strings.TrimRight(strings.TrimSpace(s.WebAppBaseURL), "/")
	if base == "" {
		return token
	}
	return base + "/api/auth/invite?token=" + url.QueryEscape(token)
}

func (s *InviteService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
