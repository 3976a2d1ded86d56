package sqldb

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/clinic/internal/api/domain"
	"github.com/aussiebroadwan/clinic/internal/api/store"
	"github.com/aussiebroadwan/clinic/pkg/idx"
	"github.com/stretchr/testify/require"
)

/*
 * Behaviour shared by every dialect. Each case seeds its own rows with fresh
 * ids so the suite can run against one long-lived database.
 */

func runStoreSuite(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("clinic create is idempotent by id and name", func(t *testing.T) {
		c := seedClinic(t, s)

		created, err := s.Clinics().CreateClinicIfAbsent(ctx, c)
		require.NoError(t, err)
		require.False(t, created)

		created, err = s.Clinics().CreateClinicIfAbsent(ctx, domain.Clinic{ID: idx.New().String(), Name: c.Name})
		require.NoError(t, err)
		require.False(t, created)

		got, err := s.Clinics().GetClinicByName(ctx, c.Name)
		require.NoError(t, err)
		require.Equal(t, c.ID, got.ID)
		require.Equal(t, time.UTC, got.CreatedAt.Location())
	})

	t.Run("missing rows map to ErrNotFound", func(t *testing.T) {
		_, err := s.Clinics().GetClinicByID(ctx, idx.New().String())
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = s.Users().GetUserBySub(ctx, "nobody")
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = s.Users().GetUserBySub(ctx, "")
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = s.Invites().GetInviteByTokenHash(ctx, "nope")
		require.ErrorIs(t, err, store.ErrNotFound)

		err = s.Clinics().DeleteClinic(ctx, idx.New().String())
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("users round trip and match by normalized email", func(t *testing.T) {
		c := seedClinic(t, s)
		u := seedUser(t, s, c.ID, "sub-"+idx.New().String())

		got, err := s.Users().GetUserByEmail(ctx, "  "+u.Email+" ")
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
		require.Equal(t, domain.RoleAdmin, got.Role)
		require.Equal(t, domain.PlatformRoleNone, got.PlatformRole)
		require.True(t, got.IsActive)
		require.Nil(t, got.LastActiveAt)

		bySub, err := s.Users().GetUserBySub(ctx, u.CognitoSub)
		require.NoError(t, err)
		require.Equal(t, u.ID, bySub.ID)
	})

	t.Run("user create skips taken email or sub", func(t *testing.T) {
		c := seedClinic(t, s)
		u := seedUser(t, s, c.ID, "sub-"+idx.New().String())

		dup := u
		dup.ID = idx.New().String()
		dup.CognitoSub = "other-" + idx.New().String()
		created, err := s.Users().CreateUserIfAbsent(ctx, dup)
		require.NoError(t, err)
		require.False(t, created)

		dup.Email = idx.New().String() + "@example.com"
		dup.CognitoSub = u.CognitoSub
		created, err = s.Users().CreateUserIfAbsent(ctx, dup)
		require.NoError(t, err)
		require.False(t, created)
	})

	t.Run("users without a sub can coexist", func(t *testing.T) {
		c := seedClinic(t, s)
		a := seedUser(t, s, c.ID, "")
		b := seedUser(t, s, c.ID, "")
		require.NotEqual(t, a.ID, b.ID)
	})

	t.Run("update user links sub and rejects duplicates", func(t *testing.T) {
		c := seedClinic(t, s)
		a := seedUser(t, s, c.ID, "")
		b := seedUser(t, s, c.ID, "sub-"+idx.New().String())

		a.CognitoSub = "linked-" + idx.New().String()
		a.PlatformRole = domain.PlatformRoleSuperAdmin
		require.NoError(t, s.Users().UpdateUser(ctx, a))

		got, err := s.Users().GetUserBySub(ctx, a.CognitoSub)
		require.NoError(t, err)
		require.Equal(t, a.ID, got.ID)
		require.Equal(t, domain.PlatformRoleSuperAdmin, got.PlatformRole)

		a.CognitoSub = b.CognitoSub
		err = s.Users().UpdateUser(ctx, a)
		require.ErrorIs(t, err, store.ErrAlreadyExists)

		missing := a
		missing.ID = idx.New().String()
		missing.Email = idx.New().String() + "@example.com"
		missing.CognitoSub = ""
		require.ErrorIs(t, s.Users().UpdateUser(ctx, missing), store.ErrNotFound)
	})

	t.Run("touch last active", func(t *testing.T) {
		c := seedClinic(t, s)
		u := seedUser(t, s, c.ID, "")

		at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
		require.NoError(t, s.Users().TouchLastActive(ctx, u.ID, at))

		got, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LastActiveAt)
		require.True(t, at.Equal(*got.LastActiveAt))
	})

	t.Run("list users is clinic scoped and newest first", func(t *testing.T) {
		c := seedClinic(t, s)
		other := seedClinic(t, s)

		base := time.Now().UTC().Truncate(time.Second)
		var ids []string
		for i := range 3 {
			u := newUser(c.ID, "")
			u.CreatedAt = base.Add(time.Duration(i) * time.Minute)
			created, err := s.Users().CreateUserIfAbsent(ctx, u)
			require.NoError(t, err)
			require.True(t, created)
			ids = append(ids, u.ID)
		}
		seedUser(t, s, other.ID, "")

		users, err := s.Users().ListUsersByClinic(ctx, c.ID, 10)
		require.NoError(t, err)
		require.Len(t, users, 3)
		require.Equal(t, ids[2], users[0].ID)
		require.Equal(t, ids[0], users[2].ID)

		users, err = s.Users().ListUsersByClinic(ctx, c.ID, 2)
		require.NoError(t, err)
		require.Len(t, users, 2)
	})

	t.Run("invite lifecycle transitions are conditional", func(t *testing.T) {
		c := seedClinic(t, s)
		inviter := seedUser(t, s, c.ID, "")
		accepter := seedUser(t, s, c.ID, "")
		inv := seedInvite(t, s, c.ID, inviter.ID)

		got, err := s.Invites().GetInviteByTokenHash(ctx, inv.TokenHash)
		require.NoError(t, err)
		require.Equal(t, inv.ID, got.ID)
		require.Equal(t, domain.InviteStatusPending, got.Status)
		require.Equal(t, 1, got.SendCount)
		require.Empty(t, got.AcceptedByUserID)

		sentAt := time.Now().UTC().Truncate(time.Second)
		newHash := "hash-" + idx.New().String()
		require.NoError(t, s.Invites().RotateInviteToken(ctx, inv.ID, newHash, sentAt.Add(48*time.Hour), sentAt))

		_, err = s.Invites().GetInviteByTokenHash(ctx, inv.TokenHash)
		require.ErrorIs(t, err, store.ErrNotFound)

		got, err = s.Invites().GetInviteByTokenHash(ctx, newHash)
		require.NoError(t, err)
		require.Equal(t, 2, got.SendCount)
		require.True(t, sentAt.Equal(got.LastSentAt))

		require.NoError(t, s.Invites().MarkInviteAccepted(ctx, inv.ID, accepter.ID, sentAt))
		require.ErrorIs(t, s.Invites().MarkInviteAccepted(ctx, inv.ID, accepter.ID, sentAt), store.ErrConflict)
		require.ErrorIs(t, s.Invites().MarkInviteRevoked(ctx, inv.ID, inviter.ID, sentAt), store.ErrConflict)
		require.ErrorIs(t, s.Invites().RotateInviteToken(ctx, inv.ID, "x-"+idx.New().String(), sentAt, sentAt), store.ErrConflict)

		got, err = s.Invites().GetInviteByID(ctx, inv.ID)
		require.NoError(t, err)
		require.Equal(t, domain.InviteStatusAccepted, got.Status)
		require.Equal(t, accepter.ID, got.AcceptedByUserID)
		require.NotNil(t, got.AcceptedAt)
	})

	t.Run("revoke records the actor", func(t *testing.T) {
		c := seedClinic(t, s)
		inviter := seedUser(t, s, c.ID, "")
		inv := seedInvite(t, s, c.ID, inviter.ID)

		now := time.Now().UTC()
		require.NoError(t, s.Invites().MarkInviteRevoked(ctx, inv.ID, inviter.ID, now))

		got, err := s.Invites().GetInviteByID(ctx, inv.ID)
		require.NoError(t, err)
		require.Equal(t, domain.InviteStatusRevoked, got.Status)
		require.Equal(t, inviter.ID, got.RevokedByUserID)
		require.NotNil(t, got.RevokedAt)
	})

	t.Run("duplicate token hash is rejected", func(t *testing.T) {
		c := seedClinic(t, s)
		inviter := seedUser(t, s, c.ID, "")
		inv := seedInvite(t, s, c.ID, inviter.ID)

		dup := inv
		dup.ID = idx.New().String()
		require.ErrorIs(t, s.Invites().CreateInvite(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("purge removes revoked and long expired invites", func(t *testing.T) {
		c := seedClinic(t, s)
		inviter := seedUser(t, s, c.ID, "")

		old := time.Now().UTC().Add(-90 * 24 * time.Hour)
		expired := newInvite(c.ID, inviter.ID)
		expired.CreatedAt = old
		expired.ExpiresAt = old.Add(time.Hour)
		require.NoError(t, s.Invites().CreateInvite(ctx, expired))

		settled := newInvite(c.ID, inviter.ID)
		settled.CreatedAt = old
		require.NoError(t, s.Invites().CreateInvite(ctx, settled))
		require.NoError(t, s.Invites().MarkInviteRevoked(ctx, settled.ID, inviter.ID, old))

		accepted := newInvite(c.ID, inviter.ID)
		accepted.CreatedAt = old
		require.NoError(t, s.Invites().CreateInvite(ctx, accepted))
		require.NoError(t, s.Invites().MarkInviteAccepted(ctx, accepted.ID, inviter.ID, old))

		live := seedInvite(t, s, c.ID, inviter.ID)

		n, err := s.Invites().DeleteInvitesBefore(ctx, time.Now().UTC().Add(-30*24*time.Hour))
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, int64(2))

		_, err = s.Invites().GetInviteByID(ctx, expired.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.Invites().GetInviteByID(ctx, settled.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.Invites().GetInviteByID(ctx, live.ID)
		require.NoError(t, err)
		_, err = s.Invites().GetInviteByID(ctx, accepted.ID)
		require.NoError(t, err)
	})

	t.Run("list invites is clinic scoped", func(t *testing.T) {
		c := seedClinic(t, s)
		other := seedClinic(t, s)
		inviter := seedUser(t, s, c.ID, "")
		otherInviter := seedUser(t, s, other.ID, "")

		seedInvite(t, s, c.ID, inviter.ID)
		seedInvite(t, s, c.ID, inviter.ID)
		seedInvite(t, s, other.ID, otherInviter.ID)

		invites, err := s.Invites().ListInvitesByClinic(ctx, c.ID, 50)
		require.NoError(t, err)
		require.Len(t, invites, 2)
		for _, inv := range invites {
			require.Equal(t, c.ID, inv.ClinicID)
		}
	})

	t.Run("count references and delete an empty clinic", func(t *testing.T) {
		c := seedClinic(t, s)
		n, err := s.Clinics().CountClinicReferences(ctx, c.ID)
		require.NoError(t, err)
		require.Zero(t, n)

		u := seedUser(t, s, c.ID, "")
		seedInvite(t, s, c.ID, u.ID)
		n, err = s.Clinics().CountClinicReferences(ctx, c.ID)
		require.NoError(t, err)
		require.Equal(t, 2, n)

		empty := seedClinic(t, s)
		require.NoError(t, s.Clinics().DeleteClinic(ctx, empty.ID))
		_, err = s.Clinics().GetClinicByID(ctx, empty.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("rolled back transaction leaves no rows", func(t *testing.T) {
		c := newClinic()
		err := s.WithTx(ctx, func(tx store.Tx) error {
			created, err := tx.Clinics().CreateClinicIfAbsent(ctx, c)
			require.NoError(t, err)
			require.True(t, created)
			return store.ErrConflict
		})
		require.ErrorIs(t, err, store.ErrConflict)

		_, err = s.Clinics().GetClinicByID(ctx, c.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("committed transaction is visible and cannot nest", func(t *testing.T) {
		c := newClinic()
		err := s.WithTx(ctx, func(tx store.Tx) error {
			_, nestErr := tx.Tx(ctx)
			require.Error(t, nestErr)

			_, err := tx.Clinics().CreateClinicIfAbsent(ctx, c)
			return err
		})
		require.NoError(t, err)

		got, err := s.Clinics().GetClinicByID(ctx, c.ID)
		require.NoError(t, err)
		require.Equal(t, c.Name, got.Name)
	})
}

func newClinic() domain.Clinic {
	id := idx.New().String()
	return domain.Clinic{ID: id, Name: "Clinic " + id}
}

func seedClinic(t *testing.T, s store.Store) domain.Clinic {
	t.Helper()
	c := newClinic()
	created, err := s.Clinics().CreateClinicIfAbsent(context.Background(), c)
	require.NoError(t, err)
	require.True(t, created)
	return c
}

func newUser(clinicID, sub string) domain.User {
	id := idx.New().String()
	return domain.User{
		ID:           id,
		Email:        "User-" + id + "@Example.com",
		CognitoSub:   sub,
		ClinicID:     clinicID,
		Role:         domain.RoleAdmin,
		PlatformRole: domain.PlatformRoleNone,
		IsActive:     true,
	}
}

func seedUser(t *testing.T, s store.Store, clinicID, sub string) domain.User {
	t.Helper()
	u := newUser(clinicID, sub)
	created, err := s.Users().CreateUserIfAbsent(context.Background(), u)
	require.NoError(t, err)
	require.True(t, created)
	u.Email = domain.NormalizeEmail(u.Email)
	return u
}

func newInvite(clinicID, inviterID string) domain.Invite {
	id := idx.New().String()
	return domain.Invite{
		ID:              id,
		ClinicID:        clinicID,
		Email:           "invitee-" + id + "@example.com",
		Role:            domain.RoleStaff,
		TokenHash:       "hash-" + id,
		ExpiresAt:       time.Now().UTC().Add(7 * 24 * time.Hour),
		InvitedByUserID: inviterID,
	}
}

func seedInvite(t *testing.T, s store.Store, clinicID, inviterID string) domain.Invite {
	t.Helper()
	inv := newInvite(clinicID, inviterID)
	require.NoError(t, s.Invites().CreateInvite(context.Background(), inv))
	return inv
}
