package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/clinic/internal/api/domain"
	"github.com/aussiebroadwan/clinic/internal/api/store"
	"github.com/aussiebroadwan/clinic/internal/api/store/drivers/sqldb"
	"github.com/aussiebroadwan/clinic/pkg/idx"
	"github.com/aussiebroadwan/clinic/pkg/notify"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	s, err := sqldb.NewSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingNotifier captures messages and optionally fails.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.InviteMessage
	err  error
}

func (n *recordingNotifier) SendInvite(_ context.Context, msg notify.InviteMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) Kind() string { return "recording" }

func (n *recordingNotifier) messages() []notify.InviteMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.InviteMessage(nil), n.sent...)
}

var errSMTPDown = errors.New("smtp: connection refused")

func createClinic(t *testing.T, s store.Store, name string) domain.Clinic {
	t.Helper()
	c := domain.Clinic{ID: idx.New().String(), Name: name}
	created, err := s.Clinics().CreateClinicIfAbsent(context.Background(), c)
	require.NoError(t, err)
	require.True(t, created)
	return c
}

func createUser(t *testing.T, s store.Store, clinicID, email, sub string, role domain.Role) domain.User {
	t.Helper()
	u := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		CognitoSub:   sub,
		ClinicID:     clinicID,
		Role:         role,
		PlatformRole: domain.PlatformRoleNone,
		IsActive:     true,
	}
	created, err := s.Users().CreateUserIfAbsent(context.Background(), u)
	require.NoError(t, err)
	require.True(t, created)

	got, err := s.Users().GetUserByID(context.Background(), u.ID)
	require.NoError(t, err)
	return got
}

func ptr[T any](v T) *T { return &v }
