package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/clinic/internal/api/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict means a conditional update matched no row because another
	// writer moved the record first.
	ErrConflict = errors.New("store: conflict")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Sub-repositories keep concerns tidy and stop callers from
// opening a transaction inside a transaction.
type Store interface {
	Clinics() Clinics
	Users() Users
	Invites() Invites

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. Every statement
	// inside fn must go through tx.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Clinics interface {
	GetClinicByID(ctx context.Context, id string) (domain.Clinic, error)
	GetClinicByName(ctx context.Context, name string) (domain.Clinic, error)

	// CreateClinicIfAbsent inserts c unless its id or name already exists.
	// It reports whether a row was written.
	CreateClinicIfAbsent(ctx context.Context, c domain.Clinic) (bool, error)

	// ListClinics returns every clinic ordered by name.
	ListClinics(ctx context.Context) ([]domain.Clinic, error)

	// CountClinicReferences counts users and invites that belong to the clinic.
	CountClinicReferences(ctx context.Context, id string) (int, error)

	DeleteClinic(ctx context.Context, id string) error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserBySub(ctx context.Context, sub string) (domain.User, error)

	// GetUserByEmail matches the normalized address.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUserIfAbsent inserts u unless its email or sub is already taken.
	// It reports whether a row was written.
	CreateUserIfAbsent(ctx context.Context, u domain.User) (bool, error)

	// UpdateUser writes email, sub, clinic, roles, the active flag and the
	// removal marker, and bumps updated_at.
	UpdateUser(ctx context.Context, u domain.User) error

	TouchLastActive(ctx context.Context, id string, at time.Time) error

	// ListUsersByClinic returns a clinic's users, newest first.
	ListUsersByClinic(ctx context.Context, clinicID string, limit int) ([]domain.User, error)
}

type Invites interface {
	CreateInvite(ctx context.Context, inv domain.Invite) error
	GetInviteByID(ctx context.Context, id string) (domain.Invite, error)
	GetInviteByTokenHash(ctx context.Context, hash string) (domain.Invite, error)

	// ListInvitesByClinic returns a clinic's invites, newest first.
	ListInvitesByClinic(ctx context.Context, clinicID string, limit int) ([]domain.Invite, error)

	// RotateInviteToken swaps the token hash and expiry of a PENDING invite,
	// increments send_count and sets last_sent_at. ErrConflict when the
	// invite is no longer pending.
	RotateInviteToken(ctx context.Context, id, tokenHash string, expiresAt, sentAt time.Time) error

	// MarkInviteAccepted moves a PENDING invite to ACCEPTED. ErrConflict when
	// the invite is no longer pending.
	MarkInviteAccepted(ctx context.Context, id, userID string, at time.Time) error

	// MarkInviteRevoked moves a PENDING invite to REVOKED. ErrConflict when
	// the invite is no longer pending.
	MarkInviteRevoked(ctx context.Context, id, userID string, at time.Time) error

	// DeleteInvitesBefore removes revoked invites updated before cutoff and
	// pending invites that expired before cutoff. Accepted invites are kept so
	// a replayed token still resolves to an invite that was already used.
	DeleteInvitesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
