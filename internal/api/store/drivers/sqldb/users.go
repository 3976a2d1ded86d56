package sqldb

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/clinic/internal/api/domain"
	"github.com/aussiebroadwan/clinic/internal/api/store"
	"github.com/jmoiron/sqlx"
)

type usersRepo struct {
	q sqlx.ExtContext
}

type userRow struct {
	ID           string         `db:"id"`
	Email        string         `db:"email"`
	CognitoSub   sql.NullString `db:"cognito_sub"`
	ClinicID     string         `db:"clinic_id"`
	Role         string         `db:"role"`
	PlatformRole string         `db:"platform_role"`
	IsActive     bool           `db:"is_active"`
	LastActiveAt sql.NullTime   `db:"last_active_at"`

	DeactivatedAt       sql.NullTime   `db:"deactivated_at"`
	DeactivatedByUserID sql.NullString `db:"deactivated_by_user_id"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

const userColumns = `id, email, cognito_sub, clinic_id, role, platform_role, is_active, last_active_at, deactivated_at, deactivated_by_user_id, created_at, updated_at`

func (r *usersRepo) get(ctx context.Context, where string, arg any) (domain.User, error) {
	var row userRow
	err := sqlx.GetContext(ctx, r.q, &row, r.q.Rebind(`SELECT `+userColumns+` FROM users WHERE `+where+` = ?`), arg)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.get(ctx, "id", id)
}

func (r *usersRepo) GetUserBySub(ctx context.Context, sub string) (domain.User, error) {
	if sub == "" {
		return domain.User{}, store.ErrNotFound
	}
	return r.get(ctx, "cognito_sub", sub)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.get(ctx, "email", domain.NormalizeEmail(email))
}

func (r *usersRepo) CreateUserIfAbsent(ctx context.Context, u domain.User) (bool, error) {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	if u.PlatformRole == "" {
		u.PlatformRole = domain.PlatformRoleNone
	}

	res, err := r.q.ExecContext(ctx, r.q.Rebind(`
		INSERT INTO users (id, email, cognito_sub, clinic_id, role, platform_role, is_active, last_active_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`),
		u.ID,
		domain.NormalizeEmail(u.Email),
		mapStringNull(u.CognitoSub),
		u.ClinicID,
		string(u.Role),
		string(u.PlatformRole),
		u.IsActive,
		mapOptionalTime(u.LastActiveAt),
		u.CreatedAt.UTC(),
		u.UpdatedAt.UTC(),
	)
	if err != nil {
		return false, mapWriteError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *usersRepo) UpdateUser(ctx context.Context, u domain.User) error {
	res, err := r.q.ExecContext(ctx, r.q.Rebind(`
		UPDATE users
		SET email = ?, cognito_sub = ?, clinic_id = ?, role = ?, platform_role = ?, is_active = ?,
			deactivated_at = ?, deactivated_by_user_id = ?, updated_at = ?
		WHERE id = ?`),
		domain.NormalizeEmail(u.Email),
		mapStringNull(u.CognitoSub),
		u.ClinicID,
		string(u.Role),
		string(u.PlatformRole),
		u.IsActive,
		mapOptionalTime(u.DeactivatedAt),
		mapStringNull(u.DeactivatedBy),
		time.Now().UTC(),
		u.ID,
	)
	if err != nil {
		return mapWriteError(err)
	}
	return expectOne(res, store.ErrNotFound)
}

func (r *usersRepo) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	res, err := r.q.ExecContext(ctx, r.q.Rebind(`UPDATE users SET last_active_at = ? WHERE id = ?`), at.UTC(), id)
	if err != nil {
		return err
	}
	return expectOne(res, store.ErrNotFound)
}

func (r *usersRepo) ListUsersByClinic(ctx context.Context, clinicID string, limit int) ([]domain.User, error) {
	var rows []userRow
	err := sqlx.SelectContext(ctx, r.q, &rows, r.q.Rebind(`
		SELECT `+userColumns+` FROM users
		WHERE clinic_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`),
		clinicID, limit,
	)
	if err != nil {
		return nil, err
	}

	out := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapUser(row))
	}
	return out, nil
}

func mapUser(row userRow) domain.User {
	return domain.User{
		ID:           row.ID,
		Email:        row.Email,
		CognitoSub:   mapNullString(row.CognitoSub),
		ClinicID:     row.ClinicID,
		Role:         domain.Role(row.Role),
		PlatformRole: domain.PlatformRole(row.PlatformRole),
		IsActive:     row.IsActive,
		LastActiveAt: mapNullTimePtr(row.LastActiveAt),

		DeactivatedAt: mapNullTimePtr(row.DeactivatedAt),
		DeactivatedBy: mapNullString(row.DeactivatedByUserID),

		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}
