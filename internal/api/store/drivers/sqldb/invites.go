package sqldb

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/clinic/internal/api/domain"
	"github.com/aussiebroadwan/clinic/internal/api/store"
	"github.com/jmoiron/sqlx"
)

type invitesRepo struct {
	q sqlx.ExtContext
}

type inviteRow struct {
	ID               string         `db:"id"`
	ClinicID         string         `db:"clinic_id"`
	Email            string         `db:"email"`
	Role             string         `db:"role"`
	TokenHash        string         `db:"token_hash"`
	Status           string         `db:"status"`
	ExpiresAt        time.Time      `db:"expires_at"`
	SendCount        int            `db:"send_count"`
	LastSentAt       time.Time      `db:"last_sent_at"`
	InvitedByUserID  string         `db:"invited_by_user_id"`
	AcceptedByUserID sql.NullString `db:"accepted_by_user_id"`
	AcceptedAt       sql.NullTime   `db:"accepted_at"`
	RevokedByUserID  sql.NullString `db:"revoked_by_user_id"`
	RevokedAt        sql.NullTime   `db:"revoked_at"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

const inviteColumns = `id, clinic_id, email, role, token_hash, status, expires_at, send_count, last_sent_at,
	invited_by_user_id, accepted_by_user_id, accepted_at, revoked_by_user_id, revoked_at, created_at, updated_at`

func (r *invitesRepo) CreateInvite(ctx context.Context, inv domain.Invite) error {
	now := time.Now().UTC()
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	if inv.UpdatedAt.IsZero() {
		inv.UpdatedAt = inv.CreatedAt
	}
	if inv.LastSentAt.IsZero() {
		inv.LastSentAt = inv.CreatedAt
	}
	if inv.SendCount == 0 {
		inv.SendCount = 1
	}
	if inv.Status == "" {
		inv.Status = domain.InviteStatusPending
	}

	_, err := r.q.ExecContext(ctx, r.q.Rebind(`
		INSERT INTO invites (`+inviteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		inv.ID,
		inv.ClinicID,
		domain.NormalizeEmail(inv.Email),
		string(inv.Role),
		inv.TokenHash,
		string(inv.Status),
		inv.ExpiresAt.UTC(),
		inv.SendCount,
		inv.LastSentAt.UTC(),
		inv.InvitedByUserID,
		mapStringNull(inv.AcceptedByUserID),
		mapOptionalTime(inv.AcceptedAt),
		mapStringNull(inv.RevokedByUserID),
		mapOptionalTime(inv.RevokedAt),
		inv.CreatedAt.UTC(),
		inv.UpdatedAt.UTC(),
	)
	return mapWriteError(err)
}

func (r *invitesRepo) GetInviteByID(ctx context.Context, id string) (domain.Invite, error) {
	var row inviteRow
	err := sqlx.GetContext(ctx, r.q, &row, r.q.Rebind(`SELECT `+inviteColumns+` FROM invites WHERE id = ?`), id)
	if err != nil {
		return domain.Invite{}, mapNotFound(err)
	}
	return mapInvite(row), nil
}

func (r *invitesRepo) GetInviteByTokenHash(ctx context.Context, hash string) (domain.Invite, error) {
	var row inviteRow
	err := sqlx.GetContext(ctx, r.q, &row, r.q.Rebind(`SELECT `+inviteColumns+` FROM invites WHERE token_hash = ?`), hash)
	if err != nil {
		return domain.Invite{}, mapNotFound(err)
	}
	return mapInvite(row), nil
}

func (r *invitesRepo) ListInvitesByClinic(ctx context.Context, clinicID string, limit int) ([]domain.Invite, error) {
	var rows []inviteRow
	err := sqlx.SelectContext(ctx, r.q, &rows, r.q.Rebind(`
		SELECT `+inviteColumns+` FROM invites
		WHERE clinic_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`),
		clinicID, limit,
	)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Invite, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapInvite(row))
	}
	return out, nil
}

func (r *invitesRepo) RotateInviteToken(ctx context.Context, id, tokenHash string, expiresAt, sentAt time.Time) error {
	res, err := r.q.ExecContext(ctx, r.q.Rebind(`
		UPDATE invites
		SET token_hash = ?, expires_at = ?, send_count = send_count + 1, last_sent_at = ?, updated_at = ?
		WHERE id = ? AND status = 'PENDING'`),
		tokenHash, expiresAt.UTC(), sentAt.UTC(), sentAt.UTC(), id,
	)
	if err != nil {
		return mapWriteError(err)
	}
	return expectOne(res, store.ErrConflict)
}

func (r *invitesRepo) MarkInviteAccepted(ctx context.Context, id, userID string, at time.Time) error {
	res, err := r.q.ExecContext(ctx, r.q.Rebind(`
		UPDATE invites
		SET status = 'ACCEPTED', accepted_by_user_id = ?, accepted_at = ?, updated_at = ?
		WHERE id = ? AND status = 'PENDING'`),
		userID, at.UTC(), at.UTC(), id,
	)
	if err != nil {
		return err
	}
	return expectOne(res, store.ErrConflict)
}

func (r *invitesRepo) MarkInviteRevoked(ctx context.Context, id, userID string, at time.Time) error {
	res, err := r.q.ExecContext(ctx, r.q.Rebind(`
		UPDATE invites
		SET status = 'REVOKED', revoked_by_user_id = ?, revoked_at = ?, updated_at = ?
		WHERE id = ? AND status = 'PENDING'`),
		userID, at.UTC(), at.UTC(), id,
	)
	if err != nil {
		return err
	}
	return expectOne(res, store.ErrConflict)
}

func (r *invitesRepo) DeleteInvitesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, r.q.Rebind(`
		DELETE FROM invites
		WHERE (status = 'REVOKED' AND updated_at < ?)
		   OR (status = 'PENDING' AND expires_at < ?)`),
		cutoff.UTC(), cutoff.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func mapInvite(row inviteRow) domain.Invite {
	return domain.Invite{
		ID:               row.ID,
		ClinicID:         row.ClinicID,
		Email:            row.Email,
		Role:             domain.Role(row.Role),
		TokenHash:        row.TokenHash,
		Status:           domain.InviteStatus(row.Status),
		ExpiresAt:        row.ExpiresAt.UTC(),
		SendCount:        row.SendCount,
		LastSentAt:       row.LastSentAt.UTC(),
		InvitedByUserID:  row.InvitedByUserID,
		AcceptedByUserID: mapNullString(row.AcceptedByUserID),
		AcceptedAt:       mapNullTimePtr(row.AcceptedAt),
		RevokedByUserID:  mapNullString(row.RevokedByUserID),
		RevokedAt:        mapNullTimePtr(row.RevokedAt),
		CreatedAt:        row.CreatedAt.UTC(),
		UpdatedAt:        row.UpdatedAt.UTC(),
	}
}
