package sqldb

import (
	"context"
	"time"

	"github.com/aussiebroadwan/clinic/internal/api/domain"
	"github.com/aussiebroadwan/clinic/internal/api/store"
	"github.com/jmoiron/sqlx"
)

type clinicsRepo struct {
	q sqlx.ExtContext
}

type clinicRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

const clinicColumns = `id, name, created_at, updated_at`

func (r *clinicsRepo) GetClinicByID(ctx context.Context, id string) (domain.Clinic, error) {
	var row clinicRow
	err := sqlx.GetContext(ctx, r.q, &row, r.q.Rebind(`SELECT `+clinicColumns+` FROM clinics WHERE id = ?`), id)
	if err != nil {
		return domain.Clinic{}, mapNotFound(err)
	}
	return mapClinic(row), nil
}

func (r *clinicsRepo) GetClinicByName(ctx context.Context, name string) (domain.Clinic, error) {
	var row clinicRow
	err := sqlx.GetContext(ctx, r.q, &row, r.q.Rebind(`SELECT `+clinicColumns+` FROM clinics WHERE name = ?`), name)
	if err != nil {
		return domain.Clinic{}, mapNotFound(err)
	}
	return mapClinic(row), nil
}

func (r *clinicsRepo) CreateClinicIfAbsent(ctx context.Context, c domain.Clinic) (bool, error) {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}

	res, err := r.q.ExecContext(ctx, r.q.Rebind(`
		INSERT INTO clinics (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING`),
		c.ID, c.Name, c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
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

func (r *clinicsRepo) ListClinics(ctx context.Context) ([]domain.Clinic, error) {
	var rows []clinicRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, `SELECT `+clinicColumns+` FROM clinics ORDER BY name`); err != nil {
		return nil, err
	}

	out := make([]domain.Clinic, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapClinic(row))
	}
	return out, nil
}

func (r *clinicsRepo) CountClinicReferences(ctx context.Context, id string) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.q, &n, r.q.Rebind(`
		SELECT
			(SELECT COUNT(*) FROM users WHERE clinic_id = ?) +
			(SELECT COUNT(*) FROM invites WHERE clinic_id = ?)`),
		id, id,
	)
	return n, err
}

func (r *clinicsRepo) DeleteClinic(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, r.q.Rebind(`DELETE FROM clinics WHERE id = ?`), id)
	if err != nil {
		return err
	}
	return expectOne(res, store.ErrNotFound)
}

func mapClinic(row clinicRow) domain.Clinic {
	return domain.Clinic{
		ID:        row.ID,
		Name:      row.Name,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}
