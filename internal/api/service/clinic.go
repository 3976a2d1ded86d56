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

// ClinicService is the platform-level tenant admin.
type ClinicService struct {
	Store store.Store
	Now   func() time.Time
}

func (s *ClinicService) ListClinics(ctx context.Context) ([]domain.Clinic, error) {
	return s.Store.Clinics().ListClinics(ctx)
}

func (s *ClinicService) CreateClinic(ctx context.Context, name string) (domain.Clinic, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Clinic{}, fmt.Errorf("%w: name is required", domain.ErrInvalidState)
	}

	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	c := domain.Clinic{ID: idx.NewAt(now).String(), Name: name, CreatedAt: now, UpdatedAt: now}

	created, err := s.Store.Clinics().CreateClinicIfAbsent(ctx, c)
	if err != nil {
		return domain.Clinic{}, err
	}
	if !created {
		return domain.Clinic{}, fmt.Errorf("%w: clinic %q already exists", domain.ErrInvalidState, name)
	}

	slogx.FromContext(ctx).Info("clinic created", slog.String("clinic_id", c.ID))
	return c, nil
}

// DeleteClinic removes an empty clinic. Clinics still referenced by users
// or invites are kept.
func (s *ClinicService) DeleteClinic(ctx context.Context, id string) error {
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Clinics().GetClinicByID(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: clinic", domain.ErrNotFound)
			}
			return err
		}

		refs, err := tx.Clinics().CountClinicReferences(ctx, id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return fmt.Errorf("%w: clinic still has %d users or invites", domain.ErrInvalidState, refs)
		}

		return tx.Clinics().DeleteClinic(ctx, id)
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("clinic deleted", slog.String("clinic_id", id))
	return nil
}
