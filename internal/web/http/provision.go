package http

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/clinic/pkg/clinicsdk"
	"github.com/aussiebroadwan/clinic/pkg/metrics"
	"github.com/aussiebroadwan/clinic/pkg/slogx"
)

// Provisioner creates the local user for a fresh session and redeems a
// pending invite.
type Provisioner interface {
	Provision(ctx context.Context, token, inviteToken string) error
}

// APIProvisioner provisions through the clinic API.
type APIProvisioner struct {
	Client  *clinicsdk.Client
	Metrics *metrics.Metrics
}

// Provision calls ensure-user and then, when an invite is pending,
// accept-auth. Both steps run even if the first fails.
func (p *APIProvisioner) Provision(ctx context.Context, token, inviteToken string) error {
	log := slogx.FromContext(ctx)
	sess := p.Client.Session(token)

	var errs []error

	_, err := sess.EnsureUser(ctx)
	p.Metrics.Provision(metrics.StepEnsureUser, err)
	if err != nil {
		log.Warn("ensure-user failed", "error", err)
		errs = append(errs, fmt.Errorf("ensure user: %w", err))
	}

	if inviteToken != "" {
		res, err := sess.AcceptInviteAuth(ctx, clinicsdk.AcceptInviteRequest{Token: inviteToken})
		p.Metrics.Provision(metrics.StepAcceptInvite, err)
		if err != nil {
			log.Warn("invite acceptance failed", "error", err)
			errs = append(errs, fmt.Errorf("accept invite: %w", err))
		} else {
			log.Info("invite accepted", "clinic_id", res.ClinicID, "role", res.Role)
		}
	}

	return errors.Join(errs...)
}
