package service

import (
	"errors"

	"github.com/aussiebroadwan/clinic/internal/api/domain"
)

var domainErrors = []error{
	domain.ErrInvalidToken,
	domain.ErrUnauthorized,
	domain.ErrForbidden,
	domain.ErrInvalidState,
	domain.ErrExpired,
	domain.ErrNotFound,
	domain.ErrUpstreamUnavailable,
	domain.ErrMisconfigured,
}

// isDomainError reports whether err is an expected outcome rather than a
// fault worth an error log.
func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
