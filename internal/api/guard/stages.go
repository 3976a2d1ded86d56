package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/clinic/internal/api/domain"
	"github.com/aussiebroadwan/clinic/internal/api/store"
	"github.com/aussiebroadwan/clinic/pkg/jwtx"
	"github.com/aussiebroadwan/clinic/pkg/slogx"
)

// TouchTimeout bounds the background last-active update.
const TouchTimeout = 5 * time.Second

// Authenticate verifies the bearer token and derives the identity from its
// claims.
func Authenticate(v jwtx.Verifier) Stage {
	return func(r *http.Request, p Principal) (Principal, error) {
		if v == nil {
			return p, deny(StageAuthenticate, fmt.Errorf("%w: token verifier", domain.ErrMisconfigured))
		}

		raw, ok := bearerToken(r)
		if !ok {
			return p, deny(StageAuthenticate, fmt.Errorf("%w: missing bearer token", domain.ErrUnauthorized))
		}

		claims, err := v.Verify(raw)
		if err != nil {
			if errors.Is(err, jwtx.ErrNotConfigured) {
				return p, deny(StageAuthenticate, fmt.Errorf("%w: %v", domain.ErrMisconfigured, err))
			}

			// Unverified claims are for diagnostics only.
			attrs := []any{slog.Any("error", err)}
			if peek, perr := jwtx.DecodeUnverified(raw); perr == nil {
				attrs = append(attrs,
					slog.String("token_use", peek.TokenUse),
					slog.String("iss", peek.Issuer),
					slog.Any("aud", []string(peek.Audience)),
					slog.String("client_id", peek.ClientID),
				)
			}
			slogx.FromContext(r.Context()).Warn("jwt verify failed", attrs...)

			return p, deny(StageAuthenticate, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err))
		}
		if claims.Subject == "" {
			return p, deny(StageAuthenticate, fmt.Errorf("%w: token has no subject", domain.ErrInvalidToken))
		}

		p.Claims = claims
		p.Identity = domain.Identity{
			Sub:           claims.Subject,
			Email:         domain.NormalizeEmail(claims.Email),
			EmailVerified: bool(claims.EmailVerified),
		}
		return p, nil
	}
}

// ResolveUser binds the identity to an active local user. The last-active
// timestamp is updated in the background and never delays the request.
func ResolveUser(users UserLookup, toucher Toucher, now func() time.Time) Stage {
	if now == nil {
		now = time.Now
	}

	return func(r *http.Request, p Principal) (Principal, error) {
		if users == nil {
			return p, deny(StageResolveUser, fmt.Errorf("%w: user store", domain.ErrMisconfigured))
		}
		if p.Identity.Sub == "" {
			return p, deny(StageResolveUser, fmt.Errorf("%w: no identity", domain.ErrUnauthorized))
		}

		user, err := users.GetUserBySub(r.Context(), p.Identity.Sub)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return p, deny(StageResolveUser, fmt.Errorf("%w: no local user", domain.ErrUnauthorized))
			}
			return p, deny(StageResolveUser, err)
		}
		if !user.IsActive {
			return p, deny(StageResolveUser, fmt.Errorf("%w: user is inactive", domain.ErrUnauthorized))
		}
		p.User = &user

		if toucher != nil {
			ctx := context.WithoutCancel(r.Context())
			at := now().UTC()
			go func() {
				ctx, cancel := context.WithTimeout(ctx, TouchTimeout)
				defer cancel()
				if err := toucher.TouchLastActive(ctx, user.ID, at); err != nil {
					slogx.FromContext(ctx).Warn("touch last active failed",
						slog.String("user_id", user.ID),
						slog.Any("error", err),
					)
				}
			}()
		}

		return p, nil
	}
}

// RequireRoles admits users whose tenant role is in roles. An empty set
// admits any resolved user.
func RequireRoles(roles ...domain.Role) Stage {
	return func(r *http.Request, p Principal) (Principal, error) {
		if p.User == nil {
			return p, deny(StageRequireRoles, fmt.Errorf("%w: no local user", domain.ErrUnauthorized))
		}
		if len(roles) == 0 || slices.Contains(roles, p.User.Role) {
			return p, nil
		}
		return p, deny(StageRequireRoles, fmt.Errorf("%w: role %s not permitted", domain.ErrForbidden, p.User.Role))
	}
}

// RequirePlatformRoles admits users whose platform role is in roles. An
// empty set admits any resolved user.
func RequirePlatformRoles(roles ...domain.PlatformRole) Stage {
	return func(r *http.Request, p Principal) (Principal, error) {
		if p.User == nil {
			return p, deny(StageRequirePlatformRoles, fmt.Errorf("%w: no local user", domain.ErrUnauthorized))
		}
		if len(roles) == 0 || slices.Contains(roles, p.User.PlatformRole) {
			return p, nil
		}
		return p, deny(StageRequirePlatformRoles, fmt.Errorf("%w: platform role %s not permitted", domain.ErrForbidden, p.User.PlatformRole))
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(prefix):])
	return tok, tok != ""
}
