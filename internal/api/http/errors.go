package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/clinic/internal/api/domain"
	"github.com/aussiebroadwan/clinic/pkg/clinicsdk"
	"github.com/aussiebroadwan/clinic/pkg/httpx"
	"github.com/aussiebroadwan/clinic/pkg/slogx"
)

// writeServiceError maps a domain error to its status and error code.
// Unclassified errors are logged and returned as a bare server_error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, clinicsdk.ErrorCodeServerError
	desc := "Internal server error"

	switch {
	case errors.Is(err, httpx.ErrBadRequest):
		status, code = http.StatusBadRequest, clinicsdk.ErrorCodeInvalidRequest
	case errors.Is(err, domain.ErrInvalidToken):
		status, code = http.StatusUnauthorized, clinicsdk.ErrorCodeInvalidToken
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, clinicsdk.ErrorCodeUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		status, code = http.StatusForbidden, clinicsdk.ErrorCodeForbidden
	case errors.Is(err, domain.ErrInvalidState):
		status, code = http.StatusBadRequest, clinicsdk.ErrorCodeInvalidState
	case errors.Is(err, domain.ErrExpired):
		status, code = http.StatusBadRequest, clinicsdk.ErrorCodeExpired
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, clinicsdk.ErrorCodeNotFound
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		status, code = http.StatusBadGateway, clinicsdk.ErrorCodeUpstreamUnavailable
	case errors.Is(err, domain.ErrMisconfigured):
		status, code = http.StatusInternalServerError, clinicsdk.ErrorCodeMisconfigured
		desc = "Service is not configured"
	default:
		slogx.FromContext(r.Context()).Error("request failed", slog.Any("error", err))
		httpx.WriteError(w, status, code, desc)
		return
	}

	if status != http.StatusInternalServerError {
		desc = err.Error()
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="`+code+`"`)
	}
	httpx.WriteError(w, status, code, desc)
}
