package clinicsdk

import (
	"context"
	"net/http"
	"net/url"
)

// ListUsers returns the users of the caller's clinic.
// Requires: OWNER or ADMIN
func (s *Session) ListUsers(ctx context.Context) (*ListUsersResponse, error) {
	resp, err := s.do(ctx, http.MethodGet, "/v1/admin/users", nil)
	return call[ListUsersResponse](resp, err)
}

// RemoveUser deactivates a user in the caller's clinic.
// Requires: OWNER or ADMIN
func (s *Session) RemoveUser(ctx context.Context, id string) (*OKResponse, error) {
	resp, err := s.do(ctx, http.MethodPost, "/v1/admin/users/"+url.PathEscape(id)+"/remove", nil)
	return call[OKResponse](resp, err)
}

// ListClinics lists every clinic.
// Requires: platform SUPER_ADMIN
func (s *Session) ListClinics(ctx context.Context) (*ListClinicsResponse, error) {
	resp, err := s.do(ctx, http.MethodGet, "/v1/admin/clinics", nil)
	return call[ListClinicsResponse](resp, err)
}

// CreateClinic creates a clinic.
// Requires: platform SUPER_ADMIN
func (s *Session) CreateClinic(ctx context.Context, req CreateClinicRequest) (*Clinic, error) {
	resp, err := s.do(ctx, http.MethodPost, "/v1/admin/clinics", req)
	return call[Clinic](resp, err)
}

// DeleteClinic removes an empty clinic.
// Requires: platform SUPER_ADMIN
func (s *Session) DeleteClinic(ctx context.Context, id string) (*OKResponse, error) {
	resp, err := s.do(ctx, http.MethodDelete, "/v1/admin/clinics/"+url.PathEscape(id), nil)
	return call[OKResponse](resp, err)
}
