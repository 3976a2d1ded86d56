package clinicsdk_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/clinic/pkg/clinicsdk"
	"github.com/stretchr/testify/require"
)

func TestSessionSendsBearer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/auth/ensure-user", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(clinicsdk.EnsureUserResponse{
			Clinic: clinicsdk.Clinic{ID: "c1", Name: "Default Clinic"},
			User:   clinicsdk.User{ID: "u1", Email: "a@example.com", Role: "ADMIN", ClinicID: "c1", IsActive: true},
		})
	}))
	defer srv.Close()

	res, err := clinicsdk.NewClient(srv.URL + "/").Session("tok-1").EnsureUser(context.Background())
	require.NoError(t, err)
	require.Equal(t, "c1", res.Clinic.ID)
	require.Equal(t, "ADMIN", res.User.Role)
}

func TestAcceptInviteBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in clinicsdk.AcceptInviteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, "raw-token", in.Token)

		_ = json.NewEncoder(w).Encode(clinicsdk.AcceptInviteResponse{OK: true, UserID: "u2", ClinicID: "c1", Role: "STAFF"})
	}))
	defer srv.Close()

	res, err := clinicsdk.NewClient(srv.URL).AcceptInvite(context.Background(), clinicsdk.AcceptInviteRequest{Token: "raw-token"})
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Equal(t, "STAFF", res.Role)
}

func TestErrorDecoding(t *testing.T) {
	t.Parallel()

	t.Run("structured body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(clinicsdk.ErrorResponse{Error: "invalid_state", ErrorDescription: "invite is not pending"})
		}))
		defer srv.Close()

		_, err := clinicsdk.NewClient(srv.URL).AcceptInvite(context.Background(), clinicsdk.AcceptInviteRequest{Token: "x"})
		require.Error(t, err)
		require.True(t, clinicsdk.IsCode(err, clinicsdk.ErrorCodeInvalidState))

		var apiErr *clinicsdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		require.Equal(t, "invite is not pending", apiErr.Description)
	})

	t.Run("plain body falls back to status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad gateway", http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := clinicsdk.NewClient(srv.URL).GetLiveness(context.Background())
		require.True(t, clinicsdk.IsCode(err, clinicsdk.ErrorCodeServerError))
	})

	t.Run("session without token", func(t *testing.T) {
		_, err := clinicsdk.NewClient("http://unused.invalid").Session("").Me(context.Background())
		require.True(t, clinicsdk.IsCode(err, clinicsdk.ErrorCodeUnauthorized))
	})
}
