package http_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/buildbarn/bb-fleet/pkg/auth"
	bb_grpc "github.com/buildbarn/bb-fleet/pkg/grpc"
	bb_http "github.com/buildbarn/bb-fleet/pkg/http"
	"github.com/stretchr/testify/require"
)

func TestAuthenticatingHandler(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		public, _ := auth.AuthenticationMetadataFromContext(r.Context()).GetPublic()
		io.WriteString(w, "Hello, "+public)
	})

	t.Run("Denied", func(t *testing.T) {
		h := bb_http.NewAuthenticatingHandler(
			handler,
			bb_http.NewGRPCAuthenticatorAdapter(bb_grpc.NewDenyAuthenticator("Go away")))
		recorder := httptest.NewRecorder()
		h.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, recorder.Code)
		require.Equal(t, "Go away\n", recorder.Body.String())
	})

	t.Run("Allowed", func(t *testing.T) {
		h := bb_http.NewAuthenticatingHandler(
			handler,
			bb_http.NewGRPCAuthenticatorAdapter(bb_grpc.NewAllowAuthenticator(
				auth.MustNewAuthenticationMetadataFromRaw(map[string]any{"public": "worker"}))))
		recorder := httptest.NewRecorder()
		h.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, recorder.Code)
		require.Equal(t, "Hello, worker", recorder.Body.String())
	})
}

func TestHeaderAddingRoundTripper(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, r.Header.Get("Authorization"))
	}))
	defer server.Close()

	client := &http.Client{
		Transport: bb_http.NewRoundTripperFromConfiguration(&bb_http.ClientConfiguration{
			AddHeaders: []bb_grpc.HeaderValues{{
				Header: "Authorization",
				Values: []string{"Bearer token"},
			}},
		}, "Test"),
	}
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "Bearer token", string(body))
}

func TestOAuth2ClientCredentialsRoundTripper(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			clientID, clientSecret, _ := r.BasicAuth()
			require.Equal(t, "worker", clientID)
			require.Equal(t, "secret", clientSecret)
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"access_token": "3a1b5e", "token_type": "bearer", "expires_in": 3600}`)
			return
		}
		io.WriteString(w, r.Header.Get("Authorization"))
	}))
	defer server.Close()

	client := &http.Client{
		Transport: bb_http.NewRoundTripperFromConfiguration(&bb_http.ClientConfiguration{
			Oauth2ClientCredentials: &bb_http.OAuth2ClientCredentialsConfiguration{
				TokenUrl:     server.URL + "/token",
				ClientId:     "worker",
				ClientSecret: "secret",
			},
		}, "Test"),
	}
	resp, err := client.Get(server.URL + "/api/v1/synchronize")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "Bearer 3a1b5e", string(body))
}
