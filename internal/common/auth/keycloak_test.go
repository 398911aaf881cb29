// internal/common/auth/keycloak_test.go
package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "jobboard-backend/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func introspectionServer(t *testing.T, handler http.HandlerFunc) *KeycloakClient {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewKeycloakClient(srv.URL, "jobboard", "backend", "secret")
}

func TestKeycloakClient_ValidateToken(t *testing.T) {
	client := introspectionServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/realms/jobboard/protocol/openid-connect/token/introspect", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "some-token", r.PostForm.Get("token"))
		assert.Equal(t, "backend", r.PostForm.Get("client_id"))
		assert.Equal(t, "secret", r.PostForm.Get("client_secret"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"active": true, "username": "recruiter", "sub": "user-1"}`))
	})

	info, err := client.ValidateToken(context.Background(), "some-token")

	require.NoError(t, err)
	assert.True(t, info.Active)
	assert.Equal(t, "recruiter", info.Username)
	assert.Equal(t, "user-1", info.Sub)
}

func TestKeycloakClient_ValidateToken_Inactive(t *testing.T) {
	client := introspectionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"active": false}`))
	})

	_, err := client.ValidateToken(context.Background(), "stale-token")

	require.Error(t, err)
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrorCode("TOKEN_INVALID"), stdErr.Code)
	assert.False(t, stdErr.Retryable)
}

func TestKeycloakClient_ValidateToken_ServerErrorIsRetryable(t *testing.T) {
	client := introspectionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.ValidateToken(context.Background(), "any")

	require.Error(t, err)
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.True(t, stdErr.Retryable)
}

func TestKeycloakClient_ValidateToken_ClientErrorIsNotRetryable(t *testing.T) {
	client := introspectionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.ValidateToken(context.Background(), "any")

	require.Error(t, err)
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.False(t, stdErr.Retryable)
}
