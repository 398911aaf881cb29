// internal/common/auth/keycloak.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jobboard-backend/internal/common/errors"
)

// KeycloakClient verifies caller tokens against a Keycloak realm. Protected
// operations only need the authenticated-or-not outcome; no authorization
// logic lives here.
type KeycloakClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// NewKeycloakClient creates a new instance of KeycloakClient.
func NewKeycloakClient(baseURL, realm, clientID, clientSecret string) *KeycloakClient {
	return &KeycloakClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// ValidateToken checks if an access token is valid and active.
func (k *KeycloakClient) ValidateToken(ctx context.Context, token string) (*TokenInfo, error) {
	introspectURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token/introspect", k.baseURL, k.realm)

	data := url.Values{}
	data.Set("token", token)
	data.Set("token_type_hint", "access_token") // Hint to introspect an access token
	data.Set("client_id", k.clientID)
	data.Set("client_secret", k.clientSecret)

	req, err := http.NewRequestWithContext(ctx, "POST", introspectURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, &errors.StandardError{
			Code:      "HTTP_REQUEST_ERROR",
			Message:   "Failed to create introspection request",
			Details:   err.Error(),
			Retryable: false,
		}
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, &errors.StandardError{
			Code:      "NETWORK_ERROR",
			Message:   "Failed to send introspection request",
			Details:   err.Error(),
			Retryable: true,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &errors.StandardError{
			Code:      "KEYCLOAK_API_ERROR",
			Message:   "Keycloak API error during token introspection",
			Details:   fmt.Sprintf("status: %d", resp.StatusCode),
			Retryable: k.isTransientHTTPError(resp.StatusCode),
		}
	}

	var tokenInfo TokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&tokenInfo); err != nil {
		return nil, &errors.StandardError{
			Code:      "DESERIALIZATION_ERROR",
			Message:   "Failed to decode token introspection response",
			Details:   err.Error(),
			Retryable: false,
		}
	}

	if !tokenInfo.Active {
		return nil, &errors.StandardError{
			Code:      "TOKEN_INVALID",
			Message:   "Token is not active",
			Details:   "The provided access token is expired, revoked, malformed, or invalid for other reasons.",
			Retryable: false,
		}
	}

	return &tokenInfo, nil
}

// isTransientHTTPError returns true if the HTTP status code indicates a potentially transient error.
func (k *KeycloakClient) isTransientHTTPError(statusCode int) bool {
	switch statusCode {
	case http.StatusInternalServerError, // 500
		http.StatusBadGateway,         // 502
		http.StatusServiceUnavailable, // 503
		http.StatusGatewayTimeout:     // 504
		return true
	default:
		return false
	}
}

// TokenInfo holds the information returned by the token introspection endpoint.
type TokenInfo struct {
	Active    bool     `json:"active"`
	Scope     string   `json:"scope,omitempty"`
	ClientID  string   `json:"client_id,omitempty"`
	Username  string   `json:"username,omitempty"`
	TokenType string   `json:"token_type,omitempty"`
	Exp       int64    `json:"exp,omitempty"` // Expiration timestamp (seconds since epoch)
	Iat       int64    `json:"iat,omitempty"` // Issued at timestamp (seconds since epoch)
	Nbf       int64    `json:"nbf,omitempty"` // Not before timestamp (seconds since epoch)
	Sub       string   `json:"sub,omitempty"` // Subject (user ID)
	Aud       []string `json:"aud,omitempty"` // Audience
	Iss       string   `json:"iss,omitempty"` // Issuer
	Jti       string   `json:"jti,omitempty"` // JWT ID
}
