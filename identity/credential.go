// Package identity is the HTTP client for the external identity service.
// It owns the two credential exchanges this gateway performs: trading the
// transport-managed durable credential for a fresh access credential, and
// trading an OAuth authorization code for the same shape.
package identity

import "github.com/EduNex-Academy/session-gateway/users"

// AccessCredential is the short-lived bearer credential issued by the
// identity service. A credential is immutable once issued; a later refresh
// or exchange supersedes it as a whole, individual fields are never patched.
type AccessCredential struct {
	AccessToken      string `json:"accessToken"`
	TokenType        string `json:"tokenType"`
	ExpiresInSeconds int64  `json:"expiresIn"`
}

// AuthResponse is the identity service's response to both the refresh and the
// code-exchange endpoints.
type AuthResponse struct {
	AccessCredential
	User *users.User `json:"user"`
}
