// Package common contains shared constants and sentinel errors used across
// authkeeper components.
package common

const (
	// RefreshTokenKey is the durable metadata key holding the renewal credential.
	RefreshTokenKey = "refresh_token"

	// RefreshTokenSavedAtKey records when RefreshTokenKey was last written.
	RefreshTokenSavedAtKey = "refresh_token_saved_at"

	// AccessTokenCookieName is the cookie the backend uses for the
	// short-lived access credential.
	AccessTokenCookieName = "access_token"

	// RequestIDHeaderName carries a per-request correlation id.
	RequestIDHeaderName = "X-Request-ID"
)
