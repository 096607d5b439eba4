// Package common defines shared constants and sentinel errors used across
// client layers of authkeeper. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// ErrInvalidToken is returned when a token cannot be decoded.
	ErrInvalidToken = errors.New("invalid token")

	// ErrNoExpiry is returned when a token carries no exp claim.
	ErrNoExpiry = errors.New("token has no expiry")
)
