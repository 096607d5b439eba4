// Package models defines client-side data models used by the authkeeper client.
package models

// User is the identity record returned by the backend.
// It is replaced wholesale on every successful auth operation.
type User struct {
	// ID is the backend-assigned numeric identifier.
	ID int64 `json:"id"`

	// Username is the display name chosen at registration.
	Username string `json:"username"`

	// Email is the login identifier.
	Email string `json:"email"`

	// CreatedAt is the account creation time.
	CreatedAt Timestamp `json:"created_at"`
}

// AuthResult is the payload of register, login and refresh responses.
type AuthResult struct {
	User         User   `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Clone returns a copy of u, or nil when u is nil.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
