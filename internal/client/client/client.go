package client

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
)

// Client is the backend auth API. Implementations hold no session state of
// their own beyond transport-level cookies.
type Client interface {
	Register(ctx context.Context, username, email, password string) (*models.AuthResult, error)
	Login(ctx context.Context, email, password string) (*models.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*models.AuthResult, error)
	// Logout is best effort: callers log its error and carry on.
	Logout(ctx context.Context, refreshToken string) error
	CurrentUser(ctx context.Context) (*models.User, error)
	Close() error
}
