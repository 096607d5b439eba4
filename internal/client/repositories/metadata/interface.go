// Package metadata provides the durable key/value store backing the client
// session. Keys are short well-known names (see package common); values are
// opaque bytes.
package metadata

import (
	"context"
)

// Repository is a key/value store. Get returns (nil, nil) for a missing key
// and GetString returns "" for one; Set is an upsert; Delete of a missing key
// is not an error.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	GetString(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value []byte) error
	SetString(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
