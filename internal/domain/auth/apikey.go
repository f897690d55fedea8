package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrUnauthorized is returned when an API key cannot be resolved to an
// identity.
var ErrUnauthorized = errors.New("unauthorized")

// APIKeyInfo holds the identity for a validated storefront API key. UserID
// is the customer the key acts for; handlers treat requests carrying it as
// already authenticated.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	UserID  string
	Name    string
}

// Repository provides lookup of API keys by their HMAC-SHA256 hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
