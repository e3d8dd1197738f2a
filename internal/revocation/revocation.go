// Package revocation keeps the ids of session tokens that were logged out
// before they expired.
package revocation

import (
	"context"
	"time"
)

// List records revoked token ids until their natural expiry.
type List interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
