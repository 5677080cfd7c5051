package interfaces

import (
	"context"
	"time"
)

// TokenBlacklist defines the interface for revoked access token storage (Redis).
// При логауте access токен добавляется сюда до своего естественного истечения.
type TokenBlacklist interface {
	// BlacklistAccessToken stores the access token jti with the given TTL.
	BlacklistAccessToken(ctx context.Context, accessUUID string, ttl time.Duration) error

	// IsAccessTokenBlacklisted reports whether the jti was revoked.
	IsAccessTokenBlacklisted(ctx context.Context, accessUUID string) (bool, error)
}
