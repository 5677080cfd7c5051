package interfaces

import (
	"context"
	"time"

	"contacts-server/internal/models"

	"github.com/google/uuid"
)

// RefreshTokenRepository defines the interface for refresh token persistence (PostgreSQL).
// Хранятся только хеши токенов, сами значения никогда не пишутся в БД.
type RefreshTokenRepository interface {
	// CreateToken stores a new refresh token row.
	CreateToken(ctx context.Context, token *models.RefreshToken) error

	// GetTokenByHash retrieves a token row by its SHA-256 hash.
	// Returns models.ErrTokenNotFound if no such token exists.
	GetTokenByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)

	// RevokeToken marks a single token as revoked.
	// Returns models.ErrTokenNotFound if the token does not exist.
	RevokeToken(ctx context.Context, id uuid.UUID) error

	// RevokeAllForUser marks all live tokens of the user as revoked.
	// Returns the number of revoked tokens.
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// PurgeStale deletes rows that expired, or were revoked longer than
	// revokedRetention ago. Returns the number of deleted rows.
	PurgeStale(ctx context.Context, revokedRetention time.Duration) (int64, error)
}
