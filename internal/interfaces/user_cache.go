package interfaces

import (
	"context"
	"time"

	"contacts-server/internal/models"

	"github.com/google/uuid"
)

// UserCache defines the interface for the read-through user cache (Redis).
type UserCache interface {
	// SetUser stores the user JSON with the given TTL.
	SetUser(ctx context.Context, user *models.User, ttl time.Duration) error

	// GetUser retrieves a cached user.
	// Returns models.ErrCacheMiss when the user is not cached.
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)

	// InvalidateUser drops the cached entry after a user mutation.
	InvalidateUser(ctx context.Context, id uuid.UUID) error
}
