package interfaces

import (
	"context"

	"contacts-server/internal/models"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user data persistence (PostgreSQL).
type UserRepository interface {
	// CreateUser inserts a new user into the database.
	// Returns models.ErrUserAlreadyExists or models.ErrEmailAlreadyExists on
	// unique constraint violations.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID retrieves a user by their ID.
	// Returns models.ErrUserNotFound if the user does not exist.
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetUserByEmail retrieves a user by their email address.
	// Returns models.ErrUserNotFound if the user does not exist.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByUsername retrieves a user by their username.
	// Returns models.ErrUserNotFound if the user does not exist.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// ConfirmEmail marks the user's email as verified.
	// Returns models.ErrUserNotFound if no user has this email.
	ConfirmEmail(ctx context.Context, email string) error

	// UpdateAvatarURL stores a new avatar URL and returns the updated user.
	UpdateAvatarURL(ctx context.Context, userID uuid.UUID, avatarURL string) (*models.User, error)

	// UpdatePasswordHash обновляет хеш пароля пользователя.
	UpdatePasswordHash(ctx context.Context, userID uuid.UUID, newPasswordHash string) error
}
