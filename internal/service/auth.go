package service

import (
	"context"
	"io"
	"time"

	"contacts-server/internal/models"

	"github.com/google/uuid"
)

// AuthService defines the interface for authentication, tokens and user accounts.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password, ipAddress, userAgent string) (*models.TokenDetails, error)
	Refresh(ctx context.Context, refreshToken, ipAddress, userAgent string) (*models.TokenDetails, error)
	Logout(ctx context.Context, accessUUID string, accessExpiresAt time.Time, refreshToken string) error
	VerifyAccessToken(ctx context.Context, tokenString string) (*models.Claims, error)

	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) // Через Redis-кеш

	ConfirmEmail(ctx context.Context, token string) (alreadyConfirmed bool, err error)
	RequestEmailVerification(ctx context.Context, email string) (alreadyConfirmed bool, err error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error

	UpdateAvatar(ctx context.Context, userID uuid.UUID, file io.Reader, contentType string) (*models.User, error)
}
