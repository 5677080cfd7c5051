package database

import (
	"context"
	"errors"
	"fmt"

	"contacts-server/internal/interfaces"
	"contacts-server/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Compile-time check to ensure pgUserRepository implements UserRepository
var _ interfaces.UserRepository = (*pgUserRepository)(nil)

type pgUserRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgUserRepository creates a new PostgreSQL-backed UserRepository.
func NewPgUserRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.UserRepository {
	return &pgUserRepository{
		db:     db,
		logger: logger.Named("PgUserRepo"),
	}
}

const userColumns = `id, username, email, password_hash, role, is_verified, avatar_url, created_at, updated_at`

// CreateUser inserts a new user into the database.
func (r *pgUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (username, email, password_hash, role, is_verified, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	r.logger.Debug("Executing query", zap.String("query", query), zap.String("username", user.Username), zap.String("email", user.Email))
	err := r.db.QueryRow(ctx, query, user.Username, user.Email, user.PasswordHash, user.Role, user.IsVerified, user.AvatarURL).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		// Check for unique constraint violation (duplicate username or email)
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // 23505 is unique_violation
			logFields := []zap.Field{zap.String("username", user.Username), zap.String("email", user.Email)}
			var returnErr error
			if pgErr.ConstraintName == "users_username_key" {
				r.logger.Warn("Attempted to create duplicate user by username", logFields...)
				returnErr = models.ErrUserAlreadyExists
			} else if pgErr.ConstraintName == "users_email_key" {
				r.logger.Warn("Attempted to create duplicate user by email", logFields...)
				returnErr = models.ErrEmailAlreadyExists
			} else {
				r.logger.Warn("Attempted to create user with unique constraint violation", append(logFields, zap.String("constraint", pgErr.ConstraintName))...)
				// Возвращаем более общую ошибку, если имя constraint неизвестно
				returnErr = models.ErrUserAlreadyExists
			}
			return returnErr
		}
		r.logger.Error("Failed to create user in postgres", zap.Error(err), zap.String("username", user.Username), zap.String("email", user.Email))
		return fmt.Errorf("failed to create user in postgres: %w", err)
	}
	r.logger.Info("User created successfully", zap.String("userID", user.ID.String()), zap.String("username", user.Username), zap.String("email", user.Email))
	return nil
}

// GetUserByID retrieves a user by their ID.
func (r *pgUserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	r.logger.Debug("Executing query", zap.String("query", query), zap.String("id", id.String()))
	user, err := r.scanUser(r.db.QueryRow(ctx, query, id))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("User not found by ID", zap.String("id", id.String()))
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to get user by id from postgres", zap.Error(err), zap.String("id", id.String()))
		return nil, fmt.Errorf("failed to get user by id from postgres: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by their email.
func (r *pgUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	r.logger.Debug("Executing query", zap.String("query", query), zap.String("email", email))
	user, err := r.scanUser(r.db.QueryRow(ctx, query, email))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("User not found by email", zap.String("email", email))
			// Важно: Возвращаем ErrUserNotFound, а не специфичную для email ошибку,
			// чтобы вызывающий код мог унифицированно обрабатывать отсутствие пользователя.
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to get user by email from postgres", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to get user by email from postgres: %w", err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by their username.
func (r *pgUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	r.logger.Debug("Executing query", zap.String("query", query), zap.String("username", username))
	user, err := r.scanUser(r.db.QueryRow(ctx, query, username))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("User not found by username", zap.String("username", username))
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to get user by username from postgres", zap.Error(err), zap.String("username", username))
		return nil, fmt.Errorf("failed to get user by username from postgres: %w", err)
	}
	return user, nil
}

// ConfirmEmail marks the user with the given email as verified.
func (r *pgUserRepository) ConfirmEmail(ctx context.Context, email string) error {
	query := `UPDATE users SET is_verified = TRUE, updated_at = CURRENT_TIMESTAMP WHERE email = $1`
	r.logger.Debug("Executing query", zap.String("query", query), zap.String("email", email))

	cmdTag, err := r.db.Exec(ctx, query, email)
	if err != nil {
		r.logger.Error("Failed to confirm user email in postgres", zap.Error(err), zap.String("email", email))
		return fmt.Errorf("failed to confirm user email: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to confirm email for non-existent user", zap.String("email", email))
		return models.ErrUserNotFound
	}

	r.logger.Info("User email confirmed successfully", zap.String("email", email))
	return nil
}

// UpdateAvatarURL updates the avatar URL of the user and returns the updated row.
func (r *pgUserRepository) UpdateAvatarURL(ctx context.Context, userID uuid.UUID, avatarURL string) (*models.User, error) {
	query := `UPDATE users SET avatar_url = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2
		RETURNING ` + userColumns
	r.logger.Debug("Executing query", zap.String("query", query), zap.String("userID", userID.String()))

	user, err := r.scanUser(r.db.QueryRow(ctx, query, avatarURL, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("Attempted to update avatar for non-existent user", zap.String("userID", userID.String()))
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to update user avatar in postgres", zap.Error(err), zap.String("userID", userID.String()))
		return nil, fmt.Errorf("failed to update user avatar: %w", err)
	}

	r.logger.Info("User avatar updated successfully", zap.String("userID", userID.String()))
	return user, nil
}

// UpdatePasswordHash обновляет хеш пароля пользователя.
func (r *pgUserRepository) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	r.logger.Debug("Executing query", zap.String("query", query), zap.String("userID", userID.String()))

	cmdTag, err := r.db.Exec(ctx, query, passwordHash, userID)
	if err != nil {
		r.logger.Error("Failed to update user password hash in postgres", zap.Error(err), zap.String("userID", userID.String()))
		return fmt.Errorf("failed to update password hash: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to update password hash for non-existent user", zap.String("userID", userID.String()))
		return models.ErrUserNotFound
	}

	r.logger.Info("User password hash updated successfully", zap.String("userID", userID.String()))
	return nil
}

// scanUser сканирует строку в модель пользователя.
func (r *pgUserRepository) scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.IsVerified,
		&user.AvatarURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}
