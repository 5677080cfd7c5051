package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"contacts-server/internal/interfaces"
	"contacts-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	createRefreshTokenQuery = `
        INSERT INTO refresh_tokens (user_id, token_hash, expired_at, ip_address, user_agent)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at
    `
	getRefreshTokenByHashQuery = `
        SELECT id, user_id, token_hash, expired_at, revoked_at, ip_address, user_agent, created_at
        FROM refresh_tokens
        WHERE token_hash = $1
    `
	revokeRefreshTokenQuery = `
        UPDATE refresh_tokens
        SET revoked_at = NOW()
        WHERE id = $1 AND revoked_at IS NULL
    `
	revokeAllUserTokensQuery = `
        UPDATE refresh_tokens
        SET revoked_at = NOW()
        WHERE user_id = $1 AND revoked_at IS NULL
    `
	purgeStaleTokensQuery = `
        DELETE FROM refresh_tokens
        WHERE expired_at < NOW()
           OR (revoked_at IS NOT NULL AND revoked_at < $1)
    `
)

// Compile-time check to ensure pgRefreshTokenRepository implements RefreshTokenRepository
var _ interfaces.RefreshTokenRepository = (*pgRefreshTokenRepository)(nil)

type pgRefreshTokenRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgRefreshTokenRepository creates a new PostgreSQL-backed RefreshTokenRepository.
func NewPgRefreshTokenRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.RefreshTokenRepository {
	return &pgRefreshTokenRepository{
		db:     db,
		logger: logger.Named("PgRefreshTokenRepo"),
	}
}

// CreateToken persists a new refresh token record. Only the hash of the token
// is stored, never the token itself.
func (r *pgRefreshTokenRepository) CreateToken(ctx context.Context, token *models.RefreshToken) error {
	log := r.logger.With(zap.String("userID", token.UserID.String()))

	err := r.db.QueryRow(ctx, createRefreshTokenQuery,
		token.UserID, token.TokenHash, token.ExpiredAt, token.IPAddress, token.UserAgent,
	).Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		log.Error("Failed to create refresh token in postgres", zap.Error(err))
		return fmt.Errorf("failed to create refresh token: %w", err)
	}

	log.Debug("Refresh token created", zap.String("tokenID", token.ID.String()))
	return nil
}

// GetTokenByHash looks up a refresh token record by the SHA-256 hash of the
// presented token.
func (r *pgRefreshTokenRepository) GetTokenByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := pgxscan.Get(ctx, r.db, &token, getRefreshTokenByHashQuery, tokenHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Refresh token not found by hash")
			return nil, models.ErrTokenNotFound
		}
		r.logger.Error("Error getting refresh token by hash", zap.Error(err))
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	return &token, nil
}

// RevokeToken marks a single refresh token as revoked.
func (r *pgRefreshTokenRepository) RevokeToken(ctx context.Context, id uuid.UUID) error {
	log := r.logger.With(zap.String("tokenID", id.String()))

	cmdTag, err := r.db.Exec(ctx, revokeRefreshTokenQuery, id)
	if err != nil {
		log.Error("Failed to revoke refresh token in postgres", zap.Error(err))
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		// Либо токена нет, либо он уже отозван
		log.Debug("Refresh token not found or already revoked")
		return models.ErrTokenNotFound
	}

	log.Debug("Refresh token revoked")
	return nil
}

// RevokeAllForUser marks every active refresh token of the user as revoked and
// returns the number of affected rows.
func (r *pgRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	log := r.logger.With(zap.String("userID", userID.String()))

	cmdTag, err := r.db.Exec(ctx, revokeAllUserTokensQuery, userID)
	if err != nil {
		log.Error("Failed to revoke user refresh tokens in postgres", zap.Error(err))
		return 0, fmt.Errorf("failed to revoke user refresh tokens: %w", err)
	}

	revoked := cmdTag.RowsAffected()
	log.Info("User refresh tokens revoked", zap.Int64("count", revoked))
	return revoked, nil
}

// PurgeStale deletes expired tokens and tokens that were revoked longer than
// revokedRetention ago. Returns the number of deleted rows.
func (r *pgRefreshTokenRepository) PurgeStale(ctx context.Context, revokedRetention time.Duration) (int64, error) {
	revokedBefore := time.Now().Add(-revokedRetention)

	cmdTag, err := r.db.Exec(ctx, purgeStaleTokensQuery, revokedBefore)
	if err != nil {
		r.logger.Error("Failed to purge stale refresh tokens", zap.Error(err))
		return 0, fmt.Errorf("failed to purge stale refresh tokens: %w", err)
	}

	purged := cmdTag.RowsAffected()
	if purged > 0 {
		r.logger.Info("Stale refresh tokens purged", zap.Int64("count", purged))
	}
	return purged, nil
}
