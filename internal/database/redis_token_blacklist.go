package database

import (
	"context"
	"fmt"
	"time"

	"contacts-server/internal/interfaces"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Compile-time check to ensure redisTokenBlacklist implements TokenBlacklist
var _ interfaces.TokenBlacklist = (*redisTokenBlacklist)(nil)

type redisTokenBlacklist struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisTokenBlacklist creates a new Redis-backed TokenBlacklist.
func NewRedisTokenBlacklist(client *redis.Client, logger *zap.Logger) interfaces.TokenBlacklist {
	return &redisTokenBlacklist{
		client: client,
		logger: logger.Named("RedisTokenBlacklist"),
	}
}

// BlacklistAccessToken stores the access token identifier (jti) until the
// token itself expires. Tokens with no remaining lifetime are skipped.
func (r *redisTokenBlacklist) BlacklistAccessToken(ctx context.Context, accessUUID string, ttl time.Duration) error {
	if ttl <= 0 {
		// Токен уже истек, в блэклисте смысла нет
		r.logger.Debug("Skipping blacklist for already expired token", zap.String("accessUUID", accessUUID))
		return nil
	}

	key := fmt.Sprintf("blacklist:%s", accessUUID)
	r.logger.Debug("Blacklisting access token", zap.String("key", key), zap.Duration("ttl", ttl))

	if err := r.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		r.logger.Error("Failed to blacklist access token in redis", zap.Error(err), zap.String("key", key))
		return fmt.Errorf("failed to blacklist access token: %w", err)
	}
	return nil
}

// IsAccessTokenBlacklisted reports whether the access token identifier (jti)
// was revoked before its natural expiry.
func (r *redisTokenBlacklist) IsAccessTokenBlacklisted(ctx context.Context, accessUUID string) (bool, error) {
	key := fmt.Sprintf("blacklist:%s", accessUUID)
	err := r.client.Get(ctx, key).Err()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		r.logger.Error("Failed to check token blacklist in redis", zap.Error(err), zap.String("key", key))
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return true, nil
}
