package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"contacts-server/internal/interfaces"
	"contacts-server/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Compile-time check to ensure redisUserCache implements UserCache
var _ interfaces.UserCache = (*redisUserCache)(nil)

type redisUserCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisUserCache creates a new Redis-backed UserCache.
func NewRedisUserCache(client *redis.Client, logger *zap.Logger) interfaces.UserCache {
	return &redisUserCache{
		client: client,
		logger: logger.Named("RedisUserCache"),
	}
}

// SetUser caches the user as JSON under user:{id}.
// PasswordHash помечен json:"-" и в кеш не попадает.
func (r *redisUserCache) SetUser(ctx context.Context, user *models.User, ttl time.Duration) error {
	key := fmt.Sprintf("user:%s", user.ID.String())

	data, err := json.Marshal(user)
	if err != nil {
		r.logger.Error("Failed to marshal user for cache", zap.Error(err), zap.String("userID", user.ID.String()))
		return fmt.Errorf("failed to marshal user for cache: %w", err)
	}

	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		r.logger.Error("Failed to set user in redis cache", zap.Error(err), zap.String("key", key))
		return fmt.Errorf("failed to cache user: %w", err)
	}

	r.logger.Debug("User cached", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

// GetUser returns the cached user or ErrCacheMiss.
func (r *redisUserCache) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	key := fmt.Sprintf("user:%s", id.String())

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			r.logger.Debug("User cache miss", zap.String("key", key))
			return nil, models.ErrCacheMiss
		}
		r.logger.Error("Failed to get user from redis cache", zap.Error(err), zap.String("key", key))
		return nil, fmt.Errorf("failed to get user from cache: %w", err)
	}

	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		// Поврежденные данные в кеше: удаляем ключ и считаем промахом
		r.logger.Error("Failed to unmarshal cached user, dropping key", zap.Error(err), zap.String("key", key))
		r.client.Del(ctx, key)
		return nil, models.ErrCacheMiss
	}

	r.logger.Debug("User cache hit", zap.String("key", key))
	return &user, nil
}

// InvalidateUser removes the cached user entry.
func (r *redisUserCache) InvalidateUser(ctx context.Context, id uuid.UUID) error {
	key := fmt.Sprintf("user:%s", id.String())

	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Error("Failed to invalidate user cache", zap.Error(err), zap.String("key", key))
		return fmt.Errorf("failed to invalidate user cache: %w", err)
	}

	r.logger.Debug("User cache invalidated", zap.String("key", key))
	return nil
}
