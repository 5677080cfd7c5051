package handler

import (
	"errors"
	"strings"
	"time"

	"contacts-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthMiddleware проверяет Bearer токен, загружает пользователя (сначала кеш)
// и кладет его в контекст запроса.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			zap.L().Warn("Authorization header missing")
			tokenVerificationsTotal.WithLabelValues("failure").Inc()
			handleServiceError(c, models.ErrTokenInvalid)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			zap.L().Warn("Invalid Authorization header format", zap.String("header", authHeader))
			tokenVerificationsTotal.WithLabelValues("failure").Inc()
			handleServiceError(c, models.ErrTokenInvalid)
			return
		}

		tokenString := parts[1]
		claims, err := h.authService.VerifyAccessToken(c.Request.Context(), tokenString)
		if err != nil {
			zap.L().Warn("Access token verification failed", zap.Error(err))
			tokenVerificationsTotal.WithLabelValues("failure").Inc()
			handleServiceError(c, err)
			return
		}

		user, err := h.authService.GetUserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			// Пользователь из валидного токена мог быть удален.
			if errors.Is(err, models.ErrUserNotFound) {
				zap.L().Warn("User from valid token not found", zap.String("userID", claims.UserID.String()))
				tokenVerificationsTotal.WithLabelValues("failure").Inc()
				handleServiceError(c, models.ErrTokenInvalid)
				return
			}
			zap.L().Error("Failed to load user during token verification", zap.String("userID", claims.UserID.String()), zap.Error(err))
			tokenVerificationsTotal.WithLabelValues("failure").Inc()
			handleServiceError(c, err)
			return
		}

		var accessExpiresAt time.Time
		if claims.ExpiresAt != nil {
			accessExpiresAt = claims.ExpiresAt.Time
		}

		tokenVerificationsTotal.WithLabelValues("success").Inc()
		c.Set("user_id", claims.UserID)
		c.Set("access_uuid", claims.ID)
		c.Set("access_expires_at", accessExpiresAt)
		c.Set("current_user", user)
		zap.L().Debug("Access token verified successfully", zap.String("userID", claims.UserID.String()), zap.String("accessUUID", claims.ID))
		c.Next()
	}
}

// RequireRole пропускает запрос дальше только если роль пользователя входит
// в allowed. Роль берется из загруженного пользователя, а не из claims,
// чтобы смена роли действовала без перевыпуска токена.
func (h *Handler) RequireRole(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := getCurrentUserFromContext(c)
		if err != nil {
			return
		}

		if !models.RoleAllowed(user.Role, allowed...) {
			zap.L().Warn("User role not allowed for route",
				zap.String("userID", user.ID.String()),
				zap.String("role", user.Role),
				zap.Strings("allowed", allowed),
			)
			handleServiceError(c, models.ErrForbidden)
			return
		}

		c.Next()
	}
}

// getUserIDFromContext достает ID пользователя, положенный AuthMiddleware.
// При ошибке сама пишет ответ, вызывающему достаточно сделать return.
func getUserIDFromContext(c *gin.Context) (uuid.UUID, error) {
	userIDRaw, exists := c.Get("user_id")
	if !exists {
		zap.L().Error("User ID missing in context")
		handleServiceError(c, models.ErrTokenInvalid)
		return uuid.Nil, models.ErrTokenInvalid
	}
	userID, ok := userIDRaw.(uuid.UUID)
	if !ok {
		zap.L().Error("Invalid user ID type in context", zap.Any("user_id_raw", userIDRaw))
		handleServiceError(c, models.ErrTokenInvalid)
		return uuid.Nil, models.ErrTokenInvalid
	}
	return userID, nil
}

func getCurrentUserFromContext(c *gin.Context) (*models.User, error) {
	userRaw, exists := c.Get("current_user")
	if !exists {
		zap.L().Error("Current user missing in context")
		handleServiceError(c, models.ErrTokenInvalid)
		return nil, models.ErrTokenInvalid
	}
	user, ok := userRaw.(*models.User)
	if !ok || user == nil {
		zap.L().Error("Invalid current user type in context", zap.Any("user_raw", userRaw))
		handleServiceError(c, models.ErrTokenInvalid)
		return nil, models.ErrTokenInvalid
	}
	return user, nil
}
