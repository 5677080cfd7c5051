package handler

import (
	"errors"
	"net/http"
	"time"

	"contacts-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// @Summary Регистрация нового пользователя
// @Description Создает аккаунт и отправляет письмо для подтверждения почты
// @Tags auth
// @Accept json
// @Produce json
// @Param request body registerRequest true "Данные для регистрации"
// @Success 201 {object} userResponse "Созданный пользователь"
// @Failure 400 {object} ErrorResponse "Неверные данные запроса"
// @Failure 409 {object} ErrorResponse "Имя пользователя или email уже заняты"
// @Router /auth/register [post]
func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid request data: " + err.Error()})
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	registrationsTotal.Inc()

	c.JSON(http.StatusCreated, toUserResponse(user))
}

// @Summary Вход в систему
// @Description Аутентификация по email и паролю, выдает пару токенов
// @Tags auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "Данные для входа"
// @Success 200 {object} TokenDetails "Токены доступа"
// @Failure 400 {object} ErrorResponse "Неверные данные запроса"
// @Failure 401 {object} ErrorResponse "Неверные учетные данные или почта не подтверждена"
// @Router /auth/login [post]
func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}

	tokens, err := h.authService.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) || errors.Is(err, models.ErrEmailNotVerified) {
			loginsTotal.WithLabelValues("failure").Inc()
		}
		handleServiceError(c, err)
		return
	}

	loginsTotal.WithLabelValues("success").Inc()

	c.JSON(http.StatusOK, tokens)
}

// @Summary Обновление токенов
// @Description Обменивает refresh токен на новую пару, старый токен отзывается
// @Tags auth
// @Accept json
// @Produce json
// @Param request body refreshRequest true "Refresh токен"
// @Success 200 {object} TokenDetails "Новые токены"
// @Failure 400 {object} ErrorResponse "Неверные данные запроса"
// @Failure 401 {object} ErrorResponse "Неверный, истекший или отозванный токен"
// @Router /auth/refresh [post]
func (h *Handler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}

	tokens, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, models.ErrTokenNotFound) || errors.Is(err, models.ErrTokenExpired) || errors.Is(err, models.ErrTokenRevoked) || errors.Is(err, models.ErrTokenInvalid) || errors.Is(err, models.ErrTokenMalformed) {
			tokenRefreshesTotal.WithLabelValues("failure").Inc()
		}
		handleServiceError(c, err)
		return
	}

	tokenRefreshesTotal.WithLabelValues("success").Inc()

	c.JSON(http.StatusOK, tokens)
}

// @Summary Выход из системы
// @Description Отзывает refresh токен и блокирует access токен до истечения
// @Tags auth
// @Accept json
// @Produce json
// @Param request body logoutRequest true "Refresh токен для отзыва"
// @Success 204 "Успешный выход"
// @Failure 400 {object} ErrorResponse "Неверные данные запроса"
// @Failure 401 {object} ErrorResponse "Неверный токен"
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *Handler) logout(c *gin.Context) {
	accessUUIDRaw, exists := c.Get("access_uuid")
	if !exists {
		zap.L().Error("Access UUID missing in context during logout")
		handleServiceError(c, errors.New("internal server error: context missing access uuid"))
		return
	}
	accessUUID, ok := accessUUIDRaw.(string)
	if !ok || accessUUID == "" {
		zap.L().Error("Invalid or empty Access UUID in context during logout", zap.Any("uuid_raw", accessUUIDRaw))
		handleServiceError(c, errors.New("internal server error: invalid access uuid in context"))
		return
	}

	accessExpiresRaw, exists := c.Get("access_expires_at")
	if !exists {
		zap.L().Error("Access token expiry missing in context during logout")
		handleServiceError(c, errors.New("internal server error: context missing access token expiry"))
		return
	}
	accessExpiresAt, ok := accessExpiresRaw.(time.Time)
	if !ok {
		zap.L().Error("Invalid access token expiry type in context during logout", zap.Any("expires_raw", accessExpiresRaw))
		handleServiceError(c, errors.New("internal server error: invalid access token expiry in context"))
		return
	}

	var req logoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Missing or invalid refresh_token in request body: " + err.Error()})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), accessUUID, accessExpiresAt, req.RefreshToken); err != nil {
		zap.L().Error("Failed to perform logout in service",
			zap.Error(err),
			zap.String("accessUUID", accessUUID),
		)
		handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Запрос на сброс пароля
// @Description Отправляет письмо со ссылкой для сброса, если такой email зарегистрирован
// @Tags auth
// @Accept json
// @Produce json
// @Param request body requestEmailRequest true "Email пользователя"
// @Success 202 {object} MessageResponse "Запрос принят"
// @Failure 400 {object} ErrorResponse "Неверные данные запроса"
// @Router /auth/request_password_reset [post]
func (h *Handler) requestPasswordReset(c *gin.Context) {
	var req requestEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}

	if err := h.authService.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		handleServiceError(c, err)
		return
	}

	// Ответ одинаковый независимо от того, существует ли пользователь.
	c.JSON(http.StatusAccepted, models.MessageResponse{Message: "Check your email for further instructions"})
}

// @Summary Установка нового пароля
// @Description Сбрасывает пароль по токену из письма и отзывает все refresh токены
// @Tags auth
// @Accept json
// @Produce json
// @Param token path string true "Токен из письма"
// @Param request body resetPasswordRequest true "Новый пароль"
// @Success 200 {object} MessageResponse "Пароль изменен"
// @Failure 400 {object} ErrorResponse "Неверные данные запроса"
// @Failure 422 {object} ErrorResponse "Неверный или истекший токен"
// @Router /auth/reset_password/{token} [post]
func (h *Handler) resetPassword(c *gin.Context) {
	token := c.Param("token")

	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), token, req.Password); err != nil {
		handleEmailTokenError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{Message: "Password has been reset successfully"})
}
