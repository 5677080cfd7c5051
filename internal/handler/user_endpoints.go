package handler

import (
	"errors"
	"fmt"
	"net/http"

	"contacts-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// @Summary Получение информации о текущем пользователе
// @Description Возвращает пользователя по access токену, отдается из кеша
// @Tags users
// @Accept json
// @Produce json
// @Success 200 {object} userResponse "Информация о пользователе"
// @Failure 401 {object} ErrorResponse "Неавторизован"
// @Failure 429 {object} ErrorResponse "Превышен лимит запросов"
// @Security BearerAuth
// @Router /users/me [get]
func (h *Handler) getMe(c *gin.Context) {
	user, err := getCurrentUserFromContext(c)
	if err != nil {
		return
	}

	zap.L().Debug("Handling /me request", zap.String("userID", user.ID.String()))

	c.JSON(http.StatusOK, toUserResponse(user))
}

// @Summary Подтверждение электронной почты
// @Description Подтверждает почту по токену из письма, повторный вызов безопасен
// @Tags users
// @Produce json
// @Param token path string true "Токен из письма"
// @Success 200 {object} MessageResponse "Результат подтверждения"
// @Failure 400 {object} ErrorResponse "Пользователь не найден"
// @Failure 422 {object} ErrorResponse "Неверный или истекший токен"
// @Router /users/confirmed_email/{token} [get]
func (h *Handler) confirmEmail(c *gin.Context) {
	token := c.Param("token")

	alreadyConfirmed, err := h.authService.ConfirmEmail(c.Request.Context(), token)
	if err != nil {
		// Токен валиден, но пользователя с таким email нет.
		if errors.Is(err, models.ErrUserNotFound) {
			c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Verification error"})
			return
		}
		handleEmailTokenError(c, err)
		return
	}

	if alreadyConfirmed {
		c.JSON(http.StatusOK, models.MessageResponse{Message: "Your email is already confirmed"})
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Email confirmed"})
}

// @Summary Повторная отправка письма подтверждения
// @Description Отправляет новое письмо, если почта еще не подтверждена
// @Tags users
// @Accept json
// @Produce json
// @Param request body requestEmailRequest true "Email пользователя"
// @Success 201 {object} MessageResponse "Письмо отправлено"
// @Failure 400 {object} ErrorResponse "Неверные данные запроса"
// @Router /users/request_email [post]
func (h *Handler) requestEmail(c *gin.Context) {
	var req requestEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}

	alreadyConfirmed, err := h.authService.RequestEmailVerification(c.Request.Context(), req.Email)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	if alreadyConfirmed {
		c.JSON(http.StatusCreated, models.MessageResponse{Message: "Your email is already confirmed"})
		return
	}
	c.JSON(http.StatusCreated, models.MessageResponse{Message: "Check your email for confirmation"})
}

// @Summary Обновление аватара
// @Description Загружает файл в хранилище и сохраняет публичный URL
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Файл изображения"
// @Success 200 {object} userResponse "Обновленный пользователь"
// @Failure 400 {object} ErrorResponse "Файл не передан"
// @Failure 401 {object} ErrorResponse "Неавторизован"
// @Failure 403 {object} ErrorResponse "Недостаточно прав"
// @Security BearerAuth
// @Router /users/avatar [patch]
func (h *Handler) updateAvatar(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Missing or invalid file field: " + err.Error()})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		zap.L().Error("Failed to open uploaded avatar file", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	user, err := h.authService.UpdateAvatar(c.Request.Context(), userID, file, contentType)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	avatarUploadsTotal.Inc()
	zap.L().Info("Avatar updated", zap.String("userID", userID.String()), zap.String("filename", fileHeader.Filename))

	c.JSON(http.StatusOK, toUserResponse(user))
}

func (h *Handler) readModerator(c *gin.Context) {
	user, err := getCurrentUserFromContext(c)
	if err != nil {
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{
		Message: fmt.Sprintf("Welcome, %s! This route is for moderators and administrators", user.Username),
	})
}

func (h *Handler) readAdmin(c *gin.Context) {
	user, err := getCurrentUserFromContext(c)
	if err != nil {
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{
		Message: fmt.Sprintf("Welcome, %s! This is an administrative route", user.Username),
	})
}
