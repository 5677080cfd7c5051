package handler

import (
	"net/http"

	"contacts-server/internal/models"
	"contacts-server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Handler struct {
	authService    service.AuthService
	contactService service.ContactService
	db             *pgxpool.Pool
}

func NewHandler(authService service.AuthService, contactService service.ContactService, db *pgxpool.Pool) *Handler {
	return &Handler{
		authService:    authService,
		contactService: contactService,
		db:             db,
	}
}

// RegisterRoutes вешает все маршруты приложения на роутер.
// rateLimitMiddleware применяется только к /api/users/me.
func (h *Handler) RegisterRoutes(router *gin.Engine, rateLimitMiddleware gin.HandlerFunc) {
	router.GET("/", h.root)
	router.GET("/api/healthchecker", h.healthchecker)

	authGroup := router.Group("/api/auth")
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
		authGroup.POST("/refresh", h.refresh)
		authGroup.POST("/logout", h.AuthMiddleware(), h.logout)
		authGroup.POST("/request_password_reset", h.requestPasswordReset)
		authGroup.POST("/reset_password/:token", h.resetPassword)
	}

	usersGroup := router.Group("/api/users")
	{
		usersGroup.GET("/me", rateLimitMiddleware, h.AuthMiddleware(), h.getMe)
		usersGroup.GET("/confirmed_email/:token", h.confirmEmail)
		usersGroup.POST("/request_email", h.requestEmail)
		usersGroup.PATCH("/avatar", h.AuthMiddleware(), h.RequireRole(models.RoleAdmin), h.updateAvatar)
		usersGroup.GET("/moderator", h.AuthMiddleware(), h.RequireRole(models.RoleModerator, models.RoleAdmin), h.readModerator)
		usersGroup.GET("/admin", h.AuthMiddleware(), h.RequireRole(models.RoleAdmin), h.readAdmin)
	}

	contactsGroup := router.Group("/api/contacts")
	contactsGroup.Use(h.AuthMiddleware())
	{
		contactsGroup.GET("", h.listContacts)
		contactsGroup.GET("/search", h.searchContacts)
		contactsGroup.GET("/upcoming_birthdays", h.upcomingBirthdays)
		contactsGroup.GET("/:id", h.getContact)
		contactsGroup.POST("", h.createContact)
		contactsGroup.PUT("/:id", h.updateContact)
		contactsGroup.DELETE("/:id", h.deleteContact)
	}
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Contacts Application v1.0"})
}

// @Summary Проверка работоспособности
// @Description Выполняет простой запрос к базе данных для проверки соединения
// @Tags service
// @Produce json
// @Success 200 {object} map[string]interface{} "База данных доступна"
// @Failure 500 {object} ErrorResponse "Ошибка соединения с базой данных"
// @Router /healthchecker [get]
func (h *Handler) healthchecker(c *gin.Context) {
	var result int
	if err := h.db.QueryRow(c.Request.Context(), "SELECT 1").Scan(&result); err != nil {
		zap.L().Error("Healthchecker database query failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    models.ErrCodeInternal,
			Message: "Error connecting to the database",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to Contacts API!"})
}
