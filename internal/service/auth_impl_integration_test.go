package service_test // Используем _test пакет для изоляции

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"contacts-server/internal/config"
	"contacts-server/internal/database"
	"contacts-server/internal/interfaces"
	"contacts-server/internal/models"
	"contacts-server/internal/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	// Докер клиент для проверки доступности
	"github.com/docker/docker/client"
)

// captureMailer записывает токены из писем вместо реальной отправки по SMTP.
type captureMailer struct {
	mu                 sync.Mutex
	verificationTokens map[string]string
	resetTokens        map[string]string
}

func newCaptureMailer() *captureMailer {
	return &captureMailer{
		verificationTokens: make(map[string]string),
		resetTokens:        make(map[string]string),
	}
}

func (m *captureMailer) SendVerificationEmail(_ context.Context, to, _, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verificationTokens[to] = token
	return nil
}

func (m *captureMailer) SendPasswordResetEmail(_ context.Context, to, _, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetTokens[to] = token
	return nil
}

func (m *captureMailer) verificationToken(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verificationTokens[email]
}

func (m *captureMailer) resetToken(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resetTokens[email]
}

func (m *captureMailer) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verificationTokens = make(map[string]string)
	m.resetTokens = make(map[string]string)
}

// fakeAvatarStorage реализует AvatarStorage без обращения к S3.
type fakeAvatarStorage struct {
	mu   sync.Mutex
	keys []string
}

func (s *fakeAvatarStorage) Upload(_ context.Context, key, _ string, body io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	return "https://cdn.test.local/" + key, nil
}

func (s *fakeAvatarStorage) uploadedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.keys...)
}

// IntegrationTestSuite содержит состояние для наших интеграционных тестов
type IntegrationTestSuite struct {
	suite.Suite // Встраиваем testify suite для удобства
	ctx         context.Context
	pgContainer *postgres.PostgresContainer // Контейнер PostgreSQL
	rdContainer *tcredis.RedisContainer     // Контейнер Redis
	pgPool      *pgxpool.Pool               // Пул подключений к тестовой БД
	redisClient *redis.Client               // Клиент к тестовому Redis
	config      *config.Config              // Тестовая конфигурация
	userRepo    interfaces.UserRepository
	contactRepo interfaces.ContactRepository
	refreshRepo interfaces.RefreshTokenRepository
	blacklist   interfaces.TokenBlacklist
	userCache   interfaces.UserCache
	mailer      *captureMailer
	avatars     *fakeAvatarStorage

	authService    service.AuthService
	contactService service.ContactService
	logger         *zap.Logger
}

// SetupSuite выполняется один раз перед всеми тестами в наборе
func (s *IntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error

	// Настраиваем логгер для тестов
	s.logger, err = zap.NewDevelopment() // Простой логгер для тестов
	require.NoError(s.T(), err, "Failed to create logger for tests")
	s.logger.Info("Setting up integration test suite...")

	// Запускаем контейнер PostgreSQL
	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start postgres container")
	s.logger.Info("PostgreSQL container started")

	// Получаем DSN для подключения к тестовой БД
	pgConnStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get postgres connection string")

	// Подключаемся к тестовой БД
	s.pgPool, err = pgxpool.New(s.ctx, pgConnStr)
	require.NoError(s.T(), err, "Failed to connect to test postgres")
	s.logger.Info("Connected to test PostgreSQL")

	// Применяем встроенные миграции
	err = database.ApplyMigrations(s.pgPool)
	require.NoError(s.T(), err, "Failed to run migrations")
	s.logger.Info("Database migrations applied")

	// Запускаем контейнер Redis
	s.rdContainer, err = tcredis.Run(s.ctx,
		"docker.io/redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("* Ready to accept connections").
				WithOccurrence(1).
				WithStartupTimeout(1*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start redis container")
	s.logger.Info("Redis container started")

	// Получаем адрес Redis
	redisHost, err := s.rdContainer.Host(s.ctx)
	require.NoError(s.T(), err)
	redisPort, err := s.rdContainer.MappedPort(s.ctx, "6379/tcp")
	require.NoError(s.T(), err)
	redisAddr := fmt.Sprintf("%s:%s", redisHost, redisPort.Port())

	// Подключаемся к тестовому Redis
	s.redisClient = redis.NewClient(&redis.Options{Addr: redisAddr})
	_, err = s.redisClient.Ping(s.ctx).Result()
	require.NoError(s.T(), err, "Failed to connect to test redis")
	s.logger.Info("Connected to test Redis")

	// Создаем тестовую конфигурацию (нужные значения переопределяются в тестах)
	s.config = &config.Config{
		DBUser:        "testuser",
		DBPassword:    "testpass",
		DBName:        "test_db",
		DBSSLMode:     "disable",
		RedisAddr:     redisAddr,
		PublicBaseURL: "http://localhost:8080",
		// Короткие TTL для тестов
		AccessTokenTTL:  5 * time.Minute,
		RefreshTokenTTL: 10 * time.Minute,
		EmailTokenTTL:   10 * time.Minute,
		UserCacheTTL:    5 * time.Minute,
		// Секреты для тестов
		JWTSecret:      "test-jwt-secret",
		PasswordPepper: "test-pepper",
		Env:            "test",
		LogLevel:       "debug",
	}
	s.logger.Info("Test configuration created")

	// Инициализируем зависимости для сервисов
	s.userRepo = database.NewPgUserRepository(s.pgPool, s.logger)
	s.contactRepo = database.NewPgContactRepository(s.pgPool, s.logger)
	s.refreshRepo = database.NewPgRefreshTokenRepository(s.pgPool, s.logger)
	s.blacklist = database.NewRedisTokenBlacklist(s.redisClient, s.logger)
	s.userCache = database.NewRedisUserCache(s.redisClient, s.logger)
	s.mailer = newCaptureMailer()
	s.avatars = &fakeAvatarStorage{}

	s.authService = service.NewAuthService(s.userRepo, s.refreshRepo, s.blacklist, s.userCache, s.mailer, s.avatars, s.config, s.logger)
	s.contactService = service.NewContactService(s.contactRepo, s.logger)
	s.logger.Info("Services initialized for tests")

	s.logger.Info("Test suite setup complete.")
}

// TearDownSuite выполняется один раз после всех тестов в наборе
func (s *IntegrationTestSuite) TearDownSuite() {
	s.logger.Info("Tearing down integration test suite...")
	// Закрываем соединения
	if s.pgPool != nil {
		s.pgPool.Close()
	}
	if s.redisClient != nil {
		s.redisClient.Close()
	}
	// Останавливаем и удаляем контейнеры
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(s.ctx); err != nil {
			s.logger.Error("Failed to terminate postgres container", zap.Error(err))
		}
	}
	if s.rdContainer != nil {
		if err := s.rdContainer.Terminate(s.ctx); err != nil {
			s.logger.Error("Failed to terminate redis container", zap.Error(err))
		}
	}
	s.logger.Info("Test suite teardown complete.")
}

// Перед каждым тестом очищаем Redis и таблицы БД
func (s *IntegrationTestSuite) SetupTest() {
	// Очистка Redis (удаляем все ключи)
	err := s.redisClient.FlushDB(s.ctx).Err()
	require.NoError(s.T(), err, "Failed to flush Redis DB")

	// Очистка таблиц PostgreSQL (каскад затрагивает contacts и refresh_tokens)
	// ОСТОРОЖНО: НЕ запускать на production БД!
	_, err = s.pgPool.Exec(s.ctx, "TRUNCATE TABLE users RESTART IDENTITY CASCADE")
	require.NoError(s.T(), err, "Failed to truncate users table")

	// Забываем письма, отправленные предыдущим тестом
	s.mailer.reset()
}

// TestIntegrationTestSuite запускает набор тестов
func TestIntegrationTestSuite(t *testing.T) {
	// Пропускаем тесты, если запущены с флагом -short
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	// Проверяем доступность Docker перед запуском
	cli, err := client.NewClientWithOpts(client.FromEnv)
	if err != nil {
		t.Fatalf("Docker client init error: %v. Ensure Docker is running and accessible.", err)
	}
	if _, err := cli.Ping(context.Background()); err != nil {
		t.Fatalf("Docker daemon is not running or accessible: %v", err)
	}
	cli.Close()

	suite.Run(t, new(IntegrationTestSuite))
}

// --- Вспомогательные функции ---

// waitForVerificationToken дожидается фоновой отправки письма подтверждения.
func (s *IntegrationTestSuite) waitForVerificationToken(t *testing.T, email string) string {
	var token string
	require.Eventually(t, func() bool {
		token = s.mailer.verificationToken(email)
		return token != ""
	}, 5*time.Second, 20*time.Millisecond, "Verification email was not sent for %s", email)
	return token
}

// waitForResetToken дожидается фоновой отправки письма сброса пароля.
func (s *IntegrationTestSuite) waitForResetToken(t *testing.T, email string) string {
	var token string
	require.Eventually(t, func() bool {
		token = s.mailer.resetToken(email)
		return token != ""
	}, 5*time.Second, 20*time.Millisecond, "Password reset email was not sent for %s", email)
	return token
}

// registerAndConfirm регистрирует пользователя и подтверждает его email.
func (s *IntegrationTestSuite) registerAndConfirm(t *testing.T, username, email, password string) *models.User {
	user, err := s.authService.Register(s.ctx, username, email, password)
	require.NoError(t, err, "Register should succeed")

	token := s.waitForVerificationToken(t, email)
	alreadyConfirmed, err := s.authService.ConfirmEmail(s.ctx, token)
	require.NoError(t, err, "ConfirmEmail should succeed")
	require.False(t, alreadyConfirmed, "Email should not be confirmed before the first confirmation")
	return user
}

// --- Сами Тестовые Функции ---

func (s *IntegrationTestSuite) TestRegisterAndLogin_Success() {
	t := s.T() // Получаем *testing.T
	ctx := context.Background()
	username := "testuser1"
	password := "password123"
	email := "testuser1@example.com"

	// 1. Регистрация
	registeredUser, err := s.authService.Register(ctx, username, email, password)
	require.NoError(t, err, "Register should succeed")
	require.NotNil(t, registeredUser, "Registered user should not be nil")
	require.Equal(t, username, registeredUser.Username, "Username should match")
	require.Equal(t, email, registeredUser.Email, "Email should match")
	require.NotZero(t, registeredUser.ID, "User ID should be assigned")
	require.Equal(t, models.RoleUser, registeredUser.Role, "New user should get the default role")
	require.False(t, registeredUser.IsVerified, "New user should not be verified yet")
	require.NotEqual(t, password, registeredUser.PasswordHash, "Password should be stored hashed")
	require.NotNil(t, registeredUser.AvatarURL, "New user should get a Gravatar URL")
	require.Contains(t, *registeredUser.AvatarURL, "gravatar.com/avatar/", "Default avatar should point to Gravatar")

	// Попытка повторной регистрации с тем же username - должна быть ошибка
	_, err = s.authService.Register(ctx, username, "another@example.com", "anotherpassword")
	require.Error(t, err, "Registering existing user should fail")
	require.True(t, errors.Is(err, models.ErrUserAlreadyExists), "Error should be ErrUserAlreadyExists")

	// Попытка повторной регистрации с тем же email - должна быть ошибка
	_, err = s.authService.Register(ctx, "anotheruser", email, "anotherpassword")
	require.Error(t, err, "Registering with existing email should fail")
	require.True(t, errors.Is(err, models.ErrEmailAlreadyExists), "Error should be ErrEmailAlreadyExists")

	// 2. Логин до подтверждения email - должна быть ошибка
	_, err = s.authService.Login(ctx, email, password, "127.0.0.1", "go-test")
	require.Error(t, err, "Login before email confirmation should fail")
	require.True(t, errors.Is(err, models.ErrEmailNotVerified), "Error should be ErrEmailNotVerified")

	// 3. Подтверждаем email по токену из письма
	token := s.waitForVerificationToken(t, email)
	alreadyConfirmed, err := s.authService.ConfirmEmail(ctx, token)
	require.NoError(t, err, "ConfirmEmail should succeed")
	require.False(t, alreadyConfirmed)

	// 4. Логин
	tokens, err := s.authService.Login(ctx, email, password, "127.0.0.1", "go-test")
	require.NoError(t, err, "Login should succeed")
	require.NotNil(t, tokens, "Tokens should not be nil")
	require.NotEmpty(t, tokens.AccessToken, "Access token should not be empty")
	require.NotEmpty(t, tokens.RefreshToken, "Refresh token should not be empty")
	require.Equal(t, "bearer", tokens.TokenType, "Token type should be bearer")
	require.NotZero(t, tokens.AtExpires, "Access token expiration should be set")
	require.NotZero(t, tokens.RtExpires, "Refresh token expiration should be set")
	require.NotEmpty(t, tokens.AccessUUID, "Access UUID should not be empty")

	// Проверяем claims access токена
	claims, err := s.authService.VerifyAccessToken(ctx, tokens.AccessToken)
	require.NoError(t, err, "Fresh access token should verify")
	require.Equal(t, registeredUser.ID, claims.UserID, "User ID in claims should match")
	require.Equal(t, models.RoleUser, claims.Role, "Role in claims should match")
	require.Equal(t, tokens.AccessUUID, claims.ID, "jti should match AccessUUID")

	// Refresh токен сохранен в БД (по хешу), сам токен в БД не попадает
	var count int
	err = s.pgPool.QueryRow(ctx, "SELECT COUNT(*) FROM refresh_tokens WHERE user_id = $1", registeredUser.ID).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count, "Exactly one refresh token row should be stored")

	// 5. Логин с неверным паролем
	_, err = s.authService.Login(ctx, email, "wrongpassword", "127.0.0.1", "go-test")
	require.Error(t, err, "Login with wrong password should fail")
	require.True(t, errors.Is(err, models.ErrInvalidCredentials), "Error should be ErrInvalidCredentials")

	// 6. Логин несуществующего пользователя
	_, err = s.authService.Login(ctx, "nonexistent@example.com", "password", "127.0.0.1", "go-test")
	require.Error(t, err, "Login with non-existent user should fail")
	require.True(t, errors.Is(err, models.ErrInvalidCredentials), "Error should be ErrInvalidCredentials")
}

// Тест: Регистрация с невалидным форматом Email
func (s *IntegrationTestSuite) TestRegister_InvalidEmailFormat() {
	t := s.T()
	ctx := context.Background()

	_, err := s.authService.Register(ctx, "invalidemailuser", "not-an-email", "password123")
	require.Error(t, err, "Register with invalid email format should fail")
	require.True(t, errors.Is(err, models.ErrInvalidInput), "Error should be ErrInvalidInput")
}

// Тест: Email нормализуется при регистрации и логине
func (s *IntegrationTestSuite) TestRegister_EmailNormalized() {
	t := s.T()
	ctx := context.Background()

	user, err := s.authService.Register(ctx, "normalized", "  Normalized@EXAMPLE.com ", "password123")
	require.NoError(t, err)
	require.Equal(t, "normalized@example.com", user.Email, "Email should be lowercased and trimmed")

	s.waitForVerificationToken(t, "normalized@example.com")

	// Логин с другим регистром находит того же пользователя
	_, err = s.authService.Login(ctx, "NORMALIZED@example.COM", "wrongpassword", "", "")
	require.Error(t, err)
	require.True(t, errors.Is(err, models.ErrInvalidCredentials), "Lookup should find the user, then reject the password")
}

func (s *IntegrationTestSuite) TestRefresh_Success() {
	t := s.T()
	ctx := context.Background()
	email := "refresh@example.com"

	// 1. Регистрация, подтверждение и логин для получения токенов
	s.registerAndConfirm(t, "refreshuser", email, "refreshpass")
	tokens, err := s.authService.Login(ctx, email, "refreshpass", "127.0.0.1", "go-test")
	require.NoError(t, err)
	require.NotEmpty(t, tokens.RefreshToken)

	// Небольшая пауза, чтобы время создания токенов точно отличалось
	time.Sleep(10 * time.Millisecond)

	// 2. Обновление токенов
	newTokens, err := s.authService.Refresh(ctx, tokens.RefreshToken, "127.0.0.1", "go-test")
	require.NoError(t, err, "Refresh should succeed")
	require.NotNil(t, newTokens, "New tokens should not be nil")
	require.NotEmpty(t, newTokens.AccessToken, "New access token should not be empty")
	require.NotEmpty(t, newTokens.RefreshToken, "New refresh token should not be empty")
	require.NotEqual(t, tokens.AccessToken, newTokens.AccessToken, "Access tokens should be different")
	require.NotEqual(t, tokens.RefreshToken, newTokens.RefreshToken, "Refresh tokens should be different")
	require.NotEqual(t, tokens.AccessUUID, newTokens.AccessUUID, "Access UUIDs should be different")

	// 3. Повторное использование старого refresh токена - ротация уже отозвала его
	_, err = s.authService.Refresh(ctx, tokens.RefreshToken, "127.0.0.1", "go-test")
	require.Error(t, err, "Reusing a rotated refresh token should fail")
	require.True(t, errors.Is(err, models.ErrTokenRevoked), "Error should be ErrTokenRevoked")

	// 4. Повторное использование отзывает ВСЕ токены пользователя, включая новые
	_, err = s.authService.Refresh(ctx, newTokens.RefreshToken, "127.0.0.1", "go-test")
	require.Error(t, err, "Refresh token issued in the same session set should be revoked after reuse detection")
	require.True(t, errors.Is(err, models.ErrTokenRevoked), "Error should be ErrTokenRevoked")

	// 5. После повторного логина цепочка снова работает
	tokens, err = s.authService.Login(ctx, email, "refreshpass", "127.0.0.1", "go-test")
	require.NoError(t, err)
	_, err = s.authService.Refresh(ctx, tokens.RefreshToken, "127.0.0.1", "go-test")
	require.NoError(t, err, "Refresh should work again after a fresh login")
}

func (s *IntegrationTestSuite) TestRefresh_InvalidToken() {
	t := s.T()
	ctx := context.Background()

	// 1. Пустой токен
	_, err := s.authService.Refresh(ctx, "", "", "")
	require.Error(t, err, "Refresh with empty token should fail")
	require.True(t, errors.Is(err, models.ErrTokenInvalid), "Error should be ErrTokenInvalid")

	// 2. Неизвестный токен (нет такого хеша в БД)
	_, err = s.authService.Refresh(ctx, "this-token-was-never-issued", "", "")
	require.Error(t, err, "Refresh with unknown token should fail")
	require.True(t, errors.Is(err, models.ErrTokenInvalid), "Error should be ErrTokenInvalid")
}

func (s *IntegrationTestSuite) TestRefresh_ExpiredToken() {
	t := s.T()
	ctx := context.Background()
	email := "expiredrefresh@example.com"

	// Отрицательный TTL: выданный refresh токен сразу истекший
	originalTTL := s.config.RefreshTokenTTL
	s.config.RefreshTokenTTL = -1 * time.Minute
	defer func() { s.config.RefreshTokenTTL = originalTTL }()

	s.registerAndConfirm(t, "expiredrefreshuser", email, "password123")
	tokens, err := s.authService.Login(ctx, email, "password123", "", "")
	require.NoError(t, err, "Login should succeed even if the refresh token is already expired")

	_, err = s.authService.Refresh(ctx, tokens.RefreshToken, "", "")
	require.Error(t, err, "Refresh with expired token should fail")
	require.True(t, errors.Is(err, models.ErrTokenExpired), "Error should be ErrTokenExpired")
}

func (s *IntegrationTestSuite) TestVerifyAccessToken_Expired() {
	t := s.T()
	ctx := context.Background()
	email := "expiredaccess@example.com"

	// Отрицательный TTL: access токен рождается истекшим
	originalTTL := s.config.AccessTokenTTL
	s.config.AccessTokenTTL = -1 * time.Minute
	defer func() { s.config.AccessTokenTTL = originalTTL }()

	s.registerAndConfirm(t, "expiredaccessuser", email, "password123")
	tokens, err := s.authService.Login(ctx, email, "password123", "", "")
	require.NoError(t, err)

	_, err = s.authService.VerifyAccessToken(ctx, tokens.AccessToken)
	require.Error(t, err, "Expired access token should fail verification")
	require.True(t, errors.Is(err, models.ErrTokenExpired), "Error should be ErrTokenExpired")
}

func (s *IntegrationTestSuite) TestLogout() {
	t := s.T()
	ctx := context.Background()
	email := "logout@example.com"

	// 1. Логин
	s.registerAndConfirm(t, "logoutuser", email, "password123")
	tokens, err := s.authService.Login(ctx, email, "password123", "127.0.0.1", "go-test")
	require.NoError(t, err)

	// Токен работает до логаута
	_, err = s.authService.VerifyAccessToken(ctx, tokens.AccessToken)
	require.NoError(t, err, "Access token should verify before logout")

	// 2. Логаут
	accessExpiresAt := time.Unix(tokens.AtExpires, 0)
	err = s.authService.Logout(ctx, tokens.AccessUUID, accessExpiresAt, tokens.RefreshToken)
	require.NoError(t, err, "Logout should succeed")

	// 3. Access токен в черном списке
	_, err = s.authService.VerifyAccessToken(ctx, tokens.AccessToken)
	require.Error(t, err, "Access token should be rejected after logout")
	require.True(t, errors.Is(err, models.ErrTokenRevoked), "Error should be ErrTokenRevoked")

	// 4. Refresh токен отозван
	_, err = s.authService.Refresh(ctx, tokens.RefreshToken, "127.0.0.1", "go-test")
	require.Error(t, err, "Refresh token should be rejected after logout")
	require.True(t, errors.Is(err, models.ErrTokenRevoked), "Error should be ErrTokenRevoked")

	// 5. Повторный логаут с теми же токенами не является ошибкой
	err = s.authService.Logout(ctx, tokens.AccessUUID, accessExpiresAt, tokens.RefreshToken)
	require.NoError(t, err, "Logout should be idempotent")

	// 6. Логаут с неизвестным refresh токеном тоже проходит
	err = s.authService.Logout(ctx, uuid.NewString(), time.Now().Add(time.Minute), "unknown-refresh-token")
	require.NoError(t, err, "Logout with unknown refresh token should not fail")
}

func (s *IntegrationTestSuite) TestGetUserByID_Cache() {
	t := s.T()
	ctx := context.Background()
	email := "cached@example.com"

	user := s.registerAndConfirm(t, "cacheduser", email, "password123")

	// 1. Первое чтение кладет пользователя в кеш
	got, err := s.authService.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "cacheduser", got.Username)

	// 2. Меняем имя напрямую в БД, сервис должен продолжать отдавать кеш
	_, err = s.pgPool.Exec(ctx, "UPDATE users SET username = 'renamed' WHERE id = $1", user.ID)
	require.NoError(t, err)

	got, err = s.authService.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "cacheduser", got.Username, "Second read should be served from the cache")

	// 3. После инвалидации кеша виден свежий пользователь
	err = s.userCache.InvalidateUser(ctx, user.ID)
	require.NoError(t, err)

	got, err = s.authService.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "renamed", got.Username, "Read after invalidation should hit the database")

	// 4. Несуществующий пользователь
	_, err = s.authService.GetUserByID(ctx, uuid.New())
	require.Error(t, err)
	require.True(t, errors.Is(err, models.ErrUserNotFound), "Error should be ErrUserNotFound")
}

func (s *IntegrationTestSuite) TestConfirmEmail_Idempotent() {
	t := s.T()
	ctx := context.Background()
	email := "confirmtwice@example.com"

	_, err := s.authService.Register(ctx, "confirmtwice", email, "password123")
	require.NoError(t, err)
	token := s.waitForVerificationToken(t, email)

	// 1. Первое подтверждение
	alreadyConfirmed, err := s.authService.ConfirmEmail(ctx, token)
	require.NoError(t, err)
	require.False(t, alreadyConfirmed, "First confirmation should report not-yet-confirmed")

	// 2. Повторное подтверждение тем же токеном
	alreadyConfirmed, err = s.authService.ConfirmEmail(ctx, token)
	require.NoError(t, err, "Second confirmation should not fail")
	require.True(t, alreadyConfirmed, "Second confirmation should report already-confirmed")

	// 3. Повторный запрос письма для подтвержденного адреса
	alreadyConfirmed, err = s.authService.RequestEmailVerification(ctx, email)
	require.NoError(t, err)
	require.True(t, alreadyConfirmed)

	// 4. Запрос письма для неизвестного адреса не раскрывает его отсутствие
	alreadyConfirmed, err = s.authService.RequestEmailVerification(ctx, "unknown@example.com")
	require.NoError(t, err, "Requesting verification for unknown email should not fail")
	require.False(t, alreadyConfirmed)
	time.Sleep(50 * time.Millisecond)
	require.Empty(t, s.mailer.verificationToken("unknown@example.com"), "No email should be sent to an unknown address")
}

func (s *IntegrationTestSuite) TestConfirmEmail_BadTokens() {
	t := s.T()
	ctx := context.Background()

	// 1. Мусор вместо токена
	_, err := s.authService.ConfirmEmail(ctx, "garbage-token")
	require.Error(t, err)
	require.True(t, errors.Is(err, models.ErrTokenMalformed), "Error should be ErrTokenMalformed")

	// 2. Access токен не принимается как почтовый (другой scope)
	email := "scopecheck@example.com"
	s.registerAndConfirm(t, "scopecheck", email, "password123")
	tokens, err := s.authService.Login(ctx, email, "password123", "", "")
	require.NoError(t, err)

	_, err = s.authService.ConfirmEmail(ctx, tokens.AccessToken)
	require.Error(t, err, "Access token should not work as an email token")
	require.True(t, errors.Is(err, models.ErrEmailTokenScope), "Error should be ErrEmailTokenScope")

	// 3. Истекший почтовый токен
	originalTTL := s.config.EmailTokenTTL
	s.config.EmailTokenTTL = -1 * time.Minute
	defer func() { s.config.EmailTokenTTL = originalTTL }()

	expiredEmail := "expiredmail@example.com"
	_, err = s.authService.Register(ctx, "expiredmail", expiredEmail, "password123")
	require.NoError(t, err)
	expiredToken := s.waitForVerificationToken(t, expiredEmail)

	_, err = s.authService.ConfirmEmail(ctx, expiredToken)
	require.Error(t, err, "Expired email token should be rejected")
	require.True(t, errors.Is(err, models.ErrTokenExpired), "Error should be ErrTokenExpired")

	// 4. Токен валиден, но пользователя уже нет
	s.config.EmailTokenTTL = originalTTL
	goneEmail := "gone@example.com"
	_, err = s.authService.Register(ctx, "goneuser", goneEmail, "password123")
	require.NoError(t, err)
	goneToken := s.waitForVerificationToken(t, goneEmail)

	_, err = s.pgPool.Exec(ctx, "DELETE FROM users WHERE email = $1", goneEmail)
	require.NoError(t, err)

	_, err = s.authService.ConfirmEmail(ctx, goneToken)
	require.Error(t, err)
	require.True(t, errors.Is(err, models.ErrUserNotFound), "Error should be ErrUserNotFound")
}

func (s *IntegrationTestSuite) TestPasswordReset_Flow() {
	t := s.T()
	ctx := context.Background()
	email := "resetme@example.com"
	oldPassword := "oldpassword123"
	newPassword := "newpassword456"

	// 1. Подготовка: пользователь с активной сессией
	s.registerAndConfirm(t, "resetme", email, oldPassword)
	tokens, err := s.authService.Login(ctx, email, oldPassword, "127.0.0.1", "go-test")
	require.NoError(t, err)

	// 2. Запрос сброса пароля
	err = s.authService.RequestPasswordReset(ctx, email)
	require.NoError(t, err, "RequestPasswordReset should succeed")
	resetToken := s.waitForResetToken(t, email)

	// Неизвестный email не является ошибкой и не порождает письмо
	err = s.authService.RequestPasswordReset(ctx, "unknown@example.com")
	require.NoError(t, err, "RequestPasswordReset for unknown email should not fail")
	time.Sleep(50 * time.Millisecond)
	require.Empty(t, s.mailer.resetToken("unknown@example.com"))

	// 3. Сброс пароля по токену
	err = s.authService.ResetPassword(ctx, resetToken, newPassword)
	require.NoError(t, err, "ResetPassword should succeed")

	// 4. Старый пароль больше не работает, новый работает
	_, err = s.authService.Login(ctx, email, oldPassword, "", "")
	require.Error(t, err, "Old password should be rejected after reset")
	require.True(t, errors.Is(err, models.ErrInvalidCredentials), "Error should be ErrInvalidCredentials")

	_, err = s.authService.Login(ctx, email, newPassword, "", "")
	require.NoError(t, err, "New password should work after reset")

	// 5. Все старые refresh токены отозваны сбросом
	_, err = s.authService.Refresh(ctx, tokens.RefreshToken, "", "")
	require.Error(t, err, "Refresh tokens issued before the reset should be revoked")
	require.True(t, errors.Is(err, models.ErrTokenRevoked), "Error should be ErrTokenRevoked")

	// 6. Истекший токен сброса отклоняется
	originalTTL := s.config.EmailTokenTTL
	s.config.EmailTokenTTL = -1 * time.Minute
	defer func() { s.config.EmailTokenTTL = originalTTL }()

	s.mailer.reset()
	err = s.authService.RequestPasswordReset(ctx, email)
	require.NoError(t, err)
	expiredToken := s.waitForResetToken(t, email)

	err = s.authService.ResetPassword(ctx, expiredToken, "anotherpassword789")
	require.Error(t, err, "Expired reset token should be rejected")
	require.True(t, errors.Is(err, models.ErrTokenExpired), "Error should be ErrTokenExpired")
}

func (s *IntegrationTestSuite) TestUpdateAvatar() {
	t := s.T()
	ctx := context.Background()
	email := "avatar@example.com"

	user := s.registerAndConfirm(t, "avataruser", email, "password123")

	// Прогреваем кеш, чтобы проверить инвалидацию после загрузки
	_, err := s.authService.GetUserByID(ctx, user.ID)
	require.NoError(t, err)

	// 1. Загрузка аватара
	updated, err := s.authService.UpdateAvatar(ctx, user.ID, strings.NewReader("fake-image-bytes"), "image/png")
	require.NoError(t, err, "UpdateAvatar should succeed")
	require.NotNil(t, updated.AvatarURL)
	require.Equal(t, "https://cdn.test.local/avatars/avataruser", *updated.AvatarURL, "Avatar URL should come from storage")
	require.Contains(t, s.avatars.uploadedKeys(), "avatars/avataruser", "Object key should be derived from the username")

	// 2. Кеш инвалидирован: чтение возвращает новый URL
	got, err := s.authService.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AvatarURL)
	require.Equal(t, *updated.AvatarURL, *got.AvatarURL, "Cached user should be refreshed after avatar update")

	// 3. Несуществующий пользователь
	_, err = s.authService.UpdateAvatar(ctx, uuid.New(), strings.NewReader("x"), "image/png")
	require.Error(t, err)
	require.True(t, errors.Is(err, models.ErrUserNotFound), "Error should be ErrUserNotFound")
}

func (s *IntegrationTestSuite) TestPurgeStaleTokens() {
	t := s.T()
	ctx := context.Background()
	email := "purge@example.com"

	user := s.registerAndConfirm(t, "purgeuser", email, "password123")

	// Живой токен
	live := &models.RefreshToken{UserID: user.ID, TokenHash: "live-hash", ExpiredAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.refreshRepo.CreateToken(ctx, live))

	// Истекший токен
	expired := &models.RefreshToken{UserID: user.ID, TokenHash: "expired-hash", ExpiredAt: time.Now().Add(-time.Hour)}
	require.NoError(t, s.refreshRepo.CreateToken(ctx, expired))

	// Токен, отозванный двое суток назад
	oldRevoked := &models.RefreshToken{UserID: user.ID, TokenHash: "old-revoked-hash", ExpiredAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.refreshRepo.CreateToken(ctx, oldRevoked))
	_, err := s.pgPool.Exec(ctx, "UPDATE refresh_tokens SET revoked_at = NOW() - INTERVAL '48 hours' WHERE id = $1", oldRevoked.ID)
	require.NoError(t, err)

	// Недавно отозванный токен должен пережить чистку (retention 24 часа)
	freshRevoked := &models.RefreshToken{UserID: user.ID, TokenHash: "fresh-revoked-hash", ExpiredAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.refreshRepo.CreateToken(ctx, freshRevoked))
	require.NoError(t, s.refreshRepo.RevokeToken(ctx, freshRevoked.ID))

	// 1. Чистка удаляет истекший и давно отозванный токены
	purged, err := s.refreshRepo.PurgeStale(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.EqualValues(t, 2, purged, "Expired and long-revoked tokens should be purged")

	// 2. Живой и недавно отозванный остались
	_, err = s.refreshRepo.GetTokenByHash(ctx, "live-hash")
	require.NoError(t, err, "Live token should survive the purge")
	_, err = s.refreshRepo.GetTokenByHash(ctx, "fresh-revoked-hash")
	require.NoError(t, err, "Recently revoked token should survive the purge")

	_, err = s.refreshRepo.GetTokenByHash(ctx, "expired-hash")
	require.Error(t, err)
	require.True(t, errors.Is(err, models.ErrTokenNotFound))
}

func (s *IntegrationTestSuite) TestTokenCleanupJob() {
	t := s.T()
	ctx := context.Background()
	email := "cleanupjob@example.com"

	user := s.registerAndConfirm(t, "cleanupjobuser", email, "password123")

	expired := &models.RefreshToken{UserID: user.ID, TokenHash: "job-expired-hash", ExpiredAt: time.Now().Add(-time.Hour)}
	require.NoError(t, s.refreshRepo.CreateToken(ctx, expired))

	// Запускаем фоновую чистку с коротким интервалом
	job := service.NewTokenCleanupJob(s.refreshRepo, 20*time.Millisecond, 24*time.Hour, s.logger)
	job.Start()
	defer job.Stop()

	require.Eventually(t, func() bool {
		_, err := s.refreshRepo.GetTokenByHash(ctx, "job-expired-hash")
		return errors.Is(err, models.ErrTokenNotFound)
	}, 5*time.Second, 50*time.Millisecond, "Cleanup job should purge the expired token")
}
