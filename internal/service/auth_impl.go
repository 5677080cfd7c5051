package service

import (
	"context"
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"contacts-server/internal/config"
	"contacts-server/internal/interfaces"
	"contacts-server/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer     = "contacts-server"
	tokenTypeBearer = "bearer"

	// Размер refresh токена в байтах до base64url кодирования
	refreshTokenBytes = 32

	mailSendTimeout = 30 * time.Second
)

// Compile-time check to ensure authServiceImpl implements AuthService
var _ AuthService = (*authServiceImpl)(nil)

// authServiceImpl implements the AuthService interface.
type authServiceImpl struct {
	userRepo    interfaces.UserRepository
	refreshRepo interfaces.RefreshTokenRepository
	blacklist   interfaces.TokenBlacklist
	userCache   interfaces.UserCache
	mailer      Mailer
	avatars     AvatarStorage
	cfg         *config.Config
	logger      *zap.Logger
}

// NewAuthService creates a new instance of authServiceImpl.
func NewAuthService(
	userRepo interfaces.UserRepository,
	refreshRepo interfaces.RefreshTokenRepository,
	blacklist interfaces.TokenBlacklist,
	userCache interfaces.UserCache,
	mailer Mailer,
	avatars AvatarStorage,
	cfg *config.Config,
	logger *zap.Logger,
) AuthService {
	return &authServiceImpl{
		userRepo:    userRepo,
		refreshRepo: refreshRepo,
		blacklist:   blacklist,
		userCache:   userCache,
		mailer:      mailer,
		avatars:     avatars,
		cfg:         cfg,
		logger:      logger.Named("AuthService"),
	}
}

// Register creates a new user and sends the verification email in background.
func (s *authServiceImpl) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	// Приводим email к нижнему регистру и убираем пробелы
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	logFields := []zap.Field{zap.String("username", username), zap.String("email", email)}
	s.logger.Info("Registering new user", logFields...)

	// Валидация формата email (простая)
	if _, err := mail.ParseAddress(email); err != nil {
		s.logger.Warn("Registration attempt with invalid email format", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("invalid email format: %w", models.ErrInvalidInput)
	}

	if username == "" || password == "" {
		s.logger.Warn("Registration attempt with empty username or password", logFields...)
		return nil, models.ErrInvalidInput
	}

	// Проверка существования пользователя по username
	existingUser, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, models.ErrUserNotFound) {
		s.logger.Error("Error checking existing username during registration", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("error checking existing username: %w", err)
	}
	if existingUser != nil {
		s.logger.Warn("Registration attempt for existing username", logFields...)
		return nil, models.ErrUserAlreadyExists
	}

	// Проверка существования пользователя по email
	existingUser, err = s.userRepo.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, models.ErrUserNotFound) {
		s.logger.Error("Error checking existing email during registration", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("error checking existing email: %w", err)
	}
	if existingUser != nil {
		s.logger.Warn("Registration attempt for existing email", logFields...)
		return nil, models.ErrEmailAlreadyExists
	}

	// Используем перец перед хешированием
	hashedPassword, err := hashPassword(password, s.cfg.PasswordPepper)
	if err != nil {
		s.logger.Error("Failed to hash password during registration", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	avatarURL := gravatarURL(email)
	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         models.RoleUser,
		IsVerified:   false,
		AvatarURL:    &avatarURL,
	}

	err = s.userRepo.CreateUser(ctx, user)
	if err != nil {
		// Ошибки уникальности (ErrUserAlreadyExists, ErrEmailAlreadyExists)
		// уже обработаны репозиторием
		if !errors.Is(err, models.ErrUserAlreadyExists) && !errors.Is(err, models.ErrEmailAlreadyExists) {
			s.logger.Error("Failed to create user via repository", append(logFields, zap.Error(err))...)
		}
		return nil, err
	}

	// Письмо с подтверждением уходит в фоне, регистрацию не блокируем
	s.sendVerificationEmailAsync(user)

	s.logger.Info("User registered successfully", zap.String("userID", user.ID.String()), zap.String("username", user.Username), zap.String("email", user.Email))
	return user, nil
}

// Login authenticates a user by email and returns token details.
func (s *authServiceImpl) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*models.TokenDetails, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.logger.Info("Login attempt", zap.String("email", email))

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			s.logger.Warn("Login failed: user not found", zap.String("email", email))
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("Login failed: error getting user from repository", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	// Используем перец при проверке
	if !checkPasswordHash(password, user.PasswordHash, s.cfg.PasswordPepper) {
		s.logger.Warn("Login failed: invalid password", zap.String("email", email), zap.String("userID", user.ID.String()))
		return nil, models.ErrInvalidCredentials
	}

	// Неподтвержденный email не пускаем
	if !user.IsVerified {
		s.logger.Warn("Login failed: email not confirmed", zap.String("email", email), zap.String("userID", user.ID.String()))
		return nil, models.ErrEmailNotVerified
	}

	td, err := s.createTokens(ctx, user, ipAddress, userAgent)
	if err != nil {
		s.logger.Error("Failed to create tokens during login", zap.Error(err), zap.String("userID", user.ID.String()))
		return nil, fmt.Errorf("failed to create tokens: %w", err)
	}

	s.logger.Info("User logged in successfully", zap.String("userID", user.ID.String()))
	return td, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued. Reuse of a revoked token revokes the whole user session set.
func (s *authServiceImpl) Refresh(ctx context.Context, refreshToken, ipAddress, userAgent string) (*models.TokenDetails, error) {
	s.logger.Info("Token refresh attempt") // Не логируем сам токен

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, models.ErrTokenInvalid
	}

	row, err := s.refreshRepo.GetTokenByHash(ctx, hashRefreshToken(refreshToken))
	if err != nil {
		if errors.Is(err, models.ErrTokenNotFound) {
			s.logger.Warn("Refresh attempt with unknown token")
			return nil, models.ErrTokenInvalid
		}
		s.logger.Error("Error checking refresh token existence via repository", zap.Error(err))
		return nil, fmt.Errorf("error checking refresh token existence: %w", err)
	}

	log := s.logger.With(zap.String("userID", row.UserID.String()), zap.String("tokenID", row.ID.String()))

	if row.RevokedAt != nil {
		// Повторное использование отозванного токена: ревокация всей сессии
		log.Warn("Refresh attempt with revoked token, revoking all user tokens")
		if _, revErr := s.refreshRepo.RevokeAllForUser(ctx, row.UserID); revErr != nil {
			log.Error("Failed to revoke user tokens after refresh token reuse", zap.Error(revErr))
		}
		return nil, models.ErrTokenRevoked
	}

	if !row.ExpiredAt.After(time.Now()) {
		log.Warn("Refresh attempt with expired token")
		return nil, models.ErrTokenExpired
	}

	user, err := s.userRepo.GetUserByID(ctx, row.UserID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			log.Warn("User from refresh token not found in DB")
			return nil, models.ErrTokenInvalid
		}
		log.Error("Failed to get user by ID during token refresh", zap.Error(err))
		return nil, fmt.Errorf("failed to get user for refresh: %w", err)
	}

	// Сначала отзываем старый токен. RevokeToken затрагивает только строки с
	// revoked_at IS NULL, поэтому конкурентный повтор получит ErrTokenNotFound.
	if err := s.refreshRepo.RevokeToken(ctx, row.ID); err != nil {
		if errors.Is(err, models.ErrTokenNotFound) {
			log.Warn("Concurrent refresh token reuse detected")
			return nil, models.ErrTokenRevoked
		}
		log.Error("Failed to revoke old refresh token during rotation", zap.Error(err))
		return nil, fmt.Errorf("failed to revoke old refresh token: %w", err)
	}

	newTd, err := s.createTokens(ctx, user, ipAddress, userAgent)
	if err != nil {
		log.Error("Failed to create new tokens during refresh", zap.Error(err))
		return nil, fmt.Errorf("failed to create new tokens during refresh: %w", err)
	}

	log.Info("Token refreshed successfully")
	return newTd, nil
}

// Logout blacklists the access token until its natural expiry and revokes the
// presented refresh token. Missing tokens are not an error.
func (s *authServiceImpl) Logout(ctx context.Context, accessUUID string, accessExpiresAt time.Time, refreshToken string) error {
	log := s.logger.With(zap.String("accessUUID", accessUUID))
	log.Debug("Attempting to logout user")

	if err := s.blacklist.BlacklistAccessToken(ctx, accessUUID, time.Until(accessExpiresAt)); err != nil {
		log.Error("Failed to blacklist access token during logout", zap.Error(err))
		return fmt.Errorf("failed to blacklist access token: %w", err)
	}

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken != "" {
		row, err := s.refreshRepo.GetTokenByHash(ctx, hashRefreshToken(refreshToken))
		if err != nil {
			if !errors.Is(err, models.ErrTokenNotFound) {
				log.Error("Failed to look up refresh token during logout", zap.Error(err))
				return fmt.Errorf("failed to look up refresh token: %w", err)
			}
			// Токена нет: уже отозван или истек, считаем выход успешным
			log.Debug("No refresh token found to revoke during logout")
		} else if err := s.refreshRepo.RevokeToken(ctx, row.ID); err != nil && !errors.Is(err, models.ErrTokenNotFound) {
			log.Error("Failed to revoke refresh token during logout", zap.Error(err))
			return fmt.Errorf("failed to revoke refresh token: %w", err)
		}
	}

	log.Info("User logged out successfully")
	return nil
}

// VerifyAccessToken parses and validates an access token string.
func (s *authServiceImpl) VerifyAccessToken(ctx context.Context, tokenString string) (*models.Claims, error) {
	s.logger.Debug("Verifying access token") // Не логируем сам токен
	token, err := jwt.ParseWithClaims(tokenString, &models.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			s.logger.Debug("Access token verification failed: expired")
			return nil, models.ErrTokenExpired
		}
		if errors.Is(err, jwt.ErrTokenMalformed) {
			s.logger.Warn("Access token verification failed: malformed")
			return nil, models.ErrTokenMalformed
		}
		s.logger.Error("Failed to parse access token", zap.Error(err))
		return nil, models.ErrTokenInvalid // Общая ошибка на остальные случаи парсинга
	}

	claims, ok := token.Claims.(*models.Claims)
	if !ok || !token.Valid {
		s.logger.Warn("Access token verification failed (invalid claims type or signature)")
		return nil, models.ErrTokenInvalid
	}

	// Проверяем, не отозван ли токен через logout
	blacklisted, err := s.blacklist.IsAccessTokenBlacklisted(ctx, claims.ID)
	if err != nil {
		s.logger.Error("Error checking access token blacklist", zap.Error(err), zap.String("accessUUID", claims.ID))
		return nil, fmt.Errorf("error checking access token blacklist: %w", err)
	}
	if blacklisted {
		s.logger.Debug("Access token is blacklisted (logged out)", zap.String("accessUUID", claims.ID))
		return nil, models.ErrTokenRevoked
	}

	s.logger.Debug("Access token verified successfully", zap.String("userID", claims.UserID.String()), zap.String("accessUUID", claims.ID))
	return claims, nil
}

// GetUserByID returns the user, preferring the Redis cache over the database.
func (s *authServiceImpl) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.userCache.GetUser(ctx, id)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, models.ErrCacheMiss) {
		// Кеш недоступен: работаем дальше через БД
		s.logger.Warn("User cache lookup failed, falling back to database", zap.Error(err), zap.String("userID", id.String()))
	}

	user, err = s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if cacheErr := s.userCache.SetUser(ctx, user, s.cfg.UserCacheTTL); cacheErr != nil {
		s.logger.Warn("Failed to cache user", zap.Error(cacheErr), zap.String("userID", id.String()))
	}
	return user, nil
}

// ConfirmEmail validates the email token and marks the user as verified.
// Returns true if the email was already confirmed.
func (s *authServiceImpl) ConfirmEmail(ctx context.Context, token string) (bool, error) {
	email, err := s.parseEmailToken(token)
	if err != nil {
		return false, err
	}

	log := s.logger.With(zap.String("email", email))

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			log.Warn("Email confirmation for unknown user")
			return false, models.ErrUserNotFound
		}
		log.Error("Failed to get user during email confirmation", zap.Error(err))
		return false, fmt.Errorf("failed to get user for confirmation: %w", err)
	}

	if user.IsVerified {
		log.Debug("Email already confirmed")
		return true, nil
	}

	if err := s.userRepo.ConfirmEmail(ctx, email); err != nil {
		log.Error("Failed to confirm email via repository", zap.Error(err))
		return false, err
	}

	if cacheErr := s.userCache.InvalidateUser(ctx, user.ID); cacheErr != nil {
		log.Warn("Failed to invalidate user cache after email confirmation", zap.Error(cacheErr))
	}

	log.Info("Email confirmed successfully", zap.String("userID", user.ID.String()))
	return false, nil
}

// RequestEmailVerification re-sends the verification mail. Unknown emails are
// silently accepted so the endpoint does not leak registered addresses.
func (s *authServiceImpl) RequestEmailVerification(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	log := s.logger.With(zap.String("email", email))
	log.Info("Email verification requested")

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			log.Debug("Verification requested for unknown email")
			return false, nil
		}
		log.Error("Failed to get user for verification request", zap.Error(err))
		return false, fmt.Errorf("failed to get user: %w", err)
	}

	if user.IsVerified {
		log.Debug("Verification requested for already confirmed email")
		return true, nil
	}

	s.sendVerificationEmailAsync(user)
	return false, nil
}

// RequestPasswordReset sends the password reset mail. Unknown emails are
// silently accepted.
func (s *authServiceImpl) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	log := s.logger.With(zap.String("email", email))
	log.Info("Password reset requested")

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			log.Debug("Password reset requested for unknown email")
			return nil
		}
		log.Error("Failed to get user for password reset request", zap.Error(err))
		return fmt.Errorf("failed to get user: %w", err)
	}

	s.sendPasswordResetEmailAsync(user)
	return nil
}

// ResetPassword validates the email token, sets the new password hash and
// revokes every live refresh token of the user.
func (s *authServiceImpl) ResetPassword(ctx context.Context, token, newPassword string) error {
	email, err := s.parseEmailToken(token)
	if err != nil {
		return err
	}

	log := s.logger.With(zap.String("email", email))

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			log.Warn("Password reset for unknown user")
			return models.ErrUserNotFound
		}
		log.Error("Failed to get user during password reset", zap.Error(err))
		return fmt.Errorf("failed to get user for password reset: %w", err)
	}

	newPasswordHash, err := hashPassword(newPassword, s.cfg.PasswordPepper)
	if err != nil {
		log.Error("Failed to hash new password during reset", zap.Error(err))
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	if err := s.userRepo.UpdatePasswordHash(ctx, user.ID, newPasswordHash); err != nil {
		return err
	}

	log.Info("User password hash updated, revoking refresh tokens...")

	// Инвалидируем все refresh токены пользователя
	revokedCount, revErr := s.refreshRepo.RevokeAllForUser(ctx, user.ID)
	if revErr != nil {
		// Пароль уже обновлен, ошибку ревокации только логируем
		log.Error("Failed to revoke user refresh tokens after password reset", zap.Error(revErr))
	} else {
		log.Info("Revoked user refresh tokens after password reset", zap.Int64("count", revokedCount))
	}

	if cacheErr := s.userCache.InvalidateUser(ctx, user.ID); cacheErr != nil {
		log.Warn("Failed to invalidate user cache after password reset", zap.Error(cacheErr))
	}

	log.Info("Password reset completed", zap.String("userID", user.ID.String()))
	return nil
}

// UpdateAvatar uploads the image to object storage and stores its public URL.
func (s *authServiceImpl) UpdateAvatar(ctx context.Context, userID uuid.UUID, file io.Reader, contentType string) (*models.User, error) {
	log := s.logger.With(zap.String("userID", userID.String()))
	log.Info("Updating user avatar")

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("avatars/%s", user.Username)
	url, err := s.avatars.Upload(ctx, key, contentType, file)
	if err != nil {
		log.Error("Failed to upload avatar to storage", zap.Error(err))
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	updated, err := s.userRepo.UpdateAvatarURL(ctx, userID, url)
	if err != nil {
		return nil, err
	}

	if cacheErr := s.userCache.InvalidateUser(ctx, userID); cacheErr != nil {
		log.Warn("Failed to invalidate user cache after avatar update", zap.Error(cacheErr))
	}

	log.Info("User avatar updated", zap.String("avatarURL", url))
	return updated, nil
}

// --- Email tokens ---

// createEmailToken issues a short-lived JWT that carries the email address in
// the subject claim and the dedicated email scope.
func (s *authServiceImpl) createEmailToken(email string) (string, error) {
	now := time.Now()
	claims := &models.EmailTokenClaims{
		Scope: models.EmailTokenScope,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   email,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.EmailTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		s.logger.Error("Failed to sign email token", zap.Error(err))
		return "", fmt.Errorf("failed to sign email token: %w", err)
	}
	return signed, nil
}

// parseEmailToken validates an email token and returns the email address.
func (s *authServiceImpl) parseEmailToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.EmailTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			s.logger.Warn("Email token expired")
			return "", models.ErrTokenExpired
		}
		if errors.Is(err, jwt.ErrTokenMalformed) {
			s.logger.Warn("Email token malformed")
			return "", models.ErrTokenMalformed
		}
		s.logger.Error("Failed to parse email token", zap.Error(err))
		return "", models.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*models.EmailTokenClaims)
	if !ok || !token.Valid {
		s.logger.Warn("Email token verification failed (invalid claims type or signature)")
		return "", models.ErrTokenInvalid
	}

	// Access токен на email-эндпоинтах не принимаем
	if claims.Scope != models.EmailTokenScope {
		s.logger.Warn("Token with wrong scope used as email token", zap.String("scope", claims.Scope))
		return "", models.ErrEmailTokenScope
	}

	return claims.Subject, nil
}

// --- Background mail ---

func (s *authServiceImpl) sendVerificationEmailAsync(user *models.User) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mailSendTimeout)
		defer cancel()

		token, err := s.createEmailToken(user.Email)
		if err != nil {
			s.logger.Error("Failed to create verification email token", zap.Error(err), zap.String("email", user.Email))
			return
		}
		if err := s.mailer.SendVerificationEmail(ctx, user.Email, user.Username, token); err != nil {
			s.logger.Error("Failed to send verification email", zap.Error(err), zap.String("email", user.Email))
		}
	}()
}

func (s *authServiceImpl) sendPasswordResetEmailAsync(user *models.User) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mailSendTimeout)
		defer cancel()

		token, err := s.createEmailToken(user.Email)
		if err != nil {
			s.logger.Error("Failed to create password reset email token", zap.Error(err), zap.String("email", user.Email))
			return
		}
		if err := s.mailer.SendPasswordResetEmail(ctx, user.Email, user.Username, token); err != nil {
			s.logger.Error("Failed to send password reset email", zap.Error(err), zap.String("email", user.Email))
		}
	}()
}

// --- Helper Functions ---

// applyPepper applies HMAC-SHA256 using the pepper as the key.
func applyPepper(password, pepper string) []byte {
	h := hmac.New(sha256.New, []byte(pepper))
	h.Write([]byte(password)) // Write для sha256 никогда не возвращает ошибку
	return h.Sum(nil)
}

// hashPassword generates a bcrypt hash of the password after applying the pepper.
func hashPassword(password, pepper string) (string, error) {
	// Применяем перец к паролю через HMAC-SHA256
	pepperedPassword := applyPepper(password, pepper)
	// Хешируем результат с помощью bcrypt (он сам добавит свою соль)
	bytes, err := bcrypt.GenerateFromPassword(pepperedPassword, bcrypt.DefaultCost)
	return string(bytes), err
}

// checkPasswordHash compares a plain text password (after applying pepper) with a stored hash.
func checkPasswordHash(password, hash, pepper string) bool {
	// Применяем тот же перец к введенному паролю
	pepperedPassword := applyPepper(password, pepper)
	// bcrypt сам извлечет свою соль из хеша и сравнит
	err := bcrypt.CompareHashAndPassword([]byte(hash), pepperedPassword)
	return err == nil
}

// generateRefreshToken returns a cryptographically random opaque token.
func generateRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// hashRefreshToken returns the SHA-256 hex digest stored instead of the token.
func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// gravatarURL builds the Gravatar image URL for the email.
func gravatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%s", hex.EncodeToString(sum[:]))
}

// createTokens generates a new access/refresh pair and persists the refresh
// token hash with the client metadata.
func (s *authServiceImpl) createTokens(ctx context.Context, user *models.User, ipAddress, userAgent string) (*models.TokenDetails, error) {
	s.logger.Debug("Creating new token pair", zap.String("userID", user.ID.String()))

	now := time.Now()
	td := &models.TokenDetails{TokenType: tokenTypeBearer}
	td.AtExpires = now.Add(s.cfg.AccessTokenTTL).Unix()
	td.AccessUUID = uuid.New().String()

	// Creating Access Token
	acClaims := &models.Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        td.AccessUUID,
			ExpiresAt: jwt.NewNumericDate(time.Unix(td.AtExpires, 0)),
			Subject:   user.ID.String(),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	acToken := jwt.NewWithClaims(jwt.SigningMethodHS256, acClaims)
	var err error
	td.AccessToken, err = acToken.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		s.logger.Error("Failed to sign access token", zap.Error(err), zap.String("userID", user.ID.String()))
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	// Creating Refresh Token: непрозрачный токен, в БД хранится только хеш
	td.RefreshToken, err = generateRefreshToken()
	if err != nil {
		s.logger.Error("Failed to generate refresh token", zap.Error(err), zap.String("userID", user.ID.String()))
		return nil, err
	}
	td.RtExpires = now.Add(s.cfg.RefreshTokenTTL).Unix()

	row := &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashRefreshToken(td.RefreshToken),
		ExpiredAt: time.Unix(td.RtExpires, 0),
		IPAddress: optionalString(ipAddress),
		UserAgent: optionalString(userAgent),
	}
	if err := s.refreshRepo.CreateToken(ctx, row); err != nil {
		return nil, err
	}

	return td, nil
}

// optionalString returns nil for empty strings, for nullable columns.
func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
