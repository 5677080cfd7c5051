package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"contacts-server/internal/utils"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the application configuration.
type Config struct {
	Env         string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"debug"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`
	ServerPort  string `envconfig:"SERVER_PORT" default:"8080"`

	// Базовый URL сервиса, попадает в ссылки в письмах
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080"`

	// Database (PostgreSQL)
	DBHost        string        `envconfig:"DB_HOST" required:"true"`
	DBPort        string        `envconfig:"DB_PORT" required:"true"`
	DBUser        string        `envconfig:"DB_USER" required:"true"`
	DBName        string        `envconfig:"DB_NAME" required:"true"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_IDLE_TIMEOUT" default:"5m"`
	// Секретное поле БЕЗ envconfig тега
	DBPassword string

	// Redis (кеш пользователей, блэклист access токенов, rate limiter)
	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB   int    `envconfig:"REDIS_DB" default:"0"`
	// Секретное поле БЕЗ envconfig тега
	RedisPassword string

	// JWT Settings - секретные поля БЕЗ envconfig тегов
	JWTSecret       string
	PasswordPepper  string
	AccessTokenTTL  time.Duration `envconfig:"JWT_ACCESS_TOKEN_TTL" default:"30m"`
	RefreshTokenTTL time.Duration `envconfig:"JWT_REFRESH_TOKEN_TTL" default:"168h"` // 7 дней
	EmailTokenTTL   time.Duration `envconfig:"JWT_EMAIL_TOKEN_TTL" default:"168h"`   // 7 дней

	// Время жизни кешированного пользователя в Redis
	UserCacheTTL time.Duration `envconfig:"USER_CACHE_TTL" default:"5m"`

	// Rate limiting (запросов в минуту с одного IP)
	RateLimitPerMinute int64 `envconfig:"RATE_LIMIT_PER_MINUTE" default:"10"`

	// Периодичность фоновой очистки refresh токенов и срок хранения отозванных
	TokenCleanupInterval  time.Duration `envconfig:"TOKEN_CLEANUP_INTERVAL" default:"1h"`
	RevokedTokenRetention time.Duration `envconfig:"REVOKED_TOKEN_RETENTION" default:"168h"`

	// SMTP (почтовые уведомления)
	SMTPHost     string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser     string `envconfig:"SMTP_USER" default:""`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"noreply@contacts.local"`
	SMTPFromName string `envconfig:"SMTP_FROM_NAME" default:"Contacts API"`
	SMTPStartTLS bool   `envconfig:"SMTP_STARTTLS" default:"true"`
	// Секретное поле БЕЗ envconfig тега
	SMTPPassword string

	// S3-совместимое хранилище аватаров (пустой endpoint = AWS)
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"avatars"`
	S3Endpoint  string `envconfig:"S3_ENDPOINT" default:""`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" default:""`
	// Секретное поле БЕЗ envconfig тега
	S3SecretKey string

	// CORS Settings
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// GetAllowedOrigins splits the CORSAllowedOrigins string into a slice.
func (c *Config) GetAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}
	// Убираем пробелы и разбиваем по запятой
	origins := strings.Split(strings.ReplaceAll(c.CORSAllowedOrigins, " ", ""), ",")
	return origins
}

// LoadConfig loads configuration from environment variables and secrets.
func LoadConfig(envFilePath string) (*Config, error) {
	// Пытаемся загрузить .env, если файл существует
	if _, err := os.Stat(envFilePath); err == nil {
		err = godotenv.Load(envFilePath)
		if err != nil {
			log.Printf("Warning: Could not load %s file: %v", envFilePath, err)
		} else {
			log.Printf("Loaded configuration from %s", envFilePath)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("Warning: Error checking %s file: %v", envFilePath, err)
	}

	var cfg Config
	// Загружаем НЕсекретные переменные из окружения
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, fmt.Errorf("error processing env vars: %w", err)
	}

	// Загружаем ОБЯЗАТЕЛЬНЫЕ секреты: сначала Docker Secrets, потом env
	var loadErr error
	cfg.DBPassword, loadErr = utils.ReadSecretOrEnv("db_password", "DB_PASSWORD")
	if loadErr != nil {
		return nil, loadErr
	}

	cfg.JWTSecret, loadErr = utils.ReadSecretOrEnv("jwt_secret", "JWT_SECRET")
	if loadErr != nil {
		return nil, loadErr
	}

	cfg.PasswordPepper, loadErr = utils.ReadSecretOrEnv("password_pepper", "PASSWORD_PEPPER")
	if loadErr != nil {
		return nil, loadErr
	}

	// Загружаем НЕОБЯЗАТЕЛЬНЫЕ секреты
	if redisPass, err := utils.ReadSecretOrEnv("redis_password", "REDIS_PASSWORD"); err == nil {
		cfg.RedisPassword = redisPass
	} else {
		// Если секрет не найден, просто оставляем поле пустым (поведение по умолчанию)
		log.Printf("Optional secret 'redis_password' not found: %v. Assuming no password.", err)
	}

	if smtpPass, err := utils.ReadSecretOrEnv("smtp_password", "SMTP_PASSWORD"); err == nil {
		cfg.SMTPPassword = smtpPass
	} else {
		log.Printf("Optional secret 'smtp_password' not found: %v. SMTP auth disabled.", err)
	}

	if s3Secret, err := utils.ReadSecretOrEnv("s3_secret_key", "S3_SECRET_KEY"); err == nil {
		cfg.S3SecretKey = s3Secret
	} else {
		log.Printf("Optional secret 's3_secret_key' not found: %v. Using default AWS credential chain.", err)
	}

	log.Println("Configuration loaded successfully.")
	return &cfg, nil
}
