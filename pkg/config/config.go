package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env           string
	Port          int
	APIPrefix     string
	PublicBaseURL string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Stripe        StripeConfig
	FCM           FCMConfig
	Uploads       UploadsConfig
	Notifications NotificationsConfig
	Catalog       CatalogConfig
	Exports       ExportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StripeConfig holds the payment processor credentials and plan price mapping.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	PriceIDOneDay string
	PriceIDWeek   string
	PriceIDMonth  string
	SuccessURL    string
	CancelURL     string
}

// FCMConfig configures the push notification provider.
type FCMConfig struct {
	Enabled         bool
	ProjectID       string
	CredentialsFile string
	RequestTimeout  time.Duration
}

// UploadsConfig controls poster/banner image storage and remote fetching.
type UploadsConfig struct {
	StorageDir       string
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	AllowedURLHosts  []string
	FetchTimeout     time.Duration
}

// NotificationsConfig tunes the background dispatch queue.
type NotificationsConfig struct {
	Workers              int
	MaxRetries           int
	RetryDelay           time.Duration
	ExpiryReminderWindow time.Duration
	ExpiryScanInterval   time.Duration
}

// CatalogConfig governs listing defaults and cache behaviour.
type CatalogConfig struct {
	DefaultPageSize int
	MaxPageSize     int
	CacheTTL        time.Duration
}

// ExportsConfig gates the admin export endpoints.
type ExportsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.PublicBaseURL = v.GetString("PUBLIC_BASE_URL")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Stripe = StripeConfig{
		SecretKey:     v.GetString("STRIPE_SECRET_KEY"),
		WebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
		PriceIDOneDay: v.GetString("STRIPE_PRICE_ID_1_DAY"),
		PriceIDWeek:   v.GetString("STRIPE_PRICE_ID_7_DAYS"),
		PriceIDMonth:  v.GetString("STRIPE_PRICE_ID_1_MONTH"),
		SuccessURL:    v.GetString("STRIPE_SUCCESS_URL"),
		CancelURL:     v.GetString("STRIPE_CANCEL_URL"),
	}

	cfg.FCM = FCMConfig{
		Enabled:         v.GetBool("ENABLE_NOTIFICATIONS"),
		ProjectID:       v.GetString("FCM_PROJECT_ID"),
		CredentialsFile: v.GetString("FCM_CREDENTIALS_FILE"),
		RequestTimeout:  parseDuration(v.GetString("FCM_REQUEST_TIMEOUT"), 10*time.Second),
	}

	maxUploadSize := v.GetInt64("UPLOADS_MAX_FILE_SIZE")
	if maxUploadSize <= 0 {
		maxUploadSize = 5 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		StorageDir:       v.GetString("UPLOADS_STORAGE_DIR"),
		MaxFileSizeBytes: maxUploadSize,
		AllowedMIMEs:     splitAndTrim(v.GetString("UPLOADS_ALLOWED_MIME_TYPES")),
		AllowedURLHosts:  splitAndTrim(v.GetString("UPLOADS_ALLOWED_URL_HOSTS")),
		FetchTimeout:     parseDuration(v.GetString("UPLOADS_FETCH_TIMEOUT"), 10*time.Second),
	}

	cfg.Notifications = NotificationsConfig{
		Workers:              v.GetInt("NOTIFICATION_WORKERS"),
		MaxRetries:           v.GetInt("NOTIFICATION_MAX_RETRIES"),
		RetryDelay:           parseDuration(v.GetString("NOTIFICATION_RETRY_DELAY"), 5*time.Second),
		ExpiryReminderWindow: parseDuration(v.GetString("EXPIRY_REMINDER_WINDOW"), 72*time.Hour),
		ExpiryScanInterval:   parseDuration(v.GetString("EXPIRY_SCAN_INTERVAL"), time.Hour),
	}

	cfg.Catalog = CatalogConfig{
		DefaultPageSize: v.GetInt("CATALOG_DEFAULT_PAGE_SIZE"),
		MaxPageSize:     v.GetInt("CATALOG_MAX_PAGE_SIZE"),
		CacheTTL:        parseDuration(v.GetString("CATALOG_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Exports = ExportsConfig{
		Enabled: v.GetBool("ENABLE_EXPORTS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "cinevault")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "cinevault-api")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("UPLOADS_STORAGE_DIR", "./uploads")
	v.SetDefault("UPLOADS_ALLOWED_MIME_TYPES", "image/png,image/jpeg")
	v.SetDefault("UPLOADS_ALLOWED_URL_HOSTS", "res.cloudinary.com,images.cinevault.io")

	v.SetDefault("NOTIFICATION_WORKERS", 2)
	v.SetDefault("NOTIFICATION_MAX_RETRIES", 3)

	v.SetDefault("CATALOG_DEFAULT_PAGE_SIZE", 10)
	v.SetDefault("CATALOG_MAX_PAGE_SIZE", 50)

	v.SetDefault("ENABLE_NOTIFICATIONS", true)
	v.SetDefault("ENABLE_EXPORTS", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
