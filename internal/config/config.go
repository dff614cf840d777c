// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Identity provisioning policies.
const (
	ProvisioningAuto = "auto"
)

// Config holds all configuration for the application.
type Config struct {
	// Server Configuration
	GinMode            string        `mapstructure:"GIN_MODE"`
	ServerHost         string        `mapstructure:"SERVER_HOST"`
	ServerPort         string        `mapstructure:"SERVER_PORT"`
	ServerTimeout      time.Duration `mapstructure:"-"`
	CORSAllowedOrigins []string      `mapstructure:"-"`

	// Database Configuration
	DBDriver          string        `mapstructure:"DB_DRIVER"`
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBTimezone        string        `mapstructure:"DB_TIMEZONE"`
	DBSQLitePath      string        `mapstructure:"DB_SQLITE_PATH"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"-"`
	DBAutoMigrate     bool          `mapstructure:"DB_AUTO_MIGRATE"`

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Identity
	FirebaseServiceAccountKeyPath string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_KEY_PATH"`
	FirebaseProjectID             string `mapstructure:"FIREBASE_PROJECT_ID"`
	IdentityProvisioning          string `mapstructure:"IDENTITY_PROVISIONING"`

	// Search
	ElasticsearchURL         string `mapstructure:"ELASTICSEARCH_URL"`
	ElasticsearchUsername    string `mapstructure:"ELASTICSEARCH_USERNAME"`
	ElasticsearchPassword    string `mapstructure:"ELASTICSEARCH_PASSWORD"`
	SearchReindexJobSchedule string `mapstructure:"SEARCH_REINDEX_JOB_SCHEDULE"`

	// Redis (rate limiting)
	RedisURL           string `mapstructure:"REDIS_URL"`
	AIRateLimitPerHour int64  `mapstructure:"AI_RATE_LIMIT_PER_HOUR"`

	// AI assist
	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`
	GeminiModel  string `mapstructure:"GEMINI_MODEL"`

	// Media storage
	MediaBucketURL     string `mapstructure:"MEDIA_BUCKET_URL"`
	MediaPublicBaseURL string `mapstructure:"MEDIA_PUBLIC_BASE_URL"`
	MaxUploadMB        int64  `mapstructure:"MAX_UPLOAD_MB"`

	// Email
	SMTPHost         string        `mapstructure:"SMTP_HOST"`
	SMTPPort         int           `mapstructure:"SMTP_PORT"`
	SMTPUsername     string        `mapstructure:"SMTP_USERNAME"`
	SMTPPassword     string        `mapstructure:"SMTP_PASSWORD"`
	EmailFrom        string        `mapstructure:"EMAIL_FROM"`
	EmailWorkers     int           `mapstructure:"EMAIL_WORKERS"`
	EmailQueueSize   int           `mapstructure:"EMAIL_QUEUE_SIZE"`
	EmailSendTimeout time.Duration `mapstructure:"-"`

	// Signed links
	LinkSigningSecret string        `mapstructure:"LINK_SIGNING_SECRET"`
	EmergencyLinkTTL  time.Duration `mapstructure:"-"`
	FrontendURL       string        `mapstructure:"FRONTEND_URL"`
	PublicAPIURL      string        `mapstructure:"PUBLIC_API_URL"`
	DefaultCurrency   string        `mapstructure:"DEFAULT_CURRENCY"`
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Durations are plain integers in the environment and the origin list is
	// comma separated; both are decoded here rather than by Unmarshal.
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.DBConnMaxLifetime = time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute
	cfg.EmailSendTimeout = time.Duration(v.GetInt("EMAIL_SEND_TIMEOUT_SECONDS")) * time.Second
	cfg.EmergencyLinkTTL = time.Duration(v.GetInt("EMERGENCY_LINK_TTL_HOURS")) * time.Hour
	cfg.CORSAllowedOrigins = splitList(v.GetString("CORS_ALLOWED_ORIGINS"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "shoe_market_db")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_SQLITE_PATH", "shoe_market.db")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_SERVICE_ACCOUNT_KEY_PATH", "")
	v.SetDefault("IDENTITY_PROVISIONING", ProvisioningAuto)

	v.SetDefault("ELASTICSEARCH_URL", "")
	v.SetDefault("ELASTICSEARCH_USERNAME", "")
	v.SetDefault("ELASTICSEARCH_PASSWORD", "")
	v.SetDefault("SEARCH_REINDEX_JOB_SCHEDULE", "@every 6h")

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("AI_RATE_LIMIT_PER_HOUR", 20)

	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-flash-latest")

	v.SetDefault("MEDIA_BUCKET_URL", "file:///var/lib/shoe_market/media?create_dir=true")
	v.SetDefault("MEDIA_PUBLIC_BASE_URL", "http://localhost:8080/media")
	v.SetDefault("MAX_UPLOAD_MB", 50)

	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("EMAIL_FROM", "ShoeSteraj <no-reply@shoesteraj.app>")
	v.SetDefault("EMAIL_WORKERS", 2)
	v.SetDefault("EMAIL_QUEUE_SIZE", 100)
	v.SetDefault("EMAIL_SEND_TIMEOUT_SECONDS", 10)

	v.SetDefault("LINK_SIGNING_SECRET", "")
	v.SetDefault("EMERGENCY_LINK_TTL_HOURS", 24)
	v.SetDefault("FRONTEND_URL", "https://shoesteraj.pages.dev/")
	v.SetDefault("PUBLIC_API_URL", "http://localhost:8080")
	v.SetDefault("DEFAULT_CURRENCY", "EUR")
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.IdentityProvisioning != ProvisioningAuto {
		return fmt.Errorf("FATAL: IDENTITY_PROVISIONING=%q is not supported, only %q", c.IdentityProvisioning, ProvisioningAuto)
	}
	if len(c.LinkSigningSecret) < 32 {
		return fmt.Errorf("FATAL: LINK_SIGNING_SECRET must be at least 32 characters")
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("FATAL: unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.GinMode == "test" {
		return nil
	}
	if strings.TrimSpace(c.FirebaseServiceAccountKeyPath) == "" {
		if strings.TrimSpace(c.FirebaseProjectID) == "" {
			return fmt.Errorf("FATAL: set FIREBASE_SERVICE_ACCOUNT_KEY_PATH, or FIREBASE_PROJECT_ID to use application default credentials")
		}
		return nil
	}
	if _, err := os.Stat(c.FirebaseServiceAccountKeyPath); os.IsNotExist(err) {
		return fmt.Errorf("FATAL: Firebase service account key file specified in FIREBASE_SERVICE_ACCOUNT_KEY_PATH (%s) not found", c.FirebaseServiceAccountKeyPath)
	}
	return nil
}

// PostgresDSN builds the GORM postgres DSN from the individual DB_* settings.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode, c.DBTimezone)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
