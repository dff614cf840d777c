package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_DefaultsAndDurations(t *testing.T) {
	t.Setenv("GIN_MODE", "test")
	t.Setenv("LINK_SIGNING_SECRET", testSecret)
	t.Setenv("EMAIL_SEND_TIMEOUT_SECONDS", "7")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 30*time.Second, cfg.ServerTimeout)
	assert.Equal(t, 7*time.Second, cfg.EmailSendTimeout)
	assert.Equal(t, 24*time.Hour, cfg.EmergencyLinkTTL)
	assert.Equal(t, 60*time.Minute, cfg.DBConnMaxLifetime)
	assert.Equal(t, int64(50), cfg.MaxUploadMB)
	assert.Equal(t, int64(20), cfg.AIRateLimitPerHour)
	assert.Equal(t, "EUR", cfg.DefaultCurrency)
	assert.Equal(t, ProvisioningAuto, cfg.IdentityProvisioning)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoad_IntegerDurationKeys(t *testing.T) {
	t.Setenv("GIN_MODE", "test")
	t.Setenv("LINK_SIGNING_SECRET", testSecret)
	t.Setenv("SERVER_TIMEOUT_SECONDS", "12")
	t.Setenv("DB_CONN_MAX_LIFETIME_MINUTES", "12")
	t.Setenv("EMAIL_SEND_TIMEOUT_SECONDS", "12")
	t.Setenv("EMERGENCY_LINK_TTL_HOURS", "12")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 12*time.Second, cfg.ServerTimeout)
	assert.Equal(t, 12*time.Minute, cfg.DBConnMaxLifetime)
	assert.Equal(t, 12*time.Second, cfg.EmailSendTimeout)
	assert.Equal(t, 12*time.Hour, cfg.EmergencyLinkTTL)
}

func TestLoad_RejectsShortSigningSecret(t *testing.T) {
	t.Setenv("GIN_MODE", "test")
	t.Setenv("LINK_SIGNING_SECRET", "short")

	_, err := Load()
	assert.ErrorContains(t, err, "LINK_SIGNING_SECRET")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{GinMode: "test", IdentityProvisioning: ProvisioningAuto, LinkSigningSecret: testSecret, DBDriver: "sqlite"}
	}

	assert.NoError(t, base().Validate())

	cfg := base()
	cfg.IdentityProvisioning = "invite_only"
	assert.ErrorContains(t, cfg.Validate(), "IDENTITY_PROVISIONING")

	cfg = base()
	cfg.DBDriver = "mysql"
	assert.ErrorContains(t, cfg.Validate(), "DB_DRIVER")

	cfg = base()
	cfg.GinMode = "release"
	assert.ErrorContains(t, cfg.Validate(), "FIREBASE_SERVICE_ACCOUNT_KEY_PATH")

	cfg.FirebaseProjectID = "shoesteraj"
	assert.NoError(t, cfg.Validate(), "project id alone selects default credentials")

	cfg.FirebaseServiceAccountKeyPath = "/does/not/exist.json"
	assert.ErrorContains(t, cfg.Validate(), "not found")
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "shoes", DBSSLMode: "disable", DBTimezone: "UTC"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=shoes sslmode=disable TimeZone=UTC", cfg.PostgresDSN())
}
