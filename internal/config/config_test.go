package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"APP_PORT":             "8080",
		"DB_USER":              "root",
		"DB_HOST":              "127.0.0.1",
		"DB_PORT":              "3306",
		"DB_NAME":              "storefront",
		"ACCESS_TOKEN_SECRET":  "a",
		"REFRESH_TOKEN_SECRET": "r",
		"EMAIL_TOKEN_SECRET":   "e",
	} {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, time.Hour, cfg.EmailTokenTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 10*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 30*time.Minute, cfg.SweepRetention)
	assert.Equal(t, MailTransportSMTP, cfg.Mail.Transport)
	assert.False(t, cfg.S3.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("MAIL_TRANSPORT", "queue")
	t.Setenv("RABBITMQ_URL", "amqp://u:p@mq:5672/")
	t.Setenv("S3_BUCKET", "images")
	t.Setenv("SWEEP_INTERVAL", "garbage")

	cfg := Load()
	assert.True(t, cfg.Production())
	assert.Equal(t, 5*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, MailTransportQueue, cfg.Mail.Transport)
	assert.Equal(t, "amqp://u:p@mq:5672/", cfg.Mail.RabbitMQURL)
	assert.True(t, cfg.S3.Enabled())
	assert.Equal(t, 10*time.Minute, cfg.SweepInterval, "unparsable duration falls back to the default")
}

func TestLoadRateLimitConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_LOGIN_MAX", "0")

	cfg := LoadRateLimitConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 15, cfg.Register.Limit)
	assert.Equal(t, time.Hour, cfg.Register.Window)
	assert.Equal(t, 15, cfg.Resend.Limit)
	assert.Equal(t, 1, cfg.Login.Limit, "limit is clamped to at least one")
	assert.Equal(t, 15*time.Minute, cfg.Login.Window)
	assert.Empty(t, cfg.TrustedProxies)
}

func TestLoadRateLimitConfig_TrustedProxies(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.7,not-an-ip, 2001:db8::1")

	cfg := LoadRateLimitConfig()
	require.Len(t, cfg.TrustedProxies, 3)
	assert.Equal(t, "10.0.0.0/8", cfg.TrustedProxies[0].String())
	assert.Equal(t, "192.0.2.7/32", cfg.TrustedProxies[1].String())
	assert.Equal(t, "2001:db8::1/128", cfg.TrustedProxies[2].String())
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("CACHE_ENABLED", "off")

	cfg := LoadCacheConfig()
	assert.False(t, cfg.Enabled)
	assert.True(t, cfg.Methods["GET"])
	assert.True(t, cfg.Methods["HEAD"])
	assert.Equal(t, 30*time.Second, cfg.TTL)
}

func TestLoadRedisConfig(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	assert.Equal(t, "cache:6380", LoadRedisConfig().Addr)

	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("REDIS_TLS", "1")
	cfg := LoadRedisConfig()
	assert.Equal(t, "redis:6379", cfg.Addr)
	assert.True(t, cfg.TLS)
}
