package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "admin", cfg.SeedAdminUsername)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.InDelta(t, 0.2, cfg.LoginRateLimit, 1e-9)
	assert.Equal(t, 5, cfg.LoginRateBurst)
	assert.False(t, cfg.EmailEnabled())
	assert.False(t, cfg.SMSEnabled())

	pg := cfg.Postgres()
	assert.Equal(t, "minishop", pg.DBName)
	assert.Equal(t, ServiceName, pg.ApplicationName)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SHOP_INBOX", "owner@example.com")
	t.Setenv("SMS_API_URL", "https://sms.example.com/send")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.EmailEnabled())
	assert.True(t, cfg.SMSEnabled())
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("HTTP_PORT", "70000")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_ShortSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "short")
	_, err := Load()
	assert.ErrorContains(t, err, "SESSION_SECRET")
}

func TestLoad_ProductionNeedsSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	_, err := Load()
	assert.ErrorContains(t, err, "production")
}

func TestLoad_NegativeLoginRate(t *testing.T) {
	t.Setenv("LOGIN_RATE_LIMIT", "-1")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login rate limit")
}
