package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-session-secret-32-bytes-long!!"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BACKEND_URL", "http://localhost:8080/api")
	t.Setenv("SESSION_SECRET", testSecret)
}

func TestLoad_AllRequiredVarsSet(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/api", cfg.BackendURL)
	assert.Equal(t, testSecret, cfg.SessionSecret)
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		skipEnv string
		wantErr string
	}{
		{"missing BACKEND_URL", "BACKEND_URL", "BACKEND_URL is required"},
		{"missing SESSION_SECRET", "SESSION_SECRET", "SESSION_SECRET is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.skipEnv, "")

			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 168*time.Hour, cfg.SessionMaxAge)
	assert.Equal(t, 10*time.Second, cfg.BackendTimeout)
	assert.Equal(t, 60*time.Second, cfg.StatusPollInterval)
	assert.Equal(t, 5*time.Second, cfg.RotationInterval)
	assert.Equal(t, 30*time.Second, cfg.SettingsCacheTTL)
	assert.Equal(t, 1000, cfg.MaxWebSocketConnections)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("STATUS_POLL_INTERVAL", "15s")
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.StatusPollInterval)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
}

func TestLoad_InvalidBackendURL(t *testing.T) {
	tests := []struct {
		name       string
		backendURL string
	}{
		{"relative path", "/api"},
		{"unsupported scheme", "ftp://example.com/api"},
		{"missing host", "http:///api"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv("BACKEND_URL", tt.backendURL)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "BACKEND_URL")
		})
	}
}

func TestLoad_ShortSessionSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SESSION_SECRET", "too-short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")
}

func TestLoad_ProductionRequiresRedis(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, "REDIS_URL is required in production", err.Error())

	t.Setenv("REDIS_URL", "redis://redis:6379")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_NonPositiveInterval(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ROTATION_INTERVAL", "0s")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, "ROTATION_INTERVAL must be positive", err.Error())
}

func TestLoad_TokenEncryptionKey(t *testing.T) {
	setRequiredEnv(t)

	t.Setenv("TOKEN_ENCRYPTION_KEY", "zz")
	_, err := Load()
	assert.ErrorContains(t, err, "TOKEN_ENCRYPTION_KEY must be valid hex")

	t.Setenv("TOKEN_ENCRYPTION_KEY", "abcd")
	_, err = Load()
	assert.ErrorContains(t, err, "got 2 bytes")

	t.Setenv("TOKEN_ENCRYPTION_KEY", strings.Repeat("0f", 32))
	cfg, err := Load()
	require.NoError(t, err)
	assert.Len(t, cfg.TokenEncryptionKey, 64)
}
