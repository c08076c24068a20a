package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const minSessionSecretLen = 32

type Config struct {
	AppEnv        string `env:"APP_ENV" default:"development"`
	Port          string `env:"PORT" default:"8000"`
	BackendURL    string `env:"BACKEND_URL"`
	SessionSecret string `env:"SESSION_SECRET"`
	RedisURL      string `env:"REDIS_URL"`
	// TokenEncryptionKey seals stored credentials when set (64 hex chars).
	TokenEncryptionKey string `env:"TOKEN_ENCRYPTION_KEY"`
	LogLevel           string `env:"LOG_LEVEL" default:"info"`
	LogFormat          string `env:"LOG_FORMAT" default:"text"`

	MaxWebSocketConnections int `env:"MAX_WEBSOCKET_CONNECTIONS" default:"1000"`

	SessionMaxAge      time.Duration `env:"SESSION_MAX_AGE" default:"168h"` // 7 days
	BackendTimeout     time.Duration `env:"BACKEND_TIMEOUT" default:"10s"`
	StatusPollInterval time.Duration `env:"STATUS_POLL_INTERVAL" default:"60s"`
	RotationInterval   time.Duration `env:"ROTATION_INTERVAL" default:"5s"`
	SettingsCacheTTL   time.Duration `env:"SETTINGS_CACHE_TTL" default:"30s"`
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.BackendURL == "" {
		return errors.New("BACKEND_URL is required")
	}
	u, err := url.Parse(cfg.BackendURL)
	if err != nil {
		return fmt.Errorf("BACKEND_URL is not a valid URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("BACKEND_URL must be an absolute http(s) URL")
	}

	if cfg.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	if len(cfg.SessionSecret) < minSessionSecretLen {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters", minSessionSecretLen)
	}

	// Memory-backed sessions are lost on restart and not shared between replicas.
	if cfg.IsProduction() && cfg.RedisURL == "" {
		return errors.New("REDIS_URL is required in production")
	}

	if cfg.TokenEncryptionKey != "" {
		keyBytes, err := hex.DecodeString(cfg.TokenEncryptionKey)
		if err != nil {
			return fmt.Errorf("TOKEN_ENCRYPTION_KEY must be valid hex: %w", err)
		}
		if len(keyBytes) != 32 {
			return fmt.Errorf("TOKEN_ENCRYPTION_KEY must be exactly 64 hex characters (32 bytes), got %d bytes", len(keyBytes))
		}
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"SESSION_MAX_AGE", cfg.SessionMaxAge},
		{"BACKEND_TIMEOUT", cfg.BackendTimeout},
		{"STATUS_POLL_INTERVAL", cfg.StatusPollInterval},
		{"ROTATION_INTERVAL", cfg.RotationInterval},
		{"SETTINGS_CACHE_TTL", cfg.SettingsCacheTTL},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive", d.name)
		}
	}

	if cfg.MaxWebSocketConnections < 1 {
		return errors.New("MAX_WEBSOCKET_CONNECTIONS must be at least 1")
	}

	return nil
}
