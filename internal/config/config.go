// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all runtime configuration sections.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Auth     AuthConfig
	SMTP     SMTPConfig
	Nexarda  NexardaConfig
	Refresh  RefreshConfig
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig controls the relational store. An empty DSN selects the
// in-memory store.
type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // seconds
}

// LoggingConfig mirrors pkg/logger.LoggingConfig.
type LoggingConfig struct {
	Level      string
	Format     string
	Output     string
	FilePrefix string
}

// AuthConfig controls session token issuing.
type AuthConfig struct {
	JWTSecret     string
	TokenTTL      time.Duration
	ResetTokenTTL time.Duration
}

// SMTPConfig controls outgoing notification mail.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// NexardaConfig controls the external price aggregator client.
type NexardaConfig struct {
	BaseURL       string
	Timeout       time.Duration
	SearchTTL     time.Duration
	ProductTTL    time.Duration
	PricesTTL     time.Duration
	AllowedStores []string
}

// RefreshConfig controls the optional background price refresher.
// A zero interval disables it.
type RefreshConfig struct {
	Interval time.Duration
}

// Load reads configuration from the environment, consulting a .env file
// when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            envString("SERVER_HOST", "0.0.0.0"),
			Port:            envInt("SERVER_PORT", 8080),
			ReadTimeout:     envDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    envDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: envDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Driver:          envString("DATABASE_DRIVER", "postgres"),
			DSN:             envString("DATABASE_DSN", ""),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envInt("DATABASE_CONN_MAX_LIFETIME", 300),
		},
		Logging: LoggingConfig{
			Level:      envString("LOG_LEVEL", "info"),
			Format:     envString("LOG_FORMAT", "text"),
			Output:     envString("LOG_OUTPUT", "stdout"),
			FilePrefix: envString("LOG_FILE_PREFIX", ""),
		},
		Auth: AuthConfig{
			JWTSecret:     envString("JWT_SECRET", ""),
			TokenTTL:      envDuration("JWT_TTL", 24*time.Hour),
			ResetTokenTTL: envDuration("RESET_TOKEN_TTL", time.Hour),
		},
		SMTP: SMTPConfig{
			Host:     envString("SMTP_HOST", ""),
			Port:     envInt("SMTP_PORT", 587),
			Username: envString("SMTP_USERNAME", ""),
			Password: envString("SMTP_PASSWORD", ""),
			From:     envString("SMTP_FROM", ""),
			FromName: envString("SMTP_FROM_NAME", "Quest4Deals"),
		},
		Nexarda: NexardaConfig{
			BaseURL:       envString("NEXARDA_BASE_URL", "https://www.nexarda.com/api/v3"),
			Timeout:       envDuration("NEXARDA_TIMEOUT", 10*time.Second),
			SearchTTL:     envDuration("NEXARDA_SEARCH_TTL", 5*time.Minute),
			ProductTTL:    envDuration("NEXARDA_PRODUCT_TTL", 30*time.Minute),
			PricesTTL:     envDuration("NEXARDA_PRICES_TTL", 5*time.Minute),
			AllowedStores: envList("NEXARDA_ALLOWED_STORES", defaultAllowedStores),
		},
		Refresh: RefreshConfig{
			Interval: envDuration("REFRESH_INTERVAL", 0),
		},
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid SERVER_PORT %d", cfg.Server.Port)
	}
	if cfg.Auth.TokenTTL <= 0 {
		return nil, fmt.Errorf("JWT_TTL must be positive")
	}

	return cfg, nil
}

var defaultAllowedStores = []string{
	"Steam", "Epic Games Store", "GOG", "PlayStation Store",
	"Microsoft Store", "Nintendo eShop", "Humble Store", "GreenManGaming",
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return append([]string(nil), fallback...)
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
