package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "https://www.nexarda.com/api/v3", cfg.Nexarda.BaseURL)
	require.Equal(t, 5*time.Minute, cfg.Nexarda.SearchTTL)
	require.Equal(t, 30*time.Minute, cfg.Nexarda.ProductTTL)
	require.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	require.Contains(t, cfg.Nexarda.AllowedStores, "Steam")
	require.Zero(t, cfg.Refresh.Interval)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("NEXARDA_PRICES_TTL", "90s")
	t.Setenv("NEXARDA_ALLOWED_STORES", "Steam, GOG ,")
	t.Setenv("REFRESH_INTERVAL", "30m")
	t.Setenv("DATABASE_DSN", "postgres://localhost/quest4deals")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 90*time.Second, cfg.Nexarda.PricesTTL)
	require.Equal(t, []string{"Steam", "GOG"}, cfg.Nexarda.AllowedStores)
	require.Equal(t, 30*time.Minute, cfg.Refresh.Interval)
	require.Equal(t, "postgres://localhost/quest4deals", cfg.Database.DSN)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("NEXARDA_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 10*time.Second, cfg.Nexarda.Timeout)
}

func TestLoad_RejectsBadPort(t *testing.T) {
	t.Setenv("SERVER_PORT", "70000")

	_, err := Load()
	require.Error(t, err)
}
