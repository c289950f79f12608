package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"QRTRACK_API_KEY", "QRTRACK_PORT", "QRTRACK_DB_PATH", "QRTRACK_BASE_URL",
		"QRTRACK_FALLBACK_URL", "QRTRACK_REDIRECT_MODE", "QRTRACK_GEOIP_PATH",
		"QRTRACK_FLUSH_INTERVAL", "QRTRACK_BUFFER_SIZE", "QRTRACK_CACHE_SIZE",
		"QRTRACK_CACHE_TTL", "QRTRACK_SKIP_BOTS", "QRTRACK_LOG_LEVEL", "QRTRACK_LOG_FORMAT",
	} {
		// Setenv registers the restore; Unsetenv makes the key truly absent.
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_MinimalValid(t *testing.T) {
	clearEnv(t)
	t.Setenv("QRTRACK_API_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "./qrtrack.db", cfg.DBPath)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, "/", cfg.FallbackURL)
	assert.Equal(t, RedirectModeServer, cfg.RedirectMode)
	assert.Equal(t, 5*time.Second, cfg.FlushInterval)
	assert.Equal(t, 50000, cfg.BufferSize)
	assert.Equal(t, 10000, cfg.CacheSize)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.False(t, cfg.SkipBots)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_AllFieldsOverridden(t *testing.T) {
	clearEnv(t)
	t.Setenv("QRTRACK_API_KEY", "s3cret")
	t.Setenv("QRTRACK_PORT", "9090")
	t.Setenv("QRTRACK_DB_PATH", "/tmp/test.db")
	t.Setenv("QRTRACK_BASE_URL", "https://qr.example.com/")
	t.Setenv("QRTRACK_FALLBACK_URL", "https://example.com/404")
	t.Setenv("QRTRACK_REDIRECT_MODE", "CLIENT")
	t.Setenv("QRTRACK_GEOIP_PATH", "/data/geo.mmdb")
	t.Setenv("QRTRACK_FLUSH_INTERVAL", "10s")
	t.Setenv("QRTRACK_BUFFER_SIZE", "500")
	t.Setenv("QRTRACK_CACHE_SIZE", "200")
	t.Setenv("QRTRACK_CACHE_TTL", "1m")
	t.Setenv("QRTRACK_SKIP_BOTS", "true")
	t.Setenv("QRTRACK_LOG_LEVEL", "debug")
	t.Setenv("QRTRACK_LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, "s3cret", cfg.APIKey)
	assert.Equal(t, "https://qr.example.com", cfg.BaseURL, "trailing slash trimmed")
	assert.Equal(t, "https://example.com/404", cfg.FallbackURL)
	assert.Equal(t, RedirectModeClient, cfg.RedirectMode)
	assert.Equal(t, "/data/geo.mmdb", cfg.GeoIPPath)
	assert.Equal(t, 10*time.Second, cfg.FlushInterval)
	assert.Equal(t, 500, cfg.BufferSize)
	assert.Equal(t, 200, cfg.CacheSize)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.True(t, cfg.SkipBots)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "QRTRACK_API_KEY")
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := map[string]struct {
		key, value string
		want       string
	}{
		"zero buffer":       {"QRTRACK_BUFFER_SIZE", "0", "QRTRACK_BUFFER_SIZE must be positive"},
		"negative flush":    {"QRTRACK_FLUSH_INTERVAL", "-1s", "QRTRACK_FLUSH_INTERVAL must be positive"},
		"zero cache":        {"QRTRACK_CACHE_SIZE", "0", "QRTRACK_CACHE_SIZE must be positive"},
		"zero ttl":          {"QRTRACK_CACHE_TTL", "0s", "QRTRACK_CACHE_TTL must be positive"},
		"bad redirect mode": {"QRTRACK_REDIRECT_MODE", "edge", "QRTRACK_REDIRECT_MODE"},
		"bad log level":     {"QRTRACK_LOG_LEVEL", "verbose", "QRTRACK_LOG_LEVEL"},
		"bad log format":    {"QRTRACK_LOG_FORMAT", "xml", "QRTRACK_LOG_FORMAT"},
		"bad duration":      {"QRTRACK_FLUSH_INTERVAL", "notaduration", "FlushInterval"},
		"bad int":           {"QRTRACK_BUFFER_SIZE", "lots", "BufferSize"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("QRTRACK_API_KEY", "secret")
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestShortURL(t *testing.T) {
	cfg := &Config{BaseURL: "https://qr.example.com"}
	assert.Equal(t, "https://qr.example.com/r/abc12345", cfg.ShortURL("abc12345"))
}
