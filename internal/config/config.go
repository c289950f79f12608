package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	RedirectModeServer = "server"
	RedirectModeClient = "client"
)

type Config struct {
	Port          string        `env:"QRTRACK_PORT" envDefault:"8080"`
	DBPath        string        `env:"QRTRACK_DB_PATH" envDefault:"./qrtrack.db"`
	APIKey        string        `env:"QRTRACK_API_KEY,required,notEmpty"`
	BaseURL       string        `env:"QRTRACK_BASE_URL" envDefault:"http://localhost:8080"`
	FallbackURL   string        `env:"QRTRACK_FALLBACK_URL" envDefault:"/"`
	RedirectMode  string        `env:"QRTRACK_REDIRECT_MODE" envDefault:"server"`
	GeoIPPath     string        `env:"QRTRACK_GEOIP_PATH"`
	FlushInterval time.Duration `env:"QRTRACK_FLUSH_INTERVAL" envDefault:"5s"`
	BufferSize    int           `env:"QRTRACK_BUFFER_SIZE" envDefault:"50000"`
	CacheSize     int           `env:"QRTRACK_CACHE_SIZE" envDefault:"10000"`
	CacheTTL      time.Duration `env:"QRTRACK_CACHE_TTL" envDefault:"30s"`
	SkipBots      bool          `env:"QRTRACK_SKIP_BOTS" envDefault:"false"`
	LogLevel      string        `env:"QRTRACK_LOG_LEVEL" envDefault:"info"`
	LogFormat     string        `env:"QRTRACK_LOG_FORMAT" envDefault:"text"`
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first if present; real env vars win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	c.RedirectMode = strings.ToLower(c.RedirectMode)

	if c.RedirectMode != RedirectModeServer && c.RedirectMode != RedirectModeClient {
		return fmt.Errorf("QRTRACK_REDIRECT_MODE must be %q or %q", RedirectModeServer, RedirectModeClient)
	}
	if c.FallbackURL == "" {
		return fmt.Errorf("QRTRACK_FALLBACK_URL must not be empty")
	}
	if c.FlushInterval <= 0 {
		return fmt.Errorf("QRTRACK_FLUSH_INTERVAL must be positive")
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("QRTRACK_BUFFER_SIZE must be positive")
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("QRTRACK_CACHE_SIZE must be positive")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("QRTRACK_CACHE_TTL must be positive")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("QRTRACK_LOG_LEVEL must be debug, info, warn or error")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("QRTRACK_LOG_FORMAT must be text or json")
	}
	return nil
}

// ShortURL is the public redirect URL encoded into a code's QR image.
func (c *Config) ShortURL(shortCode string) string {
	return c.BaseURL + "/r/" + shortCode
}
