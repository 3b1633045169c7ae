package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config is the complete configuration surface of the service. Environment
// variables are the only source of truth.
type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Auth  AuthConfig
	Audit AuditConfig
	Mongo MongoConfig
	Redis RedisConfig
}

// AuthConfig drives the token service. The two signing secrets must differ.
type AuthConfig struct {
	AccessSecret  string        `env:"ACCESS_TOKEN_SECRET"`
	RefreshSecret string        `env:"REFRESH_TOKEN_SECRET"`
	AccessTTL     time.Duration `env:"ACCESS_TOKEN_TTL,  default=15m"`
	RefreshTTL    time.Duration `env:"REFRESH_TOKEN_TTL, default=168h"`
	// CookieSecure defaults from ENV: see Config.CookieSecure.
	CookieSecure *bool `env:"COOKIE_SECURE"`
}

type AuditConfig struct {
	RetentionDays int `env:"AUDIT_RETENTION_DAYS, default=90"`
	Workers       int `env:"AUDIT_WORKERS,        default=4"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=lending_platform"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the invariants the token core depends on. Development
// gets permissive defaults; everything else must be configured explicitly.
func (c *Config) Validate() error {
	if c.IsDevelopment() {
		if c.Auth.AccessSecret == "" {
			c.Auth.AccessSecret = "dev-access-secret"
		}
		if c.Auth.RefreshSecret == "" {
			c.Auth.RefreshSecret = "dev-refresh-secret"
		}
	}
	if c.Auth.AccessSecret == "" || c.Auth.RefreshSecret == "" {
		return errors.New("config: ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET are required")
	}
	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return errors.New("config: access and refresh secrets must differ")
	}
	if c.Auth.RefreshTTL <= c.Auth.AccessTTL {
		return errors.New("config: REFRESH_TOKEN_TTL must exceed ACCESS_TOKEN_TTL")
	}
	if c.Audit.RetentionDays < 1 {
		return errors.New("config: AUDIT_RETENTION_DAYS must be at least 1")
	}
	return nil
}

// IsDevelopment reports whether the service runs in local development.
func (c *Config) IsDevelopment() bool { return c.Env == "development" }

// CookieSecure resolves the Secure flag for auth cookies: explicit setting
// wins, otherwise secure everywhere except development.
func (c *Config) CookieSecure() bool {
	if c.Auth.CookieSecure != nil {
		return *c.Auth.CookieSecure
	}
	return !c.IsDevelopment()
}
