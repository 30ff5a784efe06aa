// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// MinBootstrapTokenLength is the minimum length of EMAG_BOOTSTRAP_TOKEN.
const MinBootstrapTokenLength = 24

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"EMAG_DB_PATH" envDefault:"./data/emag.db" validate:"required"`
	ServerHost string `env:"EMAG_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"EMAG_SERVER_PORT" envDefault:"8080" validate:"min=1,max=65535"`
	Env        string `env:"EMAG_ENV" envDefault:"development" validate:"oneof=development production test"`
	LogLevel   string `env:"EMAG_LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	// Remote eMag store. Empty URL keeps eMags in the local database.
	RemoteURL     string `env:"EMAG_REMOTE_URL" validate:"omitempty,http_url"`
	RemoteToken   string `env:"EMAG_REMOTE_TOKEN"`
	RemoteRetries uint   `env:"EMAG_REMOTE_RETRIES" envDefault:"2" validate:"max=10"`

	// Cache configuration
	RedisURL    string `env:"EMAG_REDIS_URL"`
	CachePrefix string `env:"EMAG_CACHE_PREFIX" envDefault:"emag:"`
	CacheTTL    int    `env:"EMAG_CACHE_TTL" envDefault:"600" validate:"min=1"` // seconds

	SessionIdleTTL  time.Duration `env:"EMAG_SESSION_IDLE_TTL" envDefault:"1h" validate:"min=1m"`
	SyncConcurrency int           `env:"EMAG_SYNC_CONCURRENCY" envDefault:"4" validate:"min=1,max=64"`
	SyncRetries     uint          `env:"EMAG_SYNC_RETRIES" envDefault:"3" validate:"min=1,max=10"`
	EventRetention  time.Duration `env:"EMAG_EVENT_RETENTION" envDefault:"720h"`
	APIRate         float64       `env:"EMAG_API_RATE" envDefault:"10" validate:"gt=0"`
	APIBurst        int           `env:"EMAG_API_BURST" envDefault:"20" validate:"min=1"`
	BootstrapToken  string        `env:"EMAG_BOOTSTRAP_TOKEN"`
	DoSeed          bool          `env:"EMAG_DO_SEED" envDefault:"false"`
	TrustedProxies  []string      `env:"EMAG_TRUSTED_PROXIES" envSeparator:","`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// UseRemoteStore returns true if eMags are persisted through a remote API.
func (c Config) UseRemoteStore() bool {
	return c.RemoteURL != ""
}

// CacheTTLDuration returns CacheTTL as a duration.
func (c Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// SlogLevel maps LogLevel to a slog level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadDotEnv loads variables from the given .env files if they exist.
// Variables already present in the environment are not overridden.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err == nil {
			slog.Debug("loaded env file", "path", f)
		}
	}
}

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.RemoteURL != "" && cfg.RemoteToken == "" {
		slog.Warn("EMAG_REMOTE_URL is set without EMAG_REMOTE_TOKEN; remote requests will be unauthenticated")
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks value ranges and the bootstrap token strength.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (%v)", envName(fe.StructField()), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.BootstrapToken != "" {
		if len(c.BootstrapToken) < MinBootstrapTokenLength {
			return fmt.Errorf("EMAG_BOOTSTRAP_TOKEN must be at least %d bytes long, got %d bytes; "+
				"generate one with: openssl rand -hex 24",
				MinBootstrapTokenLength, len(c.BootstrapToken))
		}
		if !hasMinimumEntropy(c.BootstrapToken) {
			slog.Warn("EMAG_BOOTSTRAP_TOKEN has low character diversity; " +
				"consider generating a random token with: openssl rand -hex 24")
		}
	}
	return nil
}

// envName maps a struct field to its environment variable name.
func envName(field string) string {
	if f, ok := reflect.TypeFor[Config]().FieldByName(field); ok {
		if name, _, _ := strings.Cut(f.Tag.Get("env"), ","); name != "" {
			return name
		}
	}
	return field
}

// hasMinimumEntropy checks that a secret contains at least 2 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 2
}
