package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "jwt-secret", "password",
}

type Config struct {
	Port                      int    `env:"PORT" envDefault:"8080"`
	DatabaseURL               string `env:"DATABASE_URL,required"`
	RedisURL                  string `env:"REDIS_URL"`
	JWTSecret                 string `env:"JWT_SECRET,required"`
	AuthCookieName            string `env:"AUTH_COOKIE_NAME" envDefault:"token"`
	ClientOrigin              string `env:"CLIENT_ORIGIN" envDefault:"*"`
	LogLevel                  string `env:"LOG_LEVEL" envDefault:"info"`
	SendRateLimitPerMin       int    `env:"SEND_RATE_LIMIT_PER_MIN" envDefault:"30"`
	HeartbeatSeconds          int    `env:"HEARTBEAT_SECONDS" envDefault:"30"`
	SessionIdleTimeoutSeconds int    `env:"SESSION_IDLE_TIMEOUT_SECONDS" envDefault:"90"`
	PendingTTLSeconds         int    `env:"PENDING_TTL_SECONDS" envDefault:"86400"`
	AutoMigrate               bool   `env:"AUTO_MIGRATE" envDefault:"true"`
	InternalAPIKey            string `env:"INTERNAL_API_KEY"`
}

func (c *Config) Heartbeat() time.Duration {
	return time.Duration(c.HeartbeatSeconds) * time.Second
}

func (c *Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.SessionIdleTimeoutSeconds) * time.Second
}

func (c *Config) PendingTTL() time.Duration {
	return time.Duration(c.PendingTTLSeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// AllowedOrigins splits CLIENT_ORIGIN on commas.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.ClientOrigin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func (c *Config) Validate(isProduction bool) error {
	if c.HeartbeatSeconds <= 0 {
		return fmt.Errorf("HEARTBEAT_SECONDS must be positive")
	}
	if c.SessionIdleTimeoutSeconds <= c.HeartbeatSeconds {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT_SECONDS must be greater than HEARTBEAT_SECONDS")
	}

	if isProduction {
		if err := validateSecret("JWT_SECRET", c.JWTSecret); err != nil {
			return err
		}
		if c.InternalAPIKey != "" {
			if err := validateSecret("INTERNAL_API_KEY", c.InternalAPIKey); err != nil {
				return err
			}
		}
		if c.ClientOrigin == "*" {
			log.Warn().Msg("CLIENT_ORIGIN is * in production: any origin may open realtime connections")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
