package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/hivework/taskhive/internal/auth/domain"
)

// Config is the full runtime configuration, loaded from the environment.
type Config struct {
	Env       string `env:"ENV" envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	Port                int           `env:"PORT" envDefault:"8080"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`

	DatabaseFile string `env:"AUTH_DATABASE_FILE" envDefault:"auth.db"`

	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`

	// AuthorizationCodeTTL is short-lived on purpose; codes are single use
	// and only bridge the redirect back to the token endpoint.
	AuthorizationCodeTTL time.Duration `env:"AUTHORIZATION_CODE_TTL" envDefault:"5m"`

	DeviceCodeTTL         time.Duration `env:"DEVICE_CODE_TTL" envDefault:"30m"`
	DevicePollInterval    int           `env:"DEVICE_POLL_INTERVAL" envDefault:"5"`
	DeviceVerificationURI string        `env:"DEVICE_VERIFICATION_URI" envDefault:"/device"`

	// ProjectFallbackRole applies to signed-in humans with no explicit grant
	// on a project. Service accounts never get a fallback.
	ProjectFallbackRole string `env:"PROJECT_FALLBACK_ROLE" envDefault:"none"`

	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`
}

// LoadConfig parses the environment and validates cross-field constraints.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if _, err := domain.ParseProjectRole(cfg.ProjectFallbackRole); err != nil {
		return Config{}, fmt.Errorf("PROJECT_FALLBACK_ROLE: %w", err)
	}
	if cfg.AuthorizationCodeTTL > 10*time.Minute {
		return Config{}, fmt.Errorf("AUTHORIZATION_CODE_TTL must be 10m or less, got %s", cfg.AuthorizationCodeTTL)
	}
	if cfg.DevicePollInterval < 1 {
		return Config{}, fmt.Errorf("DEVICE_POLL_INTERVAL must be at least 1, got %d", cfg.DevicePollInterval)
	}

	return cfg, nil
}
