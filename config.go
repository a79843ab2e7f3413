package auth

import (
	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-errors"
)

// EnvConfig is an environment-variable backed Config implementation.
// Interval values mirror the defaults the storefront shipped with: one
// second between role lookups, a five minute expiry warning.
type EnvConfig struct {
	MaxRoleAttempts      int    `env:"AUTH_MAX_ROLE_ATTEMPTS" envDefault:"5"`
	RoleRetryInterval    int    `env:"AUTH_ROLE_RETRY_INTERVAL" envDefault:"1"`
	ExpiryWarningWindow  int    `env:"AUTH_EXPIRY_WARNING_WINDOW" envDefault:"5"`
	DefaultRole          string `env:"AUTH_DEFAULT_ROLE" envDefault:"buyer"`
	RejectedRouteKey     string `env:"AUTH_REJECTED_ROUTE_KEY" envDefault:"rejected_route"`
	RejectedRouteDefault string `env:"AUTH_REJECTED_ROUTE_DEFAULT" envDefault:"/"`
}

var _ Config = (*EnvConfig)(nil)

// LoadConfig parses the environment into an EnvConfig.
func LoadConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "could not parse auth config from environment")
	}

	if cfg.DefaultRole != "" && !IsValidRole(cfg.DefaultRole) {
		return nil, errors.New("invalid default role", errors.CategoryBadInput).
			WithMetadata(map[string]any{"role": cfg.DefaultRole})
	}

	return cfg, nil
}

// GetMaxRoleAttempts returns the role lookup retry bound.
func (c *EnvConfig) GetMaxRoleAttempts() int {
	return c.MaxRoleAttempts
}

// GetRoleRetryInterval returns the wait between lookups, in seconds.
func (c *EnvConfig) GetRoleRetryInterval() int {
	return c.RoleRetryInterval
}

// GetExpiryWarningWindow returns the pre-expiry warning window, in minutes.
func (c *EnvConfig) GetExpiryWarningWindow() int {
	return c.ExpiryWarningWindow
}

// GetDefaultRole returns the role assigned to fresh account records.
func (c *EnvConfig) GetDefaultRole() string {
	return c.DefaultRole
}

// GetRejectedRouteKey returns the cookie name carrying the continuation path.
func (c *EnvConfig) GetRejectedRouteKey() string {
	return c.RejectedRouteKey
}

// GetRejectedRouteDefault returns where sign-in lands absent a continuation.
func (c *EnvConfig) GetRejectedRouteDefault() string {
	return c.RejectedRouteDefault
}
