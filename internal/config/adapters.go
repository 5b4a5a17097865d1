package config

import (
	"fmt"

	"github.com/garyjia/payment-portal/internal/form"
	"github.com/garyjia/payment-portal/internal/gateway"
	"github.com/garyjia/payment-portal/internal/session"
	"github.com/garyjia/payment-portal/pkg/database"
	"github.com/garyjia/payment-portal/pkg/utils"
)

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GatewayConfig converts the upstream section for the gateway client
func (c *Config) GatewayConfig() gateway.Config {
	return gateway.Config{
		BaseURL: c.Upstream.BaseURL,
		Timeout: c.Upstream.Timeout,
	}
}

// SessionManagerConfig converts the session section for the session manager
func (c *Config) SessionManagerConfig() session.Config {
	return session.Config{
		RememberTTL:     c.Session.RememberTTL,
		SessionTTL:      c.Session.TTL,
		JanitorSchedule: c.Session.JanitorSchedule,
	}
}

// RedisConfig converts the redis settings for the session store
func (c *Config) RedisConfig() session.RedisConfig {
	return session.RedisConfig{
		Addrs:      c.Session.Redis.Addrs,
		Password:   c.Session.Redis.Password,
		DB:         c.Session.Redis.DB,
		UseCluster: c.Session.Redis.UseCluster,
	}
}

// DatabaseConfig converts the database section
func (c *Config) DatabaseConfig() database.Config {
	return database.Config{
		Path:            c.Database.Path,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
	}
}

// LoggerConfig converts the logger section
func (c *Config) LoggerConfig() utils.LoggerConfig {
	return utils.LoggerConfig{
		Level:      c.Logger.Level,
		OutputPath: c.Logger.OutputPath,
		Format:     c.Logger.Format,
	}
}

// FormDefaults converts the create-request defaults
func (c *Config) FormDefaults() form.Defaults {
	return form.Defaults{
		EntityID:     c.Defaults.EntityID,
		DepartmentID: c.Defaults.DepartmentID,
		GLAccount:    c.Defaults.GLAccount,
		Currency:     c.Defaults.Currency,
	}
}
