package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"golang.org/x/text/currency"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Session   SessionConfig   `mapstructure:"session"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Uploads   UploadsConfig   `mapstructure:"uploads"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// SecureCookies marks the session cookie Secure; enable behind TLS
	SecureCookies  bool     `mapstructure:"secure_cookies"`
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// UpstreamConfig points at the payment REST API
type UpstreamConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	CountryCodesURL string        `mapstructure:"country_codes_url"`
}

// SessionConfig holds login session configuration
type SessionConfig struct {
	// Store backs browser-session logins: memory or redis
	Store           string        `mapstructure:"store"`
	TTL             time.Duration `mapstructure:"ttl"`
	RememberTTL     time.Duration `mapstructure:"remember_ttl"`
	JanitorSchedule string        `mapstructure:"janitor_schedule"`
	Redis           RedisConfig   `mapstructure:"redis"`
}

// RedisConfig holds redis connection settings for the session store
type RedisConfig struct {
	Addrs      []string `mapstructure:"addrs"`
	Password   string   `mapstructure:"password"`
	DB         int      `mapstructure:"db"`
	UseCluster bool     `mapstructure:"use_cluster"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// CacheConfig sizes the shared query cache
type CacheConfig struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// DefaultsConfig fills create-request selections the user left empty
type DefaultsConfig struct {
	EntityID     int64  `mapstructure:"entity_id"`
	DepartmentID int64  `mapstructure:"department_id"`
	GLAccount    string `mapstructure:"gl_account"`
	Currency     string `mapstructure:"currency"`
}

// RateLimitConfig bounds login attempts per client IP
type RateLimitConfig struct {
	LoginPerMinute float64 `mapstructure:"login_per_minute"`
	LoginBurst     int     `mapstructure:"login_burst"`
}

// UploadsConfig holds attachment staging configuration
type UploadsConfig struct {
	Dir         string        `mapstructure:"dir"`
	MaxFileSize int64         `mapstructure:"max_file_size"`
	StaleAfter  time.Duration `mapstructure:"stale_after"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load reads .env (when present), then configPath, then environment
// variables. An empty configPath uses defaults and the environment only.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv exports the variables of a dotenv file without overriding
// variables already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := gotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.secure_cookies", false)

	// Upstream defaults
	v.SetDefault("upstream.timeout", 30*time.Second)
	v.SetDefault("upstream.country_codes_url", "https://restcountries.com/v3.1/all?fields=name,cca2,idd")

	// Session defaults
	v.SetDefault("session.store", "memory")
	v.SetDefault("session.ttl", 12*time.Hour)
	v.SetDefault("session.remember_ttl", 30*24*time.Hour)
	v.SetDefault("session.janitor_schedule", "@every 10m")
	v.SetDefault("session.redis.addrs", []string{})
	v.SetDefault("session.redis.db", 0)
	v.SetDefault("session.redis.use_cluster", false)

	// Database defaults
	v.SetDefault("database.path", "data/portal.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Cache defaults
	v.SetDefault("cache.size", 512)
	v.SetDefault("cache.ttl", 30*time.Second)

	// Create-request defaults
	v.SetDefault("defaults.entity_id", 1)
	v.SetDefault("defaults.department_id", 0)
	v.SetDefault("defaults.gl_account", "")
	v.SetDefault("defaults.currency", "USD")

	// Rate limit defaults
	v.SetDefault("rate_limit.login_per_minute", 10)
	v.SetDefault("rate_limit.login_burst", 5)

	// Upload defaults
	v.SetDefault("uploads.dir", "data/uploads")
	v.SetDefault("uploads.max_file_size", 10<<20)
	v.SetDefault("uploads.stale_after", time.Hour)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds the deployment-specific settings to plain variable names
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("upstream.base_url", "PORTAL_UPSTREAM_BASE_URL", "PAYMENT_API_BASE_URL")
	_ = v.BindEnv("session.redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("session.store", "SESSION_STORE")
	_ = v.BindEnv("database.path", "DATABASE_PATH")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url is required")
	}
	if u, err := url.Parse(c.Upstream.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("upstream.base_url %q is not an absolute URL", c.Upstream.BaseURL)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}

	switch c.Session.Store {
	case "memory":
	case "redis":
		if len(c.Session.Redis.Addrs) == 0 {
			return fmt.Errorf("session.redis.addrs is required when session.store is redis")
		}
	default:
		return fmt.Errorf("session.store must be memory or redis, got %q", c.Session.Store)
	}

	if c.Session.TTL <= 0 || c.Session.RememberTTL <= 0 {
		return fmt.Errorf("session.ttl and session.remember_ttl must be positive")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Defaults.Currency != "" {
		if _, err := currency.ParseISO(c.Defaults.Currency); err != nil {
			return fmt.Errorf("defaults.currency %q is not a valid ISO code", c.Defaults.Currency)
		}
	}

	if c.Uploads.MaxFileSize <= 0 || c.Uploads.StaleAfter <= 0 {
		return fmt.Errorf("uploads.max_file_size and uploads.stale_after must be positive")
	}

	if c.RateLimit.LoginPerMinute <= 0 || c.RateLimit.LoginBurst <= 0 {
		return fmt.Errorf("rate_limit.login_per_minute and rate_limit.login_burst must be positive")
	}

	return nil
}
