package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/tokengate/pkg/errors"
)

// Config holds the application's configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Keys       KeysConfig       `mapstructure:"keys"`
	Security   SecurityConfig   `mapstructure:"security"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Log        LogConfig        `mapstructure:"log"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

type ServerConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // in seconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // in seconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // in seconds
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // postgres | sqlite
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"ssl_mode"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxConnLifetime int    `mapstructure:"max_conn_lifetime"` // in minutes
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

// GetDSN returns the postgres connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	AccessTokenExpiration  int64  `mapstructure:"access_token_expiration"`  // in milliseconds
	RefreshTokenExpiration int64  `mapstructure:"refresh_token_expiration"` // in milliseconds
	Issuer                 string `mapstructure:"issuer"`
}

// AccessTokenTTL returns the access-token lifetime.
func (c *JWTConfig) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpiration) * time.Millisecond
}

// RefreshTokenTTL returns the refresh-token lifetime.
func (c *JWTConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenExpiration) * time.Millisecond
}

type KeysConfig struct {
	Dir         string        `mapstructure:"dir"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

type SecurityConfig struct {
	// PublicPaths are served without a token. Entries ending in "/**" match a prefix.
	PublicPaths []string `mapstructure:"public_paths"`
	BcryptCost  int      `mapstructure:"bcrypt_cost"`
	// DisposableEmailDomains are refused at registration. An entry matches the
	// whole domain or the domain without its last label ("mailinator").
	DisposableEmailDomains []string `mapstructure:"disposable_email_domains"`
}

type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Limit   int           `mapstructure:"limit"`
	Window  time.Duration `mapstructure:"window"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | console
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Endpoint     string  `mapstructure:"endpoint"`
	Insecure     bool    `mapstructure:"insecure"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type MonitoringConfig struct {
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	if c.JWT.AccessTokenExpiration <= 0 {
		return errors.ErrInvalidConfig.WithMessage("jwt.access_token_expiration must be positive")
	}
	if c.JWT.RefreshTokenExpiration <= 0 {
		return errors.ErrInvalidConfig.WithMessage("jwt.refresh_token_expiration must be positive")
	}
	if strings.TrimSpace(c.Keys.Dir) == "" {
		return errors.ErrInvalidConfig.WithMessage("keys.dir is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.ErrInvalidConfig.WithMessage("server.port %d is out of range", c.Server.Port)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return errors.ErrInvalidConfig.WithMessage("database.driver %q is not supported", c.Database.Driver)
	}
	if c.RateLimit.Enabled && (c.RateLimit.Limit <= 0 || c.RateLimit.Window <= 0) {
		return errors.ErrInvalidConfig.WithMessage("rate_limit.limit and rate_limit.window must be positive when enabled")
	}
	if c.Redis.Enabled && c.Redis.Address == "" {
		return errors.ErrInvalidConfig.WithMessage("redis.address is required when redis is enabled")
	}
	return nil
}
