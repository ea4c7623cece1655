// Package config loads the gateway configuration from the environment into
// one immutable struct constructed at startup. Components receive it by
// reference; there is no ambient lookup after Load returns.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/sqlgate/sqlgate/internal/gateerr"
)

// Config holds the full gateway configuration.
type Config struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`

	// ReadWrite permits mutating statements (INSERT/UPDATE/DELETE).
	ReadWrite bool `mapstructure:"read_write"`
	// Admin additionally permits schema-altering statements.
	Admin bool `mapstructure:"admin"`

	MaxRows                 int `mapstructure:"max_rows"`
	StatementTimeoutSeconds int `mapstructure:"statement_timeout_seconds"`
	PoolSize                int `mapstructure:"pool_size"`
	AcquireTimeoutSeconds   int `mapstructure:"acquire_timeout_seconds"`
	ConnectRetries          int `mapstructure:"connect_retries"`
}

// StatementTimeout returns the per-statement budget as a duration.
func (c *Config) StatementTimeout() time.Duration {
	return time.Duration(c.StatementTimeoutSeconds) * time.Second
}

// AcquireTimeout returns how long Acquire may block on an exhausted pool.
func (c *Config) AcquireTimeout() time.Duration {
	return time.Duration(c.AcquireTimeoutSeconds) * time.Second
}

var envKeys = map[string]string{
	"driver":                    "DB_DRIVER",
	"host":                      "DB_HOST",
	"port":                      "DB_PORT",
	"database":                  "DB_NAME",
	"user":                      "DB_USER",
	"password":                  "DB_PASSWORD",
	"sslmode":                   "DB_SSLMODE",
	"read_write":                "READ_WRITE_MODE",
	"admin":                     "ADMIN_MODE",
	"max_rows":                  "MAX_ROWS",
	"statement_timeout_seconds": "STATEMENT_TIMEOUT_SECONDS",
	"pool_size":                 "POOL_SIZE",
	"acquire_timeout_seconds":   "ACQUIRE_TIMEOUT_SECONDS",
	"connect_retries":           "CONNECT_RETRIES",
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	v := viper.New()
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, gateerr.Wrap(gateerr.KindConnection, "bind env", err)
		}
	}

	v.SetDefault("driver", "postgres")
	v.SetDefault("host", "localhost")
	v.SetDefault("port", 5432)
	v.SetDefault("sslmode", "prefer")
	v.SetDefault("read_write", false)
	v.SetDefault("admin", false)
	v.SetDefault("max_rows", 1000)
	v.SetDefault("statement_timeout_seconds", 30)
	v.SetDefault("pool_size", 2)
	v.SetDefault("acquire_timeout_seconds", 10)
	v.SetDefault("connect_retries", 3)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, gateerr.Wrap(gateerr.KindConnection, "unmarshal config", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	switch cfg.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return gateerr.Newf(gateerr.KindConnection, "unsupported DB_DRIVER %q", cfg.Driver)
	}

	var missing []string
	if cfg.Database == "" {
		missing = append(missing, "DB_NAME")
	}
	// sqlite needs only a path in DB_NAME
	if cfg.Driver != "sqlite" {
		if cfg.User == "" {
			missing = append(missing, "DB_USER")
		}
		if cfg.Password == "" {
			missing = append(missing, "DB_PASSWORD")
		}
	}
	if len(missing) > 0 {
		return gateerr.Newf(gateerr.KindConnection, "missing required environment variables: %v", missing)
	}

	if cfg.MaxRows < 1 {
		return gateerr.Newf(gateerr.KindConnection, "MAX_ROWS must be positive, got %d", cfg.MaxRows)
	}
	if cfg.StatementTimeoutSeconds < 1 {
		return gateerr.Newf(gateerr.KindConnection, "STATEMENT_TIMEOUT_SECONDS must be positive, got %d", cfg.StatementTimeoutSeconds)
	}
	if cfg.PoolSize < 1 {
		return gateerr.Newf(gateerr.KindConnection, "POOL_SIZE must be positive, got %d", cfg.PoolSize)
	}
	return nil
}

// Endpoint returns a display string for logs, without credentials.
func (cfg *Config) Endpoint() string {
	if cfg.Driver == "sqlite" {
		return cfg.Database
	}
	return fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
}
