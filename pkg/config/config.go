// Package config loads the server configuration from defaults, an optional
// YAML file and PCSHOP_* environment variables.
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pcshop/configurator/pkg/db"
)

// Config holds the server settings that are not owned by a subsystem.
// Subsystems (jobs, cache, audit, stock, authz, ha) read their own
// PCSHOP_* variables.
type Config struct {
	Listen          string         `mapstructure:"listen"`
	LogLevel        string         `mapstructure:"log_level"`
	SeedPath        string         `mapstructure:"seed"`
	ShutdownTimeout time.Duration  `mapstructure:"shutdown_timeout"`
	Database        DatabaseConfig `mapstructure:"database"`
	CORS            CORSConfig     `mapstructure:"cors"`
}

// DatabaseConfig selects and tunes the database connection.
type DatabaseConfig struct {
	Type            string        `mapstructure:"type"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
}

// DB converts the settings to a db.Config.
func (d DatabaseConfig) DB() db.Config {
	return db.Config{
		Type:            d.Type,
		DSN:             d.DSN,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		LogLevel:        d.LogLevel,
	}
}

// CORSConfig lists the origins browsers may call the API from.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Default configuration values.
const (
	DefaultListen          = ":8080"
	DefaultLogLevel        = "info"
	DefaultDatabaseType    = db.TypeSQLite
	DefaultDatabaseDSN     = "pcshop.db"
	DefaultShutdownTimeout = 30 * time.Second
)

// LoadConfig loads configuration from file and environment variables.
// Precedence (highest to lowest): env vars > config file > defaults.
// An empty cfgFile reads pcshop.yaml from the working directory if present.
func LoadConfig(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen", DefaultListen)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("seed", "")
	v.SetDefault("shutdown_timeout", DefaultShutdownTimeout)
	v.SetDefault("database.type", DefaultDatabaseType)
	v.SetDefault("database.dsn", DefaultDatabaseDSN)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("cors.allowed_origins", []string{"https://*", "http://*"})

	v.SetEnvPrefix("PCSHOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// The unprefixed names used by container images.
	_ = v.BindEnv("database.type", "PCSHOP_DATABASE_TYPE", "DATABASE_TYPE")
	_ = v.BindEnv("database.dsn", "PCSHOP_DATABASE_DSN", "DATABASE_DSN")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	} else {
		for _, path := range []string{"pcshop.yaml", "pcshop.yml"} {
			if _, err := os.Stat(path); err == nil {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return nil, fmt.Errorf("error reading config file %s: %w", path, err)
				}
				break
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the configuration can start a server.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if _, err := db.Dialector(c.Database.Type, c.Database.DSN); err != nil {
		return fmt.Errorf("database.type: %w", err)
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}
	return nil
}
