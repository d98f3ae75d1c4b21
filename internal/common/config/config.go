// Package config provides configuration management for the HaloLight server.
// It supports loading configuration from environment variables, config files, and defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration sections for the HaloLight server.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Fixtures FixturesConfig `mapstructure:"fixtures"`
	UI       UIConfig       `mapstructure:"ui"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"readTimeout"`  // in seconds
	WriteTimeout int    `mapstructure:"writeTimeout"` // in seconds
}

// DatabaseConfig holds database connection configuration.
// Driver selects "sqlite" (default) or "postgres".
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"` // sqlite file path
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbName"`
	SSLMode  string `mapstructure:"sslMode"`
	MaxConns int    `mapstructure:"maxConns"`
	MinConns int    `mapstructure:"minConns"`
}

// NATSConfig holds NATS messaging configuration.
// An empty URL selects the in-memory event bus.
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	ClientID      string `mapstructure:"clientId"`
	MaxReconnects int    `mapstructure:"maxReconnects"`
}

// AuthConfig holds token issuance configuration.
type AuthConfig struct {
	JWTSecret       string `mapstructure:"jwtSecret"`
	AccessTokenTTL  int    `mapstructure:"accessTokenTtl"`  // in seconds
	RefreshTokenTTL int    `mapstructure:"refreshTokenTtl"` // in seconds
	Issuer          string `mapstructure:"issuer"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"outputPath"`
}

// FixturesConfig holds configuration for the canned REST data.
type FixturesConfig struct {
	SeedFile string `mapstructure:"seedFile"` // optional YAML seed file
	Seed     int64  `mapstructure:"seed"`     // deterministic generator seed
}

// UIConfig holds defaults for newly created client state bundles.
type UIConfig struct {
	DefaultTheme        string `mapstructure:"defaultTheme"` // light, dark, system
	NotificationTTLMs   int    `mapstructure:"notificationTtlMs"`
	HomeTabPath         string `mapstructure:"homeTabPath"`
	HomeTabTitle        string `mapstructure:"homeTabTitle"`
	StorageKeyPrefix    string `mapstructure:"storageKeyPrefix"`
	SessionLoginTimeout int    `mapstructure:"sessionLoginTimeout"` // in seconds
}

// ReadTimeoutDuration returns the read timeout as a time.Duration.
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns the write timeout as a time.Duration.
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// AccessTokenDuration returns the access token lifetime as a time.Duration.
func (a *AuthConfig) AccessTokenDuration() time.Duration {
	return time.Duration(a.AccessTokenTTL) * time.Second
}

// RefreshTokenDuration returns the refresh token lifetime as a time.Duration.
func (a *AuthConfig) RefreshTokenDuration() time.Duration {
	return time.Duration(a.RefreshTokenTTL) * time.Second
}

// NotificationTTL returns the default notification lifetime.
func (u *UIConfig) NotificationTTL() time.Duration {
	return time.Duration(u.NotificationTTLMs) * time.Millisecond
}

// detectDefaultLogFormat returns "json" in production-like environments and
// "text" for terminal/development use.
func detectDefaultLogFormat() string {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return "json"
	}
	if env := os.Getenv("HALOLIGHT_ENV"); env == "production" || env == "prod" {
		return "json"
	}
	return "text"
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)

	// Database defaults - sqlite file in the working directory
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./halolight.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "halolight")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbName", "halolight")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxConns", 25)
	v.SetDefault("database.minConns", 5)

	// NATS defaults - empty URL means use in-memory event bus
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.clientId", "halolight-server")
	v.SetDefault("nats.maxReconnects", 10)

	// Auth defaults
	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.accessTokenTtl", 3600)      // 1 hour
	v.SetDefault("auth.refreshTokenTtl", 1209600)  // 14 days
	v.SetDefault("auth.issuer", "halolight")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", detectDefaultLogFormat())
	v.SetDefault("logging.outputPath", "stdout")

	// Fixture defaults
	v.SetDefault("fixtures.seedFile", "")
	v.SetDefault("fixtures.seed", 1)

	// UI state defaults
	v.SetDefault("ui.defaultTheme", "system")
	v.SetDefault("ui.notificationTtlMs", 5000)
	v.SetDefault("ui.homeTabPath", "/dashboard")
	v.SetDefault("ui.homeTabTitle", "Dashboard")
	v.SetDefault("ui.storageKeyPrefix", "halolight")
	v.SetDefault("ui.sessionLoginTimeout", 10)
}

// Load reads configuration from environment variables, config file, and defaults.
// Environment variables use the prefix HALOLIGHT_ with snake_case naming.
// Config file should be named config.yaml and placed in the current directory
// or /etc/halolight/.
func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath reads configuration from the specified path or default locations.
func LoadWithPath(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults first
	setDefaults(v)

	// Configure environment variables
	v.SetEnvPrefix("HALOLIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicit bindings for snake_case env vars (camelCase config keys).
	// AutomaticEnv does not handle camelCase to SNAKE_CASE conversion.
	_ = v.BindEnv("database.driver", "HALOLIGHT_DB_DRIVER")
	_ = v.BindEnv("database.path", "HALOLIGHT_DB_PATH")
	_ = v.BindEnv("auth.jwtSecret", "HALOLIGHT_AUTH_JWT_SECRET")
	_ = v.BindEnv("fixtures.seedFile", "HALOLIGHT_FIXTURES_SEED_FILE")

	// Configure config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/halolight/")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validate checks that all required configuration fields are set.
// In development mode (default), most fields are optional.
func validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	switch cfg.Database.Driver {
	case "sqlite":
		if cfg.Database.Path == "" {
			errs = append(errs, "database.path is required for the sqlite driver")
		}
	case "postgres":
		if cfg.Database.Host == "" {
			errs = append(errs, "database.host is required for the postgres driver")
		}
		if cfg.Database.User == "" {
			errs = append(errs, "database.user is required for the postgres driver")
		}
		if cfg.Database.DBName == "" {
			errs = append(errs, "database.dbName is required for the postgres driver")
		}
	default:
		errs = append(errs, "database.driver must be one of: sqlite, postgres")
	}

	// Auth validation - generate random secret if not set (dev mode)
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = generateDevSecret()
	}
	if cfg.Auth.AccessTokenTTL <= 0 {
		errs = append(errs, "auth.accessTokenTtl must be positive")
	}
	if cfg.Auth.RefreshTokenTTL <= 0 {
		errs = append(errs, "auth.refreshTokenTtl must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, "logging.format must be one of: json, text")
	}

	validThemes := map[string]bool{"light": true, "dark": true, "system": true}
	if !validThemes[cfg.UI.DefaultTheme] {
		errs = append(errs, "ui.defaultTheme must be one of: light, dark, system")
	}
	if cfg.UI.NotificationTTLMs <= 0 {
		errs = append(errs, "ui.notificationTtlMs must be positive")
	}
	if cfg.UI.HomeTabPath == "" {
		errs = append(errs, "ui.homeTabPath must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// generateDevSecret generates a random secret for development mode.
func generateDevSecret() string {
	// In production, users should set HALOLIGHT_AUTH_JWT_SECRET
	return "dev-secret-change-in-production-" + fmt.Sprintf("%d", time.Now().UnixNano())
}
