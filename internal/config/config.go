package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar names the environment variable holding an explicit config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// EnvPrefix is stripped from environment variables before they are mapped to config keys.
// A double underscore separates nested sections: MAPGROUPS_GEOCODER__USER_AGENT.
const EnvPrefix = "MAPGROUPS_"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/mapgroups/config.yaml",
}

// Config holds all application configuration
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Device      DeviceConfig      `koanf:"device"`
	Geocoder    GeocoderConfig    `koanf:"geocoder"`
	Import      ImportConfig      `koanf:"import"`
	Maintenance MaintenanceConfig `koanf:"maintenance"`
	Security    SecurityConfig    `koanf:"security"`
	Logging     LoggingConfig     `koanf:"logging"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Address         string        `koanf:"address"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig selects the store. URL takes precedence over Path.
type DatabaseConfig struct {
	Path string `koanf:"path"`
	URL  string `koanf:"url"`
}

// DeviceConfig configures the device identity cookie
type DeviceConfig struct {
	CookieName   string        `koanf:"cookie_name"`
	CookieMaxAge time.Duration `koanf:"cookie_max_age"`
	SecureCookie bool          `koanf:"secure_cookie"`
}

// GeocoderConfig configures the Nominatim client and its decorators
type GeocoderConfig struct {
	BaseURL           string        `koanf:"base_url"`
	UserAgent         string        `koanf:"user_agent"`
	Email             string        `koanf:"email"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Timeout           time.Duration `koanf:"timeout"`
	CacheEnabled      bool          `koanf:"cache_enabled"`
	CachePath         string        `koanf:"cache_path"`
	CacheTTL          time.Duration `koanf:"cache_ttl"`
}

// ImportConfig bounds the bulk import pipeline
type ImportConfig struct {
	Delay            time.Duration `koanf:"delay"`
	MaxAddresses     int           `koanf:"max_addresses"`
	MaxInputChars    int           `koanf:"max_input_chars"`
	MaxAddressLength int           `koanf:"max_address_length"`
	DefaultGroupName string        `koanf:"default_group_name"`
}

// MaintenanceConfig configures the inactive device sweep
type MaintenanceConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Interval      time.Duration `koanf:"interval"`
	InactiveAfter time.Duration `koanf:"inactive_after"`
}

// SecurityConfig configures CORS and request rate limiting
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig configures the zerolog logger
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// TelemetryConfig configures OpenTelemetry export
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint"`
	ServiceName string `koanf:"service_name"`
	Environment string `koanf:"environment"`
}

// UsePostgres returns true if PostgreSQL should be used
func (c *Config) UsePostgres() bool {
	return c.Database.URL != ""
}

// Default configuration
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":5000",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "mapgroups.db",
		},
		Device: DeviceConfig{
			CookieName:   "deviceId",
			CookieMaxAge: 365 * 24 * time.Hour,
		},
		Geocoder: GeocoderConfig{
			BaseURL:           "https://nominatim.openstreetmap.org",
			UserAgent:         "MapGroups/1.0",
			RequestsPerSecond: 1,
			Timeout:           10 * time.Second,
			CacheEnabled:      true,
			CachePath:         "./data/geocache",
			CacheTTL:          30 * 24 * time.Hour,
		},
		Import: ImportConfig{
			Delay:            500 * time.Millisecond,
			MaxAddresses:     50,
			MaxInputChars:    10000,
			MaxAddressLength: 200,
			DefaultGroupName: "My Locations",
		},
		Maintenance: MaintenanceConfig{
			Enabled:       true,
			Interval:      24 * time.Hour,
			InactiveAfter: 180 * 24 * time.Hour,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 300,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			ServiceName: "mapgroups-server",
			Environment: "development",
		},
	}
}

// Load loads configuration from defaults, an optional YAML file, and the environment
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate rejects configurations the server cannot run with
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if !c.UsePostgres() && c.Database.Path == "" {
		return fmt.Errorf("database.path or database.url is required")
	}
	if c.Device.CookieName == "" {
		return fmt.Errorf("device.cookie_name is required")
	}
	if c.Geocoder.UserAgent == "" {
		return fmt.Errorf("geocoder.user_agent is required by the Nominatim usage policy")
	}
	if c.Geocoder.RequestsPerSecond <= 0 {
		return fmt.Errorf("geocoder.requests_per_second must be positive")
	}
	if c.Import.MaxAddresses <= 0 || c.Import.MaxInputChars <= 0 || c.Import.MaxAddressLength <= 0 {
		return fmt.Errorf("import limits must be positive")
	}
	if c.Import.Delay < 0 {
		return fmt.Errorf("import.delay cannot be negative")
	}
	if c.Maintenance.Enabled && c.Maintenance.Interval <= 0 {
		return fmt.Errorf("maintenance.interval must be positive")
	}
	if !c.Security.RateLimitDisabled && (c.Security.RateLimitRequests <= 0 || c.Security.RateLimitWindow <= 0) {
		return fmt.Errorf("security rate limit must be positive")
	}
	return nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// legacyEnv keeps the flat variable names older deployments used
var legacyEnv = map[string]string{
	"server_address": "server.address",
	"database_path":  "database.path",
	"database_url":   "database.url",
	"log_level":      "logging.level",
	"otel_enabled":   "telemetry.enabled",
	"environment":    "telemetry.environment",
}

// envTransformFunc maps environment variable names to koanf paths.
// Unknown variables return "" and are ignored.
func envTransformFunc(key string) string {
	lower := strings.ToLower(key)
	if mapped, ok := legacyEnv[lower]; ok {
		return mapped
	}
	if !strings.HasPrefix(key, EnvPrefix) {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), "__", ".")
}

var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields splits comma separated env values for slice fields
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}
