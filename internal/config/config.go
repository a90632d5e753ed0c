// Package config provides configuration management.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"permit-fees/internal/logging"
)

// Catalog drivers
const (
	DriverHCL      = "hcl"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Environment variables that override file configuration
const (
	EnvCatalogDriver = "PERMIT_FEES_CATALOG_DRIVER"
	EnvCatalogDSN    = "PERMIT_FEES_CATALOG_DSN"
	EnvCatalogPath   = "PERMIT_FEES_CATALOG_PATH"
	EnvAddr          = "PERMIT_FEES_ADDR"
	EnvLogLevel      = "PERMIT_FEES_LOG_LEVEL"
	EnvFetchTimeout  = "PERMIT_FEES_FETCH_TIMEOUT"
)

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version"`

	// Catalog selects and tunes the fee catalog source
	Catalog CatalogConfig `json:"catalog"`

	// Server contains HTTP server settings
	Server ServerConfig `json:"server"`

	// Matching tunes applicability matching
	Matching MatchingConfig `json:"matching"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging"`
}

// CatalogConfig contains catalog source settings
type CatalogConfig struct {
	// Driver is one of hcl, sqlite, postgres
	Driver string `json:"driver"`

	// DSN is the database connection string for sqlite/postgres
	DSN string `json:"dsn,omitempty"`

	// Path is the HCL snapshot file or directory
	Path string `json:"path,omitempty"`

	// FetchTimeout bounds every catalog read
	FetchTimeout Duration `json:"fetch_timeout"`

	// CacheTTL caches catalog reads; zero disables caching
	CacheTTL Duration `json:"cache_ttl"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Addr         string   `json:"addr"`
	ReadTimeout  Duration `json:"read_timeout"`
	WriteTimeout Duration `json:"write_timeout"`

	// RateLimit is the sustained requests per second; zero disables limiting
	RateLimit float64 `json:"rate_limit"`
	Burst     int     `json:"burst"`
}

// MatchingConfig tunes applicability matching
type MatchingConfig struct {
	// SubtypeContainment enables substring containment as a fallback
	// after exact normalized use-subtype matching fails.
	SubtypeContainment bool `json:"subtype_containment"`
}

// Duration is a time.Duration that reads and writes as "30s" in JSON
type Duration time.Duration

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// DefaultPath is the config file read when none is given
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".permit-fees", "config.json")
}

// Default returns a default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	catalogPath := filepath.Join(homeDir, ".permit-fees", "catalog.hcl")

	return &Config{
		Version: "1.0",
		Catalog: CatalogConfig{
			Driver:       DriverHCL,
			Path:         catalogPath,
			FetchTimeout: Duration(10 * time.Second),
			CacheTTL:     Duration(5 * time.Minute),
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  Duration(15 * time.Second),
			WriteTimeout: Duration(30 * time.Second),
			RateLimit:    10,
			Burst:        30,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file. A missing file yields defaults.
// Environment overrides are applied afterwards.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, config); err != nil {
				return nil, err
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overlays environment variables, loading a .env file first when present
func (c *Config) ApplyEnv() error {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	if v := os.Getenv(EnvCatalogDriver); v != "" {
		c.Catalog.Driver = strings.ToLower(v)
	}
	if v := os.Getenv(EnvCatalogDSN); v != "" {
		c.Catalog.DSN = v
	}
	if v := os.Getenv(EnvCatalogPath); v != "" {
		c.Catalog.Path = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvFetchTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvFetchTimeout, err)
		}
		c.Catalog.FetchTimeout = Duration(d)
	}
	return nil
}

// Validate reports every configuration problem at once
func (c *Config) Validate() error {
	var err error

	switch c.Catalog.Driver {
	case DriverHCL:
		if c.Catalog.Path == "" {
			err = multierr.Append(err, fmt.Errorf("catalog.path is required for the hcl driver"))
		}
	case DriverSQLite, DriverPostgres:
		if c.Catalog.DSN == "" {
			err = multierr.Append(err, fmt.Errorf("catalog.dsn is required for the %s driver", c.Catalog.Driver))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unknown catalog.driver %q", c.Catalog.Driver))
	}

	if c.Catalog.FetchTimeout < 0 {
		err = multierr.Append(err, fmt.Errorf("catalog.fetch_timeout must not be negative"))
	}
	if c.Catalog.CacheTTL < 0 {
		err = multierr.Append(err, fmt.Errorf("catalog.cache_ttl must not be negative"))
	}
	if c.Server.RateLimit < 0 {
		err = multierr.Append(err, fmt.Errorf("server.rate_limit must not be negative"))
	}
	if c.Server.RateLimit > 0 && c.Server.Burst < 1 {
		err = multierr.Append(err, fmt.Errorf("server.burst must be at least 1 when rate limiting"))
	}

	return err
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
