package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv   = "COMMENTSYNC_CONFIG"
	warehouseDSNEnv = "WAREHOUSE_DSN"
	bearerTokenEnv  = "ENDPOINT_BEARER_TOKEN"
	storePathEnv    = "COMMENTSYNC_STORE_PATH"
)

// ErrNoToken signals that no credential source is configured. The process
// refuses to start in that case; there is no built-in default token.
var ErrNoToken = errors.New("no bearer token configured: set " + bearerTokenEnv + " or auth.token")

// Config holds high-level settings required across the application.
type Config struct {
	Logging     LoggingConfig    `yaml:"logging"`
	Store       StoreConfig      `yaml:"store"`
	Warehouse   WarehouseConfig  `yaml:"warehouse"`
	Endpoints   EndpointConfig   `yaml:"endpoints"`
	Auth        AuthConfig       `yaml:"auth"`
	Transport   TransportConfig  `yaml:"transport"`
	Attachments AttachmentConfig `yaml:"attachments"`
	Export      ExportConfig     `yaml:"export"`
}

// LoggingConfig controls log verbosity and the optional run log file.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// StoreConfig points at the local SQLite record store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// WarehouseConfig describes the analytical-warehouse connection and the
// extraction queries. Empty queries fall back to the built-in defaults.
type WarehouseConfig struct {
	DSN            string `yaml:"dsn"`
	WorkOrderQuery string `yaml:"workOrderQuery"`
	CommentQuery   string `yaml:"commentQuery"`
}

// EndpointConfig carries the two delivery URLs.
type EndpointConfig struct {
	Comments string `yaml:"comments"`
	Images   string `yaml:"images"`
}

// AuthConfig holds the bearer token; usually supplied via environment.
type AuthConfig struct {
	Token string `yaml:"token"`
}

// TransportConfig tunes the resilient HTTP client.
type TransportConfig struct {
	TimeoutSeconds     int  `yaml:"timeoutSeconds"`
	MaxAttempts        int  `yaml:"maxAttempts"`
	BackoffMillis      int  `yaml:"backoffMillis"`
	InsecureSkipVerify bool `yaml:"insecureSkipVerify"`
}

// Timeout resolves the per-request timeout.
func (t TransportConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// Backoff resolves the initial retry delay.
func (t TransportConfig) Backoff() time.Duration {
	return time.Duration(t.BackoffMillis) * time.Millisecond
}

// AttachmentConfig locates the local attachment directory.
type AttachmentConfig struct {
	Dir string `yaml:"dir"`
}

// ExportConfig locates the directory for JSON export files.
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// Load reads YAML configuration (if present), applies environment overrides
// and validates the result. A missing bearer token is a hard failure.
func Load() (Config, error) {
	return LoadFile(os.Getenv(configPathEnv))
}

// LoadFile is Load with an explicit config path; empty path skips the file.
func LoadFile(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(warehouseDSNEnv); v != "" {
		c.Warehouse.DSN = v
	}
	if v := os.Getenv(bearerTokenEnv); v != "" {
		c.Auth.Token = v
	}
	if v := os.Getenv(storePathEnv); v != "" {
		c.Store.Path = v
	}
}

func (c Config) validate() error {
	if c.Auth.Token == "" {
		return ErrNoToken
	}
	if c.Store.Path == "" {
		return errors.New("config: store.path is required")
	}
	return nil
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.File != "" {
		base.Logging.File = override.Logging.File
	}

	if override.Store.Path != "" {
		base.Store.Path = override.Store.Path
	}

	if override.Warehouse.DSN != "" {
		base.Warehouse.DSN = override.Warehouse.DSN
	}
	if override.Warehouse.WorkOrderQuery != "" {
		base.Warehouse.WorkOrderQuery = override.Warehouse.WorkOrderQuery
	}
	if override.Warehouse.CommentQuery != "" {
		base.Warehouse.CommentQuery = override.Warehouse.CommentQuery
	}

	if override.Endpoints.Comments != "" {
		base.Endpoints.Comments = override.Endpoints.Comments
	}
	if override.Endpoints.Images != "" {
		base.Endpoints.Images = override.Endpoints.Images
	}

	if override.Auth.Token != "" {
		base.Auth.Token = override.Auth.Token
	}

	if override.Transport.TimeoutSeconds > 0 {
		base.Transport.TimeoutSeconds = override.Transport.TimeoutSeconds
	}
	if override.Transport.MaxAttempts > 0 {
		base.Transport.MaxAttempts = override.Transport.MaxAttempts
	}
	if override.Transport.BackoffMillis > 0 {
		base.Transport.BackoffMillis = override.Transport.BackoffMillis
	}
	if override.Transport.InsecureSkipVerify {
		base.Transport.InsecureSkipVerify = true
	}

	if override.Attachments.Dir != "" {
		base.Attachments.Dir = override.Attachments.Dir
	}
	if override.Export.Dir != "" {
		base.Export.Dir = override.Export.Dir
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:     LoggingConfig{Level: "info", File: ""},
		Store:       StoreConfig{Path: "comments.db"},
		Warehouse:   WarehouseConfig{},
		Endpoints:   EndpointConfig{},
		Transport:   TransportConfig{TimeoutSeconds: 180, MaxAttempts: 3, BackoffMillis: 300},
		Attachments: AttachmentConfig{Dir: "attachments"},
		Export:      ExportConfig{Dir: "."},
	}
}
