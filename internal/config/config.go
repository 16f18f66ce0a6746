// Package config provides application configuration with multi-source
// priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (HERBWISE_* — runtime override)
//  2. Config file (~/.herbwise/config.yaml, or ./config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main categories:
//   - Backend: assistant endpoint, timeouts, client rate limit
//   - Storage: local storage directory and key namespace
//   - Session: obfuscation secret, expiry duration, title budget
//   - Server: listen address, dev mode
//
// Security: the obfuscation secret is masked in MarshalJSON. It is a
// casual-inspection deterrent, not a security control — see the
// obfuscate package.
//
// Validation is fail-fast with sentinel errors checked via errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration validation.
var (
	// ErrInvalidBackendURL indicates the assistant backend URL is missing
	// or not an http(s) URL.
	ErrInvalidBackendURL = errors.New("invalid backend URL")

	// ErrMissingSecretKey indicates the obfuscation secret is empty.
	ErrMissingSecretKey = errors.New("missing secret key")

	// ErrInvalidSessionDuration indicates a non-positive expiry duration.
	ErrInvalidSessionDuration = errors.New("invalid session duration")

	// ErrInvalidTitleBudget indicates a non-positive title budget.
	ErrInvalidTitleBudget = errors.New("invalid title budget")

	// ErrInvalidTimeout indicates a non-positive timeout.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidListenAddr indicates an empty listen address.
	ErrInvalidListenAddr = errors.New("invalid listen address")
)

// Config stores application configuration.
// SECURITY: SecretKey is masked in MarshalJSON; update it there when
// adding new sensitive fields.
type Config struct {
	// Assistant backend
	BackendURL     string        `mapstructure:"backend_url" json:"backend_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout"`
	ImageTimeout   time.Duration `mapstructure:"image_timeout" json:"image_timeout"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec" json:"requests_per_sec"`
	RequestBurst   int           `mapstructure:"request_burst" json:"request_burst"`

	// Local storage
	StorageDir string `mapstructure:"storage_dir" json:"storage_dir"`
	KeyPrefix  string `mapstructure:"key_prefix" json:"key_prefix"`
	IndexKey   string `mapstructure:"index_key" json:"index_key"`

	// Session policy
	SecretKey       string        `mapstructure:"secret_key" json:"secret_key"` // SENSITIVE: masked in MarshalJSON
	SessionDuration time.Duration `mapstructure:"session_duration" json:"session_duration"`
	TitleBudget     int           `mapstructure:"title_budget" json:"title_budget"`

	// Web server
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	Dev        bool   `mapstructure:"dev" json:"dev"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	// Tracing (OTLP HTTP export to a local collector)
	TracingEnabled  bool   `mapstructure:"tracing_enabled" json:"tracing_enabled"`
	TracingEndpoint string `mapstructure:"tracing_endpoint" json:"tracing_endpoint"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	configDir := filepath.Join(home, ".herbwise")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v, configDir)

	v.SetEnvPrefix("HERBWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper, configDir string) {
	// Assistant backend (matches the historical frontend default)
	v.SetDefault("backend_url", "http://127.0.0.1:8000")
	v.SetDefault("request_timeout", "30s")
	v.SetDefault("image_timeout", "10s")
	v.SetDefault("requests_per_sec", 2.0)
	v.SetDefault("request_burst", 4)

	// Storage namespace (historical key layout)
	v.SetDefault("storage_dir", filepath.Join(configDir, "storage"))
	v.SetDefault("key_prefix", "herb_wise_chat_session")
	v.SetDefault("index_key", "herb_wise_chat_sessions")

	// Session policy
	v.SetDefault("secret_key", "herb_wise_secret_key")
	v.SetDefault("session_duration", "24h")
	v.SetDefault("title_budget", 30)

	// Web server
	v.SetDefault("listen_addr", "127.0.0.1:5173")
	v.SetDefault("dev", false)

	// Logging
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	// Tracing
	v.SetDefault("tracing_enabled", false)
	v.SetDefault("tracing_endpoint", "localhost:4318")
}

// Validate checks the configuration, failing fast with sentinel errors.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBackendURL, c.BackendURL)
	}
	if c.SecretKey == "" {
		return ErrMissingSecretKey
	}
	if c.SessionDuration <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidSessionDuration, c.SessionDuration)
	}
	if c.TitleBudget <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTitleBudget, c.TitleBudget)
	}
	if c.RequestTimeout <= 0 || c.ImageTimeout <= 0 {
		return fmt.Errorf("%w: request=%v image=%v", ErrInvalidTimeout, c.RequestTimeout, c.ImageTimeout)
	}
	if c.ListenAddr == "" {
		return ErrInvalidListenAddr
	}
	return nil
}

// MarshalJSON masks sensitive fields for safe logging.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	masked := alias(c)
	if masked.SecretKey != "" {
		masked.SecretKey = "***"
	}
	return json.Marshal(masked)
}
