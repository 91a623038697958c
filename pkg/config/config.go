// Package config loads and validates the migration tool configuration.
// Validation happens once at load time and again at facade initialization;
// both are local checks that never touch the network.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Default tuning values applied when the config file leaves them unset.
const (
	DefaultMaxRequestsPerMinute = 600
	DefaultMaxRetries           = 3
	DefaultBatchSize            = 20
	DefaultRequestTimeout       = 30 * time.Second
	DefaultStorePath            = "testshift.db"
)

// Config is the root configuration for one target deployment.
type Config struct {
	// BaseURL is the root URL of the target deployment.
	BaseURL string `yaml:"base_url" validate:"required,url"`

	// APIToken authenticates requests when set; otherwise Username and
	// Password must both be present.
	APIToken string `yaml:"api_token,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`

	// Products holds per-product configuration blocks. A present block means
	// the product's adapter is initialized; Manager is mandatory.
	Products ProductsConfig `yaml:"products"`

	// Common holds transport and engine tuning shared by all products.
	Common CommonConfig `yaml:"common"`

	// Store configures the local run-history database.
	Store StoreConfig `yaml:"store"`

	// Telemetry configures logging, metrics, and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ProductsConfig declares which product adapters to initialize.
type ProductsConfig struct {
	Manager    *ProductConfig `yaml:"manager" validate:"required"`
	Parameters *ProductConfig `yaml:"parameters,omitempty"`
	Scenario   *ProductConfig `yaml:"scenario,omitempty"`
	Pulse      *ProductConfig `yaml:"pulse,omitempty"`
	DataExport *ProductConfig `yaml:"data_export,omitempty"`
}

// ProductConfig is one product's scope within the target deployment.
type ProductConfig struct {
	// ProjectID scopes every call for this product.
	ProjectID int64 `yaml:"project_id" validate:"required,gt=0"`

	// BasePath overrides the product's default API path prefix.
	BasePath string `yaml:"base_path,omitempty"`
}

// CommonConfig is transport and engine tuning shared across products.
type CommonConfig struct {
	// MaxRequestsPerMinute caps the outbound request rate.
	MaxRequestsPerMinute int `yaml:"max_requests_per_minute,omitempty" validate:"omitempty,gt=0"`

	// BypassSSL disables TLS certificate verification.
	BypassSSL bool `yaml:"bypass_ssl,omitempty"`

	// MaxRetries bounds transport-level retries of retryable failures.
	MaxRetries int `yaml:"max_retries,omitempty" validate:"omitempty,gte=0"`

	// RequestTimeout bounds a single HTTP attempt.
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`

	// BatchSize is the test-case migration batch size.
	BatchSize int `yaml:"batch_size,omitempty" validate:"omitempty,gt=0"`

	// CleanupBeforeMigration deletes pre-existing test cases in mapped
	// target folders before creating new ones.
	CleanupBeforeMigration bool `yaml:"cleanup_before_migration,omitempty"`
}

// StoreConfig configures the run-history database.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"`
}

// TelemetryConfig is the telemetry subset exposed in the config file.
type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level,omitempty" validate:"omitempty,oneof=trace debug info warn error"`
	LogFormat      string `yaml:"log_format,omitempty" validate:"omitempty,oneof=console json"`
	MetricsEnabled bool   `yaml:"metrics_enabled,omitempty"`
	TracingEnabled bool   `yaml:"tracing_enabled,omitempty"`
	TraceExporter  string `yaml:"trace_exporter,omitempty" validate:"omitempty,oneof=otlp stdout none"`
	TraceEndpoint  string `yaml:"trace_endpoint,omitempty"`
}

var validate = validator.New()

// Load reads, defaults, and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyDefaults fills unset tuning values with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Common.MaxRequestsPerMinute == 0 {
		c.Common.MaxRequestsPerMinute = DefaultMaxRequestsPerMinute
	}
	if c.Common.MaxRetries == 0 {
		c.Common.MaxRetries = DefaultMaxRetries
	}
	if c.Common.BatchSize == 0 {
		c.Common.BatchSize = DefaultBatchSize
	}
	if c.Common.RequestTimeout == 0 {
		c.Common.RequestTimeout = DefaultRequestTimeout
	}
	if c.Store.Path == "" {
		c.Store.Path = DefaultStorePath
	}
	if c.Telemetry.LogLevel == "" {
		c.Telemetry.LogLevel = "info"
	}
	if c.Telemetry.LogFormat == "" {
		c.Telemetry.LogFormat = "console"
	}
	if c.Telemetry.TraceExporter == "" {
		c.Telemetry.TraceExporter = "none"
	}
}

// Validate checks structural constraints and the credential rule: either an
// API token or a username+password pair must be present.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return c.ValidateCredentials()
}

// ValidateCredentials enforces the token-or-basic-auth rule on its own, for
// callers that assemble a Config programmatically. Exactly one credential
// scheme must be present: a token alongside a username or password is
// ambiguous and rejected.
func (c *Config) ValidateCredentials() error {
	if c.APIToken != "" {
		if c.Username != "" || c.Password != "" {
			return fmt.Errorf("api_token and username/password are mutually exclusive")
		}
		return nil
	}
	if c.Username != "" && c.Password != "" {
		return nil
	}
	return fmt.Errorf("either api_token or username and password must be configured")
}
