// Package config provides configuration management using the Singleton pattern.
// It loads configuration from environment variables and config.yaml using Viper.
package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/careerbridge/careerbridge-api/internal/domain"
)

// Configuration holds all application configuration values.
type Configuration struct {
	// Server configuration
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Providers holds one entry per LLM provider.
	Providers ProvidersConfig `json:"providers" mapstructure:"providers"`

	// Resilience configures retries and circuit breaking around provider calls.
	Resilience ResilienceConfig `json:"resilience" mapstructure:"resilience"`

	// RateLimit configures the per-user request limiter.
	RateLimit RateLimitConfig `json:"rate_limit" mapstructure:"rate_limit"`

	// Cache configures the AI response cache.
	Cache CacheConfig `json:"cache" mapstructure:"cache"`

	// Database configuration
	Database DatabaseConfig `json:"database" mapstructure:"database"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Tracing configuration
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	// Host is the server bind address.
	Host string `json:"host" mapstructure:"host"`

	// Port is the server port number.
	Port int `json:"port" mapstructure:"port"`

	// Mode is the gin mode (debug, release, test).
	Mode string `json:"mode" mapstructure:"mode"`

	// AllowedOrigins lists CORS origins; "*" allows any.
	AllowedOrigins []string `json:"allowed_origins" mapstructure:"allowed_origins"`

	// ReadTimeoutSeconds is the maximum duration for reading the entire request.
	ReadTimeoutSeconds int `json:"read_timeout_seconds" mapstructure:"read_timeout_seconds"`

	// WriteTimeoutSeconds is the maximum duration before timing out writes of the response.
	WriteTimeoutSeconds int `json:"write_timeout_seconds" mapstructure:"write_timeout_seconds"`

	// ShutdownTimeoutSeconds is the maximum duration to wait for active connections to finish.
	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds" mapstructure:"shutdown_timeout_seconds"`
}

// ProvidersConfig holds the settings of both providers.
type ProvidersConfig struct {
	Gemini domain.ProviderSettings `json:"gemini" mapstructure:"gemini"`
	Groq   domain.ProviderSettings `json:"groq" mapstructure:"groq"`
}

// ResilienceConfig holds retry and circuit breaker settings.
type ResilienceConfig struct {
	// MaxRetries is the number of extra attempts after a transient failure. 0 disables retries.
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`

	// BaseDelayMS is the first backoff delay, doubled per retry.
	BaseDelayMS int `json:"base_delay_ms" mapstructure:"base_delay_ms"`

	// BreakerMaxFailures is the consecutive transient failures that open the circuit.
	BreakerMaxFailures int `json:"breaker_max_failures" mapstructure:"breaker_max_failures"`

	// BreakerTimeoutSeconds is how long an open circuit waits before probing.
	BreakerTimeoutSeconds int `json:"breaker_timeout_seconds" mapstructure:"breaker_timeout_seconds"`
}

// RateLimitConfig holds per-user rate limiting configuration.
type RateLimitConfig struct {
	Enabled           bool `json:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int  `json:"requests_per_minute" mapstructure:"requests_per_minute"`
	Burst             int  `json:"burst" mapstructure:"burst"`
}

// CacheConfig holds response cache configuration.
type CacheConfig struct {
	Enabled    bool `json:"enabled" mapstructure:"enabled"`
	TTLSeconds int  `json:"ttl_seconds" mapstructure:"ttl_seconds"`
	MaxEntries int  `json:"max_entries" mapstructure:"max_entries"`
}

// DatabaseConfig holds the SQLite location.
type DatabaseConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `json:"level" mapstructure:"level"`

	// Format is the log format (json, text).
	Format string `json:"format" mapstructure:"format"`

	// OutputPath is the file path for log output (empty for stdout).
	OutputPath string `json:"output_path" mapstructure:"output_path"`
}

// TracingConfig holds OpenTelemetry configuration.
type TracingConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Exporter string `json:"exporter" mapstructure:"exporter"`
}

// configInstance holds the singleton configuration instance.
var (
	configInstance *Configuration
	configOnce     sync.Once
	configErr      error
)

// GetConfig returns the singleton Configuration instance.
// It initializes the configuration on first call using the default config path.
func GetConfig() (*Configuration, error) {
	configOnce.Do(func() {
		configInstance, configErr = loadConfig("")
	})
	return configInstance, configErr
}

// GetConfigWithPath returns the singleton Configuration instance with a custom config path.
func GetConfigWithPath(configPath string) (*Configuration, error) {
	configOnce.Do(func() {
		configInstance, configErr = loadConfig(configPath)
	})
	return configInstance, configErr
}

// MustGetConfig returns the singleton Configuration instance.
// It panics if the configuration cannot be loaded.
func MustGetConfig() *Configuration {
	cfg, err := GetConfig()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// ResetConfig resets the singleton instance.
// This is primarily used for testing purposes.
func ResetConfig() {
	configOnce = sync.Once{}
	configInstance = nil
	configErr = nil
}

// Validate validates the configuration and returns an error if fields are out of range.
func (c *Configuration) Validate() error {
	var validationErrors []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		validationErrors = append(validationErrors, "server.port must be between 1 and 65535")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		validationErrors = append(validationErrors, fmt.Sprintf(
			"server.mode '%s' is invalid, must be one of: debug, release, test", c.Server.Mode))
	}

	if c.Server.WriteTimeoutSeconds <= 0 {
		validationErrors = append(validationErrors, "server.write_timeout_seconds must be positive")
	}

	for name, p := range map[string]domain.ProviderSettings{"gemini": c.Providers.Gemini, "groq": c.Providers.Groq} {
		if p.BaseURL == "" {
			validationErrors = append(validationErrors, fmt.Sprintf("providers.%s.base_url is required", name))
		}
		if p.TimeoutSeconds <= 0 {
			validationErrors = append(validationErrors, fmt.Sprintf("providers.%s.timeout_seconds must be positive", name))
		} else if c.Server.WriteTimeoutSeconds > 0 && p.TimeoutSeconds >= c.Server.WriteTimeoutSeconds {
			validationErrors = append(validationErrors, fmt.Sprintf(
				"providers.%s.timeout_seconds must be less than server.write_timeout_seconds", name))
		}
	}

	if c.Resilience.MaxRetries < 0 || c.Resilience.MaxRetries > 10 {
		validationErrors = append(validationErrors, "resilience.max_retries must be between 0 and 10")
	}
	if c.Resilience.BaseDelayMS <= 0 {
		validationErrors = append(validationErrors, "resilience.base_delay_ms must be positive")
	}
	if c.Resilience.BreakerMaxFailures <= 0 {
		validationErrors = append(validationErrors, "resilience.breaker_max_failures must be positive")
	}
	if c.Resilience.BreakerTimeoutSeconds <= 0 {
		validationErrors = append(validationErrors, "resilience.breaker_timeout_seconds must be positive")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerMinute <= 0 {
			validationErrors = append(validationErrors, "rate_limit.requests_per_minute must be positive")
		}
		if c.RateLimit.Burst <= 0 {
			validationErrors = append(validationErrors, "rate_limit.burst must be positive")
		}
	}

	if c.Cache.Enabled && c.Cache.TTLSeconds <= 0 {
		validationErrors = append(validationErrors, "cache.ttl_seconds must be positive")
	}

	if c.Database.Path == "" {
		validationErrors = append(validationErrors, "database.path is required")
	}

	if c.Logging.Level != "" && !isValidLogLevel(c.Logging.Level) {
		validationErrors = append(validationErrors, fmt.Sprintf(
			"logging.level '%s' is invalid, must be one of: debug, info, warn, error",
			c.Logging.Level,
		))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		validationErrors = append(validationErrors, fmt.Sprintf(
			"logging.format '%s' is invalid, must be one of: json, text", c.Logging.Format))
	}

	if c.Tracing.Enabled {
		switch c.Tracing.Exporter {
		case "stdout", "noop", "":
		default:
			validationErrors = append(validationErrors, fmt.Sprintf(
				"tracing.exporter '%s' is invalid, must be one of: stdout, noop", c.Tracing.Exporter))
		}
	}

	if len(validationErrors) > 0 {
		return &ValidationError{Errors: validationErrors}
	}

	return nil
}

// isValidLogLevel checks if the log level is valid.
func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// ProviderSettings returns the settings for p.
func (c *Configuration) ProviderSettings(p domain.Provider) domain.ProviderSettings {
	switch p {
	case domain.ProviderGemini:
		return c.Providers.Gemini
	case domain.ProviderGroq:
		return c.Providers.Groq
	default:
		return domain.ProviderSettings{}
	}
}

// EnabledProviders lists the providers that have a credential.
func (c *Configuration) EnabledProviders() []domain.Provider {
	var out []domain.Provider
	for _, p := range domain.Providers() {
		if c.ProviderSettings(p).Enabled() {
			out = append(out, p)
		}
	}
	return out
}

// Addr returns the host:port the server listens on.
func (c *Configuration) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// responseMargin is left between the retry budget and the server write
// timeout for persisting results and writing the response.
const responseMargin = 5 * time.Second

// RetryBudget bounds one provider call, retries included, so that a reply is
// still written before server.write_timeout_seconds expires. Zero when the
// write timeout is unset.
func (c *Configuration) RetryBudget() time.Duration {
	write := time.Duration(c.Server.WriteTimeoutSeconds) * time.Second
	if write <= 0 {
		return 0
	}
	if write > 2*responseMargin {
		return write - responseMargin
	}
	return write / 2
}

// BaseDelay returns the retry base delay as a duration.
func (r ResilienceConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMS) * time.Millisecond
}

// BreakerTimeout returns the breaker open-state timeout as a duration.
func (r ResilienceConfig) BreakerTimeout() time.Duration {
	return time.Duration(r.BreakerTimeoutSeconds) * time.Second
}

// TTL returns the cache TTL as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}
