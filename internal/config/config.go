// Package config provides configuration management for the docsift application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/platinummonkey/docsift/internal/layout"
	"github.com/platinummonkey/docsift/internal/recognize"
)

// Config holds all configuration settings for the docsift application.
// Configuration precedence: CLI flags > Environment variables > Config file > Defaults
type Config struct {
	// InputDir is the directory scanned for documents to process
	InputDir string

	// OutputDir is the directory where per-document results and the batch
	// report are written
	OutputDir string

	// CacheDir is the directory for the result cache ("" disables the
	// on-disk cache, an in-memory cache is still used per run)
	CacheDir string

	// Languages are hints passed to the recognition provider (e.g. "en", "fr")
	Languages []string

	// Concurrency is the batch worker pool size
	Concurrency int

	// LogLevel controls logging verbosity (debug, info, warn, error)
	LogLevel string

	// LogFormat selects console or json log output
	LogFormat string

	// Provider configuration for the recognition backend
	Provider ProviderConfig

	// Gateway configuration for rate limiting and retries
	Gateway GatewayConfig

	// Layout thresholds for column, line, and table reconstruction
	Layout LayoutConfig
}

// ProviderConfig holds configuration for the recognition provider.
type ProviderConfig struct {
	// Name is the provider to use (ollama, openai, anthropic, gemini)
	Name string

	// Model is the specific model to use for recognition
	Model string

	// Endpoint is the API endpoint (primarily for Ollama)
	Endpoint string

	// APIKey is the API key for cloud providers, populated from environment
	// variables: OPENAI_API_KEY, ANTHROPIC_API_KEY, GOOGLE_API_KEY
	APIKey string

	// Temperature controls randomness (0.0 = deterministic, recommended)
	Temperature float64

	// PromptFile optionally overrides the built-in extraction prompt
	PromptFile string
}

// GatewayConfig holds rate limit and retry settings for recognition calls.
type GatewayConfig struct {
	// MaxAttempts is the per-call attempt budget (first try plus retries)
	MaxAttempts int

	// BaseDelay is the initial retry backoff
	BaseDelay time.Duration

	// MaxDelay caps the exponential backoff
	MaxDelay time.Duration

	// MaxTotalWait bounds the cumulative backoff per call
	MaxTotalWait time.Duration

	// RequestsPerSecond is the shared outbound rate limit
	RequestsPerSecond float64

	// MaxPagesPerCall splits large PDFs into chunks of at most this many pages
	MaxPagesPerCall int
}

// LayoutConfig holds the tunable layout reconstruction thresholds.
type LayoutConfig struct {
	// ColumnGapRatio is the gap-to-median-width ratio that separates columns
	ColumnGapRatio float64

	// LineOverlapRatio is the vertical overlap required to share a line
	LineOverlapRatio float64

	// TableFillRatio is the grid cell occupancy required to report a table
	TableFillRatio float64
}

// Load reads configuration from multiple sources and returns a Config instance.
// Sources are checked in this order: CLI flags > env vars > config file > defaults.
// Flag names must match config keys (e.g. --input-dir binds input-dir); a nil
// flag set skips flag binding.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("error binding flags: %w", err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
			v.SetConfigName(".docsift")
			v.SetConfigType("yaml")
		}
	}

	// Config file is optional; env vars and defaults still apply
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("DOCSIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	config := &Config{
		InputDir:    v.GetString("input-dir"),
		OutputDir:   v.GetString("output-dir"),
		CacheDir:    v.GetString("cache-dir"),
		Languages:   v.GetStringSlice("languages"),
		Concurrency: v.GetInt("concurrency"),
		LogLevel:    v.GetString("log-level"),
		LogFormat:   v.GetString("log-format"),
		Provider: ProviderConfig{
			Name:        v.GetString("provider"),
			Model:       v.GetString("model"),
			Endpoint:    v.GetString("endpoint"),
			Temperature: v.GetFloat64("temperature"),
			PromptFile:  v.GetString("prompt-file"),
		},
		Gateway: GatewayConfig{
			MaxAttempts:       v.GetInt("max-attempts"),
			BaseDelay:         v.GetDuration("base-delay"),
			MaxDelay:          v.GetDuration("max-delay"),
			MaxTotalWait:      v.GetDuration("max-total-wait"),
			RequestsPerSecond: v.GetFloat64("requests-per-second"),
			MaxPagesPerCall:   v.GetInt("max-pages-per-call"),
		},
		Layout: LayoutConfig{
			ColumnGapRatio:   v.GetFloat64("column-gap-ratio"),
			LineOverlapRatio: v.GetFloat64("line-overlap-ratio"),
			TableFillRatio:   v.GetFloat64("table-fill-ratio"),
		},
	}

	config.Provider.APIKey = loadAPIKeyForProvider(config.Provider.Name)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("input-dir", ".")
	v.SetDefault("output-dir", "docsift-out")
	v.SetDefault("cache-dir", "")
	v.SetDefault("languages", []string{})
	v.SetDefault("concurrency", 10)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "console")

	// Ollama by default so the tool works without cloud credentials
	v.SetDefault("provider", "ollama")
	v.SetDefault("model", "")
	v.SetDefault("endpoint", "http://localhost:11434")
	v.SetDefault("temperature", 0.0)
	v.SetDefault("prompt-file", "")

	v.SetDefault("max-attempts", recognize.DefaultMaxAttempts)
	v.SetDefault("base-delay", recognize.DefaultBaseDelay)
	v.SetDefault("max-delay", recognize.DefaultMaxDelay)
	v.SetDefault("max-total-wait", recognize.DefaultMaxTotalWait)
	v.SetDefault("requests-per-second", recognize.DefaultRequestsPerSecond)
	v.SetDefault("max-pages-per-call", recognize.DefaultMaxPagesPerCall)

	layoutDefaults := layout.DefaultConfig()
	v.SetDefault("column-gap-ratio", layoutDefaults.ColumnGapRatio)
	v.SetDefault("line-overlap-ratio", layoutDefaults.LineOverlapRatio)
	v.SetDefault("table-fill-ratio", layoutDefaults.TableFillRatio)
}

// Validate checks that the configuration is valid and internally consistent
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("input-dir cannot be empty")
	}
	if expanded, err := expandHome(c.InputDir); err != nil {
		return fmt.Errorf("failed to expand home directory in input-dir: %w", err)
	} else {
		c.InputDir = expanded
	}

	if c.OutputDir == "" {
		return fmt.Errorf("output-dir cannot be empty")
	}
	if expanded, err := expandHome(c.OutputDir); err != nil {
		return fmt.Errorf("failed to expand home directory in output-dir: %w", err)
	} else {
		c.OutputDir = expanded
	}

	if c.CacheDir != "" {
		if expanded, err := expandHome(c.CacheDir); err != nil {
			return fmt.Errorf("failed to expand home directory in cache-dir: %w", err)
		} else {
			c.CacheDir = expanded
		}
	}

	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log-level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log-format %q, must be console or json", c.LogFormat)
	}

	if err := c.validateProvider(); err != nil {
		return fmt.Errorf("invalid provider configuration: %w", err)
	}
	if err := c.validateGateway(); err != nil {
		return fmt.Errorf("invalid gateway configuration: %w", err)
	}
	if err := c.validateLayout(); err != nil {
		return fmt.Errorf("invalid layout configuration: %w", err)
	}

	return nil
}

// validateProvider validates the recognition provider configuration
func (c *Config) validateProvider() error {
	validProviders := map[string]bool{
		"ollama":    true,
		"openai":    true,
		"anthropic": true,
		"gemini":    true,
	}
	if !validProviders[strings.ToLower(c.Provider.Name)] {
		return fmt.Errorf("invalid provider %q, must be one of: ollama, openai, anthropic, gemini", c.Provider.Name)
	}
	c.Provider.Name = strings.ToLower(c.Provider.Name)

	if c.Provider.Model == "" {
		c.Provider.Model = recognize.DefaultModelForProvider(recognize.ProviderType(c.Provider.Name))
	}

	if c.Provider.Name == "ollama" && c.Provider.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty for the Ollama provider")
	}

	if c.Provider.Name != "ollama" && c.Provider.APIKey == "" {
		return fmt.Errorf("API key not found for provider %s, check environment variables", c.Provider.Name)
	}

	if c.Provider.Temperature < 0.0 || c.Provider.Temperature > 2.0 {
		return fmt.Errorf("temperature must be between 0.0 and 2.0, got %f", c.Provider.Temperature)
	}

	return nil
}

// validateGateway validates rate limit and retry settings
func (c *Config) validateGateway() error {
	if c.Gateway.MaxAttempts < 1 {
		return fmt.Errorf("max-attempts must be at least 1, got %d", c.Gateway.MaxAttempts)
	}
	if c.Gateway.BaseDelay <= 0 {
		return fmt.Errorf("base-delay must be positive, got %s", c.Gateway.BaseDelay)
	}
	if c.Gateway.MaxDelay < c.Gateway.BaseDelay {
		return fmt.Errorf("max-delay %s cannot be below base-delay %s", c.Gateway.MaxDelay, c.Gateway.BaseDelay)
	}
	if c.Gateway.MaxTotalWait <= 0 {
		return fmt.Errorf("max-total-wait must be positive, got %s", c.Gateway.MaxTotalWait)
	}
	if c.Gateway.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests-per-second must be positive, got %f", c.Gateway.RequestsPerSecond)
	}
	if c.Gateway.MaxPagesPerCall < 1 {
		return fmt.Errorf("max-pages-per-call must be at least 1, got %d", c.Gateway.MaxPagesPerCall)
	}
	return nil
}

// validateLayout validates the layout reconstruction thresholds
func (c *Config) validateLayout() error {
	if c.Layout.ColumnGapRatio <= 0 {
		return fmt.Errorf("column-gap-ratio must be positive, got %f", c.Layout.ColumnGapRatio)
	}
	if c.Layout.LineOverlapRatio <= 0 || c.Layout.LineOverlapRatio > 1 {
		return fmt.Errorf("line-overlap-ratio must be in (0, 1], got %f", c.Layout.LineOverlapRatio)
	}
	if c.Layout.TableFillRatio <= 0 || c.Layout.TableFillRatio > 1 {
		return fmt.Errorf("table-fill-ratio must be in (0, 1], got %f", c.Layout.TableFillRatio)
	}
	return nil
}

// loadAPIKeyForProvider loads the appropriate API key from environment variables
func loadAPIKeyForProvider(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "gemini":
		if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
			return key
		}
		return os.Getenv("GEMINI_API_KEY")
	default:
		// Ollama doesn't need an API key
		return ""
	}
}

// expandHome replaces a leading ~/ with the user home directory.
func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[2:]), nil
}

// String returns a string representation of the configuration (with sensitive data redacted)
func (c *Config) String() string {
	apiKey := "not set"
	if c.Provider.APIKey != "" {
		if len(c.Provider.APIKey) > 8 {
			apiKey = "***" + c.Provider.APIKey[len(c.Provider.APIKey)-4:]
		} else {
			apiKey = "***"
		}
	}

	return fmt.Sprintf(`Configuration:
  InputDir: %s
  OutputDir: %s
  CacheDir: %s
  Languages: %v
  Concurrency: %d
  LogLevel: %s
  LogFormat: %s
  Provider:
    Name: %s
    Model: %s
    Endpoint: %s
    APIKey: %s
    Temperature: %.2f
  Gateway:
    MaxAttempts: %d
    BaseDelay: %s
    MaxDelay: %s
    MaxTotalWait: %s
    RequestsPerSecond: %.2f
    MaxPagesPerCall: %d
  Layout:
    ColumnGapRatio: %.2f
    LineOverlapRatio: %.2f
    TableFillRatio: %.2f`,
		c.InputDir,
		c.OutputDir,
		c.CacheDir,
		c.Languages,
		c.Concurrency,
		c.LogLevel,
		c.LogFormat,
		c.Provider.Name,
		c.Provider.Model,
		c.Provider.Endpoint,
		apiKey,
		c.Provider.Temperature,
		c.Gateway.MaxAttempts,
		c.Gateway.BaseDelay,
		c.Gateway.MaxDelay,
		c.Gateway.MaxTotalWait,
		c.Gateway.RequestsPerSecond,
		c.Gateway.MaxPagesPerCall,
		c.Layout.ColumnGapRatio,
		c.Layout.LineOverlapRatio,
		c.Layout.TableFillRatio,
	)
}
