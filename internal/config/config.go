// Package config loads cratescribe settings from defaults, a JSON config
// file and CRATESCRIBE_* environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/localrivet/configurator"

	"github.com/localrivet/cratescribe/internal/errortypes"
)

// Config represents the cratescribe configuration
type Config struct {
	// Store contains storage-related configuration.
	Store struct {
		// SQLitePath is the path to the description database. Empty disables persistence.
		SQLitePath string `json:"sqlite_path" env:"SQLITE_PATH"`
	} `json:"store"`

	// Describer contains LLM-related configuration.
	Describer struct {
		// Provider is the name of the LLM provider ("openai", "anthropic", "google", "xai" or "basic").
		Provider string `json:"provider" env:"DESCRIBER_PROVIDER" validate:"required"`

		// ModelID is the model to request. Empty uses the provider default.
		ModelID string `json:"model_id" env:"DESCRIBER_MODEL_ID"`

		// APIKey is the API key for the provider.
		APIKey string `json:"api_key" env:"DESCRIBER_API_KEY"`

		// BaseURL overrides the provider endpoint.
		BaseURL string `json:"base_url,omitempty" env:"DESCRIBER_BASE_URL"`

		// MaxResponseTokens bounds the length of the generated description.
		MaxResponseTokens int `json:"max_response_tokens" env:"DESCRIBER_MAX_RESPONSE_TOKENS" validate:"min:1"`

		// Temperature is the sampling temperature.
		Temperature float64 `json:"temperature" env:"DESCRIBER_TEMPERATURE"`

		// Timeout is the per-call timeout, as a Go duration string.
		Timeout string `json:"timeout" env:"DESCRIBER_TIMEOUT"`
	} `json:"describer"`

	// Tokens contains token counting configuration.
	Tokens struct {
		// DefaultModel is the model whose encoding and window are used when none is given.
		DefaultModel string `json:"default_model" env:"TOKENS_DEFAULT_MODEL"`

		// DefaultCeiling is the context window for models missing from ContextWindows.
		DefaultCeiling int `json:"default_ceiling" env:"TOKENS_DEFAULT_CEILING" validate:"min:1"`

		// ContextWindows overrides per-model context windows.
		ContextWindows map[string]int `json:"context_windows,omitempty"`
	} `json:"tokens"`

	// Crate contains manifest analysis configuration.
	Crate struct {
		// MaxFilesToDescribe bounds the files listed in prompts and narratives.
		MaxFilesToDescribe int `json:"max_files_to_describe" env:"CRATE_MAX_FILES_TO_DESCRIBE" validate:"min:1"`
	} `json:"crate"`

	// Output contains report configuration.
	Output struct {
		// Directory is where description reports are written.
		Directory string `json:"directory" env:"OUTPUT_DIRECTORY"`

		// SaveIntermediateResults writes one file per manifest besides the combined report.
		SaveIntermediateResults bool `json:"save_intermediate_results" env:"OUTPUT_SAVE_INTERMEDIATE_RESULTS"`
	} `json:"output"`

	// Logging contains logging-related configuration.
	Logging struct {
		// Level is the minimum log level to display ("debug", "info", "warn", "error").
		Level string `json:"level" env:"LOG_LEVEL" validate:"required"`

		// Format is the log format to use ("text", "json").
		Format string `json:"format" env:"LOG_FORMAT"`
	} `json:"logging"`

	// Internal state (not saved to config file)
	configPath     string       `json:"-"`
	mutex          sync.RWMutex `json:"-"`
	lastModifiedAt time.Time    `json:"-"`
}

// Default configuration values
const (
	DefaultConfigFilename     = ".cratescribeconfig"
	DefaultSQLitePath         = ".cratescribe.db"
	DefaultProvider           = "openai"
	DefaultModel              = "gpt-3.5-turbo"
	DefaultMaxResponseTokens  = 1000
	DefaultTemperature        = 0.7
	DefaultTimeout            = "30s"
	DefaultCeiling            = 4096
	DefaultMaxFilesToDescribe = 10
	DefaultOutputDirectory    = "./results"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
)

// NewConfig creates a new Config instance with default values
func NewConfig() *Config {
	config := &Config{}
	config.Store.SQLitePath = DefaultSQLitePath
	config.Describer.Provider = DefaultProvider
	config.Describer.MaxResponseTokens = DefaultMaxResponseTokens
	config.Describer.Temperature = DefaultTemperature
	config.Describer.Timeout = DefaultTimeout
	config.Tokens.DefaultModel = DefaultModel
	config.Tokens.DefaultCeiling = DefaultCeiling
	config.Crate.MaxFilesToDescribe = DefaultMaxFilesToDescribe
	config.Output.Directory = DefaultOutputDirectory
	config.Output.SaveIntermediateResults = true
	config.Logging.Level = DefaultLogLevel
	config.Logging.Format = DefaultLogFormat
	return config
}

// LoadConfig loads the configuration from the default path
func LoadConfig() (*Config, error) {
	return LoadConfigWithPath(DefaultConfigFilename)
}

// LoadConfigWithPath loads the configuration from a specific path.
// A missing file yields the defaults.
func LoadConfigWithPath(configPath string) (*Config, error) {
	// Configuration loading logs go to stderr so stdout stays free for MCP stdio.
	stdLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg := NewConfig()

	if configPath == DefaultConfigFilename {
		foundPath, err := configurator.FindConfigFile(configPath)
		if err == nil {
			configPath = foundPath
			stdLogger.Debug("Found config file at " + foundPath)
		}
	}

	builder := configurator.New(stdLogger).
		WithProvider(configurator.NewDefaultProvider())

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		stdLogger.Debug("Config file not found, using defaults and environment", "path", configPath)
	} else {
		stdLogger.Info("Loading configuration", "path", configPath)
		builder = builder.WithProvider(configurator.NewFileProvider(configPath))
	}

	builder = builder.
		WithProvider(configurator.NewEnvProvider("CRATESCRIBE")).
		WithValidator(configurator.NewDefaultValidator())

	if err := builder.Load(context.Background(), cfg); err != nil {
		return nil, errortypes.ConfigError(err, "failed to load configuration").WithField("path", configPath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.configPath = configPath
	cfg.lastModifiedAt = time.Now()

	return cfg, nil
}

// Validate checks the values the struct tags cannot express.
func (c *Config) Validate() error {
	if _, err := c.DescriberTimeout(); err != nil {
		return errortypes.ConfigError(err, "invalid describer timeout").WithField("timeout", c.Describer.Timeout)
	}
	if c.Describer.Temperature < 0 || c.Describer.Temperature > 2 {
		return errortypes.ConfigError(errors.New("temperature must be between 0 and 2"), "invalid describer temperature").
			WithField("temperature", c.Describer.Temperature)
	}
	for model, window := range c.Tokens.ContextWindows {
		if window <= 0 {
			return errortypes.ConfigError(fmt.Errorf("context window for %s must be positive", model), "invalid token settings")
		}
	}
	return nil
}

// DescriberTimeout parses Describer.Timeout. An empty value means DefaultTimeout.
func (c *Config) DescriberTimeout() (time.Duration, error) {
	raw := c.Describer.Timeout
	if raw == "" {
		raw = DefaultTimeout
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %s", raw)
	}
	return d, nil
}

// SaveToFile saves the configuration to the specified file
func (c *Config) SaveToFile(path string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := configurator.SaveToFile(c, path, configurator.FormatJSON); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	c.configPath = path
	c.lastModifiedAt = time.Now()

	return nil
}

// Save saves the configuration to the last used file path
func (c *Config) Save() error {
	if c.configPath == "" {
		c.configPath = DefaultConfigFilename
	}
	return c.SaveToFile(c.configPath)
}

// GetConfigPath returns the path of the currently loaded configuration file
func (c *Config) GetConfigPath() string {
	return c.configPath
}
