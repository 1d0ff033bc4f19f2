package describer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/localrivet/cratescribe/internal/describer/providers"
	"github.com/localrivet/cratescribe/internal/errortypes"
	"github.com/localrivet/cratescribe/internal/prompt"
	"github.com/localrivet/cratescribe/internal/telemetry"
)

const (
	// Default settings
	DefaultTimeout = 30 * time.Second
)

// Errors
var (
	ErrProviderNotConfigured = errors.New("describer provider not configured")
)

// AIDescriberConfig holds configuration for the AIDescriber
type AIDescriberConfig struct {
	ProviderName string
	ModelID      string
	APIKey       string
	BaseURL      string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
	Timeout      time.Duration
	Metrics      *telemetry.MetricsCollector
	Logger       *slog.Logger
}

// AIDescriber is an implementation of the Describer interface that asks a
// hosted LLM for the description. Every Describe call is a single attempt.
type AIDescriber struct {
	config      AIDescriberConfig
	provider    providers.LLMProvider
	initialized bool
	metrics     *telemetry.MetricsCollector
	logger      *slog.Logger
	mu          sync.RWMutex
}

// NewAIDescriber creates a new AIDescriber with the specified settings
func NewAIDescriber(config *AIDescriberConfig) *AIDescriber {
	if config == nil {
		config = &AIDescriberConfig{}
	}
	cfg := *config

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = prompt.DefaultMaxResponseTokens
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = prompt.SystemPrompt
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NewMetricsCollector()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &AIDescriber{
		config:  cfg,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}
}

// NewAIDescriberWithProvider creates an AIDescriber that uses an already
// built provider.
func NewAIDescriberWithProvider(provider providers.LLMProvider, config *AIDescriberConfig) *AIDescriber {
	d := NewAIDescriber(config)
	d.provider = provider
	d.initialized = provider != nil
	return d
}

// Initialize builds the configured provider.
func (d *AIDescriber) Initialize() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		return nil
	}
	if d.config.ProviderName == "" {
		return errortypes.ConfigError(ErrProviderNotConfigured, "no provider name set")
	}

	factory := providers.NewProviderFactory(map[string]providers.Config{
		d.config.ProviderName: {
			APIKey:  d.config.APIKey,
			ModelID: d.config.ModelID,
			BaseURL: d.config.BaseURL,
			Timeout: d.config.Timeout,
		},
	})
	provider, err := factory.GetProvider(d.config.ProviderName)
	if err != nil {
		return errortypes.ConfigError(err, "failed to create provider")
	}

	d.provider = provider
	d.initialized = true
	return nil
}

// Provider returns the provider in use, or nil before initialization.
func (d *AIDescriber) Provider() providers.LLMProvider {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.provider
}

// GetMetrics returns the metrics collector for this describer
func (d *AIDescriber) GetMetrics() *telemetry.MetricsCollector {
	return d.metrics
}

// Describe sends the prompt to the provider once. Failures are reported in
// the result with their error kind; nothing is retried or cached.
func (d *AIDescriber) Describe(ctx context.Context, text string) Result {
	started := time.Now()
	defer func() {
		d.metrics.RecordTimer(telemetry.MetricDescribeTime, time.Since(started))
	}()

	if err := d.Initialize(); err != nil {
		d.metrics.IncrementCounter(telemetry.MetricCallsFailure, 1)
		return failed(d.config.ProviderName, d.config.ModelID, fmt.Errorf("failed to initialize describer: %w", err), started)
	}
	provider := d.Provider()
	name := provider.Name()

	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	d.metrics.IncrementCounter(telemetry.CallsMetric(name), 1)
	out, err := provider.Complete(ctx, providers.Request{
		Model:       d.config.ModelID,
		System:      d.config.SystemPrompt,
		Prompt:      text,
		MaxTokens:   d.config.MaxTokens,
		Temperature: d.config.Temperature,
	})
	if err != nil {
		res := failed(name, d.config.ModelID, err, started)
		d.metrics.IncrementCounter(telemetry.MetricCallsFailure, 1)
		d.metrics.IncrementCounter(telemetry.FailureKindMetric(string(res.Kind)), 1)
		d.logger.Warn("describe call failed",
			slog.String("provider", name),
			slog.String("kind", string(res.Kind)),
			slog.Any("error", err))
		return res
	}

	elapsed := time.Since(started)
	d.metrics.IncrementCounter(telemetry.MetricCallsSuccess, 1)
	d.metrics.RecordTimer(telemetry.ResponseTimeMetric(name), elapsed)
	d.metrics.RecordTimestamp(telemetry.MetricLastDescription)

	return Result{
		Text:     out,
		Provider: name,
		Model:    d.config.ModelID,
		Duration: elapsed,
	}
}

// CheckProviderHealth sends a tiny request to the provider and reports
// whether it answered.
func (d *AIDescriber) CheckProviderHealth(ctx context.Context) map[string]bool {
	results := make(map[string]bool)
	if err := d.Initialize(); err != nil {
		return results
	}
	provider := d.Provider()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := provider.Complete(ctx, providers.Request{
		Model:     d.config.ModelID,
		Prompt:    "Reply with OK.",
		MaxTokens: 5,
	})
	healthy := err == nil
	results[provider.Name()] = healthy
	d.metrics.SetGauge(telemetry.HealthMetric(provider.Name()), boolToFloat64(healthy))
	return results
}

// boolToFloat64 converts a boolean to a float64 (1.0 for true, 0.0 for false)
func boolToFloat64(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
