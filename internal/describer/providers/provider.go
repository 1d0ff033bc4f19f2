// Package providers contains the completion clients used to describe
// crates with hosted LLMs.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/localrivet/cratescribe/internal/errortypes"
)

const (
	// Provider constants
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderXAI       = "xai"

	// Default settings
	DefaultTimeout   = 30 * time.Second
	DefaultMaxTokens = 1000
)

// LLMProvider defines the interface for different LLM service providers
type LLMProvider interface {
	// Complete sends one request and returns the generated text. Failures
	// are returned as *CallError.
	Complete(ctx context.Context, req Request) (string, error)

	// Name returns the provider name
	Name() string
}

// Request is a single completion request.
type Request struct {
	// Model overrides the provider's configured model when set.
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Config holds common configuration for LLM providers
type Config struct {
	APIKey  string
	ModelID string
	// BaseURL replaces the provider's public endpoint.
	BaseURL string
	Timeout time.Duration
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

func (c Config) model(req Request, fallback string) string {
	switch {
	case req.Model != "":
		return req.Model
	case c.ModelID != "":
		return c.ModelID
	}
	return fallback
}

// ErrorKind classifies a failed completion call.
type ErrorKind = errortypes.ErrorType

// Error kinds
const (
	KindNetwork           = errortypes.ErrorTypeNetwork
	KindAuth              = errortypes.ErrorTypeAuth
	KindQuota             = errortypes.ErrorTypeQuota
	KindMalformedResponse = errortypes.ErrorTypeMalformedResponse
	KindAPI               = errortypes.ErrorTypeAPI
)

// CallError is returned by providers when a completion call fails.
type CallError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *CallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s error (status %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a provider failure, KindAPI for errors that
// did not come from a provider, and "" for nil.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var callErr *CallError
	if errors.As(err, &callErr) {
		return callErr.Kind
	}
	return KindAPI
}

// ErrMissingAPIKey is wrapped by providers called without credentials.
var ErrMissingAPIKey = errors.New("API key not provided")

func missingKey(provider string) *CallError {
	return &CallError{Provider: provider, Kind: KindAuth, Err: ErrMissingAPIKey}
}

// kindForStatus maps an HTTP status to an error kind.
func kindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests || status == http.StatusPaymentRequired:
		return KindQuota
	}
	return KindAPI
}
