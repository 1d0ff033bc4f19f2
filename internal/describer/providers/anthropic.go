package providers

import (
	"context"
	"net/http"
	"strings"
)

const (
	anthropicAPIURL     = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion = "2023-06-01"
)

// AnthropicProvider implements the LLMProvider interface for Anthropic's Claude
type AnthropicProvider struct {
	Config
	httpClient *http.Client
	url        string
	version    string
}

// AnthropicMessage represents the request structure for Anthropic's API
type AnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnthropicRequest represents a request to Anthropic's API
type AnthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []AnthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
}

// AnthropicResponse represents a response from Anthropic's API
type AnthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// NewAnthropicProvider creates a new instance of the Anthropic provider
func NewAnthropicProvider(config Config) *AnthropicProvider {
	url := anthropicAPIURL
	if config.BaseURL != "" {
		url = config.BaseURL
	}
	return &AnthropicProvider{
		Config:     config,
		httpClient: &http.Client{Timeout: config.timeout()},
		url:        url,
		version:    anthropicAPIVersion,
	}
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return ProviderAnthropic
}

// Complete implements the LLMProvider interface for Anthropic
func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (string, error) {
	if p.APIKey == "" {
		return "", missingKey(ProviderAnthropic)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	body := AnthropicRequest{
		Model:       p.model(req, "claude-3-sonnet-20240229"),
		System:      req.System,
		Messages:    []AnthropicMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}

	headers := map[string]string{
		"X-API-Key":         p.APIKey,
		"Anthropic-Version": p.version,
	}

	var resp AnthropicResponse
	if err := postJSON(ctx, p.httpClient, ProviderAnthropic, p.url, headers, body, &resp); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "" || block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", malformed(ProviderAnthropic, "empty response from Anthropic API")
	}
	return sb.String(), nil
}
