package providers

import (
	"context"
	"net/http"
)

const (
	openaiAPIURL = "https://api.openai.com/v1/chat/completions"
)

// OpenAIProvider implements the LLMProvider interface for OpenAI's chat
// completions API and compatible endpoints.
type OpenAIProvider struct {
	Config
	httpClient   *http.Client
	name         string
	url          string
	defaultModel string
}

// OpenAIMessage represents a message in OpenAI's chat format
type OpenAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAIRequest represents a request to OpenAI's API
type OpenAIRequest struct {
	Model       string          `json:"model"`
	Messages    []OpenAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

// OpenAIResponse represents a response from OpenAI's API
type OpenAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewOpenAIProvider creates a new instance of the OpenAI provider
func NewOpenAIProvider(config Config) *OpenAIProvider {
	return newChatCompletionsProvider(config, ProviderOpenAI, openaiAPIURL, "gpt-3.5-turbo")
}

func newChatCompletionsProvider(config Config, name, url, defaultModel string) *OpenAIProvider {
	if config.BaseURL != "" {
		url = config.BaseURL
	}
	return &OpenAIProvider{
		Config:       config,
		httpClient:   &http.Client{Timeout: config.timeout()},
		name:         name,
		url:          url,
		defaultModel: defaultModel,
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Complete implements the LLMProvider interface for chat completions
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	if p.APIKey == "" {
		return "", missingKey(p.name)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	var messages []OpenAIMessage
	if req.System != "" {
		messages = append(messages, OpenAIMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, OpenAIMessage{Role: "user", Content: req.Prompt})

	body := OpenAIRequest{
		Model:       p.model(req, p.defaultModel),
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}

	var resp OpenAIResponse
	headers := map[string]string{"Authorization": "Bearer " + p.APIKey}
	if err := postJSON(ctx, p.httpClient, p.name, p.url, headers, body, &resp); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", malformed(p.name, "empty response from %s API", p.name)
	}
	return resp.Choices[0].Message.Content, nil
}
