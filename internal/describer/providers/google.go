package providers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// GoogleProvider implements the LLMProvider interface for Google's Gemini
// models through the genai SDK.
type GoogleProvider struct {
	Config
	httpClient *http.Client

	mu  sync.Mutex
	cli *genai.Client
}

// NewGoogleProvider creates a new instance of the Google provider
func NewGoogleProvider(config Config) *GoogleProvider {
	return &GoogleProvider{
		Config:     config,
		httpClient: &http.Client{Timeout: config.timeout()},
	}
}

// Name returns the provider name
func (p *GoogleProvider) Name() string {
	return ProviderGoogle
}

func (p *GoogleProvider) client(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cli != nil {
		return p.cli, nil
	}

	cfg := &genai.ClientConfig{
		APIKey:     p.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: p.httpClient,
	}
	if p.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: p.BaseURL}
	}

	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	p.cli = cli
	return cli, nil
}

// Complete implements the LLMProvider interface for Google
func (p *GoogleProvider) Complete(ctx context.Context, req Request) (string, error) {
	if p.APIKey == "" {
		return "", missingKey(ProviderGoogle)
	}

	cli, err := p.client(ctx)
	if err != nil {
		return "", &CallError{Provider: ProviderGoogle, Kind: KindAPI, Err: err}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(maxTokens),
	}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}

	resp, err := cli.Models.GenerateContent(ctx,
		p.model(req, "gemini-1.5-flash"),
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: req.Prompt}}}},
		cfg,
	)
	if err != nil {
		return "", classifyGenaiError(err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", malformed(ProviderGoogle, "empty response from Google API")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", malformed(ProviderGoogle, "empty response from Google API")
	}
	return sb.String(), nil
}

// classifyGenaiError turns a genai failure into a CallError. Errors that
// carry no API status are transport failures.
func classifyGenaiError(err error) *CallError {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var apiErrPtr *genai.APIError
		if !errors.As(err, &apiErrPtr) {
			return &CallError{Provider: ProviderGoogle, Kind: KindNetwork, Err: err}
		}
		apiErr = *apiErrPtr
	}

	kind := kindForStatus(apiErr.Code)
	switch apiErr.Status {
	case "RESOURCE_EXHAUSTED":
		kind = KindQuota
	case "UNAUTHENTICATED", "PERMISSION_DENIED":
		kind = KindAuth
	}
	return &CallError{Provider: ProviderGoogle, Kind: kind, StatusCode: apiErr.Code, Err: err}
}
