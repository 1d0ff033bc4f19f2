package providers

const (
	xaiAPIURL = "https://api.x.ai/v1/chat/completions"
)

// XAIProvider implements the LLMProvider interface for X.AI's Grok models,
// which are served through an OpenAI-compatible chat completions endpoint.
type XAIProvider struct {
	*OpenAIProvider
}

// NewXAIProvider creates a new instance of the X.AI provider
func NewXAIProvider(config Config) *XAIProvider {
	return &XAIProvider{newChatCompletionsProvider(config, ProviderXAI, xaiAPIURL, "grok-2-latest")}
}
