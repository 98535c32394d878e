package ai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements the Provider interface using the OpenAI chat API
// or any server that speaks it.
type OpenAIProvider struct {
	client    *openai.Client
	name      string
	model     string
	maxTokens int
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(opts Options) (*OpenAIProvider, error) {
	apiKey := lookupKey(opts.APIKey, "PWDEBUG_OPENAI_KEY", "OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("PWDEBUG_OPENAI_KEY or OPENAI_API_KEY environment variable required")
	}

	cfg := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	model := opts.Model
	if model == "" {
		model = "gpt-4o"
	}

	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(cfg),
		name:      "openai",
		model:     model,
		maxTokens: opts.MaxTokens,
	}, nil
}

// NewLocalProvider creates a provider for an OpenAI-compatible server such as
// Ollama or LM Studio. The base URL is required, the API key is not.
func NewLocalProvider(opts Options) (*OpenAIProvider, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("local provider requires a base URL (ai.base_url or PWDEBUG_BASE_URL)")
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("local provider requires a model (ai.model or PWDEBUG_MODEL)")
	}

	cfg := openai.DefaultConfig(lookupKey(opts.APIKey, "PWDEBUG_LOCAL_KEY"))
	cfg.BaseURL = opts.BaseURL

	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(cfg),
		name:      "local",
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
	}, nil
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string { return p.name }

// Analyze asks the chat model to explain a test failure.
func (p *OpenAIProvider) Analyze(ctx context.Context, req Request) (*Analysis, error) {
	resp, err := p.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: p.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: buildUserPrompt(req),
				},
			},
			MaxTokens: p.maxTokens,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", p.name, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("empty response from %s", p.name)
	}

	return ParseAnalysis(resp.Choices[0].Message.Content), nil
}
