package ai

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ClaudeProvider implements the Provider interface using Anthropic's Claude
type ClaudeProvider struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

// NewClaudeProvider creates a new Claude provider
func NewClaudeProvider(opts Options) (*ClaudeProvider, error) {
	apiKey := lookupKey(opts.APIKey, "PWDEBUG_ANTHROPIC_KEY", "ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("PWDEBUG_ANTHROPIC_KEY or ANTHROPIC_API_KEY environment variable required")
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := anthropic.NewClient(clientOpts...)

	model := opts.Model
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_20250514)
	}

	return &ClaudeProvider{
		client:    &client,
		model:     model,
		maxTokens: opts.MaxTokens,
	}, nil
}

// Name returns the provider name.
func (p *ClaudeProvider) Name() string { return "claude" }

// Analyze asks Claude to explain a test failure.
func (p *ClaudeProvider) Analyze(ctx context.Context, req Request) (*Analysis, error) {
	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(p.maxTokens),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildUserPrompt(req))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("Claude API error: %w", err)
	}

	var responseText string
	for _, block := range resp.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}

	if responseText == "" {
		return nil, fmt.Errorf("empty response from Claude")
	}

	return ParseAnalysis(responseText), nil
}
