package ai

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Request describes one failed test handed to a provider for analysis.
type Request struct {
	TestName    string
	ErrorFile   string
	ErrorText   string
	Status      string
	Category    Category // rule-based pre-classification
	Evidence    string
	Hints       []string // selectors of interactive elements on the failing page
	Screenshots []string
	HasTrace    bool
}

// Provider defines the interface for AI failure analysis
type Provider interface {
	Name() string
	Analyze(ctx context.Context, req Request) (*Analysis, error)
}

// Options configures a provider. Zero values fall back to provider defaults.
type Options struct {
	Model     string
	BaseURL   string
	APIKey    string
	MaxTokens int
}

const defaultMaxTokens = 2048

// NewProvider creates a new AI provider based on the provider name
func NewProvider(name string, opts Options) (Provider, error) {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	switch strings.ToLower(name) {
	case "claude", "anthropic":
		return NewClaudeProvider(opts)
	case "openai", "gpt":
		return NewOpenAIProvider(opts)
	case "local":
		return NewLocalProvider(opts)
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: claude, openai, local)", name)
	}
}

// SupportedProviders lists the names NewProvider accepts.
var SupportedProviders = []string{"claude", "anthropic", "openai", "gpt", "local"}

// lookupKey returns explicit, or the first non-empty environment variable.
func lookupKey(explicit string, envs ...string) string {
	if explicit != "" {
		return explicit
	}
	for _, env := range envs {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return ""
}
