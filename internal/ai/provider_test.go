package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cannedAnswer = "{\"category\": \"selector_broken\", \"confidence\": 0.9, \"summary\": \"Submit button id changed\"}\n## Root cause\n`#submit` is gone."

func TestNewProvider(t *testing.T) {
	t.Setenv("PWDEBUG_ANTHROPIC_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("PWDEBUG_OPENAI_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewProvider("bard", Options{})
	assert.ErrorContains(t, err, "unknown provider")

	_, err = NewProvider("claude", Options{})
	assert.ErrorContains(t, err, "ANTHROPIC_API_KEY")

	_, err = NewProvider("openai", Options{})
	assert.ErrorContains(t, err, "OPENAI_API_KEY")

	_, err = NewProvider("local", Options{Model: "llama3"})
	assert.ErrorContains(t, err, "base URL")

	_, err = NewProvider("local", Options{BaseURL: "http://localhost:11434/v1"})
	assert.ErrorContains(t, err, "model")

	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	p, err := NewProvider("Anthropic", Options{})
	require.NoError(t, err)
	assert.Equal(t, "claude", p.Name())

	p, err = NewProvider("gpt", Options{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	p, err = NewProvider("local", Options{BaseURL: "http://localhost:11434/v1", Model: "llama3"})
	require.NoError(t, err)
	assert.Equal(t, "local", p.Name())
}

func TestOpenAIProvider_Analyze(t *testing.T) {
	var got struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   got.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": cannedAnswer},
			}},
		})
	}))
	defer srv.Close()

	p, err := NewProvider("local", Options{BaseURL: srv.URL + "/v1", Model: "qwen2.5-coder", MaxTokens: 512})
	require.NoError(t, err)

	a, err := p.Analyze(context.Background(), Request{TestName: "login works", ErrorText: "locator('#submit') not found"})
	require.NoError(t, err)

	assert.Equal(t, "qwen2.5-coder", got.Model)
	assert.Equal(t, 512, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[1].Content, "locator('#submit') not found")

	assert.True(t, a.HasVerdict)
	assert.Equal(t, CategorySelectorBroken, a.Verdict.Category)
	assert.Equal(t, "Submit button id changed", a.Verdict.Summary)
	assert.Equal(t, "## Root cause\n`#submit` is gone.", a.Markdown)
}

func TestOpenAIProvider_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","choices":[]}`)
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(Options{APIKey: "sk-test", BaseURL: srv.URL, MaxTokens: 64})
	require.NoError(t, err)

	_, err = p.Analyze(context.Background(), Request{})
	assert.ErrorContains(t, err, "empty response from openai")
}

func TestClaudeProvider_Analyze(t *testing.T) {
	var got struct {
		Model  string `json:"model"`
		System []struct {
			Text string `json:"text"`
		} `json:"system"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("X-Api-Key"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            "msg_1",
			"type":          "message",
			"role":          "assistant",
			"model":         got.Model,
			"content":       []map[string]any{{"type": "text", "text": cannedAnswer}},
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"usage":         map[string]any{"input_tokens": 10, "output_tokens": 20},
		})
	}))
	defer srv.Close()

	p, err := NewClaudeProvider(Options{APIKey: "sk-ant-test", BaseURL: srv.URL, Model: "claude-test", MaxTokens: 256})
	require.NoError(t, err)

	a, err := p.Analyze(context.Background(), Request{TestName: "login works"})
	require.NoError(t, err)
	assert.Equal(t, "claude-test", got.Model)
	require.Len(t, got.System, 1)
	assert.Contains(t, got.System[0].Text, "selector_broken")
	assert.Equal(t, CategorySelectorBroken, a.Verdict.Category)
}
