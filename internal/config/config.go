// Package config provides configuration loading and defaults for pwdebug
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Report formats.
const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Config represents the application configuration
type Config struct {
	AI       AIConfig       `yaml:"ai"`
	Triage   TriageConfig   `yaml:"triage"`
	Coverage CoverageConfig `yaml:"coverage"`
	Log      LogConfig      `yaml:"log"`
}

// AIConfig selects and tunes the AI backend
type AIConfig struct {
	Provider  string        `yaml:"provider"`
	Model     string        `yaml:"model,omitempty"`
	BaseURL   string        `yaml:"base_url,omitempty"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// TriageConfig holds failure-triage settings
type TriageConfig struct {
	ResultsDir     string   `yaml:"results_dir"`
	ReportDir      string   `yaml:"report_dir"`
	ErrorFiles     []string `yaml:"error_files"`
	ResponseFile   string   `yaml:"response_file"`
	MaxErrorBytes  int      `yaml:"max_error_bytes"`
	ThumbnailWidth int      `yaml:"thumbnail_width"`
	SkipExisting   bool     `yaml:"skip_existing"`
}

// CoverageConfig holds coverage report settings
type CoverageConfig struct {
	OutputDir      string   `yaml:"output_dir"`
	Formats        []string `yaml:"formats"`
	UncoveredLimit int      `yaml:"uncovered_limit"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		AI: AIConfig{
			Provider:  "claude",
			MaxTokens: 2048,
			Timeout:   2 * time.Minute,
		},
		Triage: TriageConfig{
			ResultsDir:     "test-results",
			ReportDir:      "playwright-report",
			ErrorFiles:     []string{"error-context.md", "error.txt"},
			ResponseFile:   "ai-response.md",
			MaxErrorBytes:  32 * 1024,
			ThumbnailWidth: 320,
			SkipExisting:   true,
		},
		Coverage: CoverageConfig{
			OutputDir:      "coverage-report",
			Formats:        []string{FormatHTML, FormatMarkdown, FormatJSON},
			UncoveredLimit: 50,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// GetConfigPaths returns the list of configuration file paths to check
func GetConfigPaths() []string {
	paths := []string{"pwdebug.yaml", ".pwdebug.yaml"}
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", "pwdebug", "config.yaml"))
	}
	return paths
}

var validProviders = map[string]bool{
	"claude": true, "anthropic": true, "openai": true, "gpt": true, "local": true,
}

var validFormats = map[string]bool{FormatHTML: true, FormatMarkdown: true, FormatJSON: true}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !validProviders[strings.ToLower(c.AI.Provider)] {
		return fmt.Errorf("ai.provider must be one of: claude, openai, local (got %q)", c.AI.Provider)
	}
	if strings.EqualFold(c.AI.Provider, "local") && c.AI.BaseURL == "" {
		return fmt.Errorf("ai.base_url is required for the local provider")
	}
	if c.AI.MaxTokens < 1 {
		return fmt.Errorf("ai.max_tokens must be at least 1")
	}
	if c.AI.Timeout < time.Second {
		return fmt.Errorf("ai.timeout must be at least 1 second")
	}

	if c.Triage.ResultsDir == "" {
		return fmt.Errorf("triage.results_dir cannot be empty")
	}
	if len(c.Triage.ErrorFiles) == 0 {
		return fmt.Errorf("triage.error_files cannot be empty")
	}
	if c.Triage.ResponseFile == "" {
		return fmt.Errorf("triage.response_file cannot be empty")
	}
	if c.Triage.MaxErrorBytes < 1 {
		return fmt.Errorf("triage.max_error_bytes must be at least 1")
	}
	if c.Triage.ThumbnailWidth < 1 {
		return fmt.Errorf("triage.thumbnail_width must be at least 1")
	}

	for _, f := range c.Coverage.Formats {
		if !validFormats[f] {
			return fmt.Errorf("coverage.formats: unknown format %q (supported: html, markdown, json)", f)
		}
	}
	if c.Coverage.UncoveredLimit < 0 {
		return fmt.Errorf("coverage.uncovered_limit cannot be negative")
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ApplyEnvironmentOverrides applies environment variable overrides to the configuration
func (c *Config) ApplyEnvironmentOverrides() {
	if v := os.Getenv("PWDEBUG_PROVIDER"); v != "" {
		c.AI.Provider = v
	}
	if v := os.Getenv("PWDEBUG_MODEL"); v != "" {
		c.AI.Model = v
	}
	if v := os.Getenv("PWDEBUG_BASE_URL"); v != "" {
		c.AI.BaseURL = v
	}
	if v := os.Getenv("PWDEBUG_RESULTS_DIR"); v != "" {
		c.Triage.ResultsDir = v
	}
	if v := os.Getenv("PWDEBUG_REPORT_DIR"); v != "" {
		c.Triage.ReportDir = v
	}
	if v := os.Getenv("PWDEBUG_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
}
