package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/config"
)

var (
	configPath string
	verbose    bool
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "pwdebug",
		Short: "UI coverage reports and AI failure triage for Playwright test runs",
		Long: `pwdebug measures which page elements your Playwright tests touch and
asks an AI model why failed tests failed.

Examples:
  pwdebug coverage test-results/coverage-*.jsonl
  pwdebug capture https://myapp.com flows.yaml
  pwdebug triage --report-dir playwright-report`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: pwdebug.yaml, .pwdebug.yaml, ~/.config/pwdebug/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed progress")

	rootCmd.AddCommand(newCoverageCmd(), newCaptureCmd(), newTriageCmd(), newConfigCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration and builds the diagnostics logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	loader := config.NewLoader(configPath)
	cfg, err := loader.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	level, _ := config.ParseLevel(cfg.Log.Level)
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	if path := loader.GetConfigPath(); path != "" {
		logger.Debug("loaded config", "path", path)
	}
	return cfg, logger, nil
}

func logVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format+"\n", args...)
	}
}
