package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/ai"
	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/config"
	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/triage"
)

var (
	resultsDir string
	reportDir  string
	provider   string
	model      string
	force      bool
	watch      bool
	notify     bool
)

func newTriageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "triage",
		Short: "Ask an AI model why failed tests failed",
		Long: `triage scans the Playwright results directory for error files, classifies
each failure, asks the configured AI provider for a root cause and a fix, and
adds the answers to the HTML report.

Providers: claude (ANTHROPIC_API_KEY), openai (OPENAI_API_KEY), local
(any OpenAI-compatible server, set ai.base_url).`,
		Args: cobra.NoArgs,
		RunE: runTriage,
	}
	cmd.Flags().StringVar(&resultsDir, "results-dir", "", "Playwright output directory (default: triage.results_dir)")
	cmd.Flags().StringVar(&reportDir, "report-dir", "", "Playwright HTML report directory (default: triage.report_dir)")
	cmd.Flags().StringVar(&provider, "provider", "", "AI provider: claude, openai, local (default: ai.provider)")
	cmd.Flags().StringVar(&model, "model", "", "Specific model override")
	cmd.Flags().BoolVar(&force, "force", false, "Re-analyze failures that already have a response file")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep running and triage new failures as they appear")
	cmd.Flags().BoolVar(&notify, "notify", false, "Show a desktop notification after each batch")
	return cmd
}

func runTriage(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if resultsDir != "" {
		cfg.Triage.ResultsDir = resultsDir
	}
	if reportDir != "" {
		cfg.Triage.ReportDir = reportDir
	}
	if provider != "" {
		cfg.AI.Provider = provider
	}
	if model != "" {
		cfg.AI.Model = model
	}

	aiProvider, err := ai.NewProvider(cfg.AI.Provider, ai.Options{
		Model:     cfg.AI.Model,
		BaseURL:   cfg.AI.BaseURL,
		MaxTokens: cfg.AI.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("AI provider init failed: %w", err)
	}
	logVerbose("Provider: %s", aiProvider.Name())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pipeline := triage.NewPipeline(aiProvider, triage.Options{
		ResponseFile: cfg.Triage.ResponseFile,
		Timeout:      cfg.AI.Timeout,
		Force:        force || !cfg.Triage.SkipExisting,
		Logger:       logger,
		Progress:     os.Stdout,
	})

	scanOpts := triage.ScanOptions{ErrorFiles: cfg.Triage.ErrorFiles, MaxErrorBytes: cfg.Triage.MaxErrorBytes}
	fmt.Printf("→ Scanning %s... ", cfg.Triage.ResultsDir)
	artifacts, err := triage.Scan(cfg.Triage.ResultsDir, scanOpts)
	if err != nil {
		fmt.Println("failed")
		return err
	}
	fmt.Printf("done (%d failed tests)\n", len(artifacts))

	all, err := triageBatch(ctx, cfg, logger, pipeline, artifacts, nil)
	if err != nil {
		return err
	}
	if !watch {
		return nil
	}

	w, err := triage.NewWatcher(cfg.Triage.ResultsDir, cfg.Triage.ErrorFiles, triage.DefaultDebounce, logger)
	if err != nil {
		return err
	}
	defer w.Close()

	fmt.Printf("→ Watching %s (Ctrl+C to stop)\n", cfg.Triage.ResultsDir)
	err = w.Run(ctx, func(paths []string) {
		var batch []*triage.Artifact
		for _, p := range paths {
			a, err := triage.LoadArtifact(p, cfg.Triage.MaxErrorBytes)
			if err != nil {
				logger.Warn("skipping error file", "path", p, "err", err)
				continue
			}
			batch = append(batch, a)
		}
		if len(batch) == 0 {
			return
		}
		fmt.Printf("→ %d new failure(s)\n", len(batch))
		var batchErr error
		all, batchErr = triageBatch(ctx, cfg, logger, pipeline, batch, all)
		if batchErr != nil && !errors.Is(batchErr, context.Canceled) {
			logger.Error("triage failed", "err", batchErr)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// triageBatch analyzes artifacts, then rewrites the report with every outcome
// seen so far. Outcomes for a directory already in seen are replaced.
func triageBatch(ctx context.Context, cfg *config.Config, logger *slog.Logger, p *triage.Pipeline,
	artifacts []*triage.Artifact, seen []*triage.Outcome) ([]*triage.Outcome, error) {
	if len(artifacts) == 0 {
		fmt.Println("✓ No failed tests")
		return seen, nil
	}

	if path, ok := triage.FindResultsFile(
		filepath.Join(cfg.Triage.ReportDir, "results.json"),
		filepath.Join(cfg.Triage.ResultsDir, "results.json"),
	); ok {
		idx, err := triage.LoadResults(path)
		if err != nil {
			logger.Warn("ignoring results file", "path", path, "err", err)
		} else {
			n := idx.Annotate(artifacts)
			logVerbose("  matched %d of %d failures in %s", n, len(artifacts), path)
		}
	}

	fmt.Println("→ Analyzing failures...")
	outcomes, err := p.Run(ctx, artifacts)
	seen = mergeOutcomes(seen, outcomes)
	if err != nil {
		return seen, err
	}

	sum := triage.Summarize(outcomes)
	if err := stitchReport(cfg, seen); err != nil {
		logger.Warn("report not updated", "err", err)
	}
	if notify {
		if err := triage.NotifySummary(triage.DesktopNotifier{}, sum); err != nil {
			logger.Warn("notification failed", "err", err)
		}
	}

	fmt.Printf("✓ %s\n", sum)
	return seen, nil
}

func mergeOutcomes(seen, fresh []*triage.Outcome) []*triage.Outcome {
	for _, o := range fresh {
		replaced := false
		for i, prev := range seen {
			if prev.Artifact.Dir == o.Artifact.Dir {
				seen[i] = o
				replaced = true
				break
			}
		}
		if !replaced {
			seen = append(seen, o)
		}
	}
	return seen
}

func stitchReport(cfg *config.Config, outcomes []*triage.Outcome) error {
	index := filepath.Join(cfg.Triage.ReportDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		return fmt.Errorf("no HTML report at %s", index)
	}

	fmt.Printf("→ Updating %s... ", index)
	section, err := triage.RenderSection(outcomes, cfg.Triage.ThumbnailWidth)
	if err != nil {
		fmt.Println("failed")
		return err
	}
	if err := triage.InjectFile(index, section); err != nil {
		fmt.Println("failed")
		return err
	}
	fmt.Println("done")
	return nil
}
