package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/config"
	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/coverage"
	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/gitinfo"
	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/report"
)

var (
	outputDir      string
	formats        []string
	uncoveredLimit int
	sessionID      string
	noGit          bool
)

func newCoverageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coverage <events.jsonl>...",
		Short: "Build a coverage report from test event logs",
		Long: `Replays one or more coverage event logs (one per Playwright worker) into a
single session and writes HTML, Markdown and JSON reports.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCoverage,
	}
	addReportFlags(cmd)
	cmd.Flags().StringVar(&sessionID, "session-id", "", "Session ID for the merged report (default: random)")
	return cmd
}

func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Report directory (default: coverage.output_dir)")
	cmd.Flags().StringSliceVar(&formats, "format", nil, "Report formats: html, markdown, json (default: coverage.formats)")
	cmd.Flags().IntVar(&uncoveredLimit, "limit", -1, "Max uncovered elements listed, 0 for all (default: coverage.uncovered_limit)")
	cmd.Flags().BoolVar(&noGit, "no-git", false, "Do not stamp the report with the current commit")
}

func runCoverage(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	var opts []coverage.Option
	if sessionID != "" {
		opts = append(opts, coverage.WithID(sessionID))
	}
	merged := coverage.NewSession(opts...)
	if err := merged.Start(); err != nil {
		return err
	}

	fmt.Printf("→ Loading %d event log(s)... ", len(args))
	var total coverage.LoadStats
	for _, path := range args {
		s, stats, err := coverage.LoadEventFile(path)
		if err != nil {
			fmt.Println("failed")
			return err
		}
		if err := merged.Merge(s); err != nil {
			fmt.Println("failed")
			return fmt.Errorf("failed to merge %s: %w", path, err)
		}
		logger.Debug("loaded event log", "path", path, "visits", stats.Visits, "selectors", stats.Selectors, "skipped", stats.Skipped)
		total.Visits += stats.Visits
		total.Selectors += stats.Selectors
		total.Skipped += stats.Skipped
	}
	fmt.Printf("done (%d visits, %d selector uses)\n", total.Visits, total.Selectors)
	if total.Skipped > 0 {
		logVerbose("  skipped %d unknown events", total.Skipped)
	}

	return writeReport(cfg, logger, merged)
}

// writeReport finalizes s and writes the configured report formats.
func writeReport(cfg *config.Config, logger *slog.Logger, s *coverage.Session) error {
	if err := s.Finalize(); err != nil {
		return err
	}

	limit := cfg.Coverage.UncoveredLimit
	if uncoveredLimit >= 0 {
		limit = uncoveredLimit
	}
	r := s.Report(limit)

	if !noGit {
		if stamp, err := gitinfo.Lookup("."); err != nil {
			logger.Debug("no git stamp", "err", err)
		} else {
			r.Commit, r.Branch = stamp.Commit, stamp.Branch
		}
	}

	dir := cfg.Coverage.OutputDir
	if outputDir != "" {
		dir = outputDir
	}
	fs := cfg.Coverage.Formats
	if len(formats) > 0 {
		fs = formats
	}

	fmt.Printf("→ Writing reports to %s... ", dir)
	paths, err := report.WriteFiles(dir, fs, r)
	if err != nil {
		fmt.Println("failed")
		return err
	}
	fmt.Printf("done (%d files)\n", len(paths))
	for _, p := range paths {
		logVerbose("  %s", p)
	}

	fmt.Println(report.Summary(r))
	fmt.Printf("✓ %d%% of %d elements covered\n", r.Summary.CoveragePercentage, r.Summary.TotalElements)
	return nil
}
