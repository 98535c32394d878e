package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/coverage"
	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/crawler"
	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/executor"
)

var (
	source          string
	width           int
	height          int
	delay           int
	timeout         time.Duration
	headful         bool
	profile         string
	eventsPath      string
	continueOnError bool
)

func newCaptureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture <url> [flows.yaml]",
		Short: "Drive a live browser and report which elements a flow touches",
		Long: `capture opens the page in Chromium, discovers its elements and, when a flow
file is given, runs each flow while recording every selector it uses.

Without a flow file the report lists every element on the page as uncovered,
which is a quick inventory of what tests could target.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runCapture,
	}
	addReportFlags(cmd)
	cmd.Flags().StringVar(&source, "source", crawler.SourceAria, "Element source: aria (accessibility tree) or dom")
	cmd.Flags().IntVar(&width, "width", 1280, "Viewport width")
	cmd.Flags().IntVar(&height, "height", 720, "Viewport height")
	cmd.Flags().IntVar(&delay, "delay", 300, "Base delay between actions (ms)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Page load and element lookup timeout")
	cmd.Flags().BoolVar(&headful, "headful", false, "Show the browser window")
	cmd.Flags().StringVar(&profile, "profile", "", "Chrome/Chromium profile directory for authenticated sessions (close browser first)")
	cmd.Flags().StringVar(&eventsPath, "events", "", "Event log to write (default: <output>/coverage-events.jsonl)")
	cmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "Keep running a flow after a failed step")
	return cmd
}

func runCapture(cmd *cobra.Command, args []string) error {
	url := args[0]
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if source != crawler.SourceAria && source != crawler.SourceDOM {
		return fmt.Errorf("unknown source %q (supported: aria, dom)", source)
	}

	var flows *executor.FlowFile
	if len(args) == 2 {
		flows, err = executor.LoadFlows(args[1])
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dir := cfg.Coverage.OutputDir
	if outputDir != "" {
		dir = outputDir
	}
	if eventsPath == "" {
		eventsPath = filepath.Join(dir, "coverage-events.jsonl")
	}
	if err := os.MkdirAll(filepath.Dir(eventsPath), 0750); err != nil {
		return fmt.Errorf("failed to create event log directory: %w", err)
	}
	events, err := os.Create(eventsPath)
	if err != nil {
		return fmt.Errorf("failed to create event log: %w", err)
	}
	defer events.Close()

	session := coverage.NewSession()
	if err := session.Start(); err != nil {
		return err
	}
	rec := coverage.NewEventWriter(events, session)

	fmt.Printf("→ Opening %s... ", url)
	browser, err := crawler.Open(ctx, url, crawler.Options{
		Width:      width,
		Height:     height,
		Timeout:    timeout,
		Source:     source,
		Headful:    headful,
		ProfileDir: profile,
	})
	if err != nil {
		fmt.Println("failed")
		return fmt.Errorf("browser launch failed: %w", err)
	}
	defer browser.Close()
	fmt.Println("done")

	if flows == nil {
		fmt.Printf("→ Capturing page... ")
		pm, err := browser.Capture()
		if err != nil {
			fmt.Println("failed")
			return fmt.Errorf("capture failed: %w", err)
		}
		if err := rec.RecordPageVisit(crawler.PageID(pm.URL), pm.Elements, "capture"); err != nil {
			fmt.Println("failed")
			return err
		}
		fmt.Printf("done (found %d elements via %s)\n", len(pm.Elements), pm.Source)
		logVerbose("%s", pm.Snapshot)
	} else {
		baseURL := flows.BaseURL
		if baseURL == "" {
			baseURL = url
		}
		runner := executor.NewRunner(executor.NewRodDriver(browser, timeout), rec, executor.Options{
			BaseURL:         baseURL,
			BaseDelay:       time.Duration(delay) * time.Millisecond,
			ContinueOnError: continueOnError,
			Verbose:         verbose,
			Out:             os.Stdout,
		})

		var failed int
		for _, flow := range flows.Tests {
			fmt.Printf("→ Running %q (%d steps)\n", flow.Name, len(flow.Steps))
			res, err := runner.Run(ctx, flow)
			if errors.Is(err, context.Canceled) {
				return err
			}
			if err != nil {
				failed++
				fmt.Printf("  ✗ %v\n", err)
				logger.Debug("flow failed", "test", flow.Name, "err", err)
				continue
			}
			fmt.Printf("  done (%d/%d steps, %d page captures", res.Executed, len(flow.Steps), res.Visits)
			if len(res.Failed) > 0 {
				fmt.Printf(", %d failed", len(res.Failed))
			}
			fmt.Println(")")
		}
		if failed > 0 {
			fmt.Printf("⚠ %d of %d flows stopped early\n", failed, len(flows.Tests))
		}
	}

	logVerbose("Event log: %s", eventsPath)
	return writeReport(cfg, logger, session)
}
