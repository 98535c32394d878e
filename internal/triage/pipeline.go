package triage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/ai"
)

// Status is the outcome of triaging one artifact.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Outcome is the result for one artifact.
type Outcome struct {
	Artifact       *Artifact
	Classification Classification
	Analysis       *ai.Analysis
	Status         Status
	Err            error
}

// Category is the AI verdict when there is one, else the rule-based category.
func (o *Outcome) Category() ai.Category {
	if o.Analysis != nil && o.Analysis.HasVerdict && o.Analysis.Verdict.Category != ai.CategoryUnknown {
		return o.Analysis.Verdict.Category
	}
	return o.Classification.Category
}

// Summary counts outcomes.
type Summary struct {
	Processed  int
	Skipped    int
	Failed     int
	ByCategory map[ai.Category]int
}

// Total is the number of artifacts seen.
func (s Summary) Total() int {
	return s.Processed + s.Skipped + s.Failed
}

func (s Summary) String() string {
	var parts []string
	for _, c := range ai.Categories {
		if n := s.ByCategory[c]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", c, n))
		}
	}
	out := fmt.Sprintf("%d processed, %d skipped, %d failed", s.Processed, s.Skipped, s.Failed)
	if len(parts) > 0 {
		out += " (" + strings.Join(parts, ", ") + ")"
	}
	return out
}

// Summarize counts outcomes by status and category.
func Summarize(outcomes []*Outcome) Summary {
	s := Summary{ByCategory: make(map[ai.Category]int)}
	for _, o := range outcomes {
		switch o.Status {
		case StatusProcessed:
			s.Processed++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
		if o.Status != StatusFailed {
			s.ByCategory[o.Category()]++
		}
	}
	return s
}

// Options configures a Pipeline.
type Options struct {
	ResponseFile string
	Timeout      time.Duration
	Force        bool
	Logger       *slog.Logger
	Progress     io.Writer
}

// Pipeline sends failed tests to an AI provider one at a time.
type Pipeline struct {
	provider ai.Provider
	opts     Options
	log      *slog.Logger
}

// NewPipeline creates a pipeline. A nil logger discards diagnostics.
func NewPipeline(provider ai.Provider, opts Options) *Pipeline {
	if opts.ResponseFile == "" {
		opts.ResponseFile = "ai-response.md"
	}
	if opts.Progress == nil {
		opts.Progress = io.Discard
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{provider: provider, opts: opts, log: log}
}

// Run triages every artifact. Provider failures are recorded per artifact and
// never stop the batch; only context cancellation does.
func (p *Pipeline) Run(ctx context.Context, artifacts []*Artifact) ([]*Outcome, error) {
	outcomes := make([]*Outcome, 0, len(artifacts))
	for i, a := range artifacts {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		fmt.Fprintf(p.opts.Progress, "  [%d/%d] %s", i+1, len(artifacts), a.TestName)
		o := p.triage(ctx, a)
		switch o.Status {
		case StatusProcessed:
			fmt.Fprintf(p.opts.Progress, " ✓ %s\n", o.Category())
		case StatusSkipped:
			fmt.Fprintf(p.opts.Progress, " - skipped (existing %s)\n", p.opts.ResponseFile)
		case StatusFailed:
			fmt.Fprintf(p.opts.Progress, " ✗ (%v)\n", o.Err)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}

func (p *Pipeline) triage(ctx context.Context, a *Artifact) *Outcome {
	o := &Outcome{Artifact: a, Classification: Classify(a.ErrorText)}
	respPath := a.ResponsePath(p.opts.ResponseFile)

	if !p.opts.Force {
		existing, err := os.ReadFile(respPath)
		if err == nil {
			p.log.Debug("reusing existing response", "test", a.TestName, "path", respPath)
			o.Analysis = ai.ParseAnalysis(string(existing))
			o.Status = StatusSkipped
			return o
		}
		if !errors.Is(err, os.ErrNotExist) {
			o.Status, o.Err = StatusFailed, fmt.Errorf("failed to read %s: %w", respPath, err)
			return o
		}
	}

	req := ai.Request{
		TestName:    a.TestName,
		ErrorFile:   a.ErrorFile,
		ErrorText:   a.ErrorText,
		Status:      a.Status,
		Category:    o.Classification.Category,
		Evidence:    strings.Join(o.Classification.Evidence, "; "),
		Screenshots: a.Screenshots,
		HasTrace:    a.TracePath != "",
	}
	if o.Classification.Category == ai.CategorySelectorBroken {
		req.Hints = SelectorHints(a.PageSnapshot)
	}

	callCtx := ctx
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	analysis, err := p.provider.Analyze(callCtx, req)
	if err != nil {
		p.log.Warn("analysis failed", "test", a.TestName, "provider", p.provider.Name(), "err", err)
		o.Status, o.Err = StatusFailed, fmt.Errorf("%s analysis failed: %w", p.provider.Name(), err)
		return o
	}
	p.log.Debug("analysis complete", "test", a.TestName, "category", analysis.Verdict.Category,
		"elapsed", time.Since(start).Round(time.Millisecond))

	if err := os.WriteFile(respPath, []byte(analysis.Raw), 0600); err != nil {
		o.Status, o.Err = StatusFailed, fmt.Errorf("failed to write %s: %w", respPath, err)
		return o
	}
	o.Analysis = analysis
	o.Status = StatusProcessed
	return o
}
