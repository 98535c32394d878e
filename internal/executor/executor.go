// Package executor runs scripted browser flows and reports every interaction
// and page state to a coverage recorder as it happens.
package executor

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/crawler"
	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/snapshot"
)

// Recorder receives page visits and selector usages. *coverage.Session satisfies it.
type Recorder interface {
	RecordPageVisit(pageID string, elements []*snapshot.ElementRecord, testName string) error
	RecordSelectorUsage(testName, selector, method string) error
}

// Driver performs actions on a page.
type Driver interface {
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	Hover(ctx context.Context, selector string) error
	Scroll(ctx context.Context, selector string, x, y int) error
	Navigate(ctx context.Context, url string) error
	Capture(ctx context.Context) (*crawler.PageMap, error)
}

// Options configures execution behavior
type Options struct {
	BaseURL         string
	BaseDelay       time.Duration // pause after each action without its own wait
	ContinueOnError bool
	Verbose         bool
	Out             io.Writer
}

// StepError is a failed step.
type StepError struct {
	Index  int
	Action Action
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s %s): %v", e.Index+1, e.Action.Type, e.Action.target(), e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Result summarises one flow run.
type Result struct {
	Test     string
	Executed int
	Visits   int
	Failed   []*StepError
}

// Runner executes flows against a Driver and records into a Recorder.
type Runner struct {
	driver Driver
	rec    Recorder
	opts   Options
}

// NewRunner creates a runner.
func NewRunner(driver Driver, rec Recorder, opts Options) *Runner {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Runner{driver: driver, rec: rec, opts: opts}
}

// Run executes the flow. Each selector is recorded before its action runs, so
// failed interactions still count as attempted. The page is captured at the
// start, after every navigate and after every checkpoint action.
func (r *Runner) Run(ctx context.Context, flow Flow) (*Result, error) {
	res := &Result{Test: flow.Name}

	if flow.URL != "" {
		if err := r.driver.Navigate(ctx, r.resolve(flow.URL)); err != nil {
			return res, fmt.Errorf("test %q: failed to open %s: %w", flow.Name, flow.URL, err)
		}
	}
	if err := r.visit(ctx, flow.Name, res); err != nil {
		return res, err
	}

	for i, action := range flow.Steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if r.opts.Verbose {
			fmt.Fprintf(r.opts.Out, "  [%d/%d] %s %s", i+1, len(flow.Steps), action.Type, action.target())
		}

		if action.Selector != "" {
			if err := r.rec.RecordSelectorUsage(flow.Name, action.Selector, action.Method()); err != nil {
				return res, fmt.Errorf("test %q: %w", flow.Name, err)
			}
		}

		if err := r.execute(ctx, action); err != nil {
			stepErr := &StepError{Index: i, Action: action, Err: err}
			res.Failed = append(res.Failed, stepErr)
			if r.opts.Verbose {
				fmt.Fprintf(r.opts.Out, " ✗ (%v)\n", err)
			}
			if !r.opts.ContinueOnError {
				return res, fmt.Errorf("test %q: %w", flow.Name, stepErr)
			}
			continue
		}
		res.Executed++

		if r.opts.Verbose {
			if action.Checkpoint {
				fmt.Fprintln(r.opts.Out, " ✓ [checkpoint]")
			} else {
				fmt.Fprintln(r.opts.Out, " ✓")
			}
		}

		if err := r.pause(ctx, action); err != nil {
			return res, err
		}

		if action.Type == ActionNavigate || action.Checkpoint {
			if err := r.visit(ctx, flow.Name, res); err != nil {
				return res, err
			}
		}
	}
	return res, nil
}

func (r *Runner) execute(ctx context.Context, action Action) error {
	switch action.Type {
	case ActionClick:
		return r.driver.Click(ctx, action.Selector)
	case ActionType:
		return r.driver.Type(ctx, action.Selector, action.Text)
	case ActionHover:
		return r.driver.Hover(ctx, action.Selector)
	case ActionScroll:
		return r.driver.Scroll(ctx, action.Selector, action.X, action.Y)
	case ActionNavigate:
		return r.driver.Navigate(ctx, r.resolve(action.URL))
	case ActionWait:
		return nil
	default:
		return fmt.Errorf("unknown action: %q", action.Type)
	}
}

// pause sleeps after an action: its own wait, else the base delay.
func (r *Runner) pause(ctx context.Context, action Action) error {
	d := time.Duration(action.Duration) * time.Millisecond
	if d == 0 && action.Type != ActionWait {
		d = r.opts.BaseDelay
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *Runner) visit(ctx context.Context, test string, res *Result) error {
	pm, err := r.driver.Capture(ctx)
	if err != nil {
		return fmt.Errorf("test %q: capture failed: %w", test, err)
	}
	if err := r.rec.RecordPageVisit(crawler.PageID(pm.URL), pm.Elements, test); err != nil {
		return fmt.Errorf("test %q: %w", test, err)
	}
	res.Visits++
	return nil
}

func (r *Runner) resolve(raw string) string {
	if r.opts.BaseURL == "" {
		return raw
	}
	base, err := url.Parse(r.opts.BaseURL)
	if err != nil {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return base.ResolveReference(ref).String()
}

func (a Action) target() string {
	if a.URL != "" {
		return a.URL
	}
	return a.Selector
}
