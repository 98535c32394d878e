package triage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/ai"
)

// fakeProvider answers from a table keyed by test name.
type fakeProvider struct {
	answers  map[string]string
	failures map[string]error
	requests []ai.Request
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Analyze(ctx context.Context, req ai.Request) (*ai.Analysis, error) {
	f.requests = append(f.requests, req)
	if err := f.failures[req.TestName]; err != nil {
		return nil, err
	}
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("no deadline on context")
	}
	return ai.ParseAnalysis(f.answers[req.TestName]), nil
}

const selectorAnswer = `{"category": "selector_broken", "confidence": 0.9, "summary": "The sign-in button id changed."}
## Root cause
The button is now ` + "`#login`" + `.
## Suggested fix
Use ` + "`getByRole('button', { name: 'Continue' })`" + `.`

func artifactIn(t *testing.T, dir, name, errorText string) *Artifact {
	t.Helper()
	d := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(d, 0750))
	return &Artifact{Dir: d, TestName: name, ErrorFile: filepath.Join(d, "error-context.md"), ErrorText: errorText}
}

func TestPipeline_Run(t *testing.T) {
	dir := t.TempDir()
	broken := artifactIn(t, dir, "signs-in", "TimeoutError: locator.click: Timeout 5000ms exceeded.\n  - waiting for locator('#sign-in')")
	broken.PageSnapshot = `- button "Continue"`
	down := artifactIn(t, dir, "loads-cart", "Error: net::ERR_CONNECTION_REFUSED")

	provider := &fakeProvider{
		answers:  map[string]string{"signs-in": selectorAnswer},
		failures: map[string]error{"loads-cart": errors.New("rate limited")},
	}
	var progress bytes.Buffer
	p := NewPipeline(provider, Options{Timeout: time.Minute, Progress: &progress})

	outcomes, err := p.Run(context.Background(), []*Artifact{broken, down})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	ok, failed := outcomes[0], outcomes[1]
	assert.Equal(t, StatusProcessed, ok.Status)
	assert.Equal(t, ai.CategorySelectorBroken, ok.Category())
	assert.Equal(t, "The sign-in button id changed.", ok.Analysis.Verdict.Summary)

	saved, err := os.ReadFile(broken.ResponsePath("ai-response.md"))
	require.NoError(t, err)
	assert.Equal(t, selectorAnswer, string(saved))

	assert.Equal(t, StatusFailed, failed.Status)
	assert.ErrorContains(t, failed.Err, "rate limited")
	assert.Equal(t, ai.CategoryNetworkFlaky, failed.Category())
	assert.NoFileExists(t, down.ResponsePath("ai-response.md"))

	require.Len(t, provider.requests, 2)
	assert.Equal(t, ai.CategorySelectorBroken, provider.requests[0].Category)
	assert.Equal(t, []string{`button "Continue": text="Continue"`}, provider.requests[0].Hints)
	assert.Empty(t, provider.requests[1].Hints)

	assert.Contains(t, progress.String(), "[1/2] signs-in ✓ selector_broken")
	assert.Contains(t, progress.String(), "[2/2] loads-cart ✗ (fake analysis failed: rate limited)")

	sum := Summarize(outcomes)
	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 2, sum.Total())
	assert.Equal(t, "1 processed, 0 skipped, 1 failed (selector_broken=1)", sum.String())
}

func TestPipeline_SkipsExistingResponse(t *testing.T) {
	dir := t.TempDir()
	a := artifactIn(t, dir, "signs-in", "Test timeout of 30000ms exceeded.")
	require.NoError(t, os.WriteFile(a.ResponsePath("ai-response.md"), []byte(selectorAnswer), 0600))

	provider := &fakeProvider{}
	outcomes, err := NewPipeline(provider, Options{}).Run(context.Background(), []*Artifact{a})
	require.NoError(t, err)

	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusSkipped, outcomes[0].Status)
	assert.Equal(t, ai.CategorySelectorBroken, outcomes[0].Category())
	assert.Empty(t, provider.requests)
}

func TestPipeline_ForceOverwrites(t *testing.T) {
	dir := t.TempDir()
	a := artifactIn(t, dir, "signs-in", "Test timeout of 30000ms exceeded.")
	require.NoError(t, os.WriteFile(a.ResponsePath("answer.md"), []byte("old"), 0600))

	provider := &fakeProvider{answers: map[string]string{"signs-in": "no verdict, just prose"}}
	outcomes, err := NewPipeline(provider, Options{ResponseFile: "answer.md", Force: true, Timeout: time.Second}).
		Run(context.Background(), []*Artifact{a})
	require.NoError(t, err)

	assert.Equal(t, StatusProcessed, outcomes[0].Status)
	assert.Equal(t, ai.CategoryTimingFlaky, outcomes[0].Category())
	saved, err := os.ReadFile(a.ResponsePath("answer.md"))
	require.NoError(t, err)
	assert.Equal(t, "no verdict, just prose", string(saved))
}

func TestPipeline_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes, err := NewPipeline(&fakeProvider{}, Options{}).Run(ctx, []*Artifact{{TestName: "x"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, outcomes)
}
