package executor

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/coverage"
	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/crawler"
	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/snapshot"
)

// fakeDriver serves canned snapshots per URL and logs every call.
type fakeDriver struct {
	url      string
	pages    map[string]string
	calls    []string
	failOn   map[string]error
	clickNav map[string]string // selector -> URL a click navigates to
}

func (d *fakeDriver) do(call, selector string) error {
	d.calls = append(d.calls, call+" "+selector)
	return d.failOn[selector]
}

func (d *fakeDriver) Click(_ context.Context, selector string) error {
	if err := d.do("click", selector); err != nil {
		return err
	}
	if next, ok := d.clickNav[selector]; ok {
		d.url = next
	}
	return nil
}

func (d *fakeDriver) Type(_ context.Context, selector, text string) error {
	return d.do("type", selector+"="+text)
}

func (d *fakeDriver) Hover(_ context.Context, selector string) error { return d.do("hover", selector) }

func (d *fakeDriver) Scroll(_ context.Context, selector string, _, _ int) error {
	return d.do("scroll", selector)
}

func (d *fakeDriver) Navigate(_ context.Context, url string) error {
	d.calls = append(d.calls, "navigate "+url)
	d.url = url
	return nil
}

func (d *fakeDriver) Capture(context.Context) (*crawler.PageMap, error) {
	text, ok := d.pages[d.url]
	if !ok {
		return nil, errors.New("no page at " + d.url)
	}
	return &crawler.PageMap{URL: d.url, Source: crawler.SourceAria, Snapshot: text, Elements: snapshot.Parse(text)}, nil
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		pages: map[string]string{
			"https://shop.test/login": "- form \"Login\":\n  - textbox \"Email\"\n  - button \"Sign in\"",
			"https://shop.test/home":  "- heading \"Welcome\"\n- button \"Buy now\"",
		},
		failOn:   map[string]error{},
		clickNav: map[string]string{"text=Sign in": "https://shop.test/home"},
	}
}

var loginFlow = Flow{
	Name: "login works",
	URL:  "/login",
	Steps: []Action{
		{Type: ActionType, Selector: "text=Email", Text: "a@b.c"},
		{Type: ActionClick, Selector: "text=Sign in", Checkpoint: true},
		{Type: ActionWait},
		{Type: ActionHover, Selector: "text=Buy now"},
	},
}

func TestRunner_Run(t *testing.T) {
	driver := newFakeDriver()
	session := coverage.NewSession()
	require.NoError(t, session.Start())

	var out bytes.Buffer
	r := NewRunner(driver, session, Options{BaseURL: "https://shop.test/", Verbose: true, Out: &out})
	res, err := r.Run(context.Background(), loginFlow)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Executed)
	assert.Equal(t, 2, res.Visits)
	assert.Empty(t, res.Failed)
	assert.Equal(t, []string{
		"navigate https://shop.test/login",
		"type text=Email=a@b.c",
		"click text=Sign in",
		"hover text=Buy now",
	}, driver.calls)
	assert.Contains(t, out.String(), "[2/4] click text=Sign in ✓ [checkpoint]")

	usages := session.Usages()
	require.Len(t, usages, 3)
	assert.Equal(t, "fill", usages[0].Method)
	assert.Equal(t, "hover", usages[2].Method)

	pages := session.Pages()
	require.Len(t, pages, 2)
	assert.Equal(t, "https://shop.test/login", pages[0].ID)
	assert.Equal(t, "https://shop.test/home", pages[1].ID)

	sum := session.Summary()
	assert.Equal(t, 5, sum.TotalElements)
	assert.Equal(t, 3, sum.CoveredElements, "Email, Sign in and Buy now")
}

func TestRunner_StopsOnFailure(t *testing.T) {
	driver := newFakeDriver()
	driver.failOn["text=Sign in"] = errors.New("element not found")
	session := coverage.NewSession()
	require.NoError(t, session.Start())

	r := NewRunner(driver, session, Options{BaseURL: "https://shop.test"})
	res, err := r.Run(context.Background(), loginFlow)
	require.Error(t, err)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 1, stepErr.Index)
	assert.Contains(t, err.Error(), "step 2 (click text=Sign in): element not found")
	assert.Equal(t, 1, res.Executed)
	assert.Len(t, session.Usages(), 2, "the failed selector is still recorded")
}

func TestRunner_ContinueOnError(t *testing.T) {
	driver := newFakeDriver()
	driver.failOn["text=Email"] = errors.New("detached")
	session := coverage.NewSession()
	require.NoError(t, session.Start())

	r := NewRunner(driver, session, Options{BaseURL: "https://shop.test", ContinueOnError: true})
	res, err := r.Run(context.Background(), loginFlow)
	require.NoError(t, err)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 3, res.Executed)
}

func TestRunner_RecorderErrors(t *testing.T) {
	session := coverage.NewSession()
	r := NewRunner(newFakeDriver(), session, Options{BaseURL: "https://shop.test"})
	_, err := r.Run(context.Background(), loginFlow)
	assert.ErrorIs(t, err, coverage.ErrSessionNotStarted)
}

func TestRunner_Cancelled(t *testing.T) {
	session := coverage.NewSession()
	require.NoError(t, session.Start())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(newFakeDriver(), session, Options{BaseURL: "https://shop.test"})
	_, err := r.Run(ctx, loginFlow)
	assert.ErrorIs(t, err, context.Canceled)
}
