package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/coverage"
	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/snapshot"
)

func sampleReport(t *testing.T) *coverage.CoverageReport {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := coverage.NewSession(coverage.WithID("run-42"), coverage.WithClock(func() time.Time { return now }))
	require.NoError(t, s.Start())

	require.NoError(t, s.RecordPageVisit("/checkout", snapshot.Parse(`- form "Payment":
  - textbox "Card | number"
  - button "Checkout"
  - link "Back"`), "pay"))
	require.NoError(t, s.RecordSelectorUsage("pay", "text=Checkout", "click"))
	require.NoError(t, s.Finalize())

	r := s.Report(0)
	r.Commit = "0123456789abcdef"
	r.Branch = "main"
	return r
}

func TestMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, sampleReport(t)))
	out := buf.String()

	for _, want := range []string{
		"# UI Coverage Report",
		"`run-42`",
		"from `0123456789abcdef` on `main`",
		"## Summary",
		"| Coverage | **25%** (1 of 4 elements) |",
		"## Coverage by Element Type",
		"| Button |",
		"## Pages",
		"| /checkout |",
		"## Tests",
		"## Top Selectors",
		"`text=Checkout`",
		"## Uncovered Elements",
		`Card \| number`,
		"## Recommendations",
		"- **HIGH** (coverage):",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Every discovered element is covered.")
}

func TestMarkdown_FullyCovered(t *testing.T) {
	s := coverage.NewSession()
	require.NoError(t, s.Start())
	require.NoError(t, s.RecordPageVisit("/", snapshot.Parse(`- button "Go"`), "t"))
	require.NoError(t, s.RecordSelectorUsage("t", "text=Go", "click"))

	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, s.Report(0)))
	assert.Contains(t, buf.String(), "Every discovered element is covered.")
}

func TestHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, HTML(&buf, sampleReport(t)))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<title>UI Coverage Report - 25%</title>")
	assert.Contains(t, out, `<div class="low" style="width: 25%">`)
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<h2>Uncovered Elements</h2>")
}

func TestMarkdown_SelectorsKeepAngleBrackets(t *testing.T) {
	s := coverage.NewSession()
	require.NoError(t, s.Start())
	require.NoError(t, s.RecordPageVisit("/", snapshot.Parse(`- link "Home"`), "nav"))
	require.NoError(t, s.RecordSelectorUsage("nav", "nav > a.link", "click"))

	var md bytes.Buffer
	require.NoError(t, Markdown(&md, s.Report(0)))
	assert.Contains(t, md.String(), "| `nav > a.link` |")
	assert.NotContains(t, md.String(), "&gt;")

	var page bytes.Buffer
	require.NoError(t, HTML(&page, s.Report(0)))
	assert.Contains(t, page.String(), "<code>nav &gt; a.link</code>")
	assert.NotContains(t, page.String(), "&amp;gt;")
}

func TestRenderMarkdown(t *testing.T) {
	got, err := RenderMarkdown([]byte("**bold** and <script>alert(1)</script>"))
	require.NoError(t, err)
	assert.Contains(t, string(got), "<strong>bold</strong>")
	assert.NotContains(t, string(got), "<script>")
}

func TestJSON_RoundTrip(t *testing.T) {
	want := sampleReport(t)

	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, want))
	got, err := ReadJSON(&buf)
	require.NoError(t, err)

	assert.Equal(t, want.SessionID, got.SessionID)
	assert.Equal(t, want.Summary, got.Summary)
	assert.Equal(t, want.Commit, got.Commit)
	require.Len(t, got.Uncovered, len(want.Uncovered))
	assert.Equal(t, want.Uncovered[0].Element.Text, got.Uncovered[0].Element.Text)
	assert.Equal(t, want.Uncovered[0].Element.Type, got.Uncovered[0].Element.Type)
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	paths, err := WriteFiles(dir, []string{"html", "markdown", "json"}, sampleReport(t))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "coverage-report.html"),
		filepath.Join(dir, "coverage-report.md"),
		filepath.Join(dir, "coverage-report.json"),
	}, paths)

	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestWriteFiles_UnknownFormat(t *testing.T) {
	_, err := WriteFiles(t.TempDir(), []string{"pdf"}, sampleReport(t))
	assert.ErrorContains(t, err, "unknown report format: pdf")
}

func TestSummary(t *testing.T) {
	out := Summary(sampleReport(t))
	assert.Contains(t, out, "UI coverage")
	assert.Contains(t, out, "25%")
	assert.Contains(t, out, "1/4 elements")
	assert.Contains(t, out, "/checkout")
}

func TestCoverageLevel(t *testing.T) {
	assert.Equal(t, "high", coverageLevel(60))
	assert.Equal(t, "medium", coverageLevel(59))
	assert.Equal(t, "medium", coverageLevel(30))
	assert.Equal(t, "low", coverageLevel(29))
}
