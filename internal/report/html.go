package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/coverage"
)

// md converts Markdown with GitHub tables, strikethrough and autolinks.
var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderMarkdown converts Markdown to an HTML fragment.
func RenderMarkdown(src []byte) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return template.HTML(buf.String()), nil // goldmark drops raw HTML by default
}

var pageTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>UI Coverage Report - {{.Percentage}}%</title>
<style>
body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; margin: 2rem auto; max-width: 1100px; color: #1f2937; padding: 0 1rem; }
table { border-collapse: collapse; margin: 1rem 0; width: 100%; }
th, td { border: 1px solid #d1d5db; padding: .4rem .6rem; text-align: left; font-size: .9rem; }
th { background: #f3f4f6; }
code { background: #f3f4f6; padding: 0 .25rem; border-radius: 3px; }
.bar { background: #e5e7eb; border-radius: 6px; height: 18px; overflow: hidden; }
.bar > div { height: 100%; }
.high { background: #16a34a; } .medium { background: #f59e0b; } .low { background: #dc2626; }
</style>
</head>
<body>
<div class="bar" title="{{.Percentage}}% covered"><div class="{{.Level}}" style="width: {{.Percentage}}%"></div></div>
{{.Body}}
</body>
</html>
`))

// HTML writes r as a standalone HTML page.
func HTML(w io.Writer, r *coverage.CoverageReport) error {
	var src bytes.Buffer
	if err := Markdown(&src, r); err != nil {
		return err
	}
	body, err := RenderMarkdown(src.Bytes())
	if err != nil {
		return err
	}

	pct := r.Summary.CoveragePercentage
	return pageTemplate.Execute(w, struct {
		Percentage int
		Level      string
		Body       template.HTML
	}{pct, coverageLevel(pct), body})
}

// coverageLevel buckets a percentage with the recommendation thresholds.
func coverageLevel(pct int) string {
	switch {
	case pct >= 60:
		return "high"
	case pct >= 30:
		return "medium"
	default:
		return "low"
	}
}
