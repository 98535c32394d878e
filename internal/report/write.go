package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/coverage"
)

// JSON writes r as indented JSON.
func JSON(w io.Writer, r *coverage.CoverageReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// ReadJSON loads a report written by JSON.
func ReadJSON(r io.Reader) (*coverage.CoverageReport, error) {
	var rep coverage.CoverageReport
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &rep, nil
}

type renderer struct {
	file   string
	render func(io.Writer, *coverage.CoverageReport) error
}

var renderers = map[string]renderer{
	"html":     {"coverage-report.html", HTML},
	"markdown": {"coverage-report.md", Markdown},
	"json":     {"coverage-report.json", JSON},
}

// WriteFiles renders r in each format into dir and returns the written paths.
func WriteFiles(dir string, formats []string, r *coverage.CoverageReport) ([]string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create report directory %s: %w", dir, err)
	}

	var written []string
	for _, format := range formats {
		rd, ok := renderers[format]
		if !ok {
			return written, fmt.Errorf("unknown report format: %s", format)
		}
		var buf bytes.Buffer
		if err := rd.render(&buf, r); err != nil {
			return written, fmt.Errorf("failed to render %s report: %w", format, err)
		}
		path := filepath.Join(dir, rd.file)
		if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
