// Package triage finds failed Playwright tests in a results tree, asks an AI
// provider what went wrong and stitches the answers back into the HTML report.
package triage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Artifact is one failed test directory.
type Artifact struct {
	Dir          string
	TestName     string
	ErrorFile    string
	ErrorText    string
	Truncated    bool
	PageSnapshot string
	Screenshots  []string
	TracePath    string
	Status       string
}

// ResponsePath is where the AI answer for a is written.
func (a *Artifact) ResponsePath(name string) string {
	return filepath.Join(a.Dir, name)
}

// ScanOptions controls which files count as error files.
type ScanOptions struct {
	ErrorFiles    []string
	MaxErrorBytes int
}

const truncationMarker = "\n\n[... truncated]"

// Scan walks root and returns one artifact per directory holding an error file.
// When a directory has several error files, the first in ErrorFiles order wins.
func Scan(root string, opts ScanOptions) ([]*Artifact, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	byDir := make(map[string]*Artifact)
	var order []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rank := slices.Index(opts.ErrorFiles, d.Name())
		if rank < 0 {
			return nil
		}
		dir := filepath.Dir(path)
		if prev, ok := byDir[dir]; ok && slices.Index(opts.ErrorFiles, filepath.Base(prev.ErrorFile)) < rank {
			return nil
		}
		a, err := loadArtifact(path, opts.MaxErrorBytes)
		if err != nil {
			return err
		}
		if _, ok := byDir[dir]; !ok {
			order = append(order, dir)
		}
		byDir[dir] = a
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	artifacts := make([]*Artifact, 0, len(order))
	for _, dir := range order {
		artifacts = append(artifacts, byDir[dir])
	}
	return artifacts, nil
}

// LoadArtifact reads a single error file and its sibling attachments.
func LoadArtifact(errorFile string, maxErrorBytes int) (*Artifact, error) {
	return loadArtifact(errorFile, maxErrorBytes)
}

func loadArtifact(errorFile string, maxErrorBytes int) (*Artifact, error) {
	text, truncated, err := readLimited(errorFile, maxErrorBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to read error file %s: %w", errorFile, err)
	}

	dir := filepath.Dir(errorFile)
	a := &Artifact{
		Dir:          dir,
		TestName:     filepath.Base(dir),
		ErrorFile:    errorFile,
		ErrorText:    text,
		Truncated:    truncated,
		PageSnapshot: extractPageSnapshot(text),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch name := e.Name(); {
		case strings.EqualFold(filepath.Ext(name), ".png"):
			a.Screenshots = append(a.Screenshots, filepath.Join(dir, name))
		case name == "trace.zip":
			a.TracePath = filepath.Join(dir, name)
		}
	}
	return a, nil
}

func readLimited(path string, limit int) (string, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	if limit <= 0 {
		data, err := io.ReadAll(f)
		return string(data), false, err
	}
	data, err := io.ReadAll(io.LimitReader(f, int64(limit)+1))
	if err != nil && !errors.Is(err, io.EOF) {
		return "", false, err
	}
	if len(data) > limit {
		return string(data[:limit]) + truncationMarker, true, nil
	}
	return string(data), false, nil
}

// extractPageSnapshot returns the first fenced yaml block after a
// "Page snapshot" heading, which is where Playwright puts the aria snapshot.
func extractPageSnapshot(text string) string {
	idx := strings.Index(strings.ToLower(text), "# page snapshot")
	if idx < 0 {
		return ""
	}
	rest := text[idx:]
	start := strings.Index(rest, "```")
	if start < 0 {
		return ""
	}
	rest = rest[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	} else {
		return ""
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimRight(rest, "\n")
}
