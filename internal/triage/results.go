package triage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// TestResult is one failed test taken from Playwright's JSON reporter output.
type TestResult struct {
	Title   string
	File    string
	Project string
	Status  string
	Error   string
	Dirs    []string
}

// ResultIndex maps test-results directories to reporter entries.
type ResultIndex struct {
	results []*TestResult
	byDir   map[string]*TestResult
}

// LoadResults reads a Playwright JSON report. Only non-passing results are kept.
func LoadResults(path string) (*ResultIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results file: %w", err)
	}
	return ParseResults(data)
}

// ParseResults indexes a Playwright JSON report.
func ParseResults(data []byte) (*ResultIndex, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON in results file")
	}
	idx := &ResultIndex{byDir: make(map[string]*TestResult)}
	root := gjson.ParseBytes(data)
	root.Get("suites").ForEach(func(_, suite gjson.Result) bool {
		idx.walkSuite(suite, nil)
		return true
	})
	return idx, nil
}

func (idx *ResultIndex) walkSuite(suite gjson.Result, titles []string) {
	if t := suite.Get("title").String(); t != "" && !strings.HasSuffix(suite.Get("file").String(), t) {
		titles = append(titles, t)
	}
	suite.Get("specs").ForEach(func(_, spec gjson.Result) bool {
		title := strings.Join(append(append([]string{}, titles...), spec.Get("title").String()), " › ")
		file := spec.Get("file").String()
		spec.Get("tests").ForEach(func(_, test gjson.Result) bool {
			idx.addTest(test, title, file)
			return true
		})
		return true
	})
	suite.Get("suites").ForEach(func(_, child gjson.Result) bool {
		idx.walkSuite(child, titles)
		return true
	})
}

func (idx *ResultIndex) addTest(test gjson.Result, title, file string) {
	results := test.Get("results").Array()
	if len(results) == 0 {
		return
	}
	last := results[len(results)-1]
	status := last.Get("status").String()
	if status == "passed" || status == "skipped" {
		return
	}

	r := &TestResult{
		Title:   title,
		File:    file,
		Project: test.Get("projectName").String(),
		Status:  status,
		Error:   stripANSI(last.Get("error.message").String()),
	}
	for _, res := range results {
		res.Get("attachments.#.path").ForEach(func(_, p gjson.Result) bool {
			dir := filepath.Clean(filepath.Dir(p.String()))
			if _, seen := idx.byDir[dir]; !seen {
				r.Dirs = append(r.Dirs, dir)
				idx.byDir[dir] = r
			}
			return true
		})
	}
	idx.results = append(idx.results, r)
}

// Failures returns every non-passing result in report order.
func (idx *ResultIndex) Failures() []*TestResult {
	return idx.results
}

// Lookup finds the result whose attachments live in dir. Absolute and
// relative paths are compared by their trailing components.
func (idx *ResultIndex) Lookup(dir string) (*TestResult, bool) {
	if idx == nil {
		return nil, false
	}
	dir = filepath.Clean(dir)
	if r, ok := idx.byDir[dir]; ok {
		return r, true
	}
	for d, r := range idx.byDir {
		if strings.HasSuffix(d, string(filepath.Separator)+dir) || strings.HasSuffix(dir, string(filepath.Separator)+d) {
			return r, true
		}
	}
	return nil, false
}

// Annotate copies the matching reporter data onto each artifact.
func (idx *ResultIndex) Annotate(artifacts []*Artifact) int {
	matched := 0
	for _, a := range artifacts {
		r, ok := idx.Lookup(a.Dir)
		if !ok {
			continue
		}
		matched++
		a.TestName = r.Title
		if r.Project != "" {
			a.TestName += " [" + r.Project + "]"
		}
		a.Status = r.Status
		if r.Error != "" && !strings.Contains(a.ErrorText, r.Error) {
			a.ErrorText = r.Error + "\n\n" + a.ErrorText
		}
	}
	return matched
}

// FindResultsFile returns the first existing candidate.
func FindResultsFile(candidates ...string) (string, bool) {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, true
		}
	}
	return "", false
}
