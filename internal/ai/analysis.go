package ai

import (
	"encoding/json"
	"strings"
)

// Category is a failure class shared by the rule classifier and the providers.
type Category string

const (
	CategorySelectorBroken Category = "selector_broken"
	CategoryTimingFlaky    Category = "timing_flaky"
	CategoryNetworkFlaky   Category = "network_flaky"
	CategoryRealBug        Category = "real_bug"
	CategoryTestBug        Category = "test_bug"
	CategoryUnknown        Category = "unknown"
)

// Categories lists every category in reporting order.
var Categories = []Category{
	CategorySelectorBroken,
	CategoryTimingFlaky,
	CategoryNetworkFlaky,
	CategoryRealBug,
	CategoryTestBug,
	CategoryUnknown,
}

// ParseCategory normalises a model-provided category; anything unrecognised is unknown.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "-", "_"))))
	for _, known := range Categories {
		if c == known {
			return c
		}
	}
	return CategoryUnknown
}

// Verdict is the machine-readable head of a provider answer.
type Verdict struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	Summary    string   `json:"summary"`
}

// Analysis is a parsed provider answer.
type Analysis struct {
	Verdict    Verdict
	HasVerdict bool
	Markdown   string
	Raw        string
}

// ParseAnalysis splits a provider answer into its leading JSON verdict and the
// Markdown body. Answers without a usable verdict keep their whole text as
// Markdown and get the unknown category.
func ParseAnalysis(response string) *Analysis {
	a := &Analysis{
		Verdict:  Verdict{Category: CategoryUnknown},
		Markdown: strings.TrimSpace(response),
		Raw:      response,
	}

	start, end := findJSONObject(response)
	if start == -1 {
		return a
	}
	// The verdict must lead the answer, optionally inside a code fence.
	before := strings.TrimSpace(response[:start])
	fenced := strings.HasPrefix(before, "```") && !strings.Contains(before, "\n")
	if before != "" && !fenced {
		return a
	}

	var v struct {
		Category   string  `json:"category"`
		Confidence float64 `json:"confidence"`
		Summary    string  `json:"summary"`
	}
	if err := json.Unmarshal([]byte(response[start:end]), &v); err != nil {
		return a
	}

	a.HasVerdict = true
	a.Verdict = Verdict{
		Category:   ParseCategory(v.Category),
		Confidence: clamp(v.Confidence, 0, 1),
		Summary:    strings.TrimSpace(v.Summary),
	}

	after := strings.TrimSpace(response[end:])
	if fenced {
		after = strings.TrimPrefix(after, "```")
	}
	a.Markdown = strings.TrimSpace(after)
	return a
}

// findJSONObject returns the bounds of the first balanced {...} in s,
// ignoring braces inside JSON strings. start is -1 when there is none.
func findJSONObject(s string) (start, end int) {
	start = strings.Index(s, "{")
	if start == -1 {
		return -1, -1
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return start, i + 1
			}
		}
	}
	return -1, -1
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
