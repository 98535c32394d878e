package triage

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/ai"
	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/coverage"
	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/snapshot"
)

// Classification is the rule-based verdict computed before any AI call.
type Classification struct {
	Category   ai.Category
	Confidence float64
	Evidence   []string
}

type classificationRule struct {
	match      func(string) bool
	category   ai.Category
	confidence float64
	evidence   func(string) []string
}

var (
	ansiPattern     = regexp.MustCompile(`\x1b\[[0-9;]*m`)
	locatorPattern  = regexp.MustCompile(`(?:locator|selector)\(?\s*['"]([^'"]+)['"]`)
	waitingLocator  = regexp.MustCompile(`waiting for (?:locator|getBy\w+|selector)`)
	networkPattern  = regexp.MustCompile(`net::ERR_[A-Z_]+|ECONNREFUSED|ECONNRESET|ENOTFOUND|socket hang up`)
	assertionSignal = regexp.MustCompile(`expect\(.*\)\.(?:not\.)?to[A-Z]\w*|Expected(?: value)?:`)
)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func locatorIn(msg string) string {
	if m := locatorPattern.FindStringSubmatch(msg); m != nil {
		return m[1]
	}
	return ""
}

// classificationRules is evaluated in order; the first match wins.
var classificationRules = []classificationRule{
	{
		match: func(msg string) bool {
			return strings.Contains(msg, "strict mode violation")
		},
		category:   ai.CategorySelectorBroken,
		confidence: 0.9,
		evidence: func(msg string) []string {
			return []string{"Locator resolved to more than one element (strict mode violation)"}
		},
	},
	{
		match: func(msg string) bool {
			return waitingLocator.MatchString(msg) && locatorIn(msg) != "" &&
				(strings.Contains(msg, "Timeout") || strings.Contains(msg, "not found"))
		},
		category:   ai.CategorySelectorBroken,
		confidence: 0.85,
		evidence: func(msg string) []string {
			return []string{
				fmt.Sprintf("Locator '%s' never resolved", locatorIn(msg)),
				"Error pattern matches 'Timeout waiting for locator'",
			}
		},
	},
	{
		match: func(msg string) bool {
			return networkPattern.MatchString(msg)
		},
		category:   ai.CategoryNetworkFlaky,
		confidence: 0.85,
		evidence: func(msg string) []string {
			return []string{"Network error detected: " + networkPattern.FindString(msg)}
		},
	},
	{
		match: func(msg string) bool {
			return strings.Contains(msg, "not attached to the DOM") || strings.Contains(msg, "element is not stable") ||
				strings.Contains(msg, "detached from the DOM")
		},
		category:   ai.CategoryTimingFlaky,
		confidence: 0.8,
		evidence: func(_ string) []string {
			return []string{"Element detached or moving during the action"}
		},
	},
	{
		match: func(msg string) bool {
			lower := strings.ToLower(msg)
			return strings.Contains(lower, "timeout") && strings.Contains(lower, "exceeded")
		},
		category:   ai.CategoryTimingFlaky,
		confidence: 0.7,
		evidence: func(_ string) []string {
			return []string{"Action or test timeout exceeded"}
		},
	},
	{
		match: func(msg string) bool {
			return strings.Contains(msg, "outside of the viewport") || strings.Contains(msg, "intercepts pointer events") ||
				strings.Contains(msg, "is not visible")
		},
		category:   ai.CategoryTestBug,
		confidence: 0.75,
		evidence: func(_ string) []string {
			return []string{"Element is hidden, covered or outside the viewport"}
		},
	},
	{
		match: func(msg string) bool {
			return assertionSignal.MatchString(msg)
		},
		category:   ai.CategoryRealBug,
		confidence: 0.7,
		evidence: func(_ string) []string {
			return []string{"Assertion failure: actual value differs from expected"}
		},
	},
}

// Classify pre-classifies an error message.
func Classify(errorText string) Classification {
	msg := stripANSI(errorText)
	for _, rule := range classificationRules {
		if rule.match(msg) {
			return Classification{Category: rule.category, Confidence: rule.confidence, Evidence: rule.evidence(msg)}
		}
	}
	return Classification{Category: ai.CategoryUnknown, Confidence: 0.3, Evidence: []string{"Error pattern not recognized"}}
}

// maxHints caps the alternative selectors offered for a broken locator.
const maxHints = 5

// SelectorHints lists selectors for interactive elements in the page
// snapshot, for failures whose locator did not resolve.
func SelectorHints(pageSnapshot string) []string {
	if pageSnapshot == "" {
		return nil
	}
	var hints []string
	for _, el := range snapshot.Parse(pageSnapshot) {
		if !el.Interactable {
			continue
		}
		sels := coverage.SuggestedSelectors(el)
		if len(sels) == 0 {
			continue
		}
		hints = append(hints, fmt.Sprintf("%s %q: %s", el.Type, el.Label(), sels[0]))
		if len(hints) == maxHints {
			break
		}
	}
	return hints
}
