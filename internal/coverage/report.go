package coverage

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/snapshot"
)

// Priority weights for uncovered elements. Report parity depends on them.
const (
	priorityBase         = 1
	priorityInteractable = 5
	priorityText         = 3
	priorityVisible      = 2
	priorityID           = 2
	priorityAriaLabel    = 2
	priorityRole         = 1
)

// Suggestion and recommendation thresholds.
const (
	maxSuggestedSelectors  = 4
	maxTextSelectorLength  = 50
	minClassSelectorLength = 3

	lowCoverageThreshold      = 30
	moderateCoverageThreshold = 60
	criticalPriority          = 8
	minDistinctSelectors      = 3
)

// Recommendation priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Summary holds the headline numbers of a report.
type Summary struct {
	TotalPages          int `json:"totalPages"`
	TotalTests          int `json:"totalTests"`
	TotalInteractions   int `json:"totalInteractions"`
	UniqueSelectors     int `json:"uniqueSelectors"`
	TotalElements       int `json:"totalElements"`
	CoveredElements     int `json:"coveredElements"`
	UncoveredElements   int `json:"uncoveredElements"`
	CoveragePercentage  int `json:"coveragePercentage"`
	InteractiveElements int `json:"interactiveElements"`
	CoveredInteractive  int `json:"coveredInteractive"`
	CriticalElements    int `json:"criticalElements"`
	CoveredCritical     int `json:"coveredCritical"`
}

// Stats is a total/covered breakdown for one group of elements.
type Stats struct {
	Total      int `json:"total"`
	Covered    int `json:"covered"`
	Uncovered  int `json:"uncovered"`
	Percentage int `json:"percentage"`
}

// TypeStats is the breakdown for one element type.
type TypeStats struct {
	Type snapshot.ElementType `json:"type"`
	Stats
}

// PageStats is the breakdown for one page.
type PageStats struct {
	PageID      string   `json:"pageId"`
	VisitedBy   []string `json:"visitedBy"`
	TotalVisits int      `json:"totalVisits"`
	Stats
}

// TestStats summarises one test's interactions.
type TestStats struct {
	Name              string         `json:"name"`
	PagesVisited      []string       `json:"pagesVisited"`
	Interactions      int            `json:"interactions"`
	DistinctSelectors int            `json:"distinctSelectors"`
	Methods           map[string]int `json:"methods"`
	ElementsCovered   int            `json:"elementsCovered"`
}

// SelectorStats summarises one selector across tests.
type SelectorStats struct {
	Selector        string   `json:"selector"`
	Uses            int      `json:"uses"`
	Tests           []string `json:"tests"`
	Methods         []string `json:"methods"`
	ElementsMatched int      `json:"elementsMatched"`
}

// UncoveredElement is an element no recorded selector matched.
type UncoveredElement struct {
	PageID             string                  `json:"pageId"`
	Element            *snapshot.ElementRecord `json:"element"`
	SuggestedSelectors []string                `json:"suggestedSelectors"`
	Priority           int                     `json:"priority"`
}

// Recommendation is a rule-based hint for improving coverage.
type Recommendation struct {
	Priority string   `json:"priority"`
	Category string   `json:"category"`
	Message  string   `json:"message"`
	Details  []string `json:"details,omitempty"`
}

// CoverageReport is a read-only projection of a session for renderers.
type CoverageReport struct {
	SessionID       string             `json:"sessionId"`
	State           string             `json:"state"`
	StartedAt       time.Time          `json:"startedAt"`
	FinishedAt      time.Time          `json:"finishedAt,omitzero"`
	GeneratedAt     time.Time          `json:"generatedAt"`
	Commit          string             `json:"commit,omitempty"`
	Branch          string             `json:"branch,omitempty"`
	Summary         Summary            `json:"summary"`
	ByType          []TypeStats        `json:"byType"`
	Pages           []PageStats        `json:"pages"`
	Tests           []TestStats        `json:"tests"`
	Selectors       []SelectorStats    `json:"selectors"`
	Uncovered       []UncoveredElement `json:"uncoveredElements"`
	Recommendations []Recommendation   `json:"recommendations"`
}

// elementCoverage is the per-element evaluation every projection is built from.
type elementCoverage struct {
	page      *PageEntry
	element   *snapshot.ElementRecord
	coveredBy []string
}

func (e elementCoverage) covered() bool { return len(e.coveredBy) > 0 }

// evaluate matches every page element against the selectors of the tests
// that visited that page, in discovery order.
func (s *Session) evaluate() []elementCoverage {
	var result []elementCoverage
	for _, page := range s.Pages() {
		selectors := s.selectorsForPage(page)
		for _, el := range page.Elements {
			_, coveredBy := IsElementCovered(el, selectors)
			result = append(result, elementCoverage{page: page, element: el, coveredBy: coveredBy})
		}
	}
	return result
}

// Percentage is round(covered/total*100), or 0 when total is 0.
func Percentage(covered, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(covered) / float64(total) * 100))
}

func newStats(total, covered int) Stats {
	return Stats{Total: total, Covered: covered, Uncovered: total - covered, Percentage: Percentage(covered, total)}
}

// Summary computes the headline numbers.
func (s *Session) Summary() Summary {
	return s.summary(s.evaluate())
}

func (s *Session) summary(evals []elementCoverage) Summary {
	sum := Summary{
		TotalPages:        len(s.pageOrder),
		TotalTests:        len(s.testOrder),
		TotalInteractions: len(s.usages),
		UniqueSelectors:   len(s.distinctSelectors()),
	}
	for _, e := range evals {
		sum.TotalElements++
		if e.covered() {
			sum.CoveredElements++
		}
		if e.element.Interactable {
			sum.InteractiveElements++
			if e.covered() {
				sum.CoveredInteractive++
			}
		}
		if e.element.Critical {
			sum.CriticalElements++
			if e.covered() {
				sum.CoveredCritical++
			}
		}
	}
	sum.UncoveredElements = sum.TotalElements - sum.CoveredElements
	sum.CoveragePercentage = Percentage(sum.CoveredElements, sum.TotalElements)
	return sum
}

// Uncovered returns the elements no selector matched, highest priority first.
// Equal priorities keep discovery order. limit <= 0 returns all of them.
func (s *Session) Uncovered(limit int) []UncoveredElement {
	return uncovered(s.evaluate(), limit)
}

func uncovered(evals []elementCoverage, limit int) []UncoveredElement {
	result := []UncoveredElement{}
	for _, e := range evals {
		if e.covered() {
			continue
		}
		result = append(result, UncoveredElement{
			PageID:             e.page.ID,
			Element:            e.element,
			SuggestedSelectors: SuggestedSelectors(e.element),
			Priority:           ElementPriority(e.element),
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Priority > result[j].Priority
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// ElementPriority scores how important it is to cover el.
func ElementPriority(el *snapshot.ElementRecord) int {
	p := priorityBase
	switch el.Type {
	case snapshot.ElementButton, snapshot.ElementLink, snapshot.ElementInput:
		p += priorityInteractable
	}
	if el.Text != "" {
		p += priorityText
	}
	if el.Visible {
		p += priorityVisible
	}
	if el.ID != "" {
		p += priorityID
	}
	if el.AriaLabel != "" {
		p += priorityAriaLabel
	}
	if el.Role != "" {
		p += priorityRole
	}
	return p
}

// SuggestedSelectors proposes up to four selectors for el, most specific first.
func SuggestedSelectors(el *snapshot.ElementRecord) []string {
	var out []string
	if el.ID != "" {
		out = append(out, "#"+el.ID)
	}
	if el.Text != "" && utf8.RuneCountInString(el.Text) < maxTextSelectorLength {
		out = append(out, fmt.Sprintf(`text="%s"`, el.Text))
	}
	if el.AriaLabel != "" {
		out = append(out, fmt.Sprintf(`[aria-label="%s"]`, el.AriaLabel))
	}
	for _, class := range el.Classes() {
		if len(class) >= minClassSelectorLength {
			out = append(out, "."+class)
			break
		}
	}
	if el.Role != "" {
		out = append(out, fmt.Sprintf(`[role="%s"]`, el.Role))
	}
	if el.TagName != "" {
		out = append(out, strings.ToLower(el.TagName))
	}
	if len(out) > maxSuggestedSelectors {
		out = out[:maxSuggestedSelectors]
	}
	return out
}

// ByType groups coverage by element type, in AllElementTypes order, omitting empty types.
func (s *Session) ByType() []TypeStats {
	return byType(s.evaluate())
}

func byType(evals []elementCoverage) []TypeStats {
	totals := make(map[snapshot.ElementType]int)
	covered := make(map[snapshot.ElementType]int)
	for _, e := range evals {
		totals[e.element.Type]++
		if e.covered() {
			covered[e.element.Type]++
		}
	}
	result := []TypeStats{}
	for _, t := range snapshot.AllElementTypes {
		if totals[t] == 0 {
			continue
		}
		result = append(result, TypeStats{Type: t, Stats: newStats(totals[t], covered[t])})
	}
	return result
}

// ByPage groups coverage by page, in first-visit order.
func (s *Session) ByPage() []PageStats {
	return s.byPage(s.evaluate())
}

func (s *Session) byPage(evals []elementCoverage) []PageStats {
	covered := make(map[string]int)
	for _, e := range evals {
		if e.covered() {
			covered[e.page.ID]++
		}
	}
	result := []PageStats{}
	for _, page := range s.Pages() {
		result = append(result, PageStats{
			PageID:      page.ID,
			VisitedBy:   s.orderedTests(page.VisitedBy),
			TotalVisits: page.TotalVisits,
			Stats:       newStats(len(page.Elements), covered[page.ID]),
		})
	}
	return result
}

// Tests summarises each test's interactions, in first-seen order.
func (s *Session) Tests() []TestStats {
	result := []TestStats{}
	for _, test := range s.TestEntries() {
		methods := make(map[string]int)
		for _, u := range test.Usages {
			methods[u.Method]++
		}
		coveredCount := 0
		for _, pageID := range test.Pages {
			for _, el := range s.pages[pageID].Elements {
				if ok, _ := IsElementCovered(el, test.distinct); ok {
					coveredCount++
				}
			}
		}
		result = append(result, TestStats{
			Name:              test.Name,
			PagesVisited:      append([]string{}, test.Pages...),
			Interactions:      len(test.Usages),
			DistinctSelectors: len(test.distinct),
			Methods:           methods,
			ElementsCovered:   coveredCount,
		})
	}
	return result
}

// Selectors summarises each distinct selector, most used first.
func (s *Session) Selectors() []SelectorStats {
	index := make(map[string]int)
	result := []SelectorStats{}
	for _, u := range s.usages {
		i, ok := index[u.Selector]
		if !ok {
			i = len(result)
			index[u.Selector] = i
			result = append(result, SelectorStats{Selector: u.Selector})
		}
		st := &result[i]
		st.Uses++
		if !slices.Contains(st.Tests, u.TestName) {
			st.Tests = append(st.Tests, u.TestName)
		}
		if !slices.Contains(st.Methods, u.Method) {
			st.Methods = append(st.Methods, u.Method)
		}
	}
	for i := range result {
		for _, page := range s.Pages() {
			for _, el := range page.Elements {
				if Matches(result[i].Selector, el) {
					result[i].ElementsMatched++
				}
			}
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Uses > result[j].Uses
	})
	return result
}

// Recommendations derives rule-based hints from the current state.
func (s *Session) Recommendations() []Recommendation {
	evals := s.evaluate()
	return s.recommendations(s.summary(evals), uncovered(evals, 0))
}

func (s *Session) recommendations(sum Summary, missing []UncoveredElement) []Recommendation {
	var recs []Recommendation

	pct := sum.CoveragePercentage
	switch {
	case pct < lowCoverageThreshold:
		recs = append(recs, Recommendation{
			Priority: PriorityHigh,
			Category: "coverage",
			Message:  fmt.Sprintf("Very low coverage (%d%%): add tests that exercise the main user flows.", pct),
		})
	case pct < moderateCoverageThreshold:
		recs = append(recs, Recommendation{
			Priority: PriorityMedium,
			Category: "coverage",
			Message:  fmt.Sprintf("Moderate coverage (%d%%): extend tests to the remaining interactive elements.", pct),
		})
	default:
		recs = append(recs, Recommendation{
			Priority: PriorityLow,
			Category: "coverage",
			Message:  fmt.Sprintf("Good coverage (%d%%): keep new UI covered as it is added.", pct),
		})
	}

	var critical []string
	for _, u := range missing {
		if u.Priority > criticalPriority {
			critical = append(critical, fmt.Sprintf("%s (%s on %s)", u.Element.Label(), u.Element.Type, u.PageID))
		}
	}
	if len(critical) > 0 {
		recs = append(recs, Recommendation{
			Priority: PriorityHigh,
			Category: "critical-elements",
			Message:  fmt.Sprintf("%d critical elements are not covered by any test.", len(critical)),
			Details:  critical,
		})
	}

	var lowUsage []string
	for _, test := range s.TestEntries() {
		if len(test.distinct) < minDistinctSelectors {
			lowUsage = append(lowUsage, fmt.Sprintf("%s (%d selectors)", test.Name, len(test.distinct)))
		}
	}
	if len(lowUsage) > 0 {
		recs = append(recs, Recommendation{
			Priority: PriorityMedium,
			Category: "selector-usage",
			Message:  fmt.Sprintf("%d tests use fewer than %d distinct selectors.", len(lowUsage), minDistinctSelectors),
			Details:  lowUsage,
		})
	}
	return recs
}

// Report builds the full projection. uncoveredLimit caps the uncovered list (<= 0 for all).
func (s *Session) Report(uncoveredLimit int) *CoverageReport {
	evals := s.evaluate()
	sum := s.summary(evals)
	allMissing := uncovered(evals, 0)
	missing := allMissing
	if uncoveredLimit > 0 && len(missing) > uncoveredLimit {
		missing = missing[:uncoveredLimit]
	}
	return &CoverageReport{
		SessionID:       s.id,
		State:           s.state.String(),
		StartedAt:       s.startedAt,
		FinishedAt:      s.finishedAt,
		GeneratedAt:     s.now(),
		Summary:         sum,
		ByType:          byType(evals),
		Pages:           s.byPage(evals),
		Tests:           s.Tests(),
		Selectors:       s.Selectors(),
		Uncovered:       missing,
		Recommendations: s.recommendations(sum, allMissing),
	}
}

func (s *Session) distinctSelectors() []string {
	var out []string
	seen := make(map[string]bool)
	for _, u := range s.usages {
		if !seen[u.Selector] {
			seen[u.Selector] = true
			out = append(out, u.Selector)
		}
	}
	return out
}

func (s *Session) orderedTests(set map[string]bool) []string {
	out := []string{}
	for _, name := range s.testOrder {
		if set[name] {
			out = append(out, name)
		}
	}
	return out
}
