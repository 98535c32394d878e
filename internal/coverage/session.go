// Package coverage records which page elements tests exercised and derives
// coverage statistics from those records.
//
// A Session owns every element and selector record of one test run. Create
// it with NewSession, Start it, feed it page visits and selector usages, then
// Finalize it and build a Report. A Session is not safe for concurrent use;
// aggregate parallel workers with one Session each and Merge them at the end.
package coverage

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/snapshot"
)

var (
	// ErrSessionNotStarted is returned when recording into a session before Start.
	ErrSessionNotStarted = errors.New("coverage session not started")
	// ErrSessionFinalized is returned when recording into a finalized session.
	ErrSessionFinalized = errors.New("coverage session finalized")
)

// State is the session lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateActive
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateFinalized:
		return "finalized"
	default:
		return "uninitialized"
	}
}

// SelectorUsage is one tracked interaction. It is never modified after creation.
type SelectorUsage struct {
	TestName  string    `json:"testName"`
	Selector  string    `json:"selector"`
	Method    string    `json:"method"`
	Timestamp time.Time `json:"timestamp"`
}

// PageEntry aggregates everything discovered on one page.
type PageEntry struct {
	ID          string
	Elements    []*snapshot.ElementRecord
	VisitedBy   map[string]bool
	TotalVisits int

	keys map[string]bool
}

// TestEntry is the per-test interaction history.
type TestEntry struct {
	Name   string
	Usages []SelectorUsage
	Pages  []string

	distinct []string
	seen     map[string]bool
}

// DistinctSelectors returns the selectors the test used, in first-use order.
func (t *TestEntry) DistinctSelectors() []string {
	return t.distinct
}

// Session is one test run's worth of coverage state.
type Session struct {
	id         string
	state      State
	now        func() time.Time
	startedAt  time.Time
	finishedAt time.Time

	pages     map[string]*PageEntry
	pageOrder []string
	tests     map[string]*TestEntry
	testOrder []string
	usages    []SelectorUsage
}

// Option configures a Session.
type Option func(*Session)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithID fixes the session ID instead of generating one.
func WithID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

// NewSession creates an uninitialized session.
func NewSession(opts ...Option) *Session {
	s := &Session{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start moves the session to Active with fresh, empty maps.
func (s *Session) Start() error {
	if s.state == StateFinalized {
		return ErrSessionFinalized
	}
	if s.id == "" {
		s.id = uuid.New().String()
	}
	s.state = StateActive
	s.startedAt = s.now()
	s.pages = make(map[string]*PageEntry)
	s.pageOrder = nil
	s.tests = make(map[string]*TestEntry)
	s.testOrder = nil
	s.usages = nil
	return nil
}

// Finalize freezes the session. Later mutations return ErrSessionFinalized.
func (s *Session) Finalize() error {
	switch s.state {
	case StateUninitialized:
		return ErrSessionNotStarted
	case StateFinalized:
		return nil
	}
	s.state = StateFinalized
	s.finishedAt = s.now()
	return nil
}

// ID returns the session identifier, empty until Start.
func (s *Session) ID() string { return s.id }

// State returns the lifecycle state.
func (s *Session) State() State { return s.state }

func (s *Session) checkActive() error {
	switch s.state {
	case StateUninitialized:
		return ErrSessionNotStarted
	case StateFinalized:
		return ErrSessionFinalized
	}
	return nil
}

// RecordPageVisit unions elements into the page's element list, marks the
// page visited by testName and counts the visit. The stored list never shrinks.
func (s *Session) RecordPageVisit(pageID string, elements []*snapshot.ElementRecord, testName string) error {
	if err := s.checkActive(); err != nil {
		return err
	}
	page := s.page(pageID)
	page.addElements(elements)
	page.VisitedBy[testName] = true
	page.TotalVisits++

	test := s.test(testName)
	if !slices.Contains(test.Pages, pageID) {
		test.Pages = append(test.Pages, pageID)
	}
	return nil
}

// RecordSelectorUsage appends a usage stamped with the session clock.
func (s *Session) RecordSelectorUsage(testName, selector, method string) error {
	return s.RecordUsage(SelectorUsage{
		TestName:  testName,
		Selector:  selector,
		Method:    method,
		Timestamp: s.now(),
	})
}

// RecordUsage appends a usage that already carries its timestamp.
func (s *Session) RecordUsage(u SelectorUsage) error {
	if err := s.checkActive(); err != nil {
		return err
	}
	if u.Timestamp.IsZero() {
		u.Timestamp = s.now()
	}
	s.usages = append(s.usages, u)
	s.test(u.TestName).addUsage(u)
	return nil
}

// Merge folds other into s. s must be active; other is left untouched.
func (s *Session) Merge(other *Session) error {
	if err := s.checkActive(); err != nil {
		return err
	}
	if other == s {
		return fmt.Errorf("cannot merge session %s into itself", s.id)
	}
	if other.state == StateUninitialized {
		return fmt.Errorf("merge source: %w", ErrSessionNotStarted)
	}

	for _, id := range other.pageOrder {
		src := other.pages[id]
		dst := s.page(id)
		dst.addElements(src.Elements)
		for test := range src.VisitedBy {
			dst.VisitedBy[test] = true
		}
		dst.TotalVisits += src.TotalVisits
	}
	for _, name := range other.testOrder {
		src := other.tests[name]
		dst := s.test(name)
		for _, u := range src.Usages {
			dst.addUsage(u)
		}
		for _, p := range src.Pages {
			if !slices.Contains(dst.Pages, p) {
				dst.Pages = append(dst.Pages, p)
			}
		}
	}
	s.usages = append(s.usages, other.usages...)
	return nil
}

// Pages returns the page entries in first-visit order.
func (s *Session) Pages() []*PageEntry {
	pages := make([]*PageEntry, 0, len(s.pageOrder))
	for _, id := range s.pageOrder {
		pages = append(pages, s.pages[id])
	}
	return pages
}

// TestEntries returns the per-test histories in first-seen order.
func (s *Session) TestEntries() []*TestEntry {
	tests := make([]*TestEntry, 0, len(s.testOrder))
	for _, name := range s.testOrder {
		tests = append(tests, s.tests[name])
	}
	return tests
}

// Usages returns every recorded usage in recording order.
func (s *Session) Usages() []SelectorUsage {
	return s.usages
}

// selectorsForPage returns the distinct selectors of every test that visited the page.
func (s *Session) selectorsForPage(page *PageEntry) []string {
	var selectors []string
	seen := make(map[string]bool)
	for _, name := range s.testOrder {
		if !page.VisitedBy[name] {
			continue
		}
		for _, sel := range s.tests[name].distinct {
			if !seen[sel] {
				seen[sel] = true
				selectors = append(selectors, sel)
			}
		}
	}
	return selectors
}

func (s *Session) page(id string) *PageEntry {
	if p, ok := s.pages[id]; ok {
		return p
	}
	p := &PageEntry{
		ID:        id,
		VisitedBy: make(map[string]bool),
		keys:      make(map[string]bool),
	}
	s.pages[id] = p
	s.pageOrder = append(s.pageOrder, id)
	return p
}

func (s *Session) test(name string) *TestEntry {
	if t, ok := s.tests[name]; ok {
		return t
	}
	t := &TestEntry{Name: name, seen: make(map[string]bool)}
	s.tests[name] = t
	s.testOrder = append(s.testOrder, name)
	return t
}

// addElements keys each element by identity plus its occurrence within
// elements, so identical siblings of one visit are kept while a repeat visit
// of the same page collapses onto the stored entries.
func (p *PageEntry) addElements(elements []*snapshot.ElementRecord) {
	occurrences := make(map[string]int)
	for _, el := range elements {
		if el == nil {
			continue
		}
		base := elementKey(el)
		key := base + "\x1f" + strconv.Itoa(occurrences[base])
		occurrences[base]++
		if p.keys[key] {
			continue
		}
		p.keys[key] = true
		p.Elements = append(p.Elements, el)
	}
}

func (t *TestEntry) addUsage(u SelectorUsage) {
	t.Usages = append(t.Usages, u)
	if !t.seen[u.Selector] {
		t.seen[u.Selector] = true
		t.distinct = append(t.distinct, u.Selector)
	}
}

// elementKey identifies an element across visits of the same page.
func elementKey(el *snapshot.ElementRecord) string {
	return strings.Join([]string{
		el.Type.String(), el.Path, el.ID, el.ClassName, el.TagName, el.Role, el.AriaLabel, el.Href,
	}, "\x1f")
}

