package coverage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/snapshot"
)

// fakeClock returns a clock that advances one second per call.
func fakeClock() func() time.Time {
	t := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func startedSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession(WithClock(fakeClock()), WithID("session-1"))
	require.NoError(t, s.Start())
	return s
}

func TestSession_Lifecycle(t *testing.T) {
	s := NewSession()
	assert.Equal(t, StateUninitialized, s.State())

	assert.ErrorIs(t, s.RecordSelectorUsage("t", "#a", "click"), ErrSessionNotStarted)
	assert.ErrorIs(t, s.RecordPageVisit("/", nil, "t"), ErrSessionNotStarted)
	assert.ErrorIs(t, s.Finalize(), ErrSessionNotStarted)

	require.NoError(t, s.Start())
	assert.Equal(t, StateActive, s.State())
	assert.NotEmpty(t, s.ID())
	require.NoError(t, s.RecordSelectorUsage("t", "#a", "click"))

	require.NoError(t, s.Finalize())
	assert.Equal(t, StateFinalized, s.State())
	require.NoError(t, s.Finalize(), "finalize is idempotent")

	assert.ErrorIs(t, s.RecordSelectorUsage("t", "#b", "click"), ErrSessionFinalized)
	assert.ErrorIs(t, s.RecordPageVisit("/", nil, "t"), ErrSessionFinalized)
	assert.ErrorIs(t, s.Start(), ErrSessionFinalized)

	assert.Len(t, s.Usages(), 1, "rejected mutations leave state untouched")
	report := s.Report(0)
	assert.Equal(t, "finalized", report.State)
	assert.False(t, report.FinishedAt.IsZero())
}

func TestSession_StartResetsState(t *testing.T) {
	s := startedSession(t)
	require.NoError(t, s.RecordSelectorUsage("t", "#a", "click"))
	require.NoError(t, s.Start())
	assert.Empty(t, s.Usages())
	assert.Empty(t, s.Pages())
	assert.Equal(t, "session-1", s.ID())
}

func TestSession_RecordPageVisit_ReplaceIfLarger(t *testing.T) {
	small := "- button \"One\"\n- button \"Two\"\n- link \"Three\"\n- link \"Four\"\n- textbox \"Five\""
	large := small + "\n- heading \"Six\"\n- img \"Seven\"\n- text: Eight"

	s := startedSession(t)
	require.NoError(t, s.RecordPageVisit("/home", snapshot.Parse(small), "first test"))
	require.NoError(t, s.RecordPageVisit("/home", snapshot.Parse(large), "second test"))

	pages := s.Pages()
	require.Len(t, pages, 1)
	page := pages[0]
	assert.Len(t, page.Elements, 8)
	assert.True(t, page.VisitedBy["first test"])
	assert.True(t, page.VisitedBy["second test"])
	assert.Equal(t, 2, page.TotalVisits)

	// A smaller later visit never shrinks the stored list.
	require.NoError(t, s.RecordPageVisit("/home", snapshot.Parse(small), "third test"))
	assert.Len(t, s.Pages()[0].Elements, 8)
	assert.Equal(t, 3, s.Pages()[0].TotalVisits)
}

func TestSession_RecordPageVisit_KeepsIdenticalSiblings(t *testing.T) {
	table := "- table:\n  - row:\n    - button \"Edit\"\n  - row:\n    - button \"Edit\"\n- link \"Docs\":\n  - /url: /docs"
	elements := snapshot.Parse(table)
	require.Len(t, elements, 3)

	s := startedSession(t)
	require.NoError(t, s.RecordPageVisit("/admin", elements, "admin"))
	assert.Len(t, s.Pages()[0].Elements, 3)

	// Revisiting the same page does not duplicate either button.
	require.NoError(t, s.RecordPageVisit("/admin", snapshot.Parse(table), "admin"))
	assert.Len(t, s.Pages()[0].Elements, 3)
	assert.Equal(t, 3, s.Summary().TotalElements)
}

func TestSession_MissingKeysAreCreated(t *testing.T) {
	s := startedSession(t)
	require.NoError(t, s.RecordSelectorUsage("never visited", "#a", "click"))
	require.NoError(t, s.RecordPageVisit("/empty", nil, "other"))

	tests := s.TestEntries()
	require.Len(t, tests, 2)
	assert.Equal(t, "never visited", tests[0].Name)
	assert.Empty(t, tests[0].Pages)
	assert.Equal(t, []string{"/empty"}, tests[1].Pages)
}

func TestSession_RecordSelectorUsage(t *testing.T) {
	s := startedSession(t)
	require.NoError(t, s.RecordSelectorUsage("t", "#a", "click"))
	require.NoError(t, s.RecordSelectorUsage("t", "#a", "fill"))
	require.NoError(t, s.RecordSelectorUsage("t", ".b", "locator"))

	usages := s.Usages()
	require.Len(t, usages, 3)
	assert.True(t, usages[0].Timestamp.Before(usages[1].Timestamp))
	assert.Equal(t, []string{"#a", ".b"}, s.TestEntries()[0].DistinctSelectors())

	stamped := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordUsage(SelectorUsage{TestName: "t", Selector: "#c", Method: "click", Timestamp: stamped}))
	assert.Equal(t, stamped, s.Usages()[3].Timestamp)
}

func TestSession_Merge(t *testing.T) {
	worker1 := startedSession(t)
	require.NoError(t, worker1.RecordPageVisit("/login", snapshot.Parse("- button \"Sign in\""), "login"))
	require.NoError(t, worker1.RecordSelectorUsage("login", "text=Sign in", "click"))

	worker2 := startedSession(t)
	require.NoError(t, worker2.RecordPageVisit("/login", snapshot.Parse("- button \"Sign in\"\n- link \"Help\""), "help"))
	require.NoError(t, worker2.RecordPageVisit("/docs", snapshot.Parse("- heading \"Docs\""), "help"))
	require.NoError(t, worker2.RecordSelectorUsage("help", "text=Help", "click"))
	require.NoError(t, worker2.Finalize())

	total := startedSession(t)
	require.NoError(t, total.Merge(worker1))
	require.NoError(t, total.Merge(worker2))

	pages := total.Pages()
	require.Len(t, pages, 2)
	assert.Equal(t, "/login", pages[0].ID)
	assert.Len(t, pages[0].Elements, 2)
	assert.Equal(t, 2, pages[0].TotalVisits)
	assert.Len(t, total.Usages(), 2)

	sum := total.Summary()
	assert.Equal(t, 3, sum.TotalElements)
	assert.Equal(t, 2, sum.CoveredElements)

	assert.Error(t, total.Merge(total))
	assert.ErrorIs(t, total.Merge(NewSession()), ErrSessionNotStarted)
	require.NoError(t, total.Finalize())
	assert.ErrorIs(t, total.Merge(worker1), ErrSessionFinalized)
}
