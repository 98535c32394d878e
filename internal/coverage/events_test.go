package coverage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/snapshot"
)

const eventLog = `{"type":"visit","test":"login","page":"/login","snapshot":"- form \"Login\":\n  - textbox \"Email\"\n  - button \"Sign in\""}
{"type":"selector","test":"login","selector":"text=Email","method":"fill","timestamp":"2026-03-01T10:00:00Z"}

{"type":"selector","test":"login","selector":"#submit","method":"click"}
{"type":"visit","test":"checkout","page":"/cart","html":"<main><button id=\"submit\">Checkout</button><a href=\"/\">Back</a></main>"}
{"type":"visit","test":"checkout","page":"/done","elements":[{"type":"heading","text":"Thanks"},{"type":"button","text":"Continue","id":"next"}]}
{"type":"selector","test":"checkout","selector":"#next","method":"click"}
{"type":"screenshot","test":"checkout","path":"a.png"}
`

func TestLoadEvents(t *testing.T) {
	s := startedSession(t)
	stats, err := LoadEvents(strings.NewReader(eventLog), s)
	require.NoError(t, err)
	assert.Equal(t, LoadStats{Visits: 3, Selectors: 3, Skipped: 1}, stats)

	pages := s.Pages()
	require.Len(t, pages, 3)
	assert.Len(t, pages[0].Elements, 3, "snapshot visit")
	assert.Len(t, pages[1].Elements, 3, "html visit")
	assert.Len(t, pages[2].Elements, 2, "pre-extracted visit")

	done := pages[2].Elements
	assert.Equal(t, "Continue", done[1].Path, "pre-extracted records get derived fields")
	assert.True(t, done[1].Interactable)

	usages := s.Usages()
	require.Len(t, usages, 3)
	assert.Equal(t, 2026, usages[0].Timestamp.Year())
	assert.False(t, usages[1].Timestamp.IsZero(), "missing timestamps come from the session clock")

	sum := s.Summary()
	assert.Equal(t, 8, sum.TotalElements)
	// Email on /login and Continue on /done; #submit was used by the login test only.
	assert.Equal(t, 2, sum.CoveredElements)
}

func TestLoadEvents_Malformed(t *testing.T) {
	s := startedSession(t)
	log := `{"type":"selector","test":"a","selector":"#a","method":"click"}
{"type":"selector",`
	stats, err := LoadEvents(strings.NewReader(log), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Equal(t, 1, stats.Selectors)
}

func TestLoadEvents_InactiveSession(t *testing.T) {
	_, err := LoadEvents(strings.NewReader(`{"type":"selector","test":"a","selector":"#a"}`), NewSession())
	assert.ErrorIs(t, err, ErrSessionNotStarted)
}

func TestLoadEventFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coverage.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(eventLog), 0o600))

	s, stats, err := LoadEventFile(path, WithID("from-file"))
	require.NoError(t, err)
	assert.Equal(t, "from-file", s.ID())
	assert.Equal(t, StateActive, s.State())
	assert.Equal(t, 3, stats.Visits)

	_, _, err = LoadEventFile(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}

func TestEventWriter_Replays(t *testing.T) {
	s := startedSession(t)
	var log bytes.Buffer
	ew := NewEventWriter(&log, s)

	form := snapshot.Parse("- form \"Login\":\n  - button \"Sign in\"\n- region \"Help\":\n  - button \"Sign in\"")
	require.NoError(t, ew.RecordPageVisit("/login", form, "login"))
	require.NoError(t, ew.RecordSelectorUsage("login", "text=Sign in", "click"))
	assert.Equal(t, 2, strings.Count(log.String(), "\n"))

	replayed := startedSession(t)
	stats, err := LoadEvents(&log, replayed)
	require.NoError(t, err)
	assert.Equal(t, LoadStats{Visits: 1, Selectors: 1}, stats)
	assert.Equal(t, s.Summary(), replayed.Summary())
	assert.Equal(t, "Help > Sign in", replayed.Pages()[0].Elements[3].Path)
}

func TestEventWriter_InactiveSession(t *testing.T) {
	var log bytes.Buffer
	ew := NewEventWriter(&log, NewSession())
	assert.ErrorIs(t, ew.RecordSelectorUsage("t", "#a", "click"), ErrSessionNotStarted)
	assert.Empty(t, log.String())
}
