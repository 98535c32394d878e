package coverage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/dom"
	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/snapshot"
)

// Event types in a coverage event log.
const (
	EventVisit    = "visit"
	EventSelector = "selector"
)

// Event is one line of the JSON-lines log a test fixture writes while tests run.
// A visit carries exactly one of Snapshot (accessibility snapshot text),
// HTML (a DOM dump) or Elements (pre-extracted records).
type Event struct {
	Type      string                    `json:"type"`
	Test      string                    `json:"test"`
	Page      string                    `json:"page,omitempty"`
	Snapshot  string                    `json:"snapshot,omitempty"`
	HTML      string                    `json:"html,omitempty"`
	Elements  []*snapshot.ElementRecord `json:"elements,omitempty"`
	Selector  string                    `json:"selector,omitempty"`
	Method    string                    `json:"method,omitempty"`
	Timestamp time.Time                 `json:"timestamp,omitzero"`
}

// LoadStats counts what LoadEvents consumed.
type LoadStats struct {
	Visits    int
	Selectors int
	Skipped   int
}

// LoadEvents replays a JSON-lines event log into s. Blank lines and unknown
// event types are skipped; malformed JSON aborts with the line number.
func LoadEvents(r io.Reader, s *Session) (LoadStats, error) {
	var stats LoadStats
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 32*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return stats, fmt.Errorf("line %d: invalid event: %w", lineNo, err)
		}
		applied, err := ApplyEvent(s, ev)
		if err != nil {
			return stats, fmt.Errorf("line %d: %w", lineNo, err)
		}
		switch {
		case !applied:
			stats.Skipped++
		case ev.Type == EventVisit:
			stats.Visits++
		default:
			stats.Selectors++
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("failed to read event log: %w", err)
	}
	return stats, nil
}

// LoadEventFile replays the event log at path into a fresh started session.
func LoadEventFile(path string, opts ...Option) (*Session, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("failed to open event log %s: %w", path, err)
	}
	defer f.Close()

	s := NewSession(opts...)
	if err := s.Start(); err != nil {
		return nil, LoadStats{}, err
	}
	stats, err := LoadEvents(f, s)
	if err != nil {
		return nil, stats, fmt.Errorf("%s: %w", path, err)
	}
	return s, stats, nil
}

// ApplyEvent records one event. It reports false for event types it does not know.
func ApplyEvent(s *Session, ev Event) (bool, error) {
	switch ev.Type {
	case EventVisit:
		elements, err := visitElements(ev)
		if err != nil {
			return false, err
		}
		return true, s.RecordPageVisit(ev.Page, elements, ev.Test)
	case EventSelector:
		return true, s.RecordUsage(SelectorUsage{
			TestName:  ev.Test,
			Selector:  ev.Selector,
			Method:    ev.Method,
			Timestamp: ev.Timestamp,
		})
	default:
		return false, nil
	}
}

func visitElements(ev Event) ([]*snapshot.ElementRecord, error) {
	switch {
	case ev.Snapshot != "":
		return snapshot.Parse(ev.Snapshot), nil
	case ev.HTML != "":
		elements, err := dom.Extract(strings.NewReader(ev.HTML))
		if err != nil {
			return nil, fmt.Errorf("page %s: %w", ev.Page, err)
		}
		return elements, nil
	default:
		for _, el := range ev.Elements {
			if el == nil {
				continue
			}
			path := el.Path
			el.Derive()
			if path != "" {
				el.Path = path
			}
		}
		return ev.Elements, nil
	}
}

// EventWriter records into a session and appends each event to a JSON-lines
// log that LoadEvents can replay.
type EventWriter struct {
	s   *Session
	enc *json.Encoder
}

// NewEventWriter tees recordings on s into w.
func NewEventWriter(w io.Writer, s *Session) *EventWriter {
	return &EventWriter{s: s, enc: json.NewEncoder(w)}
}

// RecordPageVisit records the visit and logs it with its elements.
func (ew *EventWriter) RecordPageVisit(pageID string, elements []*snapshot.ElementRecord, testName string) error {
	if err := ew.s.RecordPageVisit(pageID, elements, testName); err != nil {
		return err
	}
	return ew.write(Event{Type: EventVisit, Test: testName, Page: pageID, Elements: elements, Timestamp: ew.s.now()})
}

// RecordSelectorUsage records the usage and logs it.
func (ew *EventWriter) RecordSelectorUsage(testName, selector, method string) error {
	if err := ew.s.RecordSelectorUsage(testName, selector, method); err != nil {
		return err
	}
	return ew.write(Event{Type: EventSelector, Test: testName, Selector: selector, Method: method, Timestamp: ew.s.now()})
}

func (ew *EventWriter) write(ev Event) error {
	if err := ew.enc.Encode(ev); err != nil {
		return fmt.Errorf("failed to write %s event: %w", ev.Type, err)
	}
	return nil
}
