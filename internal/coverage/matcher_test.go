package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/snapshot"
)

func TestMatchRule(t *testing.T) {
	tests := []struct {
		name     string
		selector string
		element  snapshot.ElementRecord
		wantRule Rule
		wantOK   bool
	}{
		{"text selector", `text="Get started"`, snapshot.ElementRecord{Text: "Get started now"}, RuleText, true},
		{"locator text", `locator('text=Docs')`, snapshot.ElementRecord{Text: "Docs"}, RuleText, true},
		{"text mismatch", `text=Pricing`, snapshot.ElementRecord{Text: "Docs"}, RuleNone, false},
		{"text selector without element text", `text=Docs`, snapshot.ElementRecord{}, RuleNone, false},
		{"aria label", `[aria-label="Close dialog"]`, snapshot.ElementRecord{AriaLabel: "Close dialog"}, RuleAriaLabel, true},
		{"aria label missing on element", `[aria-label="Close"]`, snapshot.ElementRecord{ID: "close"}, RuleNone, false},
		{"id exact", "#login-form", snapshot.ElementRecord{ID: "login-form"}, RuleID, true},
		{"id is not a prefix match", "#login-form", snapshot.ElementRecord{ID: "login-form-2"}, RuleNone, false},
		{"class token", "button.btn-primary", snapshot.ElementRecord{ClassName: "btn btn-primary"}, RuleClass, true},
		{"class substring", ".btn", snapshot.ElementRecord{ClassName: "btn-large"}, RuleClass, true},
		{"tag case-insensitive", "BUTTON", snapshot.ElementRecord{TagName: "button"}, RuleTag, true},
		{"tag requires equality", "button >> nth=1", snapshot.ElementRecord{TagName: "button"}, RuleNone, false},
		{"role", "role=navigation", snapshot.ElementRecord{Role: "navigation"}, RuleRole, true},
		{"role mismatch", "role=button", snapshot.ElementRecord{Role: "link"}, RuleNone, false},
		{"unrecognised selector", "xpath=//div[3]", snapshot.ElementRecord{Text: "Docs", ID: "docs"}, RuleNone, false},
		{"empty selector", "", snapshot.ElementRecord{Text: "Docs"}, RuleNone, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el := tt.element
			rule, ok := MatchRule(tt.selector, &el)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantRule, rule)
			assert.Equal(t, tt.wantOK, Matches(tt.selector, &el))
		})
	}
}

func TestMatchRule_Priority(t *testing.T) {
	el := &snapshot.ElementRecord{ID: "save", ClassName: "save", TagName: "button"}

	rule, ok := MatchRule("#save", el)
	assert.True(t, ok)
	assert.Equal(t, RuleID, rule, "id rule is evaluated before the class rule")

	rule, ok = MatchRule(".save", el)
	assert.True(t, ok)
	assert.Equal(t, RuleClass, rule)

	labelled := &snapshot.ElementRecord{Text: "Save", AriaLabel: "Save", ID: "save"}
	rule, _ = MatchRule(`text=Save`, labelled)
	assert.Equal(t, RuleText, rule, "text rule comes first")
}

func TestMatches_NilElement(t *testing.T) {
	assert.False(t, Matches("#x", nil))
}

func TestMatches_Deterministic(t *testing.T) {
	el := &snapshot.ElementRecord{Text: "Docs", ID: "docs", ClassName: "nav-link", Role: "link"}
	selectors := []string{"#docs", ".nav-link", "text=Docs", "role=link", "div", "#other"}
	first := make([]bool, len(selectors))
	for i, sel := range selectors {
		first[i] = Matches(sel, el)
	}
	for round := 0; round < 3; round++ {
		for i := len(selectors) - 1; i >= 0; i-- {
			assert.Equal(t, first[i], Matches(selectors[i], el), selectors[i])
		}
	}
}

func TestIsElementCovered(t *testing.T) {
	el := &snapshot.ElementRecord{Text: "Docs", ID: "docs"}

	covered, by := IsElementCovered(el, []string{"#home", "#docs", "text=Docs"})
	assert.True(t, covered)
	assert.Equal(t, []string{"#docs", "text=Docs"}, by)

	covered, by = IsElementCovered(el, nil)
	assert.False(t, covered)
	assert.Empty(t, by)
}

func TestIsElementCovered_Monotonic(t *testing.T) {
	elements := []*snapshot.ElementRecord{
		{Text: "Docs"}, {ID: "search"}, {ClassName: "btn"}, {Role: "banner"}, {TagName: "img"},
	}
	pool := []string{"text=Docs", "#search", ".btn", "role=banner", "img", "#missing"}

	var used []string
	prev := 0
	for _, sel := range pool {
		used = append(used, sel)
		count := 0
		for _, el := range elements {
			if ok, _ := IsElementCovered(el, used); ok {
				count++
			}
		}
		assert.GreaterOrEqual(t, count, prev)
		prev = count
	}
	assert.Equal(t, len(elements), prev)
}

func TestRuleString(t *testing.T) {
	assert.Equal(t, "id", RuleID.String())
	assert.Equal(t, "none", Rule(99).String())
}
