package coverage

import (
	"regexp"
	"strings"

	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/snapshot"
)

// Rule identifies which matcher rule decided coverage.
type Rule int

const (
	RuleNone Rule = iota
	RuleText
	RuleAriaLabel
	RuleID
	RuleClass
	RuleTag
	RuleRole
)

func (r Rule) String() string {
	switch r {
	case RuleText:
		return "text"
	case RuleAriaLabel:
		return "aria-label"
	case RuleID:
		return "id"
	case RuleClass:
		return "class"
	case RuleTag:
		return "tag"
	case RuleRole:
		return "role"
	default:
		return "none"
	}
}

var classTokenPattern = regexp.MustCompile(`\.([a-zA-Z0-9_-]+)`)

var textSelectorDecoration = strings.NewReplacer(
	"text=", "",
	"locator(", "",
	")", "",
	`"`, "",
	"'", "",
)

// matchRule is one step of the coverage heuristic.
type matchRule struct {
	rule  Rule
	match func(selector string, el *snapshot.ElementRecord) bool
}

// matchRules is evaluated in order; the first match wins. Specific attribute
// rules come before the generic tag rule, and the order is part of the
// reported coverage.
var matchRules = []matchRule{
	{RuleText, func(sel string, el *snapshot.ElementRecord) bool {
		if el.Text == "" || !(strings.Contains(sel, "text=") || strings.Contains(sel, "locator(")) {
			return false
		}
		needle := strings.TrimSpace(textSelectorDecoration.Replace(sel))
		return needle != "" && strings.Contains(el.Text, needle)
	}},
	{RuleAriaLabel, func(sel string, el *snapshot.ElementRecord) bool {
		return el.AriaLabel != "" && strings.Contains(sel, "aria-label") && strings.Contains(sel, el.AriaLabel)
	}},
	{RuleID, func(sel string, el *snapshot.ElementRecord) bool {
		return el.ID != "" && strings.HasPrefix(sel, "#") && el.ID == sel[1:]
	}},
	{RuleClass, func(sel string, el *snapshot.ElementRecord) bool {
		if el.ClassName == "" || !strings.Contains(sel, ".") {
			return false
		}
		m := classTokenPattern.FindStringSubmatch(sel)
		return m != nil && strings.Contains(el.ClassName, m[1])
	}},
	{RuleTag, func(sel string, el *snapshot.ElementRecord) bool {
		return el.TagName != "" && strings.EqualFold(sel, el.TagName)
	}},
	{RuleRole, func(sel string, el *snapshot.ElementRecord) bool {
		return el.Role != "" && strings.Contains(sel, "role=") && strings.Contains(sel, el.Role)
	}},
}

// MatchRule reports whether selector covers el and which rule decided it.
// Selectors no rule recognises simply do not match.
func MatchRule(selector string, el *snapshot.ElementRecord) (Rule, bool) {
	if el == nil || selector == "" {
		return RuleNone, false
	}
	for _, r := range matchRules {
		if r.match(selector, el) {
			return r.rule, true
		}
	}
	return RuleNone, false
}

// Matches reports whether selector covers el.
func Matches(selector string, el *snapshot.ElementRecord) bool {
	_, ok := MatchRule(selector, el)
	return ok
}

// IsElementCovered reports whether any of usedSelectors covers el, together
// with the selectors that do, in input order.
func IsElementCovered(el *snapshot.ElementRecord, usedSelectors []string) (bool, []string) {
	var coveredBy []string
	for _, sel := range usedSelectors {
		if Matches(sel, el) {
			coveredBy = append(coveredBy, sel)
		}
	}
	return len(coveredBy) > 0, coveredBy
}
