// Package snapshot parses Playwright-style accessibility snapshots into
// element records with parent/child links.
//
// A snapshot holds one element per line. Nesting is encoded by indentation
// (two spaces per level), usually with a "- " bullet:
//
//	- navigation "Main":
//	  - link "Docs":
//	    - /url: /docs
//	  - button "Search"
package snapshot

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// linePattern maps one family of snapshot roles to an ElementType.
type linePattern struct {
	typ ElementType
	re  *regexp.Regexp
}

// linePatterns is evaluated in order; the first match wins.
// Group 1 is the role keyword, group 2 the remainder of the line.
var linePatterns = []linePattern{
	{ElementButton, regexp.MustCompile(`^(button|menuitem|tab)\b(.*)$`)},
	{ElementLink, regexp.MustCompile(`^(link)\b(.*)$`)},
	{ElementInput, regexp.MustCompile(`^(textbox|searchbox|combobox|checkbox|radio|spinbutton|slider|switch|input|textarea)\b(.*)$`)},
	{ElementNavigation, regexp.MustCompile(`^(navigation)\b(.*)$`)},
	{ElementForm, regexp.MustCompile(`^(form)\b(.*)$`)},
	{ElementHeading, regexp.MustCompile(`^(heading)\b(.*)$`)},
	{ElementRegion, regexp.MustCompile(`^(region|main|banner|contentinfo|complementary|dialog|article|section)\b(.*)$`)},
	{ElementImage, regexp.MustCompile(`^(img|image|figure)\b(.*)$`)},
	{ElementText, regexp.MustCompile(`^(text|paragraph|generic|listitem|cell|strong|emphasis|code|label|caption|blockquote)\b(.*)$`)},
}

var (
	urlLinePattern = regexp.MustCompile(`^(?:/url:\s*(\S+)|(https?://\S+))\s*$`)
	quotedLabel    = regexp.MustCompile(`^\s*"((?:[^"\\]|\\.)*)"`)
	attrSuffix     = regexp.MustCompile(`\s*\[[^\]]*\]`)
)

// pseudoRoles are line keywords that are not ARIA roles.
var pseudoRoles = map[string]bool{"text": true}

// Parse converts snapshot text into element records in source order.
//
// Blank lines and lines starting with '#' are skipped, lines no pattern
// recognises are dropped. A line indented deeper than one level below the
// previous open element attaches to the nearest still-open ancestor and its
// Level is normalised to parent.Level+1; with no open ancestor it is a root.
func Parse(text string) []*ElementRecord {
	p := &parser{}
	for i, line := range strings.Split(text, "\n") {
		p.parseLine(i+1, line)
	}
	return p.elements
}

// ParseReader is Parse over a reader.
func ParseReader(r io.Reader) ([]*ElementRecord, error) {
	p := &parser{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		p.parseLine(lineNo, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return p.elements, nil
}

type openElement struct {
	depth int
	el    *ElementRecord
}

type parser struct {
	elements []*ElementRecord
	stack    []openElement
}

func (p *parser) parseLine(lineNo int, raw string) {
	line := strings.TrimRight(raw, " \t\r")
	body := strings.TrimLeft(line, " \t")
	if body == "" || strings.HasPrefix(body, "#") {
		return
	}

	indent := indentWidth(line[:len(line)-len(body)])
	depth := indent / 2

	// Close every element at this depth or deeper, even when the line itself
	// is dropped; the top is then the nearest open ancestor.
	for len(p.stack) > 0 && p.stack[len(p.stack)-1].depth >= depth {
		p.stack = p.stack[:len(p.stack)-1]
	}

	body = strings.TrimSpace(strings.TrimPrefix(body, "-"))
	el, ok := matchLine(body)
	if !ok {
		return
	}
	el.LineNumber = lineNo
	el.Indent = indent
	if len(p.stack) > 0 {
		parent := p.stack[len(p.stack)-1].el
		// A url line under a link is that link's target, not an element.
		if isURLLine(el) && parent.Type == ElementLink {
			if parent.Href == "" {
				parent.Href = el.Href
			}
			return
		}
		parent.AddChild(el)
	} else {
		el.Level = 0
		el.Derive()
	}

	p.stack = append(p.stack, openElement{depth: depth, el: el})
	p.elements = append(p.elements, el)
}

func isURLLine(el *ElementRecord) bool {
	return el.Type == ElementLink && el.Role == "" && el.Href != "" && el.Text == el.Href
}

func matchLine(body string) (*ElementRecord, bool) {
	for _, lp := range linePatterns {
		m := lp.re.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		role, rest := m[1], m[2]
		typ := lp.typ
		if role == "generic" {
			typ = ElementGeneric
		}
		el := NewElement(typ, extractLabel(rest))
		if !pseudoRoles[role] {
			el.Role = role
		}
		return el, true
	}

	if m := urlLinePattern.FindStringSubmatch(body); m != nil {
		url := m[1]
		if url == "" {
			url = m[2]
		}
		el := NewElement(ElementLink, url)
		el.Href = url
		return el, true
	}

	return nil, false
}

// extractLabel pulls the human-readable label out of the part of a line
// after the role keyword: the quoted name when it directly follows the role,
// else the inline text after ':'.
func extractLabel(rest string) string {
	if m := quotedLabel.FindStringSubmatch(rest); m != nil {
		return strings.ReplaceAll(m[1], `\"`, `"`)
	}
	rest = attrSuffix.ReplaceAllString(rest, "")
	rest = strings.TrimSpace(rest)
	rest = strings.TrimPrefix(rest, ":")
	return strings.TrimSpace(rest)
}

func indentWidth(prefix string) int {
	width := 0
	for _, r := range prefix {
		if r == '\t' {
			width += 2
			continue
		}
		width++
	}
	return width
}

// Roots returns the records without a parent, in source order.
func Roots(elements []*ElementRecord) []*ElementRecord {
	var roots []*ElementRecord
	for _, el := range elements {
		if el.Parent == nil {
			roots = append(roots, el)
		}
	}
	return roots
}

// Walk visits el and its descendants depth-first, stopping early when fn returns false.
func Walk(el *ElementRecord, fn func(*ElementRecord) bool) bool {
	if !fn(el) {
		return false
	}
	for _, child := range el.Children {
		if !Walk(child, fn) {
			return false
		}
	}
	return true
}
