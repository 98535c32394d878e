// Package dom discovers page elements in a serialized DOM (page.content()
// dumps, saved HTML) and converts them into snapshot element records.
package dom

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/rattus-aristarchus/guide-ai-playwright-auto-debug-sub000/internal/snapshot"
)

// trackedTags are the tags that become element records even without a role attribute.
var trackedTags = map[string]bool{
	"button": true, "a": true, "input": true, "textarea": true, "select": true,
	"nav": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"main": true, "header": true, "footer": true, "aside": true, "section": true, "article": true, "dialog": true,
	"img": true, "summary": true, "label": true,
}

// skippedTags are never descended into.
var skippedTags = map[string]bool{"head": true, "script": true, "style": true, "noscript": true, "template": true}

// textTags take their record text from their text content.
var textTags = map[string]bool{
	"button": true, "a": true, "summary": true, "label": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// Extract parses an HTML document and returns the tracked elements in
// document order, linked to their nearest tracked ancestor.
func Extract(r io.Reader) ([]*snapshot.ElementRecord, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	var elements []*snapshot.ElementRecord
	walk(doc, nil, true, &elements)
	return elements, nil
}

func walk(n *html.Node, parent *snapshot.ElementRecord, visible bool, out *[]*snapshot.ElementRecord) {
	if n.Type == html.ElementNode {
		if skippedTags[n.Data] {
			return
		}
		if n.Data == "input" && strings.EqualFold(getAttr(n, "type"), "hidden") {
			return
		}
		visible = visible && !isHidden(n)
		if el := toElement(n, visible); el != nil {
			if parent != nil {
				parent.AddChild(el)
			} else {
				el.Derive()
			}
			*out = append(*out, el)
			parent = el
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, parent, visible, out)
	}
}

func toElement(n *html.Node, visible bool) *snapshot.ElementRecord {
	tag := n.Data
	role := getAttr(n, "role")
	if !trackedTags[tag] && role == "" {
		return nil
	}
	if tag == "a" && !hasAttr(n, "href") && role == "" {
		return nil
	}

	typ := snapshot.ParseElementType(tag)
	if role != "" {
		typ = snapshot.ParseElementType(role)
	}

	el := snapshot.NewElement(typ, elementText(n, tag))
	el.TagName = tag
	el.ID = getAttr(n, "id")
	el.ClassName = strings.Join(strings.Fields(getAttr(n, "class")), " ")
	el.Role = role
	el.AriaLabel = getAttr(n, "aria-label")
	el.Placeholder = getAttr(n, "placeholder")
	el.Href = getAttr(n, "href")
	el.Visible = visible
	return el
}

func elementText(n *html.Node, tag string) string {
	switch {
	case textTags[tag]:
		if text := collapseSpace(extractText(n)); text != "" {
			return text
		}
		return getAttr(n, "aria-label")
	case tag == "img":
		return getAttr(n, "alt")
	case tag == "input":
		switch strings.ToLower(getAttr(n, "type")) {
		case "submit", "button", "reset":
			return getAttr(n, "value")
		}
		return ""
	default:
		return getAttr(n, "aria-label")
	}
}

func isHidden(n *html.Node) bool {
	if hasAttr(n, "hidden") || getAttr(n, "aria-hidden") == "true" {
		return true
	}
	style := strings.ReplaceAll(strings.ToLower(getAttr(n, "style")), " ", "")
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}

func extractText(n *html.Node) string {
	var sb strings.Builder
	var walkText func(*html.Node)
	walkText = func(node *html.Node) {
		if node.Type == html.ElementNode && skippedTags[node.Data] {
			return
		}
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			sb.WriteByte(' ')
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walkText(c)
		}
	}
	walkText(n)
	return sb.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}
