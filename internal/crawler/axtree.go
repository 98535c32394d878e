package crawler

import (
	"strconv"
	"strings"

	"github.com/go-rod/rod/lib/proto"
)

// transparentRoles are rendered through: their children take their place.
var transparentRoles = map[string]bool{
	"":              true,
	"none":          true,
	"presentation":  true,
	"RootWebArea":   true,
	"WebArea":       true,
	"InlineTextBox": true,
	"LineBreak":     true,
	"ignored":       true,
}

// FormatAXTree renders a CDP accessibility tree in the indented snapshot
// text format snapshot.Parse reads:
//
//	- navigation "Main":
//	  - link "Docs":
//	    - /url: /docs
func FormatAXTree(nodes []*proto.AccessibilityAXNode) string {
	byID := make(map[proto.AccessibilityAXNodeID]*proto.AccessibilityAXNode, len(nodes))
	for _, n := range nodes {
		byID[n.NodeID] = n
	}

	f := &axFormatter{byID: byID}
	var lines []string
	for _, n := range nodes {
		if _, ok := byID[n.ParentID]; n.ParentID == "" || !ok {
			lines = append(lines, f.render(n, "")...)
		}
	}
	return strings.Join(lines, "\n")
}

type axFormatter struct {
	byID map[proto.AccessibilityAXNodeID]*proto.AccessibilityAXNode
}

// render returns the snapshot lines of n, indented relative to n itself.
func (f *axFormatter) render(n *proto.AccessibilityAXNode, parentName string) []string {
	role := axString(n.Role)
	name := strings.TrimSpace(axString(n.Name))

	switch {
	case n.Ignored || transparentRoles[role]:
		return f.renderChildren(n, parentName)
	case role == "StaticText":
		// Text already carried by the parent's accessible name adds nothing.
		if name == "" || strings.Contains(parentName, name) {
			return nil
		}
		return []string{"- text: " + name}
	case role == "generic" && name == "":
		return f.renderChildren(n, parentName)
	}

	head := "- " + strings.ToLower(role)
	if name != "" {
		head += ` "` + strings.ReplaceAll(name, `"`, `\"`) + `"`
	}
	if level := axProperty(n, "level"); level != nil && level.Value.Int() > 0 {
		head += " [level=" + strconv.Itoa(level.Value.Int()) + "]"
	}

	var kids []string
	if role == "link" {
		if u := axString(axProperty(n, "url")); u != "" {
			kids = append(kids, "- /url: "+u)
		}
	}
	kids = append(kids, f.renderChildren(n, name)...)
	if len(kids) == 0 {
		return []string{head}
	}

	out := make([]string, 0, len(kids)+1)
	out = append(out, head+":")
	for _, k := range kids {
		out = append(out, "  "+k)
	}
	return out
}

func (f *axFormatter) renderChildren(n *proto.AccessibilityAXNode, parentName string) []string {
	var out []string
	for _, id := range n.ChildIDs {
		if child, ok := f.byID[id]; ok {
			out = append(out, f.render(child, parentName)...)
		}
	}
	return out
}

func axString(v *proto.AccessibilityAXValue) string {
	if v == nil {
		return ""
	}
	s, _ := v.Value.Val().(string)
	return s
}

func axProperty(n *proto.AccessibilityAXNode, name string) *proto.AccessibilityAXValue {
	for _, p := range n.Properties {
		if p != nil && string(p.Name) == name {
			return p.Value
		}
	}
	return nil
}
