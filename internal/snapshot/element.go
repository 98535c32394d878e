package snapshot

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ElementType is the closed set of element categories a snapshot line can map to.
type ElementType int

const (
	ElementGeneric ElementType = iota
	ElementButton
	ElementLink
	ElementInput
	ElementNavigation
	ElementForm
	ElementHeading
	ElementRegion
	ElementImage
	ElementText
)

var elementTypeNames = map[ElementType]string{
	ElementGeneric:    "generic",
	ElementButton:     "button",
	ElementLink:       "link",
	ElementInput:      "input",
	ElementNavigation: "navigation",
	ElementForm:       "form",
	ElementHeading:    "heading",
	ElementRegion:     "region",
	ElementImage:      "image",
	ElementText:       "text",
}

// AllElementTypes lists every type in declaration order.
var AllElementTypes = []ElementType{
	ElementButton,
	ElementLink,
	ElementInput,
	ElementNavigation,
	ElementForm,
	ElementHeading,
	ElementRegion,
	ElementImage,
	ElementText,
	ElementGeneric,
}

func (t ElementType) String() string {
	if name, ok := elementTypeNames[t]; ok {
		return name
	}
	return "generic"
}

// ParseElementType maps a type name (or a common tag/role alias) to an ElementType.
// Unknown names map to ElementGeneric.
func ParseElementType(name string) ElementType {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "button", "menuitem", "tab", "summary":
		return ElementButton
	case "link", "a":
		return ElementLink
	case "input", "textbox", "textarea", "select", "searchbox", "combobox",
		"checkbox", "radio", "spinbutton", "slider", "switch":
		return ElementInput
	case "navigation", "nav":
		return ElementNavigation
	case "form":
		return ElementForm
	case "heading", "h1", "h2", "h3", "h4", "h5", "h6":
		return ElementHeading
	case "region", "main", "banner", "contentinfo", "complementary", "dialog",
		"article", "section", "header", "footer", "aside":
		return ElementRegion
	case "image", "img", "figure", "svg":
		return ElementImage
	case "text", "paragraph", "p", "span", "label", "listitem", "li", "cell", "td":
		return ElementText
	default:
		return ElementGeneric
	}
}

// MarshalJSON encodes the type by name.
func (t ElementType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a type name.
func (t *ElementType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("element type must be a string: %w", err)
	}
	*t = ParseElementType(name)
	return nil
}

// MaxTextLength caps ElementRecord.Text, counted in runes.
const MaxTextLength = 100

// criticalKeywords mark business-critical elements (case-insensitive substring).
var criticalKeywords = []string{"submit", "login", "buy", "checkout", "save", "send"}

// ElementRecord is one discovered UI element.
type ElementRecord struct {
	Type ElementType `json:"type"`
	Text string      `json:"text,omitempty"`

	ID          string `json:"id,omitempty"`
	ClassName   string `json:"className,omitempty"`
	Role        string `json:"role,omitempty"`
	AriaLabel   string `json:"ariaLabel,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Href        string `json:"href,omitempty"`
	TagName     string `json:"tagName,omitempty"`
	Visible     bool   `json:"visible,omitempty"`

	LineNumber int `json:"lineNumber,omitempty"`
	Level      int `json:"level"`
	Indent     int `json:"-"`

	// Parent is a non-owning back reference; the parent owns this record via Children.
	Parent   *ElementRecord   `json:"-"`
	Children []*ElementRecord `json:"-"`

	Path         string `json:"path"`
	Selector     string `json:"selector"`
	Interactable bool   `json:"interactable"`
	Critical     bool   `json:"critical"`
}

// NewElement builds a record and fills in its derived fields.
// Parent links are left to the caller.
func NewElement(t ElementType, text string) *ElementRecord {
	el := &ElementRecord{Type: t, Text: truncate(strings.TrimSpace(text), MaxTextLength)}
	el.Derive()
	return el
}

// Derive recomputes Path, Selector, Interactable and Critical from the
// current type, text and parent.
func (e *ElementRecord) Derive() {
	e.Path = e.Label()
	if e.Parent != nil {
		e.Path = e.Parent.Path + " > " + e.Label()
	}
	e.Selector = e.Type.String()
	if e.Text != "" {
		e.Selector = e.Type.String() + `:has-text("` + e.Text + `")`
	}
	e.Interactable = isInteractable(e.Type)
	e.Critical = isCritical(e.Text)
}

// Label is the element text, or its type name when the text is empty.
func (e *ElementRecord) Label() string {
	if e.Text != "" {
		return e.Text
	}
	return e.Type.String()
}

// Classes splits ClassName into its tokens.
func (e *ElementRecord) Classes() []string {
	return strings.Fields(e.ClassName)
}

// AddChild links child under e and refreshes the child's derived fields.
func (e *ElementRecord) AddChild(child *ElementRecord) {
	child.Parent = e
	child.Level = e.Level + 1
	e.Children = append(e.Children, child)
	child.Derive()
}

func isInteractable(t ElementType) bool {
	switch t {
	case ElementButton, ElementLink, ElementInput:
		return true
	}
	return false
}

func isCritical(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range criticalKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
