package executor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Action types.
const (
	ActionClick    = "click"
	ActionType     = "type"
	ActionHover    = "hover"
	ActionScroll   = "scroll"
	ActionWait     = "wait"
	ActionNavigate = "navigate"
)

// Action represents a single browser automation action
type Action struct {
	Type       string `json:"action" yaml:"action"`                             // click, type, scroll, hover, wait, navigate
	Selector   string `json:"selector,omitempty" yaml:"selector,omitempty"`     // CSS, text= or role= selector
	Text       string `json:"text,omitempty" yaml:"text,omitempty"`             // Text to type (for type action)
	X          int    `json:"x,omitempty" yaml:"x,omitempty"`                   // Scroll delta (for scroll)
	Y          int    `json:"y,omitempty" yaml:"y,omitempty"`                   // Scroll delta (for scroll)
	URL        string `json:"url,omitempty" yaml:"url,omitempty"`               // URL for navigate action
	Duration   int    `json:"wait,omitempty" yaml:"wait,omitempty"`             // Wait duration in ms after action
	Checkpoint bool   `json:"checkpoint,omitempty" yaml:"checkpoint,omitempty"` // Re-capture the page afterwards
}

// Method is the interaction method recorded for the action's selector.
func (a Action) Method() string {
	switch a.Type {
	case ActionType:
		return "fill"
	case ActionScroll:
		return "scrollIntoViewIfNeeded"
	default:
		return a.Type
	}
}

// Validate checks that the action has the fields its type needs.
func (a Action) Validate() error {
	switch a.Type {
	case ActionClick, ActionHover:
		if a.Selector == "" {
			return fmt.Errorf("%s action requires a selector", a.Type)
		}
	case ActionType:
		if a.Selector == "" {
			return fmt.Errorf("type action requires a selector")
		}
	case ActionNavigate:
		if a.URL == "" {
			return fmt.Errorf("navigate action requires a url")
		}
	case ActionWait, ActionScroll:
	default:
		return fmt.Errorf("unknown action: %q", a.Type)
	}
	return nil
}

// Flow is one named test: a start URL and the actions to run on it.
type Flow struct {
	Name  string   `yaml:"name"`
	URL   string   `yaml:"url,omitempty"`
	Steps []Action `yaml:"steps"`
}

// FlowFile is the YAML document `pwdebug capture` runs.
type FlowFile struct {
	BaseURL string `yaml:"base_url,omitempty"`
	Tests   []Flow `yaml:"tests"`
}

// LoadFlows reads and validates a flow file.
func LoadFlows(path string) (*FlowFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow file: %w", err)
	}
	return ParseFlows(data)
}

// ParseFlows decodes and validates flow YAML.
func ParseFlows(data []byte) (*FlowFile, error) {
	var ff FlowFile
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("failed to parse flow file: %w", err)
	}
	if len(ff.Tests) == 0 {
		return nil, fmt.Errorf("flow file defines no tests")
	}
	for i, flow := range ff.Tests {
		if flow.Name == "" {
			return nil, fmt.Errorf("test %d: name is required", i+1)
		}
		for j, step := range flow.Steps {
			if err := step.Validate(); err != nil {
				return nil, fmt.Errorf("test %q step %d: %w", flow.Name, j+1, err)
			}
		}
	}
	return &ff, nil
}
