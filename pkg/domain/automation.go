package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// OutputTypeMessage is currently the only supported output type.
const OutputTypeMessage = "message"

// ButtonKind discriminates the payload a button carries.
type ButtonKind string

const (
	// ButtonURL opens a link. Requires URL.
	ButtonURL ButtonKind = "url"
	// ButtonCallback writes facts to the lead snapshot. Requires SetFacts.
	ButtonCallback ButtonKind = "callback"
	// ButtonQuickReply sends its label back as a message. Carries no payload.
	ButtonQuickReply ButtonKind = "quick_reply"
)

// Valid reports whether k is a known kind.
func (k ButtonKind) Valid() bool {
	switch k {
	case ButtonURL, ButtonCallback, ButtonQuickReply:
		return true
	}
	return false
}

// Automation is a single candidate message the backend may send to a lead.
type Automation struct {
	ID          string   `json:"id" yaml:"id"`
	Topic       string   `json:"topic" yaml:"topic"`
	Eligibility string   `json:"eligibility" yaml:"eligibility"`
	Priority    float64  `json:"priority" yaml:"priority"`
	Cooldown    Cooldown `json:"cooldown" yaml:"cooldown"`
	Output      Output   `json:"output" yaml:"output"`
	// Extra keeps keys of the policy file this module does not model, such as use_when.
	Extra map[string]any `json:"extra,omitempty" yaml:",inline"`
}

// RecordID implements Record.
func (a Automation) RecordID() string { return a.ID }

// HighPriority reports whether the automation counts as high priority in stats.
func (a Automation) HighPriority() bool { return a.Priority >= HighPriorityThreshold }

// HighPriorityThreshold is the priority at or above which an automation is "high priority".
const HighPriorityThreshold = 0.9

// Output is the message payload of an automation.
type Output struct {
	Type    string   `json:"type" yaml:"type"`
	Text    string   `json:"text" yaml:"text"`
	Buttons []Button `json:"buttons,omitempty" yaml:"buttons,omitempty"`
	// Extra keeps unmodelled keys such as track.
	Extra map[string]any `json:"extra,omitempty" yaml:",inline"`
}

// Button is one entry of an output's button row.
// Exactly one of URL and SetFacts is populated, decided by Kind; quick replies carry neither.
type Button struct {
	ID       string     `json:"id" yaml:"id"`
	Label    string     `json:"label" yaml:"label"`
	Kind     ButtonKind `json:"kind" yaml:"kind"`
	URL      string     `json:"url,omitempty" yaml:"url,omitempty"`
	SetFacts FactsJSON  `json:"set_facts,omitempty" yaml:"set_facts,omitempty"`

	Extra map[string]any `json:"extra,omitempty" yaml:",inline"`
}

// FactsJSON holds the JSON text of a callback button's fact mapping.
//
// Editors submit it as free text, so it may not parse. It is kept verbatim until
// validated; once valid it round-trips as a proper object in JSON and YAML.
type FactsJSON string

// Empty reports whether no facts were provided.
func (f FactsJSON) Empty() bool { return strings.TrimSpace(string(f)) == "" }

// Map parses the facts as a JSON object of dotted fact paths to values.
func (f FactsJSON) Map() (map[string]any, error) {
	var m map[string]any
	dec := json.NewDecoder(strings.NewReader(string(f)))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("set_facts: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("set_facts: expected a JSON object")
	}
	if dec.More() {
		return nil, fmt.Errorf("set_facts: trailing data after object")
	}
	return m, nil
}

// FactsFromMap encodes a fact mapping.
func FactsFromMap(m map[string]any) (FactsJSON, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return FactsJSON(b), nil
}

// MarshalJSON emits a parsed object when possible and the raw text otherwise.
func (f FactsJSON) MarshalJSON() ([]byte, error) {
	if f.Empty() {
		return []byte("null"), nil
	}
	if _, err := f.Map(); err == nil {
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(f)); err == nil {
			return buf.Bytes(), nil
		}
	}
	return json.Marshal(string(f))
}

// UnmarshalJSON accepts either an object or a string holding JSON text.
func (f *FactsJSON) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		*f = ""
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = FactsJSON(s)
	default:
		*f = FactsJSON(trimmed)
	}
	return nil
}

// MarshalYAML writes facts as a mapping, falling back to the raw text.
func (f FactsJSON) MarshalYAML() (any, error) {
	if f.Empty() {
		return nil, nil
	}
	m, err := f.Map()
	if err != nil {
		return string(f), nil
	}
	return m, nil
}

// UnmarshalYAML reads either a mapping or a scalar holding JSON text.
func (f *FactsJSON) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*f = FactsJSON(value.Value)
		return nil
	}
	var m map[string]any
	if err := value.Decode(&m); err != nil {
		return err
	}
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("set_facts: %w", err)
	}
	*f = FactsJSON(b)
	return nil
}
