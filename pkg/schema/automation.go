package schema

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/manyblack/studio/pkg/domain"
)

// IDSet holds the IDs already taken in a catalog.
type IDSet map[string]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is taken.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Without returns a copy of the set minus id. Used when updating a record in place.
func (s IDSet) Without(id string) IDSet {
	out := make(IDSet, len(s))
	for k := range s {
		if k != id {
			out[k] = struct{}{}
		}
	}
	return out
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// ValidateAutomation checks an automation against the catalog rules.
// taken holds the IDs of the other automations in the catalog.
func ValidateAutomation(a domain.Automation, taken IDSet) Report {
	var r Report

	switch {
	case blank(a.ID):
		r.errorf("id", nil, "required")
	case taken.Has(a.ID):
		r.errorf("id", a.ID, "already used by another automation")
	}
	if blank(a.Topic) {
		r.errorf("topic", nil, "required")
	}
	if blank(a.Eligibility) {
		r.errorf("eligibility", nil, "required")
	}
	if a.Priority < 0 || a.Priority > 1 {
		r.errorf("priority", a.Priority, "must be between 0.0 and 1.0")
	}
	if !a.Cooldown.Valid() {
		r.errorf("cooldown", string(a.Cooldown), "must be one of 0h, 1h, 6h, 12h, 24h, 48h")
	}

	validateOutput(&r, a.Output)
	return r
}

func validateOutput(r *Report, out domain.Output) {
	if out.Type != domain.OutputTypeMessage {
		r.errorf("output.type", out.Type, "must be %q", domain.OutputTypeMessage)
	}
	if blank(out.Text) {
		r.errorf("output.text", nil, "required")
	}

	seen := make(map[string]int, len(out.Buttons))
	facts := SnapshotFacts()
	for i, b := range out.Buttons {
		key := func(field string) string { return fmt.Sprintf("output.buttons[%d].%s", i, field) }

		switch {
		case blank(b.ID):
			r.errorf(key("id"), nil, "required")
		default:
			if first, dup := seen[b.ID]; dup {
				r.errorf(key("id"), b.ID, "duplicates button %d", first)
			} else {
				seen[b.ID] = i
			}
		}
		if blank(b.Label) {
			r.errorf(key("label"), nil, "required")
		}

		switch b.Kind {
		case domain.ButtonURL:
			if blank(b.URL) {
				r.errorf(key("url"), nil, "required for url buttons")
			} else if err := checkURL(b.URL); err != nil {
				r.errorf(key("url"), b.URL, "%v", err)
			}
			if !b.SetFacts.Empty() {
				r.errorf(key("set_facts"), nil, "not allowed on url buttons")
			}
		case domain.ButtonCallback:
			if !blank(b.URL) {
				r.errorf(key("url"), b.URL, "not allowed on callback buttons")
			}
			if b.SetFacts.Empty() {
				r.errorf(key("set_facts"), nil, "required for callback buttons")
				continue
			}
			m, err := b.SetFacts.Map()
			if err != nil {
				r.errorf(key("set_facts"), nil, "button %d: invalid JSON object: %v", i, err)
				continue
			}
			facts.validateFacts(r, key("set_facts"), m)
		case domain.ButtonQuickReply:
			if !blank(b.URL) {
				r.errorf(key("url"), b.URL, "not allowed on quick_reply buttons")
			}
			if !b.SetFacts.Empty() {
				r.errorf(key("set_facts"), nil, "not allowed on quick_reply buttons")
			}
		default:
			r.errorf(key("kind"), string(b.Kind), "must be one of url, callback, quick_reply")
		}
	}
}

func checkURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("must be an absolute URL with scheme and host")
	}
	return nil
}
