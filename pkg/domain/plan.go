package domain

// Plan is the decision the backend returns for a simulated message.
type Plan struct {
	DecisionID string         `json:"decision_id"`
	Actions    []Action       `json:"actions"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Action is one step of a plan. Only the fields relevant to Type are set.
type Action struct {
	Type         string         `json:"type"`
	Text         string         `json:"text,omitempty"`
	Buttons      []Button       `json:"buttons,omitempty"`
	URL          string         `json:"url,omitempty"`
	Media        map[string]any `json:"media,omitempty"`
	Track        map[string]any `json:"track,omitempty"`
	SetFacts     map[string]any `json:"set_facts,omitempty"`
	AutomationID string         `json:"automation_id,omitempty"`
}

// LogEvent is one entry of the simulation log stream.
type LogEvent struct {
	Stage      string         `json:"stage"`
	Event      string         `json:"event"`
	Timestamp  float64        `json:"timestamp"`
	DurationMS *int           `json:"duration_ms,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}
