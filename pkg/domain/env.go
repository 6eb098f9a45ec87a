package domain

// Message is one entry of the conversation window sent with a simulation.
type Message struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Lead identifies who a simulated message comes from.
type Lead struct {
	ID   *int   `json:"id,omitempty"`
	Name string `json:"nome,omitempty"`
	Lang string `json:"lang"`
}

// DefaultLang is the language of leads that did not state one.
const DefaultLang = "pt-BR"

// Env is the decision input the backend's simulate endpoint takes.
// With Apply false the backend must not persist any side effect.
type Env struct {
	Lead           Lead           `json:"lead"`
	Snapshot       Snapshot       `json:"snapshot"`
	MessagesWindow []Message      `json:"messages_window"`
	Candidates     map[string]any `json:"candidates,omitempty"`
	Apply          bool           `json:"apply"`
}
