package domain

// Strategy is the execution path the classifier picks for a given confidence.
type Strategy string

const (
	StrategyDirect   Strategy = "direct"
	StrategyParallel Strategy = "parallel"
	StrategyFallback Strategy = "fallback"
)

// IntakeConfig tunes the backend's message classifier.
type IntakeConfig struct {
	LLMBudget    int                 `json:"llm_budget" yaml:"llm_budget"`
	ToolBudget   int                 `json:"tool_budget" yaml:"tool_budget"`
	MaxLatencyMS int                 `json:"max_latency_ms" yaml:"max_latency_ms"`
	Thresholds   Thresholds          `json:"thresholds" yaml:"thresholds"`
	Anchors      map[string][]string `json:"anchors" yaml:"anchors"`
	IDPatterns   map[string][]string `json:"id_patterns" yaml:"id_patterns"`
}

// Thresholds are the confidence cutoffs. By convention Direct >= Parallel.
type Thresholds struct {
	Direct   float64 `json:"direct" yaml:"direct"`
	Parallel float64 `json:"parallel" yaml:"parallel"`
}

// Ranges accepted for the tunables.
const (
	MinDirectThreshold   = 0.5
	MaxDirectThreshold   = 1.0
	MinParallelThreshold = 0.3
	MaxParallelThreshold = 0.8
)

// DefaultIntakeConfig returns the configuration the backend ships with.
func DefaultIntakeConfig() IntakeConfig {
	return IntakeConfig{
		LLMBudget:    1,
		ToolBudget:   2,
		MaxLatencyMS: 3000,
		Thresholds:   Thresholds{Direct: 0.80, Parallel: 0.60},
		Anchors: map[string][]string{
			"email": {"email", "e-mail", "mail"},
			"id":    {"id", "conta", "login", "número da conta"},
		},
		IDPatterns: map[string][]string{
			"quotex": {`\b\d{6,10}\b`},
			"nyrion": {`\b[A-Z]{2}\d{6,8}\b`},
		},
	}
}

// Strategy previews which path the classifier takes for a confidence score.
func (c IntakeConfig) Strategy(confidence float64) Strategy {
	switch {
	case confidence >= c.Thresholds.Direct:
		return StrategyDirect
	case confidence >= c.Thresholds.Parallel:
		return StrategyParallel
	default:
		return StrategyFallback
	}
}
