package schema

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/manyblack/studio/pkg/domain"
)

// ValidateIntakeConfig checks the classifier tunables.
func ValidateIntakeConfig(c domain.IntakeConfig) Report {
	var r Report

	if c.LLMBudget != 0 && c.LLMBudget != 1 {
		r.errorf("llm_budget", c.LLMBudget, "must be 0 or 1")
	}
	if c.ToolBudget < 1 || c.ToolBudget > 3 {
		r.errorf("tool_budget", c.ToolBudget, "must be 1, 2 or 3")
	}
	if c.MaxLatencyMS <= 0 {
		r.errorf("max_latency_ms", c.MaxLatencyMS, "must be positive")
	}

	th := c.Thresholds
	if th.Direct < domain.MinDirectThreshold || th.Direct > domain.MaxDirectThreshold {
		r.errorf("thresholds.direct", th.Direct, "must be between %.1f and %.1f", domain.MinDirectThreshold, domain.MaxDirectThreshold)
	}
	if th.Parallel < domain.MinParallelThreshold || th.Parallel > domain.MaxParallelThreshold {
		r.errorf("thresholds.parallel", th.Parallel, "must be between %.1f and %.1f", domain.MinParallelThreshold, domain.MaxParallelThreshold)
	}
	if th.Direct < th.Parallel {
		r.errorf("thresholds", nil, "direct (%.2f) must not be lower than parallel (%.2f)", th.Direct, th.Parallel)
	}

	for _, group := range sortedKeys(c.Anchors) {
		phrases := c.Anchors[group]
		key := "anchors." + group
		if blank(group) {
			r.errorf("anchors", nil, "group name required")
			continue
		}
		if len(phrases) == 0 {
			r.warnf(key, "group has no phrases")
		}
		for i, phrase := range phrases {
			if blank(phrase) {
				r.errorf(fmt.Sprintf("%s[%d]", key, i), nil, "empty phrase")
			}
		}
	}

	for _, broker := range sortedKeys(c.IDPatterns) {
		for i, pattern := range c.IDPatterns[broker] {
			if _, err := regexp.Compile(pattern); err != nil {
				r.errorf(fmt.Sprintf("id_patterns.%s[%d]", broker, i), pattern, "invalid regular expression: %v", err)
			}
		}
	}
	return r
}

// ValidateSnapshot checks the enumerated facts of a snapshot.
func ValidateSnapshot(s domain.Snapshot) Report {
	var r Report
	for _, broker := range sortedKeys(s.Accounts) {
		if status := s.Accounts[broker]; !status.Valid() {
			r.errorf("accounts."+broker, string(status), "must be desconhecido, reported or com_conta")
		}
	}
	if s.Deposit.Status != "" && !s.Deposit.Status.Valid() {
		r.errorf("deposit.status", string(s.Deposit.Status), "must be nenhum, pending or confirmado")
	}
	return r
}

// ValidateRAGParameters checks simulation parameters against the ranges the backend accepts.
func ValidateRAGParameters(p domain.RAGParameters) Report {
	var r Report
	if blank(p.ModelID) {
		r.errorf("model_id", nil, "required")
	}
	checkRange(&r, "temperature", p.Temperature, 0, 1)
	checkRange(&r, "top_p", p.TopP, 0, 1)
	checkRange(&r, "threshold", p.Threshold, 0, 1)
	if p.MaxTokens < 50 || p.MaxTokens > 2000 {
		r.errorf("max_tokens", p.MaxTokens, "must be between 50 and 2000")
	}
	if p.TopK < 1 || p.TopK > 10 {
		r.errorf("top_k", p.TopK, "must be between 1 and 10")
	}
	return r
}

func checkRange(r *Report, key string, v, lo, hi float64) {
	if v < lo || v > hi {
		r.errorf(key, v, "must be between %g and %g", lo, hi)
	}
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
