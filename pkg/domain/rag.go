package domain

import (
	"fmt"
	"sort"
)

// RAGParameters tune a retrieval-augmented simulation.
type RAGParameters struct {
	ModelID                  string  `json:"model_id" yaml:"model_id"`
	Temperature              float64 `json:"temperature" yaml:"temperature"`
	MaxTokens                int     `json:"max_tokens" yaml:"max_tokens"`
	TopP                     float64 `json:"top_p" yaml:"top_p"`
	TopK                     int     `json:"top_k" yaml:"top_k"`
	Threshold                float64 `json:"threshold" yaml:"threshold"`
	ReRank                   bool    `json:"re_rank" yaml:"re_rank"`
	EnableSemanticComparison bool    `json:"enable_semantic_comparison" yaml:"enable_semantic_comparison"`
}

var presets = map[string]RAGParameters{
	"fast": {
		ModelID: "gpt-4o-mini", Temperature: 0.1, MaxTokens: 200, TopP: 1.0,
		TopK: 2, Threshold: 0.1,
	},
	"balanced": {
		ModelID: "gpt-4o", Temperature: 0.3, MaxTokens: 400, TopP: 1.0,
		TopK: 3, Threshold: 0.05, EnableSemanticComparison: true,
	},
	"precise": {
		ModelID: "o1-preview", Temperature: 0.1, MaxTokens: 600, TopP: 1.0,
		TopK: 5, Threshold: 0.02, ReRank: true, EnableSemanticComparison: true,
	},
}

// Preset returns a named parameter preset (fast, balanced, precise).
func Preset(name string) (RAGParameters, error) {
	p, ok := presets[name]
	if !ok {
		return RAGParameters{}, fmt.Errorf("preset %q: %w", name, ErrNotFound)
	}
	return p, nil
}

// PresetNames lists the available presets in alphabetical order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
