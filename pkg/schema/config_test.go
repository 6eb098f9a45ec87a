package schema

import (
	"testing"

	"github.com/manyblack/studio/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestValidateIntakeConfig(t *testing.T) {
	assert.True(t, ValidateIntakeConfig(domain.DefaultIntakeConfig()).OK())

	tests := []struct {
		name   string
		mutate func(c *domain.IntakeConfig)
		want   []string
	}{
		{"llm budget", func(c *domain.IntakeConfig) { c.LLMBudget = 2 }, []string{"llm_budget"}},
		{"tool budget", func(c *domain.IntakeConfig) { c.ToolBudget = 0 }, []string{"tool_budget"}},
		{"latency", func(c *domain.IntakeConfig) { c.MaxLatencyMS = 0 }, []string{"max_latency_ms"}},
		{"direct out of range", func(c *domain.IntakeConfig) { c.Thresholds.Direct = 0.4 }, []string{"thresholds.direct", "thresholds"}},
		{"direct below parallel", func(c *domain.IntakeConfig) { c.Thresholds = domain.Thresholds{Direct: 0.6, Parallel: 0.7} }, []string{"thresholds"}},
		{"empty phrase", func(c *domain.IntakeConfig) { c.Anchors["email"] = []string{"email", ""} }, []string{"anchors.email[1]"}},
		{"bad regex", func(c *domain.IntakeConfig) { c.IDPatterns["quotex"] = []string{"(["} }, []string{"id_patterns.quotex[0]"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := domain.DefaultIntakeConfig()
			tt.mutate(&c)
			assert.Equal(t, tt.want, fields(ValidateIntakeConfig(c)))
		})
	}
}

func TestValidateSnapshot(t *testing.T) {
	s := domain.NewSnapshot()
	assert.True(t, ValidateSnapshot(s).OK())

	s.Accounts["quotex"] = "maybe"
	s.Deposit.Status = "done"
	assert.Equal(t, []string{"accounts.quotex", "deposit.status"}, fields(ValidateSnapshot(s)))
}

func TestValidateRAGParameters(t *testing.T) {
	for _, name := range domain.PresetNames() {
		p, _ := domain.Preset(name)
		assert.True(t, ValidateRAGParameters(p).OK(), name)
	}

	p, _ := domain.Preset("fast")
	p.TopK = 11
	p.Temperature = 1.5
	p.MaxTokens = 10
	assert.Equal(t, []string{"temperature", "max_tokens", "top_k"}, fields(ValidateRAGParameters(p)))
}

func TestFactSchema_Lookup(t *testing.T) {
	s := SnapshotFacts()
	_, ok := s.Lookup("agreements.wants_test")
	assert.True(t, ok)
	_, ok = s.Lookup("deposit.status")
	assert.True(t, ok)
	_, ok = s.Lookup("agreements.a.b")
	assert.False(t, ok)
	_, ok = s.Lookup("unknown")
	assert.False(t, ok)
}
