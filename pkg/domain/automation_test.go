package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFactsJSON_Map(t *testing.T) {
	m, err := FactsJSON(`{"agreements.can_deposit": true}`).Map()
	require.NoError(t, err)
	assert.Equal(t, true, m["agreements.can_deposit"])

	_, err = FactsJSON(`{"a": `).Map()
	assert.Error(t, err)

	_, err = FactsJSON(`[1,2]`).Map()
	assert.Error(t, err, "arrays are not fact mappings")

	_, err = FactsJSON(`null`).Map()
	assert.Error(t, err)
}

func TestFactsJSON_JSONRoundTrip(t *testing.T) {
	b := Button{ID: "b1", Label: "Sim", Kind: ButtonCallback, SetFacts: `{ "flags.ok" : true }`}
	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"set_facts":{"flags.ok":true}`)

	var back Button
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, FactsJSON(`{"flags.ok":true}`), back.SetFacts)

	// Free text from an editor arrives as a string and is kept verbatim.
	require.NoError(t, json.Unmarshal([]byte(`{"id":"b2","kind":"callback","set_facts":"{oops"}`), &back))
	assert.Equal(t, FactsJSON("{oops"), back.SetFacts)

	data, err = json.Marshal(back)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"set_facts":"{oops"`)
}

func TestFactsJSON_YAML(t *testing.T) {
	src := `
id: b1
label: Quero testar
kind: callback
set_facts:
  agreements.wants_test: true
`
	var b Button
	require.NoError(t, yaml.Unmarshal([]byte(src), &b))
	m, err := b.SetFacts.Map()
	require.NoError(t, err)
	assert.Equal(t, true, m["agreements.wants_test"])

	out, err := yaml.Marshal(b)
	require.NoError(t, err)
	assert.Contains(t, string(out), "agreements.wants_test: true")
}

func TestClone_IsDeep(t *testing.T) {
	a := Automation{
		ID: "a1", Priority: 0.5, Cooldown: Cooldown1h,
		Output: Output{Type: OutputTypeMessage, Text: "oi", Buttons: []Button{{ID: "b", Label: "x", Kind: ButtonQuickReply}}},
	}
	c, err := Clone(a)
	require.NoError(t, err)
	c.Output.Buttons[0].Label = "changed"

	assert.Equal(t, "x", a.Output.Buttons[0].Label)
	assert.Equal(t, a.ID, c.ID)
}

func TestClone_KeepsExtraKeys(t *testing.T) {
	a := Automation{
		ID:     "a1",
		Output: Output{Type: OutputTypeMessage, Text: "oi", Extra: map[string]any{"track": "t1"}},
		Extra:  map[string]any{"use_when": []any{"flags.vip"}},
	}
	c, err := Clone(a)
	require.NoError(t, err)
	assert.Equal(t, a.Extra, c.Extra)
	assert.Equal(t, "t1", c.Output.Extra["track"])

	out, err := yaml.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(out), "use_when:")
	assert.NotContains(t, string(out), "extra:")
}

func TestProcedure_References(t *testing.T) {
	p := Procedure{
		ID: "p",
		Steps: []ProcedureStep{
			{Name: "conta", Condition: "tem conta", IfMissing: RunAutomation("ask_account")},
			{Name: "fim", Condition: "depositou", IfMissing: RunProcedure("deposit_flow"), Do: RunAutomation("release")},
		},
	}
	assert.Len(t, p.References(), 3)
	assert.True(t, p.ReferencesAutomation("release"))
	assert.False(t, p.ReferencesAutomation("deposit_flow"))

	kind, id, ok := RunProcedure("x").Target()
	assert.True(t, ok)
	assert.Equal(t, TargetProcedure, kind)
	assert.Equal(t, "x", id)

	_, _, ok = StepAction{Automation: "a", Procedure: "b"}.Target()
	assert.False(t, ok)
}
