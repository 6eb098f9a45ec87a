package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/manyblack/studio/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAutomation() domain.Automation {
	return domain.Automation{
		ID:          "ask_account",
		Topic:       "onboarding",
		Eligibility: "lead has no broker account",
		Priority:    0.8,
		Cooldown:    domain.Cooldown24h,
		Output: domain.Output{
			Type: domain.OutputTypeMessage,
			Text: "Você já tem conta na {{broker}}?",
			Buttons: []domain.Button{
				{ID: "open", Label: "Abrir conta", Kind: domain.ButtonURL, URL: "https://quotex.example/signup"},
				{ID: "yes", Label: "Já tenho", Kind: domain.ButtonCallback, SetFacts: `{"accounts.quotex":"reported"}`},
				{ID: "later", Label: "Depois", Kind: domain.ButtonQuickReply},
			},
		},
	}
}

func fields(r Report) []string {
	var out []string
	for _, e := range r.Errors() {
		out = append(out, e.Key)
	}
	return out
}

func TestValidateAutomation_Valid(t *testing.T) {
	r := ValidateAutomation(validAutomation(), NewIDSet("other"))
	assert.True(t, r.OK(), r.Err())
	assert.Empty(t, r.Warnings())
	assert.NoError(t, r.Err())
}

func TestValidateAutomation_Rules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *domain.Automation)
		taken  IDSet
		want   []string
	}{
		{"missing id", func(a *domain.Automation) { a.ID = " " }, nil, []string{"id"}},
		{"duplicate id", func(a *domain.Automation) {}, NewIDSet("ask_account"), []string{"id"}},
		{"missing topic and eligibility", func(a *domain.Automation) { a.Topic, a.Eligibility = "", "" }, nil, []string{"topic", "eligibility"}},
		{"priority above range", func(a *domain.Automation) { a.Priority = 1.2 }, nil, []string{"priority"}},
		{"priority below range", func(a *domain.Automation) { a.Priority = -0.1 }, nil, []string{"priority"}},
		{"cooldown not enumerated", func(a *domain.Automation) { a.Cooldown = "3h" }, nil, []string{"cooldown"}},
		{"disabled is not a cooldown", func(a *domain.Automation) { a.Cooldown = domain.Disabled }, nil, []string{"cooldown"}},
		{"empty text", func(a *domain.Automation) { a.Output.Text = "" }, nil, []string{"output.text"}},
		{"unknown output type", func(a *domain.Automation) { a.Output.Type = "media" }, nil, []string{"output.type"}},
		{"url button without url", func(a *domain.Automation) { a.Output.Buttons[0].URL = "" }, nil, []string{"output.buttons[0].url"}},
		{"url button with relative url", func(a *domain.Automation) { a.Output.Buttons[0].URL = "/signup" }, nil, []string{"output.buttons[0].url"}},
		{"url button carrying facts", func(a *domain.Automation) { a.Output.Buttons[0].SetFacts = `{"flags.x":true}` }, nil, []string{"output.buttons[0].set_facts"}},
		{"callback without facts", func(a *domain.Automation) { a.Output.Buttons[1].SetFacts = "" }, nil, []string{"output.buttons[1].set_facts"}},
		{"callback with broken json", func(a *domain.Automation) { a.Output.Buttons[1].SetFacts = `{"accounts.quotex":` }, nil, []string{"output.buttons[1].set_facts"}},
		{"callback with array", func(a *domain.Automation) { a.Output.Buttons[1].SetFacts = `["x"]` }, nil, []string{"output.buttons[1].set_facts"}},
		{"callback carrying url", func(a *domain.Automation) { a.Output.Buttons[1].URL = "https://x.example" }, nil, []string{"output.buttons[1].url"}},
		{"quick reply with payload", func(a *domain.Automation) {
			a.Output.Buttons[2].URL = "https://x.example"
			a.Output.Buttons[2].SetFacts = `{}`
		}, nil, []string{"output.buttons[2].url", "output.buttons[2].set_facts"}},
		{"unknown kind", func(a *domain.Automation) { a.Output.Buttons[2].Kind = "share" }, nil, []string{"output.buttons[2].kind"}},
		{"duplicate button ids", func(a *domain.Automation) { a.Output.Buttons[2].ID = "open" }, nil, []string{"output.buttons[2].id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validAutomation()
			tt.mutate(&a)
			r := ValidateAutomation(a, tt.taken)

			if diff := cmp.Diff(tt.want, fields(r)); diff != "" {
				t.Errorf("error fields mismatch (-want +got):\n%s", diff)
			}
			require.Error(t, r.Err())
			assert.ErrorIs(t, r.Err(), domain.ErrInvalid)
		})
	}
}

func TestValidateAutomation_BrokenFactsNamesButton(t *testing.T) {
	a := validAutomation()
	a.Output.Buttons[1].SetFacts = "{not json"

	errs := ValidateAutomation(a, nil).Errors()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Reason, "button 1")
}

func TestValidateAutomation_UnknownFactIsWarning(t *testing.T) {
	a := validAutomation()
	a.Output.Buttons[1].SetFacts = `{"crm.stage":"hot"}`

	r := ValidateAutomation(a, nil)
	assert.True(t, r.OK())
	require.Len(t, r.Warnings(), 1)
	assert.Equal(t, "output.buttons[1].set_facts", r.Warnings()[0].Key)
}

func TestValidateAutomation_FactTypeMismatchIsWarning(t *testing.T) {
	a := validAutomation()
	a.Output.Buttons[1].SetFacts = `{"agreements.can_deposit":"yes","flags.clicked":1}`

	r := ValidateAutomation(a, nil)
	assert.True(t, r.OK(), r.Err())
	require.Len(t, r.Warnings(), 2)
	assert.Contains(t, r.Warnings()[0].Reason, "agreements.can_deposit")
	assert.Contains(t, r.Warnings()[1].Reason, "flags.clicked")
}

func TestValidateAutomation_TemplatedFactIsAccepted(t *testing.T) {
	a := validAutomation()
	a.Output.Buttons[1].SetFacts = `{"agreements.can_deposit":"{{answer}}","accounts.quotex":"reported"}`

	r := ValidateAutomation(a, nil)
	assert.True(t, r.OK(), r.Err())
	assert.Empty(t, r.Warnings())
}

func TestValidateAutomation_FactsMustBeObject(t *testing.T) {
	a := validAutomation()
	a.Output.Buttons[1].SetFacts = `"{{answer}}"`

	r := ValidateAutomation(a, nil)
	assert.ErrorIs(t, r.Err(), domain.ErrInvalid)
	assert.Equal(t, []string{"output.buttons[1].set_facts"}, fields(r))
}

func TestReport_ByField(t *testing.T) {
	a := validAutomation()
	a.Topic = ""
	a.Priority = 2

	byField := ValidateAutomation(a, nil).ByField()
	assert.Len(t, byField, 2)
	assert.Equal(t, []string{"required"}, byField["topic"])
	assert.Len(t, ValidationErrors(ValidateAutomation(a, nil).Err()), 2)
}
