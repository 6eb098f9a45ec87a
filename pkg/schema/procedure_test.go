package schema

import (
	"testing"

	"github.com/manyblack/studio/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProcedure() domain.Procedure {
	return domain.Procedure{
		ID:    domain.Slugify("Liberar acesso ao teste"),
		Title: "Liberar acesso ao teste",
		Steps: []domain.ProcedureStep{
			{Name: "Conta", Condition: "o lead tem conta na corretora", IfMissing: domain.RunAutomation("ask_account")},
			{Name: "Depósito", Condition: "depósito confirmado", IfMissing: domain.RunAutomation("ask_deposit"), Do: domain.RunAutomation("release_test")},
		},
		Settings: domain.DefaultProcedureSettings(),
	}
}

func catalogRefs() Refs {
	return Refs{
		Automations: NewIDSet("ask_account", "ask_deposit", "release_test"),
		Procedures:  NewIDSet("deposit_flow"),
	}
}

func TestValidateProcedure_Valid(t *testing.T) {
	r := ValidateProcedure(validProcedure(), nil, catalogRefs())
	assert.True(t, r.OK(), r.Err())
	assert.Empty(t, r.Warnings())
}

func TestValidateProcedure_Rules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *domain.Procedure)
		want   []string
	}{
		{"missing title", func(p *domain.Procedure) { p.Title = "" }, []string{"title"}},
		{"no steps", func(p *domain.Procedure) { p.Steps = nil }, []string{"steps"}},
		{"empty condition", func(p *domain.Procedure) { p.Steps[0].Condition = "  " }, []string{"steps[0].condition"}},
		{"unreachable step", func(p *domain.Procedure) { p.Steps[1].IfMissing, p.Steps[1].Do = nil, nil }, []string{"steps[1]"}},
		{"action with two targets", func(p *domain.Procedure) {
			p.Steps[0].IfMissing = &domain.StepAction{Automation: "a", Procedure: "b"}
		}, []string{"steps[0].if_missing"}},
		{"nested procedure not allowed", func(p *domain.Procedure) {
			p.Steps[0].IfMissing = domain.RunProcedure("deposit_flow")
		}, []string{"steps[0].if_missing.procedure"}},
		{"self reference", func(p *domain.Procedure) {
			p.Settings.AllowNestedProcedures = true
			p.Steps[0].IfMissing = domain.RunProcedure(p.ID)
		}, []string{"steps[0].if_missing.procedure"}},
		{"bad settings tokens", func(p *domain.Procedure) {
			p.Settings.MaxProcedureTime = "2d"
			p.Settings.ProcedureCooldown = "never"
		}, []string{"settings.max_procedure_time", "settings.procedure_cooldown"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProcedure()
			tt.mutate(&p)
			r := ValidateProcedure(p, nil, catalogRefs())
			assert.Equal(t, tt.want, fields(r))
			assert.ErrorIs(t, r.Err(), domain.ErrInvalid)
		})
	}
}

func TestValidateProcedure_EveryStepNeedsAnAction(t *testing.T) {
	p := validProcedure()
	for i := range p.Steps {
		p.Steps[i].IfMissing = nil
		p.Steps[i].Do = nil
	}
	r := ValidateProcedure(p, nil, catalogRefs())
	assert.True(t, r.Has("steps[0]"))
	assert.True(t, r.Has("steps[1]"))
}

func TestValidateProcedure_MissingReferencesAreWarnings(t *testing.T) {
	p := validProcedure()
	p.Steps[0].IfMissing = domain.RunAutomation("ghost")
	p.Settings.AllowNestedProcedures = true
	p.Steps[1].IfMissing = domain.RunProcedure("unknown_flow")

	r := ValidateProcedure(p, nil, catalogRefs())
	assert.True(t, r.OK())
	require.Len(t, r.Warnings(), 2)
	assert.Equal(t, "steps[0].if_missing.automation", r.Warnings()[0].Key)
	assert.Equal(t, "steps[1].if_missing.procedure", r.Warnings()[1].Key)
}

func TestValidateProcedure_WithoutCatalogs(t *testing.T) {
	r := ValidateProcedure(validProcedure(), nil, nil)
	assert.True(t, r.OK())
	require.Len(t, r.Warnings(), 1)
	assert.Contains(t, r.Warnings()[0].Reason, "references not checked")
}

func TestValidateProcedure_IDs(t *testing.T) {
	p := validProcedure()
	r := ValidateProcedure(p, NewIDSet(p.ID), catalogRefs())
	assert.Equal(t, []string{"id"}, fields(r))

	p.ID = "Não Slug"
	r = ValidateProcedure(p, nil, catalogRefs())
	assert.True(t, r.OK())
	assert.True(t, r.Has("id"))
}
