package dsl

import "github.com/manyblack/studio/pkg/domain"

// AutomationBuilder provides a fluent API for configuring an automation.
type AutomationBuilder struct {
	rec domain.Automation
}

// Topic sets the topic.
func (a *AutomationBuilder) Topic(topic string) *AutomationBuilder {
	a.rec.Topic = topic
	return a
}

// Eligibility sets the free-text eligibility rule.
func (a *AutomationBuilder) Eligibility(rule string) *AutomationBuilder {
	a.rec.Eligibility = rule
	return a
}

// Priority sets the priority, 0 to 1.
func (a *AutomationBuilder) Priority(p float64) *AutomationBuilder {
	a.rec.Priority = p
	return a
}

// Cooldown sets the cooldown token. The default is 24h.
func (a *AutomationBuilder) Cooldown(c domain.Cooldown) *AutomationBuilder {
	a.rec.Cooldown = c
	return a
}

// Text sets the message text.
func (a *AutomationBuilder) Text(text string) *AutomationBuilder {
	a.rec.Output.Text = text
	return a
}

// URLButton appends a button opening url.
func (a *AutomationBuilder) URLButton(id, label, url string) *AutomationBuilder {
	a.rec.Output.Buttons = append(a.rec.Output.Buttons, domain.Button{
		ID: id, Label: label, Kind: domain.ButtonURL, URL: url,
	})
	return a
}

// CallbackButton appends a button writing facts to the lead snapshot. Facts that cannot be
// encoded are kept as empty text so validation reports them.
func (a *AutomationBuilder) CallbackButton(id, label string, facts map[string]any) *AutomationBuilder {
	encoded, _ := domain.FactsFromMap(facts)
	a.rec.Output.Buttons = append(a.rec.Output.Buttons, domain.Button{
		ID: id, Label: label, Kind: domain.ButtonCallback, SetFacts: encoded,
	})
	return a
}

// QuickReply appends a button that sends its label back.
func (a *AutomationBuilder) QuickReply(id, label string) *AutomationBuilder {
	a.rec.Output.Buttons = append(a.rec.Output.Buttons, domain.Button{
		ID: id, Label: label, Kind: domain.ButtonQuickReply,
	})
	return a
}

// Build returns a copy of the automation.
func (a *AutomationBuilder) Build() domain.Automation {
	rec := a.rec
	rec.Output.Buttons = append([]domain.Button(nil), a.rec.Output.Buttons...)
	return rec
}

// ProcedureBuilder provides a fluent API for configuring a procedure. IfMissing and Then
// apply to the last step added.
type ProcedureBuilder struct {
	rec domain.Procedure
}

// Title sets the title.
func (p *ProcedureBuilder) Title(title string) *ProcedureBuilder {
	p.rec.Title = title
	return p
}

// Description sets the description.
func (p *ProcedureBuilder) Description(d string) *ProcedureBuilder {
	p.rec.Description = d
	return p
}

// Step appends a gate.
func (p *ProcedureBuilder) Step(name, condition string) *ProcedureBuilder {
	p.rec.Steps = append(p.rec.Steps, domain.ProcedureStep{Name: name, Condition: condition})
	return p
}

func (p *ProcedureBuilder) last() *domain.ProcedureStep {
	if len(p.rec.Steps) == 0 {
		p.Step("", "")
	}
	return &p.rec.Steps[len(p.rec.Steps)-1]
}

// IfMissing runs the automation when the last step's condition does not hold.
func (p *ProcedureBuilder) IfMissing(automationID string) *ProcedureBuilder {
	p.last().IfMissing = domain.RunAutomation(automationID)
	return p
}

// IfMissingProcedure falls back to another procedure and allows nesting.
func (p *ProcedureBuilder) IfMissingProcedure(procedureID string) *ProcedureBuilder {
	p.last().IfMissing = domain.RunProcedure(procedureID)
	p.rec.Settings.AllowNestedProcedures = true
	return p
}

// Then runs the automation when the last step's condition holds.
func (p *ProcedureBuilder) Then(automationID string) *ProcedureBuilder {
	p.last().Do = domain.RunAutomation(automationID)
	return p
}

// Timeout sets the max procedure time.
func (p *ProcedureBuilder) Timeout(c domain.Cooldown) *ProcedureBuilder {
	p.rec.Settings.MaxProcedureTime = c
	return p
}

// Cooldown sets how long before a lead may re-enter.
func (p *ProcedureBuilder) Cooldown(c domain.Cooldown) *ProcedureBuilder {
	p.rec.Settings.ProcedureCooldown = c
	return p
}

// Build returns a copy of the procedure.
func (p *ProcedureBuilder) Build() domain.Procedure {
	rec := p.rec
	rec.Steps = append([]domain.ProcedureStep(nil), p.rec.Steps...)
	return rec
}
