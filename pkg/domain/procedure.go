package domain

// TargetKind names what a StepAction points at.
type TargetKind string

const (
	TargetAutomation TargetKind = "automation"
	TargetProcedure  TargetKind = "procedure"
)

// Procedure is an ordered sequence of gating steps.
// The external engine evaluates steps in order and stops at the first unsatisfied condition.
type Procedure struct {
	ID          string            `json:"id" yaml:"id"`
	Title       string            `json:"title" yaml:"title"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Steps       []ProcedureStep   `json:"steps" yaml:"steps"`
	Settings    ProcedureSettings `json:"settings" yaml:"settings"`
	// Extra keeps keys of the policy file this module does not model.
	Extra map[string]any `json:"extra,omitempty" yaml:",inline"`
}

// RecordID implements Record.
func (p Procedure) RecordID() string { return p.ID }

// References returns every action target mentioned by the procedure's steps, in step order.
func (p Procedure) References() []StepAction {
	var refs []StepAction
	for _, s := range p.Steps {
		if s.IfMissing != nil {
			refs = append(refs, *s.IfMissing)
		}
		if s.Do != nil {
			refs = append(refs, *s.Do)
		}
	}
	return refs
}

// ReferencesAutomation reports whether any step targets the automation id.
func (p Procedure) ReferencesAutomation(id string) bool {
	for _, ref := range p.References() {
		if ref.Automation == id {
			return true
		}
	}
	return false
}

// ProcedureStep is one gate of a procedure.
type ProcedureStep struct {
	Name      string      `json:"name" yaml:"name"`
	Condition string      `json:"condition" yaml:"condition"`
	IfMissing *StepAction `json:"if_missing,omitempty" yaml:"if_missing,omitempty"`
	Do        *StepAction `json:"do,omitempty" yaml:"do,omitempty"`

	Extra map[string]any `json:"extra,omitempty" yaml:",inline"`
}

// Reachable reports whether the step carries a fallback or a terminal action.
func (s ProcedureStep) Reachable() bool {
	return s.IfMissing != nil || s.Do != nil
}

// StepAction points at exactly one automation or procedure.
type StepAction struct {
	Automation string `json:"automation,omitempty" yaml:"automation,omitempty"`
	Procedure  string `json:"procedure,omitempty" yaml:"procedure,omitempty"`
}

// RunAutomation builds an action targeting an automation.
func RunAutomation(id string) *StepAction { return &StepAction{Automation: id} }

// RunProcedure builds an action targeting a procedure.
func RunProcedure(id string) *StepAction { return &StepAction{Procedure: id} }

// Target returns the kind and id of the action. ok is false unless exactly one target is set.
func (a StepAction) Target() (kind TargetKind, id string, ok bool) {
	switch {
	case a.Automation != "" && a.Procedure == "":
		return TargetAutomation, a.Automation, true
	case a.Procedure != "" && a.Automation == "":
		return TargetProcedure, a.Procedure, true
	}
	return "", "", false
}

// ProcedureSettings tune how the external engine runs a procedure.
type ProcedureSettings struct {
	// MaxProcedureTime is the timeout before a stalled lead is abandoned mid-procedure.
	MaxProcedureTime Cooldown `json:"max_procedure_time" yaml:"max_procedure_time"`
	// ProcedureCooldown is the minimum time before the same lead may re-enter.
	ProcedureCooldown Cooldown `json:"procedure_cooldown" yaml:"procedure_cooldown"`
	// AllowNestedProcedures lets a step fall back to another procedure.
	AllowNestedProcedures bool `json:"allow_nested_procedures" yaml:"allow_nested_procedures"`

	Extra map[string]any `json:"extra,omitempty" yaml:",inline"`
}

// DefaultProcedureSettings returns the settings used by new procedures.
func DefaultProcedureSettings() ProcedureSettings {
	return ProcedureSettings{
		MaxProcedureTime:  Cooldown24h,
		ProcedureCooldown: Disabled,
	}
}
