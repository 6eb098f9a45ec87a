package schema

import (
	"fmt"
	"regexp"

	"github.com/manyblack/studio/pkg/domain"
)

// RefChecker answers whether referenced records exist in their catalogs.
type RefChecker interface {
	HasAutomation(id string) bool
	HasProcedure(id string) bool
}

// Refs is a RefChecker over in-memory ID sets.
type Refs struct {
	Automations IDSet
	Procedures  IDSet
}

func (r Refs) HasAutomation(id string) bool { return r.Automations.Has(id) }
func (r Refs) HasProcedure(id string) bool  { return r.Procedures.Has(id) }

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(_[a-z0-9]+)*$`)

// ValidateProcedure checks a procedure against the catalog rules.
//
// taken holds the IDs of the other procedures. refs may be nil when the catalogs cannot be
// consulted; reference checks are then skipped with a warning. Missing references are
// always warnings, never errors.
func ValidateProcedure(p domain.Procedure, taken IDSet, refs RefChecker) Report {
	var r Report

	switch {
	case blank(p.ID):
		r.errorf("id", nil, "required")
	case taken.Has(p.ID):
		r.errorf("id", p.ID, "already used by another procedure")
	case len(p.ID) > domain.MaxSlugLength:
		r.errorf("id", p.ID, "must be at most %d characters", domain.MaxSlugLength)
	case !slugPattern.MatchString(p.ID):
		r.warnf("id", "%q is not a lowercase slug; expected something like %q", p.ID, domain.Slugify(p.ID))
	}
	if blank(p.Title) {
		r.errorf("title", nil, "required")
	}
	if len(p.Steps) == 0 {
		r.errorf("steps", nil, "at least one step is required")
	}

	if !p.Settings.MaxProcedureTime.ValidSetting() {
		r.errorf("settings.max_procedure_time", string(p.Settings.MaxProcedureTime), "must be a duration token or %q", domain.Disabled)
	}
	if !p.Settings.ProcedureCooldown.ValidSetting() {
		r.errorf("settings.procedure_cooldown", string(p.Settings.ProcedureCooldown), "must be a duration token or %q", domain.Disabled)
	}

	for i, step := range p.Steps {
		key := func(field string) string { return fmt.Sprintf("steps[%d].%s", i, field) }

		if blank(step.Name) {
			r.warnf(key("name"), "step has no name")
		}
		if blank(step.Condition) {
			r.errorf(key("condition"), nil, "required")
		}
		if !step.Reachable() {
			r.errorf(fmt.Sprintf("steps[%d]", i), nil, "needs if_missing or do")
		}
		if step.IfMissing != nil {
			validateAction(&r, key("if_missing"), *step.IfMissing, p, refs)
		}
		if step.Do != nil {
			validateAction(&r, key("do"), *step.Do, p, refs)
		}
	}

	if refs == nil && len(p.References()) > 0 {
		r.warnf("steps", "references not checked: catalogs unavailable")
	}
	return r
}

func validateAction(r *Report, key string, a domain.StepAction, p domain.Procedure, refs RefChecker) {
	kind, id, ok := a.Target()
	if !ok {
		r.errorf(key, nil, "must name exactly one of automation or procedure")
		return
	}

	switch kind {
	case domain.TargetAutomation:
		if refs != nil && !refs.HasAutomation(id) {
			r.warnf(key+".automation", "automation %q not found in catalog", id)
		}
	case domain.TargetProcedure:
		if !p.Settings.AllowNestedProcedures {
			r.errorf(key+".procedure", id, "nested procedures are disabled in settings")
			return
		}
		if id == p.ID {
			r.errorf(key+".procedure", id, "procedure cannot fall back to itself")
			return
		}
		if refs != nil && !refs.HasProcedure(id) {
			r.warnf(key+".procedure", "procedure %q not found in catalog", id)
		}
	}
}
