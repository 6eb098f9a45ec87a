// Package validator checks the catalogs as a whole, for problems that span records and so
// escape per-record validation.
package validator

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/manyblack/studio/pkg/catalog"
	"github.com/manyblack/studio/pkg/domain"
	"github.com/manyblack/studio/pkg/schema"
)

// CheckCatalogs lists both catalogs and runs Check on them.
func CheckCatalogs(ctx context.Context, cats *catalog.Catalogs) (schema.Report, error) {
	autos, err := cats.Automations.List(ctx)
	if err != nil {
		return schema.Report{}, err
	}
	procs, err := cats.Procedures.List(ctx)
	if err != nil {
		return schema.Report{}, err
	}
	return Check(autos, procs), nil
}

// Check reports procedure steps whose target does not exist and cycles of procedures falling
// back to each other. Both are errors: the backend would stall a lead on them. Issue keys are
// rooted at the procedure, e.g. "procedures.release.steps[1].do".
func Check(autos []domain.Automation, procs []domain.Procedure) schema.Report {
	var r schema.Report

	automations := make(schema.IDSet, len(autos))
	for _, a := range autos {
		automations[a.ID] = struct{}{}
	}
	byID := make(map[string]domain.Procedure, len(procs))
	ids := make([]string, 0, len(procs))
	for _, p := range procs {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}
	slices.Sort(ids)

	for _, id := range ids {
		p := byID[id]
		for i, step := range p.Steps {
			for _, edge := range []struct {
				field  string
				action *domain.StepAction
			}{{"if_missing", step.IfMissing}, {"do", step.Do}} {
				if edge.action == nil {
					continue
				}
				kind, target, ok := edge.action.Target()
				if !ok {
					continue
				}
				var found bool
				if kind == domain.TargetProcedure {
					_, found = byID[target]
				} else {
					found = automations.Has(target)
				}
				if !found {
					r.Issues = append(r.Issues, &schema.ValidationError{
						Key:      fmt.Sprintf("procedures.%s.steps[%d].%s", p.ID, i, edge.field),
						Reason:   fmt.Sprintf("%s %q does not exist", kind, target),
						Value:    target,
						Severity: schema.SeverityError,
					})
				}
			}
		}
	}

	for _, cycle := range cycles(ids, byID) {
		r.Issues = append(r.Issues, &schema.ValidationError{
			Key:      "procedures." + cycle[0],
			Reason:   "procedures fall back to each other: " + strings.Join(append(cycle, cycle[0]), " -> "),
			Severity: schema.SeverityError,
		})
	}
	return r
}

// nested returns the procedures p falls back to, in step order.
func nested(p domain.Procedure) []string {
	var out []string
	for _, ref := range p.References() {
		if kind, id, ok := ref.Target(); ok && kind == domain.TargetProcedure {
			out = append(out, id)
		}
	}
	return out
}

// cycles finds every cycle of the procedure graph once, rotated to start at its smallest id.
func cycles(ids []string, byID map[string]domain.Procedure) [][]string {
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[string]int, len(ids))
	seen := make(map[string]bool)
	var out [][]string
	var path []string

	var visit func(id string)
	visit = func(id string) {
		state[id] = active
		path = append(path, id)
		for _, next := range nested(byID[id]) {
			if _, ok := byID[next]; !ok {
				continue
			}
			switch state[next] {
			case unvisited:
				visit(next)
			case active:
				start := slices.Index(path, next)
				cycle := canonical(slices.Clone(path[start:]))
				if key := strings.Join(cycle, "\x00"); !seen[key] {
					seen[key] = true
					out = append(out, cycle)
				}
			}
		}
		path = path[:len(path)-1]
		state[id] = done
	}

	for _, id := range ids {
		if state[id] == unvisited {
			visit(id)
		}
	}
	return out
}

func canonical(cycle []string) []string {
	first := 0
	for i, id := range cycle {
		if id < cycle[first] {
			first = i
		}
	}
	return append(cycle[first:], cycle[:first]...)
}
