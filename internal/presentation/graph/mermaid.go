// Package graph renders procedures as Mermaid flowcharts.
package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/manyblack/studio/pkg/domain"
	"github.com/manyblack/studio/pkg/schema"
)

// ProcedureMermaid produces a Mermaid flowchart of a procedure.
//
// Steps run top to bottom. Shapes:
// - Procedure: ((Circle))
// - Step: [/Parallelogram/], labelled with its condition
// - Automation target: [Rectangle]
// - Procedure target: [[Subroutine]]
// A dotted edge means "run when the condition is missing", a solid edge "run when it holds".
// Targets that refs cannot resolve are styled as missing. refs may be nil.
func ProcedureMermaid(p domain.Procedure, refs schema.RefChecker) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	root := sanitizeMermaidID("proc_" + p.ID)
	fmt.Fprintf(&sb, "    %s((\"%s\"))\n", root, escape(titleOr(p)))

	targets := make(map[string]bool) // safe id -> missing
	prev := root
	for i, step := range p.Steps {
		stepID := fmt.Sprintf("%s_step%d", root, i+1)
		label := escape(step.Name)
		if label == "" {
			label = fmt.Sprintf("step %d", i+1)
		}
		fmt.Fprintf(&sb, "    %s[/\"%d. %s <br/> %s\"/]\n", stepID, i+1, label, escape(step.Condition))
		fmt.Fprintf(&sb, "    %s --> %s\n", prev, stepID)
		prev = stepID

		for _, edge := range []struct {
			action *domain.StepAction
			arrow  string
		}{
			{step.IfMissing, "-. \"missing\" .->"},
			{step.Do, "-- \"ok\" -->"},
		} {
			if edge.action == nil {
				continue
			}
			kind, id, ok := edge.action.Target()
			if !ok {
				continue
			}
			targetID, shape := targetNode(kind, id)
			if _, seen := targets[targetID]; !seen {
				sb.WriteString("    " + shape + "\n")
				targets[targetID] = refs != nil && !resolves(refs, kind, id)
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", stepID, edge.arrow, targetID)
		}
	}

	var missing []string
	for id, miss := range targets {
		if miss {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sb.WriteString("\n    %% Missing references\n")
		sb.WriteString("    classDef missing fill:#ffebee,stroke:#c62828,stroke-width:2px,stroke-dasharray:4,color:#000;\n")
		slices.Sort(missing)
		for _, id := range missing {
			fmt.Fprintf(&sb, "    class %s missing;\n", id)
		}
	}

	return sb.String()
}

func titleOr(p domain.Procedure) string {
	if strings.TrimSpace(p.Title) != "" {
		return p.Title
	}
	return p.ID
}

func targetNode(kind domain.TargetKind, id string) (string, string) {
	if kind == domain.TargetProcedure {
		safe := sanitizeMermaidID("proc_" + id)
		return safe, fmt.Sprintf("%s[[\"%s\"]]", safe, escape(id))
	}
	safe := sanitizeMermaidID("auto_" + id)
	return safe, fmt.Sprintf("%s[\"%s\"]", safe, escape(id))
}

func resolves(refs schema.RefChecker, kind domain.TargetKind, id string) bool {
	if kind == domain.TargetProcedure {
		return refs.HasProcedure(id)
	}
	return refs.HasAutomation(id)
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
