// Package schema validates Studio records before they are accepted by a catalog.
//
// Validators are pure: they never touch the network or a store. Every issue is scoped to
// a dotted field path (for example "output.buttons[2].set_facts") so an editor can render
// it inline next to the offending input.
//
//	report := schema.ValidateAutomation(a, schema.NewIDSet(existing...))
//	if err := report.Err(); err != nil {
//	    // errors.Is(err, domain.ErrInvalid) == true
//	}
//
// Issues come in two severities. Errors block submission; warnings (such as a procedure
// step pointing at an automation the catalog does not know yet) are reported but accepted,
// because the catalogs are owned by an external store and may be checked later.
package schema
