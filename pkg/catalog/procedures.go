package catalog

import (
	"context"

	"github.com/manyblack/studio/pkg/domain"
	"github.com/manyblack/studio/pkg/ports"
	"github.com/manyblack/studio/pkg/schema"
)

// ProcedureStats summarises the procedure catalog.
type ProcedureStats struct {
	Total       int     `json:"total"`
	Steps       int     `json:"steps"`
	AvgSteps    float64 `json:"avg_steps"`
	WithTimeout int     `json:"with_timeout"`
}

// Procedures is the procedure catalog.
type Procedures struct {
	*Service[domain.Procedure]
	automations ports.Catalog[domain.Automation]
}

// NewProcedures wraps a procedure store. References to automations are checked against
// automations; pass nil to skip those checks (they then surface as a warning).
func NewProcedures(store ports.Catalog[domain.Procedure], automations ports.Catalog[domain.Automation], opts ...Option) *Procedures {
	p := &Procedures{automations: automations}
	p.Service = NewService(domain.Procedures, store, p.validateProcedure, opts...)
	return p
}

func (p *Procedures) validateProcedure(ctx context.Context, rec domain.Procedure, taken schema.IDSet) schema.Report {
	refs, err := ReferenceIndex(ctx, p.automations, p.store)
	if err != nil {
		p.opts.logger.WarnContext(ctx, "reference index unavailable", "error", err)
		return schema.ValidateProcedure(rec, taken, nil)
	}
	// A renamed or new procedure may point at itself only through nesting, which the
	// validator rejects, so the index needs no adjustment for rec.
	return schema.ValidateProcedure(rec, taken, refs)
}

// Stats computes the catalog statistics from a fresh listing.
func (p *Procedures) Stats(ctx context.Context) (ProcedureStats, error) {
	recs, err := p.List(ctx)
	if err != nil {
		return ProcedureStats{}, err
	}
	return ProcedureStatsOf(recs), nil
}

// ProcedureStatsOf projects a list of procedures into ProcedureStats.
func ProcedureStatsOf(recs []domain.Procedure) ProcedureStats {
	st := ProcedureStats{Total: len(recs)}
	for _, p := range recs {
		st.Steps += len(p.Steps)
		if !p.Settings.MaxProcedureTime.IsDisabled() && p.Settings.MaxProcedureTime != "" {
			st.WithTimeout++
		}
	}
	if st.Total > 0 {
		st.AvgSteps = float64(st.Steps) / float64(st.Total)
	}
	return st
}

// ReferenceIndex snapshots the IDs of both catalogs for reference checks.
// It returns an error, and no index, if automations is nil or a listing fails.
func ReferenceIndex(ctx context.Context, automations ports.Catalog[domain.Automation], procedures ports.Catalog[domain.Procedure]) (schema.Refs, error) {
	if automations == nil || procedures == nil {
		return schema.Refs{}, errNoCatalogs
	}
	autos, err := automations.List(ctx)
	if err != nil {
		return schema.Refs{}, err
	}
	procs, err := procedures.List(ctx)
	if err != nil {
		return schema.Refs{}, err
	}
	refs := schema.Refs{Automations: schema.IDSet{}, Procedures: schema.IDSet{}}
	for _, a := range autos {
		refs.Automations[a.ID] = struct{}{}
	}
	for _, p := range procs {
		refs.Procedures[p.ID] = struct{}{}
	}
	return refs, nil
}
