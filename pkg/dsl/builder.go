package dsl

import (
	"context"
	"errors"
	"fmt"

	"github.com/manyblack/studio/pkg/adapters/memory"
	"github.com/manyblack/studio/pkg/catalog"
	"github.com/manyblack/studio/pkg/domain"
)

// Builder collects records for both catalogs, in declaration order.
type Builder struct {
	automations  []*AutomationBuilder
	procedures   []*ProcedureBuilder
	byAutomation map[string]*AutomationBuilder
	byProcedure  map[string]*ProcedureBuilder
}

// New creates an empty builder.
func New() *Builder {
	return &Builder{
		byAutomation: make(map[string]*AutomationBuilder),
		byProcedure:  make(map[string]*ProcedureBuilder),
	}
}

// Automation starts an automation. If the id was already declared, the existing builder is
// returned.
func (b *Builder) Automation(id string) *AutomationBuilder {
	if ab, ok := b.byAutomation[id]; ok {
		return ab
	}
	ab := &AutomationBuilder{rec: domain.Automation{
		ID:       id,
		Cooldown: domain.Cooldown24h,
		Output:   domain.Output{Type: domain.OutputTypeMessage},
	}}
	b.byAutomation[id] = ab
	b.automations = append(b.automations, ab)
	return ab
}

// Procedure starts a procedure with the default settings. If the id was already declared,
// the existing builder is returned.
func (b *Builder) Procedure(id string) *ProcedureBuilder {
	if pb, ok := b.byProcedure[id]; ok {
		return pb
	}
	pb := &ProcedureBuilder{rec: domain.Procedure{ID: id, Settings: domain.DefaultProcedureSettings()}}
	b.byProcedure[id] = pb
	b.procedures = append(b.procedures, pb)
	return pb
}

// Records returns the declared records without validating them.
func (b *Builder) Records() ([]domain.Automation, []domain.Procedure) {
	autos := make([]domain.Automation, len(b.automations))
	for i, ab := range b.automations {
		autos[i] = ab.Build()
	}
	procs := make([]domain.Procedure, len(b.procedures))
	for i, pb := range b.procedures {
		procs[i] = pb.Build()
	}
	return autos, procs
}

// Build loads the records into fresh in-memory catalogs, automations first so procedure
// references resolve. Every record goes through catalog validation; the returned error
// joins the failures and the catalogs hold the records that passed.
func (b *Builder) Build(ctx context.Context, opts ...catalog.Option) (*catalog.Catalogs, error) {
	autoStore := memory.NewStore[domain.Automation](domain.Automations)
	cats := catalog.New(
		catalog.NewAutomations(autoStore, opts...),
		catalog.NewProcedures(memory.NewStore[domain.Procedure](domain.Procedures), autoStore, opts...),
	)

	autos, procs := b.Records()
	var errs []error
	for _, a := range autos {
		if _, err := cats.Automations.Add(ctx, a); err != nil {
			errs = append(errs, fmt.Errorf("automation %s: %w", a.ID, err))
		}
	}
	for _, p := range procs {
		if _, err := cats.Procedures.Add(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("procedure %s: %w", p.ID, err))
		}
	}
	return cats, errors.Join(errs...)
}
