package catalog

import (
	"context"
	"errors"

	"github.com/manyblack/studio/pkg/domain"
	"golang.org/x/sync/errgroup"
)

var errNoCatalogs = errors.New("catalogs unavailable")

// Overview is the cross-catalog summary served at /api/catalog/stats.
type Overview struct {
	AutomationsCount int  `json:"automations_count"`
	ProceduresCount  int  `json:"procedures_count"`
	CatalogEmpty     bool `json:"catalog_empty"`
	ProceduresEmpty  bool `json:"procedures_empty"`
}

// Backups pairs the backups taken by ResetAll.
type Backups struct {
	Automations domain.Backup `json:"automations"`
	Procedures  domain.Backup `json:"procedures"`
}

// List returns the backups in the order ResetAll takes them.
func (b Backups) List() []domain.Backup {
	return []domain.Backup{b.Procedures, b.Automations}
}

// Catalogs bundles both catalogs of a Studio instance.
type Catalogs struct {
	Automations *Automations
	Procedures  *Procedures
}

// New wires both catalogs so each checks references against the other.
func New(autos *Automations, procs *Procedures) *Catalogs {
	autos.WatchReferences(procs.Store())
	procs.automations = autos.Store()
	return &Catalogs{Automations: autos, Procedures: procs}
}

// Overview counts both catalogs concurrently.
func (c *Catalogs) Overview(ctx context.Context) (Overview, error) {
	var ov Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recs, err := c.Automations.List(gctx)
		ov.AutomationsCount = len(recs)
		return err
	})
	g.Go(func() error {
		recs, err := c.Procedures.List(gctx)
		ov.ProceduresCount = len(recs)
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	ov.CatalogEmpty = ov.AutomationsCount == 0
	ov.ProceduresEmpty = ov.ProceduresCount == 0
	return ov, nil
}

// ResetAll backs up and clears both catalogs, procedures first so no procedure is left
// pointing at a removed automation if the second reset fails.
func (c *Catalogs) ResetAll(ctx context.Context) (Backups, error) {
	var out Backups
	var err error
	if out.Procedures, err = c.Procedures.Reset(ctx); err != nil {
		return out, err
	}
	if out.Automations, err = c.Automations.Reset(ctx); err != nil {
		return out, err
	}
	return out, nil
}
