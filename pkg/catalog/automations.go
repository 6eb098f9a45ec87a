package catalog

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/manyblack/studio/pkg/domain"
	"github.com/manyblack/studio/pkg/ports"
	"github.com/manyblack/studio/pkg/schema"
)

// Stats summarises the automation catalog.
type Stats struct {
	Total        int    `json:"total"`
	HighPriority int    `json:"high_priority"`
	AvgCooldown  string `json:"avg_cooldown"`
	Topics       int    `json:"topics"`
}

// Automations is the automation catalog.
type Automations struct {
	*Service[domain.Automation]
	procedures ports.Catalog[domain.Procedure]
}

// NewAutomations wraps an automation store.
func NewAutomations(store ports.Catalog[domain.Automation], opts ...Option) *Automations {
	a := &Automations{}
	a.Service = NewService(domain.Automations, store,
		func(_ context.Context, rec domain.Automation, taken schema.IDSet) schema.Report {
			return schema.ValidateAutomation(rec, taken)
		}, opts...)
	a.beforeDelete = a.referencedBy
	return a
}

// WatchReferences makes Delete warn when procedures in procs still point at the automation.
func (a *Automations) WatchReferences(procs ports.Catalog[domain.Procedure]) {
	a.procedures = procs
}

func (a *Automations) referencedBy(ctx context.Context, id string) schema.Report {
	var r schema.Report
	if a.procedures == nil {
		return r
	}
	procs, err := a.procedures.List(ctx)
	if err != nil {
		a.opts.logger.WarnContext(ctx, "could not check procedure references", "automation", id, "error", err)
		return r
	}
	for _, p := range procs {
		if p.ReferencesAutomation(id) {
			r.Issues = append(r.Issues, &schema.ValidationError{
				Key:      "id",
				Reason:   fmt.Sprintf("still referenced by procedure %q", p.ID),
				Severity: schema.SeverityWarning,
			})
		}
	}
	return r
}

// Stats computes the catalog statistics from a fresh listing.
func (a *Automations) Stats(ctx context.Context) (Stats, error) {
	recs, err := a.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	return AutomationStats(recs), nil
}

// AutomationStats projects a list of automations into Stats.
// Cooldowns that do not parse are left out of the average.
func AutomationStats(recs []domain.Automation) Stats {
	st := Stats{Total: len(recs), AvgCooldown: "0h"}
	topics := make(map[string]struct{})
	var hours, counted int
	for _, a := range recs {
		if a.HighPriority() {
			st.HighPriority++
		}
		topics[a.Topic] = struct{}{}
		if h, err := a.Cooldown.Hours(); err == nil {
			hours += h
			counted++
		}
	}
	st.Topics = len(topics)
	if counted > 0 {
		st.AvgCooldown = FormatHours(float64(hours) / float64(counted))
	}
	return st
}

// FormatHours renders hours with at most one decimal, e.g. "13h" or "1.5h".
func FormatHours(h float64) string {
	return strconv.FormatFloat(math.Round(h*10)/10, 'f', -1, 64) + "h"
}
