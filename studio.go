package studio

import (
	"path/filepath"

	"github.com/manyblack/studio/internal/adapters/file"
	"github.com/manyblack/studio/pkg/adapters/memory"
	"github.com/manyblack/studio/pkg/catalog"
	"github.com/manyblack/studio/pkg/domain"
)

// Version is the Studio release. Builds may override it with
// -ldflags "-X github.com/manyblack/studio.Version=...".
var Version = "0.1.0"

// Open returns both catalogs backed by the policy files the decision backend reads:
// dir/policies/catalog.yml and dir/policies/procedures.yml, with backups under dir/backup.
// The files are created on the first write.
func Open(dir string, opts ...catalog.Option) *catalog.Catalogs {
	policies := filepath.Join(dir, "policies")
	backups := filepath.Join(dir, "backup")
	autos := file.New[domain.Automation](domain.Automations, policies, backups)
	procs := file.New[domain.Procedure](domain.Procedures, policies, backups)
	return catalog.New(
		catalog.NewAutomations(autos, opts...),
		catalog.NewProcedures(procs, autos, opts...),
	)
}

// OpenMemory returns empty in-memory catalogs, for tests and previews.
func OpenMemory(opts ...catalog.Option) *catalog.Catalogs {
	autos := memory.NewStore[domain.Automation](domain.Automations)
	procs := memory.NewStore[domain.Procedure](domain.Procedures)
	return catalog.New(
		catalog.NewAutomations(autos, opts...),
		catalog.NewProcedures(procs, autos, opts...),
	)
}
