package memory_test

import (
	"context"
	"testing"

	"github.com/manyblack/studio/pkg/adapters/memory"
	"github.com/manyblack/studio/pkg/domain"
	"github.com/manyblack/studio/pkg/ports"
	"github.com/manyblack/studio/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_AutomationContract(t *testing.T) {
	ports.RunCatalogContract(t, func(t *testing.T) ports.Catalog[domain.Automation] {
		return memory.NewStore[domain.Automation](domain.Automations)
	}, testutils.Automation)
}

func TestMemoryStore_ProcedureContract(t *testing.T) {
	ports.RunCatalogContract(t, func(t *testing.T) ports.Catalog[domain.Procedure] {
		return memory.NewStore[domain.Procedure](domain.Procedures)
	}, testutils.Procedure)
}

func TestMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore[domain.Automation](domain.Automations)

	a := testutils.Automation("iso")
	require.NoError(t, store.Add(ctx, a))

	// Mutating the caller's copy must not leak into the store
	a.Output.Buttons[0].Label = "mutated"

	got, err := store.Get(ctx, "iso")
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", got.Output.Buttons[0].Label)

	got.Output.Buttons[0].Label = "mutated again"
	again, err := store.Get(ctx, "iso")
	require.NoError(t, err)
	assert.NotEqual(t, "mutated again", again.Output.Buttons[0].Label)
}
